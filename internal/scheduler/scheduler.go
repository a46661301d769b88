package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"plantcare/internal/models"
)

// Store lists the devices whose lamp windows need minute ticks
type Store interface {
	GetDevicesWithLampSchedule(ctx context.Context) ([]uuid.UUID, error)
}

// Publisher feeds synthetic batches into the telemetry queue
type Publisher interface {
	Publish(ctx context.Context, batch *models.TelemetryBatch) error
}

// Scheduler fires a minute tick for every device with a lamp schedule. A
// quiet device sends no telemetry, so without the tick the light-cycle rule
// would never see its window boundary. The synthetic batch carries no
// readings; only rules that need none can act on it.
type Scheduler struct {
	cron  *cron.Cron
	store Store
	queue Publisher
}

// NewScheduler creates a scheduler
func NewScheduler(store Store, queue Publisher) *Scheduler {
	return &Scheduler{
		cron:  cron.New(),
		store: store,
		queue: queue,
	}
}

// Start registers the minute tick and starts the cron loop
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("* * * * *", s.tick); err != nil {
		return err
	}
	s.cron.Start()
	log.Println("SCHEDULER: Cron scheduler started")
	return nil
}

// Stop stops the scheduler and waits for a running tick to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("SCHEDULER: Cron scheduler stopped")
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deviceIDs, err := s.store.GetDevicesWithLampSchedule(ctx)
	if err != nil {
		log.Printf("SCHEDULER: Failed to load lamp-scheduled devices: %v", err)
		return
	}

	for _, deviceID := range deviceIDs {
		batch := &models.TelemetryBatch{
			DeviceID:  deviceID,
			BatchID:   uuid.New(),
			CreatedAt: time.Now().UTC(),
		}
		if err := s.queue.Publish(ctx, batch); err != nil {
			log.Printf("SCHEDULER: Failed to publish lamp tick for device %s: %v", deviceID, err)
		}
	}
}
