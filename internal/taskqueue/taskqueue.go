package taskqueue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"plantcare/internal/notify"
)

const TaskNotifyAlert = "notify:alert"

var (
	asynqClient *asynq.Client
	asynqMux    = asynq.NewServeMux()
	asynqSrv    *asynq.Server

	notifier *notify.Notifier
)

// StartWorkers starts the Asynq workers. Blocks until the server stops, so
// callers run it in a goroutine.
func StartWorkers(redisAddr string, concurrency int, n *notify.Notifier) {
	log.Printf("TASKQUEUE: Starting Asynq workers with Redis at %s", redisAddr)
	notifier = n
	asynqClient = asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
	asynqMux.HandleFunc(TaskNotifyAlert, processAlertNotification)
	asynqSrv = asynq.NewServer(asynq.RedisClientOpt{Addr: redisAddr}, asynq.Config{Concurrency: concurrency})
	log.Printf("TASKQUEUE: Workers started, waiting for tasks...")
	if err := asynqSrv.Run(asynqMux); err != nil {
		log.Fatalf("TASKQUEUE: Failed to start workers: %v", err)
	}
}

// StopWorkers stops workers
func StopWorkers() {
	log.Printf("TASKQUEUE: Stopping workers...")
	asynqSrv.Stop()
	asynqClient.Close()
	log.Printf("TASKQUEUE: Workers stopped")
}

// EnqueueAlertNotification queues delivery of an alert event. Delivery is
// retried by asynq; alert persistence already happened and is not affected
// by notification failures.
func EnqueueAlertNotification(event notify.AlertEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	task := asynq.NewTask(TaskNotifyAlert, payload)
	info, err := asynqClient.Enqueue(task, asynq.MaxRetry(3), asynq.Timeout(10*time.Second))
	if err != nil {
		log.Printf("TASKQUEUE: Failed to enqueue alert notification for %s: %v", event.AlertID, err)
		return err
	}
	log.Printf("TASKQUEUE: Enqueued notification task %s for alert %s", info.ID, event.AlertID)
	return nil
}

// processAlertNotification handles one notify:alert task
func processAlertNotification(ctx context.Context, t *asynq.Task) error {
	var event notify.AlertEvent
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		log.Printf("TASKQUEUE: Failed to unmarshal alert notification payload: %v", err)
		return err
	}
	if err := notifier.Publish(event); err != nil {
		log.Printf("TASKQUEUE: Alert notification for %s failed, asynq will retry: %v", event.AlertID, err)
		return err
	}
	return nil
}
