package telemetryqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"plantcare/internal/metrics"
	"plantcare/internal/models"
)

const (
	streamPrefix = "stream:device:"
	cursorPrefix = "last_read:"

	// streamMaxLen caps per-device backlog; old entries are trimmed once the
	// worker falls this far behind.
	streamMaxLen = 1024

	readBlock = 2 * time.Second
)

// Handler processes one telemetry batch. Returning an error leaves the
// stream cursor in place so the batch is redelivered.
type Handler func(ctx context.Context, batch *models.TelemetryBatch) error

// Queue carries telemetry batches from the ingestion path to the automation
// worker over per-device Redis streams. One stream per device keeps batches
// for a device strictly ordered; the cursor only advances after the handler
// succeeds, so delivery is at-least-once.
type Queue struct {
	client *redis.Client
}

// NewQueue creates a queue over the given Redis client
func NewQueue(client *redis.Client) *Queue {
	return &Queue{client: client}
}

// Publish appends a batch to its device's stream
func (q *Queue) Publish(ctx context.Context, batch *models.TelemetryBatch) error {
	payload, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("marshal telemetry batch: %w", err)
	}

	streamKey := streamPrefix + batch.DeviceID.String()
	err = q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"batch":     string(payload),
			"timestamp": time.Now().UnixNano(),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", streamKey, err)
	}
	metrics.Default.BatchesPublished.Add(1)
	return nil
}

// Run consumes all device streams until ctx is cancelled. Messages within a
// stream are handled oldest first; a handler error stops that stream for the
// current pass and the same message comes back on the next read.
func (q *Queue) Run(ctx context.Context, handler Handler) {
	log.Println("TELEMETRYQ: starting stream consumer")
	for {
		if ctx.Err() != nil {
			log.Println("TELEMETRYQ: consumer stopped")
			return
		}
		if err := q.consumeOnce(ctx, handler); err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Printf("TELEMETRYQ: read error: %v", err)
			time.Sleep(readBlock)
		}
	}
}

func (q *Queue) consumeOnce(ctx context.Context, handler Handler) error {
	keys, err := q.client.Keys(ctx, streamPrefix+"*").Result()
	if err != nil {
		return fmt.Errorf("list streams: %w", err)
	}
	if len(keys) == 0 {
		time.Sleep(readBlock)
		return nil
	}

	ids := make([]string, len(keys))
	for i, key := range keys {
		lastID, err := q.client.Get(ctx, cursorPrefix+key).Result()
		if err != nil {
			lastID = "0-0"
		}
		ids[i] = lastID
	}

	streams, err := q.client.XRead(ctx, &redis.XReadArgs{
		Streams: append(keys, ids...),
		Block:   readBlock,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return err
	}

	for _, stream := range streams {
		q.drainStream(ctx, stream, handler)
	}
	return nil
}

// drainStream handles a stream's messages in order, advancing the cursor one
// message at a time. Processing stops at the first failure.
func (q *Queue) drainStream(ctx context.Context, stream redis.XStream, handler Handler) {
	for _, msg := range stream.Messages {
		raw, ok := msg.Values["batch"].(string)
		if !ok {
			log.Printf("TELEMETRYQ: skipping malformed entry %s in %s", msg.ID, stream.Stream)
			q.advance(ctx, stream.Stream, msg.ID)
			continue
		}

		var batch models.TelemetryBatch
		if err := json.Unmarshal([]byte(raw), &batch); err != nil {
			log.Printf("TELEMETRYQ: skipping undecodable entry %s in %s: %v", msg.ID, stream.Stream, err)
			q.advance(ctx, stream.Stream, msg.ID)
			continue
		}

		if err := handler(ctx, &batch); err != nil {
			log.Printf("TELEMETRYQ: handler failed for batch %s (entry %s), will retry: %v", batch.BatchID, msg.ID, err)
			return
		}
		q.advance(ctx, stream.Stream, msg.ID)
	}
}

func (q *Queue) advance(ctx context.Context, streamKey, msgID string) {
	if err := q.client.Set(ctx, cursorPrefix+streamKey, msgID, 0).Err(); err != nil {
		log.Printf("TELEMETRYQ: failed to advance cursor for %s: %v", streamKey, err)
	}
}
