package main

import (
	"context"
	"log"
	"time"

	"tolkBack/internal/services"
	"tolkBack/internal/timeutil"
)

const pushFlusherTimeout = 30 * time.Second

// startPushFlusher delivers night-delayed push notifications once their
// scheduled morning delivery time has passed.
func startPushFlusher(ctx context.Context, queue *services.RedisDelayQueue, notifications *services.NotificationService, errorLog *log.Logger) {
	if queue == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		runOnce := func() {
			runCtx, cancel := context.WithTimeout(ctx, pushFlusherTimeout)
			defer cancel()

			due, err := queue.PopDue(runCtx, timeutil.Now())
			if err != nil {
				errorLog.Printf("push flusher: failed to pop due notifications: %v", err)
				return
			}
			for _, n := range due {
				notifications.DeliverPush(runCtx, n)
			}
		}

		runOnce()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runOnce()
			}
		}
	}()
}
