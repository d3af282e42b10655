package main

import (
	"context"
	"log"
	"time"

	"tolkBack/internal/repositories"
	"tolkBack/internal/services"
	"tolkBack/internal/timeutil"
)

const expiryCleanerTimeout = 1 * time.Minute

// startExpiryCleaner sweeps pending jobs past their will_expire_at into
// timedout and drops expired sessions.
func startExpiryCleaner(ctx context.Context, repo *repositories.JobRepository, users *services.UserService, infoLog, errorLog *log.Logger) {
	if repo == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		runOnce := func() {
			runCtx, cancel := context.WithTimeout(ctx, expiryCleanerTimeout)
			expired, err := repo.ExpireOverdue(runCtx, timeutil.Now())
			if err != nil {
				errorLog.Printf("expiry cleaner: failed to expire overdue jobs: %v", err)
			} else if expired > 0 {
				infoLog.Printf("expiry cleaner: moved %d pending jobs to timedout", expired)
			}
			if err := users.CleanExpiredSessions(runCtx); err != nil {
				errorLog.Printf("expiry cleaner: failed to delete expired sessions: %v", err)
			}
			cancel()
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
