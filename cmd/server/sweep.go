package main

import (
	"context"
	"log"
	"time"

	"github.com/Aditya-Srivastava10/profstudenthub/internal/services"
)

// runSweepLoop drives the daily overdue sweep. It checks the clock once a
// minute and fires at the configured hour; the sweep itself is idempotent so
// an extra run after a restart is harmless.
func runSweepLoop(ctx context.Context, svc *services.DueService, hour int) {
	log.Printf("Sweep scheduler started (daily at %02d:00)", hour)
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	var lastRun time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if now.Hour() != hour {
				continue
			}
			today := now.Truncate(24 * time.Hour)
			if !lastRun.Before(today) {
				continue // already ran today
			}
			n, err := svc.Sweep(ctx, now)
			if err != nil {
				log.Printf("overdue sweep failed: %v", err)
				continue
			}
			lastRun = today
			if n > 0 {
				log.Printf("overdue sweep: %d dues transitioned", n)
			}
		}
	}
}
