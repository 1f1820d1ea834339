package services

import (
	"context"
	"log"
	"time"
)

// Sweeper periodically expires stale generation requests so a lost worker or
// dropped message cannot leave a request pending forever.
type Sweeper struct {
	tracker  *Tracker
	interval time.Duration
}

func NewSweeper(tracker *Tracker, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{tracker: tracker, interval: interval}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("expiration sweeper running every %s", s.interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("expiration sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.tracker.ExpireStale(ctx); err != nil {
				log.Printf("expiration sweep failed: %v", err)
			}
		}
	}
}
