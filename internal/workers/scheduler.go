// Package workers holds the process's background loops.
package workers

import (
	"context"
	"log"
	"time"

	"github.com/pinggolf/cancercenter-offices/internal/refresh"
)

// RefreshScheduler ticks run_scheduled_refresh on a fixed interval, per §4.J.
// It is the only background work in the process.
type RefreshScheduler struct {
	engine     *refresh.Engine
	interval   time.Duration
	batchSize  int
	throttle   time.Duration
	stop       chan struct{}
}

// NewRefreshScheduler builds a scheduler. interval is how often
// run_scheduled_refresh fires (e.g. once an hour).
func NewRefreshScheduler(engine *refresh.Engine, interval time.Duration, batchSize int, throttle time.Duration) *RefreshScheduler {
	return &RefreshScheduler{
		engine:    engine,
		interval:  interval,
		batchSize: batchSize,
		throttle:  throttle,
		stop:      make(chan struct{}),
	}
}

// Start runs the ticker loop in a goroutine until Stop is called.
func (s *RefreshScheduler) Start() {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		log.Printf("refresh scheduler: started, interval=%s batchSize=%d", s.interval, s.batchSize)
		for {
			select {
			case <-ticker.C:
				s.runOnce()
			case <-s.stop:
				log.Println("refresh scheduler: stopped")
				return
			}
		}
	}()
}

func (s *RefreshScheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Minute)
	defer cancel()

	result, err := s.engine.RunScheduledRefresh(ctx, s.batchSize, s.throttle)
	if err != nil {
		log.Printf("refresh scheduler: batch failed: %v", err)
		return
	}
	log.Printf("refresh scheduler: processed=%d failed=%d cursor=%d->%d",
		result.CentersProcessed, result.CentersFailed, result.CursorBefore, result.CursorAfter)
}

// Stop halts the ticker loop.
func (s *RefreshScheduler) Stop() {
	close(s.stop)
}
