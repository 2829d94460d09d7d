package crawler

import (
	"context"
	"time"
)

type timerPacer struct{}

// NewTimerPacer returns a Pacer that sleeps for the delay or until ctx ends.
func NewTimerPacer() Pacer {
	return timerPacer{}
}

func (timerPacer) Pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
