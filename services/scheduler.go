// services/scheduler.go
package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartSessionScheduler runs the timer tick (every second) and the idle
// sweep (every sweepEvery) for the registry. The caller shuts the returned
// scheduler down.
func (r *SessionRegistry) StartSessionScheduler(ctx context.Context, sweepEvery time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	// Every second: count down timed sessions
	_, err = sched.NewJob(
		gocron.DurationJob(1*time.Second),
		gocron.NewTask(func() {
			if n := r.TickAll(ctx); n > 0 {
				log.Printf("⏰ [Scheduler] %d session(s) ran out of time", n)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("failed to schedule tick job: %w", err)
	}

	// Every sweepEvery: abandon idle sessions, evict finished ones
	_, err = sched.NewJob(
		gocron.DurationJob(sweepEvery),
		gocron.NewTask(func() {
			abandoned, evicted := r.Sweep(ctx)
			if abandoned > 0 || evicted > 0 {
				log.Printf("🧹 [Scheduler] Sweep: abandoned=%d evicted=%d live=%d", abandoned, evicted, r.Len())
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("failed to schedule sweep job: %w", err)
	}

	sched.Start()
	return sched, nil
}
