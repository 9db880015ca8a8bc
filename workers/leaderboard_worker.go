// workers/leaderboard_worker.go
package workers

import (
	"context"
	"log"
	"time"
)

// LeaderboardRefresher is implemented by services.LeaderboardService.
type LeaderboardRefresher interface {
	RefreshChanged(ctx context.Context, since time.Time) (int, error)
}

// LeaderboardWorker periodically snapshots changed player stats into the
// leaderboards.
type LeaderboardWorker struct {
	boards   LeaderboardRefresher
	interval time.Duration
	now      func() time.Time

	lastSync time.Time
}

func NewLeaderboardWorker(boards LeaderboardRefresher, interval time.Duration) *LeaderboardWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &LeaderboardWorker{
		boards:   boards,
		interval: interval,
		now:      time.Now,
	}
}

func (w *LeaderboardWorker) Start(ctx context.Context) {
	log.Printf("🔁 Starting Leaderboard Worker (every %s)…", w.interval)
	go w.run(ctx)
}

func (w *LeaderboardWorker) run(ctx context.Context) {
	// Initial pass covers everything, so boards are populated after a restart
	w.syncOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.syncOnce(ctx)
		case <-ctx.Done():
			log.Println("⏹️ Leaderboard Worker stopped")
			return
		}
	}
}

// syncOnce refreshes players changed since the last successful pass. The
// window only advances on success, so a failed pass is retried in full.
func (w *LeaderboardWorker) syncOnce(ctx context.Context) {
	started := w.now().UTC()
	n, err := w.boards.RefreshChanged(ctx, w.lastSync)
	if err != nil {
		log.Printf("❌ [LEADERBOARD] Refresh since %s failed: %v", w.lastSync.Format(time.RFC3339), err)
		return
	}
	w.lastSync = started
	if n > 0 {
		log.Printf("✅ [LEADERBOARD] Refreshed %d player(s)", n)
	}
}
