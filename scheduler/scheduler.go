package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/wikiquest/wikiquest/utils"
)

// LeaderboardRefresher recomputes the cached leaderboard.
type LeaderboardRefresher interface {
	RefreshLeaderboard(ctx context.Context) error
}

// Scheduler runs periodic background jobs.
type Scheduler struct {
	scheduler *gocron.Scheduler
	refresher LeaderboardRefresher
	interval  time.Duration
}

// New creates a scheduler that warms the leaderboard every interval.
func New(refresher LeaderboardRefresher, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		refresher: refresher,
		interval:  interval,
	}
}

// Start schedules the jobs and runs them in the background. The first run
// happens immediately.
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Every(s.interval).SingletonMode().Do(s.refreshLeaderboard); err != nil {
		return err
	}
	s.scheduler.StartAsync()
	utils.Sugar.Infof("scheduler started, leaderboard refresh every %s", s.interval)
	return nil
}

// Stop terminates all scheduled jobs.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) refreshLeaderboard() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	started := time.Now()
	if err := s.refresher.RefreshLeaderboard(ctx); err != nil {
		utils.Logger.Warn("leaderboard refresh failed", zap.Error(err))
		return
	}
	utils.Logger.Debug("leaderboard refreshed", zap.Duration("took", time.Since(started)))
}
