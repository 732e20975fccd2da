package main

import (
	"context"
	"time"

	"github.com/wikiquest/wikiquest/config"
	"github.com/wikiquest/wikiquest/models"
	"github.com/wikiquest/wikiquest/progression"
	"github.com/wikiquest/wikiquest/routes"
	"github.com/wikiquest/wikiquest/scheduler"
	"github.com/wikiquest/wikiquest/services"
	"github.com/wikiquest/wikiquest/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	db := config.InitDatabase(models.All()...)

	levels, err := cfg.LevelEngine()
	if err != nil {
		utils.Sugar.Fatalf("invalid level thresholds: %v", err)
	}
	streaks, err := cfg.StreakEngine()
	if err != nil {
		utils.Sugar.Fatalf("invalid streak settings: %v", err)
	}

	locker := services.NewMemoryLocker()
	if rc := utils.GetRedis(); rc != nil {
		locker = services.NewRedisLocker(rc, 5*time.Second)
	}

	progress := services.NewProgressionService(db, levels, streaks,
		services.WithLocker(locker),
		services.WithCache(utils.NewCache()),
		services.WithMaxAward(progression.XP(cfg.MaxXPAward)),
		services.WithLeaderboard(cfg.LeaderboardSize, time.Duration(cfg.LeaderboardTTLSeconds)*time.Second),
	)
	if err := progress.EnsureQuests(context.Background(), services.DefaultQuests); err != nil {
		utils.Sugar.Fatalf("failed to seed quests: %v", err)
	}

	jobs := scheduler.New(progress, time.Duration(cfg.LeaderboardRefreshMinutes)*time.Minute)
	if err := jobs.Start(); err != nil {
		utils.Sugar.Fatalf("failed to start scheduler: %v", err)
	}

	r := routes.SetupRouter(db, progress)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r, jobs.Stop); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
