package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wikiquest/wikiquest/models"
	"github.com/wikiquest/wikiquest/progression"
	"github.com/wikiquest/wikiquest/utils"
)

// ProgressionService loads user progression state, runs the level and streak
// engines and persists the outcome.
type ProgressionService struct {
	db      *gorm.DB
	levels  *progression.LevelEngine
	streaks *progression.StreakEngine
	locker  UserLocker
	cache   utils.Cache
	now     func() time.Time

	maxAward        progression.XP
	leaderboardSize int
	leaderboardTTL  time.Duration
}

// Option configures a ProgressionService.
type Option func(*ProgressionService)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *ProgressionService) { s.now = now }
}

func WithLocker(l UserLocker) Option {
	return func(s *ProgressionService) { s.locker = l }
}

func WithCache(c utils.Cache) Option {
	return func(s *ProgressionService) { s.cache = c }
}

// WithMaxAward caps a single XP award; zero disables the cap.
func WithMaxAward(max progression.XP) Option {
	return func(s *ProgressionService) { s.maxAward = max }
}

func WithLeaderboard(size int, ttl time.Duration) Option {
	return func(s *ProgressionService) {
		s.leaderboardSize = size
		s.leaderboardTTL = ttl
	}
}

func NewProgressionService(db *gorm.DB, levels *progression.LevelEngine, streaks *progression.StreakEngine, opts ...Option) *ProgressionService {
	s := &ProgressionService{
		db:              db,
		levels:          levels,
		streaks:         streaks,
		locker:          NewMemoryLocker(),
		cache:           utils.NewMemoryCache(),
		now:             time.Now,
		leaderboardSize: 20,
		leaderboardTTL:  10 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ProgressionService) Levels() *progression.LevelEngine { return s.levels }

func (s *ProgressionService) Streaks() *progression.StreakEngine { return s.streaks }

// Now returns the service clock.
func (s *ProgressionService) Now() time.Time { return s.now() }

// StreakStatus describes a user's streak as of now.
type StreakStatus struct {
	Streak         int        `json:"streak"`
	LongestStreak  int        `json:"longestStreak"`
	LastCheckIn    *time.Time `json:"lastCheckIn"`
	StreakActive   bool       `json:"streakActive"`
	CheckedInToday bool       `json:"checkedInToday"`
}

// Stats combines level progress and streak status.
type Stats struct {
	progression.LevelInfo
	StreakStatus
}

// StreakOutcome reports the streak side of an XP award that also counted as
// a check-in.
type StreakOutcome struct {
	Streak           int       `json:"streak"`
	LastStreakUpdate time.Time `json:"lastStreakUpdate"`
	StreakUpdated    bool      `json:"streakUpdated"`
	StreakBonusXP    int64     `json:"streakBonusXP"`
}

// AwardResult is returned by AwardXP and CompleteQuest.
type AwardResult struct {
	XPAwarded int64 `json:"xpAwarded"`
	TotalXP   int64 `json:"totalXP"`
	OldLevel  int   `json:"oldLevel"`
	NewLevel  int   `json:"newLevel"`
	LeveledUp bool  `json:"leveledUp"`
	*StreakOutcome
}

// CheckInResult is returned by CheckIn. A repeated same-day check-in is not
// an error: AlreadyCheckedIn is set and nothing changes.
type CheckInResult struct {
	Streak           int       `json:"streak"`
	LongestStreak    int       `json:"longestStreak"`
	LastCheckIn      time.Time `json:"lastCheckIn"`
	StreakActive     bool      `json:"streakActive"`
	XPAwarded        int64     `json:"xpAwarded"`
	MilestoneBonusXP int64     `json:"milestoneBonusXP"`
	TotalXP          int64     `json:"totalXP"`
	CurrentLevel     int       `json:"currentLevel"`
	LeveledUp        bool      `json:"leveledUp"`
	AlreadyCheckedIn bool      `json:"alreadyCheckedIn"`
}

// LevelInfo returns the live level view for a user.
func (s *ProgressionService) LevelInfo(ctx context.Context, userID uint) (progression.LevelInfo, error) {
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return progression.LevelInfo{}, err
	}
	return s.levels.Info(xpOf(u)), nil
}

// Stats returns level progress together with streak status.
func (s *ProgressionService) Stats(ctx context.Context, userID uint) (Stats, error) {
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		LevelInfo:    s.levels.Info(xpOf(u)),
		StreakStatus: s.streakStatus(u, s.now()),
	}, nil
}

// StreakStatus returns the streak view for a user.
func (s *ProgressionService) StreakStatus(ctx context.Context, userID uint) (StreakStatus, error) {
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return StreakStatus{}, err
	}
	return s.streakStatus(u, s.now()), nil
}

// AwardXP adds delta XP to a user. With updateStreak the award also counts
// as the day's check-in: the streak advances and its bonus is added, unless
// the user already checked in today, in which case only delta is awarded.
// A zero award without a streak update writes nothing.
func (s *ProgressionService) AwardXP(ctx context.Context, userID uint, delta progression.XP, reason string, updateStreak bool) (*AwardResult, error) {
	if delta < 0 {
		return nil, progression.ErrNegativeXP
	}
	if s.maxAward > 0 && delta > s.maxAward {
		return nil, fmt.Errorf("%w: %d > %d", ErrAwardTooLarge, delta, s.maxAward)
	}
	if delta == 0 && !updateStreak {
		u, err := s.loadUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		level := s.levels.LevelForXP(xpOf(u))
		return &AwardResult{TotalXP: u.TotalXP, OldLevel: level, NewLevel: level}, nil
	}

	var result AwardResult
	err := s.mutate(ctx, userID, func(tx *gorm.DB, u *models.User) error {
		now := s.now()
		total := delta

		if updateStreak {
			upd := s.streaks.Update(streakStateOf(u), now)
			outcome := &StreakOutcome{Streak: upd.Count, LastStreakUpdate: upd.LastCheckIn, StreakUpdated: upd.Updated}
			if upd.Updated {
				bonus, err := s.recordCheckIn(tx, u, upd)
				if err != nil {
					return err
				}
				if total, err = total.Add(bonus); err != nil {
					return err
				}
				outcome.StreakBonusXP = int64(bonus)
			}
			result.StreakOutcome = outcome
		}

		award, err := s.applyAward(tx, u, total, models.XPSourceAward, reason)
		if err != nil {
			return err
		}
		result.XPAwarded = int64(award.Delta)
		result.TotalXP = int64(award.NewTotal)
		result.OldLevel = award.OldLevel
		result.NewLevel = award.NewLevel
		result.LeveledUp = award.LeveledUp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// CheckIn records the daily check-in for a user, advancing or resetting the
// streak and awarding the check-in bonus. At most one check-in per calendar
// day succeeds, including under concurrent requests.
func (s *ProgressionService) CheckIn(ctx context.Context, userID uint) (*CheckInResult, error) {
	var result CheckInResult
	err := s.mutate(ctx, userID, func(tx *gorm.DB, u *models.User) error {
		now := s.now()
		if s.streaks.CheckedInToday(u.LastCheckIn, now) {
			result = CheckInResult{
				Streak:           u.StreakCount,
				LongestStreak:    u.LongestStreak,
				LastCheckIn:      *u.LastCheckIn,
				StreakActive:     true,
				TotalXP:          u.TotalXP,
				CurrentLevel:     s.levels.LevelForXP(xpOf(u)),
				AlreadyCheckedIn: true,
			}
			return errAlreadyCheckedIn
		}

		upd := s.streaks.Update(streakStateOf(u), now)
		bonus, err := s.recordCheckIn(tx, u, upd)
		if err != nil {
			return err
		}
		award, err := s.applyAward(tx, u, bonus, models.XPSourceCheckIn, fmt.Sprintf("daily check-in, streak %d", upd.Count))
		if err != nil {
			return err
		}

		result = CheckInResult{
			Streak:           u.StreakCount,
			LongestStreak:    u.LongestStreak,
			LastCheckIn:      upd.LastCheckIn,
			StreakActive:     true,
			XPAwarded:        int64(bonus),
			MilestoneBonusXP: int64(s.streaks.MilestoneBonus(upd.Count)),
			TotalXP:          int64(award.NewTotal),
			CurrentLevel:     award.NewLevel,
			LeveledUp:        award.LeveledUp,
		}
		return nil
	})
	if errors.Is(err, errAlreadyCheckedIn) {
		return &result, nil
	}
	if err != nil {
		return nil, err
	}

	utils.Logger.Info("check-in recorded",
		zap.Uint("user_id", userID),
		zap.Int("streak", result.Streak),
		zap.Int64("xp_awarded", result.XPAwarded),
	)
	return &result, nil
}

// recordCheckIn applies a successful streak update to u, stores the check-in
// row and returns the bonus XP earned. The caller awards the XP.
func (s *ProgressionService) recordCheckIn(tx *gorm.DB, u *models.User, upd progression.StreakUpdate) (progression.XP, error) {
	last := upd.LastCheckIn
	u.StreakCount = upd.Count
	u.LastCheckIn = &last
	if upd.Count > u.LongestStreak {
		u.LongestStreak = upd.Count
	}

	bonus := s.streaks.BonusXP(upd.Count)
	row := models.CheckIn{
		UserID:      u.ID,
		CheckedInAt: last.UTC(),
		Streak:      upd.Count,
		XPAwarded:   int64(bonus),
	}
	if err := tx.Create(&row).Error; err != nil {
		return 0, err
	}
	return bonus, nil
}

// applyAward adds delta to u's total, moves the level marker on level-up and
// writes the audit event.
func (s *ProgressionService) applyAward(tx *gorm.DB, u *models.User, delta progression.XP, source, reason string) (progression.Award, error) {
	award, err := s.levels.Award(xpOf(u), delta)
	if err != nil {
		return progression.Award{}, err
	}
	u.TotalXP = int64(award.NewTotal)
	if award.LeveledUp {
		u.Level = award.NewLevel
		utils.Logger.Info("level up",
			zap.Uint("user_id", u.ID),
			zap.Int("old_level", award.OldLevel),
			zap.Int("new_level", award.NewLevel),
			zap.Int64("total_xp", u.TotalXP),
		)
	}

	event := models.XPEvent{
		UserID:     u.ID,
		Amount:     int64(delta),
		Source:     source,
		Reason:     reason,
		TotalAfter: u.TotalXP,
		LevelAfter: award.NewLevel,
		CreatedAt:  s.now().UTC(),
	}
	if err := tx.Create(&event).Error; err != nil {
		return progression.Award{}, err
	}
	return award, nil
}

// mutate serialises a progression write for one user: it takes the user
// lock, re-reads the row FOR UPDATE inside a transaction, lets fn change it
// and writes the progression columns back only if progress_version is
// unchanged. A committed write drops the cached leaderboard.
func (s *ProgressionService) mutate(ctx context.Context, userID uint, fn func(tx *gorm.DB, u *models.User) error) error {
	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return err
	}
	defer unlock()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&u, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		version := u.ProgressVersion
		if err := fn(tx, &u); err != nil {
			return err
		}

		res := tx.Model(&models.User{}).
			Where("id = ? AND progress_version = ?", u.ID, version).
			Updates(map[string]interface{}{
				"total_xp":         u.TotalXP,
				"level":            u.Level,
				"streak_count":     u.StreakCount,
				"longest_streak":   u.LongestStreak,
				"last_check_in":    u.LastCheckIn,
				"progress_version": version + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			utils.Logger.Warn("conditional progress update lost", zap.Uint("user_id", u.ID), zap.Int64("version", version))
			return ErrConcurrentUpdate
		}
		return nil
	})
	if err == nil {
		s.cache.Delete(ctx, leaderboardKey)
	}
	return err
}

func (s *ProgressionService) loadUser(ctx context.Context, userID uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *ProgressionService) streakStatus(u *models.User, now time.Time) StreakStatus {
	return StreakStatus{
		Streak:         u.StreakCount,
		LongestStreak:  u.LongestStreak,
		LastCheckIn:    u.LastCheckIn,
		StreakActive:   s.streaks.IsActive(u.LastCheckIn, now),
		CheckedInToday: s.streaks.CheckedInToday(u.LastCheckIn, now),
	}
}

func streakStateOf(u *models.User) progression.StreakState {
	return progression.StreakState{Count: u.StreakCount, LastCheckIn: u.LastCheckIn}
}

// xpOf reads the stored total; a corrupt negative value counts as zero.
func xpOf(u *models.User) progression.XP {
	if u.TotalXP < 0 {
		return 0
	}
	return progression.XP(u.TotalXP)
}
