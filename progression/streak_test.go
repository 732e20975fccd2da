package progression

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStreakEngine(t *testing.T) *StreakEngine {
	t.Helper()
	loc := time.FixedZone("UTC+3", 3*3600)
	e, err := NewStreakEngine(loc, DefaultCheckInXP, DefaultMilestones)
	require.NoError(t, err)
	return e
}

func at(e *StreakEngine, y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, e.Location())
}

func TestDaysBetween(t *testing.T) {
	e := newTestStreakEngine(t)
	now := at(e, 2024, time.March, 10, 0, 5)

	assert.Equal(t, 0, e.DaysBetween(now, at(e, 2024, time.March, 10, 0, 0)))
	// 10 minutes earlier but on the previous calendar day.
	assert.Equal(t, 1, e.DaysBetween(now, at(e, 2024, time.March, 9, 23, 55)))
	// Almost 48 hours apart, still only one calendar day.
	assert.Equal(t, 1, e.DaysBetween(at(e, 2024, time.March, 10, 23, 59), at(e, 2024, time.March, 9, 0, 1)))
	assert.Equal(t, 2, e.DaysBetween(now, at(e, 2024, time.March, 8, 23, 59)))
	assert.Equal(t, -1, e.DaysBetween(now, at(e, 2024, time.March, 11, 0, 0)))
	// Across a month and leap day.
	assert.Equal(t, 2, e.DaysBetween(at(e, 2024, time.March, 1, 12, 0), at(e, 2024, time.February, 28, 12, 0)))
}

func TestDaysBetweenUsesEngineLocation(t *testing.T) {
	e := newTestStreakEngine(t)
	// 22:30 UTC is 01:30 next day in UTC+3.
	then := time.Date(2024, time.March, 9, 22, 30, 0, 0, time.UTC)
	now := time.Date(2024, time.March, 10, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, e.DaysBetween(now, then))
}

func TestDaysBetweenAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	e, err := NewStreakEngine(loc, DefaultCheckInXP, DefaultMilestones)
	require.NoError(t, err)
	before := time.Date(2024, time.March, 9, 23, 30, 0, 0, loc)
	after := time.Date(2024, time.March, 10, 23, 30, 0, 0, loc)
	assert.Equal(t, 1, e.DaysBetween(after, before))
}

func TestIsActive(t *testing.T) {
	e := newTestStreakEngine(t)
	now := at(e, 2024, time.June, 15, 9, 0)
	today := at(e, 2024, time.June, 15, 1, 0)
	yesterday := at(e, 2024, time.June, 14, 23, 0)
	twoDaysAgo := at(e, 2024, time.June, 13, 12, 0)

	assert.False(t, e.IsActive(nil, now))
	assert.True(t, e.IsActive(&today, now))
	assert.True(t, e.IsActive(&yesterday, now))
	assert.False(t, e.IsActive(&twoDaysAgo, now))
}

func TestCheckedInToday(t *testing.T) {
	e := newTestStreakEngine(t)
	now := at(e, 2024, time.June, 15, 9, 0)
	today := at(e, 2024, time.June, 15, 0, 0)
	yesterday := at(e, 2024, time.June, 14, 23, 59)
	future := at(e, 2024, time.June, 17, 0, 0)

	assert.False(t, e.CheckedInToday(nil, now))
	assert.True(t, e.CheckedInToday(&today, now))
	assert.False(t, e.CheckedInToday(&yesterday, now))
	assert.True(t, e.CheckedInToday(&future, now))
}

func TestUpdate(t *testing.T) {
	e := newTestStreakEngine(t)
	now := at(e, 2024, time.June, 15, 9, 0)
	earlierToday := at(e, 2024, time.June, 15, 7, 0)
	yesterday := at(e, 2024, time.June, 14, 20, 0)
	threeDaysAgo := at(e, 2024, time.June, 12, 20, 0)
	tomorrow := at(e, 2024, time.June, 16, 8, 0)

	t.Run("first check-in", func(t *testing.T) {
		u := e.Update(StreakState{}, now)
		assert.Equal(t, StreakUpdate{Count: 1, LastCheckIn: now, Updated: true, DayDiff: -1}, u)
	})

	t.Run("same day is a no-op", func(t *testing.T) {
		state := StreakState{Count: 4, LastCheckIn: &earlierToday}
		for i := 0; i < 2; i++ {
			u := e.Update(state, now)
			assert.False(t, u.Updated)
			assert.Equal(t, 4, u.Count)
			assert.Equal(t, earlierToday, u.LastCheckIn)
		}
	})

	t.Run("consecutive day", func(t *testing.T) {
		u := e.Update(StreakState{Count: 5, LastCheckIn: &yesterday}, now)
		assert.Equal(t, StreakUpdate{Count: 6, LastCheckIn: now, Updated: true, DayDiff: 1}, u)
	})

	t.Run("broken streak resets", func(t *testing.T) {
		u := e.Update(StreakState{Count: 10, LastCheckIn: &threeDaysAgo}, now)
		assert.Equal(t, StreakUpdate{Count: 1, LastCheckIn: now, Updated: true, DayDiff: 3}, u)
	})

	t.Run("future check-in treated as today", func(t *testing.T) {
		u := e.Update(StreakState{Count: 3, LastCheckIn: &tomorrow}, now)
		assert.False(t, u.Updated)
		assert.Equal(t, 3, u.Count)
		assert.Equal(t, tomorrow, u.LastCheckIn)
	})
}

func TestBonusXP(t *testing.T) {
	e := newTestStreakEngine(t)
	tests := []struct {
		streak int
		want   XP
	}{
		{1, 5},
		{6, 5},
		{7, 30},
		{8, 5},
		{14, 30},
		{30, 105},
		{60, 105},
		{210, 105},
		{365, 505},
		{420, 105},
		{730, 505},
		{0, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, e.BonusXP(tt.streak), "streak=%d", tt.streak)
	}
}

func TestMilestonesSortedLongestFirst(t *testing.T) {
	e, err := NewStreakEngine(time.UTC, 5, []Milestone{
		{Period: 7, Bonus: 25},
		{Period: 365, Bonus: 500},
		{Period: 30, Bonus: 100},
	})
	require.NoError(t, err)
	ms := e.Milestones()
	require.Len(t, ms, 3)
	assert.Equal(t, []int{365, 30, 7}, []int{ms[0].Period, ms[1].Period, ms[2].Period})
	assert.Equal(t, XP(505), e.BonusXP(365))
	assert.Equal(t, XP(105), e.BonusXP(210))
}

func TestNewStreakEngineRejectsBadMilestones(t *testing.T) {
	_, err := NewStreakEngine(time.UTC, 5, []Milestone{{Period: 0, Bonus: 1}})
	assert.ErrorIs(t, err, ErrInvalidMilestone)

	_, err = NewStreakEngine(time.UTC, 5, []Milestone{{Period: 7, Bonus: -1}})
	assert.ErrorIs(t, err, ErrInvalidMilestone)

	_, err = NewStreakEngine(time.UTC, 5, []Milestone{{Period: 7, Bonus: 1}, {Period: 7, Bonus: 2}})
	assert.ErrorIs(t, err, ErrInvalidMilestone)
}

func TestCheckInScenarios(t *testing.T) {
	levels := DefaultLevelEngine()
	streaks := newTestStreakEngine(t)
	now := at(streaks, 2024, time.June, 15, 9, 0)

	t.Run("never checked in", func(t *testing.T) {
		u := streaks.Update(StreakState{}, now)
		require.True(t, u.Updated)
		assert.Equal(t, 1, u.Count)
		assert.Equal(t, XP(5), streaks.BonusXP(u.Count))
		assert.True(t, streaks.IsActive(&u.LastCheckIn, now))
	})

	t.Run("day seven of a streak", func(t *testing.T) {
		yesterday := at(streaks, 2024, time.June, 14, 9, 0)
		u := streaks.Update(StreakState{Count: 6, LastCheckIn: &yesterday}, now)
		require.True(t, u.Updated)
		assert.Equal(t, 7, u.Count)
		bonus := streaks.BonusXP(u.Count)
		assert.Equal(t, XP(30), bonus)

		award, err := levels.Award(290, bonus)
		require.NoError(t, err)
		assert.Equal(t, XP(320), award.NewTotal)
		assert.True(t, award.LeveledUp)
	})
}
