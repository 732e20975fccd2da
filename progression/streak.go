package progression

import (
	"fmt"
	"sort"
	"time"
)

// DefaultCheckInXP is awarded for every successful check-in.
const DefaultCheckInXP XP = 5

// Milestone grants Bonus XP when a streak is an exact multiple of Period days.
type Milestone struct {
	Period int `json:"period"`
	Bonus  XP  `json:"bonus"`
}

// DefaultMilestones are the yearly, monthly and weekly streak bonuses.
var DefaultMilestones = []Milestone{
	{Period: 365, Bonus: 500},
	{Period: 30, Bonus: 100},
	{Period: 7, Bonus: 25},
}

// StreakState is the persisted streak of one user. LastCheckIn is nil until
// the first check-in.
type StreakState struct {
	Count       int
	LastCheckIn *time.Time
}

// StreakUpdate is the result of applying a check-in to a StreakState.
type StreakUpdate struct {
	Count       int
	LastCheckIn time.Time
	Updated     bool
	// DayDiff is the number of calendar days since the previous check-in,
	// or -1 when there was none.
	DayDiff int
}

// StreakEngine computes streak changes on calendar-day boundaries in a fixed
// location.
type StreakEngine struct {
	loc        *time.Location
	baseXP     XP
	milestones []Milestone
}

// NewStreakEngine builds an engine. Milestones are evaluated longest period
// first regardless of input order and only the first match applies.
func NewStreakEngine(loc *time.Location, baseXP XP, milestones []Milestone) (*StreakEngine, error) {
	if loc == nil {
		loc = time.Local
	}
	ms := make([]Milestone, len(milestones))
	copy(ms, milestones)
	seen := make(map[int]struct{}, len(ms))
	for _, m := range ms {
		if m.Period <= 0 {
			return nil, fmt.Errorf("%w: period %d", ErrInvalidMilestone, m.Period)
		}
		if m.Bonus < 0 {
			return nil, fmt.Errorf("%w: negative bonus for period %d", ErrInvalidMilestone, m.Period)
		}
		if _, dup := seen[m.Period]; dup {
			return nil, fmt.Errorf("%w: duplicate period %d", ErrInvalidMilestone, m.Period)
		}
		seen[m.Period] = struct{}{}
	}
	sort.Slice(ms, func(i, j int) bool { return ms[i].Period > ms[j].Period })
	return &StreakEngine{loc: loc, baseXP: baseXP, milestones: ms}, nil
}

// DefaultStreakEngine uses the local timezone and default rewards.
func DefaultStreakEngine() *StreakEngine {
	e, _ := NewStreakEngine(time.Local, DefaultCheckInXP, DefaultMilestones)
	return e
}

func (e *StreakEngine) Location() *time.Location { return e.loc }

func (e *StreakEngine) BaseXP() XP { return e.baseXP }

// Milestones returns the milestones in evaluation order.
func (e *StreakEngine) Milestones() []Milestone {
	out := make([]Milestone, len(e.milestones))
	copy(out, e.milestones)
	return out
}

// DaysBetween returns the number of calendar days from then to now in the
// engine location. It is negative when then falls on a later date than now.
func (e *StreakEngine) DaysBetween(now, then time.Time) int {
	a := e.dateOf(now)
	b := e.dateOf(then)
	return int(a.Sub(b).Hours() / 24)
}

// dateOf truncates t to its calendar date, expressed in UTC so that day
// arithmetic is not affected by DST transitions.
func (e *StreakEngine) dateOf(t time.Time) time.Time {
	y, m, d := t.In(e.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsActive reports whether a streak ending at last is still alive at now,
// meaning the last check-in was today or yesterday.
func (e *StreakEngine) IsActive(last *time.Time, now time.Time) bool {
	if last == nil {
		return false
	}
	return e.DaysBetween(now, *last) <= 1
}

// CheckedInToday reports whether last falls on the same calendar day as now.
// Future-dated check-ins count as today.
func (e *StreakEngine) CheckedInToday(last *time.Time, now time.Time) bool {
	if last == nil {
		return false
	}
	return e.DaysBetween(now, *last) <= 0
}

// Update applies a check-in at now to state.
func (e *StreakEngine) Update(state StreakState, now time.Time) StreakUpdate {
	if state.LastCheckIn == nil {
		return StreakUpdate{Count: 1, LastCheckIn: now, Updated: true, DayDiff: -1}
	}

	diff := e.DaysBetween(now, *state.LastCheckIn)
	switch {
	case diff <= 0:
		// Same day, or a last check-in stamped in the future.
		return StreakUpdate{Count: state.Count, LastCheckIn: *state.LastCheckIn, Updated: false, DayDiff: diff}
	case diff == 1:
		return StreakUpdate{Count: state.Count + 1, LastCheckIn: now, Updated: true, DayDiff: diff}
	default:
		return StreakUpdate{Count: 1, LastCheckIn: now, Updated: true, DayDiff: diff}
	}
}

// BonusXP returns the XP for a successful check-in that produced streak.
func (e *StreakEngine) BonusXP(streak int) XP {
	return e.baseXP + e.MilestoneBonus(streak)
}

// MilestoneBonus returns the bonus of the first milestone streak is a multiple of.
func (e *StreakEngine) MilestoneBonus(streak int) XP {
	if streak <= 0 {
		return 0
	}
	for _, m := range e.milestones {
		if streak%m.Period == 0 {
			return m.Bonus
		}
	}
	return 0
}
