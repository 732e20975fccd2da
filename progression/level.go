package progression

import "fmt"

// DefaultThresholds is the XP required to reach levels 1 through 10.
var DefaultThresholds = []int64{0, 300, 800, 1500, 2500, 4000, 6000, 9000, 13000, 18000}

// ThresholdTable holds the minimum XP for each level; index 0 is level 1.
// It is immutable once built.
type ThresholdTable struct {
	values []XP
}

// NewThresholdTable validates and copies the given thresholds. The first entry
// must be 0 and every following entry must be strictly greater than the last.
func NewThresholdTable(values []int64) (ThresholdTable, error) {
	if len(values) == 0 {
		return ThresholdTable{}, fmt.Errorf("%w: empty", ErrInvalidTable)
	}
	if values[0] != 0 {
		return ThresholdTable{}, fmt.Errorf("%w: level 1 threshold must be 0, got %d", ErrInvalidTable, values[0])
	}
	out := make([]XP, len(values))
	for i, v := range values {
		if i > 0 && v <= values[i-1] {
			return ThresholdTable{}, fmt.Errorf("%w: threshold %d (%d) not above threshold %d (%d)", ErrInvalidTable, i+1, v, i, values[i-1])
		}
		out[i] = XP(v)
	}
	return ThresholdTable{values: out}, nil
}

// MustThresholdTable is NewThresholdTable for static tables known to be valid.
func MustThresholdTable(values []int64) ThresholdTable {
	t, err := NewThresholdTable(values)
	if err != nil {
		panic(err)
	}
	return t
}

// Len is the number of levels, which is also the max level.
func (t ThresholdTable) Len() int { return len(t.values) }

// At returns the threshold for the 1-based level.
func (t ThresholdTable) At(level int) XP { return t.values[level-1] }

// Values returns a copy of the thresholds.
func (t ThresholdTable) Values() []int64 {
	out := make([]int64, len(t.values))
	for i, v := range t.values {
		out[i] = int64(v)
	}
	return out
}

// LevelInfo is the derived progress view for an XP total. It is never stored.
type LevelInfo struct {
	CurrentLevel    int   `json:"currentLevel"`
	NextLevel       int   `json:"nextLevel"`
	TotalXP         int64 `json:"totalXP"`
	CurrentLevelXP  int64 `json:"currentLevelXP"`
	XPForNextLevel  int64 `json:"xpForNextLevel"`
	XPProgress      int64 `json:"xpProgress"`
	XPRequired      int64 `json:"xpRequired"`
	XPNeeded        int64 `json:"xpNeeded"`
	ProgressPercent int   `json:"progressPercent"`
	MaxLevel        bool  `json:"maxLevel"`
}

// Award is the outcome of adding XP to a total.
type Award struct {
	OldTotal  XP   `json:"oldTotal"`
	NewTotal  XP   `json:"newTotal"`
	Delta     XP   `json:"xpAwarded"`
	OldLevel  int  `json:"oldLevel"`
	NewLevel  int  `json:"newLevel"`
	LeveledUp bool `json:"leveledUp"`
}

// LevelEngine maps XP totals to levels using a fixed threshold table.
type LevelEngine struct {
	table ThresholdTable
}

func NewLevelEngine(table ThresholdTable) *LevelEngine {
	return &LevelEngine{table: table}
}

// DefaultLevelEngine uses DefaultThresholds.
func DefaultLevelEngine() *LevelEngine {
	return NewLevelEngine(MustThresholdTable(DefaultThresholds))
}

func (e *LevelEngine) Table() ThresholdTable { return e.table }

func (e *LevelEngine) MaxLevel() int { return e.table.Len() }

// LevelForXP returns the highest level whose threshold xp has reached.
// Thresholds are inclusive and level 1 is the floor.
func (e *LevelEngine) LevelForXP(xp XP) int {
	level := 1
	for i := e.table.Len(); i >= 2; i-- {
		if xp >= e.table.At(i) {
			level = i
			break
		}
	}
	return level
}

// Info computes the progress view for xp.
func (e *LevelEngine) Info(xp XP) LevelInfo {
	maxLevel := e.MaxLevel()
	current := e.LevelForXP(xp)
	next := current + 1
	if next > maxLevel {
		next = maxLevel
	}

	currentXP := e.table.At(current)
	nextXP := e.table.At(next)
	progress := xp - currentXP
	required := nextXP - currentXP

	percent := 100
	if current < maxLevel && required > 0 {
		percent = int(int64(progress) * 100 / int64(required))
	}
	percent = clamp(percent, 0, 100)

	needed := nextXP - xp
	if needed < 0 {
		needed = 0
	}

	return LevelInfo{
		CurrentLevel:    current,
		NextLevel:       next,
		TotalXP:         int64(xp),
		CurrentLevelXP:  int64(currentXP),
		XPForNextLevel:  int64(nextXP),
		XPProgress:      int64(progress),
		XPRequired:      int64(required),
		XPNeeded:        int64(needed),
		ProgressPercent: percent,
		MaxLevel:        current >= maxLevel,
	}
}

// Award adds delta to current. The caller persists the result.
func (e *LevelEngine) Award(current, delta XP) (Award, error) {
	total, err := current.Add(delta)
	if err != nil {
		return Award{}, err
	}
	oldLevel := e.LevelForXP(current)
	newLevel := e.LevelForXP(total)
	return Award{
		OldTotal:  current,
		NewTotal:  total,
		Delta:     delta,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		LeveledUp: newLevel > oldLevel,
	}, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
