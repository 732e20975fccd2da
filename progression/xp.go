package progression

import (
	"errors"
	"math"
)

// XP is a validated, non-negative experience point amount.
type XP int64

var (
	ErrNegativeXP       = errors.New("xp must not be negative")
	ErrNonIntegerXP     = errors.New("xp must be a whole number")
	ErrXPOverflow       = errors.New("xp total overflow")
	ErrInvalidTable     = errors.New("invalid level threshold table")
	ErrInvalidMilestone = errors.New("invalid streak milestone")
)

// ParseXP converts an untrusted integer into XP.
func ParseXP(v int64) (XP, error) {
	if v < 0 {
		return 0, ErrNegativeXP
	}
	return XP(v), nil
}

// ParseXPNumber converts a decoded JSON number into XP. Fractional, NaN and
// out of range values are rejected.
func ParseXPNumber(f float64) (XP, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, ErrNonIntegerXP
	}
	if f < 0 {
		return 0, ErrNegativeXP
	}
	if f > math.MaxInt64/2 {
		return 0, ErrXPOverflow
	}
	return XP(f), nil
}

// Add returns x+delta, refusing to wrap around.
func (x XP) Add(delta XP) (XP, error) {
	if delta > 0 && x > math.MaxInt64-delta {
		return 0, ErrXPOverflow
	}
	return x + delta, nil
}

func (x XP) Int64() int64 { return int64(x) }
