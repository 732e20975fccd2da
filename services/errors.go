package services

import "errors"

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrQuestNotFound         = errors.New("quest not found")
	ErrQuestAlreadyCompleted = errors.New("quest already completed")
	ErrConcurrentUpdate      = errors.New("progress was modified concurrently")
	ErrAwardTooLarge         = errors.New("xp award exceeds the allowed maximum")

	// errAlreadyCheckedIn aborts the check-in transaction; callers see it as
	// CheckInResult.AlreadyCheckedIn.
	errAlreadyCheckedIn = errors.New("already checked in today")
)
