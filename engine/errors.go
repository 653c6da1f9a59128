package engine

import "errors"

// Validation errors: rejected synchronously with no state change.
var (
	ErrRoundInProgress = errors.New("a round is already running")
	ErrWagerTooSmall   = errors.New("wager below minimum")
	ErrWagerNotStep    = errors.New("wager must be a multiple of 10")
	ErrNoActiveRound   = errors.New("no round is running")
	ErrCrashed         = errors.New("round crashed before cash-out")
	ErrStopped         = errors.New("engine stopped")
)
