package round

import "errors"

// Participant-facing rejections. None of them stop the engine.
var (
	ErrRateLimited       = errors.New("rate limited")
	ErrRoundNotWaiting   = errors.New("round not waiting")
	ErrRoundNotRunning   = errors.New("round not running")
	ErrNoBet             = errors.New("no active bet")
	ErrBetTooLow         = errors.New("bet below minimum")
	ErrBetTooHigh        = errors.New("bet above maximum")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrLedgerUnavailable = errors.New("ledger unavailable")
	ErrTooLate           = errors.New("too late to rig")
	ErrTooLow            = errors.New("rig below minimum crash")
)
