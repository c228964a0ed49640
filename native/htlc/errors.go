package htlc

import "errors"

var (
	ErrUnauthorized        = errors.New("htlc: unauthorized")
	ErrInvalidSwap         = errors.New("htlc: invalid swap state")
	ErrSwapNotFound        = errors.New("htlc: swap not found")
	ErrInvalidSecret       = errors.New("htlc: invalid secret")
	ErrExpired             = errors.New("htlc: timelock expired")
	ErrNotExpired          = errors.New("htlc: timelock not expired")
	ErrAlreadyExecuted     = errors.New("htlc: already executed")
	ErrInvalidAmount       = errors.New("htlc: amount must be positive")
	ErrInvalidTimelock     = errors.New("htlc: timelock out of bounds")
	ErrInsufficientBalance = errors.New("htlc: insufficient balance")
	ErrInvalidHash         = errors.New("htlc: secret hash already used")
	ErrPaused              = errors.New("htlc: protocol paused")
	ErrInvalidParticipant  = errors.New("htlc: initiator and participant must differ")
)
