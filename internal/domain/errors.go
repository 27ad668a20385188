package domain

import "errors"

var (
	ErrNotFound               = errors.New("not found")
	ErrRateLimited            = errors.New("rate limited")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrInvalidOrder           = errors.New("invalid order parameters")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrInsufficientPosition   = errors.New("insufficient position")
	ErrMalformedListing       = errors.New("malformed market listing")
	ErrLiveTradingUnsupported = errors.New("live trading is not supported")
	ErrLockHeld               = errors.New("lock held by another process")
)
