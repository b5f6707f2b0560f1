package ratelimiter

import "errors"

// Package-level error definitions for rate limiter operations.
var (
	ErrInvalidConfig  = errors.New("ratelimiter: invalid configuration")
	ErrAlreadyStarted = errors.New("ratelimiter: cleanup already started")
)
