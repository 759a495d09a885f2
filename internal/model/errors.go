package model

import "errors"

// Action outcome taxonomy. AlreadyPaired is informational: a declare or
// match request while in a session is answered, not failed.
var (
	ErrAlreadyPaired    = errors.New("already paired")
	ErrNotPaired        = errors.New("not paired")
	ErrPolicyViolation  = errors.New("policy violation")
	ErrRateLimited      = errors.New("rate limited")
	ErrStoreUnavailable = errors.New("store unavailable")
)
