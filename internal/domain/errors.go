package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrRateLimited   = errors.New("rate limited")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrLockHeld      = errors.New("lock already held")
	ErrBadPayload    = errors.New("malformed payload")
	ErrUnknownMode   = errors.New("unknown search mode")
	ErrDuplicate     = errors.New("duplicate trade")
)
