package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrLockHeld      = errors.New("lock already held")
	ErrProvider      = errors.New("result provider rejected request")
	ErrBatchTooLarge = errors.New("batch exceeds maximum operation count")
)
