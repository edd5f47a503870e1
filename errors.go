package rkv

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNilExecutor   = errors.New("rkv: executor is required")
	ErrInvalidTTL    = errors.New("rkv: ttl must be positive")
	ErrLockContended = errors.New("rkv: lock contended")
)

// LockError reports a lock that could not be taken within its wait budget.
type LockError struct {
	Key      string
	Attempts int
	Waited   time.Duration
}

func (e *LockError) Error() string {
	return fmt.Sprintf("rkv: lock %q still held after %s (%d attempts)", e.Key, e.Waited, e.Attempts)
}

func (e *LockError) Unwrap() error { return ErrLockContended }

// FlushError reports a pipeline batch that failed at the transport level.
// The batch is discarded; the store may have applied any prefix of it.
type FlushError struct {
	Commands int
	Err      error
}

func (e *FlushError) Error() string {
	return fmt.Sprintf("rkv: flush of %d commands failed: %v", e.Commands, e.Err)
}

func (e *FlushError) Unwrap() error { return e.Err }
