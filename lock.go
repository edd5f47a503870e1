package rkv

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	ex "github.com/unkn0wn-root/rkv/executor"
)

// Lock is a held distributed lock. The lock key expires after TTL even if
// Release is never called.
type Lock struct {
	c          *Client
	key        string
	ttl        time.Duration
	acquiredAt time.Time
	released   atomic.Bool
}

func (l *Lock) Key() string           { return l.key }
func (l *Lock) TTL() time.Duration    { return l.ttl }
func (l *Lock) AcquiredAt() time.Time { return l.acquiredAt }

// Release deletes the lock key. Only the first successful call does
// anything. Ownership is not checked: a holder whose ttl lapsed can delete a
// lock someone else has since taken.
func (l *Lock) Release(ctx context.Context) error {
	if !l.released.CompareAndSwap(false, true) {
		return nil
	}
	r, err := l.c.pipe.do(ctx, ex.Cmd("DEL", l.c.ns.Key(l.key)))
	if err != nil {
		// let the caller try again; the ttl still bounds the damage
		l.released.Store(false)
		return err
	}
	n, err := r.Int()
	if err != nil {
		return replyErr("DEL", err)
	}
	l.c.log.Debug("lock released", Fields{"key": l.key, "held": time.Since(l.acquiredAt)})
	l.c.hooks.LockReleased(l.key, n == 1)
	return nil
}

// Close releases the lock with a background context, for use with defer.
func (l *Lock) Close() error { return l.Release(context.Background()) }

// AcquireLock takes the lock named key, waiting up to timeout for a current
// holder to let go. The lock itself also expires after timeout.
func (c *Client) AcquireLock(ctx context.Context, key string, timeout time.Duration) (*Lock, error) {
	return c.AcquireLockTTL(ctx, key, timeout, timeout)
}

// AcquireLockTTL is AcquireLock with separate lock lifetime and wait budget.
// wait 0 makes a single attempt.
//
// Contention ends in a *LockError matching ErrLockContended, returned only
// after at least wait has passed. Store errors and ctx cancellation abort
// the wait at once.
func (c *Client) AcquireLockTTL(ctx context.Context, key string, ttl, wait time.Duration) (*Lock, error) {
	if ttl <= 0 {
		return nil, ErrInvalidTTL
	}
	start := time.Now()
	deadline := start.Add(max(wait, 0))
	sk := c.ns.Key(key)
	backoff := c.lockRetryMin

	for attempt := 1; ; attempt++ {
		now := time.Now()
		stamp := strconv.FormatInt(now.UnixMilli(), 10)
		r, err := c.pipe.do(ctx, ex.Cmd("SET", sk, stamp, "NX", "PX", millis(ttl)))
		if err != nil {
			return nil, err
		}
		ok, err := r.OK()
		if err != nil {
			return nil, replyErr("SET", err)
		}
		if ok {
			waited := time.Since(start)
			c.log.Debug("lock acquired", Fields{"key": key, "attempts": attempt, "waited": waited})
			c.hooks.LockAcquired(key, attempt, waited)
			return &Lock{c: c, key: key, ttl: ttl, acquiredAt: now}, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			waited := time.Since(start)
			c.log.Debug("lock contended", Fields{"key": key, "attempts": attempt, "waited": waited})
			c.hooks.LockContended(key, attempt, waited)
			return nil, &LockError{Key: key, Attempts: attempt, Waited: waited}
		}
		if err := sleep(ctx, min(backoff, remaining)); err != nil {
			return nil, err
		}
		backoff = min(backoff*2, c.lockRetryMax)
	}
}

// WithLock runs fn while holding the lock named key. The lock is released on
// every exit from fn, panics included; a release failure is returned only
// when fn itself succeeded.
func (c *Client) WithLock(ctx context.Context, key string, timeout time.Duration, fn func(ctx context.Context) error) (err error) {
	l, err := c.AcquireLock(ctx, key, timeout)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := l.Release(context.WithoutCancel(ctx)); rerr != nil && err == nil {
			err = rerr
		}
	}()
	return fn(ctx)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
