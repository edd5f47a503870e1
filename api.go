package rkv

import (
	"context"
	"time"

	ex "github.com/unkn0wn-root/rkv/executor"
	"github.com/unkn0wn-root/rkv/internal/keys"
)

// TTL sentinels returned by GetExpire.
const (
	TTLNone    time.Duration = -1 // key exists without expiry
	TTLMissing time.Duration = -2 // key does not exist
)

// Options configure a Client. Only Executor is required.
type Options struct {
	Executor      ex.Executor
	CloseExecutor bool   // Close also closes Executor
	Namespace     string // "" => keys are used as given

	Logger Logger // nil => NopLogger
	Hooks  Hooks  // nil => NopHooks

	DefaultTTL   time.Duration // ttl used when an operation passes 0; 0 => no expiry
	AutoPipeline int           // batch threshold; 0 => pipelining off
	ScanCount    int           // SCAN COUNT hint for Keys/Count/Clear; 0 => 100

	LockRetryMin time.Duration // first backoff between lock attempts; 0 => 20ms
	LockRetryMax time.Duration // backoff ceiling; 0 => 200ms
}

// Client is safe for concurrent use. Callers that need a particular order
// across goroutines must serialize themselves.
type Client struct {
	exec       ex.Executor
	ownExec    bool
	ns         keys.Namespace
	log        Logger
	hooks      Hooks
	defaultTTL time.Duration
	scanCount  int

	lockRetryMin time.Duration
	lockRetryMax time.Duration

	pipe *pipeline
}

func New(opts Options) (*Client, error) {
	if opts.Executor == nil {
		return nil, ErrNilExecutor
	}
	if opts.DefaultTTL < 0 {
		return nil, ErrInvalidTTL
	}

	c := &Client{
		exec:       opts.Executor,
		ownExec:    opts.CloseExecutor,
		ns:         keys.Namespace(opts.Namespace),
		defaultTTL: opts.DefaultTTL,
	}

	// defaults
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	c.scanCount = coalesce(opts.ScanCount, defaultScanCount)
	c.lockRetryMin = coalesce(opts.LockRetryMin, defaultLockRetryMin)
	c.lockRetryMax = max(coalesce(opts.LockRetryMax, defaultLockRetryMax), c.lockRetryMin)

	c.pipe = &pipeline{
		exec:      c.exec,
		log:       c.log,
		hooks:     c.hooks,
		threshold: max(opts.AutoPipeline, 0),
	}
	return c, nil
}

// Namespace returns the configured key prefix.
func (c *Client) Namespace() string { return string(c.ns) }

// Flush sends the pending batch. With wait the positional replies are
// returned; replies[i] answers the i-th queued command. An empty batch is a
// no-op.
func (c *Client) Flush(ctx context.Context, wait bool) ([]ex.Reply, error) {
	return c.pipe.flush(ctx, wait)
}

// SetAutoPipeline changes the batch threshold. n <= 0 disables pipelining
// after flushing whatever is pending.
func (c *Client) SetAutoPipeline(ctx context.Context, n int) error {
	return c.pipe.setThreshold(ctx, n)
}

func (c *Client) AutoPipeline() int { return c.pipe.getThreshold() }

// Pending reports how many commands are queued.
func (c *Client) Pending() int { return c.pipe.pending() }

// Close flushes pending commands and, when the Client owns it, closes the
// executor.
func (c *Client) Close(ctx context.Context) error {
	_, err := c.pipe.flush(ctx, false)
	if c.ownExec {
		if cerr := c.exec.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
