package rkv

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	ex "github.com/unkn0wn-root/rkv/executor"
)

// Write operations below return zero values and a nil error while their
// command sits in a pipeline batch; the real reply comes back from Flush.

// Set stores value under key. ttl 0 uses Options.DefaultTTL.
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	cmd := ex.Cmd("SET", c.withTTL([]any{c.ns.Key(key), value}, ttl)...)
	_, _, err := c.pipe.submit(ctx, cmd)
	return err
}

// Get returns the value under key. ok=false means the key does not exist.
func (c *Client) Get(ctx context.Context, key string) ([]byte, bool, error) {
	r, err := c.pipe.do(ctx, ex.Cmd("GET", c.ns.Key(key)))
	if err != nil {
		return nil, false, err
	}
	b, ok, err := r.Bytes()
	return b, ok, replyErr("GET", err)
}

// Add stores value only if key does not exist yet.
func (c *Client) Add(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	args := append(c.withTTL([]any{c.ns.Key(key), value}, ttl), "NX")
	r, queued, err := c.pipe.submit(ctx, ex.Cmd("SET", args...))
	if err != nil || queued {
		return false, err
	}
	ok, err := r.OK()
	return ok, replyErr("SET", err)
}

// Replace stores value and returns the previous one. The key loses any
// expiry it had.
func (c *Client) Replace(ctx context.Context, key string, value []byte) (prev []byte, existed bool, err error) {
	r, queued, err := c.pipe.submit(ctx, ex.Cmd("GETSET", c.ns.Key(key), value))
	if err != nil || queued {
		return nil, false, err
	}
	prev, existed, err = r.Bytes()
	return prev, existed, replyErr("GETSET", err)
}

// IncrementInt adds delta to the integer under key, creating it at 0.
func (c *Client) IncrementInt(ctx context.Context, key string, delta int64) (int64, error) {
	r, queued, err := c.pipe.submit(ctx, ex.Cmd("INCRBY", c.ns.Key(key), delta))
	if err != nil || queued {
		return 0, err
	}
	n, err := r.Int()
	return n, replyErr("INCRBY", err)
}

// IncrementFloat adds delta to the number under key, creating it at 0.
func (c *Client) IncrementFloat(ctx context.Context, key string, delta float64) (float64, error) {
	d := strconv.FormatFloat(delta, 'f', -1, 64)
	r, queued, err := c.pipe.submit(ctx, ex.Cmd("INCRBYFLOAT", c.ns.Key(key), d))
	if err != nil || queued {
		return 0, err
	}
	f, err := r.Float()
	return f, replyErr("INCRBYFLOAT", err)
}

// SetAll stores every item. Without a ttl this is a single MSET; with one,
// each key gets its own SET PX and the commands travel as one batch.
func (c *Client) SetAll(ctx context.Context, items map[string][]byte, ttl time.Duration) error {
	if len(items) == 0 {
		return nil
	}
	names := make([]string, 0, len(items))
	for k := range items {
		names = append(names, k)
	}
	sort.Strings(names)

	ttl = coalesce(ttl, c.defaultTTL)
	if ttl <= 0 {
		args := make([]any, 0, 2*len(names))
		for _, k := range names {
			args = append(args, c.ns.Key(k), items[k])
		}
		_, _, err := c.pipe.submit(ctx, ex.Cmd("MSET", args...))
		return err
	}

	cmds := make([]ex.Command, len(names))
	for i, k := range names {
		cmds[i] = ex.Cmd("SET", c.withTTL([]any{c.ns.Key(k), items[k]}, ttl)...)
	}
	replies, queued, err := c.pipe.submitMany(ctx, cmds)
	if err != nil || queued {
		return err
	}
	var errs []error
	for i, r := range replies {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("rkv: set %q: %w", names[i], r.Err))
		}
	}
	return errors.Join(errs...)
}

// GetAll returns the values of the keys that exist, keyed by caller key.
func (c *Client) GetAll(ctx context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	args := c.ns.Args(keys)
	r, err := c.pipe.do(ctx, ex.Cmd("MGET", args...))
	if err != nil {
		return nil, err
	}
	items, err := r.Slice()
	if err != nil {
		return nil, replyErr("MGET", err)
	}
	if len(items) != len(keys) {
		return nil, fmt.Errorf("rkv: MGET: %w: %d values for %d keys", ex.ErrUnexpectedReply, len(items), len(keys))
	}
	for i, it := range items {
		b, ok, err := it.Bytes()
		if err != nil {
			return nil, replyErr("MGET", err)
		}
		if ok {
			out[keys[i]] = b
		}
	}
	return out, nil
}

// Remove deletes keys and reports how many existed.
func (c *Client) Remove(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	args := c.ns.Args(keys)
	r, queued, err := c.pipe.submit(ctx, ex.Cmd("DEL", args...))
	if err != nil || queued {
		return 0, err
	}
	n, err := r.Int()
	return n, replyErr("DEL", err)
}

func (c *Client) ContainsKey(ctx context.Context, key string) (bool, error) {
	r, err := c.pipe.do(ctx, ex.Cmd("EXISTS", c.ns.Key(key)))
	if err != nil {
		return false, err
	}
	ok, err := r.Bool()
	return ok, replyErr("EXISTS", err)
}

// SetExpire sets a new ttl on an existing key. It reports false when the key
// does not exist.
func (c *Client) SetExpire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, ErrInvalidTTL
	}
	r, queued, err := c.pipe.submit(ctx, ex.Cmd("PEXPIRE", c.ns.Key(key), millis(ttl)))
	if err != nil || queued {
		return false, err
	}
	ok, err := r.Bool()
	return ok, replyErr("PEXPIRE", err)
}

// GetExpire returns the remaining ttl, TTLNone or TTLMissing.
func (c *Client) GetExpire(ctx context.Context, key string) (time.Duration, error) {
	r, err := c.pipe.do(ctx, ex.Cmd("PTTL", c.ns.Key(key)))
	if err != nil {
		return 0, err
	}
	ms, err := r.Int()
	if err != nil {
		return 0, replyErr("PTTL", err)
	}
	switch ms {
	case -1:
		return TTLNone, nil
	case -2:
		return TTLMissing, nil
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// Clear removes every key the Client can see: the whole database without a
// namespace, only the namespace otherwise.
func (c *Client) Clear(ctx context.Context) error {
	if c.ns == "" {
		_, _, err := c.pipe.submit(ctx, ex.Cmd("FLUSHDB"))
		return err
	}

	// collect first; deleting mid-scan may shift cursor positions
	keys, err := c.ScanAll(ctx, "*", c.scanCount)
	if err != nil {
		return err
	}
	for len(keys) > 0 {
		n := min(len(keys), defaultDeleteChunk)
		if _, err := c.Remove(ctx, keys[:n]...); err != nil {
			return err
		}
		keys = keys[n:]
	}
	c.log.Debug("namespace cleared", Fields{"namespace": string(c.ns)})
	return nil
}

// Count returns the number of keys the Client can see.
func (c *Client) Count(ctx context.Context) (int64, error) {
	if c.ns == "" {
		r, err := c.pipe.do(ctx, ex.Cmd("DBSIZE"))
		if err != nil {
			return 0, err
		}
		n, err := r.Int()
		return n, replyErr("DBSIZE", err)
	}
	var n int64
	err := c.ScanFunc(ctx, "*", c.scanCount, func(string) bool {
		n++
		return true
	})
	return n, err
}

// Keys enumerates every key the Client can see.
func (c *Client) Keys(ctx context.Context) ([]string, error) {
	return c.ScanAll(ctx, "*", c.scanCount)
}

func (c *Client) Ping(ctx context.Context) error {
	_, err := c.pipe.do(ctx, ex.Cmd("PING"))
	return err
}

// withTTL appends PX to args for positive ttls after applying the default.
func (c *Client) withTTL(args []any, ttl time.Duration) []any {
	ttl = coalesce(ttl, c.defaultTTL)
	if ttl > 0 {
		args = append(args, "PX", millis(ttl))
	}
	return args
}

func replyErr(verb string, err error) error {
	if err == nil || !errors.Is(err, ex.ErrUnexpectedReply) {
		return err
	}
	return fmt.Errorf("rkv: %s: %w", verb, err)
}
