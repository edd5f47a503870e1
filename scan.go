package rkv

import (
	"context"
	"fmt"
	"strconv"

	ex "github.com/unkn0wn-root/rkv/executor"
)

// ScanCursor is the position of an incremental SCAN. Position 0 starts a
// scan and, when returned, marks it complete. Pattern "" matches all keys;
// Count 0 lets the server pick the page size.
type ScanCursor struct {
	Position uint64
	Pattern  string
	Count    int
}

// Scan fetches one page. Pages may be empty while the scan is unfinished, and
// a key can show up on more than one page.
func (c *Client) Scan(ctx context.Context, cur ScanCursor) (next ScanCursor, keys []string, err error) {
	args := []any{strconv.FormatUint(cur.Position, 10), "MATCH", c.ns.Pattern(coalesce(cur.Pattern, "*"))}
	if cur.Count > 0 {
		args = append(args, "COUNT", int64(cur.Count))
	}
	r, err := c.pipe.do(ctx, ex.Cmd("SCAN", args...))
	if err != nil {
		return cur, nil, err
	}

	parts, err := r.Slice()
	if err != nil {
		return cur, nil, replyErr("SCAN", err)
	}
	if len(parts) != 2 {
		return cur, nil, fmt.Errorf("rkv: SCAN: %w: %d elements", ex.ErrUnexpectedReply, len(parts))
	}
	pos, _, err := parts[0].Text()
	if err != nil {
		return cur, nil, replyErr("SCAN", err)
	}
	next = cur
	if next.Position, err = strconv.ParseUint(pos, 10, 64); err != nil {
		return cur, nil, fmt.Errorf("rkv: SCAN: %w: cursor %q", ex.ErrUnexpectedReply, pos)
	}
	raw, err := parts[1].Strings()
	if err != nil {
		return cur, nil, replyErr("SCAN", err)
	}
	return next, c.strip(raw), nil
}

// ScanFunc walks every key matching pattern until fn returns false. Keys
// are not de-duplicated.
func (c *Client) ScanFunc(ctx context.Context, pattern string, count int, fn func(key string) bool) error {
	cur := ScanCursor{Pattern: pattern, Count: count}
	for {
		next, keys, err := c.Scan(ctx, cur)
		if err != nil {
			return err
		}
		for _, k := range keys {
			if !fn(k) {
				return nil
			}
		}
		if next.Position == 0 {
			return nil
		}
		cur = next
	}
}

// ScanAll collects every key matching pattern, each once, in the order first
// seen.
func (c *Client) ScanAll(ctx context.Context, pattern string, count int) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	err := c.ScanFunc(ctx, pattern, count, func(k string) bool {
		if _, dup := seen[k]; !dup {
			seen[k] = struct{}{}
			out = append(out, k)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Match lists keys matching pattern with a single KEYS call. It blocks the
// server for the whole keyspace walk; prefer ScanAll on large databases.
func (c *Client) Match(ctx context.Context, pattern string) ([]string, error) {
	r, err := c.pipe.do(ctx, ex.Cmd("KEYS", c.ns.Pattern(coalesce(pattern, "*"))))
	if err != nil {
		return nil, err
	}
	raw, err := r.Strings()
	if err != nil {
		return nil, replyErr("KEYS", err)
	}
	return c.strip(raw), nil
}

func (c *Client) strip(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, k := range raw {
		if k, ok := c.ns.Strip(k); ok {
			out = append(out, k)
		}
	}
	return out
}
