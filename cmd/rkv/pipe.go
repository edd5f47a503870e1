package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/rkv"
)

// batchOp queues one parsed line on the client.
type batchOp func(ctx context.Context, c *rkv.Client) error

func pipeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pipe",
		Short: "Sends write commands read from stdin as one pipeline",
		Long: `Reads one command per line from stdin, queues them all and sends them as a
single batch. Replies are printed in input order.

Commands:
  set KEY VALUE [TTL]
  add KEY VALUE [TTL]
  replace KEY VALUE
  del KEY...
  incr KEY [DELTA]
  incrf KEY DELTA
  expire KEY TTL

Blank lines and lines starting with # are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ops, err := parseBatch(a.in)
			if err != nil {
				return err
			}
			if len(ops) == 0 {
				return nil
			}
			ctx := cmd.Context()
			// everything fits in one batch; Flush sends it
			if err := a.client.SetAutoPipeline(ctx, len(ops)+1); err != nil {
				return err
			}
			for _, op := range ops {
				if err := op(ctx, a.client); err != nil {
					return err
				}
			}
			replies, err := a.client.Flush(ctx, true)
			if err != nil {
				return err
			}
			for i, r := range replies {
				a.printReply(i+1, r)
			}
			return nil
		},
	}
}

func parseBatch(r io.Reader) ([]batchOp, error) {
	var ops []batchOp
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		op, err := parseLine(strings.Fields(line))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		ops = append(ops, op)
	}
	return ops, sc.Err()
}

func parseLine(f []string) (batchOp, error) {
	verb, args := strings.ToLower(f[0]), f[1:]
	switch verb {
	case "set", "add":
		if len(args) < 2 || len(args) > 3 {
			return nil, fmt.Errorf("%s: want KEY VALUE [TTL]", verb)
		}
		ttl, err := optTTL(args, 2)
		if err != nil {
			return nil, err
		}
		if verb == "add" {
			return func(ctx context.Context, c *rkv.Client) error {
				_, err := c.Add(ctx, args[0], []byte(args[1]), ttl)
				return err
			}, nil
		}
		return func(ctx context.Context, c *rkv.Client) error {
			return c.Set(ctx, args[0], []byte(args[1]), ttl)
		}, nil
	case "replace":
		if len(args) != 2 {
			return nil, errors.New("replace: want KEY VALUE")
		}
		return func(ctx context.Context, c *rkv.Client) error {
			_, _, err := c.Replace(ctx, args[0], []byte(args[1]))
			return err
		}, nil
	case "del":
		if len(args) == 0 {
			return nil, errors.New("del: want KEY...")
		}
		return func(ctx context.Context, c *rkv.Client) error {
			_, err := c.Remove(ctx, args...)
			return err
		}, nil
	case "incr":
		if len(args) < 1 || len(args) > 2 {
			return nil, errors.New("incr: want KEY [DELTA]")
		}
		delta := int64(1)
		if len(args) == 2 {
			d, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("incr: %w", err)
			}
			delta = d
		}
		return func(ctx context.Context, c *rkv.Client) error {
			_, err := c.IncrementInt(ctx, args[0], delta)
			return err
		}, nil
	case "incrf":
		if len(args) != 2 {
			return nil, errors.New("incrf: want KEY DELTA")
		}
		delta, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return nil, fmt.Errorf("incrf: %w", err)
		}
		return func(ctx context.Context, c *rkv.Client) error {
			_, err := c.IncrementFloat(ctx, args[0], delta)
			return err
		}, nil
	case "expire":
		if len(args) != 2 {
			return nil, errors.New("expire: want KEY TTL")
		}
		ttl, err := time.ParseDuration(args[1])
		if err != nil {
			return nil, fmt.Errorf("expire: %w", err)
		}
		return func(ctx context.Context, c *rkv.Client) error {
			_, err := c.SetExpire(ctx, args[0], ttl)
			return err
		}, nil
	default:
		return nil, fmt.Errorf("unsupported command %q", f[0])
	}
}

func optTTL(args []string, i int) (time.Duration, error) {
	if len(args) <= i {
		return 0, nil
	}
	d, err := time.ParseDuration(args[i])
	if err != nil {
		return 0, fmt.Errorf("ttl: %w", err)
	}
	return d, nil
}
