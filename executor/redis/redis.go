// Package redis is an executor backed by github.com/redis/go-redis/v9.
//
// Use a RESP2 connection (Options.Protocol = 2). Under RESP3 the store may
// answer with maps, doubles and booleans, which rkv does not interpret.
package redis

import (
	"context"
	"errors"

	goredis "github.com/redis/go-redis/v9"

	ex "github.com/unkn0wn-root/rkv/executor"
)

var ErrNilClient = errors.New("redis executor: nil client")

type Redis struct {
	rdb         goredis.UniversalClient
	closeClient bool
}

var _ ex.Executor = (*Redis)(nil)

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool // set true only if this executor exclusively owns the client
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Redis{rdb: cfg.Client, closeClient: cfg.CloseClient}, nil
}

// Dial builds an owned single-node client.
func Dial(addr, password string, db int) *Redis {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		Protocol: 2,
	})
	return &Redis{rdb: rdb, closeClient: true}
}

func (p *Redis) Do(ctx context.Context, cmd ex.Command) (ex.Reply, error) {
	v, err := p.rdb.Do(ctx, cmd.Flat()...).Result()
	r, ferr := toReply(v, err)
	if ferr != nil {
		return ex.Reply{}, ferr
	}
	return r, r.Err
}

func (p *Redis) DoBatch(ctx context.Context, cmds []ex.Command) ([]ex.Reply, error) {
	if len(cmds) == 0 {
		return nil, nil
	}
	pipe := p.rdb.Pipeline()
	pending := make([]*goredis.Cmd, len(cmds))
	for i, c := range cmds {
		pending[i] = pipe.Do(ctx, c.Flat()...)
	}
	// Exec reports the first failing command, which may be a plain server
	// error; classification happens per command below.
	_, _ = pipe.Exec(ctx)

	out := make([]ex.Reply, len(cmds))
	for i, c := range pending {
		r, err := toReply(c.Val(), c.Err())
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

// Close releases the underlying redis client only when this executor owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (p *Redis) Close(context.Context) error {
	if p.closeClient {
		if err := p.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

// toReply splits a go-redis result into a reply or a transport error.
func toReply(v any, err error) (ex.Reply, error) {
	switch {
	case err == nil:
		return ex.Reply{Val: normalize(v)}, nil
	case errors.Is(err, goredis.Nil):
		return ex.Reply{}, nil
	case isServerErr(err):
		return ex.Reply{Err: ex.ServerError(err.Error())}, nil
	default:
		return ex.Reply{}, err
	}
}

func isServerErr(err error) bool {
	var re goredis.Error
	return errors.As(err, &re)
}

func normalize(v any) any {
	switch vv := v.(type) {
	case []any:
		out := make([]any, len(vv))
		for i, e := range vv {
			if err, ok := e.(error); ok {
				out[i] = ex.ServerError(err.Error())
				continue
			}
			out[i] = normalize(e)
		}
		return out
	default:
		return v
	}
}
