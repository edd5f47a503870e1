// Package redigo is an executor backed by a github.com/gomodule/redigo pool.
// Batches use redigo's Send/Flush/Receive pipelining on a single pooled
// connection.
package redigo

import (
	"context"
	"errors"
	"time"

	"github.com/gomodule/redigo/redis"

	ex "github.com/unkn0wn-root/rkv/executor"
)

var ErrNilPool = errors.New("redigo executor: nil pool")

type Redigo struct {
	pool      *redis.Pool
	closePool bool
}

var _ ex.Executor = (*Redigo)(nil)

type Config struct {
	Pool      *redis.Pool
	ClosePool bool // set true only if this executor exclusively owns the pool
}

func New(cfg Config) (*Redigo, error) {
	if cfg.Pool == nil {
		return nil, ErrNilPool
	}
	return &Redigo{pool: cfg.Pool, closePool: cfg.ClosePool}, nil
}

// Dial builds an owned pool for a single node.
func Dial(addr, password string, db int) *Redigo {
	pool := &redis.Pool{
		MaxIdle:     8,
		IdleTimeout: 4 * time.Minute,
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			return redis.DialContext(ctx, "tcp", addr,
				redis.DialPassword(password),
				redis.DialDatabase(db),
			)
		},
	}
	return &Redigo{pool: pool, closePool: true}
}

func (p *Redigo) Do(ctx context.Context, cmd ex.Command) (ex.Reply, error) {
	conn, err := p.pool.GetContext(ctx)
	if err != nil {
		return ex.Reply{}, err
	}
	defer conn.Close()

	v, err := redis.DoContext(conn, ctx, cmd.Name, cmd.Args...)
	r, ferr := toReply(v, err)
	if ferr != nil {
		return ex.Reply{}, ferr
	}
	return r, r.Err
}

func (p *Redigo) DoBatch(ctx context.Context, cmds []ex.Command) ([]ex.Reply, error) {
	if len(cmds) == 0 {
		return nil, nil
	}
	conn, err := p.pool.GetContext(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	for _, c := range cmds {
		if err := conn.Send(c.Name, c.Args...); err != nil {
			return nil, err
		}
	}
	if err := conn.Flush(); err != nil {
		return nil, err
	}

	out := make([]ex.Reply, len(cmds))
	for i := range cmds {
		v, err := redis.ReceiveContext(conn, ctx)
		r, ferr := toReply(v, err)
		if ferr != nil {
			return nil, ferr
		}
		out[i] = r
	}
	return out, nil
}

func (p *Redigo) Close(context.Context) error {
	if p.closePool {
		return p.pool.Close()
	}
	return nil
}

func toReply(v any, err error) (ex.Reply, error) {
	if err != nil {
		var re redis.Error
		if errors.As(err, &re) {
			return ex.Reply{Err: ex.ServerError(re.Error())}, nil
		}
		return ex.Reply{}, err
	}
	return ex.Reply{Val: normalize(v)}, nil
}

func normalize(v any) any {
	switch vv := v.(type) {
	case []any:
		out := make([]any, len(vv))
		for i, e := range vv {
			if re, ok := e.(redis.Error); ok {
				out[i] = ex.ServerError(re.Error())
				continue
			}
			out[i] = normalize(e)
		}
		return out
	default:
		return v
	}
}
