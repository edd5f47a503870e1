// Package memory is an in-process executor that understands the subset of
// Redis verbs rkv issues. It is meant for tests, local development and the
// CLI's memory backend; data lives only as long as the process.
//
// Keys expire lazily on access and, when CleanupInterval > 0, are swept by a
// background janitor.
package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	ex "github.com/unkn0wn-root/rkv/executor"
)

var ErrClosed = errors.New("memory executor: closed")

type entry struct {
	val      []byte
	expireAt time.Time // zero => no TTL
}

func (e entry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && !now.Before(e.expireAt)
}

type Config struct {
	CleanupInterval time.Duration // 0 = lazy expiry only
	Now             func() time.Time
}

// Memory implements executor.Executor over an xsync.MapOf.
type Memory struct {
	data *xsync.MapOf[string, entry]
	now  func() time.Time

	mu     sync.RWMutex // held exclusively only by Close
	closed bool

	ticker    *time.Ticker
	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

var _ ex.Executor = (*Memory)(nil)

func New(cfg Config) *Memory {
	m := &Memory{
		data: xsync.NewMapOf[string, entry](),
		now:  cfg.Now,
	}
	if m.now == nil {
		m.now = time.Now
	}
	if cfg.CleanupInterval > 0 {
		m.ticker = time.NewTicker(cfg.CleanupInterval)
		m.stopCh = make(chan struct{})
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			for {
				select {
				case <-m.ticker.C:
					m.Sweep()
				case <-m.stopCh:
					return
				}
			}
		}()
	}
	return m
}

func (m *Memory) Do(ctx context.Context, cmd ex.Command) (ex.Reply, error) {
	if err := m.enter(ctx); err != nil {
		return ex.Reply{}, err
	}
	defer m.mu.RUnlock()

	r := m.exec(cmd)
	return r, r.Err
}

func (m *Memory) DoBatch(ctx context.Context, cmds []ex.Command) ([]ex.Reply, error) {
	if len(cmds) == 0 {
		return nil, nil
	}
	if err := m.enter(ctx); err != nil {
		return nil, err
	}
	defer m.mu.RUnlock()

	out := make([]ex.Reply, len(cmds))
	for i, c := range cmds {
		out[i] = m.exec(c)
	}
	return out, nil
}

// Close stops the janitor. Later calls to Do/DoBatch fail with ErrClosed.
func (m *Memory) Close(context.Context) error {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		m.mu.Unlock()
		if m.stopCh != nil {
			close(m.stopCh)
			m.ticker.Stop()
			m.wg.Wait()
		}
	})
	return nil
}

// Sweep removes every expired key.
func (m *Memory) Sweep() int {
	now := m.now()
	var stale []string
	m.data.Range(func(k string, e entry) bool {
		if e.expired(now) {
			stale = append(stale, k)
		}
		return true
	})
	removed := 0
	for _, k := range stale {
		m.data.Compute(k, func(e entry, loaded bool) (entry, bool) {
			if loaded && e.expired(now) {
				removed++
				return e, true
			}
			return e, !loaded
		})
	}
	return removed
}

// Len counts live keys.
func (m *Memory) Len() int {
	now := m.now()
	n := 0
	m.data.Range(func(_ string, e entry) bool {
		if !e.expired(now) {
			n++
		}
		return true
	})
	return n
}

func (m *Memory) enter(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrClosed
	}
	return nil
}

func (m *Memory) exec(cmd ex.Command) ex.Reply {
	h, ok := handlers[cmd.Verb()]
	if !ok {
		return ex.Reply{Err: ex.ServerError("ERR unknown command '" + strings.ToLower(cmd.Name) + "'")}
	}
	args := make([]string, len(cmd.Args))
	for i, a := range cmd.Args {
		s, err := argString(a)
		if err != nil {
			return ex.Reply{Err: err}
		}
		args[i] = s
	}
	v, err := h(m, args)
	if err != nil {
		return ex.Reply{Err: err}
	}
	return ex.Reply{Val: v}
}

// load returns the live entry for k, evicting it if it has expired.
func (m *Memory) load(k string) (entry, bool) {
	now := m.now()
	var (
		out   entry
		found bool
	)
	m.data.Compute(k, func(e entry, loaded bool) (entry, bool) {
		if !loaded {
			return e, true
		}
		if e.expired(now) {
			return e, true
		}
		out, found = e, true
		return e, false
	})
	return out, found
}
