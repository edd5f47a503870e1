package rkv

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	ex "github.com/unkn0wn-root/rkv/executor"
	"github.com/unkn0wn-root/rkv/executor/memory"
)

var errBoom = errors.New("connection reset")

// flakyExec wraps an executor, counting batches and failing or stalling on
// demand.
type flakyExec struct {
	inner     ex.Executor
	batches   atomic.Int32
	failBatch atomic.Bool
	failDo    atomic.Bool
	delay     atomic.Int64 // per Do, in nanoseconds
}

func (f *flakyExec) Do(ctx context.Context, cmd ex.Command) (ex.Reply, error) {
	if d := time.Duration(f.delay.Load()); d > 0 {
		time.Sleep(d)
	}
	if f.failDo.Load() {
		return ex.Reply{}, errBoom
	}
	return f.inner.Do(ctx, cmd)
}

func (f *flakyExec) DoBatch(ctx context.Context, cmds []ex.Command) ([]ex.Reply, error) {
	f.batches.Add(1)
	if f.failBatch.Load() {
		return nil, errBoom
	}
	return f.inner.DoBatch(ctx, cmds)
}

func (f *flakyExec) Close(ctx context.Context) error { return f.inner.Close(ctx) }

type event struct {
	name string
	key  string
	n    int
	ok   bool
	err  error
}

type recHooks struct {
	mu     sync.Mutex
	events []event
}

func (h *recHooks) add(e event) {
	h.mu.Lock()
	h.events = append(h.events, e)
	h.mu.Unlock()
}

func (h *recHooks) named(name string) []event {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []event
	for _, e := range h.events {
		if e.name == name {
			out = append(out, e)
		}
	}
	return out
}

func (h *recHooks) PipelineFlushed(n int, _ time.Duration) {
	h.add(event{name: "flushed", n: n})
}
func (h *recHooks) PipelineFlushFailed(n int, err error) {
	h.add(event{name: "flush_failed", n: n, err: err})
}
func (h *recHooks) PipelineCommandFailed(verb string, err error) {
	h.add(event{name: "command_failed", key: verb, err: err})
}
func (h *recHooks) LockAcquired(k string, n int, _ time.Duration) {
	h.add(event{name: "acquired", key: k, n: n})
}
func (h *recHooks) LockContended(k string, n int, _ time.Duration) {
	h.add(event{name: "contended", key: k, n: n})
}
func (h *recHooks) LockReleased(k string, existed bool) {
	h.add(event{name: "released", key: k, ok: existed})
}

type fixture struct {
	c     *Client
	exec  *flakyExec
	mem   *memory.Memory
	hooks *recHooks
}

func newFixture(t *testing.T, tweak func(*Options)) *fixture {
	t.Helper()
	mem := memory.New(memory.Config{})
	f := &fixture{mem: mem, exec: &flakyExec{inner: mem}, hooks: &recHooks{}}
	opts := Options{
		Executor:      f.exec,
		CloseExecutor: true,
		Hooks:         f.hooks,
		LockRetryMin:  5 * time.Millisecond,
		LockRetryMax:  20 * time.Millisecond,
	}
	if tweak != nil {
		tweak(&opts)
	}
	c, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.c = c
	t.Cleanup(func() {
		f.exec.failBatch.Store(false)
		f.exec.failDo.Store(false)
		_ = c.Close(context.Background())
	})
	return f
}

func mustGet(t *testing.T, c *Client, key string) string {
	t.Helper()
	b, ok, err := c.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get(%q): %v", key, err)
	}
	if !ok {
		t.Fatalf("Get(%q): missing", key)
	}
	return string(b)
}
