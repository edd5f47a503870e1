// Package asynchook moves rkv hook calls off the calling goroutine.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{CommandFailedEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	client, _ := rkv.New(rkv.Options{
//	    Executor: exec,
//	    Hooks:    hooks, // or raw to stay synchronous
//	})
package asynchook

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/rkv"
)

// Hooks forwards events to inner on a worker pool. Events that do not fit in
// the queue are dropped and counted.
type Hooks struct {
	inner   rkv.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex // guards closed against sends on a closed queue
	closed  bool
	dropped atomic.Uint64
}

var _ rkv.Hooks = (*Hooks)(nil)

func New(inner rkv.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Later events are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped reports how many events were discarded.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) PipelineFlushed(n int, d time.Duration) {
	h.try(func() { h.inner.PipelineFlushed(n, d) })
}
func (h *Hooks) PipelineFlushFailed(n int, err error) {
	h.try(func() { h.inner.PipelineFlushFailed(n, err) })
}
func (h *Hooks) PipelineCommandFailed(verb string, err error) {
	h.try(func() { h.inner.PipelineCommandFailed(verb, err) })
}
func (h *Hooks) LockAcquired(k string, n int, d time.Duration) {
	h.try(func() { h.inner.LockAcquired(k, n, d) })
}
func (h *Hooks) LockContended(k string, n int, d time.Duration) {
	h.try(func() { h.inner.LockContended(k, n, d) })
}
func (h *Hooks) LockReleased(k string, existed bool) { h.try(func() { h.inner.LockReleased(k, existed) }) }
