// Package sloghooks reports rkv hook events as slog records.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/rkv"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	FlushEvery         uint64
	CommandFailedEvery uint64
	LockEvery          uint64 // acquire and release events
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	flushCtr   atomic.Uint64
	commandCtr atomic.Uint64
	lockCtr    atomic.Uint64
}

var _ rkv.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) PipelineFlushed(commands int, elapsed time.Duration) {
	if h.l == nil || !sample(h.opts.FlushEvery, &h.flushCtr) {
		return
	}
	h.l.Debug("rkv.pipeline_flushed",
		"commands", commands,
		"elapsed", elapsed)
}

func (h *Hooks) PipelineFlushFailed(commands int, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("rkv.pipeline_flush_failed",
		"commands", commands,
		"err", err)
}

func (h *Hooks) PipelineCommandFailed(verb string, err error) {
	if h.l == nil || !sample(h.opts.CommandFailedEvery, &h.commandCtr) {
		return
	}
	h.l.Warn("rkv.pipeline_command_failed",
		"verb", verb,
		"err", err)
}

func (h *Hooks) LockAcquired(key string, attempts int, waited time.Duration) {
	if h.l == nil || !sample(h.opts.LockEvery, &h.lockCtr) {
		return
	}
	h.l.Debug("rkv.lock_acquired",
		"key", h.redact(key),
		"attempts", attempts,
		"waited", waited)
}

func (h *Hooks) LockContended(key string, attempts int, waited time.Duration) {
	if h.l == nil {
		return
	}
	h.l.Info("rkv.lock_contended",
		"key", h.redact(key),
		"attempts", attempts,
		"waited", waited)
}

func (h *Hooks) LockReleased(key string, existed bool) {
	if h.l == nil {
		return
	}
	if !existed {
		// the ttl ran out while the holder was still working
		h.l.Warn("rkv.lock_expired_before_release", "key", h.redact(key))
		return
	}
	if !sample(h.opts.LockEvery, &h.lockCtr) {
		return
	}
	h.l.Debug("rkv.lock_released", "key", h.redact(key))
}
