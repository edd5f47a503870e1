// Package metrics counts rkv hook events in a VictoriaMetrics metrics.Set and
// exposes them in Prometheus text format.
package metrics

import (
	"fmt"
	"io"
	"time"

	vm "github.com/VictoriaMetrics/metrics"

	"github.com/unkn0wn-root/rkv"
)

type Hooks struct {
	set    *vm.Set
	prefix string

	flushes       *vm.Counter
	flushFailures *vm.Counter
	flushedCmds   *vm.Counter
	flushSeconds  *vm.Histogram

	lockAcquired  *vm.Counter
	lockContended *vm.Counter
	lockReleased  *vm.Counter
	lockExpired   *vm.Counter
	lockWait      *vm.Histogram
	lockAttempts  *vm.Histogram
}

var _ rkv.Hooks = (*Hooks)(nil)

// New registers the metrics in a fresh Set. prefix "" => "rkv".
func New(prefix string) *Hooks {
	if prefix == "" {
		prefix = "rkv"
	}
	s := vm.NewSet()
	return &Hooks{
		set:    s,
		prefix: prefix,

		flushes:       s.NewCounter(prefix + "_pipeline_flushes_total"),
		flushFailures: s.NewCounter(prefix + "_pipeline_flush_failures_total"),
		flushedCmds:   s.NewCounter(prefix + "_pipeline_flushed_commands_total"),
		flushSeconds:  s.NewHistogram(prefix + "_pipeline_flush_duration_seconds"),

		lockAcquired:  s.NewCounter(prefix + "_lock_acquired_total"),
		lockContended: s.NewCounter(prefix + "_lock_contended_total"),
		lockReleased:  s.NewCounter(prefix + "_lock_released_total"),
		lockExpired:   s.NewCounter(prefix + "_lock_expired_before_release_total"),
		lockWait:      s.NewHistogram(prefix + "_lock_wait_seconds"),
		lockAttempts:  s.NewHistogram(prefix + "_lock_attempts"),
	}
}

// Set returns the underlying set, e.g. for vm.RegisterSet.
func (h *Hooks) Set() *vm.Set { return h.set }

func (h *Hooks) WritePrometheus(w io.Writer) { h.set.WritePrometheus(w) }

func (h *Hooks) PipelineFlushed(commands int, elapsed time.Duration) {
	h.flushes.Inc()
	h.flushedCmds.Add(commands)
	h.flushSeconds.Update(elapsed.Seconds())
}

func (h *Hooks) PipelineFlushFailed(commands int, _ error) {
	h.flushFailures.Inc()
}

func (h *Hooks) PipelineCommandFailed(verb string, _ error) {
	h.set.GetOrCreateCounter(fmt.Sprintf(`%s_pipeline_command_failures_total{verb=%q}`, h.prefix, verb)).Inc()
}

func (h *Hooks) LockAcquired(_ string, attempts int, waited time.Duration) {
	h.lockAcquired.Inc()
	h.lockWait.Update(waited.Seconds())
	h.lockAttempts.Update(float64(attempts))
}

func (h *Hooks) LockContended(_ string, attempts int, waited time.Duration) {
	h.lockContended.Inc()
	h.lockWait.Update(waited.Seconds())
	h.lockAttempts.Update(float64(attempts))
}

func (h *Hooks) LockReleased(_ string, existed bool) {
	h.lockReleased.Inc()
	if !existed {
		h.lockExpired.Inc()
	}
}
