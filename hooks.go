package rkv

import "time"

// Hooks are callbacks for pipeline and lock events.
// Implementations MUST be cheap and non-blocking; they run inline on the
// calling goroutine, some of them while the pipeline mutex is held.
// Keys passed to hooks are the caller's keys, without namespace.
type Hooks interface {
	// A batch of n commands was sent and answered. Every batch is reported,
	// including a ttl'd SetAll sent while pipelining is off.
	PipelineFlushed(commands int, elapsed time.Duration)
	// A batch failed at the transport level and was discarded.
	PipelineFlushFailed(commands int, err error)
	// A command inside an implicit flush got a server error that no caller
	// will see. verb is the upper-cased command name.
	PipelineCommandFailed(verb string, err error)

	LockAcquired(key string, attempts int, waited time.Duration)
	// The wait budget ran out while another holder kept the key.
	LockContended(key string, attempts int, waited time.Duration)
	// existed is false when the key had already expired or been removed.
	LockReleased(key string, existed bool)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) PipelineFlushed(int, time.Duration)       {}
func (NopHooks) PipelineFlushFailed(int, error)           {}
func (NopHooks) PipelineCommandFailed(string, error)      {}
func (NopHooks) LockAcquired(string, int, time.Duration)  {}
func (NopHooks) LockContended(string, int, time.Duration) {}
func (NopHooks) LockReleased(string, bool)                {}
