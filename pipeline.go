package rkv

import (
	"context"
	"fmt"
	"sync"
	"time"

	ex "github.com/unkn0wn-root/rkv/executor"
)

// pipeline sits between the Client and its executor. While threshold > 0,
// writes are queued and sent together; everything else drains the queue
// before it runs so the store sees commands in submission order.
type pipeline struct {
	exec  ex.Executor
	log   Logger
	hooks Hooks

	mu        sync.Mutex
	threshold int
	batch     []ex.Command
}

// submit runs or queues a write. queued reports that r is a placeholder.
// With pipelining off the batch is always empty and cmd goes straight to the
// executor without holding mu.
func (p *pipeline) submit(ctx context.Context, cmd ex.Command) (r ex.Reply, queued bool, err error) {
	p.mu.Lock()
	if p.threshold <= 0 {
		p.mu.Unlock()
		r, err = p.exec.Do(ctx, cmd)
		return r, false, err
	}
	defer p.mu.Unlock()

	p.batch = append(p.batch, cmd)
	if len(p.batch) < p.threshold {
		return ex.Reply{}, true, nil
	}

	cmds := p.batch
	replies, err := p.flushLocked(ctx)
	if err != nil {
		return ex.Reply{}, false, err
	}
	// the triggering command is last; its caller gets the real answer
	last := len(replies) - 1
	p.report(cmds[:last], replies[:last])
	return replies[last], false, replies[last].Err
}

// submitMany queues cmds as a unit, or sends them as one batch when
// pipelining is off.
func (p *pipeline) submitMany(ctx context.Context, cmds []ex.Command) (replies []ex.Reply, queued bool, err error) {
	p.mu.Lock()
	if p.threshold <= 0 {
		p.mu.Unlock()
		replies, err = p.send(ctx, cmds)
		return replies, false, err
	}
	defer p.mu.Unlock()

	start := len(p.batch)
	p.batch = append(p.batch, cmds...)
	if len(p.batch) < p.threshold {
		return nil, true, nil
	}

	all := p.batch
	replies, err = p.flushLocked(ctx)
	if err != nil {
		return nil, false, err
	}
	p.report(all[:start], replies[:start])
	return replies[start:], false, nil
}

// do drains the queue and then runs cmd directly. Only the drain holds mu.
func (p *pipeline) do(ctx context.Context, cmd ex.Command) (ex.Reply, error) {
	p.mu.Lock()
	err := p.drainLocked(ctx)
	p.mu.Unlock()
	if err != nil {
		return ex.Reply{}, err
	}
	return p.exec.Do(ctx, cmd)
}

func (p *pipeline) flush(ctx context.Context, wait bool) ([]ex.Reply, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	replies, err := p.flushLocked(ctx)
	if err != nil || !wait {
		return nil, err
	}
	return replies, nil
}

func (p *pipeline) setThreshold(ctx context.Context, n int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.threshold = max(n, 0)
	if p.threshold == 0 || len(p.batch) >= p.threshold {
		return p.drainLocked(ctx)
	}
	return nil
}

func (p *pipeline) getThreshold() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.threshold
}

func (p *pipeline) pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.batch)
}

// drainLocked flushes on behalf of a caller that does not want the replies.
func (p *pipeline) drainLocked(ctx context.Context) error {
	cmds := p.batch
	replies, err := p.flushLocked(ctx)
	if err != nil {
		return err
	}
	p.report(cmds, replies)
	return nil
}

// flushLocked sends the batch and starts a new one. The batch is discarded
// on failure.
func (p *pipeline) flushLocked(ctx context.Context) ([]ex.Reply, error) {
	if len(p.batch) == 0 {
		return nil, nil
	}
	cmds := p.batch
	p.batch = nil
	return p.send(ctx, cmds)
}

// send runs cmds as one batch and reports it to the log and hooks.
func (p *pipeline) send(ctx context.Context, cmds []ex.Command) ([]ex.Reply, error) {
	start := time.Now()
	replies, err := p.roundTrip(ctx, cmds)
	if err != nil {
		p.log.Error("pipeline flush failed", Fields{"commands": len(cmds), "err": err})
		p.hooks.PipelineFlushFailed(len(cmds), err)
		return nil, &FlushError{Commands: len(cmds), Err: err}
	}
	elapsed := time.Since(start)
	p.log.Debug("pipeline flushed", Fields{"commands": len(cmds), "elapsed": elapsed})
	p.hooks.PipelineFlushed(len(cmds), elapsed)
	return replies, nil
}

func (p *pipeline) roundTrip(ctx context.Context, cmds []ex.Command) ([]ex.Reply, error) {
	replies, err := p.exec.DoBatch(ctx, cmds)
	if err != nil {
		return nil, err
	}
	if len(replies) != len(cmds) {
		return nil, fmt.Errorf("%w: %d replies for %d commands", ex.ErrUnexpectedReply, len(replies), len(cmds))
	}
	return replies, nil
}

// report surfaces per-command failures whose replies nobody reads.
func (p *pipeline) report(cmds []ex.Command, replies []ex.Reply) {
	for i, r := range replies {
		if r.Err == nil {
			continue
		}
		verb := cmds[i].Verb()
		p.log.Warn("pipelined command failed", Fields{"verb": verb, "err": r.Err})
		p.hooks.PipelineCommandFailed(verb, r.Err)
	}
}
