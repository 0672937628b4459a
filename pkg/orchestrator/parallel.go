package orchestrator

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// ParallelConfig defines the configuration for a Parallel
// orchestrator.
type ParallelConfig struct {
	// Base is the shared execution pipeline.
	Base *Base

	// Decomposer plans the task.
	Decomposer Decomposer

	// Quorum, when positive, unblocks synthesis once that many
	// subtasks have succeeded. Stragglers are cancelled and reported
	// as cancelled, not failed.
	Quorum int
}

// Parallel fans every subtask out at once and joins before synthesis.
// Concurrency pressure on downstream providers is bounded by the
// shared limiter, not by the fan-out width.
//
// This suits independent subtasks, such as gathering multiple
// perspectives on the same input.
type Parallel struct {
	base       *Base
	decomposer Decomposer
	quorum     int
}

var _ Orchestrator = (*Parallel)(nil)

// NewParallel creates a Parallel orchestrator.
func NewParallel(cfg ParallelConfig) *Parallel {
	return &Parallel{
		base:       cfg.Base,
		decomposer: cfg.Decomposer,
		quorum:     cfg.Quorum,
	}
}

// Execute runs the task.
func (p *Parallel) Execute(ctx context.Context, task *Task) (*FinalResult, error) {
	subtasks, err := p.base.decompose(task, p.decomposer)
	if err != nil {
		return nil, err
	}

	task.Status = TaskExecuting

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		succeeded atomic.Int64
		results   = make([]AgentResult, len(subtasks))
	)

	g, gctx := errgroup.WithContext(runCtx)
	for i, st := range subtasks {
		g.Go(func() error {
			res := p.base.ExecuteSubtask(gctx, st)
			results[i] = res

			if p.quorum > 0 && res.Succeeded() &&
				succeeded.Add(1) == int64(p.quorum) {
				cancel()
			}
			return nil
		})
	}
	// Workers capture every outcome in their AgentResult, so Wait
	// cannot fail.
	_ = g.Wait()

	if ctx.Err() != nil {
		task.Status = TaskCancelled
		return nil, ctx.Err()
	}

	return p.base.SynthesizeResults(task, results)
}
