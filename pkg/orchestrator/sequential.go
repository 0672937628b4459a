package orchestrator

import (
	"context"
)

// SequentialConfig defines the configuration for a Sequential
// orchestrator.
type SequentialConfig struct {
	// Base is the shared execution pipeline.
	Base *Base

	// Decomposer plans the task.
	Decomposer Decomposer

	// AbortOnFailure stops scheduling after the first failed subtask.
	// Already-produced results still flow into synthesis.
	AbortOnFailure bool
}

// Sequential executes subtasks one at a time, in decomposition order.
//
// Use it when later subtasks depend on earlier ones having run, such
// as a fixed processing pipeline.
type Sequential struct {
	base           *Base
	decomposer     Decomposer
	abortOnFailure bool
}

var _ Orchestrator = (*Sequential)(nil)

// NewSequential creates a Sequential orchestrator.
func NewSequential(cfg SequentialConfig) *Sequential {
	return &Sequential{
		base:           cfg.Base,
		decomposer:     cfg.Decomposer,
		abortOnFailure: cfg.AbortOnFailure,
	}
}

// Execute runs the task.
func (s *Sequential) Execute(ctx context.Context, task *Task) (*FinalResult, error) {
	subtasks, err := s.base.decompose(task, s.decomposer)
	if err != nil {
		return nil, err
	}

	task.Status = TaskExecuting
	results := make([]AgentResult, 0, len(subtasks))
	for _, st := range subtasks {
		if ctx.Err() != nil {
			task.Status = TaskCancelled
			return nil, ctx.Err()
		}

		res := s.base.ExecuteSubtask(ctx, st)
		results = append(results, res)

		if res.Failed() && s.abortOnFailure {
			break
		}
	}

	if ctx.Err() != nil {
		task.Status = TaskCancelled
		return nil, ctx.Err()
	}

	return s.base.SynthesizeResults(task, results)
}
