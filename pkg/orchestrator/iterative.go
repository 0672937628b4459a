package orchestrator

import (
	"context"
	"fmt"
)

// Refiner derives the next attempt from the previous outcome. The
// iteration count is 1-based.
type Refiner func(prev Subtask, outcome AgentResult, iteration int) Subtask

// IterativeConfig defines the configuration for an Iterative
// orchestrator.
type IterativeConfig struct {
	// Base is the shared execution pipeline.
	Base *Base

	// Start is the subtask to refine.
	Start Subtask

	// Accept is the stop predicate. A true return ends the loop with
	// the current outcome.
	Accept func(AgentResult) bool

	// Refine produces the next attempt. Nil reruns the same subtask.
	Refine Refiner

	// MaxIterations bounds the loop. It must be positive.
	MaxIterations int
}

// Iterative reruns one subtask, refining it between attempts, until
// the outcome is accepted or the iteration budget runs out.
//
// Use it for convergence-style work such as revising an output until
// it passes review.
type Iterative struct {
	base          *Base
	start         Subtask
	accept        func(AgentResult) bool
	refine        Refiner
	maxIterations int
}

var _ Orchestrator = (*Iterative)(nil)

// NewIterative creates an Iterative orchestrator.
func NewIterative(cfg IterativeConfig) (*Iterative, error) {
	if cfg.MaxIterations < 1 {
		return nil, fmt.Errorf("iterative orchestrator requires a positive max_iterations, got %d", cfg.MaxIterations)
	}
	if cfg.Accept == nil {
		return nil, fmt.Errorf("iterative orchestrator requires an accept predicate")
	}
	return &Iterative{
		base:          cfg.Base,
		start:         cfg.Start,
		accept:        cfg.Accept,
		refine:        cfg.Refine,
		maxIterations: cfg.MaxIterations,
	}, nil
}

// Execute runs the task. Only the final iteration's outcome enters
// synthesis; earlier attempts are kept in Results for inspection.
func (it *Iterative) Execute(ctx context.Context, task *Task) (*FinalResult, error) {
	task.Status = TaskExecuting

	var attempts []AgentResult
	current := it.start
	current.TaskID = task.ID
	for i := 1; i <= it.maxIterations; i++ {
		if ctx.Err() != nil {
			task.Status = TaskCancelled
			return nil, ctx.Err()
		}

		res := it.base.ExecuteSubtask(ctx, current)
		attempts = append(attempts, res)

		if it.accept(res) {
			break
		}
		if it.refine != nil {
			current = it.refine(current, res, i)
			current.TaskID = task.ID
		}
	}

	if ctx.Err() != nil {
		task.Status = TaskCancelled
		return nil, ctx.Err()
	}

	last := attempts[len(attempts)-1]
	final, err := it.base.SynthesizeResults(task, []AgentResult{last})
	if err != nil {
		return nil, err
	}
	final.Results = attempts
	return final, nil
}
