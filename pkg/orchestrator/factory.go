package orchestrator

import (
	"context"
	"fmt"

	"github.com/cascadehq/cascade/pkg/config"
)

// Orchestration modes selectable from configuration.
const (
	ModeSequential  = "sequential"
	ModeConditional = "conditional"
	ModeIterative   = "iterative"
	ModeParallel    = "parallel"
)

// NewFromConfig builds the orchestrator variant named by the
// configuration.
//
// The conditional and iterative modes need planning callbacks that
// configuration cannot express, so they get policy defaults here:
// conditional chains the decomposed subtasks and stops at the first
// non-success, iterative reruns the first decomposed subtask until it
// succeeds or max_iterations runs out. Code-level callers wanting
// custom Chooser or Refiner logic construct those variants directly.
func NewFromConfig(cfg *config.OrchestratorConfig, base *Base, dec Decomposer) (Orchestrator, error) {
	switch cfg.Mode {
	case ModeSequential, "":
		return NewSequential(SequentialConfig{
			Base:           base,
			Decomposer:     dec,
			AbortOnFailure: cfg.AbortOnFailure,
		}), nil

	case ModeParallel:
		return NewParallel(ParallelConfig{
			Base:       base,
			Decomposer: dec,
			Quorum:     cfg.Quorum,
		}), nil

	case ModeConditional:
		return &conditionalChain{base: base, decomposer: dec}, nil

	case ModeIterative:
		return &iterativeFirst{
			base:          base,
			decomposer:    dec,
			maxIterations: cfg.MaxIterations,
		}, nil

	default:
		return nil, fmt.Errorf("unknown orchestration mode %q", cfg.Mode)
	}
}

// conditionalChain adapts a Decomposer to the Conditional variant:
// the decomposed subtasks form the chain, and each link is taken only
// while the previous subtask succeeded.
type conditionalChain struct {
	base       *Base
	decomposer Decomposer
}

func (c *conditionalChain) Execute(ctx context.Context, task *Task) (*FinalResult, error) {
	subtasks, err := c.base.decompose(task, c.decomposer)
	if err != nil {
		return nil, err
	}
	if len(subtasks) == 0 {
		task.Status = TaskExecuting
		return c.base.SynthesizeResults(task, nil)
	}

	cond := NewConditional(ConditionalConfig{
		Base:  c.base,
		Start: subtasks[0],
		Choose: func(prev AgentResult, history []AgentResult) *Subtask {
			if !prev.Succeeded() || len(history) >= len(subtasks) {
				return nil
			}
			next := subtasks[len(history)]
			return &next
		},
	})
	return cond.Execute(ctx, task)
}

// iterativeFirst adapts a Decomposer to the Iterative variant: the
// first decomposed subtask is rerun until it succeeds.
type iterativeFirst struct {
	base          *Base
	decomposer    Decomposer
	maxIterations int
}

func (f *iterativeFirst) Execute(ctx context.Context, task *Task) (*FinalResult, error) {
	subtasks, err := f.base.decompose(task, f.decomposer)
	if err != nil {
		return nil, err
	}
	if len(subtasks) == 0 {
		task.Status = TaskExecuting
		return f.base.SynthesizeResults(task, nil)
	}

	it, err := NewIterative(IterativeConfig{
		Base:          f.base,
		Start:         subtasks[0],
		Accept:        AgentResult.Succeeded,
		MaxIterations: f.maxIterations,
	})
	if err != nil {
		task.Status = TaskFailed
		return nil, err
	}
	return it.Execute(ctx, task)
}
