package orchestrator

import (
	"context"
)

// Chooser selects the next subtask from the previous outcome. It
// returns nil to end the task. Like Decomposer, it is pure planning.
type Chooser func(prev AgentResult, history []AgentResult) *Subtask

// ConditionalConfig defines the configuration for a Conditional
// orchestrator.
type ConditionalConfig struct {
	// Base is the shared execution pipeline.
	Base *Base

	// Start is the first subtask to execute.
	Start Subtask

	// Choose picks each following subtask from the results so far.
	Choose Chooser

	// MaxSteps bounds the walk. Zero means no bound beyond the
	// chooser returning nil.
	MaxSteps int
}

// Conditional walks a chain of subtasks where each step is chosen
// from the previous result, branching the way a decision tree does.
type Conditional struct {
	base     *Base
	start    Subtask
	choose   Chooser
	maxSteps int
}

var _ Orchestrator = (*Conditional)(nil)

// NewConditional creates a Conditional orchestrator.
func NewConditional(cfg ConditionalConfig) *Conditional {
	return &Conditional{
		base:     cfg.Base,
		start:    cfg.Start,
		choose:   cfg.Choose,
		maxSteps: cfg.MaxSteps,
	}
}

// Execute runs the task.
func (c *Conditional) Execute(ctx context.Context, task *Task) (*FinalResult, error) {
	task.Status = TaskExecuting

	var results []AgentResult
	next := &c.start
	for next != nil {
		if ctx.Err() != nil {
			task.Status = TaskCancelled
			return nil, ctx.Err()
		}
		if c.maxSteps > 0 && len(results) >= c.maxSteps {
			break
		}

		st := *next
		st.TaskID = task.ID
		res := c.base.ExecuteSubtask(ctx, st)
		results = append(results, res)
		next = c.choose(res, results)
	}

	if ctx.Err() != nil {
		task.Status = TaskCancelled
		return nil, ctx.Err()
	}

	return c.base.SynthesizeResults(task, results)
}
