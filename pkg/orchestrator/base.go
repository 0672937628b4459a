package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cascadehq/cascade/pkg/cache"
	"github.com/cascadehq/cascade/pkg/metrics"
	"github.com/cascadehq/cascade/pkg/provider"
	"github.com/cascadehq/cascade/pkg/ratelimit"
	"github.com/cascadehq/cascade/pkg/retry"
)

// Orchestrator runs a task end to end: decompose, execute, synthesize.
type Orchestrator interface {
	Execute(ctx context.Context, task *Task) (*FinalResult, error)
}

// Decomposer plans a task into subtasks. Implementations must be pure
// planning, no I/O.
type Decomposer interface {
	Decompose(task *Task) ([]Subtask, error)
}

// DecomposerFunc adapts a function to the Decomposer interface.
type DecomposerFunc func(task *Task) ([]Subtask, error)

// Decompose invokes the function.
func (f DecomposerFunc) Decompose(task *Task) ([]Subtask, error) {
	return f(task)
}

// Options carries the shared collaborators for a Base. Registry is
// required; the rest are optional and degrade to pass-through.
type Options struct {
	// Registry resolves subtask requests to provider clients.
	Registry *provider.Registry

	// Limiter bounds concurrent downstream calls. Nil disables
	// admission control.
	Limiter ratelimit.Limiter

	// Cache short-circuits repeated requests. Nil disables caching.
	Cache *cache.Manager

	// Retry governs transient-failure retries on provider calls.
	Retry retry.Policy

	// Metrics receives execution instrumentation. Nil disables it.
	Metrics *metrics.Metrics

	// SubtaskTimeout bounds each subtask attempt cycle. Zero means no
	// per-subtask deadline beyond the caller's context.
	SubtaskTimeout time.Duration

	// FailureThreshold is the tolerated failure fraction during
	// synthesis, in [0, 1].
	FailureThreshold float64
}

// Base implements the execution and synthesis pipeline shared by all
// scheduling variants.
type Base struct {
	registry  *provider.Registry
	limiter   ratelimit.Limiter
	cache     *cache.Manager
	retry     retry.Policy
	metrics   *metrics.Metrics
	timeout   time.Duration
	threshold float64
}

// NewBase creates the shared pipeline.
func NewBase(opts Options) *Base {
	return &Base{
		registry:  opts.Registry,
		limiter:   opts.Limiter,
		cache:     opts.Cache,
		retry:     opts.Retry,
		metrics:   opts.Metrics,
		timeout:   opts.SubtaskTimeout,
		threshold: opts.FailureThreshold,
	}
}

// ExecuteSubtask runs one subtask through the full pipeline: cache
// lookup, limiter admission, retried provider call, classification,
// cache fill. It never returns an error; every outcome is captured in
// the AgentResult.
func (b *Base) ExecuteSubtask(ctx context.Context, st Subtask) AgentResult {
	start := time.Now()

	res := AgentResult{
		SubtaskID: st.ID,
		Name:      st.Name,
		Status:    SubtaskRunning,
	}

	if st.Request == nil {
		return b.finish(res, start, SubtaskFailed, FailurePermanent,
			errors.New("subtask has no request"))
	}

	if cached := b.cache.Get(ctx, st.Request); cached != nil {
		res.Response = cached
		res.Cached = true
		return b.finish(res, start, SubtaskSucceeded, "", nil)
	}

	if b.limiter != nil {
		waitStart := time.Now()
		if err := b.limiter.Acquire(ctx, 1); err != nil {
			return b.finish(res, start, SubtaskCancelled, "", err)
		}
		b.metrics.ObserveLimiterWait(time.Since(waitStart))
		defer b.limiter.Release(1)
	}

	caller, err := b.registry.Resolve(st.Request.Provider)
	if err != nil {
		return b.finish(res, start, SubtaskFailed, FailurePermanent, err)
	}

	callCtx := ctx
	if b.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	resp, err := retry.DoValue(callCtx, b.retry, st.Name, func(ctx context.Context) (*provider.Response, error) {
		return caller.Call(ctx, st.Request)
	})
	if err != nil {
		// The parent being cancelled is the caller's decision, not a
		// subtask failure.
		if ctx.Err() != nil && callCtx.Err() != context.DeadlineExceeded {
			return b.finish(res, start, SubtaskCancelled, "", err)
		}
		return b.finish(res, start, SubtaskFailed, classify(err, callCtx), err)
	}

	b.cache.Set(ctx, st.Request, resp)
	res.Response = resp
	return b.finish(res, start, SubtaskSucceeded, "", nil)
}

func (b *Base) finish(res AgentResult, start time.Time, status SubtaskStatus, kind FailureKind, err error) AgentResult {
	res.Status = status
	res.Kind = kind
	res.Err = err
	res.Duration = time.Since(start)

	b.metrics.ObserveSubtask(string(status), res.Duration)
	switch status {
	case SubtaskFailed:
		b.metrics.SubtaskFailure(string(kind))
		slog.Warn("Subtask failed",
			"subtask", res.Name, "kind", kind, "duration", res.Duration, "error", err)
	case SubtaskCancelled:
		slog.Debug("Subtask cancelled", "subtask", res.Name)
	}
	return res
}

// classify maps a terminal execution error to a failure kind.
func classify(err error, callCtx context.Context) FailureKind {
	if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() == context.DeadlineExceeded {
		return FailureTimeout
	}
	if provider.IsTransient(err) {
		return FailureTransient
	}
	return FailurePermanent
}

// SynthesizeResults folds subtask outcomes into a FinalResult. The
// fold is deterministic in input order. When the failed fraction is
// strictly above the configured threshold it returns an
// OrchestrationError instead.
func (b *Base) SynthesizeResults(task *Task, results []AgentResult) (*FinalResult, error) {
	task.Status = TaskSynthesizing

	final := &FinalResult{
		TaskID:  task.ID,
		Results: results,
	}

	failed := 0
	for _, r := range results {
		switch {
		case r.Succeeded():
			final.Outputs = append(final.Outputs, r.Response)
		case r.Failed():
			failed++
			final.Failures = append(final.Failures, r)
			final.Partial = true
		default:
			final.Partial = true
		}
	}

	if total := len(results); total > 0 {
		if fraction := float64(failed) / float64(total); fraction > b.threshold {
			task.Status = TaskFailed
			return nil, &OrchestrationError{
				TaskID:    task.ID,
				Failed:    failed,
				Total:     total,
				Threshold: b.threshold,
			}
		}
	}

	task.Status = TaskCompleted
	slog.Info("Task completed",
		"task", task.ID, "subtasks", len(results), "failed", failed, "partial", final.Partial)
	return final, nil
}

// decompose runs the planning phase and keeps the task status honest.
func (b *Base) decompose(task *Task, dec Decomposer) ([]Subtask, error) {
	task.Status = TaskDecomposing
	subtasks, err := dec.Decompose(task)
	if err != nil {
		task.Status = TaskFailed
		return nil, fmt.Errorf("task %s: decomposition failed: %w", task.ID, err)
	}
	for i := range subtasks {
		subtasks[i].TaskID = task.ID
	}
	return subtasks, nil
}
