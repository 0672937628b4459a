// Package orchestrator decomposes tasks into subtasks, executes them
// against downstream providers, and synthesizes the outcomes.
//
// All variants share one Base pipeline (cache lookup, rate-limited
// admission, retried provider call, failure classification, cache
// fill) and differ only in scheduling:
//
// # Sequential
//
// Runs subtasks one at a time, in decomposition order, with optional
// abort-on-failure:
//
//	orch := orchestrator.NewSequential(orchestrator.SequentialConfig{
//	    Base:       base,
//	    Decomposer: plan,
//	})
//
// # Conditional
//
// Chooses each subtask from the previous result:
//
//	orch := orchestrator.NewConditional(orchestrator.ConditionalConfig{
//	    Base:   base,
//	    Start:  triage,
//	    Choose: routeByVerdict,
//	})
//
// # Iterative
//
// Reruns one subtask, refining it between attempts, until accepted or
// out of budget:
//
//	orch, _ := orchestrator.NewIterative(orchestrator.IterativeConfig{
//	    Base:          base,
//	    Start:         draft,
//	    Accept:        passesReview,
//	    Refine:        addReviewNotes,
//	    MaxIterations: 3,
//	})
//
// # Parallel
//
// Fans all subtasks out at once, bounded by the shared limiter, with
// an optional success quorum:
//
//	orch := orchestrator.NewParallel(orchestrator.ParallelConfig{
//	    Base:       base,
//	    Decomposer: plan,
//	    Quorum:     2,
//	})
//
// Subtask failures never escape as raw errors: each outcome is
// captured in an AgentResult, and synthesis returns either a
// FinalResult or an OrchestrationError when the failed fraction
// exceeds the configured threshold.
package orchestrator
