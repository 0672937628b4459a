package orchestrator

import (
	"time"

	"github.com/google/uuid"

	"github.com/cascadehq/cascade/pkg/provider"
)

// TaskStatus tracks a task through its lifecycle.
type TaskStatus string

const (
	TaskPending      TaskStatus = "pending"
	TaskDecomposing  TaskStatus = "decomposing"
	TaskExecuting    TaskStatus = "executing"
	TaskSynthesizing TaskStatus = "synthesizing"
	TaskCompleted    TaskStatus = "completed"
	TaskFailed       TaskStatus = "failed"
	TaskCancelled    TaskStatus = "cancelled"
)

// SubtaskStatus tracks one unit of work.
type SubtaskStatus string

const (
	SubtaskPending   SubtaskStatus = "pending"
	SubtaskRunning   SubtaskStatus = "running"
	SubtaskSucceeded SubtaskStatus = "succeeded"
	SubtaskFailed    SubtaskStatus = "failed"
	SubtaskCancelled SubtaskStatus = "cancelled"
)

// FailureKind classifies why a subtask failed.
type FailureKind string

const (
	FailureTransient FailureKind = "transient"
	FailurePermanent FailureKind = "permanent"
	FailureTimeout   FailureKind = "timeout"
)

// Task is a user-level goal to be decomposed and executed.
type Task struct {
	ID    string         `json:"id"`
	Goal  string         `json:"goal"`
	Input map[string]any `json:"input,omitempty"`

	// Priority is an ordering hint for callers queueing multiple
	// tasks. The orchestrator itself does not schedule across tasks.
	Priority  int        `json:"priority,omitempty"`
	Status    TaskStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewTask creates a pending task with a fresh ID.
func NewTask(goal string, input map[string]any) *Task {
	return &Task{
		ID:        uuid.NewString(),
		Goal:      goal,
		Input:     input,
		Status:    TaskPending,
		CreatedAt: time.Now(),
	}
}

// Subtask is one schedulable unit produced by decomposition. TaskID
// is stamped by the orchestrator when execution begins.
type Subtask struct {
	ID      string            `json:"id"`
	TaskID  string            `json:"task_id,omitempty"`
	Name    string            `json:"name"`
	Request *provider.Request `json:"request"`
}

// NewSubtask creates a subtask with a fresh ID.
func NewSubtask(name string, req *provider.Request) Subtask {
	return Subtask{ID: uuid.NewString(), Name: name, Request: req}
}

// AgentResult is the outcome of one subtask execution.
type AgentResult struct {
	SubtaskID string             `json:"subtask_id"`
	Name      string             `json:"name"`
	Status    SubtaskStatus      `json:"status"`
	Response  *provider.Response `json:"response,omitempty"`
	Kind      FailureKind        `json:"failure_kind,omitempty"`
	Err       error              `json:"-"`
	Cached    bool               `json:"cached,omitempty"`
	Duration  time.Duration      `json:"duration"`
}

// Succeeded reports whether the subtask produced a response.
func (r AgentResult) Succeeded() bool {
	return r.Status == SubtaskSucceeded
}

// Failed reports whether the subtask failed. Cancelled subtasks are
// not failures.
func (r AgentResult) Failed() bool {
	return r.Status == SubtaskFailed
}

// FinalResult is what a completed task hands back to the caller.
type FinalResult struct {
	TaskID string `json:"task_id"`

	// Outputs holds the successful responses, in scheduling order.
	Outputs []*provider.Response `json:"outputs"`

	// Results holds every subtask outcome, in scheduling order.
	Results []AgentResult `json:"results"`

	// Failures is the subset of Results that failed.
	Failures []AgentResult `json:"failures,omitempty"`

	// Partial is set when the task completed with at least one failure
	// or cancelled subtask.
	Partial bool `json:"partial"`
}
