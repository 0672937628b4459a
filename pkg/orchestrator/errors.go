package orchestrator

import (
	"errors"
	"fmt"
)

// OrchestrationError reports that a task exceeded its failure budget
// during synthesis.
type OrchestrationError struct {
	TaskID    string
	Failed    int
	Total     int
	Threshold float64
}

func (e *OrchestrationError) Error() string {
	return fmt.Sprintf("task %s: %d of %d subtasks failed, exceeding threshold %.2f",
		e.TaskID, e.Failed, e.Total, e.Threshold)
}

// IsOrchestrationError checks whether err is an OrchestrationError.
func IsOrchestrationError(err error) bool {
	var oe *OrchestrationError
	return errors.As(err, &oe)
}
