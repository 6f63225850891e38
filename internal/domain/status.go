package domain

import "strings"

// RunStatus is the lifecycle state of a Run.
type RunStatus string

const (
	RunNotStarted RunStatus = "not started"
	RunRunning    RunStatus = "running"
	RunCompleted  RunStatus = "completed"
	RunFailed     RunStatus = "failed"
)

// OperationStatus is the lifecycle state of an Operation.
type OperationStatus string

const (
	OperationNotStarted OperationStatus = "not started"
	OperationRunning    OperationStatus = "running"
	OperationCompleted  OperationStatus = "completed"
	OperationFailed     OperationStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunFailed
}

func (s OperationStatus) Terminal() bool {
	return s == OperationCompleted || s == OperationFailed
}

// CanTransitionOperation enforces forward-only operation progression:
// not started -> running -> completed | failed.
func CanTransitionOperation(current, next OperationStatus) bool {
	switch current {
	case OperationNotStarted:
		return next == OperationRunning
	case OperationRunning:
		return next == OperationCompleted || next == OperationFailed
	default:
		return false
	}
}

// NormalizeRunStatus maps free-form status values to canonical run states.
func NormalizeRunStatus(value string) RunStatus {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(RunNotStarted), "pending", "":
		return RunNotStarted
	case string(RunRunning):
		return RunRunning
	case string(RunCompleted):
		return RunCompleted
	case string(RunFailed):
		return RunFailed
	default:
		return ""
	}
}
