package execution

import (
	"strings"
	"time"
)

type EventName int

const (
	ExecutionRecorded EventName = iota
	ExecutionDeleted
)

func ParseEventName(name string) (EventName, bool) {
	switch name {
	case "execution_recorded":
		return ExecutionRecorded, true
	case "execution_deleted":
		return ExecutionDeleted, true
	default:
		return -1, false
	}
}

func (name EventName) String() string {
	switch name {
	case ExecutionRecorded:
		return "execution_recorded"
	case ExecutionDeleted:
		return "execution_deleted"
	default:
		return "unknown"
	}
}

type baseEvent struct {
	ExecutionID ID        `json:"execution_id"`
	OccuredAt   time.Time `json:"occured_at"`
	name        EventName
}

func (e *baseEvent) EventName() string {
	return e.name.String()
}

// Topic is executions.<id>.<action>, e.g. executions.01J...recorded.
func (e *baseEvent) Topic() string {
	action := strings.TrimPrefix(e.name.String(), "execution_")
	return "executions." + e.ExecutionID.String() + "." + action
}

type ExecutionRecordedEvent struct {
	baseEvent
	Execution Execution `json:"execution"`
}

func NewExecutionRecordedEvent(e *Execution) *ExecutionRecordedEvent {
	return &ExecutionRecordedEvent{
		baseEvent: baseEvent{
			ExecutionID: e.ID,
			OccuredAt:   time.Now(),
			name:        ExecutionRecorded,
		},
		Execution: *e,
	}
}

type ExecutionDeletedEvent struct {
	baseEvent
}

func NewExecutionDeletedEvent(e *Execution) *ExecutionDeletedEvent {
	return &ExecutionDeletedEvent{
		baseEvent: baseEvent{
			ExecutionID: e.ID,
			OccuredAt:   e.DeletedAt,
			name:        ExecutionDeleted,
		},
	}
}
