package entity

import "stemsep/src/lib/werror"

// TaskStatus is the client-observed status of a remote separation
// task. The remote service owns all transitions; the client only ever
// reads them back while polling.
type TaskStatus string

const (
	InvalidStatus TaskStatus = ""

	PendingStatus    TaskStatus = "pending"
	ProcessingStatus TaskStatus = "processing"
	CompletedStatus  TaskStatus = "completed"
	FailedStatus     TaskStatus = "failed"
	CancelledStatus  TaskStatus = "cancelled"
)

func ConvertToTaskStatus(val string) (TaskStatus, error) {
	switch TaskStatus(val) {
	case PendingStatus:
		return PendingStatus, nil
	case ProcessingStatus:
		return ProcessingStatus, nil
	case CompletedStatus:
		return CompletedStatus, nil
	case FailedStatus:
		return FailedStatus, nil
	case CancelledStatus:
		return CancelledStatus, nil
	default:
		return InvalidStatus, werror.WrapError("Value does not match any task status", nil)
	}
}

// StemResult is one separated stem: a label plus a download URL per
// output format. Immutable once produced.
type StemResult struct {
	Name string
	URLs map[string]string
}

// SeparationTask is one poll's view of the remote task.
type SeparationTask struct {
	ID           string
	Status       TaskStatus
	Stems        []StemResult
	ErrorMessage string
}
