package entity

import "stemsep/src/lib/werror"

type Status string

const (
	InvalidStatus Status = ""

	RequestedStatus  Status = "requested"
	ProcessingStatus Status = "processing"
	CompletedStatus  Status = "completed"
	ErrorStatus      Status = "error"
)

func ConvertToStatus(val string) (Status, error) {
	switch Status(val) {
	case RequestedStatus:
		return RequestedStatus, nil
	case ProcessingStatus:
		return ProcessingStatus, nil
	case CompletedStatus:
		return CompletedStatus, nil
	case ErrorStatus:
		return ErrorStatus, nil
	default:
		return InvalidStatus, werror.WrapError("Value does not match any song status", nil)
	}
}

// Song is one separation request tracked across the job chain.
// StemURLs is only populated once the run completes: stem label ->
// output format -> download URL.
type Song struct {
	ID             string
	SourceURL      string
	Status         Status
	StatusMessage  string
	Progress       int
	StatusDebugLog string
	StemURLs       map[string]map[string]string
}
