package database

// Task status values shared by the repository and workers.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusError      = "error"
)

// IsValidStatus checks if a string is a known task status.
func IsValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusDone, StatusError:
		return true
	}
	return false
}
