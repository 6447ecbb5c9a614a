package query

import "time"

// Status is the lifecycle state of one cache key.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// Snapshot is what a watcher of a key observes. While a refetch is loading,
// Data still holds the last successful value.
type Snapshot struct {
	Key       Key
	Status    Status
	Data      any
	Err       error
	UpdatedAt time.Time
	Stale     bool
}

// Stats counts cache activity.
type Stats struct {
	Hits    int64
	Misses  int64
	Fetches int64
}
