package enums

import "fmt"

// SnapshotBackend selects the durable store for the local cart snapshot.
type SnapshotBackend string

const (
	SnapshotBackendSQLite SnapshotBackend = "sqlite"
	SnapshotBackendRedis  SnapshotBackend = "redis"
	SnapshotBackendMemory SnapshotBackend = "memory"
)

var validSnapshotBackends = []SnapshotBackend{
	SnapshotBackendSQLite,
	SnapshotBackendRedis,
	SnapshotBackendMemory,
}

// String implements fmt.Stringer.
func (s SnapshotBackend) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SnapshotBackend.
func (s SnapshotBackend) IsValid() bool {
	for _, candidate := range validSnapshotBackends {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSnapshotBackend converts raw input into a SnapshotBackend.
func ParseSnapshotBackend(value string) (SnapshotBackend, error) {
	for _, candidate := range validSnapshotBackends {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid snapshot backend %q", value)
}
