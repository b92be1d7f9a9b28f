package enums

import "fmt"

// OpPhase tracks the lifecycle of a cart operation inside the sync engine.
type OpPhase string

const (
	OpPhaseIdle    OpPhase = "idle"
	OpPhasePending OpPhase = "pending"
	OpPhaseSettled OpPhase = "settled"
	OpPhaseFailed  OpPhase = "failed"
)

var validOpPhases = []OpPhase{
	OpPhaseIdle,
	OpPhasePending,
	OpPhaseSettled,
	OpPhaseFailed,
}

// String implements fmt.Stringer.
func (p OpPhase) String() string {
	return string(p)
}

// IsValid reports whether the value is a known OpPhase.
func (p OpPhase) IsValid() bool {
	for _, candidate := range validOpPhases {
		if candidate == p {
			return true
		}
	}
	return false
}

// Terminal reports whether the phase ends an operation.
func (p OpPhase) Terminal() bool {
	return p == OpPhaseSettled || p == OpPhaseFailed
}

// ParseOpPhase converts raw input into an OpPhase.
func ParseOpPhase(value string) (OpPhase, error) {
	for _, candidate := range validOpPhases {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid op phase %q", value)
}
