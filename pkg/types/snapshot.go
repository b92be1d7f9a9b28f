package types

// LocalCartSnapshot is the minimal advisory mirror kept in durable local
// storage so the badge can paint before the authoritative cart loads. It is
// never a source of truth and is overwritten on every confirmed mutation.
type LocalCartSnapshot struct {
	TotalItems  int   `json:"totalItems"`
	LastUpdated int64 `json:"lastUpdated"`
}

// Supersedes reports whether the snapshot replaces other. An equal unix
// millisecond timestamp counts as superseding: two writes landing in the
// same millisecond resolve in favor of the later writer.
func (s LocalCartSnapshot) Supersedes(other LocalCartSnapshot) bool {
	return s.LastUpdated >= other.LastUpdated
}
