package testutil

// FixedRunID generates the same run id every time.
//
// This enables deterministic test execution and golden snapshot comparison.
// The same scenario with the same FixedRunID produces byte-identical
// stored runs.
//
// Unlike store.FixedGenerator which returns ids in sequence, this generator
// always returns the same id. The store keeps the first run written under
// an id, so repeated writes with a FixedRunID are idempotent.
//
// Thread-safety: FixedRunID is stateless and safe for concurrent use.
type FixedRunID struct {
	id string
}

// NewFixedRunID creates a new fixed run id generator.
//
// If id is empty, Generate() returns "test-run-default".
func NewFixedRunID(id string) *FixedRunID {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunID{id: id}
}

// Generate returns the fixed run id.
//
// Implements store.RunIDGenerator interface.
func (g *FixedRunID) Generate() string {
	return g.id
}
