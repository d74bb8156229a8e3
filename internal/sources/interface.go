package sources

import (
	"context"

	"multascan/pkg/models"
)

// Query carries the cleaned vehicle identifier. The HTTP boundary guarantees
// it is uppercased and matches one of the two accepted plate layouts;
// adapters only re-check their own format restrictions.
type Query struct {
	Plate string
}

// ResultKind tags the outcome of one adapter invocation
type ResultKind int

const (
	KindFound ResultKind = iota
	KindEmpty
	KindFailed
)

// Result is the tagged outcome of Adapter.Fetch. Empty and a Found with zero
// records are the same observable outcome to callers; adapters return Empty
// when the portal explicitly signals "no records".
type Result struct {
	Kind    ResultKind
	Records []models.ViolationRecord
	Err     *SourceError
}

// Found builds a result carrying records
func Found(records []models.ViolationRecord) Result {
	return Result{Kind: KindFound, Records: records}
}

// Empty builds a result for an explicit "no records" signal
func Empty() Result {
	return Result{Kind: KindEmpty, Records: []models.ViolationRecord{}}
}

// Failed builds a failed result
func Failed(err *SourceError) Result {
	return Result{Kind: KindFailed, Err: err}
}

// Adapter is one self-contained fetch-and-normalize implementation for a
// single upstream portal. Implementations must not keep mutable state
// between invocations; every Fetch builds a fresh session.
type Adapter interface {
	// ID returns the source identifier used for dispatch
	ID() string

	// Jurisdiction returns the human-readable source label
	Jurisdiction() string

	// Fetch runs the portal choreography for one query. All failures are
	// returned inside the Result; Fetch never panics past its boundary.
	Fetch(ctx context.Context, query Query) Result
}
