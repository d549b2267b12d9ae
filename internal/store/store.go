package store

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	// ErrDocNotFound is returned by Update when the target document does not
	// exist. Plain Get reports absence as a nil document instead.
	ErrDocNotFound = errors.New("document not found")

	ErrStoreClosed = errors.New("store is closed")
)

// Operator is a field comparison operator supported by Query.Where.
type Operator string

const (
	OpEqual          Operator = "=="
	OpGreater        Operator = ">"
	OpGreaterOrEqual Operator = ">="
	OpLess           Operator = "<"
	OpLessOrEqual    Operator = "<="
	// OpArrayContains matches documents whose array field contains the value.
	OpArrayContains Operator = "array-contains"
)

// Direction orders query results on a single field.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// Document is a stored record: an opaque id plus its raw JSON body.
type Document struct {
	ID   string
	Data json.RawMessage
}

// Decode unmarshals the document body into v.
func (d Document) Decode(v any) error {
	return json.Unmarshal(d.Data, v)
}

// Snapshot is one delivery of a live query: the full matching result set at a
// point in time, or a terminal error after which the channel closes.
type Snapshot struct {
	Docs []Document
	Err  error
}

// Store is the document-store capability the repositories are built on.
// Exactly one implementation exists (Badger-backed); the interface keeps the
// backing engine swappable without touching callers.
type Store interface {
	Collection(name string) Collection

	// RunTransaction executes fn atomically: either every write inside fn is
	// visible to readers, or none is. Used for multi-field invariants that
	// must never be observed half-applied.
	RunTransaction(ctx context.Context, fn func(tx Tx) error) error

	Close() error
}

// Collection addresses one named set of documents.
type Collection interface {
	Name() string

	// Get returns the document with the given id, or nil when absent.
	Get(ctx context.Context, id string) (*Document, error)

	// Set writes v (JSON-encoded) as the full document body.
	Set(ctx context.Context, id string, v any) error

	// Update merges the given fields into an existing document atomically.
	// Returns ErrDocNotFound when the document does not exist.
	Update(ctx context.Context, id string, fields map[string]any) error

	Delete(ctx context.Context, id string) error

	Query() Query
}

// Query composes conjunctive field filters, single-field ordering and
// limit/offset pagination over a collection. Builders return a new Query;
// the receiver is never mutated.
type Query interface {
	Where(field string, op Operator, value any) Query
	OrderBy(field string, dir Direction) Query
	Limit(n int) Query
	Offset(n int) Query

	// GetAll evaluates the query once.
	GetAll(ctx context.Context) ([]Document, error)

	// Subscribe evaluates the query and keeps it standing: the channel
	// receives the initial result set, then the full re-evaluated result set
	// after every change to the collection, until ctx is cancelled. The
	// underlying listener is released and the channel closed when the
	// subscription ends; a store failure is delivered as a Snapshot with Err
	// set before closing.
	Subscribe(ctx context.Context) (<-chan Snapshot, error)
}

// Tx exposes reads and writes inside a RunTransaction callback.
type Tx interface {
	Get(collection, id string) (*Document, error)
	Set(collection, id string, v any) error
	Delete(collection, id string) error
}
