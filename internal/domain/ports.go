package domain

import "context"

// GraphStore is the traversal interface over the underlying property graph.
// All lookups are keyed by the lowercase unique identifier for the label.
// Implementations wrap transient backend failures so errors.Is(err,
// ErrStoreUnavailable) holds, and return ErrNotFound for missing vertices.
type GraphStore interface {
	// FindVertex looks up a vertex by label and unique key. Returns
	// ErrNotFound if no such vertex exists.
	FindVertex(ctx context.Context, label Label, key string) (*Vertex, error)

	// AddVertex creates a vertex with the given properties. Adding a vertex
	// that already exists returns the existing vertex unchanged.
	AddVertex(ctx context.Context, label Label, key string, props map[string]string) (*Vertex, error)

	// SetProperty sets a single property on an existing vertex.
	SetProperty(ctx context.Context, ref EntityRef, key, value string) error

	// ListVertices returns all vertices with the given label in a stable
	// (creation) order.
	ListVertices(ctx context.Context, label Label) ([]*Vertex, error)

	// OutNeighbors returns the targets of all outbound edges with the given
	// label, in a stable order. A missing source yields an empty slice.
	OutNeighbors(ctx context.Context, ref EntityRef, edge EdgeLabel) ([]*Vertex, error)

	// InNeighbors returns the sources of all inbound edges with the given
	// label, in a stable order.
	InNeighbors(ctx context.Context, ref EntityRef, edge EdgeLabel) ([]*Vertex, error)

	// CountOut counts outbound edges with the given label.
	CountOut(ctx context.Context, ref EntityRef, edge EdgeLabel) (int, error)

	// CountIn counts inbound edges with the given label.
	CountIn(ctx context.Context, ref EntityRef, edge EdgeLabel) (int, error)

	// HasEdge reports whether the (edge, from, to) triple exists.
	HasEdge(ctx context.Context, edge EdgeLabel, from, to EntityRef) (bool, error)

	// UpsertEdge creates an edge. Re-adding an existing edge is a no-op.
	UpsertEdge(ctx context.Context, edge EdgeLabel, from, to EntityRef) error

	// DropEdge removes an edge. Removing a non-existent edge is a no-op.
	DropEdge(ctx context.Context, edge EdgeLabel, from, to EntityRef) error
}
