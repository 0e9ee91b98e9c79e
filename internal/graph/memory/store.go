// Package memory provides an in-process GraphStore backed by maps. It is the
// default development backend and the fixture store for engine tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/shardlabs/shardfeed/internal/domain"
)

type edgeKey struct {
	label domain.EdgeLabel
	from  domain.EntityRef
	to    domain.EntityRef
}

// Store implements domain.GraphStore with mutex-guarded maps. Adjacency
// slices preserve insertion order so listings and neighbor walks are stable.
type Store struct {
	mu       sync.RWMutex
	vertices map[domain.EntityRef]*domain.Vertex
	order    map[domain.Label][]domain.EntityRef
	edges    map[edgeKey]struct{}
	out      map[domain.EntityRef]map[domain.EdgeLabel][]domain.EntityRef
	in       map[domain.EntityRef]map[domain.EdgeLabel][]domain.EntityRef
}

// NewStore creates an empty in-memory graph store.
func NewStore() *Store {
	return &Store{
		vertices: make(map[domain.EntityRef]*domain.Vertex),
		order:    make(map[domain.Label][]domain.EntityRef),
		edges:    make(map[edgeKey]struct{}),
		out:      make(map[domain.EntityRef]map[domain.EdgeLabel][]domain.EntityRef),
		in:       make(map[domain.EntityRef]map[domain.EdgeLabel][]domain.EntityRef),
	}
}

func (s *Store) FindVertex(_ context.Context, label domain.Label, key string) (*domain.Vertex, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vertices[domain.EntityRef{Label: label, Key: key}]
	if !ok {
		return nil, fmt.Errorf("%s %q: %w", label, key, domain.ErrNotFound)
	}
	return copyVertex(v), nil
}

func (s *Store) AddVertex(_ context.Context, label domain.Label, key string, props map[string]string) (*domain.Vertex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref := domain.EntityRef{Label: label, Key: key}
	if existing, ok := s.vertices[ref]; ok {
		return copyVertex(existing), nil
	}

	v := &domain.Vertex{Label: label, Key: key, Props: make(map[string]string, len(props))}
	for k, val := range props {
		if val != "" {
			v.Props[k] = val
		}
	}
	s.vertices[ref] = v
	s.order[label] = append(s.order[label], ref)
	return copyVertex(v), nil
}

func (s *Store) SetProperty(_ context.Context, ref domain.EntityRef, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.vertices[ref]
	if !ok {
		return fmt.Errorf("%s %q: %w", ref.Label, ref.Key, domain.ErrNotFound)
	}
	v.Props[key] = value
	return nil
}

func (s *Store) ListVertices(_ context.Context, label domain.Label) ([]*domain.Vertex, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	refs := s.order[label]
	vertices := make([]*domain.Vertex, 0, len(refs))
	for _, ref := range refs {
		vertices = append(vertices, copyVertex(s.vertices[ref]))
	}
	return vertices, nil
}

func (s *Store) OutNeighbors(_ context.Context, ref domain.EntityRef, edge domain.EdgeLabel) ([]*domain.Vertex, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.neighbors(s.out, ref, edge), nil
}

func (s *Store) InNeighbors(_ context.Context, ref domain.EntityRef, edge domain.EdgeLabel) ([]*domain.Vertex, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.neighbors(s.in, ref, edge), nil
}

func (s *Store) CountOut(_ context.Context, ref domain.EntityRef, edge domain.EdgeLabel) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.out[ref][edge]), nil
}

func (s *Store) CountIn(_ context.Context, ref domain.EntityRef, edge domain.EdgeLabel) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.in[ref][edge]), nil
}

func (s *Store) HasEdge(_ context.Context, edge domain.EdgeLabel, from, to domain.EntityRef) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.edges[edgeKey{label: edge, from: from, to: to}]
	return ok, nil
}

func (s *Store) UpsertEdge(_ context.Context, edge domain.EdgeLabel, from, to domain.EntityRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.vertices[from]; !ok {
		return fmt.Errorf("edge source %s %q: %w", from.Label, from.Key, domain.ErrNotFound)
	}
	if _, ok := s.vertices[to]; !ok {
		return fmt.Errorf("edge target %s %q: %w", to.Label, to.Key, domain.ErrNotFound)
	}

	k := edgeKey{label: edge, from: from, to: to}
	if _, ok := s.edges[k]; ok {
		return nil
	}
	s.edges[k] = struct{}{}

	if s.out[from] == nil {
		s.out[from] = make(map[domain.EdgeLabel][]domain.EntityRef)
	}
	s.out[from][edge] = append(s.out[from][edge], to)

	if s.in[to] == nil {
		s.in[to] = make(map[domain.EdgeLabel][]domain.EntityRef)
	}
	s.in[to][edge] = append(s.in[to][edge], from)
	return nil
}

func (s *Store) DropEdge(_ context.Context, edge domain.EdgeLabel, from, to domain.EntityRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := edgeKey{label: edge, from: from, to: to}
	if _, ok := s.edges[k]; !ok {
		return nil
	}
	delete(s.edges, k)
	s.out[from][edge] = removeRef(s.out[from][edge], to)
	s.in[to][edge] = removeRef(s.in[to][edge], from)
	return nil
}

func (s *Store) neighbors(adj map[domain.EntityRef]map[domain.EdgeLabel][]domain.EntityRef, ref domain.EntityRef, edge domain.EdgeLabel) []*domain.Vertex {
	refs := adj[ref][edge]
	vertices := make([]*domain.Vertex, 0, len(refs))
	for _, r := range refs {
		vertices = append(vertices, copyVertex(s.vertices[r]))
	}
	return vertices
}

func removeRef(refs []domain.EntityRef, target domain.EntityRef) []domain.EntityRef {
	for i, r := range refs {
		if r == target {
			return append(refs[:i], refs[i+1:]...)
		}
	}
	return refs
}

func copyVertex(v *domain.Vertex) *domain.Vertex {
	props := make(map[string]string, len(v.Props))
	for k, val := range v.Props {
		props[k] = val
	}
	return &domain.Vertex{Label: v.Label, Key: v.Key, Props: props}
}
