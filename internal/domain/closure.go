package domain

import (
	"context"
	"fmt"
)

// Direction selects which way an inheritance closure expands.
type Direction string

const (
	// Downward expands outbound inherits edges: everything whose content is
	// in scope for the roots. Used for feed assembly.
	Downward Direction = "downward"

	// Upward expands inbound inherits edges and then collects direct
	// followers of every reached shard: everyone who sees the root's content
	// through inheritance. Used for inherited-follower counts.
	Upward Direction = "upward"
)

// Closure computes the transitive closure of the inheritance DAG from the
// given roots. The roots themselves are not part of the result. Expansion is
// breadth-first with a visited set keyed by (label, key), so it terminates
// even if data errors have introduced cycles. Result ordering is set
// semantics; callers that need ordering apply it downstream.
func (s *Service) Closure(ctx context.Context, roots []EntityRef, dir Direction) (map[EntityRef]struct{}, error) {
	switch dir {
	case Downward:
		return s.closureDownward(ctx, roots)
	case Upward:
		return s.closureUpward(ctx, roots)
	default:
		return nil, fmt.Errorf("unknown closure direction %q", dir)
	}
}

// GetClosure resolves an entity and returns its inheritance closure, for the
// follower/inheritor listing endpoints.
func (s *Service) GetClosure(ctx context.Context, ref EntityRef, dir Direction) (map[EntityRef]struct{}, error) {
	if _, err := s.store.FindVertex(ctx, ref.Label, ref.Key); err != nil {
		return nil, fmt.Errorf("closure root: %w", err)
	}
	return s.Closure(ctx, []EntityRef{ref}, dir)
}

// closureDownward accumulates every shard and user reachable by repeatedly
// following outbound inherits edges from any shard in the frontier.
func (s *Service) closureDownward(ctx context.Context, roots []EntityRef) (map[EntityRef]struct{}, error) {
	visited := make(map[EntityRef]struct{}, len(roots))
	queue := make([]EntityRef, 0, len(roots))
	for _, r := range roots {
		if _, ok := visited[r]; ok {
			continue
		}
		visited[r] = struct{}{}
		queue = append(queue, r)
	}

	result := make(map[EntityRef]struct{})
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		// Only shards carry outbound inherits edges.
		if current.Label != LabelShard {
			continue
		}

		targets, err := s.store.OutNeighbors(ctx, current, EdgeInherits)
		if err != nil {
			return nil, fmt.Errorf("expand closure at %s %q: %w", current.Label, current.Key, err)
		}
		for _, t := range targets {
			ref := t.Ref()
			if _, ok := visited[ref]; ok {
				continue
			}
			if len(visited) >= s.maxVisited {
				return nil, fmt.Errorf("closure from %d roots: %w", len(roots), ErrClosureTooLarge)
			}
			visited[ref] = struct{}{}
			result[ref] = struct{}{}
			queue = append(queue, ref)
		}
	}
	return result, nil
}

// closureUpward accumulates the roots plus every shard that transitively
// inherits them, then returns the set of users with a direct follows edge
// into any accumulated entity. A user root is excluded from its own follower
// set: following your own inherited content must not inflate your count.
func (s *Service) closureUpward(ctx context.Context, roots []EntityRef) (map[EntityRef]struct{}, error) {
	visited := make(map[EntityRef]struct{}, len(roots))
	queue := make([]EntityRef, 0, len(roots))
	for _, r := range roots {
		if _, ok := visited[r]; ok {
			continue
		}
		visited[r] = struct{}{}
		queue = append(queue, r)
	}

	// Phase one: the roots and every shard transitively inheriting them.
	scope := make([]EntityRef, 0, len(queue))
	scope = append(scope, queue...)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		inheritors, err := s.store.InNeighbors(ctx, current, EdgeInherits)
		if err != nil {
			return nil, fmt.Errorf("expand inheritors of %s %q: %w", current.Label, current.Key, err)
		}
		for _, in := range inheritors {
			ref := in.Ref()
			if ref.Label != LabelShard {
				continue
			}
			if _, ok := visited[ref]; ok {
				continue
			}
			if len(visited) >= s.maxVisited {
				return nil, fmt.Errorf("closure from %d roots: %w", len(roots), ErrClosureTooLarge)
			}
			visited[ref] = struct{}{}
			scope = append(scope, ref)
			queue = append(queue, ref)
		}
	}

	// Phase two: direct followers of everything in scope.
	followers := make(map[EntityRef]struct{})
	for _, entity := range scope {
		direct, err := s.store.InNeighbors(ctx, entity, EdgeFollows)
		if err != nil {
			return nil, fmt.Errorf("collect followers of %s %q: %w", entity.Label, entity.Key, err)
		}
		for _, f := range direct {
			ref := f.Ref()
			if isRoot(roots, ref) {
				continue
			}
			followers[ref] = struct{}{}
		}
	}
	return followers, nil
}

func isRoot(roots []EntityRef, ref EntityRef) bool {
	for _, r := range roots {
		if r == ref {
			return true
		}
	}
	return false
}
