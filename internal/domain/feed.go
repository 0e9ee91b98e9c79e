package domain

import (
	"context"
	"fmt"
)

// AssembleFeed produces the set of posts visible to a viewer: everything
// posted into an entity the viewer follows directly, plus everything posted
// into the downward inheritance closure of those follows. Posts reachable via
// multiple paths appear once. The result is unsorted; callers rank it with
// SortPostsByScore and paginate after ranking.
func (s *Service) AssembleFeed(ctx context.Context, viewer string) ([]PostView, error) {
	viewerRef := UserRef(viewer)
	if _, err := s.store.FindVertex(ctx, LabelUser, viewerRef.Key); err != nil {
		return nil, fmt.Errorf("feed viewer: %w", err)
	}

	direct, err := s.store.OutNeighbors(ctx, viewerRef, EdgeFollows)
	if err != nil {
		return nil, fmt.Errorf("load follows: %w", err)
	}
	if len(direct) == 0 {
		return []PostView{}, nil
	}

	roots := make([]EntityRef, 0, len(direct))
	for _, d := range direct {
		roots = append(roots, d.Ref())
	}

	closure, err := s.Closure(ctx, roots, Downward)
	if err != nil {
		return nil, fmt.Errorf("feed closure: %w", err)
	}

	scope := make([]EntityRef, 0, len(roots)+len(closure))
	scope = append(scope, roots...)
	for ref := range closure {
		scope = append(scope, ref)
	}

	seen := make(map[string]struct{})
	var candidates []*Vertex
	for _, entity := range scope {
		posts, err := s.store.InNeighbors(ctx, entity, EdgePostedIn)
		if err != nil {
			return nil, fmt.Errorf("collect posts in %s %q: %w", entity.Label, entity.Key, err)
		}
		for _, p := range posts {
			if _, ok := seen[p.Key]; ok {
				continue
			}
			seen[p.Key] = struct{}{}
			candidates = append(candidates, p)
		}
	}

	views, err := s.projectPosts(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("project feed: %w", err)
	}
	if views == nil {
		views = []PostView{}
	}

	s.logger.Debug("feed assembled", "viewer", viewerRef.Key,
		"direct_follows", len(roots), "closure_size", len(closure),
		"posts", len(views))
	return views, nil
}

// AssembleRankedFeed assembles the viewer's feed and orders it by popularity
// score against the engine clock, so callers paginate a fully ranked list.
func (s *Service) AssembleRankedFeed(ctx context.Context, viewer string) ([]PostView, error) {
	posts, err := s.AssembleFeed(ctx, viewer)
	if err != nil {
		return nil, err
	}
	SortPostsByScore(posts, s.now())
	return posts, nil
}
