package domain

import (
	"context"
	"fmt"
	"sort"
)

// Order selects how a listing query ranks its entities.
type Order string

const (
	// OrderNewest ranks by creation time descending.
	OrderNewest Order = "newest"

	// OrderPopular ranks users and shards by inbound follow count and posts
	// by popularity score, descending. Without an explicit range the result
	// is truncated to a fixed top N.
	OrderPopular Order = "popular"

	// OrderFeatured restricts to entities with the featured flag, newest
	// first. Not defined for posts.
	OrderFeatured Order = "featured"
)

// ListRanked returns a ranked page of all entities with the given label.
// The range is validated before any traversal. For newest and featured
// listings the range is applied before projection; popular listings rank on
// derived counts first and truncate afterwards.
func (s *Service) ListRanked(ctx context.Context, label Label, order Order, first, count *int) ([]EntityView, error) {
	low, high, err := PageRange(first, count)
	if err != nil {
		return nil, err
	}

	vertices, err := s.store.ListVertices(ctx, label)
	if err != nil {
		return nil, fmt.Errorf("list %s vertices: %w", label, err)
	}

	switch order {
	case OrderNewest:
		sortByCreatedAt(vertices)
	case OrderFeatured:
		if label == LabelPost {
			return nil, fmt.Errorf("featured listing is not defined for posts")
		}
		vertices = filterFeatured(vertices)
		sortByCreatedAt(vertices)
	case OrderPopular:
		vertices, err = s.rankPopular(ctx, label, vertices)
		if err != nil {
			return nil, err
		}
		// Popular listings default to a fixed top N unless the caller asked
		// for an explicit range.
		if first == nil && count == nil {
			high = s.popularLimit
		}
	default:
		return nil, fmt.Errorf("unknown listing order %q", order)
	}

	low, high = ClampRange(len(vertices), low, high)
	return s.projectViews(ctx, vertices[low:high])
}

// rankPopular orders users and shards by inbound follow count, posts by
// popularity score. Stable sort keeps creation order on ties.
func (s *Service) rankPopular(ctx context.Context, label Label, vertices []*Vertex) ([]*Vertex, error) {
	if label == LabelPost {
		now := s.now()
		type scored struct {
			v     *Vertex
			score float64
		}
		items := make([]scored, 0, len(vertices))
		for _, v := range vertices {
			upvotes, err := s.store.CountIn(ctx, v.Ref(), EdgeUpvoted)
			if err != nil {
				return nil, fmt.Errorf("count upvotes: %w", err)
			}
			items = append(items, scored{v: v, score: Score(upvotes, v.TimeProp(PropCreatedAt), now)})
		}
		sort.SliceStable(items, func(i, j int) bool { return items[i].score > items[j].score })
		ranked := make([]*Vertex, len(items))
		for i, it := range items {
			ranked[i] = it.v
		}
		return ranked, nil
	}

	type counted struct {
		v         *Vertex
		followers int
	}
	items := make([]counted, 0, len(vertices))
	for _, v := range vertices {
		followers, err := s.store.CountIn(ctx, v.Ref(), EdgeFollows)
		if err != nil {
			return nil, fmt.Errorf("count followers: %w", err)
		}
		items = append(items, counted{v: v, followers: followers})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].followers > items[j].followers })
	ranked := make([]*Vertex, len(items))
	for i, it := range items {
		ranked[i] = it.v
	}
	return ranked, nil
}

func (s *Service) projectViews(ctx context.Context, vertices []*Vertex) ([]EntityView, error) {
	views := make([]EntityView, 0, len(vertices))
	for _, v := range vertices {
		switch v.Label {
		case LabelUser:
			u, err := s.projectUser(ctx, v, "")
			if err != nil {
				return nil, err
			}
			views = append(views, EntityView{User: u})
		case LabelShard:
			sh, err := s.projectShard(ctx, v, "")
			if err != nil {
				return nil, err
			}
			views = append(views, EntityView{Shard: sh})
		case LabelPost:
			p, err := s.projectPost(ctx, v)
			if err != nil {
				return nil, err
			}
			views = append(views, EntityView{Post: p})
		}
	}
	return views, nil
}

func sortByCreatedAt(vertices []*Vertex) {
	sort.SliceStable(vertices, func(i, j int) bool {
		return vertices[i].TimeProp(PropCreatedAt).After(vertices[j].TimeProp(PropCreatedAt))
	})
}

func filterFeatured(vertices []*Vertex) []*Vertex {
	featured := vertices[:0:0]
	for _, v := range vertices {
		if v.BoolProp(PropFeatured) {
			featured = append(featured, v)
		}
	}
	return featured
}
