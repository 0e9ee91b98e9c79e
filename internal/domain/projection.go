package domain

import (
	"context"
	"fmt"
)

// GetUserView projects a user vertex: stored properties plus counts computed
// live from edge cardinality. viewer may be empty for anonymous reads.
func (s *Service) GetUserView(ctx context.Context, username, viewer string) (*UserView, error) {
	v, err := s.store.FindVertex(ctx, LabelUser, NormalizeKey(username))
	if err != nil {
		return nil, fmt.Errorf("project user: %w", err)
	}
	return s.projectUser(ctx, v, viewer)
}

func (s *Service) projectUser(ctx context.Context, v *Vertex, viewer string) (*UserView, error) {
	ref := v.Ref()

	numFollowers, err := s.store.CountIn(ctx, ref, EdgeFollows)
	if err != nil {
		return nil, fmt.Errorf("count followers: %w", err)
	}
	numFollowing, err := s.store.CountOut(ctx, ref, EdgeFollows)
	if err != nil {
		return nil, fmt.Errorf("count following: %w", err)
	}
	numShards, err := s.store.CountOut(ctx, ref, EdgeOwns)
	if err != nil {
		return nil, fmt.Errorf("count owned shards: %w", err)
	}
	numInheritedBy, err := s.store.CountIn(ctx, ref, EdgeInherits)
	if err != nil {
		return nil, fmt.Errorf("count inheritors: %w", err)
	}
	viewerFollows, err := s.viewerFollows(ctx, viewer, ref)
	if err != nil {
		return nil, err
	}

	return &UserView{
		Username:       v.Key,
		DisplayName:    v.Prop(PropDisplayName),
		Bio:            v.Prop(PropBio),
		Location:       v.Prop(PropLocation),
		Avatar:         v.Prop(PropAvatar),
		Banner:         v.Prop(PropBanner),
		Website:        v.Prop(PropWebsite),
		Verified:       v.BoolProp(PropVerified),
		Featured:       v.BoolProp(PropFeatured),
		CreatedAt:      v.TimeProp(PropCreatedAt),
		NumFollowers:   numFollowers,
		NumFollowing:   numFollowing,
		NumShards:      numShards,
		NumInheritedBy: numInheritedBy,
		ViewerFollows:  viewerFollows,
	}, nil
}

// GetShardView projects a shard vertex.
func (s *Service) GetShardView(ctx context.Context, name, viewer string) (*ShardView, error) {
	v, err := s.store.FindVertex(ctx, LabelShard, NormalizeKey(name))
	if err != nil {
		return nil, fmt.Errorf("project shard: %w", err)
	}
	return s.projectShard(ctx, v, viewer)
}

func (s *Service) projectShard(ctx context.Context, v *Vertex, viewer string) (*ShardView, error) {
	ref := v.Ref()

	numFollowers, err := s.store.CountIn(ctx, ref, EdgeFollows)
	if err != nil {
		return nil, fmt.Errorf("count followers: %w", err)
	}
	numInherits, err := s.store.CountOut(ctx, ref, EdgeInherits)
	if err != nil {
		return nil, fmt.Errorf("count inherits: %w", err)
	}
	numInheritedBy, err := s.store.CountIn(ctx, ref, EdgeInherits)
	if err != nil {
		return nil, fmt.Errorf("count inheritors: %w", err)
	}

	owners, err := s.store.InNeighbors(ctx, ref, EdgeOwns)
	if err != nil {
		return nil, fmt.Errorf("resolve owner: %w", err)
	}
	owner := ""
	if len(owners) > 0 {
		owner = owners[0].Key
	}

	viewerFollows, err := s.viewerFollows(ctx, viewer, ref)
	if err != nil {
		return nil, err
	}

	return &ShardView{
		ShardName:      v.Key,
		FriendlyName:   v.Prop(PropFriendlyName),
		Description:    v.Prop(PropDescription),
		Rules:          v.Prop(PropRules),
		Links:          v.Prop(PropLinks),
		Avatar:         v.Prop(PropAvatar),
		Banner:         v.Prop(PropBanner),
		Featured:       v.BoolProp(PropFeatured),
		CreatedAt:      v.TimeProp(PropCreatedAt),
		Owner:          owner,
		NumFollowers:   numFollowers,
		NumInherits:    numInherits,
		NumInheritedBy: numInheritedBy,
		ViewerFollows:  viewerFollows,
	}, nil
}

// GetPostView projects a post vertex.
func (s *Service) GetPostView(ctx context.Context, id string) (*PostView, error) {
	v, err := s.store.FindVertex(ctx, LabelPost, NormalizeKey(id))
	if err != nil {
		return nil, fmt.Errorf("project post: %w", err)
	}
	return s.projectPost(ctx, v)
}

func (s *Service) projectPost(ctx context.Context, v *Vertex) (*PostView, error) {
	ref := v.Ref()

	numUpvotes, err := s.store.CountIn(ctx, ref, EdgeUpvoted)
	if err != nil {
		return nil, fmt.Errorf("count upvotes: %w", err)
	}

	// Exactly one submitter per post. Anything else is write-path corruption
	// and must be surfaced, not patched.
	submitters, err := s.store.InNeighbors(ctx, ref, EdgeSubmitted)
	if err != nil {
		return nil, fmt.Errorf("resolve submitter: %w", err)
	}
	if len(submitters) != 1 {
		return nil, fmt.Errorf("post %q has %d submitters: %w", v.Key, len(submitters), ErrDataIntegrity)
	}

	view := &PostView{
		PostID:     v.Key,
		Title:      v.Prop(PropTitle),
		Filename:   v.Prop(PropFilename),
		ContentURL: v.Prop(PropContentURL),
		Body:       v.Prop(PropBody),
		CreatedAt:  v.TimeProp(PropCreatedAt),
		Author:     submitters[0].Key,
		NumUpvotes: numUpvotes,
	}

	placements, err := s.store.OutNeighbors(ctx, ref, EdgePostedIn)
	if err != nil {
		return nil, fmt.Errorf("resolve placement: %w", err)
	}
	if len(placements) > 1 {
		return nil, fmt.Errorf("post %q has %d placements: %w", v.Key, len(placements), ErrDataIntegrity)
	}
	if len(placements) == 1 {
		switch placements[0].Label {
		case LabelShard:
			view.PostedInShard = placements[0].Key
		case LabelUser:
			view.PostedInUser = placements[0].Key
		}
		return view, nil
	}

	parents, err := s.store.OutNeighbors(ctx, ref, EdgeCommentOn)
	if err != nil {
		return nil, fmt.Errorf("resolve parent post: %w", err)
	}
	if len(parents) > 1 {
		return nil, fmt.Errorf("post %q has %d parents: %w", v.Key, len(parents), ErrDataIntegrity)
	}
	if len(parents) == 1 {
		view.ParentPost = parents[0].Key
	}
	return view, nil
}

// projectPosts projects a batch of post vertices. All members must project
// cleanly; an integrity violation on any member fails the batch.
func (s *Service) projectPosts(ctx context.Context, vertices []*Vertex) ([]PostView, error) {
	views := make([]PostView, 0, len(vertices))
	for _, v := range vertices {
		view, err := s.projectPost(ctx, v)
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, nil
}

func (s *Service) viewerFollows(ctx context.Context, viewer string, target EntityRef) (bool, error) {
	if viewer == "" {
		return false, nil
	}
	follows, err := s.store.HasEdge(ctx, EdgeFollows, UserRef(viewer), target)
	if err != nil {
		return false, fmt.Errorf("check viewer follow: %w", err)
	}
	return follows, nil
}
