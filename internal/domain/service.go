package domain

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	// defaultMaxVisited bounds closure expansion against pathological fan-in.
	defaultMaxVisited = 10000

	// defaultPopularLimit is the top-N size for popular listings when the
	// caller gives no explicit range.
	defaultPopularLimit = 5
)

// ServiceConfig carries the tunable knobs of the engine. Zero values are
// replaced with defaults by NewService.
type ServiceConfig struct {
	// MaxVisited caps the number of vertices a single closure expansion may
	// visit before failing with ErrClosureTooLarge.
	MaxVisited int

	// PopularLimit is the default top-N size for popular listings.
	PopularLimit int

	// Events receives write-path events. May be nil.
	Events EventSink

	// Now supplies the clock, overridable in tests. Defaults to time.Now.
	Now func() time.Time
}

// Service is the graph aggregation and ranking engine. It is stateless per
// request: every projection, closure, and feed is computed from current graph
// state, so it is safe to share across concurrent requests.
type Service struct {
	store        GraphStore
	logger       *slog.Logger
	maxVisited   int
	popularLimit int
	events       EventSink
	now          func() time.Time
}

// NewService creates the engine over the given graph store.
func NewService(store GraphStore, cfg ServiceConfig, logger *slog.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("graph store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxVisited <= 0 {
		cfg.MaxVisited = defaultMaxVisited
	}
	if cfg.PopularLimit <= 0 {
		cfg.PopularLimit = defaultPopularLimit
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Service{
		store:        store,
		logger:       logger,
		maxVisited:   cfg.MaxVisited,
		popularLimit: cfg.PopularLimit,
		events:       cfg.Events,
		now:          cfg.Now,
	}, nil
}

// CreateUser registers a user. The username is lowercased to form the
// identity key; the original casing is kept as the display name.
func (s *Service) CreateUser(ctx context.Context, username, displayName string) (*UserView, error) {
	key := NormalizeKey(username)
	if key == "" {
		return nil, fmt.Errorf("username is required")
	}
	if displayName == "" {
		displayName = username
	}

	if _, err := s.store.FindVertex(ctx, LabelUser, key); err == nil {
		return nil, fmt.Errorf("user %q: %w", key, ErrAlreadyExists)
	} else if !IsNotFound(err) {
		return nil, err
	}

	_, err := s.store.AddVertex(ctx, LabelUser, key, map[string]string{
		PropUsername:    key,
		PropDisplayName: displayName,
		PropCreatedAt:   s.now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user created", "username", key)
	return s.GetUserView(ctx, key, "")
}

// CreateShard creates a shard owned by the given user.
func (s *Service) CreateShard(ctx context.Context, owner, shardName, friendlyName string) (*ShardView, error) {
	ownerRef := UserRef(owner)
	key := NormalizeKey(shardName)
	if key == "" {
		return nil, fmt.Errorf("shard name is required")
	}
	if friendlyName == "" {
		friendlyName = shardName
	}

	if _, err := s.store.FindVertex(ctx, LabelUser, ownerRef.Key); err != nil {
		return nil, fmt.Errorf("shard owner: %w", err)
	}
	if _, err := s.store.FindVertex(ctx, LabelShard, key); err == nil {
		return nil, fmt.Errorf("shard %q: %w", key, ErrAlreadyExists)
	} else if !IsNotFound(err) {
		return nil, err
	}

	shard, err := s.store.AddVertex(ctx, LabelShard, key, map[string]string{
		PropShardName:    key,
		PropFriendlyName: friendlyName,
		PropCreatedAt:    s.now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("create shard: %w", err)
	}
	if err := s.store.UpsertEdge(ctx, EdgeOwns, ownerRef, shard.Ref()); err != nil {
		return nil, fmt.Errorf("set shard owner: %w", err)
	}

	s.logger.Info("shard created", "shard", key, "owner", ownerRef.Key)
	return s.GetShardView(ctx, key, "")
}

// NewPost describes a post to create. Exactly one of ShardName, ProfileUser,
// and ParentPost must be set: a post is placed in a shard, on a user profile,
// or as a reply to another post.
type NewPost struct {
	Title      string
	Filename   string
	ContentURL string
	Body       string

	ShardName   string
	ProfileUser string
	ParentPost  string
}

// CreatePost submits a post authored by the given user. The post is immutable
// once created except for derived edge-based metrics.
func (s *Service) CreatePost(ctx context.Context, author string, p NewPost) (*PostView, error) {
	authorRef := UserRef(author)
	if _, err := s.store.FindVertex(ctx, LabelUser, authorRef.Key); err != nil {
		return nil, fmt.Errorf("post author: %w", err)
	}

	target, err := s.resolvePlacement(ctx, p)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	post, err := s.store.AddVertex(ctx, LabelPost, id, map[string]string{
		PropPostID:     id,
		PropTitle:      p.Title,
		PropFilename:   p.Filename,
		PropContentURL: p.ContentURL,
		PropBody:       p.Body,
		PropCreatedAt:  s.now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	if err := s.store.UpsertEdge(ctx, EdgeSubmitted, authorRef, post.Ref()); err != nil {
		return nil, fmt.Errorf("set post author: %w", err)
	}
	placement := EdgePostedIn
	if target.Label == LabelPost {
		placement = EdgeCommentOn
	}
	if err := s.store.UpsertEdge(ctx, placement, post.Ref(), target); err != nil {
		return nil, fmt.Errorf("place post: %w", err)
	}

	s.logger.Info("post created", "postId", id, "author", authorRef.Key,
		"target", target.Key)
	s.publish(EventPostCreated, authorRef.Key, id)
	return s.GetPostView(ctx, id)
}

// resolvePlacement validates the mutually exclusive placement target of a new
// post and resolves it to an existing vertex.
func (s *Service) resolvePlacement(ctx context.Context, p NewPost) (EntityRef, error) {
	set := 0
	var target EntityRef
	if p.ShardName != "" {
		set++
		target = ShardRef(p.ShardName)
	}
	if p.ProfileUser != "" {
		set++
		target = UserRef(p.ProfileUser)
	}
	if p.ParentPost != "" {
		set++
		target = PostRef(p.ParentPost)
	}
	if set != 1 {
		return EntityRef{}, fmt.Errorf("post placement: exactly one of shard, profile, or parent post is required")
	}
	if _, err := s.store.FindVertex(ctx, target.Label, target.Key); err != nil {
		return EntityRef{}, fmt.Errorf("post placement: %w", err)
	}
	return target, nil
}

// Follow subscribes a user to another user or a shard. Idempotent.
func (s *Service) Follow(ctx context.Context, follower string, target EntityRef) error {
	followerRef := UserRef(follower)
	if target.Label != LabelUser && target.Label != LabelShard {
		return fmt.Errorf("follow target must be a user or shard")
	}
	if followerRef == target {
		return fmt.Errorf("users cannot follow themselves")
	}
	if _, err := s.store.FindVertex(ctx, LabelUser, followerRef.Key); err != nil {
		return fmt.Errorf("follower: %w", err)
	}
	if _, err := s.store.FindVertex(ctx, target.Label, target.Key); err != nil {
		return fmt.Errorf("follow target: %w", err)
	}
	if err := s.store.UpsertEdge(ctx, EdgeFollows, followerRef, target); err != nil {
		return fmt.Errorf("follow: %w", err)
	}
	s.publish(EventFollow, followerRef.Key, string(target.Label)+":"+target.Key)
	return nil
}

// Unfollow removes a subscription. Removing a non-existent one is a no-op.
func (s *Service) Unfollow(ctx context.Context, follower string, target EntityRef) error {
	if err := s.store.DropEdge(ctx, EdgeFollows, UserRef(follower), target); err != nil {
		return fmt.Errorf("unfollow: %w", err)
	}
	return nil
}

// Upvote records an upvote. At most one per (user, post) pair; idempotent.
func (s *Service) Upvote(ctx context.Context, username, postID string) error {
	userRef := UserRef(username)
	postRef := PostRef(postID)
	if _, err := s.store.FindVertex(ctx, LabelUser, userRef.Key); err != nil {
		return fmt.Errorf("upvoter: %w", err)
	}
	if _, err := s.store.FindVertex(ctx, LabelPost, postRef.Key); err != nil {
		return fmt.Errorf("upvote target: %w", err)
	}
	if err := s.store.UpsertEdge(ctx, EdgeUpvoted, userRef, postRef); err != nil {
		return fmt.Errorf("upvote: %w", err)
	}
	s.publish(EventUpvote, userRef.Key, postRef.Key)
	return nil
}

// Unupvote withdraws an upvote. Idempotent.
func (s *Service) Unupvote(ctx context.Context, username, postID string) error {
	if err := s.store.DropEdge(ctx, EdgeUpvoted, UserRef(username), PostRef(postID)); err != nil {
		return fmt.Errorf("unupvote: %w", err)
	}
	return nil
}

// AddInheritance makes a shard include the content (and, for follower counts,
// the followers) of another shard or a user. Self-inheritance is rejected;
// cycles introduced indirectly are tolerated by the closure resolver.
func (s *Service) AddInheritance(ctx context.Context, shardName string, target EntityRef) error {
	shardRef := ShardRef(shardName)
	if target.Label != LabelUser && target.Label != LabelShard {
		return fmt.Errorf("inheritance target must be a user or shard")
	}
	if shardRef == target {
		return fmt.Errorf("shards cannot inherit themselves")
	}
	if _, err := s.store.FindVertex(ctx, LabelShard, shardRef.Key); err != nil {
		return fmt.Errorf("inheriting shard: %w", err)
	}
	if _, err := s.store.FindVertex(ctx, target.Label, target.Key); err != nil {
		return fmt.Errorf("inheritance target: %w", err)
	}
	if err := s.store.UpsertEdge(ctx, EdgeInherits, shardRef, target); err != nil {
		return fmt.Errorf("add inheritance: %w", err)
	}
	s.publish(EventShardInherit, shardRef.Key, string(target.Label)+":"+target.Key)
	return nil
}

// RemoveInheritance drops an inheritance edge. Idempotent.
func (s *Service) RemoveInheritance(ctx context.Context, shardName string, target EntityRef) error {
	if err := s.store.DropEdge(ctx, EdgeInherits, ShardRef(shardName), target); err != nil {
		return fmt.Errorf("remove inheritance: %w", err)
	}
	return nil
}

// SetFeatured flips the featured flag on a user or shard.
func (s *Service) SetFeatured(ctx context.Context, ref EntityRef, featured bool) error {
	value := "false"
	if featured {
		value = "true"
	}
	if err := s.store.SetProperty(ctx, ref, PropFeatured, value); err != nil {
		return fmt.Errorf("set featured: %w", err)
	}
	return nil
}

func (s *Service) publish(kind, actor, subject string) {
	if s.events == nil {
		return
	}
	s.events.Publish(Event{
		Kind:    kind,
		Actor:   actor,
		Subject: subject,
		Time:    s.now().UTC(),
	})
}
