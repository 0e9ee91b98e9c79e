package domain_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/shardlabs/shardfeed/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleFeedDirectFollow(t *testing.T) {
	engine, _, clock := newEngine(t, domain.ServiceConfig{})
	ctx := context.Background()

	mustCreateUsers(t, engine, "alice")
	mustCreateShard(t, engine, "alice", "gaming")
	mustFollow(t, engine, "alice", domain.ShardRef("gaming"))
	postID := mustPostInShard(t, engine, "alice", "gaming", "p1")

	clock.Advance(time.Hour)

	feed, err := engine.AssembleFeed(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, postID, feed[0].PostID)
	assert.Equal(t, 0, feed[0].NumUpvotes)

	// One-hour-old post, zero upvotes: 1 / 3^1.8.
	assert.InDelta(t, 1/math.Pow(3.0, 1.8), domain.Score(feed[0].NumUpvotes, feed[0].CreatedAt, clock.Now()), 1e-9)
}

func TestAssembleFeedThroughInheritance(t *testing.T) {
	engine, _, _ := newEngine(t, domain.ServiceConfig{})
	ctx := context.Background()

	mustCreateUsers(t, engine, "alice", "bob")
	mustCreateShard(t, engine, "alice", "gaming")
	mustCreateShard(t, engine, "alice", "fps")
	mustInherit(t, engine, "fps", domain.ShardRef("gaming"))
	mustFollow(t, engine, "bob", domain.ShardRef("fps"))

	postID := mustPostInShard(t, engine, "alice", "gaming", "p2")

	feed, err := engine.AssembleFeed(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, feed, 1, "a post in an inherited shard reaches the follower's feed")
	assert.Equal(t, postID, feed[0].PostID)
}

func TestAssembleFeedDeduplicates(t *testing.T) {
	engine, _, _ := newEngine(t, domain.ServiceConfig{})
	ctx := context.Background()

	// viewer follows shard A directly and shard B which inherits A; a post
	// in A is reachable on both paths but must appear once.
	mustCreateUsers(t, engine, "alice", "viewer")
	mustCreateShard(t, engine, "alice", "a")
	mustCreateShard(t, engine, "alice", "b")
	mustInherit(t, engine, "b", domain.ShardRef("a"))
	mustFollow(t, engine, "viewer", domain.ShardRef("a"))
	mustFollow(t, engine, "viewer", domain.ShardRef("b"))

	postID := mustPostInShard(t, engine, "alice", "a", "dup")

	feed, err := engine.AssembleFeed(ctx, "viewer")
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, postID, feed[0].PostID)
}

func TestAssembleFeedProfilePosts(t *testing.T) {
	engine, _, _ := newEngine(t, domain.ServiceConfig{})
	ctx := context.Background()

	mustCreateUsers(t, engine, "carol", "dave", "eve")
	mustFollow(t, engine, "carol", domain.UserRef("dave"))
	mustFollow(t, engine, "carol", domain.UserRef("eve"))

	post, err := engine.CreatePost(ctx, "dave", domain.NewPost{
		Title:       "p3",
		ProfileUser: "dave",
	})
	require.NoError(t, err)
	require.NoError(t, engine.Upvote(ctx, "eve", post.PostID))

	feed, err := engine.AssembleFeed(ctx, "carol")
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, post.PostID, feed[0].PostID)
	assert.Equal(t, 1, feed[0].NumUpvotes)
	assert.Equal(t, "dave", feed[0].Author)
}

func TestAssembleRankedFeed(t *testing.T) {
	engine, _, clock := newEngine(t, domain.ServiceConfig{})
	ctx := context.Background()

	mustCreateUsers(t, engine, "alice", "bob", "carol")
	mustCreateShard(t, engine, "alice", "gaming")
	mustFollow(t, engine, "carol", domain.ShardRef("gaming"))

	old := mustPostInShard(t, engine, "alice", "gaming", "old")
	require.NoError(t, engine.Upvote(ctx, "bob", old))
	clock.Advance(48 * time.Hour)
	fresh := mustPostInShard(t, engine, "alice", "gaming", "fresh")

	// Ranking uses the engine clock, not the wall clock: two days of decay
	// outweigh the old post's upvote.
	feed, err := engine.AssembleRankedFeed(ctx, "carol")
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, fresh, feed[0].PostID)
	assert.Equal(t, old, feed[1].PostID)
}

func TestAssembleFeedEdgeCases(t *testing.T) {
	engine, _, _ := newEngine(t, domain.ServiceConfig{})
	ctx := context.Background()

	mustCreateUsers(t, engine, "loner")

	t.Run("empty follow set yields empty feed", func(t *testing.T) {
		feed, err := engine.AssembleFeed(ctx, "loner")
		require.NoError(t, err)
		assert.Empty(t, feed)
	})

	t.Run("missing viewer is NotFound", func(t *testing.T) {
		_, err := engine.AssembleFeed(ctx, "ghost")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("viewer lookup is case-insensitive", func(t *testing.T) {
		feed, err := engine.AssembleFeed(ctx, "LoNeR")
		require.NoError(t, err)
		assert.Empty(t, feed)
	})
}
