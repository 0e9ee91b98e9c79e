package domain_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shardlabs/shardfeed/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListRankedPopularShards(t *testing.T) {
	engine, _, _ := newEngine(t, domain.ServiceConfig{})
	ctx := context.Background()

	// Ten shards with distinct follower counts: shard i has i followers.
	var usernames []string
	for i := 0; i < 10; i++ {
		usernames = append(usernames, fmt.Sprintf("u%d", i))
	}
	mustCreateUsers(t, engine, usernames...)
	for i := 0; i < 10; i++ {
		name := fmt.Sprintf("s%d", i)
		mustCreateShard(t, engine, "u0", name)
		for f := 0; f < i; f++ {
			mustFollow(t, engine, fmt.Sprintf("u%d", f), domain.ShardRef(name))
		}
	}

	t.Run("default popular listing is the top five", func(t *testing.T) {
		views, err := engine.ListRanked(ctx, domain.LabelShard, domain.OrderPopular, nil, nil)
		require.NoError(t, err)
		require.Len(t, views, 5)
		for i, view := range views {
			require.NotNil(t, view.Shard)
			assert.Equal(t, fmt.Sprintf("s%d", 9-i), view.Shard.ShardName)
			assert.Equal(t, 9-i, view.Shard.NumFollowers)
		}
	})

	t.Run("explicit range overrides the top-five default", func(t *testing.T) {
		views, err := engine.ListRanked(ctx, domain.LabelShard, domain.OrderPopular, intp(0), intp(8))
		require.NoError(t, err)
		assert.Len(t, views, 8)
	})

	t.Run("invalid range fails before traversal", func(t *testing.T) {
		_, err := engine.ListRanked(ctx, domain.LabelShard, domain.OrderPopular, intp(-1), intp(5))
		assert.ErrorIs(t, err, domain.ErrInvalidRange)
	})
}

func TestListRankedNewest(t *testing.T) {
	engine, _, clock := newEngine(t, domain.ServiceConfig{})
	ctx := context.Background()

	mustCreateUsers(t, engine, "alice")
	mustCreateShard(t, engine, "alice", "gaming")

	var ids []string
	for i := 0; i < 4; i++ {
		ids = append(ids, mustPostInShard(t, engine, "alice", "gaming", fmt.Sprintf("p%d", i)))
		clock.Advance(time.Minute)
	}

	views, err := engine.ListRanked(ctx, domain.LabelPost, domain.OrderNewest, intp(0), intp(2))
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, ids[3], views[0].Post.PostID)
	assert.Equal(t, ids[2], views[1].Post.PostID)
}

func TestListRankedFeatured(t *testing.T) {
	engine, _, clock := newEngine(t, domain.ServiceConfig{})
	ctx := context.Background()

	mustCreateUsers(t, engine, "alice")
	for _, name := range []string{"plain", "starred", "promoted"} {
		mustCreateShard(t, engine, "alice", name)
		clock.Advance(time.Minute)
	}
	require.NoError(t, engine.SetFeatured(ctx, domain.ShardRef("starred"), true))
	require.NoError(t, engine.SetFeatured(ctx, domain.ShardRef("promoted"), true))

	views, err := engine.ListRanked(ctx, domain.LabelShard, domain.OrderFeatured, nil, nil)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "promoted", views[0].Shard.ShardName, "featured listings are newest first")
	assert.Equal(t, "starred", views[1].Shard.ShardName)

	t.Run("not defined for posts", func(t *testing.T) {
		_, err := engine.ListRanked(ctx, domain.LabelPost, domain.OrderFeatured, nil, nil)
		assert.Error(t, err)
	})
}

func TestListRankedPopularPosts(t *testing.T) {
	engine, _, clock := newEngine(t, domain.ServiceConfig{})
	ctx := context.Background()

	mustCreateUsers(t, engine, "alice", "bob", "carol")
	mustCreateShard(t, engine, "alice", "gaming")

	quiet := mustPostInShard(t, engine, "alice", "gaming", "quiet")
	loud := mustPostInShard(t, engine, "alice", "gaming", "loud")
	require.NoError(t, engine.Upvote(ctx, "bob", loud))
	require.NoError(t, engine.Upvote(ctx, "carol", loud))
	clock.Advance(time.Hour)

	views, err := engine.ListRanked(ctx, domain.LabelPost, domain.OrderPopular, intp(0), intp(10))
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, loud, views[0].Post.PostID)
	assert.Equal(t, quiet, views[1].Post.PostID)
}
