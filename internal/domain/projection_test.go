package domain_test

import (
	"context"
	"testing"

	"github.com/shardlabs/shardfeed/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetUserView(t *testing.T) {
	engine, _, _ := newEngine(t, domain.ServiceConfig{})
	ctx := context.Background()

	mustCreateUsers(t, engine, "alice", "bob", "carol")
	mustCreateShard(t, engine, "alice", "gaming")
	mustFollow(t, engine, "bob", domain.UserRef("alice"))
	mustFollow(t, engine, "carol", domain.UserRef("alice"))
	mustFollow(t, engine, "alice", domain.UserRef("bob"))

	t.Run("counts derive from edges", func(t *testing.T) {
		view, err := engine.GetUserView(ctx, "alice", "")
		require.NoError(t, err)
		assert.Equal(t, "alice", view.Username)
		assert.Equal(t, 2, view.NumFollowers)
		assert.Equal(t, 1, view.NumFollowing)
		assert.Equal(t, 1, view.NumShards)
		assert.False(t, view.ViewerFollows)
	})

	t.Run("viewer follow flag", func(t *testing.T) {
		view, err := engine.GetUserView(ctx, "alice", "bob")
		require.NoError(t, err)
		assert.True(t, view.ViewerFollows)
	})

	t.Run("lookup is case-insensitive, display casing preserved", func(t *testing.T) {
		_, err := engine.CreateUser(ctx, "MixedCase", "MixedCase")
		require.NoError(t, err)

		view, err := engine.GetUserView(ctx, "mIxEdCaSe", "")
		require.NoError(t, err)
		assert.Equal(t, "mixedcase", view.Username)
		assert.Equal(t, "MixedCase", view.DisplayName)
	})

	t.Run("missing user is NotFound", func(t *testing.T) {
		_, err := engine.GetUserView(ctx, "ghost", "")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestGetShardView(t *testing.T) {
	engine, _, _ := newEngine(t, domain.ServiceConfig{})
	ctx := context.Background()

	mustCreateUsers(t, engine, "alice", "bob")
	mustCreateShard(t, engine, "alice", "gaming")
	mustCreateShard(t, engine, "alice", "fps")
	mustInherit(t, engine, "fps", domain.ShardRef("gaming"))
	mustFollow(t, engine, "bob", domain.ShardRef("gaming"))

	view, err := engine.GetShardView(ctx, "gaming", "bob")
	require.NoError(t, err)
	assert.Equal(t, "alice", view.Owner)
	assert.Equal(t, 1, view.NumFollowers)
	assert.Equal(t, 0, view.NumInherits)
	assert.Equal(t, 1, view.NumInheritedBy)
	assert.True(t, view.ViewerFollows)

	inheriting, err := engine.GetShardView(ctx, "fps", "")
	require.NoError(t, err)
	assert.Equal(t, 1, inheriting.NumInherits)
	assert.Equal(t, 0, inheriting.NumInheritedBy)
}

func TestGetPostView(t *testing.T) {
	engine, store, _ := newEngine(t, domain.ServiceConfig{})
	ctx := context.Background()

	mustCreateUsers(t, engine, "alice", "bob")
	mustCreateShard(t, engine, "alice", "gaming")

	t.Run("placement and counts", func(t *testing.T) {
		postID := mustPostInShard(t, engine, "alice", "gaming", "hello")
		require.NoError(t, engine.Upvote(ctx, "bob", postID))

		view, err := engine.GetPostView(ctx, postID)
		require.NoError(t, err)
		assert.Equal(t, "alice", view.Author)
		assert.Equal(t, "gaming", view.PostedInShard)
		assert.Empty(t, view.PostedInUser)
		assert.Equal(t, 1, view.NumUpvotes)
	})

	t.Run("reply placement", func(t *testing.T) {
		parentID := mustPostInShard(t, engine, "alice", "gaming", "parent")
		reply, err := engine.CreatePost(ctx, "bob", domain.NewPost{
			Body:       "nice",
			ParentPost: parentID,
		})
		require.NoError(t, err)
		assert.Equal(t, parentID, reply.ParentPost)
		assert.Empty(t, reply.PostedInShard)
	})

	t.Run("post without submitter is a data integrity error", func(t *testing.T) {
		_, err := store.AddVertex(ctx, domain.LabelPost, "orphan", map[string]string{
			domain.PropPostID: "orphan",
		})
		require.NoError(t, err)

		_, err = engine.GetPostView(ctx, "orphan")
		assert.ErrorIs(t, err, domain.ErrDataIntegrity)
	})

	t.Run("post with two submitters is a data integrity error", func(t *testing.T) {
		postID := mustPostInShard(t, engine, "alice", "gaming", "twice")
		require.NoError(t, store.UpsertEdge(ctx, domain.EdgeSubmitted,
			domain.UserRef("bob"), domain.PostRef(postID)))

		_, err := engine.GetPostView(ctx, postID)
		assert.ErrorIs(t, err, domain.ErrDataIntegrity)
	})
}
