package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shardlabs/shardfeed/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestVertexRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.FindVertex(ctx, domain.LabelUser, "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.AddVertex(ctx, domain.LabelUser, "alice", map[string]string{
		domain.PropDisplayName: "Alice",
		domain.PropBio:         "",
	})
	require.NoError(t, err)

	v, err := store.FindVertex(ctx, domain.LabelUser, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", v.Prop(domain.PropDisplayName))
	assert.NotContains(t, v.Props, domain.PropBio, "empty props are not stored")

	t.Run("insert is first-writer-wins", func(t *testing.T) {
		v, err := store.AddVertex(ctx, domain.LabelUser, "alice", map[string]string{
			domain.PropDisplayName: "Impostor",
		})
		require.NoError(t, err)
		assert.Equal(t, "Alice", v.Prop(domain.PropDisplayName))
	})

	t.Run("set property persists", func(t *testing.T) {
		require.NoError(t, store.SetProperty(ctx, domain.UserRef("alice"), domain.PropBio, "hello"))
		v, err := store.FindVertex(ctx, domain.LabelUser, "alice")
		require.NoError(t, err)
		assert.Equal(t, "hello", v.Prop(domain.PropBio))

		err = store.SetProperty(ctx, domain.UserRef("ghost"), domain.PropBio, "x")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("listing follows insertion order", func(t *testing.T) {
		_, err := store.AddVertex(ctx, domain.LabelUser, "bob", nil)
		require.NoError(t, err)

		users, err := store.ListVertices(ctx, domain.LabelUser)
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, "alice", users[0].Key)
		assert.Equal(t, "bob", users[1].Key)
	})
}

func TestEdgeSemantics(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := domain.UserRef("alice")
	gaming := domain.ShardRef("gaming")
	fps := domain.ShardRef("fps")
	for _, ref := range []domain.EntityRef{alice, gaming, fps} {
		_, err := store.AddVertex(ctx, ref.Label, ref.Key, nil)
		require.NoError(t, err)
	}

	t.Run("upsert is idempotent", func(t *testing.T) {
		require.NoError(t, store.UpsertEdge(ctx, domain.EdgeFollows, alice, gaming))
		require.NoError(t, store.UpsertEdge(ctx, domain.EdgeFollows, alice, gaming))

		n, err := store.CountIn(ctx, gaming, domain.EdgeFollows)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("dangling endpoints rejected", func(t *testing.T) {
		err := store.UpsertEdge(ctx, domain.EdgeFollows, alice, domain.ShardRef("nope"))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("neighbors preserve insertion order", func(t *testing.T) {
		require.NoError(t, store.UpsertEdge(ctx, domain.EdgeFollows, alice, fps))

		out, err := store.OutNeighbors(ctx, alice, domain.EdgeFollows)
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Equal(t, gaming, out[0].Ref())
		assert.Equal(t, fps, out[1].Ref())

		in, err := store.InNeighbors(ctx, gaming, domain.EdgeFollows)
		require.NoError(t, err)
		require.Len(t, in, 1)
		assert.Equal(t, alice, in[0].Ref())
	})

	t.Run("edges are directed", func(t *testing.T) {
		ok, err := store.HasEdge(ctx, domain.EdgeFollows, alice, gaming)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.HasEdge(ctx, domain.EdgeFollows, gaming, alice)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("labels are independent", func(t *testing.T) {
		ok, err := store.HasEdge(ctx, domain.EdgeOwns, alice, gaming)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("drop is idempotent", func(t *testing.T) {
		require.NoError(t, store.DropEdge(ctx, domain.EdgeFollows, alice, gaming))
		require.NoError(t, store.DropEdge(ctx, domain.EdgeFollows, alice, gaming))

		n, err := store.CountOut(ctx, alice, domain.EdgeFollows)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "only the dropped edge is gone")
	})
}
