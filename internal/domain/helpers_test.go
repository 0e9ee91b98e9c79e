package domain_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shardlabs/shardfeed/internal/domain"
	"github.com/shardlabs/shardfeed/internal/graph/memory"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests control creation timestamps and ranking time.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newEngine(t *testing.T, cfg domain.ServiceConfig) (*domain.Service, *memory.Store, *fakeClock) {
	t.Helper()

	clock := &fakeClock{t: t0}
	if cfg.Now == nil {
		cfg.Now = clock.Now
	}
	store := memory.NewStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	engine, err := domain.NewService(store, cfg, logger)
	require.NoError(t, err)
	return engine, store, clock
}

func mustCreateUsers(t *testing.T, engine *domain.Service, usernames ...string) {
	t.Helper()
	for _, u := range usernames {
		_, err := engine.CreateUser(context.Background(), u, u)
		require.NoError(t, err)
	}
}

func mustCreateShard(t *testing.T, engine *domain.Service, owner, name string) {
	t.Helper()
	_, err := engine.CreateShard(context.Background(), owner, name, name)
	require.NoError(t, err)
}

func mustFollow(t *testing.T, engine *domain.Service, follower string, target domain.EntityRef) {
	t.Helper()
	require.NoError(t, engine.Follow(context.Background(), follower, target))
}

func mustInherit(t *testing.T, engine *domain.Service, shard string, target domain.EntityRef) {
	t.Helper()
	require.NoError(t, engine.AddInheritance(context.Background(), shard, target))
}

func mustPostInShard(t *testing.T, engine *domain.Service, author, shard, title string) string {
	t.Helper()
	post, err := engine.CreatePost(context.Background(), author, domain.NewPost{
		Title:     title,
		ShardName: shard,
	})
	require.NoError(t, err)
	return post.PostID
}
