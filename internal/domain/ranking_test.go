package domain_test

import (
	"math"
	"testing"
	"time"

	"github.com/shardlabs/shardfeed/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	now := t0

	t.Run("zero upvotes, zero age", func(t *testing.T) {
		assert.InDelta(t, 1/math.Pow(2.0, 1.8), domain.Score(0, now, now), 1e-12)
	})

	t.Run("one hour old", func(t *testing.T) {
		createdAt := now.Add(-time.Hour)
		assert.InDelta(t, 1/math.Pow(3.0, 1.8), domain.Score(0, createdAt, now), 1e-12)
	})

	t.Run("more upvotes score higher at equal age", func(t *testing.T) {
		createdAt := now.Add(-3 * time.Hour)
		assert.Greater(t, domain.Score(5, createdAt, now), domain.Score(4, createdAt, now))
	})

	t.Run("newer scores higher at equal upvotes", func(t *testing.T) {
		newer := now.Add(-time.Hour)
		older := now.Add(-2 * time.Hour)
		assert.Greater(t, domain.Score(3, newer, now), domain.Score(3, older, now))
	})

	t.Run("clock skew clamps age to zero", func(t *testing.T) {
		future := now.Add(time.Hour)
		assert.Equal(t, domain.Score(0, now, now), domain.Score(0, future, now))
	})
}

func TestSortPostsByScore(t *testing.T) {
	now := t0
	posts := []domain.PostView{
		{PostID: "old-popular", CreatedAt: now.Add(-48 * time.Hour), NumUpvotes: 4},
		{PostID: "fresh", CreatedAt: now.Add(-time.Hour), NumUpvotes: 0},
		{PostID: "old-quiet", CreatedAt: now.Add(-48 * time.Hour), NumUpvotes: 0},
	}

	domain.SortPostsByScore(posts, now)

	assert.Equal(t, "fresh", posts[0].PostID)
	assert.Equal(t, "old-popular", posts[1].PostID)
	assert.Equal(t, "old-quiet", posts[2].PostID)
}

func TestSortPostsByNewest(t *testing.T) {
	now := t0
	posts := []domain.PostView{
		{PostID: "b", CreatedAt: now.Add(-2 * time.Hour)},
		{PostID: "c", CreatedAt: now.Add(-3 * time.Hour)},
		{PostID: "a", CreatedAt: now.Add(-time.Hour)},
	}

	domain.SortPostsByNewest(posts)

	assert.Equal(t, "a", posts[0].PostID)
	assert.Equal(t, "b", posts[1].PostID)
	assert.Equal(t, "c", posts[2].PostID)
}
