package domain

import (
	"math"
	"sort"
	"time"
)

// Score is the time-decayed popularity of a post: a monotonically decreasing
// function of age and increasing function of upvotes. The +2.0 floor on the
// denominator keeps zero-upvote, zero-age posts finite and ranked.
func Score(upvotes int, createdAt, now time.Time) float64 {
	age := now.Sub(createdAt).Hours()
	if age < 0 {
		// Clock skew: a post from the future is scored as brand new.
		age = 0
	}
	return (float64(upvotes) + 1) / math.Pow(age+2.0, 1.8)
}

// SortPostsByScore orders posts by popularity score descending. The sort is
// stable so equal scores keep their incoming order.
func SortPostsByScore(posts []PostView, now time.Time) {
	sort.SliceStable(posts, func(i, j int) bool {
		return Score(posts[i].NumUpvotes, posts[i].CreatedAt, now) >
			Score(posts[j].NumUpvotes, posts[j].CreatedAt, now)
	})
}

// SortPostsByNewest orders posts by creation time descending.
func SortPostsByNewest(posts []PostView) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}
