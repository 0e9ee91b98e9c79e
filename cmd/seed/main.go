// Command seed populates a graph store with a small demo dataset: a few
// users, two shards connected by inheritance, follows, posts, and upvotes.
// Useful for poking at the API locally.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/shardlabs/shardfeed/internal/domain"
	"github.com/shardlabs/shardfeed/internal/graph/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var dbPath string
	flag.StringVar(&dbPath, "db", "shardfeed.db", "path to the sqlite database to seed")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	store, err := sqlite.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	engine, err := domain.NewService(store, domain.ServiceConfig{}, logger)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	ctx := context.Background()

	for _, username := range []string{"alice", "bob", "carol", "dave"} {
		if _, err := engine.CreateUser(ctx, username, username); err != nil {
			return fmt.Errorf("create user %s: %w", username, err)
		}
	}

	if _, err := engine.CreateShard(ctx, "alice", "gaming", "Gaming"); err != nil {
		return fmt.Errorf("create shard gaming: %w", err)
	}
	if _, err := engine.CreateShard(ctx, "bob", "fps", "First-Person Shooters"); err != nil {
		return fmt.Errorf("create shard fps: %w", err)
	}
	if err := engine.AddInheritance(ctx, "fps", domain.ShardRef("gaming")); err != nil {
		return fmt.Errorf("add inheritance: %w", err)
	}

	if err := engine.Follow(ctx, "alice", domain.ShardRef("gaming")); err != nil {
		return err
	}
	if err := engine.Follow(ctx, "bob", domain.ShardRef("fps")); err != nil {
		return err
	}
	if err := engine.Follow(ctx, "carol", domain.UserRef("dave")); err != nil {
		return err
	}

	post, err := engine.CreatePost(ctx, "alice", domain.NewPost{
		Title:     "Patch notes roundup",
		Body:      "Everything that changed this week.",
		ShardName: "gaming",
	})
	if err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	if _, err := engine.CreatePost(ctx, "dave", domain.NewPost{
		Title:       "Weekend screenshots",
		ProfileUser: "dave",
	}); err != nil {
		return fmt.Errorf("create profile post: %w", err)
	}

	for _, username := range []string{"bob", "carol"} {
		if err := engine.Upvote(ctx, username, post.PostID); err != nil {
			return fmt.Errorf("upvote: %w", err)
		}
	}

	fmt.Printf("seeded %s\n", dbPath)
	return nil
}
