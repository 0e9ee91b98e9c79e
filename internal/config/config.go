package config

import (
	"fmt"
	"os"
	"strconv"
)

// Store backend names accepted in SHARDFEED_STORE.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreNeo4j  = "neo4j"
)

// Config holds all configuration for the application.
type Config struct {
	// Port is the HTTP server port.
	Port int

	// Store selects the graph store backend: memory, sqlite, or neo4j.
	Store string

	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string

	// Neo4j connection settings, used when Store is neo4j.
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	Neo4jDatabase string

	// MaxVisited caps closure expansion per request.
	MaxVisited int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	port := 3000
	if p := os.Getenv("SHARDFEED_PORT"); p != "" {
		var err error
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid SHARDFEED_PORT: %w", err)
		}
	}

	store := os.Getenv("SHARDFEED_STORE")
	if store == "" {
		store = StoreMemory
	}
	switch store {
	case StoreMemory, StoreSQLite, StoreNeo4j:
	default:
		return nil, fmt.Errorf("invalid SHARDFEED_STORE %q: must be %s, %s, or %s",
			store, StoreMemory, StoreSQLite, StoreNeo4j)
	}

	sqlitePath := os.Getenv("SHARDFEED_SQLITE_PATH")
	if sqlitePath == "" {
		sqlitePath = "shardfeed.db"
	}

	neo4jURI := os.Getenv("SHARDFEED_NEO4J_URI")
	if store == StoreNeo4j && neo4jURI == "" {
		return nil, fmt.Errorf("SHARDFEED_NEO4J_URI is required for the neo4j store")
	}

	neo4jDatabase := os.Getenv("SHARDFEED_NEO4J_DATABASE")
	if neo4jDatabase == "" {
		neo4jDatabase = "neo4j"
	}

	maxVisited := 0
	if mv := os.Getenv("SHARDFEED_MAX_VISITED"); mv != "" {
		var err error
		maxVisited, err = strconv.Atoi(mv)
		if err != nil || maxVisited <= 0 {
			return nil, fmt.Errorf("invalid SHARDFEED_MAX_VISITED %q", mv)
		}
	}

	return &Config{
		Port:          port,
		Store:         store,
		SQLitePath:    sqlitePath,
		Neo4jURI:      neo4jURI,
		Neo4jUser:     os.Getenv("SHARDFEED_NEO4J_USER"),
		Neo4jPassword: os.Getenv("SHARDFEED_NEO4J_PASSWORD"),
		Neo4jDatabase: neo4jDatabase,
		MaxVisited:    maxVisited,
	}, nil
}
