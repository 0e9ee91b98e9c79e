// Package sqlite provides an embedded GraphStore over a SQLite database,
// storing the property graph as vertex and adjacency tables.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/shardlabs/shardfeed/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS vertices (
	seq   INTEGER PRIMARY KEY AUTOINCREMENT,
	label TEXT NOT NULL,
	vkey  TEXT NOT NULL,
	props TEXT NOT NULL DEFAULT '{}',
	UNIQUE (label, vkey)
);

CREATE TABLE IF NOT EXISTS edges (
	label      TEXT NOT NULL,
	from_label TEXT NOT NULL,
	from_key   TEXT NOT NULL,
	to_label   TEXT NOT NULL,
	to_key     TEXT NOT NULL,
	seq        INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (label, from_label, from_key, to_label, to_key)
);

CREATE INDEX IF NOT EXISTS edges_by_target ON edges (label, to_label, to_key);
`

// Store implements domain.GraphStore using SQLite. Neighbor walks and
// listings are ordered by insertion sequence so traversal order is stable.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the database at path and ensures the schema
// exists. The caller should Close the store when done.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite handles one writer at a time; serializing through a single
	// connection avoids SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) FindVertex(ctx context.Context, label domain.Label, key string) (*domain.Vertex, error) {
	var props string
	err := s.db.QueryRowContext(ctx,
		`SELECT props FROM vertices WHERE label = ? AND vkey = ?`,
		string(label), key,
	).Scan(&props)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s %q: %w", label, key, domain.ErrNotFound)
	}
	if err != nil {
		return nil, domain.NewStoreError("query vertex", err)
	}
	return decodeVertex(label, key, props)
}

func (s *Store) AddVertex(ctx context.Context, label domain.Label, key string, props map[string]string) (*domain.Vertex, error) {
	encoded, err := encodeProps(props)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO vertices (label, vkey, props)
		VALUES (?, ?, ?)
		ON CONFLICT (label, vkey) DO NOTHING`,
		string(label), key, encoded,
	)
	if err != nil {
		return nil, domain.NewStoreError("insert vertex", err)
	}
	return s.FindVertex(ctx, label, key)
}

func (s *Store) SetProperty(ctx context.Context, ref domain.EntityRef, key, value string) error {
	v, err := s.FindVertex(ctx, ref.Label, ref.Key)
	if err != nil {
		return err
	}
	v.Props[key] = value
	encoded, err := encodeProps(v.Props)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE vertices SET props = ? WHERE label = ? AND vkey = ?`,
		encoded, string(ref.Label), ref.Key,
	)
	if err != nil {
		return domain.NewStoreError("update vertex props", err)
	}
	return nil
}

func (s *Store) ListVertices(ctx context.Context, label domain.Label) ([]*domain.Vertex, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT vkey, props FROM vertices WHERE label = ? ORDER BY seq`,
		string(label),
	)
	if err != nil {
		return nil, domain.NewStoreError("query vertices", err)
	}
	defer rows.Close()

	var vertices []*domain.Vertex
	for rows.Next() {
		var key, props string
		if err := rows.Scan(&key, &props); err != nil {
			return nil, domain.NewStoreError("scan vertex", err)
		}
		v, err := decodeVertex(label, key, props)
		if err != nil {
			return nil, err
		}
		vertices = append(vertices, v)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("iterate vertices", err)
	}
	return vertices, nil
}

func (s *Store) OutNeighbors(ctx context.Context, ref domain.EntityRef, edge domain.EdgeLabel) ([]*domain.Vertex, error) {
	return s.queryNeighbors(ctx, `
		SELECT v.label, v.vkey, v.props
		FROM edges e
		JOIN vertices v ON v.label = e.to_label AND v.vkey = e.to_key
		WHERE e.label = ? AND e.from_label = ? AND e.from_key = ?
		ORDER BY e.seq`,
		edge, ref,
	)
}

func (s *Store) InNeighbors(ctx context.Context, ref domain.EntityRef, edge domain.EdgeLabel) ([]*domain.Vertex, error) {
	return s.queryNeighbors(ctx, `
		SELECT v.label, v.vkey, v.props
		FROM edges e
		JOIN vertices v ON v.label = e.from_label AND v.vkey = e.from_key
		WHERE e.label = ? AND e.to_label = ? AND e.to_key = ?
		ORDER BY e.seq`,
		edge, ref,
	)
}

func (s *Store) queryNeighbors(ctx context.Context, query string, edge domain.EdgeLabel, ref domain.EntityRef) ([]*domain.Vertex, error) {
	rows, err := s.db.QueryContext(ctx, query, string(edge), string(ref.Label), ref.Key)
	if err != nil {
		return nil, domain.NewStoreError("query neighbors", err)
	}
	defer rows.Close()

	var vertices []*domain.Vertex
	for rows.Next() {
		var label, key, props string
		if err := rows.Scan(&label, &key, &props); err != nil {
			return nil, domain.NewStoreError("scan neighbor", err)
		}
		v, err := decodeVertex(domain.Label(label), key, props)
		if err != nil {
			return nil, err
		}
		vertices = append(vertices, v)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("iterate neighbors", err)
	}
	return vertices, nil
}

func (s *Store) CountOut(ctx context.Context, ref domain.EntityRef, edge domain.EdgeLabel) (int, error) {
	return s.countEdges(ctx,
		`SELECT COUNT(*) FROM edges WHERE label = ? AND from_label = ? AND from_key = ?`,
		edge, ref,
	)
}

func (s *Store) CountIn(ctx context.Context, ref domain.EntityRef, edge domain.EdgeLabel) (int, error) {
	return s.countEdges(ctx,
		`SELECT COUNT(*) FROM edges WHERE label = ? AND to_label = ? AND to_key = ?`,
		edge, ref,
	)
}

func (s *Store) countEdges(ctx context.Context, query string, edge domain.EdgeLabel, ref domain.EntityRef) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, query, string(edge), string(ref.Label), ref.Key).Scan(&n)
	if err != nil {
		return 0, domain.NewStoreError("count edges", err)
	}
	return n, nil
}

func (s *Store) HasEdge(ctx context.Context, edge domain.EdgeLabel, from, to domain.EntityRef) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM edges
		WHERE label = ? AND from_label = ? AND from_key = ? AND to_label = ? AND to_key = ?`,
		string(edge), string(from.Label), from.Key, string(to.Label), to.Key,
	).Scan(&n)
	if err != nil {
		return false, domain.NewStoreError("check edge", err)
	}
	return n > 0, nil
}

func (s *Store) UpsertEdge(ctx context.Context, edge domain.EdgeLabel, from, to domain.EntityRef) error {
	if err := s.requireVertex(ctx, from); err != nil {
		return err
	}
	if err := s.requireVertex(ctx, to); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO edges (label, from_label, from_key, to_label, to_key, seq)
		VALUES (?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM edges))
		ON CONFLICT (label, from_label, from_key, to_label, to_key) DO NOTHING`,
		string(edge), string(from.Label), from.Key, string(to.Label), to.Key,
	)
	if err != nil {
		return domain.NewStoreError("insert edge", err)
	}
	return nil
}

func (s *Store) DropEdge(ctx context.Context, edge domain.EdgeLabel, from, to domain.EntityRef) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM edges
		WHERE label = ? AND from_label = ? AND from_key = ? AND to_label = ? AND to_key = ?`,
		string(edge), string(from.Label), from.Key, string(to.Label), to.Key,
	)
	if err != nil {
		return domain.NewStoreError("delete edge", err)
	}
	return nil
}

func (s *Store) requireVertex(ctx context.Context, ref domain.EntityRef) error {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM vertices WHERE label = ? AND vkey = ?`,
		string(ref.Label), ref.Key,
	).Scan(&n)
	if err != nil {
		return domain.NewStoreError("check vertex", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %q: %w", ref.Label, ref.Key, domain.ErrNotFound)
	}
	return nil
}

func encodeProps(props map[string]string) (string, error) {
	filtered := make(map[string]string, len(props))
	for k, v := range props {
		if v != "" {
			filtered[k] = v
		}
	}
	encoded, err := json.Marshal(filtered)
	if err != nil {
		return "", fmt.Errorf("encode props: %w", err)
	}
	return string(encoded), nil
}

func decodeVertex(label domain.Label, key, props string) (*domain.Vertex, error) {
	decoded := make(map[string]string)
	if err := json.Unmarshal([]byte(props), &decoded); err != nil {
		return nil, fmt.Errorf("decode props of %s %q: %w", label, key, err)
	}
	return &domain.Vertex{Label: label, Key: key, Props: decoded}, nil
}
