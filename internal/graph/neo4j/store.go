// Package neo4j provides a GraphStore over a remote Neo4j instance.
package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/shardlabs/shardfeed/internal/domain"
)

var nodeLabels = map[domain.Label]string{
	domain.LabelUser:  "User",
	domain.LabelShard: "Shard",
	domain.LabelPost:  "Post",
}

var keyProps = map[domain.Label]string{
	domain.LabelUser:  domain.PropUsername,
	domain.LabelShard: domain.PropShardName,
	domain.LabelPost:  domain.PropPostID,
}

var relTypes = map[domain.EdgeLabel]string{
	domain.EdgeFollows:   "FOLLOWS",
	domain.EdgeOwns:      "OWNS",
	domain.EdgeInherits:  "INHERITS",
	domain.EdgeSubmitted: "SUBMITTED",
	domain.EdgeUpvoted:   "UPVOTED",
	domain.EdgePostedIn:  "POSTED_IN",
	domain.EdgeCommentOn: "COMMENT_ON",
}

// Store implements domain.GraphStore against Neo4j. Labels and relationship
// types are interpolated from the fixed tables above, never from input, so
// queries only ever parameterize values.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewStore connects to Neo4j and verifies connectivity.
func NewStore(ctx context.Context, uri, username, password, database string) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, domain.NewStoreError("verify neo4j connectivity", err)
	}
	return &Store{driver: driver, database: database}, nil
}

// Close releases the driver's connection pool.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Store) run(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(ctx, s.driver, query, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(s.database),
	)
	if err != nil {
		return nil, domain.NewStoreError("execute neo4j query", err)
	}
	return result, nil
}

func (s *Store) FindVertex(ctx context.Context, label domain.Label, key string) (*domain.Vertex, error) {
	query := fmt.Sprintf("MATCH (n:%s {%s: $key}) RETURN n", nodeLabels[label], keyProps[label])
	result, err := s.run(ctx, query, map[string]any{"key": key})
	if err != nil {
		return nil, err
	}
	if len(result.Records) == 0 {
		return nil, fmt.Errorf("%s %q: %w", label, key, domain.ErrNotFound)
	}
	return recordVertex(result.Records[0], "n")
}

func (s *Store) AddVertex(ctx context.Context, label domain.Label, key string, props map[string]string) (*domain.Vertex, error) {
	query := fmt.Sprintf(
		"MERGE (n:%s {%s: $key}) ON CREATE SET n += $props RETURN n",
		nodeLabels[label], keyProps[label],
	)
	result, err := s.run(ctx, query, map[string]any{"key": key, "props": propsParam(props)})
	if err != nil {
		return nil, err
	}
	if len(result.Records) == 0 {
		return nil, domain.NewStoreError("merge vertex", fmt.Errorf("no record returned"))
	}
	return recordVertex(result.Records[0], "n")
}

func (s *Store) SetProperty(ctx context.Context, ref domain.EntityRef, key, value string) error {
	query := fmt.Sprintf(
		"MATCH (n:%s {%s: $key}) SET n += $props RETURN count(n) AS c",
		nodeLabels[ref.Label], keyProps[ref.Label],
	)
	result, err := s.run(ctx, query, map[string]any{
		"key":   ref.Key,
		"props": map[string]any{key: value},
	})
	if err != nil {
		return err
	}
	if recordCount(result, "c") == 0 {
		return fmt.Errorf("%s %q: %w", ref.Label, ref.Key, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) ListVertices(ctx context.Context, label domain.Label) ([]*domain.Vertex, error) {
	query := fmt.Sprintf("MATCH (n:%s) RETURN n ORDER BY n.%s", nodeLabels[label], domain.PropCreatedAt)
	result, err := s.run(ctx, query, nil)
	if err != nil {
		return nil, err
	}
	return recordVertices(result, "n")
}

func (s *Store) OutNeighbors(ctx context.Context, ref domain.EntityRef, edge domain.EdgeLabel) ([]*domain.Vertex, error) {
	query := fmt.Sprintf(
		"MATCH (:%s {%s: $key})-[:%s]->(m) RETURN m ORDER BY m.%s",
		nodeLabels[ref.Label], keyProps[ref.Label], relTypes[edge], domain.PropCreatedAt,
	)
	result, err := s.run(ctx, query, map[string]any{"key": ref.Key})
	if err != nil {
		return nil, err
	}
	return recordVertices(result, "m")
}

func (s *Store) InNeighbors(ctx context.Context, ref domain.EntityRef, edge domain.EdgeLabel) ([]*domain.Vertex, error) {
	query := fmt.Sprintf(
		"MATCH (m)-[:%s]->(:%s {%s: $key}) RETURN m ORDER BY m.%s",
		relTypes[edge], nodeLabels[ref.Label], keyProps[ref.Label], domain.PropCreatedAt,
	)
	result, err := s.run(ctx, query, map[string]any{"key": ref.Key})
	if err != nil {
		return nil, err
	}
	return recordVertices(result, "m")
}

func (s *Store) CountOut(ctx context.Context, ref domain.EntityRef, edge domain.EdgeLabel) (int, error) {
	query := fmt.Sprintf(
		"MATCH (:%s {%s: $key})-[r:%s]->() RETURN count(r) AS c",
		nodeLabels[ref.Label], keyProps[ref.Label], relTypes[edge],
	)
	result, err := s.run(ctx, query, map[string]any{"key": ref.Key})
	if err != nil {
		return 0, err
	}
	return recordCount(result, "c"), nil
}

func (s *Store) CountIn(ctx context.Context, ref domain.EntityRef, edge domain.EdgeLabel) (int, error) {
	query := fmt.Sprintf(
		"MATCH ()-[r:%s]->(:%s {%s: $key}) RETURN count(r) AS c",
		relTypes[edge], nodeLabels[ref.Label], keyProps[ref.Label],
	)
	result, err := s.run(ctx, query, map[string]any{"key": ref.Key})
	if err != nil {
		return 0, err
	}
	return recordCount(result, "c"), nil
}

func (s *Store) HasEdge(ctx context.Context, edge domain.EdgeLabel, from, to domain.EntityRef) (bool, error) {
	query := fmt.Sprintf(
		"MATCH (:%s {%s: $from})-[r:%s]->(:%s {%s: $to}) RETURN count(r) AS c",
		nodeLabels[from.Label], keyProps[from.Label], relTypes[edge],
		nodeLabels[to.Label], keyProps[to.Label],
	)
	result, err := s.run(ctx, query, map[string]any{"from": from.Key, "to": to.Key})
	if err != nil {
		return false, err
	}
	return recordCount(result, "c") > 0, nil
}

func (s *Store) UpsertEdge(ctx context.Context, edge domain.EdgeLabel, from, to domain.EntityRef) error {
	// MERGE on unmatched endpoints silently creates nothing, so missing
	// vertices are surfaced explicitly to honor the port contract.
	if _, err := s.FindVertex(ctx, from.Label, from.Key); err != nil {
		return fmt.Errorf("edge source: %w", err)
	}
	if _, err := s.FindVertex(ctx, to.Label, to.Key); err != nil {
		return fmt.Errorf("edge target: %w", err)
	}

	query := fmt.Sprintf(
		"MATCH (a:%s {%s: $from}), (b:%s {%s: $to}) MERGE (a)-[:%s]->(b)",
		nodeLabels[from.Label], keyProps[from.Label],
		nodeLabels[to.Label], keyProps[to.Label], relTypes[edge],
	)
	_, err := s.run(ctx, query, map[string]any{"from": from.Key, "to": to.Key})
	return err
}

func (s *Store) DropEdge(ctx context.Context, edge domain.EdgeLabel, from, to domain.EntityRef) error {
	query := fmt.Sprintf(
		"MATCH (:%s {%s: $from})-[r:%s]->(:%s {%s: $to}) DELETE r",
		nodeLabels[from.Label], keyProps[from.Label], relTypes[edge],
		nodeLabels[to.Label], keyProps[to.Label],
	)
	_, err := s.run(ctx, query, map[string]any{"from": from.Key, "to": to.Key})
	return err
}

func propsParam(props map[string]string) map[string]any {
	params := make(map[string]any, len(props))
	for k, v := range props {
		if v != "" {
			params[k] = v
		}
	}
	return params
}

func recordVertices(result *neo4j.EagerResult, name string) ([]*domain.Vertex, error) {
	vertices := make([]*domain.Vertex, 0, len(result.Records))
	for _, record := range result.Records {
		v, err := recordVertex(record, name)
		if err != nil {
			return nil, err
		}
		vertices = append(vertices, v)
	}
	return vertices, nil
}

func recordVertex(record *neo4j.Record, name string) (*domain.Vertex, error) {
	value, ok := record.Get(name)
	if !ok {
		return nil, domain.NewStoreError("read record", fmt.Errorf("missing return value %q", name))
	}
	node, ok := value.(neo4j.Node)
	if !ok {
		return nil, domain.NewStoreError("read record", fmt.Errorf("return value %q is not a node", name))
	}

	label, err := domainLabel(node.Labels)
	if err != nil {
		return nil, err
	}

	props := make(map[string]string, len(node.Props))
	for k, v := range node.Props {
		if str, ok := v.(string); ok {
			props[k] = str
		}
	}
	return &domain.Vertex{Label: label, Key: props[keyProps[label]], Props: props}, nil
}

func domainLabel(labels []string) (domain.Label, error) {
	for dl, nl := range nodeLabels {
		for _, l := range labels {
			if l == nl {
				return dl, nil
			}
		}
	}
	return "", domain.NewStoreError("read record", fmt.Errorf("node has no known label: %v", labels))
}

func recordCount(result *neo4j.EagerResult, name string) int {
	if len(result.Records) == 0 {
		return 0
	}
	value, ok := result.Records[0].Get(name)
	if !ok {
		return 0
	}
	n, ok := value.(int64)
	if !ok {
		return 0
	}
	return int(n)
}
