//go:build cgo

package depgraph

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	kuzu "github.com/kuzudb/go-kuzu"
)

// KuzuStore persists the dependency graph in KuzuDB. It requires CGO because
// the go-kuzu driver wraps KuzuDB's C library.
type KuzuStore struct {
	db   *kuzu.Database
	conn *kuzu.Connection
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory KuzuDB instance.
func NewKuzuStore() (*KuzuStore, error) {
	return openKuzu(":memory:")
}

// NewKuzuFileStore opens (or creates) a file-based KuzuDB at dbPath.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	// KuzuDB creates the leaf directory itself.
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	return openKuzu(dbPath)
}

func openKuzu(path string) (*KuzuStore, error) {
	db, err := kuzu.OpenDatabase(path, kuzu.DefaultSystemConfig())
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// Node tables must precede relationship tables.
var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS DocumentType(
		code STRING,
		name STRING,
		requires_evaluation BOOLEAN,
		requires_questionnaire BOOLEAN,
		is_available BOOLEAN,
		PRIMARY KEY(code)
	)`,
	`CREATE REL TABLE IF NOT EXISTS DEPENDS_ON(FROM DocumentType TO DocumentType, required BOOLEAN)`,
}

// InitSchema creates the node and relationship tables if they do not exist.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	for _, stmt := range ddlStatements {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// AddNode upserts a DocumentType node.
func (s *KuzuStore) AddNode(_ context.Context, node Node) error {
	return s.exec(
		`MERGE (d:DocumentType {code: $code})
		 SET d.name = $name,
		     d.requires_evaluation = $reqEval,
		     d.requires_questionnaire = $reqQuest,
		     d.is_available = $avail`,
		map[string]any{
			"code":     node.Code,
			"name":     node.Name,
			"reqEval":  node.RequiresEvaluation,
			"reqQuest": node.RequiresQuestionnaire,
			"avail":    node.IsAvailable,
		},
	)
}

// AddEdge inserts or updates a DEPENDS_ON relationship. Both endpoints must
// exist.
func (s *KuzuStore) AddEdge(_ context.Context, edge Edge) error {
	rows, err := s.query(
		`MATCH (a:DocumentType {code: $src}), (b:DocumentType {code: $dst}) RETURN count(*)`,
		map[string]any{"src": edge.DocumentType, "dst": edge.DependsOn},
	)
	if err != nil {
		return err
	}
	if len(rows) == 0 || toInt(rows[0][0]) == 0 {
		return fmt.Errorf("kuzu: edge %q -> %q references unknown document type", edge.DocumentType, edge.DependsOn)
	}
	return s.exec(
		`MATCH (a:DocumentType {code: $src}), (b:DocumentType {code: $dst})
		 MERGE (a)-[r:DEPENDS_ON]->(b)
		 SET r.required = $required`,
		map[string]any{"src": edge.DocumentType, "dst": edge.DependsOn, "required": edge.Required},
	)
}

// Nodes returns every DocumentType ordered by code.
func (s *KuzuStore) Nodes(_ context.Context) ([]Node, error) {
	rows, err := s.query(
		`MATCH (d:DocumentType)
		 RETURN d.code, d.name, d.requires_evaluation, d.requires_questionnaire, d.is_available
		 ORDER BY d.code`,
		nil,
	)
	if err != nil {
		return nil, err
	}
	out := make([]Node, 0, len(rows))
	for _, r := range rows {
		out = append(out, Node{
			Code:                  toString(r[0]),
			Name:                  toString(r[1]),
			RequiresEvaluation:    toBool(r[2]),
			RequiresQuestionnaire: toBool(r[3]),
			IsAvailable:           toBool(r[4]),
		})
	}
	return out, nil
}

// Edges returns every DEPENDS_ON relationship.
func (s *KuzuStore) Edges(_ context.Context) ([]Edge, error) {
	rows, err := s.query(
		`MATCH (a:DocumentType)-[r:DEPENDS_ON]->(b:DocumentType)
		 RETURN a.code, b.code, r.required
		 ORDER BY a.code, b.code`,
		nil,
	)
	if err != nil {
		return nil, err
	}
	out := make([]Edge, 0, len(rows))
	for _, r := range rows {
		out = append(out, Edge{
			DocumentType: toString(r[0]),
			DependsOn:    toString(r[1]),
			Required:     toBool(r[2]),
		})
	}
	return out, nil
}

// exec runs a parameterized Cypher statement that returns no rows.
func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a Cypher statement and collects all rows in column order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case int32:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func toBool(v any) bool {
	b, _ := v.(bool)
	return b
}
