package depgraph

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Source is the persistence contract for document type nodes and their
// dependency edges. Implementations: MemStore, KuzuStore (cgo builds) and
// the Postgres store.
type Source interface {
	Nodes(ctx context.Context) ([]Node, error)
	Edges(ctx context.Context) ([]Edge, error)
}

// Store is a Source that can also be written to.
type Store interface {
	Source
	io.Closer

	InitSchema(ctx context.Context) error
	AddNode(ctx context.Context, node Node) error
	AddEdge(ctx context.Context, edge Edge) error
}

// Load reads src and builds a validated Graph.
func Load(ctx context.Context, src Source) (*Graph, error) {
	nodes, err := src.Nodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("depgraph: load nodes: %w", err)
	}
	edges, err := src.Edges(ctx)
	if err != nil {
		return nil, fmt.Errorf("depgraph: load edges: %w", err)
	}
	return New(nodes, edges)
}

// Seed writes nodes and edges into store, initialising its schema first.
func Seed(ctx context.Context, store Store, nodes []Node, edges []Edge) error {
	if err := store.InitSchema(ctx); err != nil {
		return err
	}
	for _, n := range nodes {
		if err := store.AddNode(ctx, n); err != nil {
			return err
		}
	}
	for _, e := range edges {
		if err := store.AddEdge(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore keeps nodes and edges in memory. Thread-safe via sync.RWMutex.
type MemStore struct {
	mu    sync.RWMutex
	nodes map[string]Node
	edges []Edge
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{nodes: make(map[string]Node)}
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error { return nil }

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error { return nil }

// AddNode stores a node keyed by its code, replacing any previous one.
func (m *MemStore) AddNode(_ context.Context, node Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes[node.Code] = node
	return nil
}

// AddEdge appends an edge. Validation is left to New.
func (m *MemStore) AddEdge(_ context.Context, edge Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edges = append(m.edges, edge)
	return nil
}

// Nodes returns all nodes ordered by code.
func (m *MemStore) Nodes(_ context.Context) ([]Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Node, 0, len(m.nodes))
	for _, n := range m.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// Edges returns all edges in insertion order.
func (m *MemStore) Edges(_ context.Context) ([]Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Edge(nil), m.edges...), nil
}

// File is the YAML form of a dependency graph definition.
type File struct {
	DocumentTypes []Node `yaml:"documentTypes"`
	Dependencies  []Edge `yaml:"dependencies"`
}

// FileSource reads a graph definition from a YAML file.
type FileSource struct {
	Path string
}

func (f FileSource) read() (*File, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("depgraph: read %s: %w", f.Path, err)
	}
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("depgraph: decode %s: %w", f.Path, err)
	}
	return &file, nil
}

// Nodes implements Source.
func (f FileSource) Nodes(_ context.Context) ([]Node, error) {
	file, err := f.read()
	if err != nil {
		return nil, err
	}
	return file.DocumentTypes, nil
}

// Edges implements Source.
func (f FileSource) Edges(_ context.Context) ([]Edge, error) {
	file, err := f.read()
	if err != nil {
		return nil, err
	}
	return file.Dependencies, nil
}
