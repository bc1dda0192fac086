package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dusk-indust/casier/internal/nomenclature"
)

// ErrUnknownClient is returned (wrapped) by a Directory for a client id it
// does not know.
var ErrUnknownClient = errors.New("unknown client")

// Directory answers questions about clients and their evaluations.
type Directory interface {
	Client(ctx context.Context, id int64) (nomenclature.Client, error)
	EvaluationExists(ctx context.Context, clientID, evaluationID int64) (bool, error)
}

// Compile-time check that MemDirectory satisfies Directory.
var _ Directory = (*MemDirectory)(nil)

// MemDirectory is an in-memory Directory.
type MemDirectory struct {
	mu          sync.RWMutex
	clients     map[int64]string
	evaluations map[int64]map[int64]bool
}

// NewMemDirectory returns an empty MemDirectory.
func NewMemDirectory() *MemDirectory {
	return &MemDirectory{
		clients:     make(map[int64]string),
		evaluations: make(map[int64]map[int64]bool),
	}
}

// AddClient registers a client.
func (d *MemDirectory) AddClient(id int64, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clients[id] = name
}

// AddEvaluation registers an evaluation for a client.
func (d *MemDirectory) AddEvaluation(clientID, evaluationID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.evaluations[clientID] == nil {
		d.evaluations[clientID] = make(map[int64]bool)
	}
	d.evaluations[clientID][evaluationID] = true
}

// Client implements Directory.
func (d *MemDirectory) Client(_ context.Context, id int64) (nomenclature.Client, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	name, ok := d.clients[id]
	if !ok {
		return nomenclature.Client{}, fmt.Errorf("client %d: %w", id, ErrUnknownClient)
	}
	return nomenclature.Client{ID: id, Name: name}, nil
}

// EvaluationExists implements Directory.
func (d *MemDirectory) EvaluationExists(_ context.Context, clientID, evaluationID int64) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.evaluations[clientID][evaluationID], nil
}
