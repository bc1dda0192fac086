// Package artifact defines generated document records, their lifecycle and
// the store contract they are persisted through.
package artifact

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an artifact.
type Status string

const (
	StatusPending    Status = "pending"
	StatusGenerating Status = "generating"
	StatusReady      Status = "ready"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Terminal reports whether no further transition can leave s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Available reports whether an artifact in state s counts as existing for
// prerequisite checks.
func (s Status) Available() bool {
	return s == StatusReady || s == StatusCompleted
}

// Artifact is one generated document. Records are never deleted
// automatically.
type Artifact struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Filename      string         `json:"filename"`
	ClientID      int64          `json:"clientId"`
	ClientName    string         `json:"clientName,omitempty"`
	EvaluationID  *int64         `json:"evaluationId,omitempty"`
	Category      string         `json:"category"`
	Subcategory   string         `json:"subcategory"`
	DocumentType  string         `json:"documentType"`
	Format        string         `json:"format"`
	Path          string         `json:"path,omitempty"`
	Status        Status         `json:"status"`
	FailureReason string         `json:"failureReason,omitempty"`
	Options       map[string]any `json:"options,omitempty"`
	GeneratedAt   *time.Time     `json:"generatedAt,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// NewID returns a fresh artifact identifier.
func NewID() string {
	return uuid.NewString()
}

// Clone returns a deep copy of a.
func (a *Artifact) Clone() *Artifact {
	dst := *a
	if a.EvaluationID != nil {
		v := *a.EvaluationID
		dst.EvaluationID = &v
	}
	if a.GeneratedAt != nil {
		v := *a.GeneratedAt
		dst.GeneratedAt = &v
	}
	if a.Options != nil {
		dst.Options = cloneMap(a.Options)
	}
	return &dst
}

// cloneMap copies m and every nested map[string]any or []any below it.
func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// InScope reports whether a counts for a request scoped to evaluationID:
// artifacts of the same evaluation and client-level artifacts (no
// evaluation) do.
func (a *Artifact) InScope(evaluationID *int64) bool {
	if a.EvaluationID == nil {
		return true
	}
	return evaluationID != nil && *a.EvaluationID == *evaluationID
}

// ErrNotFound is returned (wrapped) when no artifact has the requested id.
var ErrNotFound = errors.New("artifact not found")

// Filter selects artifacts in List. Zero fields match everything.
type Filter struct {
	ClientID     int64
	DocumentType string
	Statuses     []Status
}

// Match reports whether a passes f.
func (f Filter) Match(a *Artifact) bool {
	if f.ClientID != 0 && a.ClientID != f.ClientID {
		return false
	}
	if f.DocumentType != "" && a.DocumentType != f.DocumentType {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if a.Status == s {
			return true
		}
	}
	return false
}

// Store persists artifacts. Implementations must be safe for concurrent use.
type Store interface {
	Create(ctx context.Context, a Artifact) error
	Get(ctx context.Context, id string) (*Artifact, error)
	// Update applies fn to the stored artifact. When fn returns an error
	// the stored artifact is left unchanged.
	Update(ctx context.Context, id string, fn func(*Artifact) error) error
	// List returns matching artifacts in creation order.
	List(ctx context.Context, f Filter) ([]Artifact, error)
}
