// Package status summarises where a client stands in the document graph:
// which document types exist, which are blocked and what can be generated
// next.
package status

import (
	"context"
	"fmt"

	"github.com/dusk-indust/casier/internal/artifact"
	"github.com/dusk-indust/casier/internal/depgraph"
)

// States reported for a document type besides the artifact statuses.
const (
	StateMissing     = "missing"     // nothing generated, prerequisites met
	StateBlocked     = "blocked"     // required prerequisites not available
	StateUnavailable = "unavailable" // the document type is switched off
)

// DocumentInfo describes the state of one document type for a client.
type DocumentInfo struct {
	Code       string   `json:"code"`
	Name       string   `json:"name,omitempty"`
	State      string   `json:"state"`
	ArtifactID string   `json:"artifactId,omitempty"`
	Filename   string   `json:"filename,omitempty"`
	Missing    []string `json:"missing,omitempty"`
}

// ClientStatus holds the status of every document type for one client and
// evaluation scope, in generation order.
type ClientStatus struct {
	ClientID     int64          `json:"clientId"`
	EvaluationID *int64         `json:"evaluationId,omitempty"`
	Documents    []DocumentInfo `json:"documents"`
	Next         string         `json:"next,omitempty"` // empty if nothing can be generated now
}

// GetClientStatus builds the status from the artifacts in store. Artifacts
// count when they belong to the evaluation or to no evaluation; the most
// recent one per document type wins.
func GetClientStatus(ctx context.Context, g *depgraph.Graph, store artifact.Store, clientID int64, evaluationID *int64) (ClientStatus, error) {
	list, err := store.List(ctx, artifact.Filter{ClientID: clientID})
	if err != nil {
		return ClientStatus{}, fmt.Errorf("status: list artifacts: %w", err)
	}

	latest := make(map[string]artifact.Artifact)
	available := make(map[string]bool)
	for _, a := range list {
		if !a.InScope(evaluationID) {
			continue
		}
		latest[a.DocumentType] = a
		if a.Status.Available() {
			available[a.DocumentType] = true
		}
	}

	cs := ClientStatus{ClientID: clientID, EvaluationID: evaluationID}
	for _, code := range g.TopologicalOrder() {
		n, _ := g.Node(code)
		info := DocumentInfo{Code: code, Name: n.Name}
		res := g.CheckPrerequisites(code, available)

		a, generated := latest[code]
		switch {
		case generated:
			info.State = string(a.Status)
			info.ArtifactID = a.ID
			info.Filename = a.Filename
		case !n.IsAvailable:
			info.State = StateUnavailable
		case !res.Satisfied:
			info.State = StateBlocked
		default:
			info.State = StateMissing
		}
		info.Missing = res.MissingRequired

		retryable := info.State == StateMissing || info.State == string(artifact.StatusError)
		if cs.Next == "" && retryable && n.IsAvailable && res.Satisfied {
			cs.Next = code
		}
		cs.Documents = append(cs.Documents, info)
	}
	return cs, nil
}
