package rpcapi

import (
	"time"

	"github.com/dusk-indust/casier/internal/artifact"
	"github.com/dusk-indust/casier/internal/orchestrator"
)

// DispatchResult is the result of documents/dispatch. A generation failure is
// a result carrying the failed artifact, not an RPC error.
type DispatchResult struct {
	Status   artifact.Status    `json:"status"`
	Message  string             `json:"message,omitempty"`
	Artifact *artifact.Artifact `json:"artifact"`
}

// ArtifactParams names one artifact.
type ArtifactParams struct {
	ArtifactID string `json:"artifactId"`
}

// PrerequisitesParams are the params of documents/prerequisites.
type PrerequisitesParams struct {
	ClientID     int64  `json:"clientId"`
	EvaluationID *int64 `json:"evaluationId,omitempty"`
	DocumentType string `json:"documentType"`
}

// PrerequisitesResult is the result of documents/prerequisites.
type PrerequisitesResult struct {
	Satisfied       bool     `json:"satisfied"`
	MissingRequired []string `json:"missingRequired"`
	Advisory        []string `json:"advisory"`
}

// ClientStatusParams are the params of clients/status.
type ClientStatusParams struct {
	ClientID     int64  `json:"clientId"`
	EvaluationID *int64 `json:"evaluationId,omitempty"`
}

// Event is one lifecycle change streamed on /events.
type Event struct {
	ArtifactID   string          `json:"artifactId"`
	DocumentType string          `json:"documentType"`
	Status       artifact.Status `json:"status"`
	Message      string          `json:"message,omitempty"`
	At           time.Time       `json:"at"`
}

func eventFrom(ev orchestrator.ProgressEvent) Event {
	return Event{
		ArtifactID:   ev.ArtifactID,
		DocumentType: ev.DocumentType,
		Status:       ev.Status,
		Message:      ev.Message,
		At:           ev.At,
	}
}
