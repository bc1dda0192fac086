package mcptools

import "github.com/dusk-indust/casier/internal/artifact"

// --- MCP tool types for the serve-mcp mode ---

// DispatchInput is the input for the dispatch_document tool.
type DispatchInput struct {
	ClientID        int64          `json:"clientId" jsonschema:"client the document is generated for"`
	EvaluationID    *int64         `json:"evaluationId,omitempty" jsonschema:"evaluation the document is scoped to"`
	QuestionnaireID *int64         `json:"questionnaireId,omitempty" jsonschema:"questionnaire backing the document, when its type requires one"`
	Category        string         `json:"category" jsonschema:"casier category, e.g. amoa"`
	Subcategory     string         `json:"subcategory" jsonschema:"casier subcategory, e.g. preliminary-study"`
	DocumentType    string         `json:"documentType" jsonschema:"document type code"`
	Options         map[string]any `json:"options,omitempty" jsonschema:"generation options merged over the defaults"`
}

// DispatchOutput is the result of dispatch_document. Status is "ready",
// "completed", "error" or "rejected"; rejected requests carry no artifact.
type DispatchOutput struct {
	Status   string             `json:"status"`
	Message  string             `json:"message,omitempty"`
	Artifact *artifact.Artifact `json:"artifact,omitempty"`
}

// ArtifactInput names one artifact.
type ArtifactInput struct {
	ArtifactID string `json:"artifactId" jsonschema:"artifact identifier returned by dispatch_document"`
}

// ArtifactOutput wraps a single artifact.
type ArtifactOutput struct {
	Artifact *artifact.Artifact `json:"artifact"`
}

// PrerequisitesInput is the input for the check_prerequisites tool.
type PrerequisitesInput struct {
	ClientID     int64  `json:"clientId" jsonschema:"client to check"`
	EvaluationID *int64 `json:"evaluationId,omitempty" jsonschema:"evaluation scope; omit for client-level documents"`
	DocumentType string `json:"documentType" jsonschema:"document type code"`
}

// PrerequisitesOutput is the result of check_prerequisites.
type PrerequisitesOutput struct {
	Satisfied       bool     `json:"satisfied"`
	MissingRequired []string `json:"missingRequired"`
	Advisory        []string `json:"advisory"`
}

// ClientStatusInput is the input for the client_status tool.
type ClientStatusInput struct {
	ClientID     int64  `json:"clientId" jsonschema:"client to report on"`
	EvaluationID *int64 `json:"evaluationId,omitempty" jsonschema:"evaluation scope; omit for client-level documents"`
}

// ResolveInput is the input for the resolve_casier tool.
type ResolveInput struct {
	Category     string `json:"category"`
	Subcategory  string `json:"subcategory"`
	DocumentType string `json:"documentType"`
}

// ResolveOutput describes the casier a key resolves to.
type ResolveOutput struct {
	Found           bool     `json:"found"`
	Message         string   `json:"message,omitempty"`
	TemplateID      string   `json:"templateId,omitempty"`
	DisplayName     string   `json:"displayName,omitempty"`
	Format          string   `json:"format,omitempty"`
	FilenamePattern string   `json:"filenamePattern,omitempty"`
	Missing         []string `json:"missing,omitempty"`
}

// DeliverInput is the input for the deliver_document tool. Either
// ArtifactID or Path must be set.
type DeliverInput struct {
	ArtifactID string `json:"artifactId,omitempty" jsonschema:"artifact to download"`
	Path       string `json:"path,omitempty" jsonschema:"server-side document path, used when no artifact id is given"`
	ClientID   int64  `json:"clientId,omitempty" jsonschema:"client used for the fallback filename when path is given"`
	OutputDir  string `json:"outputDir,omitempty" jsonschema:"directory to save the file into (default: cwd)"`
}

// DeliverOutput is the result of deliver_document.
type DeliverOutput struct {
	Filename    string `json:"filename"`
	SavedTo     string `json:"savedTo"`
	Bytes       int    `json:"bytes"`
	ContentType string `json:"contentType,omitempty"`
	Secure      bool   `json:"secure"`
	Attempts    int    `json:"attempts"`
}
