package mcptools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/casier/internal/artifact"
	"github.com/dusk-indust/casier/internal/delivery"
	"github.com/dusk-indust/casier/internal/depgraph"
	"github.com/dusk-indust/casier/internal/nomenclature"
	"github.com/dusk-indust/casier/internal/orchestrator"
	"github.com/dusk-indust/casier/internal/registry"
	"github.com/dusk-indust/casier/internal/status"
)

// Dispatcher is the orchestrator surface the tools drive.
type Dispatcher interface {
	Dispatch(ctx context.Context, req orchestrator.Request) (*artifact.Artifact, error)
	Finalize(ctx context.Context, id string) (*artifact.Artifact, error)
	Artifact(ctx context.Context, id string) (*artifact.Artifact, error)
	CheckPrerequisites(ctx context.Context, clientID int64, evaluationID *int64, documentType string) (depgraph.Result, error)
	ClientStatus(ctx context.Context, clientID int64, evaluationID *int64) (status.ClientStatus, error)
}

// Deliverer downloads generated documents.
type Deliverer interface {
	Deliver(ctx context.Context, docPath string, client nomenclature.Client) (*delivery.Result, error)
}

// DocumentService handles MCP tool calls. It wraps the orchestrator, the
// casier registry and the delivery pipeline.
type DocumentService struct {
	dispatcher Dispatcher
	resolver   orchestrator.Resolver
	deliverer  Deliverer
	directory  orchestrator.Directory
}

// NewDocumentService creates a DocumentService.
func NewDocumentService(d Dispatcher, r orchestrator.Resolver, del Deliverer, dir orchestrator.Directory) *DocumentService {
	return &DocumentService{dispatcher: d, resolver: r, deliverer: del, directory: dir}
}

// Dispatch requests one document. Rejections and generation failures are
// reported in the output, not as tool errors.
func (s *DocumentService) Dispatch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DispatchInput,
) (*mcp.CallToolResult, DispatchOutput, error) {
	a, err := s.dispatcher.Dispatch(ctx, orchestrator.Request{
		ClientID:        input.ClientID,
		EvaluationID:    input.EvaluationID,
		QuestionnaireID: input.QuestionnaireID,
		Category:        input.Category,
		Subcategory:     input.Subcategory,
		DocumentType:    input.DocumentType,
		Options:         input.Options,
	})
	if err != nil {
		if a == nil {
			return nil, DispatchOutput{Status: "rejected", Message: err.Error()}, nil
		}
		return nil, DispatchOutput{Status: string(a.Status), Message: a.FailureReason, Artifact: a}, nil
	}
	return nil, DispatchOutput{Status: string(a.Status), Artifact: a}, nil
}

// Finalize moves a ready artifact to completed.
func (s *DocumentService) Finalize(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ArtifactInput,
) (*mcp.CallToolResult, ArtifactOutput, error) {
	a, err := s.dispatcher.Finalize(ctx, input.ArtifactID)
	if err != nil {
		return nil, ArtifactOutput{}, fmt.Errorf("finalize %s: %w", input.ArtifactID, err)
	}
	return nil, ArtifactOutput{Artifact: a}, nil
}

// GetArtifact returns the stored artifact.
func (s *DocumentService) GetArtifact(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ArtifactInput,
) (*mcp.CallToolResult, ArtifactOutput, error) {
	a, err := s.dispatcher.Artifact(ctx, input.ArtifactID)
	if err != nil {
		return nil, ArtifactOutput{}, err
	}
	return nil, ArtifactOutput{Artifact: a}, nil
}

// CheckPrerequisites reports which dependencies of a document type exist.
func (s *DocumentService) CheckPrerequisites(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input PrerequisitesInput,
) (*mcp.CallToolResult, PrerequisitesOutput, error) {
	res, err := s.dispatcher.CheckPrerequisites(ctx, input.ClientID, input.EvaluationID, input.DocumentType)
	if err != nil {
		return nil, PrerequisitesOutput{}, err
	}
	return nil, PrerequisitesOutput{
		Satisfied:       res.Satisfied,
		MissingRequired: nonNil(res.MissingRequired),
		Advisory:        nonNil(res.Advisory),
	}, nil
}

// GetClientStatus reports where a client stands in the document graph.
func (s *DocumentService) GetClientStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ClientStatusInput,
) (*mcp.CallToolResult, status.ClientStatus, error) {
	cs, err := s.dispatcher.ClientStatus(ctx, input.ClientID, input.EvaluationID)
	if err != nil {
		return nil, status.ClientStatus{}, err
	}
	return nil, cs, nil
}

// ResolveCasier looks a casier up without dispatching anything.
func (s *DocumentService) ResolveCasier(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ResolveInput,
) (*mcp.CallToolResult, ResolveOutput, error) {
	c, err := s.resolver.Resolve(input.Category, input.Subcategory, input.DocumentType)
	var incomplete *registry.TemplateIncompleteError
	switch {
	case err == nil:
		return nil, ResolveOutput{
			Found:           true,
			TemplateID:      c.TemplateID,
			DisplayName:     c.DisplayName,
			Format:          string(c.Format),
			FilenamePattern: c.FilenamePattern,
		}, nil
	case errors.As(err, &incomplete):
		return nil, ResolveOutput{
			Found:      true,
			Message:    err.Error(),
			TemplateID: incomplete.TemplateID,
			Missing:    incomplete.Missing,
		}, nil
	default:
		return nil, ResolveOutput{Message: err.Error()}, nil
	}
}

// Deliver downloads a document and saves it under OutputDir.
func (s *DocumentService) Deliver(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DeliverInput,
) (*mcp.CallToolResult, DeliverOutput, error) {
	docPath, clientID := input.Path, input.ClientID
	if input.ArtifactID != "" {
		a, err := s.dispatcher.Artifact(ctx, input.ArtifactID)
		if err != nil {
			return nil, DeliverOutput{}, err
		}
		if !a.Status.Available() {
			return nil, DeliverOutput{}, fmt.Errorf("artifact %s is %s, nothing to deliver", a.ID, a.Status)
		}
		docPath, clientID = a.Path, a.ClientID
	}
	if docPath == "" {
		return nil, DeliverOutput{}, errors.New("artifactId or path is required")
	}

	client := nomenclature.Client{ID: clientID}
	if clientID != 0 && s.directory != nil {
		if c, err := s.directory.Client(ctx, clientID); err == nil {
			client = c
		}
	}

	res, err := s.deliverer.Deliver(ctx, docPath, client)
	if err != nil {
		return nil, DeliverOutput{}, err
	}

	dir := input.OutputDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, DeliverOutput{}, fmt.Errorf("create output dir: %w", err)
	}
	dest := filepath.Join(dir, res.Filename)
	if err := os.WriteFile(dest, res.Data, 0o644); err != nil {
		return nil, DeliverOutput{}, fmt.Errorf("save %s: %w", res.Filename, err)
	}

	return nil, DeliverOutput{
		Filename:    res.Filename,
		SavedTo:     dest,
		Bytes:       len(res.Data),
		ContentType: res.ContentType,
		Secure:      res.Secure,
		Attempts:    res.Attempts,
	}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
