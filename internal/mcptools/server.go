package mcptools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewServer creates an MCP server with the document tools registered.
func NewServer(svc *DocumentService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "casier",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "dispatch_document",
		Description: "Generate a document for a client. Validates the request, checks prerequisite documents, resolves the casier and runs generation. Returns the resulting artifact.",
	}, svc.Dispatch)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "finalize_document",
		Description: "Mark a previewed (ready) artifact as completed.",
	}, svc.Finalize)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_artifact",
		Description: "Return the current state of an artifact.",
	}, svc.GetArtifact)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "check_prerequisites",
		Description: "Report which prerequisite documents of a document type are missing for a client and evaluation.",
	}, svc.CheckPrerequisites)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "client_status",
		Description: "Show every document type for a client in generation order, with its state and the next document that can be generated.",
	}, svc.GetClientStatus)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "resolve_casier",
		Description: "Look up the casier registered for a category, subcategory and document type.",
	}, svc.ResolveCasier)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "deliver_document",
		Description: "Download a generated document, verifying its integrity first, and save it locally.",
	}, svc.Deliver)

	return server
}

// RunStdio runs the server on stdio transport, blocking until stdin is
// closed or the context is cancelled.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}
