package rpcapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/dusk-indust/casier/internal/artifact"
	"github.com/dusk-indust/casier/internal/orchestrator"
	"github.com/dusk-indust/casier/internal/registry"
	"github.com/dusk-indust/casier/internal/status"
)

// handleJSONRPC decodes one JSON-RPC request and dispatches it by method.
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONRPCError(w, nil, &JSONRPCError{Code: ErrCodeParse, Message: "Parse error: " + err.Error()})
		return
	}
	if req.JSONRPC != JSONRPCVersion {
		writeJSONRPCError(w, req.ID, &JSONRPCError{Code: ErrCodeInvalidRequest, Message: "jsonrpc must be " + JSONRPCVersion})
		return
	}

	ctx := r.Context()
	switch req.Method {
	case MethodDispatch:
		call(ctx, w, &req, s.dispatch)
	case MethodFinalize:
		call(ctx, w, &req, func(ctx context.Context, p ArtifactParams) (*artifact.Artifact, error) {
			return s.svc.Finalize(ctx, p.ArtifactID)
		})
	case MethodGet:
		call(ctx, w, &req, func(ctx context.Context, p ArtifactParams) (*artifact.Artifact, error) {
			return s.svc.Artifact(ctx, p.ArtifactID)
		})
	case MethodPrerequisites:
		call(ctx, w, &req, s.prerequisites)
	case MethodClientStatus:
		call(ctx, w, &req, func(ctx context.Context, p ClientStatusParams) (status.ClientStatus, error) {
			return s.svc.ClientStatus(ctx, p.ClientID, p.EvaluationID)
		})
	default:
		writeJSONRPCError(w, req.ID, &JSONRPCError{
			Code:    ErrCodeMethodNotFound,
			Message: fmt.Sprintf("Method not found: %s", req.Method),
		})
	}
}

// call unmarshals params into P, runs fn and writes its result or error.
func call[P, R any](ctx context.Context, w http.ResponseWriter, req *JSONRPCRequest, fn func(context.Context, P) (R, error)) {
	var params P
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			writeJSONRPCError(w, req.ID, &JSONRPCError{Code: ErrCodeInvalidParams, Message: "Invalid params: " + err.Error()})
			return
		}
	}
	result, err := fn(ctx, params)
	if err != nil {
		writeJSONRPCError(w, req.ID, rpcError(err))
		return
	}
	writeJSONRPCResult(w, req.ID, result)
}

func (s *Server) dispatch(ctx context.Context, req orchestrator.Request) (*DispatchResult, error) {
	a, err := s.svc.Dispatch(ctx, req)
	if err != nil {
		if a == nil {
			return nil, err
		}
		s.logger.Warn("generation failed", zap.String("artifact", a.ID), zap.Error(err))
		return &DispatchResult{Status: a.Status, Message: a.FailureReason, Artifact: a}, nil
	}
	return &DispatchResult{Status: a.Status, Artifact: a}, nil
}

func (s *Server) prerequisites(ctx context.Context, p PrerequisitesParams) (*PrerequisitesResult, error) {
	res, err := s.svc.CheckPrerequisites(ctx, p.ClientID, p.EvaluationID, p.DocumentType)
	if err != nil {
		return nil, err
	}
	out := &PrerequisitesResult{
		Satisfied:       res.Satisfied,
		MissingRequired: res.MissingRequired,
		Advisory:        res.Advisory,
	}
	if out.MissingRequired == nil {
		out.MissingRequired = []string{}
	}
	if out.Advisory == nil {
		out.Advisory = []string{}
	}
	return out, nil
}

// rpcError maps orchestrator failures to JSON-RPC error objects.
func rpcError(err error) *JSONRPCError {
	var (
		unmet      *orchestrator.UnmetDependencyError
		invalid    *orchestrator.ValidationError
		noEval     *orchestrator.MissingEvaluationError
		notFound   *registry.TemplateNotFoundError
		incomplete *registry.TemplateIncompleteError
		transition *artifact.TransitionError
	)
	e := &JSONRPCError{Code: ErrCodeInternal, Message: err.Error()}
	switch {
	case errors.As(err, &unmet):
		e.Code = ErrCodeUnmetDependency
		e.Data, _ = json.Marshal(map[string][]string{"missing": unmet.Missing})
	case errors.As(err, &invalid), errors.As(err, &noEval),
		errors.As(err, &notFound), errors.As(err, &incomplete),
		errors.Is(err, orchestrator.ErrUnknownClient):
		e.Code = ErrCodeRejected
	case errors.Is(err, artifact.ErrNotFound):
		e.Code = ErrCodeNotFound
	case errors.Is(err, orchestrator.ErrDispatchInProgress):
		e.Code = ErrCodeInProgress
	case errors.As(err, &transition):
		e.Code = ErrCodeInvalidLifecycle
	}
	return e
}

// writeJSONRPCResult writes a successful JSON-RPC response.
func writeJSONRPCResult(w http.ResponseWriter, id any, result any) {
	data, err := json.Marshal(result)
	if err != nil {
		writeJSONRPCError(w, id, &JSONRPCError{Code: ErrCodeInternal, Message: "Failed to marshal result: " + err.Error()})
		return
	}
	_ = json.NewEncoder(w).Encode(JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Result:  data,
	})
}

// writeJSONRPCError writes a JSON-RPC error response.
func writeJSONRPCError(w http.ResponseWriter, id any, rpcErr *JSONRPCError) {
	_ = json.NewEncoder(w).Encode(JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error:   rpcErr,
	})
}

// handleEvents streams lifecycle events until the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	ch := s.subscribe()
	defer s.unsubscribe(ch)

	sw := NewSSEWriter(w)
	sw.Init()
	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			if err := sw.WriteEvent(ev); err != nil {
				s.logger.Debug("event stream closed", zap.Error(err))
				return
			}
		}
	}
}
