package rpcapi

import "encoding/json"

// JSONRPCVersion must appear in every request and response.
const JSONRPCVersion = "2.0"

// JSONRPCRequest is one call posted to /rpc. Notifications (no id) are
// answered like calls.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse carries either Result or Error, never both.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError describes a failed call. Data is set only for codes that
// document a payload.
type JSONRPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Protocol-level failures.
const (
	ErrCodeParse          = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternal       = -32603
)

// Dispatch failures, in the server-defined range.
const (
	ErrCodeRejected         = -32001 // invalid request or unknown casier
	ErrCodeUnmetDependency  = -32002 // data: {"missing": [...]}
	ErrCodeNotFound         = -32003
	ErrCodeInProgress       = -32004
	ErrCodeInvalidLifecycle = -32005
)

const (
	MethodDispatch      = "documents/dispatch"
	MethodFinalize      = "documents/finalize"
	MethodGet           = "documents/get"
	MethodPrerequisites = "documents/prerequisites"
	MethodClientStatus  = "clients/status"
)
