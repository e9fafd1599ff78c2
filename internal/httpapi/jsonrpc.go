package httpapi

import "encoding/json"

// JSONRPCRequest is the JSON-RPC 2.0 request shape callers send to
// /agents/{id}/v1/messages:send. The proxy forwards such bodies as raw
// bytes and does not decode them into this type.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse is the corresponding JSON-RPC 2.0 response envelope.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError mirrors the proxy's error taxonomy on the wire.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// AgentCard is the capability document served at
// /.well-known/agent.json — either the proxy's own card, or (for
// /agents/{id}/.well-known/agent.json) a target agent's card fetched via
// routing, with URL fields rewritten to point back through the proxy.
type AgentCard struct {
	Name               string   `json:"name"`
	Description        string   `json:"description,omitempty"`
	URL                string   `json:"url"`
	Version            string   `json:"version,omitempty"`
	Capabilities       []string `json:"capabilities,omitempty"`
	DefaultInputModes  []string `json:"defaultInputModes,omitempty"`
	DefaultOutputModes []string `json:"defaultOutputModes,omitempty"`
}
