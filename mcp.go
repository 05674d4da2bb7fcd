// Package mcp serves the TOON tools over the Model Context Protocol
// (JSON-RPC 2.0 over HTTP POST) and provides a client for calling tools on
// a remote MCP server.
package mcp

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	MCPProtocolVersionLatest = "2025-06-18"
	MCPProtocolVersionMin    = "2024-11-05"
)

var supportedProtocolVersions = []string{
	"2024-11-05",
	"2025-03-26",
	"2025-06-18",
}

// SessionHeader carries the session ID assigned by initialize.
const SessionHeader = "Mcp-Session-Id"

// maxRequestBody bounds a single JSON-RPC request.
const maxRequestBody = 8 << 20

type registeredTool struct {
	Name         string
	Description  string
	Schema       map[string]any
	OutputSchema map[string]any
	Handler      ToolHandler
}

type ResourceHandler func(ctx context.Context, uri string) (*ResourceResponse, error)

type registeredResource struct {
	MCPResource
	Handler ResourceHandler
}

// Server is an MCP server instance. Register tools before serving; the
// registry is safe for concurrent use.
type Server struct {
	name         string
	version      string
	instructions string
	token        string
	logger       *slog.Logger
	sessions     SessionManager
	tools        map[string]*registeredTool
	resources    map[string]*registeredResource
	mu           sync.RWMutex
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the request logger. The default discards.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// WithBearerToken requires every request to carry the token.
func WithBearerToken(token string) ServerOption {
	return func(s *Server) { s.token = token }
}

// WithSessionManager replaces the in-memory session store.
func WithSessionManager(sm SessionManager) ServerOption {
	return func(s *Server) { s.sessions = sm }
}

// WithInstructions sets the instructions returned by initialize.
func WithInstructions(text string) ServerOption {
	return func(s *Server) { s.instructions = text }
}

// NewServer creates a new MCP server instance
func NewServer(name, version string, opts ...ServerOption) *Server {
	s := &Server{
		name:      name,
		version:   version,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		sessions:  NewMemorySessionManager(),
		tools:     make(map[string]*registeredTool),
		resources: make(map[string]*registeredResource),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterTool registers a tool, replacing any tool of the same name.
func (s *Server) RegisterTool(tool *ToolBuilder, handler ToolHandler) {
	s.mu.Lock()
	s.tools[tool.name] = &registeredTool{
		Name:         tool.name,
		Description:  tool.Description(),
		Schema:       tool.buildSchema(),
		OutputSchema: tool.buildOutputSchema(),
		Handler:      handler,
	}
	s.mu.Unlock()
}

func (s *Server) RegisterResource(uri, name, description, mimeType string, handler ResourceHandler) {
	s.mu.Lock()
	s.resources[uri] = &registeredResource{
		MCPResource: MCPResource{URI: uri, Name: name, Description: description, MimeType: mimeType},
		Handler:     handler,
	}
	s.mu.Unlock()
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.HandleRequest(w, r)
}

// HandleRequest handles MCP protocol requests
func (s *Server) HandleRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+SessionHeader)
		w.Header().Set("Access-Control-Expose-Headers", SessionHeader)
		w.Header().Set("Access-Control-Max-Age", "86400")
		w.WriteHeader(http.StatusOK)
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Expose-Headers", SessionHeader)

	if !s.authorized(r) {
		w.Header().Set("WWW-Authenticate", `Bearer realm="mcp"`)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodPost:
	case http.MethodDelete:
		s.handleDeleteSession(w, r)
		return
	default:
		w.Header().Set("Allow", "POST, DELETE, OPTIONS")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType != "application/json" && !strings.HasPrefix(contentType, "application/json;") {
		http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
		return
	}

	var req MCPRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
		s.sendMCPError(w, nil, ErrorCodeParseError, "Parse error", map[string]any{
			"details": err.Error(),
		})
		return
	}
	if req.JSONRPC != "2.0" {
		s.sendMCPError(w, req.ID, ErrorCodeInvalidRequest, "Invalid Request", map[string]any{
			"details": "JSONRPC field must be '2.0'",
		})
		return
	}
	if req.ID == nil {
		req.ID = ""
	}

	if req.Method != "initialize" {
		if id := r.Header.Get(SessionHeader); id != "" {
			ok, err := s.sessions.ValidateSession(r.Context(), id)
			if err != nil {
				s.logger.Error("session lookup failed", "error", err)
				http.Error(w, "Session lookup failed", http.StatusInternalServerError)
				return
			}
			if !ok {
				http.Error(w, "Session not found", http.StatusNotFound)
				return
			}
		}
	}

	start := time.Now()
	switch req.Method {
	case "initialize":
		s.handleInitialize(w, r, &req)
	case "notifications/initialized":
		w.WriteHeader(http.StatusAccepted)
	case "ping":
		s.sendMCPResponse(w, req.ID, map[string]any{})
	case "tools/list":
		s.sendMCPResponse(w, req.ID, map[string]any{"tools": s.ListTools()})
	case "tools/call":
		s.handleToolsCall(w, r, &req)
	case "resources/list":
		s.sendMCPResponse(w, req.ID, map[string]any{"resources": s.ListResources()})
	case "resources/read":
		s.handleResourcesRead(w, r, &req)
	default:
		s.sendMCPError(w, req.ID, ErrorCodeMethodNotFound, "Method not found", map[string]any{
			"method": req.Method,
		})
	}
	s.logger.Debug("mcp request", "method", req.Method, "duration", time.Since(start))
}

func (s *Server) authorized(r *http.Request) bool {
	if s.token == "" {
		return true
	}
	got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) == 1
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(SessionHeader)
	if id == "" {
		http.Error(w, "Missing "+SessionHeader, http.StatusBadRequest)
		return
	}
	if err := s.sessions.DeleteSession(r.Context(), id); err != nil {
		s.logger.Error("session delete failed", "error", err)
		http.Error(w, "Session delete failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func isSupportedProtocolVersion(version string) bool {
	return slices.Contains(supportedProtocolVersions, version)
}

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request, req *MCPRequest) {
	var params initializeParams
	if err := decodeParams(req.Params, &params); err != nil {
		s.sendMCPError(w, req.ID, ErrorCodeInvalidParams, "Invalid params", nil)
		return
	}

	protocolVersion := MCPProtocolVersionLatest
	if params.ProtocolVersion != "" {
		if !isSupportedProtocolVersion(params.ProtocolVersion) {
			s.sendMCPError(w, req.ID, ErrorCodeInvalidParams, "Unsupported protocol version", map[string]any{
				"requested": params.ProtocolVersion,
				"supported": supportedProtocolVersions,
			})
			return
		}
		protocolVersion = params.ProtocolVersion
	}

	sessionID, err := s.sessions.CreateSession(r.Context(), protocolVersion)
	if err != nil {
		s.sendMCPError(w, req.ID, ErrorCodeInternalError, "Session creation failed", nil)
		return
	}
	w.Header().Set(SessionHeader, sessionID)
	s.logger.Info("session opened",
		"session", sessionID,
		"protocol", protocolVersion,
		"client", params.ClientInfo.Name,
	)

	s.sendMCPResponse(w, req.ID, initializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities:    s.buildCapabilities(protocolVersion),
		ServerInfo:      serverInfo{Name: s.name, Version: s.version},
		Instructions:    s.instructions,
	})
}

func (s *Server) buildCapabilities(protocolVersion string) capabilities {
	if protocolVersion == "2024-11-05" {
		return capabilities{Tools: map[string]any{}, Resources: map[string]any{}}
	}
	return capabilities{
		Tools:     map[string]any{"listChanged": false},
		Resources: map[string]any{"subscribe": false, "listChanged": false},
	}
}

// ListTools returns the registered tools sorted by name.
func (s *Server) ListTools() []MCPTool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tools := make([]MCPTool, 0, len(s.tools))
	for _, tool := range s.tools {
		item := MCPTool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.Schema,
		}
		if tool.OutputSchema != nil {
			item.OutputSchema = tool.OutputSchema
		}
		tools = append(tools, item)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools
}

// ListResources returns the registered resources sorted by URI.
func (s *Server) ListResources() []MCPResource {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]MCPResource, 0, len(s.resources))
	for _, res := range s.resources {
		out = append(out, res.MCPResource)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URI < out[j].URI })
	return out
}

// ErrToolNotFound is returned by CallTool for an unknown tool name.
var ErrToolNotFound = errors.New("tool not found")

// CallTool executes a tool directly, without going through HTTP.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (*ToolResponse, error) {
	s.mu.RLock()
	tool, exists := s.tools[name]
	s.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	if args == nil {
		args = map[string]any{}
	}
	return tool.Handler(ctx, NewToolRequest(args))
}

func (s *Server) handleToolsCall(w http.ResponseWriter, r *http.Request, req *MCPRequest) {
	var params toolCallParams
	if err := decodeParams(req.Params, &params); err != nil || params.Name == "" {
		s.sendMCPError(w, req.ID, ErrorCodeInvalidParams, "Invalid params", nil)
		return
	}

	start := time.Now()
	response, err := s.CallTool(r.Context(), params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("tool failed", "tool", params.Name, "error", err, "duration", time.Since(start))

		var toolErr *ToolError
		switch {
		case errors.Is(err, ErrToolNotFound):
			s.sendMCPError(w, req.ID, ErrorCodeMethodNotFound, err.Error(), nil)
		case errors.As(err, &toolErr):
			s.sendMCPError(w, req.ID, toolErr.Code, toolErr.Message, toolErr.Data)
		default:
			s.sendMCPError(w, req.ID, ErrorCodeInternalError, fmt.Sprintf("Tool execution failed: %v", err), nil)
		}
		return
	}
	s.logger.Info("tool called", "tool", params.Name, "duration", time.Since(start))

	s.sendMCPResponse(w, req.ID, ToolResult{
		Content:           response.Content,
		StructuredContent: response.StructuredContent,
	})
}

func (s *Server) handleResourcesRead(w http.ResponseWriter, r *http.Request, req *MCPRequest) {
	var params resourceReadParams
	if err := decodeParams(req.Params, &params); err != nil {
		s.sendMCPError(w, req.ID, ErrorCodeInvalidParams, "Invalid params", nil)
		return
	}

	s.mu.RLock()
	resource, exists := s.resources[params.URI]
	s.mu.RUnlock()

	if !exists {
		s.sendMCPError(w, req.ID, ErrorCodeInvalidParams, "Resource not found", map[string]any{"uri": params.URI})
		return
	}

	response, err := resource.Handler(r.Context(), params.URI)
	if err != nil {
		s.sendMCPError(w, req.ID, ErrorCodeInternalError, fmt.Sprintf("Resource read failed: %v", err), nil)
		return
	}
	s.sendMCPResponse(w, req.ID, response)
}

// decodeParams re-decodes the generic params into a typed struct.
func decodeParams(params any, v any) error {
	if params == nil {
		return nil
	}
	data, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (s *Server) sendMCPResponse(w http.ResponseWriter, id any, result any) {
	s.writeJSON(w, MCPResponse{JSONRPC: "2.0", ID: id, Result: result})
}

func (s *Server) sendMCPError(w http.ResponseWriter, id any, code int, message string, data any) {
	s.writeJSON(w, MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &MCPError{Code: code, Message: message, Data: data},
	})
}

// writeJSON always answers 200; JSON-RPC errors travel in the body.
func (s *Server) writeJSON(w http.ResponseWriter, response MCPResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("writing response failed", "error", err)
	}
}
