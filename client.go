package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/paularlott/mcp-toon/pool"
)

const (
	mcpClientName    = "toon-client"
	mcpClientVersion = "1.0.0"
)

// ErrUnauthorized is returned when the server rejects the credentials twice.
var ErrUnauthorized = errors.New("mcp: unauthorized")

// Client represents an MCP client for connecting to remote servers
type Client struct {
	baseURL     string
	httpClient  *http.Client
	auth        AuthProvider
	logger      *slog.Logger
	cachedTools []MCPTool
	mu          sync.RWMutex
	initialized bool
	sessionID   string
	nextID      atomic.Int64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the pooled HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithClientLogger sets the client logger. The default discards.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a new MCP client. auth may be nil.
func NewClient(baseURL string, auth AuthProvider, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: pool.Default(),
		auth:       auth,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SessionID returns the session assigned by the server, if any.
func (c *Client) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

// Initialize performs the MCP handshake with the remote server
func (c *Client) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return nil
	}

	req := c.newRequest("initialize", map[string]any{
		"protocolVersion": MCPProtocolVersionLatest,
		"capabilities":    map[string]any{},
		"clientInfo": map[string]any{
			"name":    mcpClientName,
			"version": mcpClientVersion,
		},
	})

	var resp MCPResponse
	headers, err := c.sendRequest(ctx, req, &resp, "")
	if err != nil {
		return fmt.Errorf("initialize failed: %w", err)
	}
	if resp.Error != nil {
		return fmt.Errorf("initialize error: %s", resp.Error.Message)
	}

	c.sessionID = headers.Get(SessionHeader)
	c.initialized = true
	c.logger.Debug("mcp session opened", "url", c.baseURL, "session", c.sessionID)
	return nil
}

func (c *Client) ensureInitialized(ctx context.Context) (string, error) {
	c.mu.RLock()
	initialized, sessionID := c.initialized, c.sessionID
	c.mu.RUnlock()
	if initialized {
		return sessionID, nil
	}
	if err := c.Initialize(ctx); err != nil {
		return "", err
	}
	return c.SessionID(), nil
}

// ListTools retrieves tools from the remote server. The list is cached until
// RefreshToolCache.
func (c *Client) ListTools(ctx context.Context) ([]MCPTool, error) {
	sessionID, err := c.ensureInitialized(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	if c.cachedTools != nil {
		result := make([]MCPTool, len(c.cachedTools))
		copy(result, c.cachedTools)
		c.mu.RUnlock()
		return result, nil
	}
	c.mu.RUnlock()

	var resp MCPResponse
	if _, err := c.sendRequest(ctx, c.newRequest("tools/list", nil), &resp, sessionID); err != nil {
		return nil, fmt.Errorf("list tools failed: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("list tools error: code %d", resp.Error.Code)
	}

	var result struct {
		Tools []MCPTool `json:"tools"`
	}
	if err := decodeParams(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("failed to parse tools response: %w", err)
	}

	c.mu.Lock()
	c.cachedTools = make([]MCPTool, len(result.Tools))
	copy(c.cachedTools, result.Tools)
	c.mu.Unlock()

	return result.Tools, nil
}

// RefreshToolCache explicitly refreshes the tool cache
func (c *Client) RefreshToolCache(ctx context.Context) error {
	c.mu.Lock()
	c.cachedTools = nil
	c.mu.Unlock()

	_, err := c.ListTools(ctx)
	return err
}

// CallTool executes a tool on the remote server. A JSON-RPC error comes back
// as a *ToolError.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*ToolResponse, error) {
	sessionID, err := c.ensureInitialized(ctx)
	if err != nil {
		return nil, err
	}

	req := c.newRequest("tools/call", map[string]any{
		"name":      name,
		"arguments": args,
	})

	var resp MCPResponse
	if _, err := c.sendRequest(ctx, req, &resp, sessionID); err != nil {
		return nil, fmt.Errorf("call tool failed: %w", err)
	}
	if resp.Error != nil {
		return nil, &ToolError{
			Code:    resp.Error.Code,
			Message: resp.Error.Message,
			Data:    resp.Error.Data,
		}
	}

	var result ToolResult
	if err := decodeParams(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("failed to parse tool response: %w", err)
	}

	return &ToolResponse{
		Content:           result.Content,
		StructuredContent: result.StructuredContent,
	}, nil
}

// Close ends the session on the server.
func (c *Client) Close(ctx context.Context) error {
	sessionID := c.SessionID()
	if sessionID == "" {
		return nil
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL, nil)
	if err != nil {
		return err
	}
	httpReq.Header.Set(SessionHeader, sessionID)
	if err := c.authorize(httpReq); err != nil {
		return err
	}
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("closing session: %w", err)
	}
	httpResp.Body.Close()

	c.mu.Lock()
	c.sessionID = ""
	c.initialized = false
	c.mu.Unlock()
	return nil
}

func (c *Client) newRequest(method string, params any) *MCPRequest {
	return &MCPRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	}
}

func (c *Client) authorize(httpReq *http.Request) error {
	if c.auth == nil {
		return nil
	}
	authHeader, err := c.auth.GetAuthHeader()
	if err != nil {
		return fmt.Errorf("failed to get auth header: %w", err)
	}
	httpReq.Header.Set("Authorization", authHeader)
	return nil
}

// sendRequest posts req and decodes the reply into resp. A 401 refreshes the
// credentials and retries once.
func (c *Client) sendRequest(ctx context.Context, req *MCPRequest, resp *MCPResponse, sessionID string) (http.Header, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	for attempt := 0; ; attempt++ {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(reqBody))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Accept", "application/json, text/event-stream")
		httpReq.Header.Set("User-Agent", fmt.Sprintf("%s/%s", mcpClientName, mcpClientVersion))
		if sessionID != "" {
			httpReq.Header.Set(SessionHeader, sessionID)
		}
		if err := c.authorize(httpReq); err != nil {
			return nil, err
		}

		httpResp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		bodyBytes, err := io.ReadAll(httpResp.Body)
		httpResp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}

		if httpResp.StatusCode == http.StatusUnauthorized {
			if attempt > 0 || c.auth == nil {
				return nil, ErrUnauthorized
			}
			c.logger.Debug("refreshing credentials", "url", c.baseURL)
			if err := c.auth.Refresh(); err != nil {
				return nil, err
			}
			continue
		}
		if httpResp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("server returned status %d", httpResp.StatusCode)
		}

		if strings.HasPrefix(httpResp.Header.Get("Content-Type"), "text/event-stream") {
			return httpResp.Header, parseEventStream(bodyBytes, resp)
		}
		if err := json.Unmarshal(bodyBytes, resp); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		return httpResp.Header, nil
	}
}

// parseEventStream takes the first data line of a server-sent event stream.
func parseEventStream(data []byte, resp *MCPResponse) error {
	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if !bytes.HasPrefix(line, []byte("data:")) {
			continue
		}
		payload := bytes.TrimSpace(bytes.TrimPrefix(line, []byte("data:")))
		if len(payload) == 0 {
			continue
		}
		return json.Unmarshal(payload, resp)
	}
	return fmt.Errorf("no JSON data found in event stream")
}
