package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

type staticAuth struct{ header string }

func (s staticAuth) GetAuthHeader() (string, error) { return s.header, nil }
func (s staticAuth) Refresh() error                 { return nil }

func TestClient_InitializeListCall(t *testing.T) {
	srv := NewServer("svc", "1", WithBearerToken("t"))
	srv.RegisterTool(NewTool("upper", "to upper", String("s", "s", Required())), func(ctx context.Context, req *ToolRequest) (*ToolResponse, error) {
		v, _ := req.String("s")
		return NewToolResponseText(strings.ToUpper(v)), nil
	})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	c := NewClient(ts.URL, NewBearerTokenAuth("t"), WithHTTPClient(ts.Client()))
	ctx := context.Background()

	tools, err := c.ListTools(ctx)
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	if len(tools) != 1 || tools[0].Name != "upper" {
		t.Fatalf("unexpected tools: %+v", tools)
	}
	if c.SessionID() == "" {
		t.Error("expected a session id after initialize")
	}

	resp, err := c.CallTool(ctx, "upper", map[string]any{"s": "abc"})
	if err != nil {
		t.Fatalf("call tool: %v", err)
	}
	if len(resp.Content) != 1 || resp.Content[0].Text != "ABC" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	_, err = c.CallTool(ctx, "upper", map[string]any{})
	var te *ToolError
	if !errors.As(err, &te) {
		t.Fatalf("expected a ToolError, got %v", err)
	}

	if err := c.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if c.SessionID() != "" {
		t.Error("expected the session to be cleared")
	}
}

func TestClient_TOONTools(t *testing.T) {
	srv := NewServer("toon", "1")
	RegisterTOONTools(srv, ToolsConfig{})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	c := NewClient(ts.URL, nil, WithHTTPClient(ts.Client()))
	resp, err := c.CallTool(context.Background(), "toon_validate", map[string]any{"toon": "a[2]: 1"})
	if err != nil {
		t.Fatalf("call tool: %v", err)
	}
	sc, ok := resp.StructuredContent.(map[string]any)
	if !ok {
		t.Fatalf("expected structured content, got %T", resp.StructuredContent)
	}
	if sc["valid"] != false || sc["line"] != float64(1) {
		t.Errorf("unexpected result: %v", sc)
	}
}

func TestClient_SendsSessionAndAuth(t *testing.T) {
	var sessionSeen, authSeen string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var rpc MCPRequest
		_ = json.NewDecoder(r.Body).Decode(&rpc)
		w.Header().Set("Content-Type", "application/json")
		switch rpc.Method {
		case "initialize":
			w.Header().Set(SessionHeader, "sess-123")
			_ = json.NewEncoder(w).Encode(MCPResponse{JSONRPC: "2.0", ID: rpc.ID, Result: map[string]any{
				"protocolVersion": MCPProtocolVersionLatest,
			}})
		case "tools/list":
			sessionSeen = r.Header.Get(SessionHeader)
			authSeen = r.Header.Get("Authorization")
			_ = json.NewEncoder(w).Encode(MCPResponse{JSONRPC: "2.0", ID: rpc.ID, Result: map[string]any{"tools": []MCPTool{}}})
		}
	})
	ts := httptest.NewServer(h)
	defer ts.Close()

	c := NewClient(ts.URL, staticAuth{"Bearer xyz"}, WithHTTPClient(ts.Client()))
	if _, err := c.ListTools(context.Background()); err != nil {
		t.Fatalf("list tools: %v", err)
	}
	if sessionSeen != "sess-123" {
		t.Errorf("Expected session %q, got %q", "sess-123", sessionSeen)
	}
	if authSeen != "Bearer xyz" {
		t.Errorf("Expected auth %q, got %q", "Bearer xyz", authSeen)
	}
}

func TestClient_EventStream(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var rpc MCPRequest
		_ = json.NewDecoder(r.Body).Decode(&rpc)
		w.Header().Set("Content-Type", "text/event-stream")
		result := map[string]any{}
		if rpc.Method == "tools/call" {
			result = map[string]any{"content": []map[string]any{{"type": "text", "text": "streamed"}}}
		}
		data, _ := json.Marshal(MCPResponse{JSONRPC: "2.0", ID: rpc.ID, Result: result})
		w.Write([]byte("event: message\ndata: " + string(data) + "\n\n"))
	})
	ts := httptest.NewServer(h)
	defer ts.Close()

	c := NewClient(ts.URL, nil, WithHTTPClient(ts.Client()))
	resp, err := c.CallTool(context.Background(), "x", nil)
	if err != nil {
		t.Fatalf("call tool: %v", err)
	}
	if resp.Content[0].Text != "streamed" {
		t.Errorf("Expected %q, got %q", "streamed", resp.Content[0].Text)
	}
}

type countingAuth struct {
	refreshes atomic.Int32
}

func (a *countingAuth) GetAuthHeader() (string, error) {
	if a.refreshes.Load() == 0 {
		return "Bearer stale", nil
	}
	return "Bearer fresh", nil
}

func (a *countingAuth) Refresh() error {
	a.refreshes.Add(1)
	return nil
}

func TestClient_RefreshesOnUnauthorized(t *testing.T) {
	srv := NewServer("svc", "1", WithBearerToken("fresh"))
	ts := httptest.NewServer(srv)
	defer ts.Close()

	auth := &countingAuth{}
	c := NewClient(ts.URL, auth, WithHTTPClient(ts.Client()))
	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if auth.refreshes.Load() != 1 {
		t.Errorf("expected one refresh, got %d", auth.refreshes.Load())
	}

	bad := NewClient(ts.URL, NewBearerTokenAuth("wrong"), WithHTTPClient(ts.Client()))
	if err := bad.Initialize(context.Background()); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestOAuth2Auth(t *testing.T) {
	var issued atomic.Int32
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, secret, ok := r.BasicAuth()
		if !ok || id != "cli" || secret != "s3cret" {
			http.Error(w, "bad client", http.StatusUnauthorized)
			return
		}
		n := issued.Add(1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "token-" + string(rune('0'+n)),
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	}))
	defer tokenServer.Close()

	auth := NewOAuth2Auth("cli", "s3cret", tokenServer.URL, []string{"tools"}, tokenServer.Client())

	for i := 0; i < 2; i++ {
		header, err := auth.GetAuthHeader()
		if err != nil {
			t.Fatalf("GetAuthHeader failed: %v", err)
		}
		if header != "Bearer token-1" {
			t.Errorf("Expected cached token, got %q", header)
		}
	}

	auth.Refresh()
	header, err := auth.GetAuthHeader()
	if err != nil {
		t.Fatalf("GetAuthHeader failed: %v", err)
	}
	if header != "Bearer token-2" {
		t.Errorf("Expected a new token after refresh, got %q", header)
	}
}
