package pool

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	c := Default()
	if c != Default() {
		t.Error("expected the same client on every call")
	}
	if c.Timeout != 30*time.Second {
		t.Errorf("Expected 30s timeout, got %v", c.Timeout)
	}
	if _, ok := c.Transport.(*http.Transport); !ok {
		t.Errorf("Expected *http.Transport, got %T", c.Transport)
	}
}

func TestH2C(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, r.Proto)
	})
	ts := httptest.NewServer(H2CHandler(handler))
	defer ts.Close()

	cfg := DefaultConfig()
	cfg.H2C = true

	tests := []struct {
		name     string
		client   *http.Client
		expected string
	}{
		{"h2c client", NewClient(cfg), "HTTP/2.0"},
		{"plain client", NewClient(DefaultConfig()), "HTTP/1.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := tt.client.Get(ts.URL)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			if string(body) != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, body)
			}
		})
	}
}
