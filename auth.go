package mcp

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// AuthProvider supplies the Authorization header for client requests.
type AuthProvider interface {
	GetAuthHeader() (string, error)
	Refresh() error
}

// BearerTokenAuth implements simple static bearer token authentication.
type BearerTokenAuth struct {
	token string
}

func NewBearerTokenAuth(token string) *BearerTokenAuth {
	return &BearerTokenAuth{token: token}
}

func (b *BearerTokenAuth) GetAuthHeader() (string, error) {
	return fmt.Sprintf("Bearer %s", b.token), nil
}

func (b *BearerTokenAuth) Refresh() error { return nil }

// OAuth2Auth fetches tokens with the client credentials flow and caches them
// until they expire.
type OAuth2Auth struct {
	newSource func() oauth2.TokenSource
	source    oauth2.TokenSource
	token     *oauth2.Token
	mu        sync.RWMutex
}

// NewOAuth2Auth creates an OAuth2 provider using the client credentials flow.
// httpClient is used for token requests; nil means http.DefaultClient.
func NewOAuth2Auth(clientID, clientSecret, tokenURL string, scopes []string, httpClient *http.Client) *OAuth2Auth {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		Scopes:       scopes,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	ctx := context.Background()
	if httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	}
	newSource := func() oauth2.TokenSource { return cfg.TokenSource(ctx) }
	return &OAuth2Auth{newSource: newSource, source: newSource()}
}

func (o *OAuth2Auth) GetAuthHeader() (string, error) {
	o.mu.RLock()
	token := o.token
	valid := token != nil && token.Valid()
	o.mu.RUnlock()

	if !valid {
		o.mu.Lock()
		if o.token == nil || !o.token.Valid() {
			t, err := o.source.Token()
			if err != nil {
				o.mu.Unlock()
				return "", fmt.Errorf("failed to get oauth2 token: %w", err)
			}
			o.token = t
		}
		token = o.token
		o.mu.Unlock()
	}

	return fmt.Sprintf("Bearer %s", token.AccessToken), nil
}

// Refresh drops the cached token so the next request fetches a new one.
func (o *OAuth2Auth) Refresh() error {
	o.mu.Lock()
	o.token = nil
	o.source = o.newSource()
	o.mu.Unlock()
	return nil
}
