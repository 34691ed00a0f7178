package oauth

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"crewsync-service/pkg/logger"
)

// GraphOAuth handles client-credential authentication against the directory
// API's tenant token endpoint.
type GraphOAuth struct {
	config *clientcredentials.Config
	logger logger.Logger
}

// NewGraphOAuth creates a new Graph OAuth handler
func NewGraphOAuth(tenantID, clientID, clientSecret, scope string, logger logger.Logger) *GraphOAuth {
	config := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", tenantID),
		Scopes:       []string{scope},
	}

	return &GraphOAuth{
		config: config,
		logger: logger,
	}
}

// GetTokenSource returns a reusing token source for the Graph API
func (o *GraphOAuth) GetTokenSource(ctx context.Context) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, o.config.TokenSource(ctx))
}

// NewHTTPClient returns an http.Client that injects bearer tokens on every request
func (o *GraphOAuth) NewHTTPClient(ctx context.Context) *http.Client {
	return oauth2.NewClient(ctx, o.GetTokenSource(ctx))
}
