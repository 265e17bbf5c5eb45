package api

import (
	"context"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/crm-portal/portal-agent/internal/config"
)

// NewTokenSource returns the bearer token source for cfg: client credentials
// when a token url is configured, the static token otherwise, nil without either.
func NewTokenSource(cfg config.API) oauth2.TokenSource {
	switch {
	case cfg.TokenURL != "":
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.Secret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}

		return cc.TokenSource(context.Background())
	case cfg.Token != "":
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"})
	default:
		return nil
	}
}
