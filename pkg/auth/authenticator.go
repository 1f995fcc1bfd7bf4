// Package auth exchanges pipeline credentials for the access token a run uses
// against the platform APIs. Two strategies are tried in order: an OIDC
// discovery based client-credentials exchange, then a direct protocol-level
// grant per candidate scope. The first usable token wins and fully replaces
// anything an earlier strategy produced.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/botsmith-dev/botsmith/pkg/chain"
	"github.com/botsmith-dev/botsmith/pkg/credentials"
	"github.com/botsmith-dev/botsmith/pkg/errors"
	"github.com/botsmith-dev/botsmith/pkg/logger"
	"github.com/botsmith-dev/botsmith/pkg/networking"
)

const (
	// DefaultAuthority is the public-cloud identity provider base URL.
	// Sovereign and regional clouds override it via configuration.
	DefaultAuthority = "https://login.example-identity.net"

	// StrategyOIDCDiscovery names the primary exchange strategy.
	StrategyOIDCDiscovery = "oidc-discovery"

	// StrategyClientCredentials names the direct per-scope fallback grant.
	StrategyClientCredentials = "client-credentials"
)

// oAuthError represents an OAuth 2.0 error response as defined in RFC 6749 Section 5.2.
type oAuthError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	StatusCode       int    `json:"-"`
}

func (e *oAuthError) String() string {
	if e.ErrorDescription != "" {
		return fmt.Sprintf("OAuth error %q (status %d): %s", e.Error, e.StatusCode, e.ErrorDescription)
	}
	return fmt.Sprintf("OAuth error %q (status %d)", e.Error, e.StatusCode)
}

// parseOAuthError attempts to parse an OAuth error response from the given response body.
func parseOAuthError(statusCode int, body []byte) *oAuthError {
	var oauthErr oAuthError
	if err := json.Unmarshal(body, &oauthErr); err != nil {
		return nil
	}
	if oauthErr.Error == "" {
		return nil
	}
	oauthErr.StatusCode = statusCode
	return &oauthErr
}

// tokenResponse is used to decode the token endpoint response for the direct
// client-credentials grant.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
}

// Authenticator acquires the single access token used for the rest of the run.
type Authenticator struct {
	authority string
	client    *http.Client
}

// NewAuthenticator creates an Authenticator against the given identity
// provider authority base URL. A nil client gets the standard hardened client.
func NewAuthenticator(authority string, client *http.Client) (*Authenticator, error) {
	if authority == "" {
		authority = DefaultAuthority
	}
	if _, err := url.Parse(authority); err != nil {
		return nil, errors.NewInvalidArgumentError("invalid authority URL", err)
	}

	if client == nil {
		built, err := networking.NewHttpClientBuilder().Build()
		if err != nil {
			return nil, err
		}
		client = built
	}

	return &Authenticator{
		authority: strings.TrimRight(authority, "/"),
		client:    client,
	}, nil
}

// issuerURL is the tenant-scoped OIDC issuer.
func (a *Authenticator) issuerURL(tenantID string) string {
	return fmt.Sprintf("%s/%s/v2.0", a.authority, tenantID)
}

// tokenURL is the tenant-scoped token endpoint used by the direct grant.
func (a *Authenticator) tokenURL(tenantID string) string {
	return fmt.Sprintf("%s/%s/oauth2/v2.0/token", a.authority, tenantID)
}

// Acquire exchanges the credential context for a usable access token. The
// primary OIDC-discovery strategy is tried once; on failure each candidate
// scope is tried in priority order with a direct client-credentials grant.
// When everything fails the returned error has type auth_exhausted, which is
// fatal for the run.
func (a *Authenticator) Acquire(ctx context.Context, creds *credentials.Context) (*Token, error) {
	if err := creds.Validate(); err != nil {
		return nil, errors.NewInvalidArgumentError("incomplete credential context", err)
	}

	steps := []chain.Step[*Token]{
		{
			Name: StrategyOIDCDiscovery,
			Run: func(ctx context.Context) (*Token, error) {
				return a.primaryExchange(ctx, creds)
			},
		},
	}
	for _, scope := range creds.CandidateScopes {
		steps = append(steps, chain.Step[*Token]{
			Name: fmt.Sprintf("%s[%s]", StrategyClientCredentials, scope),
			Run: func(ctx context.Context) (*Token, error) {
				return a.directGrant(ctx, creds, scope)
			},
		})
	}

	res, err := chain.First(ctx, steps)
	if err != nil {
		return nil, errors.NewAuthExhaustedError(
			fmt.Sprintf("no authentication strategy produced a token for client %s", creds.ClientID), err)
	}

	logger.Infow("acquired access token",
		"strategy", res.Value.Strategy,
		"scope", res.Value.Scope,
	)
	return res.Value, nil
}

// primaryExchange discovers the tenant issuer's token endpoint via OIDC and
// runs the client-credentials flow against it with the highest-priority scope.
func (a *Authenticator) primaryExchange(ctx context.Context, creds *credentials.Context) (*Token, error) {
	ctx = oidc.ClientContext(ctx, a.client)

	provider, err := oidc.NewProvider(ctx, a.issuerURL(creds.TenantID))
	if err != nil {
		return nil, fmt.Errorf("issuer discovery failed: %w", err)
	}

	scope := creds.CandidateScopes[0]
	conf := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     provider.Endpoint().TokenURL,
		Scopes:       []string{scope},
	}

	tok, err := conf.Token(context.WithValue(ctx, oauth2.HTTPClient, a.client))
	if err != nil {
		return nil, fmt.Errorf("client credentials flow failed: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("token endpoint returned an empty access token")
	}

	return &Token{
		AccessToken: tok.AccessToken,
		Scope:       scope,
		Strategy:    StrategyOIDCDiscovery,
		AcquiredAt:  time.Now(),
		Expiry:      tok.Expiry,
	}, nil
}

// directGrant performs a raw RFC 6749 §4.4 client-credentials grant for one
// scope against the tenant token endpoint, bypassing issuer discovery. Some
// credential scopes are valid for the grant even when the directory refuses
// discovery to them.
func (a *Authenticator) directGrant(ctx context.Context, creds *credentials.Context, scope string) (*Token, error) {
	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("client_id", creds.ClientID)
	data.Set("client_secret", creds.ClientSecret)
	data.Set("scope", scope)

	endpoint := a.tokenURL(creds.TenantID)
	body, status, err := networking.FetchRaw(ctx, a.client, endpoint, networking.WithFormBody(data))
	if err != nil {
		if oauthErr := parseOAuthError(status, body); oauthErr != nil {
			return nil, fmt.Errorf("token endpoint rejected scope %q: %s", scope, oauthErr)
		}
		return nil, fmt.Errorf("token request failed for scope %q: %w", scope, err)
	}

	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("token endpoint returned an empty access token for scope %q", scope)
	}

	token := &Token{
		AccessToken: resp.AccessToken,
		Scope:       scope,
		Strategy:    StrategyClientCredentials,
		AcquiredAt:  time.Now(),
	}
	if resp.ExpiresIn > 0 {
		token.Expiry = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return token, nil
}
