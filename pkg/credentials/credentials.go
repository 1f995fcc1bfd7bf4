// Package credentials holds the credential material a run authenticates with.
// The context is constructed once by the pipeline-facing command layer and is
// immutable for the lifetime of the run; secret material is never persisted.
package credentials

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/botsmith-dev/botsmith/pkg/logger"
)

const (
	// redactedPlaceholder is used to redact sensitive values in string representations
	redactedPlaceholder = "[REDACTED]"

	// emptyPlaceholder is used to indicate empty/missing values in string representations
	emptyPlaceholder = "<empty>"
)

// Context holds tenant, application, and secret material plus the prioritized
// list of token scopes the fallback authentication strategy walks through.
type Context struct {
	// TenantID is the identity-provider tenant (directory) identifier.
	TenantID string

	// ClientID is the application (client) identifier.
	ClientID string

	// ClientSecret is the application secret. Held in memory only.
	ClientSecret string

	// CandidateScopes is the ordered list of token scopes to try when the
	// primary authentication strategy does not produce a usable token.
	// Earlier entries win.
	CandidateScopes []string
}

// String implements fmt.Stringer, redacting the client secret.
func (c *Context) String() string {
	secret := redactedPlaceholder
	if c.ClientSecret == "" {
		secret = emptyPlaceholder
	}
	return fmt.Sprintf("Context{TenantID: %s, ClientID: %s, ClientSecret: %s, CandidateScopes: %v}",
		c.TenantID, c.ClientID, secret, c.CandidateScopes)
}

// Validate checks that the context carries everything a credential exchange needs.
func (c *Context) Validate() error {
	if c.TenantID == "" {
		return fmt.Errorf("tenant ID is required")
	}
	if c.ClientID == "" {
		return fmt.Errorf("client ID is required")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("client secret is required")
	}
	if len(c.CandidateScopes) == 0 {
		return fmt.Errorf("at least one candidate scope is required")
	}
	return nil
}

// readSecretFromFile reads a secret from a file, cleaning the path and trimming whitespace
func readSecretFromFile(filePath string) (string, error) {
	// Clean the file path to prevent path traversal
	cleanPath := filepath.Clean(filePath)
	logger.Debugf("Reading secret from file: %s", cleanPath)
	// #nosec G304 - file path is cleaned above
	secretBytes, err := os.ReadFile(cleanPath)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file %s: %w", cleanPath, err)
	}
	secret := strings.TrimSpace(string(secretBytes))
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", cleanPath)
	}
	return secret, nil
}

// ResolveSecret resolves the client secret from multiple sources following a
// standard priority order: 1. flag value, 2. file, 3. environment variable.
// An empty result is an error — the platform has no public-client flow for
// pipeline identities.
func ResolveSecret(flagValue, filePath, envVarName string) (string, error) {
	if flagValue != "" {
		logger.Debug("Using client secret from command-line flag")
		return flagValue, nil
	}

	if filePath != "" {
		return readSecretFromFile(filePath)
	}

	if secret := os.Getenv(envVarName); secret != "" {
		logger.Debugf("Using client secret from %s environment variable", envVarName)
		return secret, nil
	}

	return "", fmt.Errorf("no client secret provided via flag, file, or %s", envVarName)
}
