package auth

import (
	"fmt"
	"time"
)

const (
	// redactedPlaceholder is used to redact sensitive values in string representations
	redactedPlaceholder = "[REDACTED]"

	// emptyPlaceholder is used to indicate empty/missing values in string representations
	emptyPlaceholder = "<empty>"
)

// Token is the access token in use for the run. Exactly one token is live at
// a time: when a fallback strategy succeeds, its token fully replaces anything
// the primary strategy produced. Tokens live in memory only and are never
// persisted.
type Token struct {
	// AccessToken is the bearer token value.
	AccessToken string

	// Scope is the scope the token was granted for.
	Scope string

	// Strategy names the exchange strategy that produced the token,
	// for diagnosability.
	Strategy string

	// AcquiredAt is when the exchange completed.
	AcquiredAt time.Time

	// Expiry is the server-reported expiry, zero when the server did not
	// report one.
	Expiry time.Time
}

// String implements fmt.Stringer, redacting the token value.
func (t *Token) String() string {
	value := redactedPlaceholder
	if t.AccessToken == "" {
		value = emptyPlaceholder
	}
	return fmt.Sprintf("Token{AccessToken: %s, Scope: %s, Strategy: %s, AcquiredAt: %s}",
		value, t.Scope, t.Strategy, t.AcquiredAt.Format(time.RFC3339))
}
