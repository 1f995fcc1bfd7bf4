// Package environments resolves a human-supplied environment URL to a
// concrete environment record. Several directory API surfaces are tried in
// order, their divergent response envelopes normalized before matching; when
// no directory is reachable the hostname itself deterministically encodes the
// identifier in the common case, so URL decomposition is the fallback of last
// resort.
package environments

import (
	"fmt"
	"net/url"
	"strings"
)

// Confidence describes how the environment record was matched.
type Confidence string

const (
	// ConfidenceExact means an exact identifier, display-name, or
	// instance-URL match against a directory listing.
	ConfidenceExact Confidence = "exact"

	// ConfidencePartial means a substring match against a directory listing.
	ConfidencePartial Confidence = "partial"

	// ConfidenceURLDerived means the identifier was decomposed from the
	// supplied URL without directory verification.
	ConfidenceURLDerived Confidence = "url-derived"
)

// Reference is the environment URL supplied by pipeline configuration.
type Reference struct {
	// SuppliedURL is the raw URL (or bare hostname) as configured.
	SuppliedURL string
}

// host returns the hostname portion of the supplied URL, tolerating bare
// hostnames without a scheme.
func (r Reference) host() string {
	raw := strings.TrimSpace(r.SuppliedURL)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

// Record is a resolved environment. It is created once per run and read-only
// afterward; there is no re-resolution mid-run.
type Record struct {
	// EnvironmentID is the directory identifier of the environment.
	EnvironmentID string

	// DisplayName is the human-readable name, empty for URL-derived records.
	DisplayName string

	// InstanceURL is the environment's API instance base URL.
	InstanceURL string

	// MatchConfidence records which matching strategy produced the record.
	MatchConfidence Confidence
}

func (r Record) String() string {
	return fmt.Sprintf("%s (%q, %s, confidence=%s)", r.EnvironmentID, r.DisplayName, r.InstanceURL, r.MatchConfidence)
}
