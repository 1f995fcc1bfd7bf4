package environments

import (
	"context"
	"fmt"
	"strings"

	"github.com/botsmith-dev/botsmith/pkg/auth"
	"github.com/botsmith-dev/botsmith/pkg/chain"
	"github.com/botsmith-dev/botsmith/pkg/errors"
	"github.com/botsmith-dev/botsmith/pkg/logger"
	"github.com/botsmith-dev/botsmith/pkg/networking"
)

// DefaultDirectoryBase is the public-cloud directory API base URL.
const DefaultDirectoryBase = "https://api.example-platform.net"

// DefaultHostSuffixes are the hostname suffixes under which platform instance
// URLs are issued. The label in front of the suffix is the environment's
// organization identifier.
var DefaultHostSuffixes = []string{
	"example-platform.net",
	"instances.example-platform.net",
}

// Config configures a Resolver. Zero values fall back to the public-cloud
// defaults.
type Config struct {
	// DirectoryBases are the directory API base URLs, in priority order.
	DirectoryBases []string

	// HostSuffixes are the known instance hostname suffixes for the
	// URL-derived fallback.
	HostSuffixes []string

	// HTTPClient is the client used for directory calls.
	HTTPClient networking.HTTPClient
}

// Resolver turns an environment reference into a concrete environment record.
type Resolver struct {
	bases    []string
	suffixes []string
	client   networking.HTTPClient
}

// NewResolver creates a Resolver from the given configuration.
func NewResolver(cfg Config) (*Resolver, error) {
	bases := cfg.DirectoryBases
	if len(bases) == 0 {
		bases = []string{DefaultDirectoryBase}
	}
	suffixes := cfg.HostSuffixes
	if len(suffixes) == 0 {
		suffixes = DefaultHostSuffixes
	}

	client := cfg.HTTPClient
	if client == nil {
		built, err := networking.NewHttpClientBuilder().Build()
		if err != nil {
			return nil, err
		}
		client = built
	}

	return &Resolver{bases: bases, suffixes: suffixes, client: client}, nil
}

// Resolve resolves the reference against the directory surfaces, falling back
// to hostname decomposition when no directory is usable. The returned record
// is fixed for the remainder of the run. On total failure the error has type
// environment_not_found and its message carries every environment that was
// visible, to help the operator correct the URL.
func (r *Resolver) Resolve(ctx context.Context, ref Reference, tok *auth.Token) (*Record, error) {
	listing := r.obtainListing(ctx, tok)

	if len(listing) > 0 {
		if rec := matchListing(ref, listing); rec != nil {
			logger.Infow("resolved environment from directory",
				"environment", rec.EnvironmentID,
				"confidence", rec.MatchConfidence,
			)
			return rec, nil
		}
	}

	if rec := r.deriveFromURL(ref); rec != nil {
		logger.Warnw("environment resolved from URL decomposition only; directory did not confirm it",
			"environment", rec.EnvironmentID,
		)
		return rec, nil
	}

	return nil, errors.NewEnvironmentNotFoundError(notFoundMessage(ref, listing), nil)
}

// obtainListing walks the directory surfaces in priority order and returns
// the first non-empty normalized listing. Directory failures are not fatal
// here; an empty return means matching is skipped and the URL fallback runs.
func (r *Resolver) obtainListing(ctx context.Context, tok *auth.Token) []Record {
	var steps []chain.Step[[]Record]
	for _, base := range r.bases {
		for _, surface := range directorySurfaces {
			steps = append(steps, chain.Step[[]Record]{
				Name: fmt.Sprintf("%s@%s", surface.name, base),
				Run: func(ctx context.Context) ([]Record, error) {
					return listEnvironments(ctx, r.client, surface, base, tok.AccessToken)
				},
			})
		}
	}

	res, err := chain.First(ctx, steps)
	if err != nil {
		logger.Warnf("no directory surface produced an environment listing: %v", err)
		return nil
	}

	logger.Debugw("obtained environment listing", "surface", res.Step, "count", len(res.Value))
	return res.Value
}

// matchStrategy is one way of matching the reference against a listing. A
// strategy is taken only when it yields exactly one candidate; ties and zero
// matches fall through to the next strategy.
type matchStrategy struct {
	name       string
	confidence Confidence
	matches    func(ref Reference, rec Record) bool
}

var matchStrategies = []matchStrategy{
	{
		name:       "exact",
		confidence: ConfidenceExact,
		matches: func(ref Reference, rec Record) bool {
			supplied := strings.ToLower(strings.TrimSpace(ref.SuppliedURL))
			host := ref.host()
			for _, key := range []string{rec.EnvironmentID, rec.DisplayName} {
				if key == "" {
					continue
				}
				if k := strings.ToLower(key); k == supplied || k == host {
					return true
				}
			}
			return false
		},
	},
	{
		name:       "substring",
		confidence: ConfidencePartial,
		matches: func(ref Reference, rec Record) bool {
			host := ref.host()
			if host == "" {
				return false
			}
			label, _, _ := strings.Cut(host, ".")
			for _, key := range []string{rec.EnvironmentID, rec.DisplayName} {
				if key == "" {
					continue
				}
				k := strings.ToLower(key)
				if strings.Contains(k, label) || strings.Contains(host, k) {
					return true
				}
			}
			return false
		},
	},
	{
		name:       "instance-url",
		confidence: ConfidenceExact,
		matches: func(ref Reference, rec Record) bool {
			host := ref.host()
			if host == "" || rec.InstanceURL == "" {
				return false
			}
			return Reference{SuppliedURL: rec.InstanceURL}.host() == host
		},
	},
}

// matchListing applies the matching strategies in priority order and returns
// the single candidate of the first strategy that is unambiguous.
func matchListing(ref Reference, listing []Record) *Record {
	for _, strategy := range matchStrategies {
		var hits []Record
		for _, rec := range listing {
			if strategy.matches(ref, rec) {
				hits = append(hits, rec)
			}
		}
		switch len(hits) {
		case 1:
			rec := hits[0]
			rec.MatchConfidence = strategy.confidence
			return &rec
		case 0:
			logger.Debugf("match strategy %q: no candidates", strategy.name)
		default:
			logger.Debugf("match strategy %q: ambiguous (%d candidates), falling through", strategy.name, len(hits))
		}
	}
	return nil
}

// deriveFromURL decomposes the supplied hostname against the known platform
// suffixes. The label in front of the suffix is the organization identifier;
// no display name can be verified this way.
func (r *Resolver) deriveFromURL(ref Reference) *Record {
	host := ref.host()
	if host == "" {
		return nil
	}

	for _, suffix := range r.suffixes {
		suffix = strings.ToLower(strings.TrimPrefix(suffix, "."))
		if !strings.HasSuffix(host, "."+suffix) {
			continue
		}
		label := strings.TrimSuffix(host, "."+suffix)
		if label == "" || strings.Contains(label, ".") {
			continue
		}
		return &Record{
			EnvironmentID:   label,
			InstanceURL:     "https://" + host,
			MatchConfidence: ConfidenceURLDerived,
		}
	}
	return nil
}

// notFoundMessage includes everything that was visible so the operator can
// correct the supplied URL without re-running with extra diagnostics.
func notFoundMessage(ref Reference, listing []Record) string {
	if len(listing) == 0 {
		return fmt.Sprintf("no environment matched %q and no directory listing was available", ref.SuppliedURL)
	}

	seen := make([]string, 0, len(listing))
	for _, rec := range listing {
		seen = append(seen, rec.String())
	}
	return fmt.Sprintf("no environment matched %q; visible environments: %s",
		ref.SuppliedURL, strings.Join(seen, "; "))
}
