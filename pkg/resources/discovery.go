package resources

import (
	"context"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/botsmith-dev/botsmith/pkg/auth"
	"github.com/botsmith-dev/botsmith/pkg/chain"
	"github.com/botsmith-dev/botsmith/pkg/environments"
	"github.com/botsmith-dev/botsmith/pkg/logger"
	"github.com/botsmith-dev/botsmith/pkg/networking"
)

// agentNameTokens are the naming-convention markers used by the degraded
// fallback to pick agents out of a general application listing.
var agentNameTokens = []string{"bot", "agent", "copilot"}

// listingSurface is one resource-listing API variant.
type listingSurface struct {
	shape SourceShape
	path  string
	parse func(body []byte) []Record
}

// listingSurfaces are the candidate endpoints in priority order. The order is
// fixed at startup; at runtime candidates are never skipped or reordered.
var listingSurfaces = []listingSurface{
	{
		shape: ShapeAgentsV2,
		path:  "/api/agents/v2",
		parse: func(body []byte) []Record {
			return parseEnvelope(body, ShapeAgentsV2, "items", "id", "name")
		},
	},
	{
		shape: ShapeBotsV1,
		path:  "/api/botmanagement/v1/bots",
		parse: func(body []byte) []Record {
			return parseEnvelope(body, ShapeBotsV1, "value", "botId", "displayName")
		},
	},
	{
		shape: ShapeOrgData,
		path:  "/api/data/v9.2/bots?$select=botid,name",
		parse: func(body []byte) []Record {
			return parseEnvelope(body, ShapeOrgData, "value", "botid", "name")
		},
	},
}

// fallbackAppsPath lists general-purpose application resources; the degraded
// fallback filters it by naming convention.
const fallbackAppsPath = "/api/apps"

// parseEnvelope normalizes one response shape: the listing may be wrapped
// under an envelope field or be a bare array.
func parseEnvelope(body []byte, shape SourceShape, envelope, idField, nameField string) []Record {
	root := gjson.GetBytes(body, envelope)
	if !root.Exists() {
		parsed := gjson.ParseBytes(body)
		if parsed.IsArray() {
			root = parsed
		}
	}

	var out []Record
	root.ForEach(func(_, v gjson.Result) bool {
		rec := Record{
			ResourceID:  v.Get(idField).String(),
			DisplayName: v.Get(nameField).String(),
			SourceShape: shape,
		}
		if rec.ResourceID != "" {
			out = append(out, rec)
		}
		return true
	})
	return out
}

// Orchestrator lists the agents in an environment.
type Orchestrator struct {
	client networking.HTTPClient
}

// NewOrchestrator creates a discovery orchestrator. A nil client gets the
// standard hardened client.
func NewOrchestrator(client networking.HTTPClient) (*Orchestrator, error) {
	if client == nil {
		built, err := networking.NewHttpClientBuilder().Build()
		if err != nil {
			return nil, err
		}
		client = built
	}
	return &Orchestrator{client: client}, nil
}

// List returns the agents visible in the environment. The candidate surfaces
// are tried in order and the first non-error response wins, even when it is
// empty — an environment may legitimately contain no agents. When every
// surface errors, a degraded naming-convention pass over the general
// application listing runs; when even that yields nothing, the result is an
// empty list, not an error.
func (o *Orchestrator) List(ctx context.Context, env *environments.Record, tok *auth.Token) ([]Record, error) {
	base := strings.TrimRight(env.InstanceURL, "/")

	var steps []chain.Step[[]Record]
	for _, surface := range listingSurfaces {
		steps = append(steps, chain.Step[[]Record]{
			Name: string(surface.shape),
			Run: func(ctx context.Context) ([]Record, error) {
				body, _, err := networking.FetchRaw(ctx, o.client, base+surface.path,
					networking.WithHeader("Authorization", "Bearer "+tok.AccessToken))
				if err != nil {
					return nil, err
				}
				return surface.parse(body), nil
			},
		})
	}

	res, err := chain.First(ctx, steps)
	if err == nil {
		logger.Infow("discovered agents", "surface", res.Step, "count", len(res.Value))
		return res.Value, nil
	}

	logger.Warnf("every agent-listing surface failed, trying naming-convention fallback: %v", err)
	return o.fallbackByNamingConvention(ctx, base, tok), nil
}

// fallbackByNamingConvention lists general application resources and keeps
// the entries that look like agents. Failure here is absorbed: discovery of
// zero resources ends the run cleanly rather than failing it.
func (o *Orchestrator) fallbackByNamingConvention(ctx context.Context, base string, tok *auth.Token) []Record {
	body, _, err := networking.FetchRaw(ctx, o.client, base+fallbackAppsPath,
		networking.WithHeader("Authorization", "Bearer "+tok.AccessToken))
	if err != nil {
		logger.Warnf("application listing fallback failed: %v", err)
		return nil
	}

	var out []Record
	for _, rec := range parseEnvelope(body, ShapeNameHeuristic, "value", "id", "name") {
		if looksLikeAgent(rec) {
			out = append(out, rec)
		}
	}
	if len(out) > 0 {
		logger.Infow("recovered agents by naming convention", "count", len(out))
	}
	return out
}

func looksLikeAgent(rec Record) bool {
	id := strings.ToLower(rec.ResourceID)
	name := strings.ToLower(rec.DisplayName)
	for _, token := range agentNameTokens {
		if strings.Contains(id, token) || strings.Contains(name, token) {
			return true
		}
	}
	return false
}

// FilterByName keeps only the records whose display name or ID contains the
// filter, case-insensitively. An empty filter keeps everything.
func FilterByName(records []Record, filter string) []Record {
	if filter == "" {
		return records
	}
	needle := strings.ToLower(filter)

	var out []Record
	for _, rec := range records {
		if strings.Contains(strings.ToLower(rec.DisplayName), needle) ||
			strings.Contains(strings.ToLower(rec.ResourceID), needle) {
			out = append(out, rec)
		}
	}
	return out
}
