// Package resources discovers the conversational agents present in a resolved
// environment. The same underlying agents may be exposed under several API
// surfaces with different paths, versions, and response envelopes; discovery
// walks them in priority order and normalizes whatever shape comes back.
package resources

import "fmt"

// SourceShape tags which discovery surface produced a record, so downstream
// reporting can show how trustworthy the listing is.
type SourceShape string

const (
	// ShapeAgentsV2 is the current agent-management surface.
	ShapeAgentsV2 SourceShape = "agents-v2"

	// ShapeBotsV1 is the legacy bot-management surface.
	ShapeBotsV1 SourceShape = "bots-v1"

	// ShapeOrgData is the organization-data OData surface.
	ShapeOrgData SourceShape = "org-data"

	// ShapeNameHeuristic marks records recovered from the general
	// application listing by naming convention. Lower confidence.
	ShapeNameHeuristic SourceShape = "name-heuristic"
)

// Record is one discovered agent. Immutable after discovery.
type Record struct {
	// ResourceID identifies the agent within the environment.
	ResourceID string

	// DisplayName is the agent's human-readable name.
	DisplayName string

	// SourceShape tags the discovery surface that produced the record.
	SourceShape SourceShape
}

func (r Record) String() string {
	return fmt.Sprintf("%s (%q, via %s)", r.ResourceID, r.DisplayName, r.SourceShape)
}
