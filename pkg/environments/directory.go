package environments

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/botsmith-dev/botsmith/pkg/networking"
)

// directoryAPIVersion is the api-version the global directory surface expects.
const directoryAPIVersion = "2023-06-01"

// directorySurface is one directory API variant: where to list environments
// and how to normalize its response envelope into Records.
type directorySurface struct {
	name    string
	listURL func(base string) string
	parse   func(body []byte) []Record
}

// directorySurfaces are the candidate listing surfaces in priority order. Not
// every credential scope can see every surface, which is why more than one
// exists at all.
var directorySurfaces = []directorySurface{
	{
		name: "global-directory",
		listURL: func(base string) string {
			return fmt.Sprintf("%s/providers/platform/environments?api-version=%s", base, directoryAPIVersion)
		},
		parse: parseGlobalDirectory,
	},
	{
		name: "directory-v1",
		listURL: func(base string) string {
			return base + "/v1/environments"
		},
		parse: parseDirectoryV1,
	},
}

// parseGlobalDirectory normalizes the ARM-style envelope:
// {"value":[{"name":..., "properties":{"displayName":..., "linkedEnvironmentMetadata":{"instanceUrl":...}}}]}
func parseGlobalDirectory(body []byte) []Record {
	var out []Record
	gjson.GetBytes(body, "value").ForEach(func(_, v gjson.Result) bool {
		out = append(out, Record{
			EnvironmentID: v.Get("name").String(),
			DisplayName:   v.Get("properties.displayName").String(),
			InstanceURL:   v.Get("properties.linkedEnvironmentMetadata.instanceUrl").String(),
		})
		return true
	})
	return out
}

// parseDirectoryV1 normalizes the flat envelope:
// {"environments":[{"id":..., "displayName":..., "instanceUrl":...}]}
func parseDirectoryV1(body []byte) []Record {
	var out []Record
	gjson.GetBytes(body, "environments").ForEach(func(_, v gjson.Result) bool {
		out = append(out, Record{
			EnvironmentID: v.Get("id").String(),
			DisplayName:   v.Get("displayName").String(),
			InstanceURL:   v.Get("instanceUrl").String(),
		})
		return true
	})
	return out
}

// listEnvironments queries one directory surface and returns its normalized
// listing. A reachable surface that returns zero environments is treated as a
// failure so the caller falls through to the next surface.
func listEnvironments(
	ctx context.Context,
	client networking.HTTPClient,
	surface directorySurface,
	base string,
	accessToken string,
) ([]Record, error) {
	body, _, err := networking.FetchRaw(ctx, client, surface.listURL(strings.TrimRight(base, "/")),
		networking.WithHeader("Authorization", "Bearer "+accessToken))
	if err != nil {
		return nil, err
	}

	records := surface.parse(body)
	if len(records) == 0 {
		return nil, fmt.Errorf("%s returned zero environments", surface.name)
	}
	return records, nil
}
