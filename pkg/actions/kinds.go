package actions

import (
	"fmt"
	"net/http"
	"strings"
)

// Kind is a post-deployment action performed against an agent.
type Kind string

const (
	// ActionPublish publishes the agent's latest content. Publish completes
	// asynchronously server-side, so success observes a settle delay.
	ActionPublish Kind = "publish"

	// ActionEnable enables the agent for end users.
	ActionEnable Kind = "enable"

	// ActionShare grants access to the agent. Sharing requires interactive
	// identity and group resolution the pipeline does not own, so it is
	// manual-by-design and always reported as requiring manual follow-up.
	ActionShare Kind = "share"
)

// ParseKind parses a user-supplied action name.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case ActionPublish:
		return ActionPublish, nil
	case ActionEnable:
		return ActionEnable, nil
	case ActionShare:
		return ActionShare, nil
	default:
		return "", fmt.Errorf("unknown action %q (valid: publish, enable, share)", s)
	}
}

// KindNames lists the valid action names for help text.
func KindNames() string {
	return strings.Join([]string{string(ActionPublish), string(ActionEnable), string(ActionShare)}, ", ")
}

// ErrorKind classifies one failed attempt by cause. Classifications are
// diagnostic hints recorded into the attempt log; only exhaustion of the
// candidate list terminates the (resource, action) pair.
type ErrorKind string

const (
	// KindAuthenticationStale marks a 401. Tokens are acquired once per
	// run, so this is a hint that the run's token has gone bad, not a
	// trigger for re-authentication.
	KindAuthenticationStale ErrorKind = "authentication-stale"

	// KindPermissionDenied marks a 403.
	KindPermissionDenied ErrorKind = "permission-denied"

	// KindEndpointUnavailable marks a 404 — expected when an endpoint
	// variant does not exist for this platform version.
	KindEndpointUnavailable ErrorKind = "endpoint-unavailable"

	// KindRateLimited marks a 429. The executor moves to the next
	// candidate rather than backing off against the same endpoint.
	KindRateLimited ErrorKind = "rate-limited"

	// KindTransport marks a network-level failure that exhausted its
	// bounded retries.
	KindTransport ErrorKind = "transport"

	// KindUnknown marks any other non-2xx status.
	KindUnknown ErrorKind = "unknown"
)

// classifyStatus maps an HTTP status code to its error kind.
func classifyStatus(status int) ErrorKind {
	switch status {
	case http.StatusUnauthorized:
		return KindAuthenticationStale
	case http.StatusForbidden:
		return KindPermissionDenied
	case http.StatusNotFound:
		return KindEndpointUnavailable
	case http.StatusTooManyRequests:
		return KindRateLimited
	default:
		return KindUnknown
	}
}

// statusClass renders a status code as its class ("2xx", "4xx", ...) for the
// attempt log.
func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "none"
	}
	return fmt.Sprintf("%dxx", status/100)
}
