package environments

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botsmith-dev/botsmith/pkg/auth"
	"github.com/botsmith-dev/botsmith/pkg/errors"
)

const testToken = "test-access-token"

func token() *auth.Token {
	return &auth.Token{AccessToken: testToken}
}

// fakeDirectory serves the two directory surfaces. Either can be disabled to
// simulate a scope that cannot see it.
type fakeDirectory struct {
	server *httptest.Server

	globalStatus int    // 0 disables the surface with a 500
	globalBody   string // ARM-style envelope
	v1Status     int
	v1Body       string // flat envelope

	globalCalls int
	v1Calls     int
}

func newFakeDirectory(t *testing.T) *fakeDirectory {
	t.Helper()
	dir := &fakeDirectory{}

	mux := http.NewServeMux()
	mux.HandleFunc("/providers/platform/environments", func(w http.ResponseWriter, r *http.Request) {
		dir.globalCalls++
		assert.Equal(t, "Bearer "+testToken, r.Header.Get("Authorization"))
		assert.Equal(t, directoryAPIVersion, r.URL.Query().Get("api-version"))
		writeSurface(w, dir.globalStatus, dir.globalBody)
	})
	mux.HandleFunc("/v1/environments", func(w http.ResponseWriter, r *http.Request) {
		dir.v1Calls++
		assert.Equal(t, "Bearer "+testToken, r.Header.Get("Authorization"))
		writeSurface(w, dir.v1Status, dir.v1Body)
	})

	dir.server = httptest.NewServer(mux)
	t.Cleanup(dir.server.Close)
	return dir
}

func writeSurface(w http.ResponseWriter, status int, body string) {
	if status == 0 {
		http.Error(w, "unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func newTestResolver(t *testing.T, dir *fakeDirectory) *Resolver {
	t.Helper()
	r, err := NewResolver(Config{
		DirectoryBases: []string{dir.server.URL},
		HostSuffixes:   []string{"example-platform.net"},
		HTTPClient:     dir.server.Client(),
	})
	require.NoError(t, err)
	return r
}

func TestResolve_ExactMatchBeatsPartialMatches(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory(t)
	dir.globalStatus = http.StatusOK
	dir.globalBody = `{"value":[
		{"name":"env-a","properties":{"displayName":"contoso.example-platform.net","linkedEnvironmentMetadata":{"instanceUrl":"https://a.example-platform.net"}}},
		{"name":"env-b","properties":{"displayName":"contoso dev","linkedEnvironmentMetadata":{"instanceUrl":"https://b.example-platform.net"}}},
		{"name":"env-c","properties":{"displayName":"contoso test","linkedEnvironmentMetadata":{"instanceUrl":"https://c.example-platform.net"}}}
	]}`

	r := newTestResolver(t, dir)
	rec, err := r.Resolve(context.Background(), Reference{SuppliedURL: "https://contoso.example-platform.net"}, token())
	require.NoError(t, err)

	assert.Equal(t, "env-a", rec.EnvironmentID)
	assert.Equal(t, ConfidenceExact, rec.MatchConfidence)
}

func TestResolve_FallsBackToAlternateSurface(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory(t)
	// global surface errors; directory-v1 carries the answer
	dir.v1Status = http.StatusOK
	dir.v1Body = `{"environments":[
		{"id":"env-42","displayName":"Sales Production","instanceUrl":"https://contoso.example-platform.net"}
	]}`

	r := newTestResolver(t, dir)
	rec, err := r.Resolve(context.Background(), Reference{SuppliedURL: "https://contoso.example-platform.net"}, token())
	require.NoError(t, err)

	assert.Equal(t, "env-42", rec.EnvironmentID)
	assert.Equal(t, "Sales Production", rec.DisplayName)
	assert.Equal(t, 1, dir.globalCalls, "primary surface tried first")
	assert.Equal(t, 1, dir.v1Calls)
}

func TestResolve_EmptyListingFallsThrough(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory(t)
	dir.globalStatus = http.StatusOK
	dir.globalBody = `{"value":[]}`
	dir.v1Status = http.StatusOK
	dir.v1Body = `{"environments":[{"id":"env-9","displayName":"Only One","instanceUrl":"https://contoso.example-platform.net"}]}`

	r := newTestResolver(t, dir)
	rec, err := r.Resolve(context.Background(), Reference{SuppliedURL: "https://contoso.example-platform.net"}, token())
	require.NoError(t, err)
	assert.Equal(t, "env-9", rec.EnvironmentID)
}

func TestResolve_URLDerivedWhenNoDirectoryReachable(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory(t) // both surfaces 500

	r := newTestResolver(t, dir)
	rec, err := r.Resolve(context.Background(), Reference{SuppliedURL: "https://org123.example-platform.net"}, token())
	require.NoError(t, err)

	assert.Equal(t, "org123", rec.EnvironmentID)
	assert.Equal(t, ConfidenceURLDerived, rec.MatchConfidence)
	assert.Equal(t, "https://org123.example-platform.net", rec.InstanceURL)
	assert.Empty(t, rec.DisplayName, "URL-derived records have no verified display name")
}

func TestResolve_InstanceURLBreaksSubstringTie(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory(t)
	dir.globalStatus = http.StatusOK
	dir.globalBody = `{"value":[
		{"name":"env-a","properties":{"displayName":"contoso dev","linkedEnvironmentMetadata":{"instanceUrl":"https://other.example-platform.net"}}},
		{"name":"env-b","properties":{"displayName":"contoso prod","linkedEnvironmentMetadata":{"instanceUrl":"https://contoso.example-platform.net"}}}
	]}`

	r := newTestResolver(t, dir)
	rec, err := r.Resolve(context.Background(), Reference{SuppliedURL: "https://contoso.example-platform.net"}, token())
	require.NoError(t, err)

	assert.Equal(t, "env-b", rec.EnvironmentID)
	assert.Equal(t, ConfidenceExact, rec.MatchConfidence)
}

func TestResolve_NotFoundListsVisibleEnvironments(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory(t)
	dir.globalStatus = http.StatusOK
	dir.globalBody = `{"value":[
		{"name":"env-x","properties":{"displayName":"Finance","linkedEnvironmentMetadata":{"instanceUrl":"https://finance.example-platform.net"}}}
	]}`

	r := newTestResolver(t, dir)
	_, err := r.Resolve(context.Background(), Reference{SuppliedURL: "https://unknown.other-cloud.example"}, token())
	require.Error(t, err)

	assert.True(t, errors.IsEnvironmentNotFound(err))
	assert.Contains(t, err.Error(), "env-x", "visible environments are included for diagnosis")
}

func TestResolve_NotFoundWithNothingVisible(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory(t)

	r := newTestResolver(t, dir)
	_, err := r.Resolve(context.Background(), Reference{SuppliedURL: "https://unknown.other-cloud.example"}, token())
	require.Error(t, err)

	assert.True(t, errors.IsEnvironmentNotFound(err))
	assert.Contains(t, err.Error(), "no directory listing was available")
}

func TestDeriveFromURL_SuffixHandling(t *testing.T) {
	t.Parallel()

	r := &Resolver{suffixes: []string{"example-platform.net", "instances.example-platform.net"}}

	tests := []struct {
		name     string
		supplied string
		wantID   string
	}{
		{"plain org host", "https://org123.example-platform.net", "org123"},
		{"bare hostname without scheme", "org456.example-platform.net", "org456"},
		{"nested instance host", "https://org789.instances.example-platform.net", "org789"},
		{"unrelated host", "https://org123.unrelated.example", ""},
		{"suffix itself", "https://example-platform.net", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := r.deriveFromURL(Reference{SuppliedURL: tt.supplied})
			if tt.wantID == "" {
				assert.Nil(t, rec)
			} else {
				require.NotNil(t, rec)
				assert.Equal(t, tt.wantID, rec.EnvironmentID)
				assert.Equal(t, ConfidenceURLDerived, rec.MatchConfidence)
			}
		})
	}
}
