package incidentiq

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/support-kiosk/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(config.IncidentIQConfig{
		BaseURL: server.URL,
		SiteID:  "site-123",
		Client:  "ApiClient",
	}, "iiq-token")
}

func TestGetUser_SendsTenantHeaders(t *testing.T) {
	var headers http.Header
	var path string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		path = r.URL.EscapedPath()
		w.Write([]byte(`{"UserId":"42"}`))
	})

	env, err := client.GetUser(context.Background(), "S 1001")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, env.Status)
	assert.Equal(t, "/api/v1.0/users/S%201001", path)
	assert.Equal(t, "Bearer iiq-token", headers.Get("Authorization"))
	assert.Equal(t, "site-123", headers.Get("siteid"))
	assert.Equal(t, "ApiClient", headers.Get("client"))
	assert.Equal(t, "application/json", headers.Get("Accept"))
}

func TestSearchUsers_BuildsFilter(t *testing.T) {
	var filter string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/services/users", r.URL.Path)
		filter = r.URL.Query().Get("$filter")
		w.Write([]byte(`{"Items":[]}`))
	})

	_, err := client.SearchUsers(context.Background(), "O'Neil")
	require.NoError(t, err)

	assert.Equal(t, "(SearchText contains 'O''Neil')", filter)
}
