package incidentiq

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jakechorley/support-kiosk/internal/config"
	"github.com/jakechorley/support-kiosk/pkg/upstream"
)

// Client calls the district's Incident IQ tenant with the server-held API token
type Client struct {
	*upstream.Client
}

// NewClient creates an Incident IQ client. Every request carries the bearer token and
// the fixed tenant headers the API requires.
func NewClient(cfg config.IncidentIQConfig, token string, opts ...upstream.Option) *Client {
	base := []upstream.Option{
		upstream.WithHeader("Authorization", "Bearer "+token),
		upstream.WithHeader("siteid", cfg.SiteID),
		upstream.WithHeader("client", cfg.Client),
	}
	return &Client{Client: upstream.NewClient(cfg.BaseURL, append(base, opts...)...)}
}

// GetUser looks a user up by key (user id, badge id, username)
func (c *Client) GetUser(ctx context.Context, key string) (*upstream.Envelope, error) {
	return c.Do(ctx, http.MethodGet, "/api/v1.0/users/"+url.PathEscape(key), nil, nil)
}

// SearchUsers runs a free-text substring search across users
func (c *Client) SearchUsers(ctx context.Context, term string) (*upstream.Envelope, error) {
	// OData string literals escape a quote by doubling it
	literal := strings.ReplaceAll(term, "'", "''")
	query := url.Values{"$filter": {fmt.Sprintf("(SearchText contains '%s')", literal)}}
	return c.Do(ctx, http.MethodGet, "/services/users", query, nil)
}
