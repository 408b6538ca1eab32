package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jakechorley/support-kiosk/internal/config"
	"github.com/jakechorley/support-kiosk/pkg/upstream"
)

// Client calls the generative-language generateContent endpoint with the server-held key
type Client struct {
	*upstream.Client
	model string
}

// NewClient creates a Gemini client. The API key travels in the query string.
func NewClient(cfg config.GeminiConfig, apiKey string, opts ...upstream.Option) *Client {
	base := []upstream.Option{upstream.WithQuery("key", apiKey)}
	return &Client{
		Client: upstream.NewClient(cfg.BaseURL, append(base, opts...)...),
		model:  cfg.Model,
	}
}

// GenerateContent forwards body verbatim as the generateContent request
func (c *Client) GenerateContent(ctx context.Context, body json.RawMessage) (*upstream.Envelope, error) {
	path := fmt.Sprintf("/v1beta/models/%s:generateContent", c.model)
	return c.Do(ctx, http.MethodPost, path, nil, body)
}
