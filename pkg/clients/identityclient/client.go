package identityclient

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

// ErrUserNotFound is returned when no account exists for an email address
var ErrUserNotFound = errors.New("user not found")

// Client looks up accounts in the identity provider project
type Client struct {
	service *identitytoolkit.Service
}

// NewClient creates a new identity toolkit client
func NewClient(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	service, err := identitytoolkit.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity toolkit service: %w", err)
	}

	return &Client{service: service}, nil
}

// LookupUIDByEmail returns the account id registered for email
func (c *Client) LookupUIDByEmail(ctx context.Context, email string) (string, error) {
	req := &identitytoolkit.IdentitytoolkitRelyingpartyGetAccountInfoRequest{
		Email: []string{email},
	}

	resp, err := c.service.Relyingparty.GetAccountInfo(req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get account info: %w", err)
	}

	for _, user := range resp.Users {
		if user.LocalId != "" {
			return user.LocalId, nil
		}
	}

	return "", ErrUserNotFound
}
