package gmailclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// DefaultSendInterval spaces consecutive sends to stay under Gmail API rate limits
const DefaultSendInterval = time.Second

// Client wraps the Gmail API client. Mail is sent as the impersonated sender.
type Client struct {
	service      *gmail.Service
	from         Address
	interval     time.Duration
	lastSendTime time.Time
	sendMutex    sync.Mutex
}

// Address is a display name plus mailbox
type Address struct {
	Name  string
	Email string
}

// NewClient creates a new Gmail client sending from the given address.
// Callers supply the impersonating HTTP client through option.WithHTTPClient.
func NewClient(ctx context.Context, from Address, opts ...option.ClientOption) (*Client, error) {
	service, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	return &Client{
		service:  service,
		from:     from,
		interval: DefaultSendInterval,
	}, nil
}

// SetSendInterval overrides the minimum gap between sends
func (c *Client) SetSendInterval(d time.Duration) {
	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()
	c.interval = d
}
