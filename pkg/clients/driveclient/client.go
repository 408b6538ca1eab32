package driveclient

import (
	"bytes"
	"context"
	"fmt"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Client wraps the Google Drive API client
type Client struct {
	service  *drive.Service
	folderID string
	mimeType string
}

// NewClient creates a Drive client that uploads into folderID with the given content type
func NewClient(ctx context.Context, folderID, mimeType string, opts ...option.ClientOption) (*Client, error) {
	service, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &Client{
		service:  service,
		folderID: folderID,
		mimeType: mimeType,
	}, nil
}

// Upload stores data as a new file, makes it readable by anyone with the link and
// returns the web view link. Properties are attached to the file as custom metadata.
func (c *Client) Upload(ctx context.Context, name string, data []byte, properties map[string]string) (string, error) {
	file := &drive.File{
		Name:       name,
		Parents:    []string{c.folderID},
		MimeType:   c.mimeType,
		Properties: properties,
	}

	created, err := c.service.Files.Create(file).
		Media(bytes.NewReader(data), googleapi.ContentType(c.mimeType)).
		Fields("id", "webViewLink").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	permission := &drive.Permission{
		Role: "reader",
		Type: "anyone",
	}
	_, err = c.service.Permissions.Create(created.Id, permission).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to share file %s: %w", created.Id, err)
	}

	return created.WebViewLink, nil
}
