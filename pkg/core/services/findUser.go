package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/jakechorley/support-kiosk/pkg/upstream"
)

// UserDirectory looks users up in the ticketing system
type UserDirectory interface {
	GetUser(ctx context.Context, key string) (*upstream.Envelope, error)
	SearchUsers(ctx context.Context, term string) (*upstream.Envelope, error)
}

// FindUserResult is either a list of matching users or an upstream failure to relay
type FindUserResult struct {
	Users   json.RawMessage
	Failure *upstream.Envelope
}

// FindUser resolves searchTerm by exact key first and falls back to a substring search
// only when the exact lookup answers 404. An exact hit returns a one-element list.
func FindUser(ctx context.Context, directory UserDirectory, logger *zap.Logger, searchTerm string) (*FindUserResult, error) {
	if searchTerm == "" {
		return nil, invalid("Bad Request: Missing searchTerm.")
	}

	// Step 1: Exact lookup by id, badge or username
	direct, err := directory.GetUser(ctx, searchTerm)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if direct.OK() {
		logger.Debug("User found by exact key", zap.String("searchTerm", searchTerm))
		return &FindUserResult{Users: wrapList(direct.Body)}, nil
	}

	if direct.Status != http.StatusNotFound {
		logger.Warn("Exact user lookup failed",
			zap.Int("status", direct.Status),
			zap.ByteString("body", direct.Body))
		return &FindUserResult{Failure: emptyObjectIfNull(direct)}, nil
	}

	// Step 2: Substring search
	logger.Debug("No exact match, searching users", zap.String("searchTerm", searchTerm))
	search, err := directory.SearchUsers(ctx, searchTerm)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}

	if !search.OK() {
		logger.Warn("User search failed",
			zap.Int("status", search.Status),
			zap.ByteString("body", search.Body))
		return &FindUserResult{Failure: emptyObjectIfNull(search)}, nil
	}

	var page struct {
		Items json.RawMessage `json:"Items"`
	}
	if err := json.Unmarshal(search.Body, &page); err != nil {
		return nil, fmt.Errorf("failed to parse user search response: %w", err)
	}

	items := bytes.TrimSpace(page.Items)
	if len(items) == 0 || bytes.Equal(items, []byte("null")) {
		items = []byte("[]")
	}

	return &FindUserResult{Users: json.RawMessage(items)}, nil
}

func wrapList(item json.RawMessage) json.RawMessage {
	list := make([]byte, 0, len(item)+2)
	list = append(list, '[')
	list = append(list, item...)
	list = append(list, ']')
	return list
}

func emptyObjectIfNull(env *upstream.Envelope) *upstream.Envelope {
	if bytes.Equal(env.Body, []byte("null")) {
		return &upstream.Envelope{Status: env.Status, Body: json.RawMessage("{}")}
	}
	return env
}
