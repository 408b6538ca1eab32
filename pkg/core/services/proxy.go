package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/support-kiosk/pkg/upstream"
)

// ProxyRequest is a ticketing API call the kiosk asks the server to make on its behalf
type ProxyRequest struct {
	Path   string          `json:"path"`
	Method string          `json:"method"`
	Body   json.RawMessage `json:"body"`
}

// ProxyIncidentIQ forwards req once. The body is sent only for POST.
func ProxyIncidentIQ(ctx context.Context, caller upstream.Caller, logger *zap.Logger, req ProxyRequest) (*upstream.Envelope, error) {
	if req.Path == "" || req.Method == "" {
		return nil, invalid("Bad Request: Missing path or method.")
	}

	method := strings.ToUpper(req.Method)

	var body []byte
	if method == http.MethodPost && !isAbsent(req.Body) {
		body = req.Body
	}

	env, err := caller.Do(ctx, method, req.Path, nil, body)
	if err != nil {
		return nil, fmt.Errorf("failed to proxy %s %s: %w", method, req.Path, err)
	}

	if !env.OK() {
		logger.Warn("Incident IQ API error",
			zap.String("method", method),
			zap.String("path", req.Path),
			zap.Int("status", env.Status),
			zap.ByteString("body", env.Body))
	}

	return env, nil
}

// ContentGenerator calls the generative-language model
type ContentGenerator interface {
	GenerateContent(ctx context.Context, body json.RawMessage) (*upstream.Envelope, error)
}

// GenerateContent forwards the caller's request body verbatim to the model
func GenerateContent(ctx context.Context, generator ContentGenerator, logger *zap.Logger, body json.RawMessage) (*upstream.Envelope, error) {
	if isAbsent(body) {
		return nil, invalid("Bad Request: Missing 'body' wrapper.")
	}

	env, err := generator.GenerateContent(ctx, body)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if !env.OK() {
		logger.Warn("Gemini API error", zap.Int("status", env.Status), zap.ByteString("body", env.Body))
	}

	return env, nil
}

// isAbsent treats a missing field, null and the JSON falsy literals as no body
func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	switch string(trimmed) {
	case "", "null", "false", `""`, "0":
		return true
	}
	return false
}
