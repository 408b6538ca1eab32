package speechclient

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/speech/v1"
)

// AudioConfig describes the recording sent for recognition
type AudioConfig struct {
	Encoding        string
	SampleRateHertz int64
	LanguageCode    string
}

// Client wraps the Cloud Speech-to-Text API client
type Client struct {
	service *speech.Service
}

// NewClient creates a new Speech client
func NewClient(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	service, err := speech.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech service: %w", err)
	}

	return &Client{service: service}, nil
}

// Transcribe runs synchronous recognition over audio and joins the top alternative of
// each result with newlines. No speech yields an empty transcript.
func (c *Client) Transcribe(ctx context.Context, audio []byte, cfg AudioConfig) (string, error) {
	req := &speech.RecognizeRequest{
		Config: &speech.RecognitionConfig{
			Encoding:        cfg.Encoding,
			SampleRateHertz: cfg.SampleRateHertz,
			LanguageCode:    cfg.LanguageCode,
		},
		Audio: &speech.RecognitionAudio{
			Content: base64.StdEncoding.EncodeToString(audio),
		},
	}

	resp, err := c.service.Speech.Recognize(req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to recognize speech: %w", err)
	}

	return joinTranscripts(resp), nil
}

func joinTranscripts(resp *speech.RecognizeResponse) string {
	lines := make([]string, 0, len(resp.Results))
	for _, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		lines = append(lines, result.Alternatives[0].Transcript)
	}
	return strings.Join(lines, "\n")
}
