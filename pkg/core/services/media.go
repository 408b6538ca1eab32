package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/support-kiosk/internal/config"
	"github.com/jakechorley/support-kiosk/pkg/clients/speechclient"
)

// Uploader stores a recording and returns a shareable link
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte, properties map[string]string) (string, error)
}

// UploadRequest is a base64 recording plus the metadata attached to the stored file
type UploadRequest struct {
	FileName string                     `json:"fileName"`
	FileData string                     `json:"fileData"`
	Metadata map[string]json.RawMessage `json:"metadata"`
}

// UploadRecording decodes and stores a kiosk recording, returning its public view link
func UploadRecording(ctx context.Context, uploader Uploader, logger *zap.Logger, req UploadRequest) (string, error) {
	if req.FileName == "" || req.FileData == "" || req.Metadata == nil {
		return "", invalid("Missing fileName, fileData, or metadata.")
	}

	data, err := base64.StdEncoding.DecodeString(req.FileData)
	if err != nil {
		return "", invalid("fileData must be base64 encoded.")
	}

	link, err := uploader.Upload(ctx, req.FileName, data, stringifyProperties(req.Metadata))
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", req.FileName, err)
	}

	logger.Info("Recording uploaded",
		zap.String("fileName", req.FileName),
		zap.Int("bytes", len(data)))

	return link, nil
}

// stringifyProperties keeps string values as they are and renders anything else as JSON.
// Null values are dropped.
func stringifyProperties(metadata map[string]json.RawMessage) map[string]string {
	props := make(map[string]string, len(metadata))
	for k, raw := range metadata {
		if isNull(raw) {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			props[k] = s
			continue
		}
		props[k] = string(raw)
	}
	return props
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// Transcriber converts recorded speech to text
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, cfg speechclient.AudioConfig) (string, error)
}

// TranscribeRequest is base64 audio plus optional recognition settings
type TranscribeRequest struct {
	AudioData       string `json:"audioData"`
	Encoding        string `json:"encoding"`
	SampleRateHertz int64  `json:"sampleRateHertz"`
	LanguageCode    string `json:"languageCode"`
}

// TranscribeAudio runs speech recognition over the request audio, filling unset settings from defaults
func TranscribeAudio(
	ctx context.Context,
	transcriber Transcriber,
	defaults config.SpeechConfig,
	logger *zap.Logger,
	req TranscribeRequest,
) (string, error) {
	if req.AudioData == "" {
		return "", invalid("Missing audioData in request body.")
	}

	audio, err := base64.StdEncoding.DecodeString(req.AudioData)
	if err != nil {
		return "", invalid("audioData must be base64 encoded.")
	}

	audioCfg := speechclient.AudioConfig{
		Encoding:        defaults.Encoding,
		SampleRateHertz: defaults.SampleRateHertz,
		LanguageCode:    defaults.LanguageCode,
	}
	if req.Encoding != "" {
		audioCfg.Encoding = req.Encoding
	}
	if req.SampleRateHertz != 0 {
		audioCfg.SampleRateHertz = req.SampleRateHertz
	}
	if req.LanguageCode != "" {
		audioCfg.LanguageCode = req.LanguageCode
	}

	logger.Debug("Transcribing audio",
		zap.Int("bytes", len(audio)),
		zap.String("encoding", audioCfg.Encoding),
		zap.Int64("sampleRateHertz", audioCfg.SampleRateHertz))

	transcript, err := transcriber.Transcribe(ctx, audio, audioCfg)
	if err != nil {
		return "", err
	}

	logger.Info("Transcription complete", zap.Int("chars", len(transcript)))
	return transcript, nil
}
