package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/support-kiosk/pkg/core/checkin"
	"github.com/jakechorley/support-kiosk/pkg/db"
	"github.com/jakechorley/support-kiosk/pkg/upstream"
)

// DraftRequest describes a check-in session ready for the model
type DraftRequest struct {
	Device   string `json:"device"`
	Model    string `json:"model"`
	AssetTag string `json:"assetTag"`
	Student  string `json:"student"`
	SchoolID string `json:"schoolId"`
	Problem  string `json:"problem"`
	FollowUp string `json:"followUp"`
}

// DraftStore defines the database operations needed to add ticket history to a prompt
type DraftStore interface {
	ListTicketsBySchoolID(ctx context.Context, schoolID string) ([]db.Ticket, error)
	ListTicketsByAssetTag(ctx context.Context, assetTag string) ([]db.Ticket, error)
}

// ErrCheckinCancelled is returned when the heard problem asks to abandon the session
var ErrCheckinCancelled = invalid("Check-in cancelled.")

// DraftResult holds the parsed summary, or the upstream failure to relay
type DraftResult struct {
	Summary *checkin.Summary
	Failure *upstream.Envelope
}

// ClarifyResult says whether a follow-up question is needed and what it is
type ClarifyResult struct {
	Needed   bool   `json:"needed"`
	Question string `json:"question,omitempty"`
}

// DraftTicketSummary asks the model for a structured ticket summary of the session
func DraftTicketSummary(ctx context.Context, store DraftStore, generator ContentGenerator, logger *zap.Logger, req DraftRequest, now time.Time) (*DraftResult, error) {
	if strings.TrimSpace(req.Problem) == "" {
		return nil, invalid("Missing required field: problem.")
	}
	if checkin.IsCancel(req.Problem) || checkin.IsCancel(req.FollowUp) {
		return nil, ErrCheckinCancelled
	}

	sc, err := summaryContext(ctx, store, req, now)
	if err != nil {
		return nil, err
	}

	env, err := generator.GenerateContent(ctx, checkin.GeminiRequest(checkin.SummaryPrompt(sc)))
	if err != nil {
		return nil, fmt.Errorf("failed to generate summary: %w", err)
	}
	if !env.OK() {
		logger.Warn("Gemini API error", zap.Int("status", env.Status), zap.ByteString("body", env.Body))
		return &DraftResult{Failure: env}, nil
	}

	summary, err := checkin.ParseSummary(env.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse summary: %w", err)
	}

	logger.Debug("Drafted ticket summary",
		zap.String("category", summary.SuggestedCategory),
		zap.String("urgency", summary.SuggestedUrgency))
	return &DraftResult{Summary: summary}, nil
}

// ClarifyProblem returns one follow-up question when the problem is too vague to summarize.
// A failed model call still yields the fallback question so the session can continue.
func ClarifyProblem(ctx context.Context, store DraftStore, generator ContentGenerator, logger *zap.Logger, req DraftRequest, now time.Time) (*ClarifyResult, error) {
	if strings.TrimSpace(req.Problem) == "" {
		return nil, invalid("Missing required field: problem.")
	}
	if checkin.IsCancel(req.Problem) || checkin.IsCancel(req.FollowUp) {
		return nil, ErrCheckinCancelled
	}
	if !checkin.NeedsClarification(req.Problem) {
		return &ClarifyResult{Needed: false}, nil
	}

	sc, err := summaryContext(ctx, store, req, now)
	if err != nil {
		return nil, err
	}

	env, err := generator.GenerateContent(ctx, checkin.GeminiRequest(checkin.ClarificationPrompt(sc)))
	if err != nil {
		logger.Warn("Clarification question generation failed", zap.Error(err))
		return &ClarifyResult{Needed: true, Question: checkin.FallbackQuestion}, nil
	}
	if !env.OK() {
		logger.Warn("Gemini API error", zap.Int("status", env.Status), zap.ByteString("body", env.Body))
		return &ClarifyResult{Needed: true, Question: checkin.FallbackQuestion}, nil
	}

	return &ClarifyResult{Needed: true, Question: checkin.ParseClarification(env.Body)}, nil
}

func summaryContext(ctx context.Context, store DraftStore, req DraftRequest, now time.Time) (checkin.SummaryContext, error) {
	sc := checkin.SummaryContext{
		Device:       orDefault(req.Device, "Unknown device"),
		Model:        orDefault(req.Model, "N/A"),
		Student:      req.Student,
		Conversation: strings.TrimSpace(req.Problem),
		Now:          now,
	}
	if req.FollowUp != "" {
		sc.Conversation = fmt.Sprintf("Initial: %s\nFollow-up Response: %s", sc.Conversation, strings.TrimSpace(req.FollowUp))
	}

	if req.SchoolID != "" {
		tickets, err := store.ListTicketsBySchoolID(ctx, req.SchoolID)
		if err != nil {
			return sc, fmt.Errorf("failed to load student history: %w", err)
		}
		sc.StudentHistory = tickets
	}

	if req.AssetTag != "" {
		tickets, err := store.ListTicketsByAssetTag(ctx, req.AssetTag)
		if err != nil {
			return sc, fmt.Errorf("failed to load device history: %w", err)
		}
		sc.DeviceHistory = tickets
	}

	return sc, nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
