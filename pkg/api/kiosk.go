package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jakechorley/support-kiosk/pkg/core/services"
	"github.com/jakechorley/support-kiosk/pkg/db"
)

func (s *Server) findUser(c *gin.Context) {
	if s.deps.Directory == nil {
		misconfigured(c)
		return
	}

	var req struct {
		SearchTerm string `json:"searchTerm"`
	}
	if !bindJSON(c, &req) {
		return
	}

	result, err := services.FindUser(c.Request.Context(), s.deps.Directory, s.logger, req.SearchTerm)
	if err != nil {
		s.fail(c, err, msgInternal)
		return
	}
	if result.Failure != nil {
		relay(c, result.Failure)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", result.Users)
}

func (s *Server) incidentIQProxy(c *gin.Context) {
	if s.deps.IncidentIQ == nil {
		misconfigured(c)
		return
	}

	var req services.ProxyRequest
	if !bindJSON(c, &req) {
		return
	}

	env, err := services.ProxyIncidentIQ(c.Request.Context(), s.deps.IncidentIQ, s.logger, req)
	if err != nil {
		s.fail(c, err, msgInternal)
		return
	}
	relay(c, env)
}

func (s *Server) geminiProxy(c *gin.Context) {
	if s.deps.Gemini == nil {
		misconfigured(c)
		return
	}

	var req struct {
		Body json.RawMessage `json:"body"`
	}
	if !bindJSON(c, &req) {
		return
	}

	env, err := services.GenerateContent(c.Request.Context(), s.deps.Gemini, s.logger, req.Body)
	if err != nil {
		s.fail(c, err, msgInternal)
		return
	}
	relay(c, env)
}

func (s *Server) uploadVideo(c *gin.Context) {
	if s.deps.Uploader == nil {
		misconfigured(c)
		return
	}

	var req services.UploadRequest
	if !bindJSON(c, &req) {
		return
	}

	link, err := services.UploadRecording(c.Request.Context(), s.deps.Uploader, s.logger, req)
	if err != nil {
		s.fail(c, err, "Failed to upload video.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"link": link})
}

func (s *Server) transcribeAudio(c *gin.Context) {
	if s.deps.Transcriber == nil {
		misconfigured(c)
		return
	}

	var req services.TranscribeRequest
	if !bindJSON(c, &req) {
		return
	}

	transcript, err := services.TranscribeAudio(c.Request.Context(), s.deps.Transcriber, s.deps.Config.Speech, s.logger, req)
	if err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message})
			return
		}
		s.logger.Error("Speech-to-Text API error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to transcribe audio. " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transcript": transcript})
}

// syncWaiverFromSheet checks the pre-shared key before the body is read
func (s *Server) syncWaiverFromSheet(c *gin.Context) {
	if !s.validSyncKey(c.GetHeader("x-api-key")) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var waiver db.Waiver
	if !bindJSON(c, &waiver) {
		return
	}

	outcome, err := services.SyncWaiver(c.Request.Context(), s.deps.Store, s.logger, &waiver)
	if err != nil {
		s.fail(c, err, msgInternal)
		return
	}

	if outcome == services.SyncDuplicate {
		c.JSON(http.StatusOK, gin.H{"message": "Duplicate waiver skipped."})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true})
}

// validSyncKey compares in constant time. An unset server key matches nothing.
func (s *Server) validSyncKey(got string) bool {
	want := s.deps.SyncAPIKey
	if want == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
