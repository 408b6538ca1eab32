package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jakechorley/support-kiosk/pkg/core/checkin"
	"github.com/jakechorley/support-kiosk/pkg/core/services"
	"github.com/jakechorley/support-kiosk/pkg/db"
)

func (s *Server) createTicket(c *gin.Context) {
	var ticket db.Ticket
	if !bindJSON(c, &ticket) {
		return
	}

	if err := services.CreateTicket(c.Request.Context(), s.deps.Store, s.logger, &ticket); err != nil {
		s.fail(c, err, msgInternal)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": ticket.ID})
}

func (s *Server) createMessage(c *gin.Context) {
	var msg db.Message
	if !bindJSON(c, &msg) {
		return
	}

	if err := services.CreateMessage(c.Request.Context(), s.deps.Store, s.logger, &msg); err != nil {
		s.fail(c, err, msgInternal)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": msg.ID})
}

func (s *Server) createWaiver(c *gin.Context) {
	var waiver db.Waiver
	if !bindJSON(c, &waiver) {
		return
	}

	if err := services.CreateWaiver(c.Request.Context(), s.deps.Store, s.logger, &waiver, s.now()); err != nil {
		s.fail(c, err, msgInternal)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": waiver.ID, "timestamp": waiver.Timestamp})
}

func (s *Server) clarifyProblem(c *gin.Context) {
	if s.deps.Gemini == nil {
		misconfigured(c)
		return
	}

	var req services.DraftRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := services.ClarifyProblem(c.Request.Context(), s.deps.Store, s.deps.Gemini, s.logger, req, s.now())
	if err != nil {
		s.fail(c, err, msgInternal)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) draftSummary(c *gin.Context) {
	if s.deps.Gemini == nil {
		misconfigured(c)
		return
	}

	var req services.DraftRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := services.DraftTicketSummary(c.Request.Context(), s.deps.Store, s.deps.Gemini, s.logger, req, s.now())
	if err != nil {
		s.fail(c, err, "Failed to generate ticket summary.")
		return
	}
	if result.Failure != nil {
		relay(c, result.Failure)
		return
	}
	c.JSON(http.StatusOK, result.Summary)
}

// sessionEvent is one kiosk input for a check-in session
type sessionEvent struct {
	Event checkin.Event `json:"event"`
	Text  string        `json:"text"`
	Count int           `json:"count"`
}

func (s *Server) startSession(c *gin.Context) {
	c.JSON(http.StatusCreated, s.sessions.Start())
}

func (s *Server) stepSession(c *gin.Context) {
	var ev sessionEvent
	if !bindJSON(c, &ev) {
		return
	}
	if ev.Event == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required field: event."})
		return
	}

	snap, err := s.sessions.Step(c.Param("id"), checkin.Input{Event: ev.Event, Text: ev.Text, Count: ev.Count})
	switch {
	case errors.Is(err, checkin.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Check-in session not found."})
	case errors.Is(err, checkin.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "Event not accepted in state " + string(snap.State) + "."})
	case err != nil:
		s.fail(c, err, msgInternal)
	default:
		c.JSON(http.StatusOK, snap)
	}
}

func (s *Server) endSession(c *gin.Context) {
	s.sessions.End(c.Param("id"))
	c.Status(http.StatusNoContent)
}
