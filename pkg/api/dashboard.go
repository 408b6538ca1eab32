package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jakechorley/support-kiosk/pkg/clients/identityclient"
	"github.com/jakechorley/support-kiosk/pkg/core/services"
	"github.com/jakechorley/support-kiosk/pkg/db"
)

const msgAccountNotFound = "User not found. The user must have a Google account with this email address, " +
	"but they do not need to have logged into the kiosk app."

func (s *Server) preauthorizeUser(c *gin.Context) {
	var req struct {
		Email string  `json:"email"`
		Name  string  `json:"name"`
		Role  db.Role `json:"role"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if s.deps.Identity == nil {
		misconfigured(c)
		return
	}

	_, err := services.PreauthorizeUser(c.Request.Context(), s.deps.Store, s.deps.Identity, s.logger, req.Email, req.Name, req.Role)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "User " + req.Email + " has been authorized with the role: " + string(req.Role) + ".",
		})
	case errors.Is(err, identityclient.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": msgAccountNotFound})
	default:
		s.fail(c, err, "Internal Server Error.")
	}
}

func (s *Server) me(c *gin.Context) {
	user, err := services.EnsureUser(c.Request.Context(), s.deps.Store, s.logger, identityFrom(c))
	if err != nil {
		s.fail(c, err, msgInternal)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) listUsers(c *gin.Context) {
	users, err := s.deps.Store.ListUsers(c.Request.Context())
	if err != nil {
		s.fail(c, err, msgInternal)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (s *Server) revokeUser(c *gin.Context) {
	err := services.RevokeUser(c.Request.Context(), s.deps.Store, s.logger, c.Param("id"))
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found."})
		return
	}
	if err != nil {
		s.fail(c, err, msgInternal)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) listTickets(c *gin.Context) {
	status := db.TicketStatus(c.Query("status"))
	if status != "" && status != db.StatusOpen && status != db.StatusClosed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status. Use Open or Closed."})
		return
	}

	tickets, err := s.deps.Store.ListTickets(c.Request.Context(), status)
	if err != nil {
		s.fail(c, err, msgInternal)
		return
	}
	c.JSON(http.StatusOK, tickets)
}

func (s *Server) ticketHistory(c *gin.Context) {
	schoolID := c.Query("schoolId")
	if schoolID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required query parameter: schoolId."})
		return
	}

	tickets, err := s.deps.Store.ListTicketsBySchoolID(c.Request.Context(), schoolID)
	if err != nil {
		s.fail(c, err, msgInternal)
		return
	}
	c.JSON(http.StatusOK, tickets)
}

func (s *Server) closeTicket(c *gin.Context) {
	var req struct {
		ResolutionNotes string `json:"resolutionNotes"`
	}
	if !bindJSON(c, &req) {
		return
	}

	err := services.CloseTicket(c.Request.Context(), s.deps.Store, s.logger, c.Param("id"), req.ResolutionNotes, s.now())
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true})
	case errors.Is(err, db.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found."})
	case errors.Is(err, db.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "Ticket is already closed."})
	default:
		s.fail(c, err, msgInternal)
	}
}

func (s *Server) bulkCloseTickets(c *gin.Context) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if !bindJSON(c, &req) {
		return
	}

	result, err := services.BulkCloseTickets(c.Request.Context(), s.deps.Store, s.logger, req.IDs, s.now())
	if err != nil {
		s.fail(c, err, msgInternal)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) listMessages(c *gin.Context) {
	messages, err := s.deps.Store.ListMessages(c.Request.Context())
	if err != nil {
		s.fail(c, err, msgInternal)
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (s *Server) listWaivers(c *gin.Context) {
	waivers, err := s.deps.Store.ListWaivers(c.Request.Context())
	if err != nil {
		s.fail(c, err, msgInternal)
		return
	}
	c.JSON(http.StatusOK, waivers)
}

func (s *Server) listLocations(c *gin.Context) {
	locations, err := s.deps.Store.ListLocations(c.Request.Context())
	if err != nil {
		s.fail(c, err, msgInternal)
		return
	}
	c.JSON(http.StatusOK, locations)
}

func (s *Server) addLocation(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if !bindJSON(c, &req) {
		return
	}

	location, err := services.AddLocation(c.Request.Context(), s.deps.Store, s.logger, req.Name)
	if errors.Is(err, db.ErrDuplicate) {
		c.JSON(http.StatusConflict, gin.H{"error": "A location with that name already exists."})
		return
	}
	if err != nil {
		s.fail(c, err, msgInternal)
		return
	}
	c.JSON(http.StatusCreated, location)
}

func (s *Server) assignTechnician(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if !bindJSON(c, &req) {
		return
	}

	err := services.AssignTechnician(c.Request.Context(), s.deps.Store, s.logger, c.Param("id"), req.Email)
	s.locationResult(c, err)
}

func (s *Server) unassignTechnician(c *gin.Context) {
	err := services.UnassignTechnician(c.Request.Context(), s.deps.Store, s.logger, c.Param("id"), c.Param("email"))
	s.locationResult(c, err)
}

func (s *Server) locationResult(c *gin.Context, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true})
	case errors.Is(err, db.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Location not found."})
	default:
		s.fail(c, err, msgInternal)
	}
}
