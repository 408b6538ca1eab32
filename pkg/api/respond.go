package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jakechorley/support-kiosk/pkg/core/services"
	"github.com/jakechorley/support-kiosk/pkg/upstream"
)

const (
	msgInternal      = "Internal Server Error"
	msgConfiguration = "Server configuration error."
)

// bindJSON decodes the request body into v. An empty body leaves v at its zero value so the
// service reports the missing fields. Returns false once a response has been written.
func bindJSON(c *gin.Context, v interface{}) bool {
	err := c.ShouldBindJSON(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large."})
		return false
	}

	c.JSON(http.StatusBadRequest, gin.H{"error": "Bad Request: Invalid JSON body."})
	return false
}

// relay writes an upstream envelope back to the caller. Any 2xx becomes 200.
func relay(c *gin.Context, env *upstream.Envelope) {
	status := env.Status
	if env.OK() {
		status = http.StatusOK
	}
	c.Data(status, "application/json; charset=utf-8", env.Body)
}

// fail answers 400 for client input problems and 500 with generic for everything else
func (s *Server) fail(c *gin.Context, err error, generic string) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message})
		return
	}

	s.logger.Error("Request failed",
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": generic})
}

func misconfigured(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{"error": msgConfiguration})
}
