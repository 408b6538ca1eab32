package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/jakechorley/support-kiosk/internal/config"
	"github.com/jakechorley/support-kiosk/pkg/auth"
	"github.com/jakechorley/support-kiosk/pkg/core/checkin"
	"github.com/jakechorley/support-kiosk/pkg/core/services"
	"github.com/jakechorley/support-kiosk/pkg/db"
	"github.com/jakechorley/support-kiosk/pkg/upstream"
)

// Deps are the collaborators the HTTP surface needs. A nil client means its secret was not
// configured and the routes that depend on it answer "Server configuration error.".
type Deps struct {
	Config      *config.Config
	Store       db.Database
	Verifier    auth.Verifier
	Identity    services.IdentityLookup
	Directory   services.UserDirectory
	IncidentIQ  upstream.Caller
	Gemini      services.ContentGenerator
	Uploader    services.Uploader
	Transcriber services.Transcriber
	SyncAPIKey  string
	Sessions    *checkin.Sessions
	Logger      *zap.Logger
	Now         func() time.Time
}

// Server owns the gin engine and the route handlers
type Server struct {
	deps     Deps
	logger   *zap.Logger
	now      func() time.Time
	sessions *checkin.Sessions
	engine   *gin.Engine
}

// NewServer builds the router with every route registered
func NewServer(deps Deps) *Server {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sessions := deps.Sessions
	if sessions == nil {
		sessions = checkin.NewSessions(checkin.DefaultSessionTTL, now)
	}

	s := &Server{deps: deps, logger: logger, now: now, sessions: sessions}
	s.engine = s.routes()
	return s
}

// Handler returns the traced HTTP handler
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.engine, s.deps.Config.Telemetry.ServiceName)
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), AccessLog(s.logger), BodyLimit(s.deps.Config.Server.MaxBodyBytes))
	if origins := s.deps.Config.Server.AllowedOrigins; len(origins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: origins,
			AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "Authorization", "X-Api-Key"},
			MaxAge:       12 * time.Hour,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Kiosk routes are unauthenticated; the secrets they need stay on the server
	r.POST("/findUser", s.findUser)
	r.POST("/incidentIqProxy", s.incidentIQProxy)
	r.POST("/geminiProxy", s.geminiProxy)
	r.POST("/uploadVideo", s.uploadVideo)
	r.POST("/transcribeAudio", s.transcribeAudio)
	r.POST("/syncWaiverFromSheet", s.syncWaiverFromSheet)
	r.POST("/tickets", s.createTicket)
	r.POST("/messages", s.createMessage)
	r.POST("/waivers", s.createWaiver)
	r.POST("/checkin/clarify", s.clarifyProblem)
	r.POST("/checkin/summary", s.draftSummary)
	r.POST("/checkin/sessions", s.startSession)
	r.POST("/checkin/sessions/:id/events", s.stepSession)
	r.DELETE("/checkin/sessions/:id", s.endSession)

	authed := r.Group("/", Authenticate(s.deps.Verifier))
	authed.GET("/me", s.me)

	leadership := authed.Group("/", RequireRole(s.deps.Store, s.logger, db.RoleLeadership))
	leadership.POST("/preauthorizeUser", s.preauthorizeUser)
	leadership.GET("/users", s.listUsers)
	leadership.POST("/users/:id/revoke", s.revokeUser)
	leadership.POST("/locations", s.addLocation)
	leadership.POST("/locations/:id/technicians", s.assignTechnician)
	leadership.DELETE("/locations/:id/technicians/:email", s.unassignTechnician)

	staff := authed.Group("/", RequireRole(s.deps.Store, s.logger, db.RoleTechnician, db.RoleLeadership))
	staff.GET("/tickets", s.listTickets)
	staff.GET("/tickets/history", s.ticketHistory)
	staff.POST("/tickets/close", s.bulkCloseTickets)
	staff.POST("/tickets/:id/close", s.closeTicket)
	staff.GET("/messages", s.listMessages)
	staff.GET("/waivers", s.listWaivers)
	staff.GET("/locations", s.listLocations)

	r.NoRoute(func(c *gin.Context) {
		c.String(http.StatusNotFound, "Route not found.")
	})

	return r
}
