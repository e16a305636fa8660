// Package api exposes taskclock over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/fentz26/taskclock/internal/aggregate"
	"github.com/fentz26/taskclock/internal/attachment"
	"github.com/fentz26/taskclock/internal/clock"
	"github.com/fentz26/taskclock/internal/identity"
	"github.com/fentz26/taskclock/internal/lifecycle"
	"github.com/fentz26/taskclock/internal/models"
	"github.com/fentz26/taskclock/internal/timer"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Version is reported by /healthz.
var Version = "dev"

// Users mirrors authenticated identities. *store.Store implements it.
type Users interface {
	UpsertUser(ctx context.Context, id, email string, now time.Time) (*models.User, error)
}

// Pinger reports database health. *store.Store implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the components the server routes to.
type Deps struct {
	Lifecycle *lifecycle.Lifecycle
	Timer     *timer.Controller
	Stats     *aggregate.Cached
	// Attachments is optional; without it the attachment routes answer 501.
	Attachments *attachment.Service
	Identity    identity.Provider
	Users       Users
	DB          Pinger
	Clock       clock.Clock
	Log         *logrus.Logger
}

// Server provides the HTTP API for taskclock.
type Server struct {
	deps   Deps
	engine *gin.Engine
	addr   string
	server *http.Server
}

// NewServer creates a server listening on addr.
func NewServer(deps Deps, addr string) *Server {
	if deps.Clock == nil {
		deps.Clock = clock.System{}
	}
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}
	if deps.Identity == nil {
		deps.Identity = identity.HeaderProvider{}
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(deps.Log))

	s := &Server{deps: deps, engine: router, addr: addr}
	s.registerRoutes()
	return s
}

// Handler exposes the router.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.handleHealth)

	authed := s.engine.Group("/", s.authenticate)
	{
		tasks := authed.Group("/tasks")
		tasks.GET("", s.handleListTasks)
		tasks.POST("", s.handleCreateTask)
		tasks.GET("/search", s.handleSearchTasks)
		tasks.GET("/prev-month-time", s.handlePrevMonthTime)
		tasks.GET("/top-by-logged-time/:n", s.handleTopByLoggedTime)
		tasks.GET("/:id", s.handleGetTask)
		tasks.PATCH("/:id", s.handleUpdateTask)
		tasks.DELETE("/:id", s.handleDeleteTask)
		tasks.POST("/:id/assign", s.handleAssignTask)
		tasks.POST("/:id/complete", s.handleCompleteTask)
		tasks.POST("/:id/transition", s.handleTransitionTask)
		tasks.POST("/:id/comment", s.handleAddComment)
		tasks.GET("/:id/comments", s.handleListComments)
		tasks.POST("/:id/log-time", s.handleLogTime)
		tasks.GET("/:id/timelogs", s.handleListTimeLogs)
		tasks.POST("/:id/attachments", s.handleRequestUpload)
		tasks.GET("/:id/attachments", s.handleListAttachments)

		timelog := authed.Group("/timelog")
		timelog.POST("/:id/start", s.handleStartTimer)
		timelog.POST("/:id/finish", s.handleFinishTimer)
	}
}

// Start listens and serves until Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.engine,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	s.deps.Log.WithField("addr", s.addr).Info("starting taskclock API")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// HealthResponse is the body of /healthz.
type HealthResponse struct {
	OK      bool   `json:"ok"`
	DB      string `json:"db"`
	Version string `json:"version"`
	Time    string `json:"time"`
}

func (s *Server) handleHealth(c *gin.Context) {
	resp := HealthResponse{OK: true, DB: "ok", Version: Version, Time: s.deps.Clock.Now().Format(time.RFC3339)}
	status := http.StatusOK
	if s.deps.DB != nil {
		if err := s.deps.DB.Ping(c.Request.Context()); err != nil {
			resp.OK = false
			resp.DB = err.Error()
			status = http.StatusServiceUnavailable
		}
	}
	c.JSON(status, resp)
}
