// Package server exposes the ledger over HTTP. Handlers decode JSON
// requests, call the engine or identity provider, and map domain errors to
// status codes; no balance math lives here.
package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/evenlyhq/evenly/internal/auth"
	"github.com/evenlyhq/evenly/internal/calculator"
	"github.com/evenlyhq/evenly/internal/engine"
	"github.com/evenlyhq/evenly/internal/feed"
	"github.com/evenlyhq/evenly/internal/middleware"
	"github.com/evenlyhq/evenly/internal/reconciler"
	"github.com/evenlyhq/evenly/internal/storage"
)

// Server bundles the dependencies the HTTP handlers need.
type Server struct {
	engine     *engine.Engine
	store      storage.Store
	identity   auth.IdentityProvider
	jwtManager *auth.JWTManager
}

// New creates a server with all its dependencies wired.
func New(eng *engine.Engine, store storage.Store, identity auth.IdentityProvider, jwtManager *auth.JWTManager) *Server {
	return &Server{
		engine:     eng,
		store:      store,
		identity:   identity,
		jwtManager: jwtManager,
	}
}

// Router builds the gin engine with all routes and middleware attached.
func (s *Server) Router(mode string) *gin.Engine {
	if mode != "" {
		gin.SetMode(mode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.Metrics())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	api.POST("/auth/register", s.register)
	api.POST("/auth/login", s.login)

	protected := api.Group("")
	protected.Use(middleware.RequireAuth(s.jwtManager))

	protected.GET("/me", s.getMe)

	protected.POST("/persons", s.createPerson)
	protected.GET("/persons/:id", s.getPerson)
	protected.POST("/persons/:id/archive", s.archivePerson)

	protected.POST("/groups", s.createGroup)
	protected.GET("/groups/:id", s.getGroup)
	protected.POST("/groups/:id/members", s.addGroupMembers)

	protected.POST("/expenses", s.createExpense)
	protected.DELETE("/expenses/:id", s.deleteExpense)

	protected.POST("/settlements", s.createSettlement)
	protected.POST("/settlements/:id/undo", s.undoSettlement)

	protected.POST("/reminders", s.createReminder)
	protected.POST("/reminders/:id/read", s.markReminderRead)

	protected.POST("/messages", s.postMessage)

	protected.GET("/balances/me", s.myBalance)
	protected.GET("/balances/persons/:id", s.pairwiseBalance)
	protected.GET("/balances/groups/:id", s.groupBalance)
	protected.GET("/balances/groups/:id/members", s.memberBalances)
	protected.GET("/balances/groups/:id/debtors", s.groupDebtors)

	protected.GET("/feeds/persons/:id", s.personFeed)
	protected.GET("/feeds/groups/:id", s.groupFeed)

	return r
}

// fail maps a domain error to an HTTP status and writes the error response.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, calculator.ErrInvalidExpense),
		errors.Is(err, calculator.ErrDegenerateExpense),
		errors.Is(err, auth.ErrWeakPassword):
		status = http.StatusBadRequest
	case errors.Is(err, reconciler.ErrInvalidDirection),
		errors.Is(err, reconciler.ErrAmountExceedsBalance):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, calculator.ErrUnknownEntity),
		errors.Is(err, feed.ErrUnknownThread),
		errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, auth.ErrEmailExists),
		errors.Is(err, engine.ErrAlreadyUndone):
		status = http.StatusConflict
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrMissingToken):
		status = http.StatusUnauthorized
	}
	c.JSON(status, gin.H{"error": err.Error()})
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
