// Package web exposes the operator surface: status readout and manual
// trigger control over HTTP.
package web

import (
	"github.com/gin-gonic/gin"

	"github.com/rebately/offersync/internal/store"
)

// OpsStore is the slice of the ops store the handlers need.
type OpsStore interface {
	Snapshot() (*store.StatusSnapshot, error)
	SetManualStart(on bool) error
	SetStopRequested(on bool) error
}

// Server is the offersync operator server
type Server struct {
	ops    OpsStore
	router *gin.Engine
}

// NewServer creates a new operator server over the ops store
func NewServer(ops OpsStore) *Server {
	router := gin.Default()

	s := &Server{
		ops:    ops,
		router: router,
	}

	router.GET("/healthz", s.handleHealth)

	api := router.Group("/api")
	{
		api.GET("/status", s.handleStatus)
		api.POST("/trigger", s.handleTrigger)
	}

	return s
}

// Run starts the operator server
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Router exposes the underlying gin engine for embedding in tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}
