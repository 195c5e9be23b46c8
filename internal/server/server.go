/*
Package server implements the application's network transport layer.
It builds the HTTP server, configures timeouts, and wires the store, the
recommendation client and the handlers into the router.
*/
package server

import (
	"fmt"
	"net/http"
	"time"

	"BMRCalculator/internal/auth"
	"BMRCalculator/internal/config"
	"BMRCalculator/internal/database"
	"BMRCalculator/internal/history"
	"BMRCalculator/internal/planner"
	"BMRCalculator/internal/recommendation"
	"BMRCalculator/internal/user"
)

// Server defines the configuration and dependencies for the HTTP service.
type Server struct {
	// port specifies the TCP port the server will listen on.
	port int

	// db is the user store.
	db database.Service

	// client calls the text-generation service; it may be unconfigured.
	client *recommendation.Client

	planner *planner.Service
	auth    *auth.Service
	users   *user.Service

	startedAt time.Time
}

// New wires the handlers' dependencies.
func New(cfg *config.Config, db database.Service, client *recommendation.Client) *Server {
	gate := history.NewGate(db)
	return &Server{
		port:      cfg.Port,
		db:        db,
		client:    client,
		planner:   planner.NewService(client, gate, db),
		auth:      auth.NewService(db, cfg),
		users:     user.NewService(db),
		startedAt: time.Now(),
	}
}

// NewServer returns a configured *http.Server. The write timeout leaves
// room for one recommendation call.
func NewServer(cfg *config.Config, db database.Service, client *recommendation.Client) *http.Server {
	app := New(cfg, db, client)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", app.port),
		Handler:      app.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Recommendation.Timeout + 15*time.Second,
	}
}
