package app

import (
	"net/http"

	"github.com/gorilla/mux"

	"channels-core/internal/handlers"
	"channels-core/internal/server"
)

// Handler builds the router with all handlers configured
func (app *App) Handler() http.Handler {
	opts := handlers.Options{
		Guard:  app.Guard,
		Logger: app.Logger,
	}
	if grace, err := app.Config.Grace(); err == nil && grace > 0 {
		opts.ReplayWindow = grace
	}
	if app.RedisClient != nil {
		opts.Health = app.RedisClient.Health
	}

	h := handlers.New(app.Client, opts)

	router := mux.NewRouter()
	SetupRoutes(router, h, app.InitializeRateLimiter(), app.Logger)
	return router
}

// RunServer creates the HTTP server for the application
func (app *App) RunServer() *server.Server {
	return server.New(app.Handler(), app.Config.Port, "", "")
}
