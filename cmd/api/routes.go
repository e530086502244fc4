package main

import (
	"telecrm/internal/auth"
	"telecrm/internal/httpapi"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authManager *auth.Manager) {
	// public
	r.GET("/healthz", httpapi.Healthz)

	httpapi.Mount(r.Group("/api/telecrm"), h, authManager)
}
