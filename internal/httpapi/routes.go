package httpapi

import (
	"telecrm/internal/auth"
	"telecrm/internal/rbac"

	"github.com/gin-gonic/gin"
)

// Mount registers the TeleCRM API on g (normally /api/telecrm).
// Device endpoints authenticate with the device token in the body; the
// dashboard requires an operator access token.
func Mount(g *gin.RouterGroup, h Handlers, authManager *auth.Manager) {
	g.POST("/register", h.Register)
	g.POST("/heartbeat", h.Heartbeat)
	g.POST("/call-log", h.CallLog)
	g.POST("/call-outcome", h.CallOutcome)
	g.POST("/upload-recording", h.UploadRecording)

	g.PATCH("/device/:deviceId", auth.OptionalAccessToken(authManager), h.UpdateDevice)

	g.GET("/devices",
		auth.RequireAccessToken(authManager),
		rbac.RequireAnyRole(rbac.RoleHeadOffice, rbac.RoleOwner),
		h.ListDevices,
	)
}
