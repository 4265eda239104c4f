package main

import (
	"voicedash/internal/auth"
	"voicedash/internal/httpapi"
	"voicedash/internal/rbac"
	"voicedash/internal/remote"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Platform webhooks (public). Provenance is carried by the x-source
	// header, which the handler checks against the configured platform name.
	r.POST("/v1/webhooks/platform", h.PlatformWebhook)

	// Token issuance (public; the token itself is the credential for refresh).
	r.POST("/v1/auth/login", h.Login)
	r.POST("/v1/auth/refresh", h.Refresh)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(authMW)

	// Viewers can read the mirror; mutations require operator.
	read := httpapi.RequireWorkspaceAndAnyRole(rbac.RoleViewer, rbac.RoleOperator)
	write := rbac.RequireAnyRole(rbac.RoleOperator)

	// Identity extraction via context.
	v1.GET("/me", func(c *gin.Context) {
		id, _ := auth.IdentityFrom(c.Request.Context())
		c.JSON(200, gin.H{"user_id": id.UserID, "workspace_id": id.WorkspaceID, "role": id.Role})
	})

	// CALLS routes
	calls := v1.Group("/calls", read...)
	{
		calls.GET("", h.ListCalls)
		calls.GET("/:id", h.GetCall)
		calls.DELETE("/:id", write, h.DeleteResource(remote.ResourceCalls))
	}

	// NUMBERS routes
	numbers := v1.Group("/numbers", read...)
	{
		numbers.GET("", h.ListNumbers)
		numbers.GET("/:id", h.GetNumber)
		numbers.DELETE("/:id", write, h.DeleteResource(remote.ResourceNumbers))
		numbers.POST("/:id/attach", write, h.AttachNumber)
		numbers.POST("/:id/detach", write, h.DetachNumber)
		numbers.POST("/import", write, h.ImportNumber)
	}

	// FILES routes
	files := v1.Group("/files", read...)
	{
		files.GET("", h.ListFiles)
		files.GET("/:id", h.GetFile)
		files.DELETE("/:id", write, h.DeleteResource(remote.ResourceFiles))
		files.POST("/:id/attach", write, h.AttachFile)
		files.POST("/:id/detach", write, h.DetachFile)
	}

	// AGENTS routes
	agents := v1.Group("/agents", read...)
	{
		agents.GET("", h.ListAgents)
		agents.GET("/:id", h.GetAgent)
		agents.DELETE("/:id", write, h.DeleteResource(remote.ResourceAgents))
	}

	// CAMPAIGNS routes
	campaigns := v1.Group("/campaigns", read...)
	{
		campaigns.GET("", h.ListCampaigns)
		campaigns.GET("/:id", h.GetCampaign)
		campaigns.DELETE("/:id", write, h.DeleteResource(remote.ResourceCampaigns))
	}

	// SYNC routes
	sync := v1.Group("/sync", read...)
	{
		sync.POST("/:resource", write, h.TriggerSync)
	}

	// EVENTS routes (websocket fan-out of mirror changes)
	events := v1.Group("/events", read...)
	{
		events.GET("/ws", h.EventsWS)
	}

	// REPORTS routes
	reports := v1.Group("/reports", read...)
	{
		reports.GET("/calls-summary", h.CallsSummary)
		reports.GET("/campaign-progress", h.CampaignProgress)
		reports.GET("/sync-health", h.SyncHealth)
	}
}
