package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"voicedash/internal/audit"
	"voicedash/internal/auth"
	"voicedash/internal/events"
	"voicedash/internal/mirror"
	"voicedash/internal/rbac"
	"voicedash/internal/reconcile"
	"voicedash/internal/remote"
	"voicedash/internal/reporting"
	"voicedash/internal/syncer"
	"voicedash/internal/webhook"
	"voicedash/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth      *auth.Manager
	Store     mirror.Store
	Scheduler *syncer.Scheduler
	Rec       *reconcile.Reconciler
	Webhooks  *webhook.Router
	Hub       *events.Hub
	Audit     *audit.Service
	Reports   *reporting.Service

	// PlatformName is the x-source value marking remote-originated
	// webhook deliveries.
	PlatformName string
}

// --- Auth ---

type loginRequest struct {
	UserID      string `json:"user_id"`
	WorkspaceID string `json:"workspace_id"`
	Role        string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.WorkspaceID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, workspace_id, role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), auth.Identity{
		UserID:      req.UserID,
		WorkspaceID: req.WorkspaceID,
		Role:        req.Role,
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges a valid refresh token for a new token pair.
func (h Handlers) Refresh(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "refresh_token required"})
		return
	}
	pair, err := h.Auth.Refresh(time.Now(), req.RefreshToken)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Mirrored resource reads ---

func (h Handlers) workspace(c *gin.Context) (string, bool) {
	wid, err := auth.WorkspaceID(c.Request.Context())
	if err != nil || wid == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "workspace_id required"})
		return "", false
	}
	return wid, true
}

func pageFromQuery(c *gin.Context) mirror.Page {
	pageno, _ := strconv.Atoi(c.DefaultQuery("pageno", "1"))
	pagesize, _ := strconv.Atoi(c.DefaultQuery("pagesize", "20"))
	return mirror.Page{Pageno: pageno, Pagesize: pagesize}
}

func listResponse(c *gin.Context, data any, p mirror.Page, total int) {
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       data,
		"pagination": mirror.NewPagination(p, total),
	})
}

// ListCalls serves the mirrored call log. Like every list read it
// kicks a non-blocking background pull first, so the response renders
// from the mirror now and a fresh copy lands shortly after.
func (h Handlers) ListCalls(c *gin.Context) {
	wid, ok := h.workspace(c)
	if !ok {
		return
	}
	h.Scheduler.SyncAsync(wid, remote.ResourceCalls)

	f := mirror.CallFilter{
		Status:       c.Query("status"),
		CampaignName: c.Query("campaign"),
	}
	if v := c.Query("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.From = t
		}
	}
	if v := c.Query("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.To = t
		}
	}
	p := pageFromQuery(c)
	rows, total, err := h.Store.ListCalls(c.Request.Context(), wid, f, p)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call listing failed"})
		return
	}
	listResponse(c, rows, p, total)
}

func (h Handlers) GetCall(c *gin.Context) {
	wid, ok := h.workspace(c)
	if !ok {
		return
	}
	rec, err := h.Store.GetCall(c.Request.Context(), wid, c.Param("id"))
	if h.respondGetErr(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": rec})
}

func (h Handlers) ListNumbers(c *gin.Context) {
	wid, ok := h.workspace(c)
	if !ok {
		return
	}
	h.Scheduler.SyncAsync(wid, remote.ResourceNumbers)

	f := mirror.NumberFilter{AttachedAgentRemoteID: c.Query("agent_id")}
	p := pageFromQuery(c)
	rows, total, err := h.Store.ListNumbers(c.Request.Context(), wid, f, p)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "number listing failed"})
		return
	}
	listResponse(c, rows, p, total)
}

func (h Handlers) GetNumber(c *gin.Context) {
	wid, ok := h.workspace(c)
	if !ok {
		return
	}
	rec, err := h.Store.GetNumber(c.Request.Context(), wid, c.Param("id"))
	if h.respondGetErr(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": rec})
}

func (h Handlers) ListFiles(c *gin.Context) {
	wid, ok := h.workspace(c)
	if !ok {
		return
	}
	h.Scheduler.SyncAsync(wid, remote.ResourceFiles)

	p := pageFromQuery(c)
	rows, total, err := h.Store.ListFiles(c.Request.Context(), wid, p)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "file listing failed"})
		return
	}
	listResponse(c, rows, p, total)
}

func (h Handlers) GetFile(c *gin.Context) {
	wid, ok := h.workspace(c)
	if !ok {
		return
	}
	rec, err := h.Store.GetFile(c.Request.Context(), wid, c.Param("id"))
	if h.respondGetErr(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": rec})
}

func (h Handlers) ListAgents(c *gin.Context) {
	wid, ok := h.workspace(c)
	if !ok {
		return
	}
	h.Scheduler.SyncAsync(wid, remote.ResourceAgents)

	p := pageFromQuery(c)
	rows, total, err := h.Store.ListAgents(c.Request.Context(), wid, p)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "agent listing failed"})
		return
	}
	listResponse(c, rows, p, total)
}

func (h Handlers) GetAgent(c *gin.Context) {
	wid, ok := h.workspace(c)
	if !ok {
		return
	}
	rec, err := h.Store.GetAgent(c.Request.Context(), wid, c.Param("id"))
	if h.respondGetErr(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": rec})
}

func (h Handlers) ListCampaigns(c *gin.Context) {
	wid, ok := h.workspace(c)
	if !ok {
		return
	}
	h.Scheduler.SyncAsync(wid, remote.ResourceCampaigns)

	p := pageFromQuery(c)
	rows, total, err := h.Store.ListCampaigns(c.Request.Context(), wid, p)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "campaign listing failed"})
		return
	}
	listResponse(c, rows, p, total)
}

func (h Handlers) GetCampaign(c *gin.Context) {
	wid, ok := h.workspace(c)
	if !ok {
		return
	}
	rec, err := h.Store.GetCampaign(c.Request.Context(), wid, c.Param("id"))
	if h.respondGetErr(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": rec})
}

func (h Handlers) respondGetErr(c *gin.Context, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, mirror.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
		return true
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return true
	}
}

// --- Mutations (operator or admin) ---

// DeleteResource removes one mirrored record and, when the id fits the
// platform's numeric contract, the remote copy first. A remote failure
// is user-visible; the local copy stays until the platform confirms.
func (h Handlers) DeleteResource(res remote.Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		wid, ok := h.workspace(c)
		if !ok {
			return
		}
		id := c.Param("id")
		if err := h.Rec.Delete(c.Request.Context(), wid, res, id, reconcile.OriginDashboard); err != nil {
			if errors.Is(err, mirror.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "delete " + res.Singular() + " failed"})
			return
		}
		h.logMutation(c, wid, res.Singular(), id, "deleted")
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

type attachRequest struct {
	AgentID string `json:"agent_id"`
}

func (h Handlers) AttachNumber(c *gin.Context) {
	wid, ok := h.workspace(c)
	if !ok {
		return
	}
	var req attachRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AgentID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "agent_id required"})
		return
	}
	id := c.Param("id")
	if err := h.Rec.AttachNumber(c.Request.Context(), wid, id, req.AgentID, reconcile.OriginDashboard); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "attach failed"})
		return
	}
	h.logMutation(c, wid, "number", id, "attached agent "+req.AgentID)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h Handlers) DetachNumber(c *gin.Context) {
	wid, ok := h.workspace(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if err := h.Rec.DetachNumber(c.Request.Context(), wid, id, reconcile.OriginDashboard); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "detach failed"})
		return
	}
	h.logMutation(c, wid, "number", id, "detached agent")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h Handlers) AttachFile(c *gin.Context) {
	wid, ok := h.workspace(c)
	if !ok {
		return
	}
	var req attachRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AgentID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "agent_id required"})
		return
	}
	id := c.Param("id")
	if err := h.Rec.AttachFile(c.Request.Context(), wid, id, req.AgentID, reconcile.OriginDashboard); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "attach failed"})
		return
	}
	h.logMutation(c, wid, "file", id, "attached agent "+req.AgentID)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h Handlers) DetachFile(c *gin.Context) {
	wid, ok := h.workspace(c)
	if !ok {
		return
	}
	var req attachRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AgentID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "agent_id required"})
		return
	}
	id := c.Param("id")
	if err := h.Rec.DetachFile(c.Request.Context(), wid, id, req.AgentID, reconcile.OriginDashboard); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "detach failed"})
		return
	}
	h.logMutation(c, wid, "file", id, "detached agent "+req.AgentID)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type importNumberRequest struct {
	Number   string `json:"number"`
	Label    string `json:"label"`
	Provider string `json:"provider"`
}

func (h Handlers) ImportNumber(c *gin.Context) {
	wid, ok := h.workspace(c)
	if !ok {
		return
	}
	var req importNumberRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Number == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "number required"})
		return
	}
	rec, err := h.Rec.ImportNumber(c.Request.Context(), wid, remote.ImportNumberRequest{
		Number:   req.Number,
		Label:    req.Label,
		Provider: req.Provider,
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "import phone number failed"})
		return
	}
	h.logMutation(c, wid, "number", rec.RemoteID, "imported "+req.Number)
	c.JSON(http.StatusOK, gin.H{"success": true, "data": rec})
}

// --- Sync ---

// TriggerSync runs a blocking pull of one resource table and returns
// the run outcome. Coalescing and cooldown apply as usual.
func (h Handlers) TriggerSync(c *gin.Context) {
	wid, ok := h.workspace(c)
	if !ok {
		return
	}
	res := remote.Resource(c.Param("resource"))
	run, err := h.Scheduler.Sync(c.Request.Context(), wid, res)
	if err != nil {
		if !res.Valid() {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown resource"})
			return
		}
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "sync failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": run})
}

// --- Webhooks ---

// PlatformWebhook is the single inbound endpoint for remote push
// deliveries. The x-source header is the provenance marker: when it
// carries the platform's name the mutation is remote-originated and
// must not be propagated back out.
func (h Handlers) PlatformWebhook(c *gin.Context) {
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	wid := extractWorkspaceID(payload, c.Query("workspace_id"))
	if wid == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "workspace_id required in payload or query"})
		return
	}

	origin := reconcile.OriginDashboard
	if h.PlatformName != "" && c.GetHeader("x-source") == h.PlatformName {
		origin = reconcile.OriginRemote
	}

	cls, err := h.Webhooks.Route(c.Request.Context(), wid, payload, origin)
	if err != nil {
		if errors.Is(err, webhook.ErrUnroutable) {
			logger.FromGin(c).Warn("unroutable webhook payload", "workspace_id", wid)
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "webhook processing failed"})
		return
	}
	if h.Audit != nil {
		ids := ""
		if len(cls.RemoteIDs) > 0 {
			ids = cls.RemoteIDs[0]
		}
		_ = h.Audit.LogWebhookMutation(c.Request.Context(), wid, c.ClientIP(),
			string(cls.Resource), ids, string(cls.Mutation))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "resource": cls.Resource, "mutation": cls.Mutation})
}

var workspaceKeys = []string{"workspace_id", "owner_id", "account_id"}

func extractWorkspaceID(payload map[string]any, fallback string) string {
	for _, k := range workspaceKeys {
		if s, ok := payload[k].(string); ok && s != "" {
			return s
		}
	}
	return fallback
}

// --- Real-time events ---

// EventsWS upgrades to a websocket scoped to the caller's workspace
// and streams change events until the client goes away.
func (h Handlers) EventsWS(c *gin.Context) {
	wid, ok := h.workspace(c)
	if !ok {
		return
	}
	h.Hub.ServeWS(c.Writer, c.Request, wid)
}

// --- Audit helper ---

func (h Handlers) logMutation(c *gin.Context, wid, resource, remoteID, message string) {
	if h.Audit == nil {
		return
	}
	id, _ := auth.IdentityFrom(c.Request.Context())
	// Best-effort; a failed audit write never fails the mutation.
	_ = h.Audit.LogDashboardMutation(c.Request.Context(), wid, id.UserID, id.Role, c.ClientIP(), resource, remoteID, message)
}

// Convenience middleware bundles.

func RequireWorkspaceAndAnyRole(roles ...string) []gin.HandlerFunc {
	return []gin.HandlerFunc{rbac.RequireWorkspace(), rbac.RequireAnyRole(roles...)}
}
