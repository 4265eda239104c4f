package httpapi

import (
	"errors"
	"net/http"
	"time"

	"voicedash/internal/reporting"

	"github.com/gin-gonic/gin"
)

// Report reads run against the mirror only; they never call out to
// the remote platform.

func (h Handlers) CallsSummary(c *gin.Context) {
	wid, ok := h.workspace(c)
	if !ok {
		return
	}
	from, to, err := rangeFromQuery(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from and to must be RFC3339 timestamps"})
		return
	}
	out, err := h.Reports.CallsSummary(c.Request.Context(), reporting.CallsSummaryRequest{
		WorkspaceID:  wid,
		Range:        reporting.TimeRange{From: from, To: to},
		CampaignName: c.Query("campaign"),
	})
	if err != nil {
		if errors.Is(err, reporting.ErrInvalidRequest) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid range"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "summary failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": out})
}

func (h Handlers) CampaignProgress(c *gin.Context) {
	wid, ok := h.workspace(c)
	if !ok {
		return
	}
	out, err := h.Reports.CampaignProgress(c.Request.Context(), reporting.CampaignProgressRequest{WorkspaceID: wid})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "progress failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": out})
}

func (h Handlers) SyncHealth(c *gin.Context) {
	wid, ok := h.workspace(c)
	if !ok {
		return
	}
	out, err := h.Reports.SyncHealth(c.Request.Context(), reporting.SyncHealthRequest{WorkspaceID: wid})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "health failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": out})
}

func rangeFromQuery(c *gin.Context) (time.Time, time.Time, error) {
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}
