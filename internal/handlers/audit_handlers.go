package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"gymcore_backend/internal/models"
	"gymcore_backend/internal/services"
	"gymcore_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// AuditHandler lists the audit trail.
type AuditHandler struct {
	auditService services.AuditService
	loc          *time.Location
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(as services.AuditService, loc *time.Location) *AuditHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &AuditHandler{auditService: as, loc: loc}
}

// GetAuditLogs filters by ?userId, ?entityType, ?action and a ?from/?to range.
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	page, limit := utils.ParsePagination(c, 50, 200)
	filters := models.AuditFilters{
		EntityType: strings.TrimSpace(c.Query("entityType")),
		Action:     strings.TrimSpace(c.Query("action")),
		Page:       page,
		Limit:      limit,
	}
	if raw := c.Query("userId"); raw != "" {
		userID, err := utils.StrToInt64(raw)
		if err != nil {
			respondBadRequest(c, "Invalid userId parameter.", err)
			return
		}
		filters.UserID = &userID
	}
	var ok bool
	if filters.From, ok = dateQuery(c, "from", h.loc); !ok {
		return
	}
	if filters.To, ok = dateQuery(c, "to", h.loc); !ok {
		return
	}

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), filters)
	if err != nil {
		utils.LogError(err, "GetAuditLogs: Error from auditService.GetAuditLogs")
		if errors.Is(err, services.ErrValidation) {
			respondBadRequest(c, "Validation failed: "+err.Error(), err)
			return
		}
		utils.RespondInternalError(c, "Failed to fetch audit logs.")
		return
	}
	if logs == nil {
		logs = []models.AuditLog{}
	}
	c.JSON(http.StatusOK, paged(logs, total, page, limit))
}
