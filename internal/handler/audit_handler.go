package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/daksh-api/internal/models"
	"github.com/noah-isme/daksh-api/pkg/response"
)

type auditReader interface {
	Recent(ctx context.Context, action string, limit int) ([]models.AuditLog, error)
}

// AuditHandler lists the admin audit trail.
type AuditHandler struct {
	audit auditReader
}

// NewAuditHandler constructs the handler.
func NewAuditHandler(audit auditReader) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// List godoc
// @Summary Recent audit entries
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param action query string false "Filter by action"
// @Param limit query int false "Maximum entries (default 50, max 200)"
// @Success 200 {object} response.Envelope
// @Router /admin/audit [get]
func (h *AuditHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	logs, err := h.audit.Recent(c.Request.Context(), c.Query("action"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, logs, len(logs))
}
