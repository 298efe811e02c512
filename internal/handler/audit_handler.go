package handler

import (
	"net/http"

	"posbackend/internal/auth"
	"posbackend/internal/middleware"
	"posbackend/internal/model"
	"posbackend/internal/service"
	"posbackend/pkg/pagination"
	"posbackend/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup, tokens *auth.TokenManager) {
	group := router.Group("/api/audit-logs")
	group.Use(middleware.RequireRole(tokens, model.RoleAdmin))
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs lists audit entries newest first, with the acting user preloaded
// @Summary      Get audit logs
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        action  query     string  false  "Action filter, e.g. CREATE_SALE"
// @Param        skip    query     int     false  "Rows to skip (default 0)"
// @Param        limit   query     int     false  "Page size (default 100)"
// @Success      200     {object}  response.Response{data=response.Page{items=[]service.AuditLogResponse}}
// @Failure      403     {object}  response.Response
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	p := pagination.Parse(c)

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), p.Skip, p.Limit, c.Query("action"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Page{Items: logs, Total: total, Skip: p.Skip, Limit: p.Limit}))
}
