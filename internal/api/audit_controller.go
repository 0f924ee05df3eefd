package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/streamwork/hierarchy-gin/internal/auth"
	"github.com/streamwork/hierarchy-gin/internal/service"
)

// AuditController 审计日志控制器
type AuditController struct {
	auditLogService service.AuditLogService
}

// NewAuditController 创建审计日志控制器
func NewAuditController(auditLogService service.AuditLogService) *AuditController {
	return &AuditController{
		auditLogService: auditLogService,
	}
}

// Query 分页查询访问判定审计记录
func (c *AuditController) Query(ctx *gin.Context) {
	query := &service.AuditQuery{
		OrganizationID: auth.CurrentOrganization(ctx),
		RequesterID:    ctx.Query("requester_id"),
		TargetID:       ctx.Query("target_id"),
		DataScope:      ctx.Query("data_scope"),
		Action:         ctx.Query("action"),
	}

	if v := ctx.Query("granted"); v != "" {
		granted, err := strconv.ParseBool(v)
		if err != nil {
			Error(ctx, http.StatusBadRequest, "invalid granted filter", err.Error())
			return
		}
		query.Granted = &granted
	}
	if v := ctx.Query("from"); v != "" {
		from, err := time.Parse(time.RFC3339, v)
		if err != nil {
			Error(ctx, http.StatusBadRequest, "invalid from timestamp", err.Error())
			return
		}
		query.From = &from
	}
	if v := ctx.Query("to"); v != "" {
		to, err := time.Parse(time.RFC3339, v)
		if err != nil {
			Error(ctx, http.StatusBadRequest, "invalid to timestamp", err.Error())
			return
		}
		query.To = &to
	}

	query.Page, _ = strconv.Atoi(ctx.DefaultQuery("page", "1"))
	query.PageSize, _ = strconv.Atoi(ctx.DefaultQuery("page_size", "20"))

	records, total, err := c.auditLogService.Query(ctx.Request.Context(), query)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	pageSize := query.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	totalPage := int((total + int64(pageSize) - 1) / int64(pageSize))

	Paginated(ctx, records, PaginationInfo{
		Page:      query.Page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: totalPage,
	})
}
