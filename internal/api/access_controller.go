package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/streamwork/hierarchy-gin/internal/auth"
	"github.com/streamwork/hierarchy-gin/internal/service"
)

// AccessController 访问判定控制器
type AccessController struct {
	accessService service.AccessService
}

// NewAccessController 创建访问判定控制器
func NewAccessController(accessService service.AccessService) *AccessController {
	return &AccessController{
		accessService: accessService,
	}
}

// Check 访问检查
// 判定结果总是 200,granted 字段表达允许与否;只有请求本身非法才报错
func (c *AccessController) Check(ctx *gin.Context) {
	var req service.CheckRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	req.OrganizationID = auth.CurrentOrganization(ctx)

	decision, err := c.accessService.Check(ctx.Request.Context(), &req)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, decision)
}

// ClearCacheRequest 缓存清除请求,空请求体按组织整体清除
type ClearCacheRequest struct {
	TargetEntityID string `json:"targetEntityId"` // 只清除涉及该实体的条目
	ClearAll       bool   `json:"clearAll"`       // 按组织整体清除
}

// ClearCache 管理端缓存重置
func (c *AccessController) ClearCache(ctx *gin.Context) {
	var req ClearCacheRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
			return
		}
	}

	target := req.TargetEntityID
	if req.ClearAll {
		target = ""
	}
	c.accessService.ClearCache(auth.CurrentOrganization(ctx), target)
	NoContent(ctx)
}
