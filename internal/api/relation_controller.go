package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/streamwork/hierarchy-gin/internal/auth"
	"github.com/streamwork/hierarchy-gin/internal/service"
	"github.com/streamwork/hierarchy-gin/internal/utils"
)

// RelationController 关系控制器
// 每个领域(user/stream)各挂一个实例,处理关系和权限条目的增删改查
type RelationController struct {
	relationService service.RelationService
}

// NewRelationController 创建关系控制器
func NewRelationController(relationService service.RelationService) *RelationController {
	return &RelationController{
		relationService: relationService,
	}
}

// validateRelationID 验证关系 ID 并返回错误响应(如果无效)
func (c *RelationController) validateRelationID(ctx *gin.Context, id string) bool {
	if err := utils.ValidateRelationID(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid relation ID", err.Error())
		return false
	}
	return true
}

// Create 创建关系
func (c *RelationController) Create(ctx *gin.Context) {
	var req service.CreateRelationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	req.OrganizationID = auth.CurrentOrganization(ctx)
	req.CreatedBy = auth.CurrentUser(ctx)
	for i := range req.Permissions {
		req.Permissions[i].GrantedBy = req.CreatedBy
	}

	rel, err := c.relationService.CreateRelation(ctx.Request.Context(), &req)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Created(ctx, rel)
}

// Get 获取关系详情
func (c *RelationController) Get(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateRelationID(ctx, id) {
		return
	}

	rel, err := c.relationService.GetRelation(id)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, rel)
}

// Update 更新关系
func (c *RelationController) Update(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateRelationID(ctx, id) {
		return
	}

	var req service.UpdateRelationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	rel, err := c.relationService.UpdateRelation(ctx.Request.Context(), id, &req)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, rel)
}

// Delete 删除关系(软删除)
func (c *RelationController) Delete(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateRelationID(ctx, id) {
		return
	}

	err := c.relationService.DeleteRelation(ctx.Request.Context(), auth.CurrentOrganization(ctx), id)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	NoContent(ctx)
}

// ListByEntity 列出实体的关系
// direction 参数:from(出边)/to(入边)/all(默认)
func (c *RelationController) ListByEntity(ctx *gin.Context) {
	entityID := ctx.Param("id")
	if err := utils.ValidateEntityID(entityID); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid entity ID", err.Error())
		return
	}

	orgID := auth.CurrentOrganization(ctx)
	direction := ctx.DefaultQuery("direction", "all")

	result := gin.H{"entityId": entityID}
	if direction == "from" || direction == "all" {
		from, err := c.relationService.EdgesFrom(orgID, entityID)
		if err != nil {
			HandleServiceError(ctx, err)
			return
		}
		result["from"] = from
	}
	if direction == "to" || direction == "all" {
		to, err := c.relationService.EdgesTo(orgID, entityID)
		if err != nil {
			HandleServiceError(ctx, err)
			return
		}
		result["to"] = to
	}

	Success(ctx, result)
}

// ListPermissions 列出关系上的权限条目
func (c *RelationController) ListPermissions(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateRelationID(ctx, id) {
		return
	}

	entries, err := c.relationService.ListPermissions(id)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, entries)
}

// SetPermission 新增或覆盖关系上的权限条目
func (c *RelationController) SetPermission(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateRelationID(ctx, id) {
		return
	}

	var req service.PermissionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	req.GrantedBy = auth.CurrentUser(ctx)

	entry, err := c.relationService.SetPermission(ctx.Request.Context(), id, &req)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Created(ctx, entry)
}

// RemovePermission 删除关系上的权限条目
func (c *RelationController) RemovePermission(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateRelationID(ctx, id) {
		return
	}
	permissionID := ctx.Param("pid")

	err := c.relationService.RemovePermission(ctx.Request.Context(), id, permissionID)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	NoContent(ctx)
}
