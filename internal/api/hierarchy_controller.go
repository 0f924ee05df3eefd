package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/streamwork/hierarchy-gin/internal/auth"
	"github.com/streamwork/hierarchy-gin/internal/service"
	"github.com/streamwork/hierarchy-gin/internal/utils"
)

// HierarchyController 层级查询控制器
type HierarchyController struct {
	hierarchyService service.HierarchyService
}

// NewHierarchyController 创建层级查询控制器
func NewHierarchyController(hierarchyService service.HierarchyService) *HierarchyController {
	return &HierarchyController{
		hierarchyService: hierarchyService,
	}
}

// View 以实体为中心的层级视图
// direction 参数:up(上级)/down(下级)/both(默认);depth 限定遍历层数
func (c *HierarchyController) View(ctx *gin.Context) {
	entityID := ctx.Param("id")
	if err := utils.ValidateEntityID(entityID); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid entity ID", err.Error())
		return
	}

	direction := ctx.DefaultQuery("direction", service.DirectionBoth)
	depth, _ := strconv.Atoi(ctx.DefaultQuery("depth", "0"))

	view, err := c.hierarchyService.View(auth.CurrentOrganization(ctx), entityID, direction, depth)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, view)
}

// Stats 组织层级统计
func (c *HierarchyController) Stats(ctx *gin.Context) {
	stats, err := c.hierarchyService.Stats(auth.CurrentOrganization(ctx))
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, stats)
}
