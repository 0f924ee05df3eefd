package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/streamwork/hierarchy-gin/internal/auth"
	"github.com/streamwork/hierarchy-gin/internal/websocket"
	"gorm.io/gorm"
)

// DomainHandlers 单个领域的控制器集合
// 用户层级和组织单元层级各一套,挂到各自的路由组
type DomainHandlers struct {
	Relations *RelationController
	Access    *AccessController
	Hierarchy *HierarchyController
	Audit     *AuditController
}

// RouterConfig 路由配置
type RouterConfig struct {
	DB             *gorm.DB
	Hub            *websocket.Hub
	Validator      *auth.TokenValidator
	TrustHeaders   bool
	AllowedOrigins []string
	AccessRPS      float64
	AccessBurst    int
	Users          DomainHandlers
	Streams        DomainHandlers
}

// SetupRoutes 配置路由
func SetupRoutes(cfg *RouterConfig) *gin.Engine {
	router := gin.Default()

	// 中间件
	router.Use(RequestIDMiddleware())
	router.Use(RequestLogMiddleware())
	router.Use(ErrorHandlerMiddleware())
	router.Use(SecurityHeadersMiddleware())
	if len(cfg.AllowedOrigins) > 0 {
		router.Use(CORSMiddleware(cfg.AllowedOrigins))
	}

	// 健康检查
	healthController := NewHealthController(cfg.DB)
	router.GET("/health", healthController.Check)

	// Prometheus 指标端点
	router.GET("/metrics", MetricsHandler)

	// WebSocket 路由,推送层级变更事件
	if cfg.Hub != nil && cfg.Validator != nil {
		router.GET("/ws/hierarchy", websocket.WebSocketHandler(cfg.Hub, cfg.Validator))
	}

	// API v1 路由组
	v1 := router.Group("/api/v1")
	v1.Use(auth.IdentityMiddleware(cfg.Validator, cfg.TrustHeaders))

	mountDomain(v1.Group("/users"), &cfg.Users, cfg.AccessRPS, cfg.AccessBurst)
	mountDomain(v1.Group("/streams"), &cfg.Streams, cfg.AccessRPS, cfg.AccessBurst)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    404,
			Message: "route not found",
		})
	})

	return router
}

// mountDomain 挂载单个领域的路由
func mountDomain(group *gin.RouterGroup, handlers *DomainHandlers, accessRPS float64, accessBurst int) {
	// 关系管理路由
	relations := group.Group("/relations")
	{
		relations.POST("", handlers.Relations.Create)
		relations.GET("/:id", handlers.Relations.Get)
		relations.PATCH("/:id", handlers.Relations.Update)
		relations.DELETE("/:id", handlers.Relations.Delete)
		relations.GET("/:id/permissions", handlers.Relations.ListPermissions)
		relations.POST("/:id/permissions", handlers.Relations.SetPermission)
		relations.DELETE("/:id/permissions/:pid", handlers.Relations.RemovePermission)
	}

	// 实体视角路由
	entities := group.Group("/entities")
	{
		entities.GET("/:id/relations", handlers.Relations.ListByEntity)
		entities.GET("/:id/hierarchy", handlers.Hierarchy.View)
	}

	// 访问判定路由,检查端点单独限流
	check := group.Group("/access-check")
	if accessRPS > 0 {
		check.Use(RateLimitMiddleware(accessRPS, accessBurst))
	}
	check.POST("", handlers.Access.Check)
	group.POST("/access/clear-cache", handlers.Access.ClearCache)

	// 统计与审计路由
	group.GET("/stats", handlers.Hierarchy.Stats)
	group.GET("/audit-log", handlers.Audit.Query)
}
