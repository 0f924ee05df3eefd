package container

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streamwork/hierarchy-gin/internal/auth"
	"github.com/streamwork/hierarchy-gin/internal/config"
	"github.com/streamwork/hierarchy-gin/internal/database"
	"github.com/streamwork/hierarchy-gin/internal/hierarchy"
	"github.com/streamwork/hierarchy-gin/internal/metrics"
	"github.com/streamwork/hierarchy-gin/internal/repository"
	"github.com/streamwork/hierarchy-gin/internal/service"
	"github.com/streamwork/hierarchy-gin/internal/websocket"
	"gorm.io/gorm"
)

// DomainSet 单个领域的服务集合
// 用户层级和组织单元层级各持有一套,共享数据库连接和 WebSocket Hub
type DomainSet struct {
	Domain    hierarchy.Domain
	Cache     *hierarchy.DecisionCache
	Relations service.RelationService
	Access    service.AccessService
	Hierarchy service.HierarchyService
	Audit     service.AuditLogService
}

// Container 依赖注入容器
// 管理所有应用依赖,包括数据库、缓存、服务和推送通道
type Container struct {
	cfg       *config.Config
	db        *gorm.DB
	logger    *logrus.Logger
	hub       *websocket.Hub
	validator *auth.TokenValidator
	collector *metrics.Collector
	users     *DomainSet
	streams   *DomainSet
}

// NewContainer 创建依赖注入容器
// 根据配置初始化所有依赖组件
func NewContainer(cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	// 1. 初始化数据库（带重试机制）
	// 默认重试 3 次，初始间隔 1 秒，指数退避
	db, err := database.ConnectWithRetry(cfg.Database, 3, time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// 执行数据库迁移
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	// 2. 初始化 WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// 3. 初始化 Token 验证器
	validator := auth.NewTokenValidator(cfg.Auth.Issuer, cfg.Auth.Secret)

	// 4. 初始化数据库指标收集器
	collector := metrics.NewCollector(db, 30*time.Second)
	collector.Start()

	// 5. 为两个领域各组装一套服务
	ctr := &Container{
		cfg:       cfg,
		db:        db,
		logger:    logger,
		hub:       hub,
		validator: validator,
		collector: collector,
	}
	ctr.users = ctr.buildDomainSet(hierarchy.UserDomain())
	ctr.streams = ctr.buildDomainSet(hierarchy.StreamDomain())

	return ctr, nil
}

// buildDomainSet 组装单个领域的仓储和服务
func (c *Container) buildDomainSet(domain hierarchy.Domain) *DomainSet {
	engine := c.cfg.Engine

	relationRepo := repository.NewRelationRepository(c.db)
	permissionRepo := repository.NewPermissionRepository(c.db)
	decisionRepo := repository.NewAccessDecisionRepository(c.db)

	cache := hierarchy.NewDecisionCache(time.Duration(engine.CacheTTL) * time.Second)
	directory := service.NewGraphDirectory(relationRepo)
	validator := service.NewCycleValidator(domain, relationRepo, engine.MaxDepth)

	auditSvc := service.NewAuditLogService(domain, decisionRepo)
	relationSvc := service.NewRelationService(
		domain, relationRepo, permissionRepo, validator, directory,
		cache, c.hub, engine.InvalidationThreshold, c.logger,
	)
	accessSvc := service.NewAccessService(
		domain, relationRepo, permissionRepo, directory,
		cache, auditSvc, engine.MaxDepth, c.logger,
	)
	hierarchySvc := service.NewHierarchyService(domain, relationRepo, cache, engine.MaxDepth)

	return &DomainSet{
		Domain:    domain,
		Cache:     cache,
		Relations: relationSvc,
		Access:    accessSvc,
		Hierarchy: hierarchySvc,
		Audit:     auditSvc,
	}
}

// DB 获取数据库连接
func (c *Container) DB() *gorm.DB {
	return c.db
}

// Hub 获取 WebSocket Hub
func (c *Container) Hub() *websocket.Hub {
	return c.hub
}

// TokenValidator 获取 Token 验证器
func (c *Container) TokenValidator() *auth.TokenValidator {
	return c.validator
}

// Users 获取用户层级领域的服务集合
func (c *Container) Users() *DomainSet {
	return c.users
}

// Streams 获取组织单元层级领域的服务集合
func (c *Container) Streams() *DomainSet {
	return c.streams
}

// Logger 获取日志记录器
func (c *Container) Logger() *logrus.Logger {
	return c.logger
}

// Close 关闭容器,清理资源
func (c *Container) Close() error {
	if c.collector != nil {
		c.collector.Stop()
	}

	if c.db != nil {
		sqlDB, err := c.db.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	return nil
}
