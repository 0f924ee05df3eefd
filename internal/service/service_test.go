package service_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streamwork/hierarchy-gin/internal/database"
	"github.com/streamwork/hierarchy-gin/internal/hierarchy"
	"github.com/streamwork/hierarchy-gin/internal/repository"
	"github.com/streamwork/hierarchy-gin/internal/service"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fixture 用户领域的服务测试夹具
type fixture struct {
	db           *gorm.DB
	domain       hierarchy.Domain
	cache        *hierarchy.DecisionCache
	relationRepo repository.RelationRepository
	decisionRepo repository.AccessDecisionRepository
	relations    service.RelationService
	access       service.AccessService
	hierarchy    service.HierarchyService
	audit        service.AuditLogService
}

// newFixture 组装用户领域的全套服务,maxDepth 可调以测试深度边界
func newFixture(t *testing.T, maxDepth int) *fixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	domain := hierarchy.UserDomain()
	relationRepo := repository.NewRelationRepository(db)
	permissionRepo := repository.NewPermissionRepository(db)
	decisionRepo := repository.NewAccessDecisionRepository(db)

	cache := hierarchy.NewDecisionCache(time.Minute)
	directory := service.NewGraphDirectory(relationRepo)
	validator := service.NewCycleValidator(domain, relationRepo, maxDepth)
	auditSvc := service.NewAuditLogService(domain, decisionRepo)

	return &fixture{
		db:           db,
		domain:       domain,
		cache:        cache,
		relationRepo: relationRepo,
		decisionRepo: decisionRepo,
		relations: service.NewRelationService(
			domain, relationRepo, permissionRepo, validator, directory,
			cache, nil, 50, logger,
		),
		access: service.NewAccessService(
			domain, relationRepo, permissionRepo, directory,
			cache, auditSvc, maxDepth, logger,
		),
		hierarchy: service.NewHierarchyService(domain, relationRepo, cache, maxDepth),
		audit:     auditSvc,
	}
}

// relate 创建一条 DOWN 继承的关系
func (f *fixture) relate(t *testing.T, org, from, to, relType string) string {
	rel, err := f.relations.CreateRelation(context.Background(), &service.CreateRelationRequest{
		OrganizationID: org,
		FromID:         from,
		ToID:           to,
		RelationType:   relType,
	})
	require.NoError(t, err)
	return rel.ID
}

// check 执行一次访问检查
func (f *fixture) check(t *testing.T, org, requester, target, scope, action string) *hierarchy.Decision {
	decision, err := f.access.Check(context.Background(), &service.CheckRequest{
		OrganizationID: org,
		RequesterID:    requester,
		TargetID:       target,
		DataScope:      scope,
		Action:         action,
	})
	require.NoError(t, err)
	return decision
}
