package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/streamwork/hierarchy-gin/internal/api"
	"github.com/streamwork/hierarchy-gin/internal/auth"
	"github.com/streamwork/hierarchy-gin/internal/database"
	"github.com/streamwork/hierarchy-gin/internal/hierarchy"
	"github.com/streamwork/hierarchy-gin/internal/repository"
	"github.com/streamwork/hierarchy-gin/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestRouter 组装全功能测试路由,身份通过可信头透传
func newTestRouter(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	return api.SetupRoutes(&api.RouterConfig{
		DB:           db,
		Validator:    auth.NewTokenValidator("hierarchy-gin", "test-secret"),
		TrustHeaders: true,
		Users:        buildDomain(db, hierarchy.UserDomain()),
		Streams:      buildDomain(db, hierarchy.StreamDomain()),
	})
}

// buildDomain 组装单个领域的控制器
func buildDomain(db *gorm.DB, domain hierarchy.Domain) api.DomainHandlers {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	relationRepo := repository.NewRelationRepository(db)
	permissionRepo := repository.NewPermissionRepository(db)
	decisionRepo := repository.NewAccessDecisionRepository(db)

	cache := hierarchy.NewDecisionCache(time.Minute)
	directory := service.NewGraphDirectory(relationRepo)
	validator := service.NewCycleValidator(domain, relationRepo, 5)
	auditSvc := service.NewAuditLogService(domain, decisionRepo)
	relationSvc := service.NewRelationService(
		domain, relationRepo, permissionRepo, validator, directory, cache, nil, 50, logger,
	)
	accessSvc := service.NewAccessService(
		domain, relationRepo, permissionRepo, directory, cache, auditSvc, 5, logger,
	)
	hierarchySvc := service.NewHierarchyService(domain, relationRepo, cache, 5)

	return api.DomainHandlers{
		Relations: api.NewRelationController(relationSvc),
		Access:    api.NewAccessController(accessSvc),
		Hierarchy: api.NewHierarchyController(hierarchySvc),
		Audit:     api.NewAuditController(auditSvc),
	}
}

// doJSON 发送带身份头的 JSON 请求
func doJSON(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "admin")
	req.Header.Set("X-Organization-ID", "org-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// TestRoutes_Health 测试健康检查
func TestRoutes_Health(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

// TestRoutes_RequiresIdentity 测试缺少身份返回 401
func TestRoutes_RequiresIdentity(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/stats", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// TestRoutes_CreateAndCheck 测试建关系后访问判定
func TestRoutes_CreateAndCheck(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(r, http.MethodPost, "/api/v1/users/relations", gin.H{
		"from_id":       "manager",
		"to_id":         "report",
		"relation_type": "MANAGES",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Data struct {
			ID             string `json:"id"`
			OrganizationID string `json:"organizationId"`
			CreatedBy      string `json:"createdBy"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.Data.ID)
	assert.Equal(t, "org-1", created.Data.OrganizationID)
	assert.Equal(t, "admin", created.Data.CreatedBy)

	w = doJSON(r, http.MethodPost, "/api/v1/users/access-check", gin.H{
		"requester_id": "manager",
		"target_id":    "report",
		"data_scope":   "TASKS",
		"action":       "VIEW",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var check struct {
		Data struct {
			Granted bool   `json:"granted"`
			Reason  string `json:"reason"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &check))
	assert.True(t, check.Data.Granted)
	assert.Equal(t, "granted via MANAGES", check.Data.Reason)
}

// TestRoutes_DomainsAreIsolated 测试两个领域的关系类型互不相通
func TestRoutes_DomainsAreIsolated(t *testing.T) {
	r := newTestRouter(t)

	// OWNS 只存在于 stream 领域
	w := doJSON(r, http.MethodPost, "/api/v1/users/relations", gin.H{
		"from_id":       "a",
		"to_id":         "b",
		"relation_type": "OWNS",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doJSON(r, http.MethodPost, "/api/v1/streams/relations", gin.H{
		"from_id":       "platform",
		"to_id":         "team-a",
		"relation_type": "OWNS",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
}

// TestRoutes_DuplicateAndCycleConflicts 测试重复关系与环路返回 409
func TestRoutes_DuplicateAndCycleConflicts(t *testing.T) {
	r := newTestRouter(t)

	body := gin.H{"from_id": "a", "to_id": "b", "relation_type": "MANAGES"}
	require.Equal(t, http.StatusCreated, doJSON(r, http.MethodPost, "/api/v1/users/relations", body).Code)
	assert.Equal(t, http.StatusConflict, doJSON(r, http.MethodPost, "/api/v1/users/relations", body).Code)

	w := doJSON(r, http.MethodPost, "/api/v1/users/relations", gin.H{
		"from_id": "b", "to_id": "a", "relation_type": "LEADS",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

// TestRoutes_InvalidBody 测试缺字段请求返回 400
func TestRoutes_InvalidBody(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(r, http.MethodPost, "/api/v1/users/relations", gin.H{"from_id": "a"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestRoutes_RelationNotFound 测试查不存在的关系返回 404
func TestRoutes_RelationNotFound(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(r, http.MethodGet, "/api/v1/users/relations/missing-id", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestRoutes_HierarchyAndStats 测试层级视图与统计端点
func TestRoutes_HierarchyAndStats(t *testing.T) {
	r := newTestRouter(t)

	require.Equal(t, http.StatusCreated, doJSON(r, http.MethodPost, "/api/v1/users/relations", gin.H{
		"from_id": "ceo", "to_id": "vp", "relation_type": "MANAGES",
	}).Code)

	w := doJSON(r, http.MethodGet, "/api/v1/users/entities/vp/hierarchy", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"entityId":"vp"`)

	w = doJSON(r, http.MethodGet, "/api/v1/users/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"activeRelations":1`)
}

// TestRoutes_ClearCache 测试管理端缓存重置
func TestRoutes_ClearCache(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(r, http.MethodPost, "/api/v1/users/access/clear-cache", gin.H{"clearAll": true})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(r, http.MethodPost, "/api/v1/users/access/clear-cache", gin.H{"targetEntityId": "u1"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	// 空请求体按组织整体清除
	w = doJSON(r, http.MethodPost, "/api/v1/users/access/clear-cache", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

// TestRoutes_AuditLog 测试审计查询端点
func TestRoutes_AuditLog(t *testing.T) {
	r := newTestRouter(t)

	doJSON(r, http.MethodPost, "/api/v1/users/access-check", gin.H{
		"requester_id": "u1", "target_id": "u2",
		"data_scope": "TASKS", "action": "VIEW",
	})

	w := doJSON(r, http.MethodGet, "/api/v1/users/audit-log?granted=false", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)
}

// TestRoutes_NoRoute 测试未知路由返回 404 JSON
func TestRoutes_NoRoute(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(r, http.MethodGet, "/api/v1/nothing-here", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "route not found")
}
