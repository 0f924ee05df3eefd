package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/streamwork/hierarchy-gin/internal/hierarchy"
	"github.com/streamwork/hierarchy-gin/internal/repository"
	"github.com/streamwork/hierarchy-gin/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAccessService_Self 测试自访问短路
func TestAccessService_Self(t *testing.T) {
	f := newFixture(t, 5)

	decision := f.check(t, "org-1", "u1", "u1", "SETTINGS", "EDIT")
	assert.True(t, decision.Granted)
	assert.Equal(t, hierarchy.AccessLevelFullControl, decision.AccessLevel)
	assert.Equal(t, hierarchy.ReasonSelf, decision.Reason)
	assert.True(t, decision.DirectAccess)
	assert.Equal(t, []string{"u1"}, decision.InheritanceChain)
	assert.Equal(t, []string{hierarchy.ScopeAll}, decision.GrantedScopes)
}

// TestAccessService_ValidatesScopeAndAction 测试范围和动作校验
func TestAccessService_ValidatesScopeAndAction(t *testing.T) {
	f := newFixture(t, 5)

	_, err := f.access.Check(context.Background(), &service.CheckRequest{
		OrganizationID: "org-1", RequesterID: "u1", TargetID: "u2",
		DataScope: "FINANCIAL", Action: "VIEW",
	})
	var validationErr *hierarchy.ValidationError
	require.ErrorAs(t, err, &validationErr)

	_, err = f.access.Check(context.Background(), &service.CheckRequest{
		OrganizationID: "org-1", RequesterID: "u1", TargetID: "u2",
		DataScope: "TASKS", Action: "EXPLODE",
	})
	require.ErrorAs(t, err, &validationErr)
}

// TestAccessService_DirectRelation 测试直接关系授权
func TestAccessService_DirectRelation(t *testing.T) {
	f := newFixture(t, 5)
	relID := f.relate(t, "org-1", "manager", "report", "MANAGES")

	decision := f.check(t, "org-1", "manager", "report", "PERFORMANCE", "VIEW")
	assert.True(t, decision.Granted)
	assert.True(t, decision.DirectAccess)
	assert.Equal(t, hierarchy.AccessLevelManager, decision.AccessLevel)
	assert.Equal(t, relID, decision.Via)
	assert.Equal(t, []string{"manager", "report"}, decision.InheritanceChain)
	assert.Contains(t, decision.GrantedScopes, "PERFORMANCE")
	assert.Contains(t, decision.DeniedScopes, "SETTINGS")
}

// TestAccessService_ReverseDirection 测试反方向基线
// 下属能看上级档案,但看不到上级的任务
func TestAccessService_ReverseDirection(t *testing.T) {
	f := newFixture(t, 5)
	f.relate(t, "org-1", "manager", "report", "MANAGES")

	decision := f.check(t, "org-1", "report", "manager", "PROFILE", "VIEW")
	assert.True(t, decision.Granted)

	decision = f.check(t, "org-1", "report", "manager", "TASKS", "VIEW")
	assert.False(t, decision.Granted)
	assert.Equal(t, hierarchy.ReasonNoPath, decision.Reason)
}

// TestAccessService_ExplicitDenyOverridesBaseline 测试显式拒绝压倒基线
func TestAccessService_ExplicitDenyOverridesBaseline(t *testing.T) {
	f := newFixture(t, 5)
	relID := f.relate(t, "org-1", "manager", "report", "MANAGES")

	_, err := f.relations.SetPermission(context.Background(), relID, &service.PermissionRequest{
		DataScope: "PERFORMANCE", Action: "VIEW", Granted: false,
	})
	require.NoError(t, err)

	decision := f.check(t, "org-1", "manager", "report", "PERFORMANCE", "VIEW")
	assert.False(t, decision.Granted)
	assert.Equal(t, hierarchy.ReasonExplicitDeny, decision.Reason)
	assert.Equal(t, relID, decision.Via)

	// 其他范围不受影响
	decision = f.check(t, "org-1", "manager", "report", "TASKS", "VIEW")
	assert.True(t, decision.Granted)
}

// TestAccessService_ExplicitGrantExtendsBaseline 测试显式授权扩展基线
func TestAccessService_ExplicitGrantExtendsBaseline(t *testing.T) {
	f := newFixture(t, 5)
	relID := f.relate(t, "org-1", "lead", "member", "LEADS")

	// LEADS 基线不含 SCHEDULE
	decision := f.check(t, "org-1", "lead", "member", "SCHEDULE", "VIEW")
	assert.False(t, decision.Granted)

	_, err := f.relations.SetPermission(context.Background(), relID, &service.PermissionRequest{
		DataScope: "SCHEDULE", Action: "VIEW", Granted: true,
	})
	require.NoError(t, err)

	decision = f.check(t, "org-1", "lead", "member", "SCHEDULE", "VIEW")
	assert.True(t, decision.Granted)
	// 条目授出的范围要反映在汇总里,不能同时出现在拒绝列表
	assert.Contains(t, decision.GrantedScopes, "SCHEDULE")
	assert.NotContains(t, decision.DeniedScopes, "SCHEDULE")
	assert.Contains(t, decision.GrantedScopes, "TASKS")
}

// TestAccessService_InheritanceChain 测试沿 DOWN 链继承
func TestAccessService_InheritanceChain(t *testing.T) {
	f := newFixture(t, 5)
	f.relate(t, "org-1", "ceo", "vp", "MANAGES")
	f.relate(t, "org-1", "vp", "manager", "MANAGES")
	finalID := f.relate(t, "org-1", "manager", "employee", "MANAGES")

	decision := f.check(t, "org-1", "ceo", "employee", "TASKS", "VIEW")
	assert.True(t, decision.Granted)
	assert.False(t, decision.DirectAccess)
	assert.Equal(t, []string{"ceo", "vp", "manager", "employee"}, decision.InheritanceChain)
	// 裁决以最后一条边为准
	assert.Equal(t, finalID, decision.Via)
	assert.Equal(t, hierarchy.AccessLevelManager, decision.AccessLevel)
}

// TestAccessService_DenyOnFinalEdgeBlocksPath 测试路径末端的显式拒绝
func TestAccessService_DenyOnFinalEdgeBlocksPath(t *testing.T) {
	f := newFixture(t, 5)
	f.relate(t, "org-1", "ceo", "vp", "MANAGES")
	finalID := f.relate(t, "org-1", "vp", "employee", "MANAGES")

	_, err := f.relations.SetPermission(context.Background(), finalID, &service.PermissionRequest{
		DataScope: "PERFORMANCE", Action: "VIEW", Granted: false,
	})
	require.NoError(t, err)

	decision := f.check(t, "org-1", "ceo", "employee", "PERFORMANCE", "VIEW")
	assert.False(t, decision.Granted)
	assert.Equal(t, hierarchy.ReasonExplicitDeny, decision.Reason)
}

// TestAccessService_MaxDepthExceeded 测试深度边界的判定原因
func TestAccessService_MaxDepthExceeded(t *testing.T) {
	f := newFixture(t, 2)
	f.relate(t, "org-1", "a", "b", "MANAGES")
	f.relate(t, "org-1", "b", "c", "MANAGES")
	f.relate(t, "org-1", "c", "d", "MANAGES")

	// 2 跳内可达
	decision := f.check(t, "org-1", "a", "c", "TASKS", "VIEW")
	assert.True(t, decision.Granted)

	// 3 跳超出边界,报告截断而不是无路径
	decision = f.check(t, "org-1", "a", "d", "TASKS", "VIEW")
	assert.False(t, decision.Granted)
	assert.Equal(t, hierarchy.ReasonMaxDepthExceeded, decision.Reason)
}

// TestAccessService_NoPath 测试无路径
func TestAccessService_NoPath(t *testing.T) {
	f := newFixture(t, 5)
	f.relate(t, "org-1", "u1", "u2", "MANAGES")
	f.relate(t, "org-1", "u3", "u4", "MANAGES")

	decision := f.check(t, "org-1", "u1", "u4", "TASKS", "VIEW")
	assert.False(t, decision.Granted)
	assert.Equal(t, hierarchy.ReasonNoPath, decision.Reason)
	assert.Equal(t, hierarchy.AccessLevelNoAccess, decision.AccessLevel)
}

// TestAccessService_UnknownEntity 测试绑定在其他组织的实体退化为拒绝判定
func TestAccessService_UnknownEntity(t *testing.T) {
	f := newFixture(t, 5)
	f.relate(t, "org-2", "outsider", "someone", "MANAGES")
	f.relate(t, "org-1", "u1", "u2", "MANAGES")

	decision := f.check(t, "org-1", "u1", "outsider", "TASKS", "VIEW")
	assert.False(t, decision.Granted)
	assert.Equal(t, hierarchy.ReasonUnknownEntity, decision.Reason)
}

// TestAccessService_CacheHitSkipsAudit 测试缓存命中不重复写审计
func TestAccessService_CacheHitSkipsAudit(t *testing.T) {
	f := newFixture(t, 5)
	f.relate(t, "org-1", "manager", "report", "MANAGES")

	first := f.check(t, "org-1", "manager", "report", "TASKS", "VIEW")
	second := f.check(t, "org-1", "manager", "report", "TASKS", "VIEW")
	assert.Equal(t, first.ID, second.ID)

	_, total, err := f.decisionRepo.Query(repository.DecisionFilter{OrganizationID: "org-1"}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

// TestAccessService_DeleteInvalidatesCache 测试删除关系后再查为拒绝
func TestAccessService_DeleteInvalidatesCache(t *testing.T) {
	f := newFixture(t, 5)
	relID := f.relate(t, "org-1", "manager", "report", "MANAGES")

	decision := f.check(t, "org-1", "manager", "report", "TASKS", "VIEW")
	require.True(t, decision.Granted)

	require.NoError(t, f.relations.DeleteRelation(context.Background(), "org-1", relID))

	decision = f.check(t, "org-1", "manager", "report", "TASKS", "VIEW")
	assert.False(t, decision.Granted)
}

// TestAccessService_ClearCache 测试管理端缓存清除
func TestAccessService_ClearCache(t *testing.T) {
	f := newFixture(t, 5)
	f.relate(t, "org-1", "manager", "report", "MANAGES")
	f.relate(t, "org-1", "lead", "member", "LEADS")
	f.check(t, "org-1", "manager", "report", "TASKS", "VIEW")
	f.check(t, "org-1", "lead", "member", "TASKS", "VIEW")

	// 实体级清除只影响涉及该实体的条目
	cleared := f.access.ClearCache("org-1", "manager")
	assert.Equal(t, 2, cleared)
	assert.Equal(t, 1, f.cache.Len())

	cleared = f.access.ClearCache("org-1", "")
	assert.Equal(t, 1, cleared)
	assert.Equal(t, 0, f.cache.Len())
}

// TestAccessService_ConcurrentChecks 测试并发检查一致
func TestAccessService_ConcurrentChecks(t *testing.T) {
	f := newFixture(t, 5)
	f.relate(t, "org-1", "manager", "report", "MANAGES")

	var wg sync.WaitGroup
	results := make([]*hierarchy.Decision, 10)
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.access.Check(context.Background(), &service.CheckRequest{
				OrganizationID: "org-1", RequesterID: "manager", TargetID: "report",
				DataScope: "TASKS", Action: "VIEW",
			})
		}(i)
	}
	wg.Wait()

	for i := 0; i < 10; i++ {
		require.NoError(t, errs[i])
		assert.True(t, results[i].Granted)
	}
}

// TestAccessService_BidirectionalCollaboration 测试双向继承的对称访问
func TestAccessService_BidirectionalCollaboration(t *testing.T) {
	f := newFixture(t, 5)

	_, err := f.relations.CreateRelation(context.Background(), &service.CreateRelationRequest{
		OrganizationID: "org-1", FromID: "u1", ToID: "u2",
		RelationType: "COLLABORATES", InheritanceRule: string(hierarchy.InheritanceBidirectional),
	})
	require.NoError(t, err)

	assert.True(t, f.check(t, "org-1", "u1", "u2", "PROJECTS", "EDIT").Granted)
	assert.True(t, f.check(t, "org-1", "u2", "u1", "PROJECTS", "EDIT").Granted)
	// 基线动作列表外的动作被拒
	assert.False(t, f.check(t, "org-1", "u1", "u2", "PROJECTS", "DELETE").Granted)
}
