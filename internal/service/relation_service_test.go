package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/streamwork/hierarchy-gin/internal/hierarchy"
	"github.com/streamwork/hierarchy-gin/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRelationService_Create 测试创建关系
func TestRelationService_Create(t *testing.T) {
	f := newFixture(t, 5)

	rel, err := f.relations.CreateRelation(context.Background(), &service.CreateRelationRequest{
		OrganizationID: "org-1",
		FromID:         "manager",
		ToID:           "report",
		RelationType:   "MANAGES",
		CreatedBy:      "admin",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rel.ID)
	assert.Equal(t, "user", rel.Domain)
	assert.Equal(t, string(hierarchy.InheritanceDown), rel.InheritanceRule)
	assert.True(t, rel.IsActive)
	assert.Equal(t, "admin", rel.CreatedBy)
}

// TestRelationService_Create_Validation 测试创建校验
func TestRelationService_Create_Validation(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	// 自环
	_, err := f.relations.CreateRelation(ctx, &service.CreateRelationRequest{
		OrganizationID: "org-1", FromID: "u1", ToID: "u1", RelationType: "MANAGES",
	})
	var validationErr *hierarchy.ValidationError
	require.ErrorAs(t, err, &validationErr)

	// 未知关系类型
	_, err = f.relations.CreateRelation(ctx, &service.CreateRelationRequest{
		OrganizationID: "org-1", FromID: "u1", ToID: "u2", RelationType: "OWNS",
	})
	require.ErrorAs(t, err, &validationErr)

	// 未知继承规则
	_, err = f.relations.CreateRelation(ctx, &service.CreateRelationRequest{
		OrganizationID: "org-1", FromID: "u1", ToID: "u2",
		RelationType: "MANAGES", InheritanceRule: "SIDEWAYS",
	})
	require.ErrorAs(t, err, &validationErr)

	// 有效期窗口颠倒
	from := time.Now()
	to := from.Add(-time.Hour)
	_, err = f.relations.CreateRelation(ctx, &service.CreateRelationRequest{
		OrganizationID: "org-1", FromID: "u1", ToID: "u2",
		RelationType: "MANAGES", ValidFrom: &from, ValidTo: &to,
	})
	require.ErrorAs(t, err, &validationErr)
}

// TestRelationService_Create_Duplicate 测试同类型活跃关系查重
func TestRelationService_Create_Duplicate(t *testing.T) {
	f := newFixture(t, 5)
	f.relate(t, "org-1", "u1", "u2", "MANAGES")

	_, err := f.relations.CreateRelation(context.Background(), &service.CreateRelationRequest{
		OrganizationID: "org-1", FromID: "u1", ToID: "u2", RelationType: "MANAGES",
	})
	var duplicateErr *hierarchy.DuplicateError
	require.ErrorAs(t, err, &duplicateErr)

	// 不同类型可以并存
	_, err = f.relations.CreateRelation(context.Background(), &service.CreateRelationRequest{
		OrganizationID: "org-1", FromID: "u1", ToID: "u2", RelationType: "MENTORS",
	})
	assert.NoError(t, err)
}

// TestRelationService_Create_EntityPinnedToOtherOrg 测试跨组织实体被拒
func TestRelationService_Create_EntityPinnedToOtherOrg(t *testing.T) {
	f := newFixture(t, 5)
	f.relate(t, "org-2", "outsider", "someone", "MANAGES")

	_, err := f.relations.CreateRelation(context.Background(), &service.CreateRelationRequest{
		OrganizationID: "org-1", FromID: "outsider", ToID: "local", RelationType: "MANAGES",
	})
	var validationErr *hierarchy.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

// TestRelationService_Create_CycleRejected 测试环路拒绝且图不变
func TestRelationService_Create_CycleRejected(t *testing.T) {
	f := newFixture(t, 5)
	f.relate(t, "org-1", "ceo", "vp", "MANAGES")
	f.relate(t, "org-1", "vp", "manager", "MANAGES")
	f.relate(t, "org-1", "manager", "employee", "MANAGES")

	// 员工管理 CEO 会闭环
	_, err := f.relations.CreateRelation(context.Background(), &service.CreateRelationRequest{
		OrganizationID: "org-1", FromID: "employee", ToID: "ceo", RelationType: "MANAGES",
	})
	var cycleErr *hierarchy.CycleError
	require.ErrorAs(t, err, &cycleErr)

	// 被拒绝的写入不落库
	_, active, err := f.relationRepo.CountByOrganization("org-1", "user")
	require.NoError(t, err)
	assert.Equal(t, int64(3), active)
}

// TestRelationService_Create_TwoNodeCycle 测试两节点环
func TestRelationService_Create_TwoNodeCycle(t *testing.T) {
	f := newFixture(t, 5)
	f.relate(t, "org-1", "u1", "u2", "MANAGES")

	_, err := f.relations.CreateRelation(context.Background(), &service.CreateRelationRequest{
		OrganizationID: "org-1", FromID: "u2", ToID: "u1", RelationType: "LEADS",
	})
	var cycleErr *hierarchy.CycleError
	require.ErrorAs(t, err, &cycleErr)
}

// TestRelationService_Create_NoneRuleSkipsCycleCheck 测试 NONE 边不参与环路检查
func TestRelationService_Create_NoneRuleSkipsCycleCheck(t *testing.T) {
	f := newFixture(t, 5)
	f.relate(t, "org-1", "u1", "u2", "MANAGES")

	// 反向的结构性边不会闭合继承环
	_, err := f.relations.CreateRelation(context.Background(), &service.CreateRelationRequest{
		OrganizationID: "org-1", FromID: "u2", ToID: "u1",
		RelationType: "COLLABORATES", InheritanceRule: string(hierarchy.InheritanceNone),
	})
	assert.NoError(t, err)
}

// TestRelationService_Create_ConcurrentCycleAttempt 测试并发写被组织锁串行化
// 两条互为反向的边并发创建,恰好一条成功
func TestRelationService_Create_ConcurrentCycleAttempt(t *testing.T) {
	f := newFixture(t, 5)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	reqs := []*service.CreateRelationRequest{
		{OrganizationID: "org-1", FromID: "u1", ToID: "u2", RelationType: "MANAGES"},
		{OrganizationID: "org-1", FromID: "u2", ToID: "u1", RelationType: "MANAGES"},
	}
	for i := range reqs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.relations.CreateRelation(context.Background(), reqs[i])
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)

	_, active, err := f.relationRepo.CountByOrganization("org-1", "user")
	require.NoError(t, err)
	assert.Equal(t, int64(1), active)
}

// TestRelationService_Update 测试更新关系
func TestRelationService_Update(t *testing.T) {
	f := newFixture(t, 5)
	id := f.relate(t, "org-1", "u1", "u2", "MANAGES")

	desc := "interim reporting line"
	inactive := false
	rel, err := f.relations.UpdateRelation(context.Background(), id, &service.UpdateRelationRequest{
		Description: &desc,
		IsActive:    &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, desc, rel.Description)
	assert.False(t, rel.IsActive)

	rels, err := f.relationRepo.ActiveByOrganization("org-1", "user", time.Now())
	require.NoError(t, err)
	assert.Empty(t, rels)
}

// TestRelationService_Update_EnableInheritanceCycle 测试启用继承时重查环路
func TestRelationService_Update_EnableInheritanceCycle(t *testing.T) {
	f := newFixture(t, 5)
	f.relate(t, "org-1", "u1", "u2", "MANAGES")

	// 反向 NONE 边可以创建
	rel, err := f.relations.CreateRelation(context.Background(), &service.CreateRelationRequest{
		OrganizationID: "org-1", FromID: "u2", ToID: "u1",
		RelationType: "COLLABORATES", InheritanceRule: string(hierarchy.InheritanceNone),
	})
	require.NoError(t, err)

	// 把它改成 DOWN 会闭环
	down := string(hierarchy.InheritanceDown)
	_, err = f.relations.UpdateRelation(context.Background(), rel.ID, &service.UpdateRelationRequest{
		InheritanceRule: &down,
	})
	var cycleErr *hierarchy.CycleError
	require.ErrorAs(t, err, &cycleErr)
}

// TestRelationService_Update_ReactivationCycleRejected 测试重新启用会闭环的边被拒
// 停用的边不挡住反向边创建,重新启用时必须重查环路
func TestRelationService_Update_ReactivationCycleRejected(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	id := f.relate(t, "org-1", "a", "b", "MANAGES")
	require.NoError(t, f.relations.DeleteRelation(ctx, "org-1", id))

	// a->b 停用后反向边可以通过环路检查
	reverse := f.relate(t, "org-1", "b", "a", "MANAGES")

	active := true
	_, err := f.relations.UpdateRelation(ctx, id, &service.UpdateRelationRequest{IsActive: &active})
	var cycleErr *hierarchy.CycleError
	require.ErrorAs(t, err, &cycleErr)

	// 活跃边集保持无环
	rels, err := f.relationRepo.ActiveByOrganization("org-1", "user", time.Now())
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, reverse, rels[0].ID)

	// 反向边删掉之后同一条边可以重新启用
	require.NoError(t, f.relations.DeleteRelation(ctx, "org-1", reverse))
	rel, err := f.relations.UpdateRelation(ctx, id, &service.UpdateRelationRequest{IsActive: &active})
	require.NoError(t, err)
	assert.True(t, rel.IsActive)
}

// TestRelationService_Delete 测试软删除
func TestRelationService_Delete(t *testing.T) {
	f := newFixture(t, 5)
	id := f.relate(t, "org-1", "u1", "u2", "MANAGES")

	require.NoError(t, f.relations.DeleteRelation(context.Background(), "org-1", id))

	// 行保留,只是停用
	rel, err := f.relations.GetRelation(id)
	require.NoError(t, err)
	assert.False(t, rel.IsActive)

	rels, err := f.relationRepo.ActiveByOrganization("org-1", "user", time.Now())
	require.NoError(t, err)
	assert.Empty(t, rels)

	// 其他组织删除不可见关系返回 not found
	err = f.relations.DeleteRelation(context.Background(), "org-2", id)
	var notFoundErr *hierarchy.NotFoundError
	require.ErrorAs(t, err, &notFoundErr)
}

// TestRelationService_SetPermission_Upsert 测试同键权限条目覆盖
func TestRelationService_SetPermission_Upsert(t *testing.T) {
	f := newFixture(t, 5)
	id := f.relate(t, "org-1", "u1", "u2", "MANAGES")
	ctx := context.Background()

	entry, err := f.relations.SetPermission(ctx, id, &service.PermissionRequest{
		DataScope: "PERFORMANCE", Action: "VIEW", Granted: true,
	})
	require.NoError(t, err)

	// 同 (范围, 动作) 再写一次是覆盖不是新增
	updated, err := f.relations.SetPermission(ctx, id, &service.PermissionRequest{
		DataScope: "PERFORMANCE", Action: "VIEW", Granted: false,
	})
	require.NoError(t, err)
	assert.Equal(t, entry.ID, updated.ID)
	assert.False(t, updated.Granted)

	entries, err := f.relations.ListPermissions(id)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

// TestRelationService_SetPermission_Validation 测试权限条目校验
func TestRelationService_SetPermission_Validation(t *testing.T) {
	f := newFixture(t, 5)
	id := f.relate(t, "org-1", "u1", "u2", "MANAGES")

	_, err := f.relations.SetPermission(context.Background(), id, &service.PermissionRequest{
		DataScope: "FINANCIAL", Action: "VIEW", Granted: true,
	})
	var validationErr *hierarchy.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

// TestRelationService_RemovePermission 测试删除权限条目
func TestRelationService_RemovePermission(t *testing.T) {
	f := newFixture(t, 5)
	id := f.relate(t, "org-1", "u1", "u2", "MANAGES")
	other := f.relate(t, "org-1", "u1", "u3", "MANAGES")
	ctx := context.Background()

	entry, err := f.relations.SetPermission(ctx, id, &service.PermissionRequest{
		DataScope: "TASKS", Action: "VIEW", Granted: true,
	})
	require.NoError(t, err)

	// 挂在别的关系上的条目不可见
	err = f.relations.RemovePermission(ctx, other, entry.ID)
	var notFoundErr *hierarchy.NotFoundError
	require.ErrorAs(t, err, &notFoundErr)

	require.NoError(t, f.relations.RemovePermission(ctx, id, entry.ID))
	entries, err := f.relations.ListPermissions(id)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// TestRelationService_EdgesFromTo 测试实体出入边查询
func TestRelationService_EdgesFromTo(t *testing.T) {
	f := newFixture(t, 5)
	f.relate(t, "org-1", "u1", "u2", "MANAGES")
	f.relate(t, "org-1", "u1", "u3", "LEADS")
	f.relate(t, "org-1", "u4", "u1", "MENTORS")

	from, err := f.relations.EdgesFrom("org-1", "u1")
	require.NoError(t, err)
	assert.Len(t, from, 2)

	to, err := f.relations.EdgesTo("org-1", "u1")
	require.NoError(t, err)
	assert.Len(t, to, 1)
}
