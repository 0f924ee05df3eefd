package service

import (
	"time"

	"github.com/streamwork/hierarchy-gin/internal/hierarchy"
	"github.com/streamwork/hierarchy-gin/internal/model"
	"github.com/streamwork/hierarchy-gin/internal/repository"
)

// CycleValidator 环路校验器
// 在关系写入之前判断新边是否会让继承方向的图成环,
// 在组织的有效边快照上做广度优先检查
type CycleValidator struct {
	domain       hierarchy.Domain
	relationRepo repository.RelationRepository
	maxDepth     int
}

// NewCycleValidator 创建环路校验器
func NewCycleValidator(domain hierarchy.Domain, relationRepo repository.RelationRepository, maxDepth int) *CycleValidator {
	return &CycleValidator{
		domain:       domain,
		relationRepo: relationRepo,
		maxDepth:     maxDepth,
	}
}

// WouldCreateCycle 判断新边 fromID -> toID 是否会形成环
// 新边成环当且仅当 toID 已经能沿继承方向到达 fromID;
// excludeRelationID 非空时排除该关系,用于更新现有关系时自查
func (v *CycleValidator) WouldCreateCycle(orgID string, fromID string, toID string, excludeRelationID string) (bool, error) {
	rels, err := v.relationRepo.ActiveByOrganization(orgID, v.domain.Name, time.Now())
	if err != nil {
		return false, err
	}

	edges := make([]*hierarchy.Edge, 0, len(rels))
	for _, rel := range rels {
		if excludeRelationID != "" && rel.ID == excludeRelationID {
			continue
		}
		edges = append(edges, toEdge(rel))
	}

	graph := hierarchy.NewGraph(edges)
	return graph.ReachableDown(toID, fromID, v.maxDepth), nil
}

// toEdge 把关系模型转为遍历用的边视图
func toEdge(rel *model.RelationModel) *hierarchy.Edge {
	return &hierarchy.Edge{
		ID:           rel.ID,
		FromID:       rel.FromID,
		ToID:         rel.ToID,
		RelationType: rel.RelationType,
		Rule:         hierarchy.InheritanceRule(rel.InheritanceRule),
	}
}
