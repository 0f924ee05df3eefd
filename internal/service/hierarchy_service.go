package service

import (
	"time"

	"github.com/streamwork/hierarchy-gin/internal/hierarchy"
	"github.com/streamwork/hierarchy-gin/internal/metrics"
	"github.com/streamwork/hierarchy-gin/internal/repository"
)

// HierarchyNode 层级视图中的一个相邻实体
type HierarchyNode struct {
	EntityID        string `json:"entityId"`
	RelationID      string `json:"relationId"`
	RelationType    string `json:"relationType"`
	InheritanceRule string `json:"inheritanceRule"`
}

// HierarchyView 以某实体为中心的层级视图
// 环路在写入时被拒绝,HasCycles 恒为 false,保留字段供客户端断言
type HierarchyView struct {
	EntityID       string          `json:"entityId"`
	OrganizationID string          `json:"organizationId"`
	Domain         string          `json:"domain"`
	Ancestors      []HierarchyNode `json:"ancestors"`
	Descendants    []HierarchyNode `json:"descendants"`
	HasCycles      bool            `json:"hasCycles"`
	TotalRelations int             `json:"totalRelations"`
}

// HierarchyStats 组织层级统计
type HierarchyStats struct {
	OrganizationID  string           `json:"organizationId"`
	Domain          string           `json:"domain"`
	TotalRelations  int64            `json:"totalRelations"`
	ActiveRelations int64            `json:"activeRelations"`
	ByType          map[string]int64 `json:"byType"`
	EntityCount     int              `json:"entityCount"`
	MaxDepth        int              `json:"maxDepth"`
	AvgDirectSpan   float64          `json:"avgDirectSpan"` // 有下级的实体平均直接下级数
	CacheSize       int              `json:"cacheSize"`
}

// 层级视图方向
const (
	DirectionUp   = "up"
	DirectionDown = "down"
	DirectionBoth = "both"
)

// HierarchyService 层级查询服务接口
type HierarchyService interface {
	// View 返回以实体为中心的上下级视图
	// direction 为 up/down/both,空值按 both;depth 超界时按服务深度上限
	View(orgID string, entityID string, direction string, depth int) (*HierarchyView, error)
	// Stats 返回组织层级统计
	Stats(orgID string) (*HierarchyStats, error)
}

// hierarchyService 层级查询服务实现
// 查询在组织的有效边快照上完成,深度与访问解析共用同一上限
type hierarchyService struct {
	domain       hierarchy.Domain
	relationRepo repository.RelationRepository
	cache        *hierarchy.DecisionCache
	maxDepth     int
}

// NewHierarchyService 创建层级查询服务
func NewHierarchyService(domain hierarchy.Domain, relationRepo repository.RelationRepository, cache *hierarchy.DecisionCache, maxDepth int) HierarchyService {
	return &hierarchyService{
		domain:       domain,
		relationRepo: relationRepo,
		cache:        cache,
		maxDepth:     maxDepth,
	}
}

// snapshot 构建组织的有效边快照
func (s *hierarchyService) snapshot(orgID string) (*hierarchy.Graph, error) {
	rels, err := s.relationRepo.ActiveByOrganization(orgID, s.domain.Name, time.Now())
	if err != nil {
		return nil, err
	}
	edges := make([]*hierarchy.Edge, 0, len(rels))
	for _, rel := range rels {
		edges = append(edges, toEdge(rel))
	}
	return hierarchy.NewGraph(edges), nil
}

// View 返回以实体为中心的上下级视图
func (s *hierarchyService) View(orgID string, entityID string, direction string, depth int) (*HierarchyView, error) {
	if direction == "" {
		direction = DirectionBoth
	}
	if direction != DirectionUp && direction != DirectionDown && direction != DirectionBoth {
		return nil, hierarchy.NewValidationError("direction", "unknown direction "+direction)
	}
	if depth <= 0 || depth > s.maxDepth {
		depth = s.maxDepth
	}

	graph, err := s.snapshot(orgID)
	if err != nil {
		return nil, err
	}

	ancestors := []HierarchyNode{}
	descendants := []HierarchyNode{}
	if direction != DirectionDown {
		ancestors = toNodes(graph.Ancestors(entityID, depth))
	}
	if direction != DirectionUp {
		descendants = toNodes(graph.Descendants(entityID, depth))
	}

	return &HierarchyView{
		EntityID:       entityID,
		OrganizationID: orgID,
		Domain:         s.domain.Name,
		Ancestors:      ancestors,
		Descendants:    descendants,
		HasCycles:      false,
		TotalRelations: len(graph.From(entityID)) + len(graph.To(entityID)),
	}, nil
}

// toNodes 把遍历步转为层级视图节点
func toNodes(steps []hierarchy.Step) []HierarchyNode {
	nodes := make([]HierarchyNode, 0, len(steps))
	for _, step := range steps {
		nodes = append(nodes, HierarchyNode{
			EntityID:        step.NextID,
			RelationID:      step.Edge.ID,
			RelationType:    step.Edge.RelationType,
			InheritanceRule: string(step.Edge.Rule),
		})
	}
	return nodes
}

// Stats 返回组织层级统计并刷新分布指标
func (s *hierarchyService) Stats(orgID string) (*HierarchyStats, error) {
	total, active, err := s.relationRepo.CountByOrganization(orgID, s.domain.Name)
	if err != nil {
		return nil, err
	}

	typeCounts, err := s.relationRepo.CountByType(orgID, s.domain.Name)
	if err != nil {
		return nil, err
	}
	byType := make(map[string]int64, len(typeCounts))
	for _, tc := range typeCounts {
		byType[tc.RelationType] = tc.Count
		metrics.UpdateActiveRelations(s.domain.Name, tc.RelationType, float64(tc.Count))
	}

	graph, err := s.snapshot(orgID)
	if err != nil {
		return nil, err
	}

	return &HierarchyStats{
		OrganizationID:  orgID,
		Domain:          s.domain.Name,
		TotalRelations:  total,
		ActiveRelations: active,
		ByType:          byType,
		EntityCount:     graph.NodeCount(),
		MaxDepth:        graph.MaxDepth(),
		AvgDirectSpan:   s.avgDirectSpan(graph),
		CacheSize:       s.cache.Len(),
	}, nil
}

// avgDirectSpan 有直接下级的实体的平均直接下级数
func (s *hierarchyService) avgDirectSpan(graph *hierarchy.Graph) float64 {
	parents := 0
	children := 0
	for _, id := range graph.Nodes() {
		if n := len(graph.From(id)); n > 0 {
			parents++
			children += n
		}
	}
	if parents == 0 {
		return 0
	}
	return float64(children) / float64(parents)
}
