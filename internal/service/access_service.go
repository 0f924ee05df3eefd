package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/streamwork/hierarchy-gin/internal/hierarchy"
	"github.com/streamwork/hierarchy-gin/internal/metrics"
	"github.com/streamwork/hierarchy-gin/internal/model"
	"github.com/streamwork/hierarchy-gin/internal/repository"
)

// AccessService 访问判定服务接口
type AccessService interface {
	// Check 解析一次访问请求,返回判定结果
	Check(ctx context.Context, req *CheckRequest) (*hierarchy.Decision, error)
	// ClearCache 清除判定缓存,返回清除前的条目数
	// targetEntityID 非空时只清除涉及该实体的条目,否则按组织整体清除
	ClearCache(orgID string, targetEntityID string) int
}

// CheckRequest 访问检查请求
type CheckRequest struct {
	OrganizationID string `json:"-"`                               // 组织 ID,取自认证上下文
	RequesterID    string `json:"requester_id" binding:"required"` // 请求者实体 ID
	TargetID       string `json:"target_id" binding:"required"`    // 目标实体 ID
	DataScope      string `json:"data_scope" binding:"required"`   // 数据范围
	Action         string `json:"action" binding:"required"`       // 动作
}

// accessService 访问判定服务实现
// 解析顺序:自访问短路、缓存、未知实体、直接关系、继承路径;
// 显式拒绝压倒授权,授权取并集
type accessService struct {
	domain         hierarchy.Domain
	relationRepo   repository.RelationRepository
	permissionRepo repository.PermissionRepository
	directory      EntityDirectory
	cache          *hierarchy.DecisionCache
	auditLog       AuditLogService
	maxDepth       int
	logger         *logrus.Logger
}

// NewAccessService 创建访问判定服务
func NewAccessService(
	domain hierarchy.Domain,
	relationRepo repository.RelationRepository,
	permissionRepo repository.PermissionRepository,
	directory EntityDirectory,
	cache *hierarchy.DecisionCache,
	auditLog AuditLogService,
	maxDepth int,
	logger *logrus.Logger,
) AccessService {
	return &accessService{
		domain:         domain,
		relationRepo:   relationRepo,
		permissionRepo: permissionRepo,
		directory:      directory,
		cache:          cache,
		auditLog:       auditLog,
		maxDepth:       maxDepth,
		logger:         logger,
	}
}

// edgeRuling 单条边对当前 (数据范围, 动作) 的裁决
type edgeRuling struct {
	edge    *hierarchy.Edge
	forward bool
	profile hierarchy.RelationProfile
	// granted 该边是否授权;denied 该边是否显式拒绝
	granted bool
	denied  bool
	// overridden 授权来自显式条目而不是基线
	overridden bool
}

// Check 解析一次访问请求
func (s *accessService) Check(ctx context.Context, req *CheckRequest) (*hierarchy.Decision, error) {
	if err := s.validateCheck(req); err != nil {
		return nil, err
	}

	started := time.Now()

	// 自访问不进缓存也不依赖图
	if req.RequesterID == req.TargetID {
		decision := s.selfDecision(req)
		s.record(ctx, decision, started)
		return decision, nil
	}

	key := hierarchy.CacheKey{
		OrganizationID: req.OrganizationID,
		RequesterID:    req.RequesterID,
		TargetID:       req.TargetID,
		DataScope:      req.DataScope,
		Action:         req.Action,
	}
	if cached, ok := s.cache.Get(key); ok {
		metrics.RecordCacheHit(s.domain.Name)
		return cached, nil
	}
	metrics.RecordCacheMiss(s.domain.Name)

	decision, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	s.cache.Put(key, decision)
	s.record(ctx, decision, started)
	return decision, nil
}

// validateCheck 校验访问检查请求
func (s *accessService) validateCheck(req *CheckRequest) error {
	if !s.domain.HasScope(req.DataScope) {
		return hierarchy.NewValidationError("data_scope", "unknown data scope "+req.DataScope)
	}
	if !s.domain.HasAction(req.Action) {
		return hierarchy.NewValidationError("action", "unknown action "+req.Action)
	}
	return nil
}

// resolve 冷解析:构建组织图快照并求判定
func (s *accessService) resolve(ctx context.Context, req *CheckRequest) (*hierarchy.Decision, error) {
	now := time.Now()

	for _, entityID := range []string{req.RequesterID, req.TargetID} {
		known, err := s.directory.KnownIn(s.domain.Name, req.OrganizationID, entityID)
		if err != nil {
			return nil, err
		}
		if !known {
			return s.deniedDecision(req, hierarchy.ReasonUnknownEntity), nil
		}
	}

	rels, err := s.relationRepo.ActiveByOrganization(req.OrganizationID, s.domain.Name, now)
	if err != nil {
		return nil, err
	}

	edges := make([]*hierarchy.Edge, 0, len(rels))
	edgeIDs := make([]string, 0, len(rels))
	for _, rel := range rels {
		edges = append(edges, toEdge(rel))
		edgeIDs = append(edgeIDs, rel.ID)
	}
	graph := hierarchy.NewGraph(edges)

	overrides, err := s.permissionRepo.FindByRelations(edgeIDs, now)
	if err != nil {
		return nil, err
	}

	// 直接关系优先
	direct := s.directRulings(graph, overrides, req)
	for _, r := range direct {
		if r.denied {
			return s.denyByRuling(req, r), nil
		}
	}
	if via := strongestGrant(direct); via != nil {
		return s.grantDecision(req, via, []string{req.RequesterID, req.TargetID}, true, s.grantedScopes(direct, req.DataScope)), nil
	}

	// 继承路径:按到达目标的最后一条边裁决
	paths, truncated := graph.FindPaths(req.RequesterID, req.TargetID, s.maxDepth)
	var rulings []edgeRuling
	var granting []hierarchy.Path
	for _, path := range paths {
		if path.Hops() < 2 {
			// 单跳即直接关系,已在上面处理
			continue
		}
		final := path.Final()
		ruling := s.judgeEdge(final.Edge, final.Forward, overrides[final.Edge.ID], req)
		if ruling.denied {
			return s.denyByRuling(req, ruling), nil
		}
		rulings = append(rulings, ruling)
		if ruling.granted {
			granting = append(granting, path)
		}
	}

	if via := strongestGrant(rulings); via != nil {
		chain := shortestChain(granting)
		return s.grantDecision(req, via, chain, false, s.grantedScopes(rulings, req.DataScope)), nil
	}

	// 直接关系存在但未授权时同样落入 "no access path found"
	if truncated {
		return s.deniedDecision(req, hierarchy.ReasonMaxDepthExceeded), nil
	}
	return s.deniedDecision(req, hierarchy.ReasonNoPath), nil
}

// directRulings 裁决请求者与目标之间的全部直接边
func (s *accessService) directRulings(graph *hierarchy.Graph, overrides map[string][]*model.PermissionEntryModel, req *CheckRequest) []edgeRuling {
	var rulings []edgeRuling
	seen := make(map[string]bool)

	judge := func(e *hierarchy.Edge, forward bool) {
		if seen[e.ID] {
			return
		}
		seen[e.ID] = true
		rulings = append(rulings, s.judgeEdge(e, forward, overrides[e.ID], req))
	}

	for _, e := range graph.From(req.RequesterID) {
		if e.ToID == req.TargetID {
			judge(e, true)
		}
	}
	for _, e := range graph.To(req.RequesterID) {
		if e.FromID == req.TargetID {
			judge(e, false)
		}
	}
	return rulings
}

// judgeEdge 裁决一条边对 (数据范围, 动作) 的效果
// 显式条目压倒基线:granted=false 是拒绝而不是回落到基线
func (s *accessService) judgeEdge(e *hierarchy.Edge, forward bool, overrides []*model.PermissionEntryModel, req *CheckRequest) edgeRuling {
	profile, _ := s.domain.Profile(e.RelationType)
	ruling := edgeRuling{edge: e, forward: forward, profile: profile}

	for _, entry := range overrides {
		if !matchesEntry(entry, req.DataScope, req.Action) {
			continue
		}
		if entry.Granted {
			ruling.granted = true
			ruling.overridden = true
		} else {
			ruling.denied = true
			return ruling
		}
	}
	if ruling.granted {
		return ruling
	}

	ruling.granted = profile.GrantsScope(forward, req.DataScope) && profile.AllowsAction(forward, req.Action)
	return ruling
}

// matchesEntry 判断权限条目是否命中 (数据范围, 动作),ALL 为通配
func matchesEntry(entry *model.PermissionEntryModel, dataScope string, action string) bool {
	scopeMatch := entry.DataScope == dataScope || entry.DataScope == hierarchy.ScopeAll
	actionMatch := entry.Action == action || entry.Action == hierarchy.ScopeAll
	return scopeMatch && actionMatch
}

// strongestGrant 返回授权裁决中基线强度最高的一条
func strongestGrant(rulings []edgeRuling) *edgeRuling {
	var best *edgeRuling
	for i := range rulings {
		r := &rulings[i]
		if !r.granted {
			continue
		}
		if best == nil || r.profile.Strength > best.profile.Strength {
			best = r
		}
	}
	return best
}

// shortestChain 返回最短授权路径的节点序列
func shortestChain(paths []hierarchy.Path) []string {
	var best []string
	for _, p := range paths {
		if best == nil || len(p.Nodes) < len(best) {
			best = p.Nodes
		}
	}
	return best
}

// grantedScopes 汇总全部授权边在各自方向上授予的数据范围
// 显式条目授出的范围可能在基线之外,一并计入
func (s *accessService) grantedScopes(rulings []edgeRuling, dataScope string) []string {
	set := make(map[string]bool)
	for _, r := range rulings {
		if !r.granted {
			continue
		}
		if r.overridden {
			set[dataScope] = true
		}
		for _, scope := range r.profile.ScopesFor(r.forward) {
			set[scope] = true
		}
	}
	if set[hierarchy.ScopeAll] {
		return []string{hierarchy.ScopeAll}
	}
	scopes := make([]string, 0, len(set))
	for _, s := range s.domain.Scopes {
		if set[s] {
			scopes = append(scopes, s)
		}
	}
	return scopes
}

// selfDecision 自访问判定,对自身数据拥有完全控制
func (s *accessService) selfDecision(req *CheckRequest) *hierarchy.Decision {
	return &hierarchy.Decision{
		ID:               uuid.New().String(),
		OrganizationID:   req.OrganizationID,
		Domain:           s.domain.Name,
		RequesterID:      req.RequesterID,
		TargetID:         req.TargetID,
		DataScope:        req.DataScope,
		Action:           req.Action,
		Granted:          true,
		AccessLevel:      hierarchy.AccessLevelFullControl,
		GrantedScopes:    []string{hierarchy.ScopeAll},
		DeniedScopes:     []string{},
		InheritanceChain: []string{req.RequesterID},
		DirectAccess:     true,
		Reason:           hierarchy.ReasonSelf,
		DecidedAt:        time.Now(),
	}
}

// grantDecision 构建授权判定
func (s *accessService) grantDecision(req *CheckRequest, via *edgeRuling, chain []string, direct bool, granted []string) *hierarchy.Decision {
	return &hierarchy.Decision{
		ID:               uuid.New().String(),
		OrganizationID:   req.OrganizationID,
		Domain:           s.domain.Name,
		RequesterID:      req.RequesterID,
		TargetID:         req.TargetID,
		DataScope:        req.DataScope,
		Action:           req.Action,
		Granted:          true,
		AccessLevel:      via.profile.Level,
		GrantedScopes:    granted,
		DeniedScopes:     s.domain.DeniedScopes(granted),
		Via:              via.edge.ID,
		InheritanceChain: chain,
		DirectAccess:     direct,
		Reason:           "granted via " + via.edge.RelationType,
		DecidedAt:        time.Now(),
	}
}

// denyByRuling 构建显式拒绝判定
func (s *accessService) denyByRuling(req *CheckRequest, ruling edgeRuling) *hierarchy.Decision {
	d := s.deniedDecision(req, hierarchy.ReasonExplicitDeny)
	d.Via = ruling.edge.ID
	return d
}

// deniedDecision 构建拒绝判定
func (s *accessService) deniedDecision(req *CheckRequest, reason string) *hierarchy.Decision {
	return &hierarchy.Decision{
		ID:               uuid.New().String(),
		OrganizationID:   req.OrganizationID,
		Domain:           s.domain.Name,
		RequesterID:      req.RequesterID,
		TargetID:         req.TargetID,
		DataScope:        req.DataScope,
		Action:           req.Action,
		Granted:          false,
		AccessLevel:      hierarchy.AccessLevelNoAccess,
		GrantedScopes:    []string{},
		DeniedScopes:     s.domain.DeniedScopes(nil),
		InheritanceChain: []string{},
		DirectAccess:     false,
		Reason:           reason,
		DecidedAt:        time.Now(),
	}
}

// record 写入审计并上报指标,审计失败只记日志不影响判定返回
func (s *accessService) record(ctx context.Context, decision *hierarchy.Decision, started time.Time) {
	metrics.RecordAccessCheck(s.domain.Name, decision.Granted, time.Since(started).Seconds())
	if err := s.auditLog.Record(ctx, decision); err != nil {
		s.logger.WithError(err).WithField("decision_id", decision.ID).Warn("failed to record access decision")
	}
}

// ClearCache 清除判定缓存
// 缓存是纯派生状态,多清不影响正确性,实体级清除不区分组织
func (s *accessService) ClearCache(orgID string, targetEntityID string) int {
	size := s.cache.Len()
	switch {
	case targetEntityID != "":
		s.cache.InvalidateEntity(targetEntityID)
	case orgID == "":
		s.cache.Clear()
	default:
		s.cache.InvalidateOrganization(orgID)
	}
	return size
}
