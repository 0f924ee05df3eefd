package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/streamwork/hierarchy-gin/internal/hierarchy"
	"github.com/streamwork/hierarchy-gin/internal/metrics"
	"github.com/streamwork/hierarchy-gin/internal/model"
	"github.com/streamwork/hierarchy-gin/internal/repository"
	"github.com/streamwork/hierarchy-gin/internal/websocket"
	"gorm.io/gorm"
)

// RelationService 关系服务接口
type RelationService interface {
	CreateRelation(ctx context.Context, req *CreateRelationRequest) (*model.RelationModel, error)
	UpdateRelation(ctx context.Context, id string, req *UpdateRelationRequest) (*model.RelationModel, error)
	DeleteRelation(ctx context.Context, orgID string, id string) error
	GetRelation(id string) (*model.RelationModel, error)
	// EdgesFrom 返回实体出发的有效关系
	EdgesFrom(orgID string, entityID string) ([]*model.RelationModel, error)
	// EdgesTo 返回指向实体的有效关系
	EdgesTo(orgID string, entityID string) ([]*model.RelationModel, error)
	// SetPermission 在关系上新增或覆盖一条权限条目
	SetPermission(ctx context.Context, relationID string, req *PermissionRequest) (*model.PermissionEntryModel, error)
	// RemovePermission 删除关系上的权限条目
	RemovePermission(ctx context.Context, relationID string, permissionID string) error
	// ListPermissions 返回关系上的未过期权限条目
	ListPermissions(relationID string) ([]*model.PermissionEntryModel, error)
}

// CreateRelationRequest 创建关系请求
type CreateRelationRequest struct {
	OrganizationID  string              `json:"-"`                                // 组织 ID,取自认证上下文
	FromID          string              `json:"from_id" binding:"required"`       // 上级实体 ID
	ToID            string              `json:"to_id" binding:"required"`         // 下级实体 ID
	RelationType    string              `json:"relation_type" binding:"required"` // 关系类型
	InheritanceRule string              `json:"inheritance_rule"`                 // 继承规则,默认 DOWN
	Description     string              `json:"description"`                      // 描述
	ValidFrom       *time.Time          `json:"valid_from"`                       // 生效时间
	ValidTo         *time.Time          `json:"valid_to"`                         // 失效时间
	CreatedBy       string              `json:"-"`                                // 操作者,取自认证上下文
	Permissions     []PermissionRequest `json:"permissions"`                      // 随关系一并写入的权限条目
}

// UpdateRelationRequest 更新关系请求,nil 字段不变更
type UpdateRelationRequest struct {
	InheritanceRule *string    `json:"inheritance_rule"` // 继承规则
	Description     *string    `json:"description"`      // 描述
	IsActive        *bool      `json:"is_active"`        // 是否活跃
	ValidFrom       *time.Time `json:"valid_from"`       // 生效时间
	ValidTo         *time.Time `json:"valid_to"`         // 失效时间
}

// PermissionRequest 权限条目请求
type PermissionRequest struct {
	DataScope string     `json:"data_scope" binding:"required"` // 数据范围,ALL 为通配
	Action    string     `json:"action" binding:"required"`     // 动作,ALL 为通配
	Granted   bool       `json:"granted"`                       // false 为显式拒绝
	ExpiresAt *time.Time `json:"expires_at"`                    // 过期时间
	GrantedBy string     `json:"-"`                             // 操作者,取自认证上下文
}

// relationService 关系服务实现
type relationService struct {
	domain         hierarchy.Domain
	relationRepo   repository.RelationRepository
	permissionRepo repository.PermissionRepository
	validator      *CycleValidator
	directory      EntityDirectory
	cache          *hierarchy.DecisionCache
	hub            *websocket.Hub
	// orgLocks 按组织串行化"检查环路再写入",防止并发写并发通过检查
	orgLocks              sync.Map
	invalidationThreshold int
	logger                *logrus.Logger
}

// NewRelationService 创建关系服务
func NewRelationService(
	domain hierarchy.Domain,
	relationRepo repository.RelationRepository,
	permissionRepo repository.PermissionRepository,
	validator *CycleValidator,
	directory EntityDirectory,
	cache *hierarchy.DecisionCache,
	hub *websocket.Hub,
	invalidationThreshold int,
	logger *logrus.Logger,
) RelationService {
	return &relationService{
		domain:                domain,
		relationRepo:          relationRepo,
		permissionRepo:        permissionRepo,
		validator:             validator,
		directory:             directory,
		cache:                 cache,
		hub:                   hub,
		invalidationThreshold: invalidationThreshold,
		logger:                logger,
	}
}

// orgLock 返回组织的写锁
func (s *relationService) orgLock(orgID string) *sync.Mutex {
	lock, _ := s.orgLocks.LoadOrStore(orgID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// CreateRelation 创建关系
// 校验、查重、环路检查和写入在组织写锁内完成
func (s *relationService) CreateRelation(ctx context.Context, req *CreateRelationRequest) (*model.RelationModel, error) {
	if req.InheritanceRule == "" {
		req.InheritanceRule = string(hierarchy.InheritanceDown)
	}
	if err := s.validateCreate(req); err != nil {
		return nil, err
	}

	lock := s.orgLock(req.OrganizationID)
	lock.Lock()
	defer lock.Unlock()

	exists, err := s.relationRepo.ExistsActive(req.OrganizationID, s.domain.Name, req.FromID, req.ToID, req.RelationType)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, hierarchy.NewDuplicateError(req.FromID, req.ToID, req.RelationType)
	}

	// 不继承的边只描述结构,不参与环路检查
	if hierarchy.InheritanceRule(req.InheritanceRule) != hierarchy.InheritanceNone {
		cyclic, err := s.validator.WouldCreateCycle(req.OrganizationID, req.FromID, req.ToID, "")
		if err != nil {
			return nil, err
		}
		if cyclic {
			metrics.RecordCycleRejection(s.domain.Name)
			return nil, hierarchy.NewCycleError(req.FromID, req.ToID)
		}
	}

	now := time.Now()
	rel := &model.RelationModel{
		ID:              uuid.New().String(),
		OrganizationID:  req.OrganizationID,
		Domain:          s.domain.Name,
		FromID:          req.FromID,
		ToID:            req.ToID,
		RelationType:    req.RelationType,
		InheritanceRule: req.InheritanceRule,
		Description:     req.Description,
		IsActive:        true,
		ValidFrom:       req.ValidFrom,
		ValidTo:         req.ValidTo,
		CreatedBy:       req.CreatedBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := rel.Validate(); err != nil {
		return nil, hierarchy.NewValidationError("", err.Error())
	}
	if err := s.relationRepo.Create(rel); err != nil {
		return nil, err
	}

	for i := range req.Permissions {
		if _, err := s.savePermission(rel.ID, &req.Permissions[i]); err != nil {
			return nil, err
		}
	}

	s.invalidate(req.OrganizationID, req.FromID, req.ToID)
	metrics.RecordRelationCreated(s.domain.Name, req.RelationType)
	s.publish(websocket.EventRelationCreated, rel)

	s.logger.WithFields(logrus.Fields{
		"domain":        s.domain.Name,
		"organization":  req.OrganizationID,
		"relation_id":   rel.ID,
		"relation_type": rel.RelationType,
		"from":          rel.FromID,
		"to":            rel.ToID,
	}).Info("relation created")

	return rel, nil
}

// validateCreate 校验创建请求
func (s *relationService) validateCreate(req *CreateRelationRequest) error {
	if req.FromID == req.ToID {
		return hierarchy.NewValidationError("to_id", "relation cannot connect an entity to itself")
	}
	if !s.domain.HasRelationType(req.RelationType) {
		return hierarchy.NewValidationError("relation_type", "unknown relation type "+req.RelationType)
	}
	if !hierarchy.InheritanceRule(req.InheritanceRule).Valid() {
		return hierarchy.NewValidationError("inheritance_rule", "unknown inheritance rule "+req.InheritanceRule)
	}
	if req.ValidFrom != nil && req.ValidTo != nil && !req.ValidTo.After(*req.ValidFrom) {
		return hierarchy.NewValidationError("valid_to", "valid_to must be after valid_from")
	}
	for _, p := range req.Permissions {
		if err := s.validatePermission(&p); err != nil {
			return err
		}
	}

	for field, entityID := range map[string]string{"from_id": req.FromID, "to_id": req.ToID} {
		known, err := s.directory.KnownIn(s.domain.Name, req.OrganizationID, entityID)
		if err != nil {
			return err
		}
		if !known {
			return hierarchy.NewValidationError(field, "entity "+entityID+" does not belong to this organization")
		}
	}
	return nil
}

// validatePermission 校验权限条目请求
func (s *relationService) validatePermission(p *PermissionRequest) error {
	if !s.domain.HasScope(p.DataScope) {
		return hierarchy.NewValidationError("data_scope", "unknown data scope "+p.DataScope)
	}
	if p.Action != hierarchy.ScopeAll && !s.domain.HasAction(p.Action) {
		return hierarchy.NewValidationError("action", "unknown action "+p.Action)
	}
	return nil
}

// UpdateRelation 更新关系
// 继承规则从 NONE 变为可继承、以及停用边重新启用时,都重新做环路检查
func (s *relationService) UpdateRelation(ctx context.Context, id string, req *UpdateRelationRequest) (*model.RelationModel, error) {
	rel, err := s.GetRelation(id)
	if err != nil {
		return nil, err
	}

	lock := s.orgLock(rel.OrganizationID)
	lock.Lock()
	defer lock.Unlock()

	if req.InheritanceRule != nil {
		rule := hierarchy.InheritanceRule(*req.InheritanceRule)
		if !rule.Valid() {
			return nil, hierarchy.NewValidationError("inheritance_rule", "unknown inheritance rule "+*req.InheritanceRule)
		}
		if rule != hierarchy.InheritanceNone && rel.InheritanceRule == string(hierarchy.InheritanceNone) {
			cyclic, err := s.validator.WouldCreateCycle(rel.OrganizationID, rel.FromID, rel.ToID, rel.ID)
			if err != nil {
				return nil, err
			}
			if cyclic {
				metrics.RecordCycleRejection(s.domain.Name)
				return nil, hierarchy.NewCycleError(rel.FromID, rel.ToID)
			}
		}
		rel.InheritanceRule = *req.InheritanceRule
	}
	if req.Description != nil {
		rel.Description = *req.Description
	}
	if req.IsActive != nil {
		// 重新启用等同于插入一条新边,要重过环路检查
		if *req.IsActive && !rel.IsActive && rel.InheritanceRule != string(hierarchy.InheritanceNone) {
			cyclic, err := s.validator.WouldCreateCycle(rel.OrganizationID, rel.FromID, rel.ToID, rel.ID)
			if err != nil {
				return nil, err
			}
			if cyclic {
				metrics.RecordCycleRejection(s.domain.Name)
				return nil, hierarchy.NewCycleError(rel.FromID, rel.ToID)
			}
		}
		rel.IsActive = *req.IsActive
	}
	if req.ValidFrom != nil {
		rel.ValidFrom = req.ValidFrom
	}
	if req.ValidTo != nil {
		rel.ValidTo = req.ValidTo
	}
	if rel.ValidFrom != nil && rel.ValidTo != nil && !rel.ValidTo.After(*rel.ValidFrom) {
		return nil, hierarchy.NewValidationError("valid_to", "valid_to must be after valid_from")
	}

	rel.UpdatedAt = time.Now()
	if err := s.relationRepo.Update(rel); err != nil {
		return nil, err
	}

	s.invalidate(rel.OrganizationID, rel.FromID, rel.ToID)
	s.publish(websocket.EventRelationUpdated, rel)
	return rel, nil
}

// DeleteRelation 软删除关系
// 审计记录引用关系 ID,只停用不物理删除
func (s *relationService) DeleteRelation(ctx context.Context, orgID string, id string) error {
	rel, err := s.GetRelation(id)
	if err != nil {
		return err
	}
	if rel.OrganizationID != orgID || rel.Domain != s.domain.Name {
		return hierarchy.NewNotFoundError("relation", id)
	}

	lock := s.orgLock(rel.OrganizationID)
	lock.Lock()
	defer lock.Unlock()

	rel.IsActive = false
	rel.UpdatedAt = time.Now()
	if err := s.relationRepo.Update(rel); err != nil {
		return err
	}

	s.invalidate(rel.OrganizationID, rel.FromID, rel.ToID)
	s.publish(websocket.EventRelationDeleted, rel)

	s.logger.WithFields(logrus.Fields{
		"domain":      s.domain.Name,
		"relation_id": rel.ID,
	}).Info("relation deactivated")
	return nil
}

// GetRelation 根据 ID 查找关系
func (s *relationService) GetRelation(id string) (*model.RelationModel, error) {
	rel, err := s.relationRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, hierarchy.NewNotFoundError("relation", id)
		}
		return nil, err
	}
	return rel, nil
}

// EdgesFrom 返回实体出发的有效关系
func (s *relationService) EdgesFrom(orgID string, entityID string) ([]*model.RelationModel, error) {
	return s.relationRepo.ActiveFrom(orgID, s.domain.Name, entityID, time.Now())
}

// EdgesTo 返回指向实体的有效关系
func (s *relationService) EdgesTo(orgID string, entityID string) ([]*model.RelationModel, error) {
	return s.relationRepo.ActiveTo(orgID, s.domain.Name, entityID, time.Now())
}

// SetPermission 在关系上新增或覆盖权限条目
// 同 (数据范围, 动作) 的已有条目被覆盖而不是并存
func (s *relationService) SetPermission(ctx context.Context, relationID string, req *PermissionRequest) (*model.PermissionEntryModel, error) {
	rel, err := s.GetRelation(relationID)
	if err != nil {
		return nil, err
	}
	if err := s.validatePermission(req); err != nil {
		return nil, err
	}

	entry, err := s.savePermission(relationID, req)
	if err != nil {
		return nil, err
	}

	s.invalidate(rel.OrganizationID, rel.FromID, rel.ToID)
	return entry, nil
}

// savePermission 写入或覆盖权限条目
func (s *relationService) savePermission(relationID string, req *PermissionRequest) (*model.PermissionEntryModel, error) {
	now := time.Now()
	entry, err := s.permissionRepo.FindExisting(relationID, req.DataScope, req.Action)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		entry = &model.PermissionEntryModel{
			ID:         uuid.New().String(),
			RelationID: relationID,
			DataScope:  req.DataScope,
			Action:     req.Action,
			CreatedAt:  now,
		}
	}
	entry.Granted = req.Granted
	entry.ExpiresAt = req.ExpiresAt
	entry.GrantedBy = req.GrantedBy
	entry.UpdatedAt = now

	if err := entry.Validate(); err != nil {
		return nil, hierarchy.NewValidationError("", err.Error())
	}
	if err := s.permissionRepo.Save(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// RemovePermission 删除关系上的权限条目
func (s *relationService) RemovePermission(ctx context.Context, relationID string, permissionID string) error {
	rel, err := s.GetRelation(relationID)
	if err != nil {
		return err
	}

	entry, err := s.permissionRepo.FindByID(permissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return hierarchy.NewNotFoundError("permission entry", permissionID)
		}
		return err
	}
	if entry.RelationID != relationID {
		return hierarchy.NewNotFoundError("permission entry", permissionID)
	}

	if err := s.permissionRepo.Delete(permissionID); err != nil {
		return err
	}

	s.invalidate(rel.OrganizationID, rel.FromID, rel.ToID)
	return nil
}

// ListPermissions 返回关系上的未过期权限条目
func (s *relationService) ListPermissions(relationID string) ([]*model.PermissionEntryModel, error) {
	if _, err := s.GetRelation(relationID); err != nil {
		return nil, err
	}
	return s.permissionRepo.FindByRelation(relationID, time.Now())
}

// invalidate 清除受变更影响的判定缓存条目
// 受影响实体数达到阈值时直接按组织整体清除,避免逐实体扫描风暴
func (s *relationService) invalidate(orgID string, entityIDs ...string) {
	if s.invalidationThreshold > 0 && len(entityIDs) >= s.invalidationThreshold {
		s.cache.InvalidateOrganization(orgID)
		return
	}
	for _, id := range entityIDs {
		s.cache.InvalidateEntity(id)
	}
}

// publish 广播层级变更事件
func (s *relationService) publish(eventType string, rel *model.RelationModel) {
	websocket.PublishEvent(s.hub, &websocket.Event{
		Type:           eventType,
		Domain:         s.domain.Name,
		OrganizationID: rel.OrganizationID,
		RelationID:     rel.ID,
		FromID:         rel.FromID,
		ToID:           rel.ToID,
		RelationType:   rel.RelationType,
		Timestamp:      time.Now(),
	})
}
