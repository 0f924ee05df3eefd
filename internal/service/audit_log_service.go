package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/streamwork/hierarchy-gin/internal/hierarchy"
	"github.com/streamwork/hierarchy-gin/internal/model"
	"github.com/streamwork/hierarchy-gin/internal/repository"
)

// AuditQuery 审计日志查询条件,零值字段不过滤
type AuditQuery struct {
	OrganizationID string
	RequesterID    string
	TargetID       string
	DataScope      string
	Action         string
	Granted        *bool
	From           *time.Time
	To             *time.Time
	Page           int
	PageSize       int
}

// AuditLogService 审计日志服务接口
// 记录只追加;缓存命中不重复记录,只有冷解析写入新行
type AuditLogService interface {
	Record(ctx context.Context, decision *hierarchy.Decision) error
	Query(ctx context.Context, query *AuditQuery) ([]*model.AccessDecisionModel, int64, error)
}

// auditLogService 审计日志服务实现
type auditLogService struct {
	domain       hierarchy.Domain
	decisionRepo repository.AccessDecisionRepository
}

// NewAuditLogService 创建审计日志服务
func NewAuditLogService(domain hierarchy.Domain, decisionRepo repository.AccessDecisionRepository) AuditLogService {
	return &auditLogService{
		domain:       domain,
		decisionRepo: decisionRepo,
	}
}

// Record 记录一次访问判定
func (s *auditLogService) Record(ctx context.Context, decision *hierarchy.Decision) error {
	chain, err := json.Marshal(decision.InheritanceChain)
	if err != nil {
		return err
	}

	record := &model.AccessDecisionModel{
		ID:               decision.ID,
		OrganizationID:   decision.OrganizationID,
		Domain:           decision.Domain,
		RequesterID:      decision.RequesterID,
		TargetID:         decision.TargetID,
		DataScope:        decision.DataScope,
		Action:           decision.Action,
		Granted:          decision.Granted,
		AccessLevel:      string(decision.AccessLevel),
		Via:              decision.Via,
		InheritanceChain: chain,
		Reason:           decision.Reason,
		DecidedAt:        decision.DecidedAt,
	}

	if err := record.Validate(); err != nil {
		return err
	}
	return s.decisionRepo.Save(record)
}

// Query 分页查询审计记录
func (s *auditLogService) Query(ctx context.Context, query *AuditQuery) ([]*model.AccessDecisionModel, int64, error) {
	page := query.Page
	if page < 1 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	filter := repository.DecisionFilter{
		OrganizationID: query.OrganizationID,
		Domain:         s.domain.Name,
		RequesterID:    query.RequesterID,
		TargetID:       query.TargetID,
		DataScope:      query.DataScope,
		Action:         query.Action,
		Granted:        query.Granted,
		From:           query.From,
		To:             query.To,
	}

	return s.decisionRepo.Query(filter, (page-1)*pageSize, pageSize)
}
