package repository

import (
	"time"

	"github.com/streamwork/hierarchy-gin/internal/model"
	"gorm.io/gorm"
)

// DecisionFilter 审计查询过滤条件,零值字段不参与过滤
type DecisionFilter struct {
	OrganizationID string
	Domain         string
	RequesterID    string
	TargetID       string
	DataScope      string
	Action         string
	Granted        *bool
	From           *time.Time
	To             *time.Time
}

// AccessDecisionRepository 访问判定审计仓储接口
// 只追加,不提供更新和删除
type AccessDecisionRepository interface {
	Save(decision *model.AccessDecisionModel) error
	Query(filter DecisionFilter, offset int, limit int) ([]*model.AccessDecisionModel, int64, error)
}

// accessDecisionRepository 访问判定审计仓储实现
type accessDecisionRepository struct {
	db *gorm.DB
}

// NewAccessDecisionRepository 创建访问判定审计仓储
func NewAccessDecisionRepository(db *gorm.DB) AccessDecisionRepository {
	return &accessDecisionRepository{db: db}
}

// Save 追加审计记录
func (r *accessDecisionRepository) Save(decision *model.AccessDecisionModel) error {
	return r.db.Create(decision).Error
}

// Query 按过滤条件分页查询审计记录,按判定时间倒序
func (r *accessDecisionRepository) Query(filter DecisionFilter, offset int, limit int) ([]*model.AccessDecisionModel, int64, error) {
	query := r.db.Model(&model.AccessDecisionModel{})

	if filter.OrganizationID != "" {
		query = query.Where("organization_id = ?", filter.OrganizationID)
	}
	if filter.Domain != "" {
		query = query.Where("domain = ?", filter.Domain)
	}
	if filter.RequesterID != "" {
		query = query.Where("requester_id = ?", filter.RequesterID)
	}
	if filter.TargetID != "" {
		query = query.Where("target_id = ?", filter.TargetID)
	}
	if filter.DataScope != "" {
		query = query.Where("data_scope = ?", filter.DataScope)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.Granted != nil {
		query = query.Where("granted = ?", *filter.Granted)
	}
	if filter.From != nil {
		query = query.Where("decided_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("decided_at < ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var decisions []*model.AccessDecisionModel
	err := query.Order("decided_at DESC").Offset(offset).Limit(limit).Find(&decisions).Error
	return decisions, total, err
}
