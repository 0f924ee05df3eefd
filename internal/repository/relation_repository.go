package repository

import (
	"time"

	"github.com/streamwork/hierarchy-gin/internal/model"
	"gorm.io/gorm"
)

// TypeCount 按关系类型的统计行
type TypeCount struct {
	RelationType string
	Count        int64
}

// RelationRepository 关系仓储接口
type RelationRepository interface {
	Create(rel *model.RelationModel) error
	Update(rel *model.RelationModel) error
	FindByID(id string) (*model.RelationModel, error)
	// ActiveFrom 返回指定实体出发的有效边(活跃且处于有效期内)
	ActiveFrom(orgID string, domain string, fromID string, now time.Time) ([]*model.RelationModel, error)
	// ActiveTo 返回指向指定实体的有效边
	ActiveTo(orgID string, domain string, toID string, now time.Time) ([]*model.RelationModel, error)
	// ActiveBetween 返回两个实体之间任意方向的有效边
	ActiveBetween(orgID string, domain string, a string, b string, now time.Time) ([]*model.RelationModel, error)
	// ActiveByOrganization 返回组织内全部有效边,供遍历构建图快照
	ActiveByOrganization(orgID string, domain string, now time.Time) ([]*model.RelationModel, error)
	// ExistsActive 判断同类型的活跃关系是否已存在
	ExistsActive(orgID string, domain string, fromID string, toID string, relationType string) (bool, error)
	// CountByOrganization 返回组织内关系总数和活跃数
	CountByOrganization(orgID string, domain string) (total int64, active int64, err error)
	// CountByType 返回组织内活跃关系按类型的数量
	CountByType(orgID string, domain string) ([]TypeCount, error)
	// OrganizationsOf 返回实体在该领域出现过的组织
	OrganizationsOf(domain string, entityID string) ([]string, error)
}

// relationRepository 关系仓储实现
type relationRepository struct {
	db *gorm.DB
}

// NewRelationRepository 创建关系仓储
func NewRelationRepository(db *gorm.DB) RelationRepository {
	return &relationRepository{db: db}
}

// Create 保存新关系
func (r *relationRepository) Create(rel *model.RelationModel) error {
	return r.db.Create(rel).Error
}

// Update 更新关系
func (r *relationRepository) Update(rel *model.RelationModel) error {
	return r.db.Save(rel).Error
}

// FindByID 根据 ID 查找关系
func (r *relationRepository) FindByID(id string) (*model.RelationModel, error) {
	var rel model.RelationModel
	if err := r.db.Where("id = ?", id).First(&rel).Error; err != nil {
		return nil, err
	}
	return &rel, nil
}

// activeScope 活跃且处于有效期内的边
func activeScope(db *gorm.DB, now time.Time) *gorm.DB {
	return db.Where("is_active = ?", true).
		Where("valid_from IS NULL OR valid_from <= ?", now).
		Where("valid_to IS NULL OR valid_to > ?", now)
}

// ActiveFrom 返回指定实体出发的有效边
func (r *relationRepository) ActiveFrom(orgID string, domain string, fromID string, now time.Time) ([]*model.RelationModel, error) {
	var rels []*model.RelationModel
	err := activeScope(r.db, now).
		Where("organization_id = ? AND domain = ? AND from_id = ?", orgID, domain, fromID).
		Find(&rels).Error
	return rels, err
}

// ActiveTo 返回指向指定实体的有效边
func (r *relationRepository) ActiveTo(orgID string, domain string, toID string, now time.Time) ([]*model.RelationModel, error) {
	var rels []*model.RelationModel
	err := activeScope(r.db, now).
		Where("organization_id = ? AND domain = ? AND to_id = ?", orgID, domain, toID).
		Find(&rels).Error
	return rels, err
}

// ActiveBetween 返回两个实体之间任意方向的有效边
func (r *relationRepository) ActiveBetween(orgID string, domain string, a string, b string, now time.Time) ([]*model.RelationModel, error) {
	var rels []*model.RelationModel
	err := activeScope(r.db, now).
		Where("organization_id = ? AND domain = ?", orgID, domain).
		Where("(from_id = ? AND to_id = ?) OR (from_id = ? AND to_id = ?)", a, b, b, a).
		Find(&rels).Error
	return rels, err
}

// ActiveByOrganization 返回组织内全部有效边
func (r *relationRepository) ActiveByOrganization(orgID string, domain string, now time.Time) ([]*model.RelationModel, error) {
	var rels []*model.RelationModel
	err := activeScope(r.db, now).
		Where("organization_id = ? AND domain = ?", orgID, domain).
		Find(&rels).Error
	return rels, err
}

// ExistsActive 判断同类型的活跃关系是否已存在
func (r *relationRepository) ExistsActive(orgID string, domain string, fromID string, toID string, relationType string) (bool, error) {
	var count int64
	err := r.db.Model(&model.RelationModel{}).
		Where("organization_id = ? AND domain = ? AND from_id = ? AND to_id = ? AND relation_type = ? AND is_active = ?",
			orgID, domain, fromID, toID, relationType, true).
		Count(&count).Error
	return count > 0, err
}

// CountByOrganization 返回组织内关系总数和活跃数
func (r *relationRepository) CountByOrganization(orgID string, domain string) (int64, int64, error) {
	var total, active int64
	if err := r.db.Model(&model.RelationModel{}).
		Where("organization_id = ? AND domain = ?", orgID, domain).
		Count(&total).Error; err != nil {
		return 0, 0, err
	}
	if err := r.db.Model(&model.RelationModel{}).
		Where("organization_id = ? AND domain = ? AND is_active = ?", orgID, domain, true).
		Count(&active).Error; err != nil {
		return 0, 0, err
	}
	return total, active, nil
}

// CountByType 返回组织内活跃关系按类型的数量
func (r *relationRepository) CountByType(orgID string, domain string) ([]TypeCount, error) {
	var counts []TypeCount
	err := r.db.Model(&model.RelationModel{}).
		Select("relation_type, COUNT(*) as count").
		Where("organization_id = ? AND domain = ? AND is_active = ?", orgID, domain, true).
		Group("relation_type").
		Find(&counts).Error
	return counts, err
}

// OrganizationsOf 返回实体在该领域出现过的组织
func (r *relationRepository) OrganizationsOf(domain string, entityID string) ([]string, error) {
	var orgs []string
	err := r.db.Model(&model.RelationModel{}).
		Distinct("organization_id").
		Where("domain = ? AND (from_id = ? OR to_id = ?)", domain, entityID, entityID).
		Pluck("organization_id", &orgs).Error
	return orgs, err
}
