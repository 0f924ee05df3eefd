package repository

import (
	"time"

	"github.com/streamwork/hierarchy-gin/internal/model"
	"gorm.io/gorm"
)

// PermissionRepository 权限条目仓储接口
type PermissionRepository interface {
	Save(entry *model.PermissionEntryModel) error
	Delete(id string) error
	FindByID(id string) (*model.PermissionEntryModel, error)
	// FindByRelation 返回关系上的权限条目,排除已过期条目
	FindByRelation(relationID string, now time.Time) ([]*model.PermissionEntryModel, error)
	// FindByRelations 批量返回多条关系上的未过期权限条目
	FindByRelations(relationIDs []string, now time.Time) (map[string][]*model.PermissionEntryModel, error)
	// FindExisting 查找关系上同 (数据范围, 动作) 的条目,用于覆盖更新
	FindExisting(relationID string, dataScope string, action string) (*model.PermissionEntryModel, error)
}

// permissionRepository 权限条目仓储实现
type permissionRepository struct {
	db *gorm.DB
}

// NewPermissionRepository 创建权限条目仓储
func NewPermissionRepository(db *gorm.DB) PermissionRepository {
	return &permissionRepository{db: db}
}

// Save 保存权限条目
func (r *permissionRepository) Save(entry *model.PermissionEntryModel) error {
	return r.db.Save(entry).Error
}

// Delete 删除权限条目
func (r *permissionRepository) Delete(id string) error {
	return r.db.Delete(&model.PermissionEntryModel{}, "id = ?", id).Error
}

// FindByID 根据 ID 查找权限条目
func (r *permissionRepository) FindByID(id string) (*model.PermissionEntryModel, error) {
	var entry model.PermissionEntryModel
	if err := r.db.Where("id = ?", id).First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// unexpiredScope 未过期条目
func unexpiredScope(db *gorm.DB, now time.Time) *gorm.DB {
	return db.Where("expires_at IS NULL OR expires_at > ?", now)
}

// FindByRelation 返回关系上的未过期权限条目
func (r *permissionRepository) FindByRelation(relationID string, now time.Time) ([]*model.PermissionEntryModel, error) {
	var entries []*model.PermissionEntryModel
	err := unexpiredScope(r.db, now).
		Where("relation_id = ?", relationID).
		Find(&entries).Error
	return entries, err
}

// FindByRelations 批量返回多条关系上的未过期权限条目
func (r *permissionRepository) FindByRelations(relationIDs []string, now time.Time) (map[string][]*model.PermissionEntryModel, error) {
	result := make(map[string][]*model.PermissionEntryModel, len(relationIDs))
	if len(relationIDs) == 0 {
		return result, nil
	}

	var entries []*model.PermissionEntryModel
	err := unexpiredScope(r.db, now).
		Where("relation_id IN ?", relationIDs).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		result[entry.RelationID] = append(result[entry.RelationID], entry)
	}
	return result, nil
}

// FindExisting 查找关系上同 (数据范围, 动作) 的条目
func (r *permissionRepository) FindExisting(relationID string, dataScope string, action string) (*model.PermissionEntryModel, error) {
	var entry model.PermissionEntryModel
	err := r.db.
		Where("relation_id = ? AND data_scope = ? AND action = ?", relationID, dataScope, action).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
