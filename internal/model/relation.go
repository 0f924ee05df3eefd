package model

import (
	"errors"
	"time"
)

// RelationModel 关系(边)数据模型
// 同一组织内两个实体之间的有类型有方向的连接
type RelationModel struct {
	ID              string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	OrganizationID  string     `gorm:"type:varchar(64);not null;index" json:"organizationId"`
	Domain          string     `gorm:"type:varchar(16);not null;index" json:"domain"` // user/stream
	FromID          string     `gorm:"type:varchar(64);not null;index" json:"fromId"`
	ToID            string     `gorm:"type:varchar(64);not null;index" json:"toId"`
	RelationType    string     `gorm:"type:varchar(32);not null" json:"relationType"`
	InheritanceRule string     `gorm:"type:varchar(16);not null" json:"inheritanceRule"` // NONE/DOWN/UP/BIDIRECTIONAL
	Description     string     `gorm:"type:text" json:"description,omitempty"`
	IsActive        bool       `gorm:"not null;index" json:"isActive"`
	ValidFrom       *time.Time `json:"validFrom,omitempty"`
	ValidTo         *time.Time `json:"validTo,omitempty"`
	CreatedBy       string     `gorm:"type:varchar(64)" json:"createdBy"`
	CreatedAt       time.Time  `gorm:"not null" json:"createdAt"`
	UpdatedAt       time.Time  `gorm:"not null" json:"updatedAt"`
}

// TableName 指定表名
func (RelationModel) TableName() string {
	return "relations"
}

// Validate 验证关系模型
func (rm *RelationModel) Validate() error {
	if rm.ID == "" {
		return errors.New("relation ID is required")
	}
	if rm.OrganizationID == "" {
		return errors.New("organization ID is required")
	}
	if rm.Domain == "" {
		return errors.New("domain is required")
	}
	if rm.FromID == "" {
		return errors.New("from ID is required")
	}
	if rm.ToID == "" {
		return errors.New("to ID is required")
	}
	if rm.FromID == rm.ToID {
		return errors.New("relation cannot connect an entity to itself")
	}
	if rm.RelationType == "" {
		return errors.New("relation type is required")
	}
	if rm.InheritanceRule == "" {
		return errors.New("inheritance rule is required")
	}
	return nil
}

// InWindow 判断关系在指定时刻是否处于有效期内
func (rm *RelationModel) InWindow(now time.Time) bool {
	if rm.ValidFrom != nil && now.Before(*rm.ValidFrom) {
		return false
	}
	if rm.ValidTo != nil && !now.Before(*rm.ValidTo) {
		return false
	}
	return true
}
