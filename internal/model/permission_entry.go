package model

import (
	"errors"
	"time"
)

// PermissionEntryModel 权限条目数据模型
// 挂在单条关系上的显式 (数据范围, 动作) 授权,
// granted=false 是显式拒绝而不是"未授权"
type PermissionEntryModel struct {
	ID         string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	RelationID string     `gorm:"type:varchar(64);not null;index" json:"relationId"`
	DataScope  string     `gorm:"type:varchar(32);not null" json:"dataScope"`
	Action     string     `gorm:"type:varchar(32);not null" json:"action"`
	Granted    bool       `gorm:"not null" json:"granted"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	GrantedBy  string     `gorm:"type:varchar(64)" json:"grantedBy"`
	CreatedAt  time.Time  `gorm:"not null" json:"createdAt"`
	UpdatedAt  time.Time  `gorm:"not null" json:"updatedAt"`
}

// TableName 指定表名
func (PermissionEntryModel) TableName() string {
	return "relation_permissions"
}

// Validate 验证权限条目模型
func (pm *PermissionEntryModel) Validate() error {
	if pm.ID == "" {
		return errors.New("permission entry ID is required")
	}
	if pm.RelationID == "" {
		return errors.New("relation ID is required")
	}
	if pm.DataScope == "" {
		return errors.New("data scope is required")
	}
	if pm.Action == "" {
		return errors.New("action is required")
	}
	return nil
}

// Expired 判断条目在指定时刻是否已过期,过期条目按不存在处理
func (pm *PermissionEntryModel) Expired(now time.Time) bool {
	return pm.ExpiresAt != nil && !now.Before(*pm.ExpiresAt)
}
