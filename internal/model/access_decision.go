package model

import (
	"errors"
	"time"
)

// AccessDecisionModel 访问判定审计记录
// 每次冷解析写入一行,写入后不可变
type AccessDecisionModel struct {
	ID               string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	OrganizationID   string    `gorm:"type:varchar(64);not null;index" json:"organizationId"`
	Domain           string    `gorm:"type:varchar(16);not null;index" json:"domain"`
	RequesterID      string    `gorm:"type:varchar(64);not null;index" json:"requesterId"`
	TargetID         string    `gorm:"type:varchar(64);not null;index" json:"targetId"`
	DataScope        string    `gorm:"type:varchar(32);not null" json:"dataScope"`
	Action           string    `gorm:"type:varchar(32);not null" json:"action"`
	Granted          bool      `gorm:"not null" json:"granted"`
	AccessLevel      string    `gorm:"type:varchar(32);not null" json:"accessLevel"`
	Via              string    `gorm:"type:varchar(64)" json:"via,omitempty"` // 关系 ID,为空表示无
	InheritanceChain []byte    `gorm:"type:jsonb" json:"inheritanceChain"`    // 实体 ID 数组
	Reason           string    `gorm:"type:varchar(255);not null" json:"reason"`
	DecidedAt        time.Time `gorm:"not null;index" json:"decidedAt"`
}

// TableName 指定表名
func (AccessDecisionModel) TableName() string {
	return "access_decisions"
}

// Validate 验证审计记录模型
func (am *AccessDecisionModel) Validate() error {
	if am.ID == "" {
		return errors.New("decision ID is required")
	}
	if am.OrganizationID == "" {
		return errors.New("organization ID is required")
	}
	if am.RequesterID == "" {
		return errors.New("requester ID is required")
	}
	if am.TargetID == "" {
		return errors.New("target ID is required")
	}
	if am.DataScope == "" {
		return errors.New("data scope is required")
	}
	if am.Action == "" {
		return errors.New("action is required")
	}
	if am.Reason == "" {
		return errors.New("reason is required")
	}
	return nil
}
