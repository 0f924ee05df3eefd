package utils

import (
	"fmt"
	"regexp"
)

// idPattern 实体和关系 ID 的合法格式
// 不透明字符串,限制为常见的 UUID/短 ID 字符集,防止把查询参数当 ID 透传
var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.:-]{0,63}$`)

// ValidateEntityID 验证实体 ID
func ValidateEntityID(id string) error {
	if id == "" {
		return fmt.Errorf("entity ID is required")
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("invalid entity ID format: %s", id)
	}
	return nil
}

// ValidateRelationID 验证关系 ID
func ValidateRelationID(id string) error {
	if id == "" {
		return fmt.Errorf("relation ID is required")
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("invalid relation ID format: %s", id)
	}
	return nil
}

// ValidateOrganizationID 验证组织 ID
func ValidateOrganizationID(id string) error {
	if id == "" {
		return fmt.Errorf("organization ID is required")
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("invalid organization ID format: %s", id)
	}
	return nil
}
