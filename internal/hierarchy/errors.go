package hierarchy

import "fmt"

// ValidationError 校验错误
// 在任何变更落库之前返回,对应 HTTP 422
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError 创建校验错误
func NewValidationError(field string, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// CycleError 环路错误
// 创建关系会在继承方向形成环时返回,对应 HTTP 409
type CycleError struct {
	FromID string
	ToID   string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("creating relation %s -> %s would create a cycle", e.FromID, e.ToID)
}

// NewCycleError 创建环路错误
func NewCycleError(fromID string, toID string) *CycleError {
	return &CycleError{FromID: fromID, ToID: toID}
}

// DuplicateError 重复关系错误
// 同组织内同类型的活跃关系已存在时返回,对应 HTTP 409
type DuplicateError struct {
	FromID       string
	ToID         string
	RelationType string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("active %s relation %s -> %s already exists", e.RelationType, e.FromID, e.ToID)
}

// NewDuplicateError 创建重复关系错误
func NewDuplicateError(fromID string, toID string, relationType string) *DuplicateError {
	return &DuplicateError{FromID: fromID, ToID: toID, RelationType: relationType}
}

// NotFoundError 资源不存在错误
// 仅用于关系/条目等图内资源,访问检查中的未知实体退化为拒绝判定而不是错误
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// NewNotFoundError 创建资源不存在错误
func NewNotFoundError(resource string, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}
