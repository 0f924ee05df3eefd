package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/streamwork/hierarchy-gin/internal/hierarchy"
)

// APIError API 错误
type APIError struct {
	Code    int
	Message string
	Detail  string
}

func (e *APIError) Error() string {
	return e.Message
}

// ErrorHandlerMiddleware 错误处理中间件
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last()

			var apiErr *APIError
			if errors.As(err, &apiErr) {
				Error(c, apiErr.Code, apiErr.Message, apiErr.Detail)
			} else {
				Error(c, http.StatusInternalServerError, "internal server error", err.Error())
			}
		}
	}
}

// WrapError 包装错误
func WrapError(err error, code int, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Detail:  err.Error(),
	}
}

// HandleServiceError 把服务层错误映射为 HTTP 响应
// 校验错误 422,环路和重复冲突 409,资源不存在 404,其余 500
func HandleServiceError(c *gin.Context, err error) {
	var validationErr *hierarchy.ValidationError
	if errors.As(err, &validationErr) {
		Error(c, http.StatusUnprocessableEntity, "validation failed", validationErr.Error())
		return
	}

	var cycleErr *hierarchy.CycleError
	if errors.As(err, &cycleErr) {
		Error(c, http.StatusConflict, "cycle detected", cycleErr.Error())
		return
	}

	var duplicateErr *hierarchy.DuplicateError
	if errors.As(err, &duplicateErr) {
		Error(c, http.StatusConflict, "duplicate relation", duplicateErr.Error())
		return
	}

	var notFoundErr *hierarchy.NotFoundError
	if errors.As(err, &notFoundErr) {
		Error(c, http.StatusNotFound, "not found", notFoundErr.Error())
		return
	}

	Error(c, http.StatusInternalServerError, "internal server error", err.Error())
}
