// Package handle 提供请求处理器的实现，用于处理HTTP请求.
package handle

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/attachvault/pkg/internal/types"
)

// requestUserID 提取触发请求的用户 ID：Header 优先 -> query 参数.
// 空或非法返回 0（匿名）.
func requestUserID(c *gin.Context) uint64 {
	raw := c.GetHeader("X-User-ID")
	if raw == "" {
		raw = c.Query("user_id")
	}

	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}

	return id
}

// statusOf 把领域错误映射为 HTTP 状态码.
func statusOf(err error) int {
	switch {
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrInvalidToken),
		errors.Is(err, types.ErrStaleSubmission),
		errors.Is(err, types.ErrSpamDetected):
		return http.StatusForbidden
	case errors.Is(err, types.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, types.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrStorageWrite):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.JSON(statusOf(err), gin.H{"error": err.Error()})
}
