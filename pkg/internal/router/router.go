// Package router 管理路由配置，将路径绑定到 pkg/internal/handle 的处理器.
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterAPIRoutes 注册 /api/v1 下的全部业务路由.
func RegisterAPIRoutes(g *gin.RouterGroup) {
	RegisterAttachmentsRoutes(g)
	RegisterHealthCheckRoute(g)
}
