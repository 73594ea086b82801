// Package api 把附件子系统的 HTTP 接口挂到 gin 引擎上.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/attachvault/pkg/internal/router"
)

// RegisterGroup 注册附件相关的路由组到传入的 gin 引擎.
func RegisterGroup(e *gin.Engine) *gin.Engine {
	router.RegisterAPIRoutes(e.Group("/api/v1"))
	router.RegisterSwaggerRoute(e)

	return e
}
