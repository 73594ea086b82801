package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/attachvault/pkg/internal/handle"
)

// RegisterAttachmentsRoutes 注册附件相关路由.
func RegisterAttachmentsRoutes(g *gin.RouterGroup) {
	attachments := g.Group("/attachments")
	{
		// 上传令牌
		attachments.GET("/token", handle.GetUploadToken)

		// 上传与列表
		attachments.POST("", handle.UploadAttachment)
		attachments.GET("", handle.ListAttachments)

		// 单个附件操作，slug 为稳定标识
		single := attachments.Group("/:slug")
		{
			single.GET("", handle.DownloadAttachment)
			single.GET("/info", handle.GetAttachmentInfo)
			single.PUT("", handle.ReplaceAttachment)
			single.DELETE("", handle.DeleteAttachment)
		}
	}
}
