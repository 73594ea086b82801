package handle

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/attachvault/pkg/internal/service"
	"github.com/yeisme/attachvault/pkg/internal/types"
	"github.com/yeisme/attachvault/pkg/log"
	"github.com/yeisme/attachvault/pkg/rule"
)

// uploadFileField multipart 表单里文件本体的字段名.
const uploadFileField = "attachment_file"

// GetUploadToken 下发上传令牌.
//
//	@Summary		获取上传令牌
//	@Description	为指定 owner 生成带时间戳的防伪令牌，上传时原样回传
//	@Tags			附件
//	@Produce		json
//	@Param			owner_type	query		string				true	"owner 类型标签"
//	@Param			owner_id	query		integer				true	"owner 数字 ID"
//	@Success		200			{object}	types.TokenResponse	"令牌"
//	@Failure		400			{object}	map[string]string	"请求参数错误"
//	@Router			/api/v1/attachments/token [get]
func GetUploadToken(c *gin.Context) {
	var req types.TokenRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if err := rule.ValidateStruct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	svc := service.NewAttachmentService(c.Request.Context())

	c.JSON(http.StatusOK, svc.GenerateToken(&req))
}

// UploadAttachment 接收 multipart 上传.
//
//	@Summary		上传附件
//	@Description	校验令牌与蜜罐后持久化附件，文件本体放在 attachment_file 字段
//	@Tags			附件
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			attachment_file	formData	file						true	"文件本体"
//	@Param			owner_type		formData	string						true	"owner 类型标签"
//	@Param			owner_id		formData	integer						true	"owner 数字 ID"
//	@Param			timestamp		formData	integer						true	"令牌时间戳"
//	@Param			token			formData	string						true	"防伪令牌"
//	@Success		201				{object}	types.AttachmentResponse	"新附件"
//	@Failure		400				{object}	map[string]string			"请求参数错误"
//	@Failure		403				{object}	map[string]string			"令牌无效/过期/蜜罐命中"
//	@Failure		413				{object}	map[string]string			"载荷超限"
//	@Router			/api/v1/attachments [post]
func UploadAttachment(c *gin.Context) {
	l := log.Logger()

	var req types.UploadAttachmentRequest
	if err := c.ShouldBind(&req); err != nil {
		l.Warn().Err(err).Msg("invalid upload form")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if err := rule.ValidateStruct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	fh, err := c.FormFile(uploadFileField)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("missing %s field", uploadFileField)})

		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}
	defer f.Close()

	svc := service.NewAttachmentService(c.Request.Context())

	resp, err := svc.SubmitUpload(c.Request.Context(), &req, fh.Filename, f,
		requestUserID(c), c.ClientIP())
	if err != nil {
		l.Warn().Err(err).Str("owner_type", req.OwnerType).Msg("upload rejected")
		abortWithError(c, err)

		return
	}

	c.JSON(http.StatusCreated, resp)
}

// ListAttachments 列出某个 owner 的附件.
//
//	@Summary		附件列表
//	@Description	按 owner 列出附件，默认只含公开附件，创建时间升序
//	@Tags			附件
//	@Produce		json
//	@Param			owner_type		query		string							true	"owner 类型标签"
//	@Param			owner_id		query		integer							true	"owner 数字 ID"
//	@Param			include_private	query		boolean							false	"包含私有附件"
//	@Success		200				{object}	types.ListAttachmentsResponse	"附件列表"
//	@Failure		400				{object}	map[string]string				"请求参数错误"
//	@Router			/api/v1/attachments [get]
func ListAttachments(c *gin.Context) {
	var req types.ListAttachmentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if err := rule.ValidateStruct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	// 匿名请求不允许窥探私有附件
	if req.IncludePrivate && requestUserID(c) == 0 {
		req.IncludePrivate = false
	}

	svc := service.NewAttachmentService(c.Request.Context())

	resp, err := svc.ListForOwner(c.Request.Context(), &req)
	if err != nil {
		abortWithError(c, err)

		return
	}

	c.JSON(http.StatusOK, resp)
}

// DownloadAttachment 按 slug 下载载荷.
//
//	@Summary		下载附件
//	@Description	返回载荷字节流，私有附件需要携带用户标识
//	@Tags			附件
//	@Produce		application/octet-stream
//	@Param			slug	path		string				true	"附件 slug"
//	@Success		200		{file}		file				"载荷流"
//	@Failure		403		{object}	map[string]string	"私有附件"
//	@Failure		404		{object}	map[string]string	"不存在"
//	@Failure		500		{object}	map[string]string	"载荷损坏或后端故障"
//	@Router			/api/v1/attachments/{slug} [get]
func DownloadAttachment(c *gin.Context) {
	l := log.Logger()
	slug := c.Param("slug")

	svc := service.NewAttachmentService(c.Request.Context())

	att, rc, err := svc.FetchForDownload(c.Request.Context(), slug)
	if err != nil {
		l.Warn().Err(err).Str("slug", slug).Msg("download failed")
		abortWithError(c, err)

		return
	}
	defer rc.Close()

	if !att.IsPublic && requestUserID(c) == 0 {
		c.JSON(http.StatusForbidden, gin.H{"error": "attachment is private"})

		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", att.BaseName()))
	c.DataFromReader(http.StatusOK, att.Size, att.MimeType, rc, nil)
}

// GetAttachmentInfo 按 slug 返回附件元数据.
//
//	@Summary		附件元数据
//	@Description	返回元数据表示，不返回载荷字节；私有附件需要携带用户标识
//	@Tags			附件
//	@Produce		json
//	@Param			slug	path		string						true	"附件 slug"
//	@Success		200		{object}	types.AttachmentResponse	"附件元数据"
//	@Failure		403		{object}	map[string]string			"私有附件"
//	@Failure		404		{object}	map[string]string			"不存在"
//	@Router			/api/v1/attachments/{slug}/info [get]
func GetAttachmentInfo(c *gin.Context) {
	slug := c.Param("slug")

	svc := service.NewAttachmentService(c.Request.Context())

	resp, err := svc.FindBySlug(c.Request.Context(), slug)
	if err != nil {
		abortWithError(c, err)

		return
	}

	if !resp.IsPublic && requestUserID(c) == 0 {
		c.JSON(http.StatusForbidden, gin.H{"error": "attachment is private"})

		return
	}

	c.JSON(http.StatusOK, resp)
}

// ReplaceAttachment 重写已有附件的载荷.
//
//	@Summary		替换附件载荷
//	@Description	重写载荷字节，校验和未变化时为幂等空操作；存储名与 slug 保持不变
//	@Tags			附件
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			slug			path		string						true	"附件 slug"
//	@Param			attachment_file	formData	file						true	"新载荷"
//	@Success		200				{object}	types.AttachmentResponse	"更新后的附件"
//	@Failure		404				{object}	map[string]string			"不存在"
//	@Failure		413				{object}	map[string]string			"载荷超限"
//	@Router			/api/v1/attachments/{slug} [put]
func ReplaceAttachment(c *gin.Context) {
	slug := c.Param("slug")

	fh, err := c.FormFile(uploadFileField)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("missing %s field", uploadFileField)})

		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}
	defer f.Close()

	svc := service.NewAttachmentService(c.Request.Context())

	resp, err := svc.ReplacePayload(c.Request.Context(), slug, f)
	if err != nil {
		abortWithError(c, err)

		return
	}

	c.JSON(http.StatusOK, resp)
}

// DeleteAttachment 删除附件.
//
//	@Summary		删除附件
//	@Description	先删载荷（或按配置改名保留）再删元数据行
//	@Tags			附件
//	@Produce		json
//	@Param			slug	path		string				true	"附件 slug"
//	@Success		204		{object}	nil					"已删除"
//	@Failure		404		{object}	map[string]string	"不存在"
//	@Router			/api/v1/attachments/{slug} [delete]
func DeleteAttachment(c *gin.Context) {
	l := log.Logger()
	slug := c.Param("slug")

	svc := service.NewAttachmentService(c.Request.Context())

	if err := svc.Remove(c.Request.Context(), slug); err != nil {
		l.Warn().Err(err).Str("slug", slug).Msg("delete failed")
		abortWithError(c, err)

		return
	}

	c.Status(http.StatusNoContent)
}
