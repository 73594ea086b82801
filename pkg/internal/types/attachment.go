package types

// UploadAttachmentRequest 上传表单字段. 文件本体走 multipart 的
// attachment_file 字段，不在这里.
type UploadAttachmentRequest struct {
	OwnerType   string `form:"owner_type"  json:"owner_type"  rule:"required,max=100"`
	OwnerID     uint64 `form:"owner_id"    json:"owner_id"    rule:"required"`
	Description string `form:"description" json:"description" rule:"max=100"`
	IsPublic    *bool  `form:"is_public"   json:"is_public"`

	// 防伪令牌三元组，由 GET /token 下发
	Timestamp int64  `form:"timestamp" json:"timestamp" rule:"required"`
	Token     string `form:"token"     json:"token"     rule:"required,len=40"`

	// Honeypot 蜜罐字段，浏览器对人类隐藏；机器人填了就拒绝.
	Honeypot string `form:"website" json:"-"`
}

// AttachmentResponse 附件元数据的对外表示，不含载荷字节.
type AttachmentResponse struct {
	ID          uint   `json:"id"`
	Slug        string `json:"slug"`
	OwnerType   string `json:"owner_type"`
	OwnerID     uint64 `json:"owner_id"`
	FileName    string `json:"file_name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mime_type"`
	Size        int64  `json:"size"`
	Checksum    string `json:"checksum"`
	Backend     string `json:"backend"`
	IsPublic    bool   `json:"is_public"`
	CreatedAt   string `json:"created_at"`
	ModifiedAt  string `json:"modified_at"`
	URL         string `json:"url,omitempty"`
}

// ListAttachmentsRequest 按 owner 列出附件.
type ListAttachmentsRequest struct {
	OwnerType      string `form:"owner_type" json:"owner_type" rule:"required,max=100"`
	OwnerID        uint64 `form:"owner_id"   json:"owner_id"   rule:"required"`
	IncludePrivate bool   `form:"include_private" json:"include_private"`
}

// ListAttachmentsResponse 列表响应.
type ListAttachmentsResponse struct {
	Total       int                  `json:"total"`
	Attachments []AttachmentResponse `json:"attachments"`
}

// TokenRequest 申请上传令牌.
type TokenRequest struct {
	OwnerType string `form:"owner_type" json:"owner_type" rule:"required,max=100"`
	OwnerID   uint64 `form:"owner_id"   json:"owner_id"   rule:"required"`
}

// TokenResponse 令牌响应，客户端原样回传 timestamp 与 token.
type TokenResponse struct {
	Timestamp int64  `json:"timestamp"`
	Token     string `json:"token"`
}
