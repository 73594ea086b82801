package model

import (
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Attachment 附件元数据行. 载荷字节由 backend 字段指向的存储后端持有：
// 文件系统/S3 后端用 FileName 作为存储路径，SQLite 后端写 Blob 列，
// PostgreSQL 后端把 large object 句柄记在 BlobOID.
//
// Backend 在创建时写入且之后不再变化，切换后端属于数据迁移而非行更新.
type Attachment struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// 多态 owner 引用：任意领域对象通过 {类型标签, 数字ID} 关联附件
	OwnerType string `gorm:"size:100;index:idx_owner" json:"owner_type"`
	OwnerID   uint64 `gorm:"index:idx_owner"          json:"owner_id"`

	CreatorID   uint64 `gorm:"index"                 json:"creator_id"`
	Description string `gorm:"size:100"              json:"description"`
	FileName    string `gorm:"size:512;index"        json:"file_name"`
	Blob        []byte `gorm:"type:blob"             json:"-"`
	BlobOID     int64  `json:"-"`
	Backend     string `gorm:"size:100"              json:"backend"`

	// 载荷派生元数据，保存时由 pre-save 钩子重算
	MimeType string `gorm:"size:50"                  json:"mime_type"`
	Slug     string `gorm:"size:100;uniqueIndex"     json:"slug"`
	Size     int64  `json:"size"`
	Checksum string `gorm:"size:32"                  json:"checksum"`

	IsPublic  bool   `gorm:"default:true"            json:"is_public"`
	SiteID    uint   `json:"site_id"`
	IPAddress string `gorm:"size:45"                 json:"ip_address"`

	CreatedAt time.Time `gorm:"column:created_at"  json:"created_at"`
	UpdatedAt time.Time `gorm:"column:modified_at" json:"modified_at"`
}

func (Attachment) TableName() string {
	return "attachments"
}

// BaseName 返回存储名中的文件名部分.
func (a *Attachment) BaseName() string {
	return path.Base(strings.ReplaceAll(a.FileName, "\\", "/"))
}

// PreSlug 拼出待 slug 化的原始串. 包含行 ID，因此只有在首次插入
// 拿到 ID 之后才能计算最终 slug.
func (a *Attachment) PreSlug() string {
	return strings.Join([]string{
		a.OwnerType,
		strconv.FormatUint(uint64(a.ID), 10),
		a.BaseName(),
	}, "-")
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify 把任意串转为 URL 安全的 slug：小写、非字母数字折叠为单个
// 连字符、去掉首尾连字符.
func Slugify(s string) string {
	s = strings.ToLower(s)
	s = nonSlugChars.ReplaceAllString(s, "-")

	return strings.Trim(s, "-")
}
