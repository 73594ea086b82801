// Package repository 实现附件元数据行与载荷的持久化协议.
//
// 写入协议（Save）：
//  1. pre-save 校验：内容可读、探测大小与 MIME 类型，失败报 ErrValidation
//  2. 新行先插入元数据（此时没有 slug 与载荷），拿到自增 ID 后才能
//     计算 slug 并更新行
//  3. 载荷在 savepoint 内写入；写入失败只回滚载荷，元数据行保留并
//     提交，调用方收到 ErrStorageWrite 后可对同一行重试
//  4. 重写已有行时若校验和未变化则跳过载荷写入，保证重复提交幂等
//
// 删除协议（Delete）：先删载荷（或改名保留），成功后再删元数据行；
// 载荷删除失败时元数据行保留，避免产生无主载荷.
package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yeisme/attachvault/pkg/configs"
	"github.com/yeisme/attachvault/pkg/internal/checksum"
	"github.com/yeisme/attachvault/pkg/internal/model"
	"github.com/yeisme/attachvault/pkg/internal/storage/backend"
	"github.com/yeisme/attachvault/pkg/internal/types"
)

// AttachmentRepository 附件仓储. 元数据走注入的 gorm 连接，载荷走
// 部署期选定的后端.
type AttachmentRepository struct {
	db  *gorm.DB
	be  backend.Backend
	cfg *configs.StorageConfig
}

// NewAttachmentRepository 构造仓储.
func NewAttachmentRepository(db *gorm.DB, be backend.Backend, cfg *configs.StorageConfig) *AttachmentRepository {
	return &AttachmentRepository{db: db, be: be, cfg: cfg}
}

// Migrate 建表与索引.
func (r *AttachmentRepository) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&model.Attachment{})
}

// FindByID 按主键查找.
func (r *AttachmentRepository) FindByID(ctx context.Context, id uint) (*model.Attachment, error) {
	var att model.Attachment
	if err := r.db.WithContext(ctx).First(&att, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id=%d", types.ErrNotFound, id)
		}

		return nil, err
	}

	return &att, nil
}

// FindBySlug 按 slug 查找，下载路由的主入口.
func (r *AttachmentRepository) FindBySlug(ctx context.Context, slug string) (*model.Attachment, error) {
	var att model.Attachment
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&att).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: slug=%s", types.ErrNotFound, slug)
		}

		return nil, err
	}

	return &att, nil
}

// FindForOwner 列出某个 owner 的附件，按创建时间升序. 只返回当前
// 后端写入的行：换过后端的部署里，历史行的载荷在别处，列出来也读
// 不回. includePrivate 为 false 时只返回公开附件.
func (r *AttachmentRepository) FindForOwner(ctx context.Context, ownerType string, ownerID uint64, includePrivate bool) ([]model.Attachment, error) {
	q := r.db.WithContext(ctx).
		Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).
		Where("backend = ?", r.be.Name())

	if !includePrivate {
		q = q.Where("is_public = ?", true)
	}

	var atts []model.Attachment
	if err := q.Order("created_at asc, id asc").Find(&atts).Error; err != nil {
		return nil, err
	}

	return atts, nil
}

// Save 写入或重写附件. content 必须可 Seek，保存后读取位置会被还原.
func (r *AttachmentRepository) Save(ctx context.Context, att *model.Attachment, content io.ReadSeeker) error {
	if err := r.preSave(att, content); err != nil {
		return err
	}

	newSum, err := checksum.Digest(content)
	if err != nil {
		return fmt.Errorf("%w: digest content: %v", types.ErrValidation, err)
	}

	created := att.ID == 0

	// 重复提交同样的字节：只刷新元数据，不再写载荷
	if !created && att.Checksum == newSum {
		return r.db.WithContext(ctx).Model(att).
			Updates(map[string]any{
				"description": att.Description,
				"is_public":   att.IsPublic,
				"mime_type":   att.MimeType,
				"size":        att.Size,
			}).Error
	}

	prevSum := att.Checksum
	att.Checksum = newSum

	var writeErr error

	txErr := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if created {
			name, err := r.be.AvailableName(ctx, tx, r.desiredName(att))
			if err != nil {
				return err
			}

			att.FileName = name
			att.Backend = r.be.Name()
			// 最终 slug 依赖行 ID，插入后才能计算；先占一个临时
			// 唯一值以通过 slug 唯一索引
			att.Slug = "pending-" + uuid.NewString()

			if err := tx.Create(att).Error; err != nil {
				return err
			}

			att.Slug = model.Slugify(att.PreSlug())
		}

		if err := tx.Model(&model.Attachment{}).Where("id = ?", att.ID).
			Updates(map[string]any{
				"slug":        att.Slug,
				"checksum":    att.Checksum,
				"size":        att.Size,
				"mime_type":   att.MimeType,
				"description": att.Description,
				"is_public":   att.IsPublic,
			}).Error; err != nil {
			return err
		}

		if _, err := content.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("%w: rewind content: %v", types.ErrValidation, err)
		}

		// 载荷写入失败不回滚事务：元数据行留下，调用方可重试
		if err := r.be.Write(ctx, tx, att, content); err != nil {
			writeErr = err

			if created {
				// 新行还没有载荷，校验和必须清空；留着会让同样字节
				// 的重试命中幂等短路，载荷就永远写不进去了
				att.Checksum = ""

				return tx.Model(&model.Attachment{}).Where("id = ?", att.ID).
					Update("checksum", "").Error
			}

			// 重写失败时恢复旧校验和，行仍指向旧载荷
			att.Checksum = prevSum

			return tx.Model(&model.Attachment{}).Where("id = ?", att.ID).
				Update("checksum", prevSum).Error
		}

		return nil
	})
	if txErr != nil {
		return txErr
	}

	return writeErr
}

// Open 读取附件载荷.
func (r *AttachmentRepository) Open(ctx context.Context, att *model.Attachment) (io.ReadCloser, error) {
	return r.be.Open(ctx, r.db, att)
}

// URL 生成附件直链.
func (r *AttachmentRepository) URL(ctx context.Context, att *model.Attachment) (string, error) {
	return r.be.URL(ctx, att)
}

// Delete 删除附件：先载荷后元数据行. 载荷删除失败时整体失败.
func (r *AttachmentRepository) Delete(ctx context.Context, att *model.Attachment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.be.Unlink(ctx, tx, att); err != nil {
			return fmt.Errorf("unlink payload for id=%d: %w", att.ID, err)
		}

		return tx.Delete(&model.Attachment{}, att.ID).Error
	})
}

// Backend 返回仓储当前的载荷后端.
func (r *AttachmentRepository) Backend() backend.Backend {
	return r.be
}

// DB 返回元数据连接，供巡检任务直接查询.
func (r *AttachmentRepository) DB() *gorm.DB {
	return r.db
}

// sniffLen http.DetectContentType 最多需要的前缀字节数.
const sniffLen = 512

// preSave 探测载荷大小与 MIME 类型并写回 att. 内容不可读时报
// ErrValidation，读取位置结束时还原到起点.
func (r *AttachmentRepository) preSave(att *model.Attachment, content io.ReadSeeker) error {
	if content == nil {
		return fmt.Errorf("%w: no content", types.ErrValidation)
	}

	size, err := content.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("%w: content not seekable: %v", types.ErrValidation, err)
	}

	if _, err := content.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: rewind content: %v", types.ErrValidation, err)
	}

	head := make([]byte, sniffLen)

	n, err := content.Read(head)
	if err != nil && err != io.EOF {
		return fmt.Errorf("%w: read content: %v", types.ErrValidation, err)
	}

	if _, err := content.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: rewind content: %v", types.ErrValidation, err)
	}

	att.Size = size
	att.MimeType = http.DetectContentType(head[:n])

	return nil
}

// desiredName 拼出期望存储名：<prefix>/<ownerType>/<ownerID>/<文件名>.
// 最终名字由后端的 AvailableName 决定.
func (r *AttachmentRepository) desiredName(att *model.Attachment) string {
	return path.Join(
		r.cfg.UploadPrefix,
		att.OwnerType,
		strconv.FormatUint(att.OwnerID, 10),
		validName(att.BaseName()),
	)
}

// validName 清理上传文件名：去掉路径成分，空格换下划线.
func validName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, " ", "_")

	if name == "" || name == "." || name == ".." {
		name = "unnamed"
	}

	return name
}
