package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"gorm.io/gorm"

	"github.com/yeisme/attachvault/pkg/configs"
	"github.com/yeisme/attachvault/pkg/internal/checksum"
	"github.com/yeisme/attachvault/pkg/internal/model"
	"github.com/yeisme/attachvault/pkg/internal/types"
)

// sqliteBackend 把载荷写进附件行自己的 blob 列.
type sqliteBackend struct {
	dbBase
}

func init() {
	RegisterFactory(configs.BackendSQLite, func(deps Deps) (Backend, error) {
		return &sqliteBackend{dbBase: dbBase{cfg: deps.Cfg}}, nil
	})
}

func (b *sqliteBackend) Name() string {
	return string(configs.BackendSQLite)
}

// Write 在 savepoint 内更新 blob 列. 失败只回滚载荷更新，元数据行
// 保留，调用方可重试.
func (b *sqliteBackend) Write(ctx context.Context, tx *gorm.DB, att *model.Attachment, content io.Reader) error {
	data, err := io.ReadAll(content)
	if err != nil {
		return fmt.Errorf("%w: read content: %v", types.ErrValidation, err)
	}

	if err := tx.SavePoint(savepointName).Error; err != nil {
		return fmt.Errorf("%w: savepoint: %v", types.ErrStorageWrite, err)
	}

	if err := tx.WithContext(ctx).Model(&model.Attachment{}).
		Where("id = ?", att.ID).Update("blob", data).Error; err != nil {
		tx.RollbackTo(savepointName)

		return fmt.Errorf("%w: update blob for id=%d: %v", types.ErrStorageWrite, att.ID, err)
	}

	att.Blob = data

	return nil
}

// Open 读取 blob 列并校验 md5. 不匹配说明载荷被绕过本服务改写或
// 底层损坏，拒绝返回数据.
func (b *sqliteBackend) Open(ctx context.Context, tx *gorm.DB, att *model.Attachment) (io.ReadCloser, error) {
	var row model.Attachment
	if err := tx.WithContext(ctx).Select("blob").
		Where("id = ?", att.ID).First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: id=%d", types.ErrNotFound, att.ID)
		}

		return nil, err
	}

	if att.Checksum != "" {
		if got := checksum.DigestBytes(row.Blob); got != att.Checksum {
			return nil, fmt.Errorf("%w: slug=%s expected=%s actual=%s",
				types.ErrIntegrityViolation, att.Slug, att.Checksum, got)
		}
	}

	return io.NopCloser(bytes.NewReader(row.Blob)), nil
}

// Unlink 在 savepoint 内清空 blob 列，与 Write 的子事务语义对称：
// 失败只回滚载荷变更，调用方决定外层事务的去留.
func (b *sqliteBackend) Unlink(ctx context.Context, tx *gorm.DB, att *model.Attachment) error {
	if err := tx.SavePoint(savepointName).Error; err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}

	if err := tx.WithContext(ctx).Model(&model.Attachment{}).
		Where("id = ?", att.ID).Update("blob", nil).Error; err != nil {
		tx.RollbackTo(savepointName)

		return fmt.Errorf("clear blob for id=%d: %w", att.ID, err)
	}

	att.Blob = nil

	return nil
}

func (b *sqliteBackend) Size(ctx context.Context, tx *gorm.DB, att *model.Attachment) (int64, error) {
	var size int64
	if err := tx.WithContext(ctx).Model(&model.Attachment{}).
		Where("id = ?", att.ID).Select("length(blob)").Scan(&size).Error; err != nil {
		return 0, err
	}

	return size, nil
}
