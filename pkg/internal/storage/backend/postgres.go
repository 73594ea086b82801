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

// postgresBackend 把载荷存为 PostgreSQL large object，行里只记 OID.
// 与 blob 列相比，large object 支持 2GB 以上载荷且按页存取.
type postgresBackend struct {
	dbBase
}

func init() {
	RegisterFactory(configs.BackendPostgreSQL, func(deps Deps) (Backend, error) {
		return &postgresBackend{dbBase: dbBase{cfg: deps.Cfg}}, nil
	})
}

func (b *postgresBackend) Name() string {
	return string(configs.BackendPostgreSQL)
}

// Write 在 savepoint 内创建 large object 并把 OID 写回行.
// 替换已有载荷时先 unlink 旧对象，避免孤儿 OID 累积.
func (b *postgresBackend) Write(ctx context.Context, tx *gorm.DB, att *model.Attachment, content io.Reader) error {
	data, err := io.ReadAll(content)
	if err != nil {
		return fmt.Errorf("%w: read content: %v", types.ErrValidation, err)
	}

	if err := tx.SavePoint(savepointName).Error; err != nil {
		return fmt.Errorf("%w: savepoint: %v", types.ErrStorageWrite, err)
	}

	if att.BlobOID != 0 {
		if err := tx.WithContext(ctx).Exec("SELECT lo_unlink(?)", att.BlobOID).Error; err != nil {
			tx.RollbackTo(savepointName)

			return fmt.Errorf("%w: unlink old oid=%d: %v", types.ErrStorageWrite, att.BlobOID, err)
		}
	}

	var oid int64
	if err := tx.WithContext(ctx).Raw("SELECT lo_from_bytea(0, ?)", data).Scan(&oid).Error; err != nil {
		tx.RollbackTo(savepointName)

		return fmt.Errorf("%w: lo_from_bytea: %v", types.ErrStorageWrite, err)
	}

	if err := tx.WithContext(ctx).Model(&model.Attachment{}).
		Where("id = ?", att.ID).Update("blob_oid", oid).Error; err != nil {
		tx.RollbackTo(savepointName)

		return fmt.Errorf("%w: update blob_oid for id=%d: %v", types.ErrStorageWrite, att.ID, err)
	}

	att.BlobOID = oid

	return nil
}

func (b *postgresBackend) Open(ctx context.Context, tx *gorm.DB, att *model.Attachment) (io.ReadCloser, error) {
	if att.BlobOID == 0 {
		return nil, fmt.Errorf("%w: id=%d has no payload", types.ErrNotFound, att.ID)
	}

	var data []byte
	if err := tx.WithContext(ctx).Raw("SELECT lo_get(?)", att.BlobOID).Scan(&data).Error; err != nil {
		return nil, fmt.Errorf("lo_get oid=%d: %w", att.BlobOID, err)
	}

	if att.Checksum != "" {
		if got := checksum.DigestBytes(data); got != att.Checksum {
			return nil, fmt.Errorf("%w: slug=%s expected=%s actual=%s",
				types.ErrIntegrityViolation, att.Slug, att.Checksum, got)
		}
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// Unlink 在 savepoint 内释放 large object 并清掉 OID，与 Write 的
// 子事务语义对称.
func (b *postgresBackend) Unlink(ctx context.Context, tx *gorm.DB, att *model.Attachment) error {
	if att.BlobOID == 0 {
		return nil
	}

	if err := tx.SavePoint(savepointName).Error; err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}

	if err := tx.WithContext(ctx).Exec("SELECT lo_unlink(?)", att.BlobOID).Error; err != nil {
		tx.RollbackTo(savepointName)

		return fmt.Errorf("lo_unlink oid=%d: %w", att.BlobOID, err)
	}

	if err := tx.WithContext(ctx).Model(&model.Attachment{}).
		Where("id = ?", att.ID).Update("blob_oid", 0).Error; err != nil {
		tx.RollbackTo(savepointName)

		return fmt.Errorf("clear blob_oid for id=%d: %w", att.ID, err)
	}

	att.BlobOID = 0

	return nil
}

func (b *postgresBackend) Size(ctx context.Context, tx *gorm.DB, att *model.Attachment) (int64, error) {
	if att.BlobOID == 0 {
		return 0, fmt.Errorf("%w: id=%d has no payload", types.ErrNotFound, att.ID)
	}

	var size int64
	if err := tx.WithContext(ctx).
		Raw("SELECT length(lo_get(?))", att.BlobOID).Scan(&size).Error; err != nil {
		return 0, err
	}

	return size, nil
}
