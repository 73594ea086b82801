package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	minio "github.com/minio/minio-go/v7"
	"gorm.io/gorm"

	"github.com/yeisme/attachvault/pkg/configs"
	"github.com/yeisme/attachvault/pkg/internal/model"
	s3c "github.com/yeisme/attachvault/pkg/internal/storage/s3"
	"github.com/yeisme/attachvault/pkg/internal/types"
)

// presignExpiry 未配置 base_url 时预签名直链的有效期.
const presignExpiry = 15 * time.Minute

// s3Backend 把载荷写到 S3 兼容对象存储，对象键即存储名.
type s3Backend struct {
	cfg    *configs.StorageConfig
	client *s3c.Client
}

func init() {
	RegisterFactory(configs.BackendS3, func(deps Deps) (Backend, error) {
		if deps.S3 == nil {
			return nil, fmt.Errorf("s3 backend requires an s3 client")
		}

		return &s3Backend{cfg: deps.Cfg, client: deps.S3}, nil
	})
}

func (b *s3Backend) Name() string {
	return string(configs.BackendS3)
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

func (b *s3Backend) AvailableName(ctx context.Context, _ *gorm.DB, desired string) (string, error) {
	name := desired
	ext := path.Ext(desired)
	stem := strings.TrimSuffix(desired, ext)

	for n := 1; ; n++ {
		_, err := b.client.StatObject(ctx, b.client.Bucket(), name, minio.StatObjectOptions{})
		if isNoSuchKey(err) {
			return name, nil
		} else if err != nil {
			return "", fmt.Errorf("stat %s: %w", name, err)
		}

		name = stem + "_" + strconv.Itoa(n) + ext
	}
}

func (b *s3Backend) Write(ctx context.Context, _ *gorm.DB, att *model.Attachment, content io.Reader) error {
	data, err := io.ReadAll(content)
	if err != nil {
		return fmt.Errorf("%w: read content: %v", types.ErrValidation, err)
	}

	_, err = b.client.PutObject(ctx, b.client.Bucket(), att.FileName,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: att.MimeType})
	if err != nil {
		return fmt.Errorf("%w: put %s: %v", types.ErrStorageWrite, att.FileName, err)
	}

	return nil
}

func (b *s3Backend) Open(ctx context.Context, _ *gorm.DB, att *model.Attachment) (io.ReadCloser, error) {
	obj, err := b.client.GetObject(ctx, b.client.Bucket(), att.FileName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", att.FileName, err)
	}

	// GetObject 懒加载，用 Stat 提前暴露对象不存在
	if _, err := obj.Stat(); err != nil {
		obj.Close()

		if isNoSuchKey(err) {
			return nil, fmt.Errorf("%w: %s", types.ErrNotFound, att.FileName)
		}

		return nil, err
	}

	return obj, nil
}

func (b *s3Backend) Unlink(ctx context.Context, _ *gorm.DB, att *model.Attachment) error {
	if b.cfg.PreserveOnDelete {
		// 对象存储没有原子改名，复制后删除源对象
		_, err := b.client.CopyObject(ctx,
			minio.CopyDestOptions{Bucket: b.client.Bucket(), Object: att.FileName + b.cfg.RemovedSuffix},
			minio.CopySrcOptions{Bucket: b.client.Bucket(), Object: att.FileName})
		if isNoSuchKey(err) {
			return nil
		} else if err != nil {
			return fmt.Errorf("preserve %s: %w", att.FileName, err)
		}
	}

	err := b.client.RemoveObject(ctx, b.client.Bucket(), att.FileName, minio.RemoveObjectOptions{})
	if err != nil && !isNoSuchKey(err) {
		return fmt.Errorf("remove %s: %w", att.FileName, err)
	}

	return nil
}

func (b *s3Backend) Exists(ctx context.Context, _ *gorm.DB, att *model.Attachment) (bool, error) {
	_, err := b.client.StatObject(ctx, b.client.Bucket(), att.FileName, minio.StatObjectOptions{})
	if isNoSuchKey(err) {
		return false, nil
	} else if err != nil {
		return false, err
	}

	return true, nil
}

func (b *s3Backend) Size(ctx context.Context, _ *gorm.DB, att *model.Attachment) (int64, error) {
	info, err := b.client.StatObject(ctx, b.client.Bucket(), att.FileName, minio.StatObjectOptions{})
	if isNoSuchKey(err) {
		return 0, fmt.Errorf("%w: %s", types.ErrNotFound, att.FileName)
	} else if err != nil {
		return 0, err
	}

	return info.Size, nil
}

// URL 优先使用配置的 base_url（例如 CDN），否则生成预签名直链.
func (b *s3Backend) URL(ctx context.Context, att *model.Attachment) (string, error) {
	if b.cfg.BaseURL != "" {
		return strings.TrimSuffix(b.cfg.BaseURL, "/") + "/" + att.FileName, nil
	}

	u, err := b.client.PresignedGetObject(ctx, b.client.Bucket(), att.FileName, presignExpiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", att.FileName, err)
	}

	return u.String(), nil
}
