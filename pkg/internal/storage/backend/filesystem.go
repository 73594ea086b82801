package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/yeisme/attachvault/pkg/configs"
	"github.com/yeisme/attachvault/pkg/internal/model"
	"github.com/yeisme/attachvault/pkg/internal/types"
)

// filesystemBackend 把载荷写到 media_root 下的本地文件.
type filesystemBackend struct {
	cfg *configs.StorageConfig
}

func init() {
	RegisterFactory(configs.BackendFilesystem, func(deps Deps) (Backend, error) {
		if deps.Cfg.MediaRoot == "" {
			return nil, fmt.Errorf("filesystem backend requires media_root")
		}

		if err := os.MkdirAll(deps.Cfg.MediaRoot, 0o755); err != nil {
			return nil, fmt.Errorf("create media root: %w", err)
		}

		return &filesystemBackend{cfg: deps.Cfg}, nil
	})
}

func (b *filesystemBackend) Name() string {
	return string(configs.BackendFilesystem)
}

// abs 把存储名映射为 media_root 下的绝对路径.
func (b *filesystemBackend) abs(name string) string {
	return filepath.Join(b.cfg.MediaRoot, filepath.FromSlash(name))
}

// AvailableName 在期望名被占用时追加 _1/_2/... 直到找到空位.
// 存在性检查和实际写入之间没有锁，两个并发上传可能抢到同一个名字，
// 后写者覆盖前者；代价可以接受，slug 唯一索引保证行不会混淆.
func (b *filesystemBackend) AvailableName(_ context.Context, _ *gorm.DB, desired string) (string, error) {
	name := desired
	ext := path.Ext(desired)
	stem := strings.TrimSuffix(desired, ext)

	for n := 1; ; n++ {
		if _, err := os.Stat(b.abs(name)); errors.Is(err, os.ErrNotExist) {
			return name, nil
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("stat %s: %w", name, err)
		}

		name = stem + "_" + strconv.Itoa(n) + ext
	}
}

func (b *filesystemBackend) Write(_ context.Context, _ *gorm.DB, att *model.Attachment, content io.Reader) error {
	target := b.abs(att.FileName)

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("%w: mkdir: %v", types.ErrStorageWrite, err)
	}

	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", types.ErrStorageWrite, att.FileName, err)
	}

	if _, err := io.Copy(f, content); err != nil {
		f.Close()
		os.Remove(target)

		return fmt.Errorf("%w: write %s: %v", types.ErrStorageWrite, att.FileName, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", types.ErrStorageWrite, att.FileName, err)
	}

	return nil
}

func (b *filesystemBackend) Open(_ context.Context, _ *gorm.DB, att *model.Attachment) (io.ReadCloser, error) {
	f, err := os.Open(b.abs(att.FileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", types.ErrNotFound, att.FileName)
	} else if err != nil {
		return nil, err
	}

	return f, nil
}

// Unlink 删除载荷文件. preserve_on_delete 开启时改名标记，等待定时
// 清理任务物理清除.
func (b *filesystemBackend) Unlink(_ context.Context, _ *gorm.DB, att *model.Attachment) error {
	target := b.abs(att.FileName)

	if b.cfg.PreserveOnDelete {
		err := os.Rename(target, target+b.cfg.RemovedSuffix)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return err
	}

	err := os.Remove(target)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return err
}

func (b *filesystemBackend) Exists(_ context.Context, _ *gorm.DB, att *model.Attachment) (bool, error) {
	_, err := os.Stat(b.abs(att.FileName))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, err
	}

	return true, nil
}

func (b *filesystemBackend) Size(_ context.Context, _ *gorm.DB, att *model.Attachment) (int64, error) {
	fi, err := os.Stat(b.abs(att.FileName))
	if errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("%w: %s", types.ErrNotFound, att.FileName)
	} else if err != nil {
		return 0, err
	}

	return fi.Size(), nil
}

func (b *filesystemBackend) URL(_ context.Context, att *model.Attachment) (string, error) {
	if b.cfg.BaseURL == "" {
		return "", types.ErrNotConfigured
	}

	return strings.TrimSuffix(b.cfg.BaseURL, "/") + "/" + att.FileName, nil
}
