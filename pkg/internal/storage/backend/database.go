package backend

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/yeisme/attachvault/pkg/configs"
	"github.com/yeisme/attachvault/pkg/internal/model"
	"github.com/yeisme/attachvault/pkg/internal/types"
)

// savepointName 数据库型后端写载荷时使用的子事务名.
const savepointName = "attachment_blob"

// dbBase 数据库型后端的公共部分：存储名分配、直链生成.
// 载荷列的具体读写由 sqlite/postgres 各自实现.
type dbBase struct {
	cfg *configs.StorageConfig
}

// AvailableName 通过查询 file_name 占用情况分配存储名. 与文件系统
// 后端一样，检查与插入之间存在竞态窗口.
func (b *dbBase) AvailableName(ctx context.Context, tx *gorm.DB, desired string) (string, error) {
	name := desired
	ext := path.Ext(desired)
	stem := strings.TrimSuffix(desired, ext)

	for n := 1; ; n++ {
		var count int64
		if err := tx.WithContext(ctx).Model(&model.Attachment{}).
			Where("file_name = ?", name).Count(&count).Error; err != nil {
			return "", fmt.Errorf("check name %s: %w", name, err)
		}

		if count == 0 {
			return name, nil
		}

		name = stem + "_" + strconv.Itoa(n) + ext
	}
}

// Exists 以元数据行是否仍在为准.
func (b *dbBase) Exists(ctx context.Context, tx *gorm.DB, att *model.Attachment) (bool, error) {
	var count int64
	if err := tx.WithContext(ctx).Model(&model.Attachment{}).
		Where("id = ?", att.ID).Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

func (b *dbBase) URL(_ context.Context, att *model.Attachment) (string, error) {
	if b.cfg.BaseURL == "" {
		return "", types.ErrNotConfigured
	}

	return strings.TrimSuffix(b.cfg.BaseURL, "/") + "/" + att.Slug, nil
}
