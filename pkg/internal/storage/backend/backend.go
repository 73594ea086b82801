// Package backend 实现可插拔的附件载荷存储后端.
//
// 元数据行始终存放在关系库（见 storage/db），载荷字节的去向由部署期
// 选定的后端决定：本地文件系统、SQLite blob 列、PostgreSQL large
// object 或 S3 兼容对象存储. mysql/oracle 已声明但未实现，选中时
// New 直接失败，避免半可用状态.
//
// 数据库类后端的 Write 在调用方事务内通过 savepoint 执行：写入失败
// 只回滚载荷更新，已插入的元数据行保留，调用方可对同一行重试.
package backend

import (
	"context"
	"fmt"
	"io"

	"gorm.io/gorm"

	"github.com/yeisme/attachvault/pkg/configs"
	"github.com/yeisme/attachvault/pkg/internal/model"
	"github.com/yeisme/attachvault/pkg/internal/storage/s3"
	"github.com/yeisme/attachvault/pkg/internal/types"
)

// Backend 附件载荷存取接口. tx 是调用方的元数据事务，路径型后端
// （文件系统/S3）可以忽略它，数据库型后端必须在其中读写 blob 列.
type Backend interface {
	// Name 返回后端标识，写入元数据行的 backend 字段.
	Name() string

	// AvailableName 基于期望存储名返回一个当前未被占用的名字.
	// 检查与后续写入不是一个原子操作，并发上传同名文件时两个调用
	// 可能拿到同一个名字；slug 唯一索引是最终兜底.
	AvailableName(ctx context.Context, tx *gorm.DB, desired string) (string, error)

	// Write 写入载荷字节. 调用前 att 必须已插入元数据行（ID 非零）.
	Write(ctx context.Context, tx *gorm.DB, att *model.Attachment, content io.Reader) error

	// Open 按元数据行读取载荷.
	Open(ctx context.Context, tx *gorm.DB, att *model.Attachment) (io.ReadCloser, error)

	// Unlink 删除载荷. preserve_on_delete 开启时路径型后端改名保留.
	Unlink(ctx context.Context, tx *gorm.DB, att *model.Attachment) error

	// Exists 载荷是否存在.
	Exists(ctx context.Context, tx *gorm.DB, att *model.Attachment) (bool, error)

	// Size 载荷当前字节数，取自存储而非元数据行.
	Size(ctx context.Context, tx *gorm.DB, att *model.Attachment) (int64, error)

	// URL 返回载荷的直链. 未配置 base_url 的后端返回 ErrNotConfigured.
	URL(ctx context.Context, att *model.Attachment) (string, error)
}

// Deps 构造后端所需的外部资源.
type Deps struct {
	Cfg *configs.StorageConfig
	S3  *s3.Client
}

// Factory 定义创建后端的工厂函数.
type Factory func(deps Deps) (Backend, error)

var factories = map[configs.BackendType]Factory{}

// RegisterFactory 注册指定类型的后端工厂.
func RegisterFactory(t configs.BackendType, f Factory) {
	factories[t] = f
}

// GetRegisteredBackendTypes 返回所有已注册的后端类型（含声明未实现的）.
func GetRegisteredBackendTypes() []configs.BackendType {
	types := make([]configs.BackendType, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}

	return types
}

// 已声明但未实现的后端：启动阶段即报错.
func init() {
	unsupported := func(t configs.BackendType) Factory {
		return func(Deps) (Backend, error) {
			return nil, fmt.Errorf("%w: %s", types.ErrUnsupportedBackend, t)
		}
	}

	RegisterFactory(configs.BackendMySQL, unsupported(configs.BackendMySQL))
	RegisterFactory(configs.BackendOracle, unsupported(configs.BackendOracle))
}

// New 按配置构造载荷后端.
func New(deps Deps) (Backend, error) {
	t := configs.BackendType(deps.Cfg.Backend)

	factory, ok := factories[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrUnsupportedBackend, t)
	}

	return factory(deps)
}
