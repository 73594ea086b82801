package configs

import (
	"github.com/spf13/viper"
)

// BackendType 附件存储后端类型.
type BackendType string

const (
	BackendFilesystem BackendType = "filesystem" // 本地文件系统
	BackendSQLite     BackendType = "sqlite"     // SQLite blob 列
	BackendPostgreSQL BackendType = "postgresql" // PostgreSQL large object
	BackendS3         BackendType = "s3"         // S3 兼容对象存储
	// 以下后端已声明但未实现，选中时在启动阶段直接失败.
	BackendMySQL  BackendType = "mysql"
	BackendOracle BackendType = "oracle"
)

const (
	DefaultBackend          = string(BackendFilesystem)
	DefaultMediaRoot        = "media"            // 文件系统后端根目录
	DefaultBaseURL          = ""                 // 生成直链的基础 URL，空表示未配置
	DefaultUploadPrefix     = "attachments"      // 存储名前缀
	DefaultMaxSize          = 32 * 1024 * 1024   // 单附件大小上限（字节）
	DefaultPreserveOnDelete = false              // 删除时保留物理文件（改名标记）
	DefaultRemovedSuffix    = "_removed"         // 保留文件的改名后缀
	DefaultPurgeAfterDays   = 30                 // 被标记文件的保留天数
	DefaultPurgeCron        = "30 3 * * *"       // 每天 03:30 清理被标记文件
	DefaultIntegrityCron    = "0 4 * * 0"        // 每周日 04:00 校验和扫描
)

// StorageConfig 附件存储后端配置. Backend 在部署期选定一个，
// 启动时构造对应实例注入仓储与服务，运行期不允许切换.
type StorageConfig struct {
	Backend          string `mapstructure:"backend"            rule:"oneof=filesystem sqlite postgresql mysql oracle s3"`
	MediaRoot        string `mapstructure:"media_root"`
	BaseURL          string `mapstructure:"base_url"`
	UploadPrefix     string `mapstructure:"upload_prefix"`
	MaxSize          int64  `mapstructure:"max_size"           rule:"min=1"`
	PreserveOnDelete bool   `mapstructure:"preserve_on_delete"`
	RemovedSuffix    string `mapstructure:"removed_suffix"`
	PurgeAfterDays   int    `mapstructure:"purge_after_days"   rule:"min=1"`
	PurgeCron        string `mapstructure:"purge_cron"`
	IntegrityCron    string `mapstructure:"integrity_cron"`
}

// setDefaults 设置附件存储配置的默认值.
func (c *StorageConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("storage.backend", DefaultBackend)
	v.SetDefault("storage.media_root", DefaultMediaRoot)
	v.SetDefault("storage.base_url", DefaultBaseURL)
	v.SetDefault("storage.upload_prefix", DefaultUploadPrefix)
	v.SetDefault("storage.max_size", DefaultMaxSize)
	v.SetDefault("storage.preserve_on_delete", DefaultPreserveOnDelete)
	v.SetDefault("storage.removed_suffix", DefaultRemovedSuffix)
	v.SetDefault("storage.purge_after_days", DefaultPurgeAfterDays)
	v.SetDefault("storage.purge_cron", DefaultPurgeCron)
	v.SetDefault("storage.integrity_cron", DefaultIntegrityCron)
}
