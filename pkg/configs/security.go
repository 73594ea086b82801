package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultSecuritySecret 默认密钥仅用于开发环境，生产部署必须覆盖.
	DefaultSecuritySecret = "attachvault-insecure-dev-secret"
	// DefaultSecuritySalt 上传令牌的专用盐，与应用其它 HMAC 用途隔离.
	DefaultSecuritySalt = "attachvault.security.UploadToken"
	// DefaultTokenTTL 上传表单令牌的有效期.
	DefaultTokenTTL = 2 * time.Hour
)

// SecurityConfig 上传令牌配置. Secret 是应用级密钥，Salt 为本功能专用盐.
type SecurityConfig struct {
	Secret   string        `mapstructure:"secret"    rule:"required"`
	Salt     string        `mapstructure:"salt"      rule:"required"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// setDefaults 设置安全配置的默认值.
func (c *SecurityConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("security.secret", DefaultSecuritySecret)
	v.SetDefault("security.salt", DefaultSecuritySalt)
	v.SetDefault("security.token_ttl", DefaultTokenTTL)
}
