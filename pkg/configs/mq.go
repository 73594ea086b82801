package configs

import (
	"github.com/spf13/viper"
)

// MQType 消息队列类型.
type MQType string

const (
	MQTypeNATS      MQType = "nats"
	MQTypeGoChannel MQType = "gochannel" // 进程内 pub/sub，开发与测试默认

	DefaultMQType          = string(MQTypeGoChannel)
	DefaultMQURL           = "nats://localhost:4222"
	DefaultMQClientID      = "attachvault-app"
	DefaultMaxReconnects   = 5  // 默认最大重连次数
	DefaultReconnectWait   = 5  // 默认重连等待时间（秒）
	DefaultMQPingInterval  = 20 // 默认 ping 间隔（秒）
	DefaultMQBufferSize    = 32768
	DefaultJetStreamEnable = false
)

// MQConfig 消息队列配置，用于发布附件写入/替换/删除事件.
type MQConfig struct {
	Type             MQType `mapstructure:"type"              rule:"oneof=nats gochannel"`
	URL              string `mapstructure:"url"`
	User             string `mapstructure:"user"`
	Password         string `mapstructure:"password"`
	ClientID         string `mapstructure:"client_id"`
	MaxReconnects    int    `mapstructure:"max_reconnects"    rule:"min=0,max=100"`
	ReconnectWait    int    `mapstructure:"reconnect_wait"    rule:"min=1,max=300"`
	PingInterval     int    `mapstructure:"ping_interval"     rule:"min=1,max=300"`
	BufferSize       int    `mapstructure:"buffer_size"`
	JetStreamEnabled bool   `mapstructure:"jetstream_enabled"`
}

// setDefaults 设置消息队列配置的默认值.
func (c *MQConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("mq.type", DefaultMQType)
	v.SetDefault("mq.url", DefaultMQURL)
	v.SetDefault("mq.client_id", DefaultMQClientID)
	v.SetDefault("mq.max_reconnects", DefaultMaxReconnects)
	v.SetDefault("mq.reconnect_wait", DefaultReconnectWait)
	v.SetDefault("mq.ping_interval", DefaultMQPingInterval)
	v.SetDefault("mq.buffer_size", DefaultMQBufferSize)
	v.SetDefault("mq.jetstream_enabled", DefaultJetStreamEnable)
}
