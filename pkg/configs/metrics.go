package configs

import (
	"github.com/spf13/viper"
)

const (
	DefaultMetricsEnabled = true  // 默认启用指标
	DefaultMetricsRuntime = true  // 默认收集运行时指标
	DefaultMetricsPprof   = false // 默认不开放 pprof
)

// MetricsConfig 指标相关配置，基于 Prometheus.
type MetricsConfig struct {
	Enabled        bool `mapstructure:"enabled"`         // 是否启用指标
	RuntimeMetrics bool `mapstructure:"runtime_metrics"` // 是否收集 Go 运行时与进程指标
	Pprof          bool `mapstructure:"pprof"`           // 是否开放 pprof 端点
}

func (c *MetricsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("metrics.enabled", DefaultMetricsEnabled)
	v.SetDefault("metrics.runtime_metrics", DefaultMetricsRuntime)
	v.SetDefault("metrics.pprof", DefaultMetricsPprof)
}
