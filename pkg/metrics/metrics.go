// Package metrics 提供监控指标功能.
// 支持 Prometheus 标准，收集 HTTP 层与附件存储层指标.
//
// Example:
//
//	err := metrics.InitMetrics(config.Metrics)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	metrics.UploadCounter.WithLabelValues("filesystem").Inc()
package metrics

import (
	"net/http"
	_ "net/http/pprof" // 自动注册pprof端点

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yeisme/attachvault/pkg/configs"
)

// 全局指标变量.
var (
	// RequestCounter HTTP请求计数器.
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint"},
	)

	// RequestDuration HTTP请求持续时间.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// UploadCounter 附件上传计数器，按后端标签区分.
	UploadCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attachment_uploads_total",
			Help: "Total number of accepted attachment uploads",
		},
		[]string{"backend"},
	)

	// DownloadCounter 附件下载计数器.
	DownloadCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attachment_downloads_total",
			Help: "Total number of attachment downloads",
		},
		[]string{"backend"},
	)

	// StorageWriteFailures 二进制写入阶段的失败计数（子事务回滚）.
	StorageWriteFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attachment_storage_write_failures_total",
			Help: "Total number of rolled back binary writes",
		},
		[]string{"backend"},
	)

	// IntegrityViolations 读取时校验和不匹配的计数.
	IntegrityViolations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attachment_integrity_violations_total",
			Help: "Total number of checksum mismatches detected on read",
		},
		[]string{"backend"},
	)

	// registry Prometheus注册表.
	registry = prometheus.NewRegistry()
)

// InitMetrics 初始化Metrics.
func InitMetrics(config configs.MetricsConfig) error {
	if !config.Enabled {
		return nil
	}

	// 注册标准收集器
	if config.RuntimeMetrics {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	// 注册自定义指标
	registry.MustRegister(
		RequestCounter, RequestDuration,
		UploadCounter, DownloadCounter,
		StorageWriteFailures, IntegrityViolations,
	)

	return nil
}

// StartMetricsServer 在 gin 引擎上注册指标与 pprof 端点.
func StartMetricsServer(config configs.MetricsConfig, engine *gin.Engine) error {
	if !config.Enabled {
		return nil
	}

	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	if config.Pprof {
		engine.GET("/debug/pprof/*any", gin.WrapH(http.DefaultServeMux))
	}

	return nil
}

// GetRegistry 获取Prometheus注册表.
func GetRegistry() *prometheus.Registry {
	return registry
}
