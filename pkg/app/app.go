// Package app 提供应用程序的初始化和启动功能.
package app

import (
	contextPkg "context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yeisme/attachvault/pkg/api"
	"github.com/yeisme/attachvault/pkg/configs"
	"github.com/yeisme/attachvault/pkg/internal/jobs"
	"github.com/yeisme/attachvault/pkg/internal/storage"
	"github.com/yeisme/attachvault/pkg/log"
	"github.com/yeisme/attachvault/pkg/metrics"
	"github.com/yeisme/attachvault/pkg/middleware"
	"github.com/yeisme/attachvault/pkg/scheduler"
)

// App 聚合运行一个附件服务实例所需的全部资源.
type App struct {
	Engine    *gin.Engine
	config    *configs.AppConfig
	manager   *storage.Manager
	scheduler *scheduler.Scheduler
}

// NewApp 初始化配置、日志、监控、存储与路由，返回可运行的应用.
func NewApp(configPath string) (*App, error) {
	ctx := contextPkg.Background()

	// 初始化配置
	if err := configs.InitConfig(configPath); err != nil {
		return nil, fmt.Errorf("init config: %w", err)
	}

	config := configs.GetConfig()

	log.Init()

	// 初始化监控
	if err := metrics.InitMetrics(config.Metrics); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	// 初始化存储（未实现的载荷后端在这里直接失败）
	manager, err := storage.Init(ctx)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	sched, err := scheduler.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("init scheduler: %w", err)
	}

	if err := jobs.RegisterCronJobs(sched, manager); err != nil {
		return nil, fmt.Errorf("register cron jobs: %w", err)
	}

	l := log.Logger()
	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		gzip.Gzip(gzip.DefaultCompression),
		middleware.CORSMiddleware(config.Server),
		middleware.GinLoggerMiddleware(),
		middleware.PrometheusMiddleware(),
		middleware.RateLimitMiddleware(config.RateLimit),
		middleware.CircuitBreakerMiddleware(config.CircuitBreaker),
		middleware.StorageMiddleware(manager),
		middleware.SchedulerMiddleware(sched),
	)

	api.RegisterGroup(engine)

	if config.Metrics.Enabled {
		_ = metrics.StartMetricsServer(config.Metrics, engine)
	}

	return &App{
		Engine:    engine,
		config:    config,
		manager:   manager,
		scheduler: sched,
	}, nil
}

// Run 启动 HTTP 服务与定时任务，阻塞到收到退出信号后优雅关闭.
func (a *App) Run() error {
	a.scheduler.Start()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.config.Server.Host, a.config.Server.Port),
		Handler:           a.Engine,
		ReadHeaderTimeout: a.config.Server.GetTimeoutDuration(),
	}

	errCh := make(chan error, 1)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	log.Logger().Info().Str("addr", srv.Addr).Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Logger().Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.shutdown(srv)
}

func (a *App) shutdown(srv *http.Server) error {
	ctx, cancel := contextPkg.WithTimeout(contextPkg.Background(), a.config.Server.GetTimeoutDuration())
	defer cancel()

	var err error

	if e := srv.Shutdown(ctx); e != nil {
		err = e
	}

	if e := a.scheduler.Stop(); e != nil && err == nil {
		err = e
	}

	if e := a.manager.Close(); e != nil && err == nil {
		err = e
	}

	return err
}

// Manager 返回存储管理器，主要供 CLI 子命令使用.
func (a *App) Manager() *storage.Manager {
	return a.manager
}

// Migrate 执行元数据表结构迁移.
func (a *App) Migrate() error {
	return a.manager.AutoMigrate()
}
