// Package storage 聚合附件服务的所有存储资源：元数据库、可选的
// S3 客户端、消息队列与载荷后端.
//
// Example:
//
//	ctx := context.Background()
//	mgr, err := storage.Init(ctx)
//	if err != nil {
//	    // 处理错误
//	}
//
//	dbClient := mgr.GetDBClient()
//	payload := mgr.GetBackend()
package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/yeisme/attachvault/pkg/configs"
	"github.com/yeisme/attachvault/pkg/internal/model"
	"github.com/yeisme/attachvault/pkg/internal/storage/backend"
	dbc "github.com/yeisme/attachvault/pkg/internal/storage/db"
	mqc "github.com/yeisme/attachvault/pkg/internal/storage/mq"
	s3c "github.com/yeisme/attachvault/pkg/internal/storage/s3"
	alog "github.com/yeisme/attachvault/pkg/log"
)

// Manager 聚合所有存储资源.
type Manager struct {
	DB      *dbc.Client
	S3      *s3c.Client
	MQ      *mqc.Client
	Backend backend.Backend
}

var (
	mgr     *Manager
	mgrOnce sync.Once
)

// Init 初始化默认存储，使用全局配置. 重复调用只返回已初始化实例.
// 选中未实现的载荷后端（mysql/oracle）时在这里直接失败.
func Init(ctx context.Context) (*Manager, error) {
	var err error

	mgrOnce.Do(func() {
		cfg := configs.GetConfig()
		m := &Manager{}

		// DB
		dbi, e := dbc.New(ctx, &cfg.DB)
		if e != nil {
			err = e

			return
		}

		m.DB = dbi

		// S3 仅在选中 s3 后端时建立连接
		if configs.BackendType(cfg.Storage.Backend) == configs.BackendS3 {
			s3i, e := s3c.New(ctx, &cfg.S3)
			if e != nil {
				err = e

				return
			}

			m.S3 = s3i
		}

		// MQ
		mqi, e := mqc.New(ctx, &cfg.MQ)
		if e != nil {
			err = e

			return
		}

		m.MQ = mqi

		// 载荷后端
		be, e := backend.New(backend.Deps{Cfg: &cfg.Storage, S3: m.S3})
		if e != nil {
			err = e

			return
		}

		m.Backend = be

		mgr = m

		alog.Logger().Info().Str("backend", be.Name()).Msg("storage manager initialized")
	})

	return mgr, err
}

// GetDBClient 获取 DB 客户端.
func (m *Manager) GetDBClient() *dbc.Client {
	return m.DB
}

// GetS3Client 获取 S3 客户端，非 s3 后端部署下为 nil.
func (m *Manager) GetS3Client() *s3c.Client {
	return m.S3
}

// GetMQClient 获取 MQ 客户端.
func (m *Manager) GetMQClient() *mqc.Client {
	return m.MQ
}

// GetBackend 获取载荷后端.
func (m *Manager) GetBackend() backend.Backend {
	return m.Backend
}

// AutoMigrate 创建或更新附件元数据表结构.
func (m *Manager) AutoMigrate() error {
	if m.DB == nil || m.DB.DB == nil {
		return fmt.Errorf("db not initialized")
	}

	return m.DB.DB.AutoMigrate(&model.Attachment{})
}

// Close 释放存储资源.
func (m *Manager) Close() error {
	var err error

	if m.MQ != nil {
		if e := m.MQ.Close(); e != nil {
			err = e
		}
	}

	if m.S3 != nil {
		if e := m.S3.Close(); e != nil {
			err = e
		}
	}

	if m.DB != nil {
		if sqlDB, e := m.DB.DB.DB(); e == nil {
			if e := sqlDB.Close(); e != nil {
				err = e
			}
		}
	}

	return err
}
