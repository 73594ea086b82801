// Package jobs 负责注册与实现业务定时任务（基于 scheduler）。
package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/minio/minio-go/v7"
	"gorm.io/gorm"

	"github.com/yeisme/attachvault/pkg/configs"
	ctxPkg "github.com/yeisme/attachvault/pkg/context"
	"github.com/yeisme/attachvault/pkg/internal/checksum"
	"github.com/yeisme/attachvault/pkg/internal/model"
	"github.com/yeisme/attachvault/pkg/internal/storage"
	"github.com/yeisme/attachvault/pkg/internal/storage/backend"
	"github.com/yeisme/attachvault/pkg/internal/types"
	"github.com/yeisme/attachvault/pkg/log"
	"github.com/yeisme/attachvault/pkg/metrics"
	"github.com/yeisme/attachvault/pkg/queue"
	"github.com/yeisme/attachvault/pkg/scheduler"
)

const scanBatchSize = 200

// RegisterCronJobs 配置业务定时任务：
//   - 按 storage.purge_cron（默认每天 03:30）清除改名保留超期的载荷
//   - 按 storage.integrity_cron（默认每周日 04:00）全量校验和扫描
func RegisterCronJobs(sched *scheduler.Scheduler, mgr *storage.Manager) error {
	if sched == nil {
		return fmt.Errorf("scheduler is nil")
	}

	if mgr == nil {
		return fmt.Errorf("storage manager is nil")
	}

	cfg := configs.GetConfig()

	// 将 storage manager 注入到 context，便于 repository 使用
	baseCtx := ctxPkg.WithStorageManager(context.Background(), mgr)

	if err := sched.AddCron(JobPayloadPurge, cfg.Storage.PurgeCron, func(ctx context.Context) {
		runPayloadPurge(ctx, mgr, &cfg.Storage)
	}, baseCtx); err != nil {
		return err
	}

	if err := sched.AddCron(JobIntegrityScan, cfg.Storage.IntegrityCron, func(ctx context.Context) {
		runIntegrityScan(ctx, mgr)
	}, baseCtx); err != nil {
		return err
	}

	return nil
}

// runPayloadPurge 清除 preserve_on_delete 改名保留、且超过
// purge_after_days 的载荷. 只有路径型后端会产生保留文件.
func runPayloadPurge(ctx context.Context, mgr *storage.Manager, cfg *configs.StorageConfig) {
	l := log.Logger().With().Str("job", JobPayloadPurge).Logger()

	suffix := cfg.RemovedSuffix
	if suffix == "" {
		suffix = configs.DefaultRemovedSuffix
	}

	before := time.Now().AddDate(0, 0, -cfg.PurgeAfterDays)

	var (
		purged int
		err    error
	)

	switch configs.BackendType(cfg.Backend) {
	case configs.BackendFilesystem:
		purged, err = purgeFilesystem(ctx, mgr, cfg.MediaRoot, suffix, before)
	case configs.BackendS3:
		purged, err = purgeS3(ctx, mgr, suffix, before)
	default:
		// 数据库型后端的 Unlink 直接清空 blob，没有保留文件可清理
		return
	}

	if err != nil {
		l.Error().Err(err).Msg("purge failed")
		return
	}

	if purged > 0 {
		l.Info().Int("purged", purged).Time("before", before).Msg("purged preserved payloads")
	}
}

func purgeFilesystem(ctx context.Context, mgr *storage.Manager, root, suffix string, before time.Time) (int, error) {
	purged := 0

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if d.IsDir() || !strings.HasSuffix(d.Name(), suffix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		if info.ModTime().After(before) {
			return nil
		}

		if err := os.Remove(path); err != nil {
			return err
		}

		purged++

		publishPurged(mgr, path, int(time.Since(info.ModTime()).Hours()/24))

		return nil
	})
	if walkErr != nil && !errors.Is(walkErr, os.ErrNotExist) {
		return purged, walkErr
	}

	return purged, nil
}

func purgeS3(ctx context.Context, mgr *storage.Manager, suffix string, before time.Time) (int, error) {
	s3c := mgr.GetS3Client()
	if s3c == nil {
		return 0, fmt.Errorf("s3 client not initialized")
	}

	purged := 0

	for obj := range s3c.ListObjects(ctx, s3c.Bucket(), minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return purged, obj.Err
		}

		if !strings.HasSuffix(obj.Key, suffix) || obj.LastModified.After(before) {
			continue
		}

		if err := s3c.RemoveObject(ctx, s3c.Bucket(), obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return purged, err
		}

		purged++

		publishPurged(mgr, obj.Key, int(time.Since(obj.LastModified).Hours()/24))
	}

	return purged, nil
}

// runIntegrityScan 重新计算所有附件载荷的校验和，与元数据行比对.
// 数据库型后端的 Open 自带校验，路径型后端在这里补算.
func runIntegrityScan(ctx context.Context, mgr *storage.Manager) {
	l := log.Logger().With().Str("job", JobIntegrityScan).Logger()

	be := mgr.GetBackend()
	if be == nil || mgr.GetDBClient() == nil {
		l.Error().Msg("storage not initialized")
		return
	}

	dbx := mgr.GetDBClient().DB.WithContext(ctx)

	var (
		scanned  int
		violated int
		batch    []model.Attachment
	)

	result := dbx.Model(&model.Attachment{}).
		Where("backend = ?", be.Name()).
		FindInBatches(&batch, scanBatchSize, func(tx *gorm.DB, _ int) error {
			for i := range batch {
				att := &batch[i]
				scanned++

				ok, err := verifyAttachment(ctx, tx, be, att)
				if err != nil {
					l.Warn().Err(err).Str("slug", att.Slug).Msg("verify failed")
					continue
				}

				if !ok {
					violated++

					metrics.IntegrityViolations.WithLabelValues(att.Backend).Inc()
					publishViolated(mgr, att)
					l.Error().Str("slug", att.Slug).Str("expected", att.Checksum).Msg("checksum mismatch")
				}
			}

			return nil
		})
	if result.Error != nil {
		l.Error().Err(result.Error).Msg("scan query failed")
		return
	}

	l.Info().Int("scanned", scanned).Int("violated", violated).Msg("integrity scan done")
}

// verifyAttachment 返回载荷校验和是否与元数据一致.
func verifyAttachment(ctx context.Context, tx *gorm.DB, be backend.Backend, att *model.Attachment) (bool, error) {
	rc, err := be.Open(ctx, tx, att)
	if err != nil {
		if errors.Is(err, types.ErrIntegrityViolation) {
			return false, nil
		}

		return false, err
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return false, err
	}

	return checksum.DigestBytes(data) == att.Checksum, nil
}

// 事件发布是旁路通知，失败只记日志.

type mqPublisher struct {
	mgr *storage.Manager
}

func (p mqPublisher) Publish(topic string, msgs ...*message.Message) error {
	return p.mgr.GetMQClient().Publish(context.Background(), topic, msgs...)
}

func (p mqPublisher) Close() error { return nil }

func publishPurged(mgr *storage.Manager, path string, ageDays int) {
	if mgr.GetMQClient() == nil {
		return
	}

	err := queue.PublishAttachmentPurged(mqPublisher{mgr: mgr}, queue.AttachmentPurgedPayload{
		Path:    path,
		AgeDays: ageDays,
	}, queue.WithProducer("attachvault"))
	if err != nil {
		log.Logger().Warn().Err(err).Str("path", path).Msg("publish purged event failed")
	}
}

func publishViolated(mgr *storage.Manager, att *model.Attachment) {
	if mgr.GetMQClient() == nil {
		return
	}

	err := queue.PublishIntegrityViolated(mqPublisher{mgr: mgr}, queue.IntegrityViolatedPayload{
		Attachment: queue.AttachmentRef{
			ID:        att.ID,
			Slug:      att.Slug,
			OwnerType: att.OwnerType,
			OwnerID:   att.OwnerID,
			Backend:   att.Backend,
			FileName:  att.FileName,
			Size:      att.Size,
			Checksum:  att.Checksum,
		},
		Expected: att.Checksum,
		Source:   "scan",
	}, queue.WithProducer("attachvault"))
	if err != nil {
		log.Logger().Warn().Err(err).Str("slug", att.Slug).Msg("publish integrity event failed")
	}
}
