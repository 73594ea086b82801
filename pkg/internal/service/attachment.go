// Package service 附件子系统的业务门面：校验令牌、解析 owner、
// 调用仓储协议并广播生命周期事件.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/yeisme/attachvault/pkg/configs"
	ctxPkg "github.com/yeisme/attachvault/pkg/context"
	"github.com/yeisme/attachvault/pkg/internal/model"
	"github.com/yeisme/attachvault/pkg/internal/repository"
	"github.com/yeisme/attachvault/pkg/internal/security"
	"github.com/yeisme/attachvault/pkg/internal/storage/db"
	"github.com/yeisme/attachvault/pkg/internal/storage/mq"
	"github.com/yeisme/attachvault/pkg/internal/types"
	"github.com/yeisme/attachvault/pkg/metrics"
)

// AttachmentService 聚合附件操作所需的全部依赖.
type AttachmentService struct {
	dbClient *db.Client
	mqClient *mq.Client
	repo     *repository.AttachmentRepository
	tokens   *security.TokenService
	cfg      *configs.StorageConfig
	siteID   uint
}

// NewAttachmentService 从请求上下文取存储管理器组装服务.
func NewAttachmentService(c context.Context) *AttachmentService {
	cfg := configs.GetConfig()
	dbc := ctxPkg.GetDBClient(c)
	be := ctxPkg.GetBackend(c)

	return &AttachmentService{
		dbClient: dbc,
		mqClient: ctxPkg.GetMQClient(c),
		repo:     repository.NewAttachmentRepository(dbc.GetDB(), be, &cfg.Storage),
		tokens:   security.NewTokenService(&cfg.Security),
		cfg:      &cfg.Storage,
		siteID:   cfg.Server.SiteID,
	}
}

// ownerRegistry 宿主应用在启动阶段注册 owner 解析器.
// 一个都没注册时跳过 owner 存在性检查（开放模式）.
var ownerRegistry = model.NewOwnerRegistry()

// RegisterOwnerType 注册一种可挂附件的 owner 类型.
func RegisterOwnerType(tag string, lookup model.OwnerLookup) {
	ownerRegistry.Register(tag, lookup)
}

// GenerateToken 为指定 owner 下发上传令牌.
func (s *AttachmentService) GenerateToken(req *types.TokenRequest) types.TokenResponse {
	tok := s.tokens.Generate(req.OwnerType, req.OwnerID, time.Now())

	return types.TokenResponse{Timestamp: tok.Timestamp, Token: tok.Value}
}

// SubmitUpload 处理一次上传：令牌校验、大小上限、owner 解析、
// 持久化、事件广播. creatorID 为触发上传的用户（匿名为 0）.
func (s *AttachmentService) SubmitUpload(ctx context.Context, req *types.UploadAttachmentRequest, fileName string, content io.ReadSeeker, creatorID uint64, ip string) (*types.AttachmentResponse, error) {
	if err := s.tokens.Validate(req.OwnerType, req.OwnerID, req.Timestamp, req.Token, req.Honeypot, time.Now()); err != nil {
		return nil, err
	}

	if err := s.checkSize(content); err != nil {
		return nil, err
	}

	if err := s.resolveOwner(ctx, req.OwnerType, req.OwnerID); err != nil {
		return nil, err
	}

	att := &model.Attachment{
		OwnerType:   req.OwnerType,
		OwnerID:     req.OwnerID,
		CreatorID:   creatorID,
		Description: req.Description,
		FileName:    fileName,
		IsPublic:    req.IsPublic == nil || *req.IsPublic,
		SiteID:      s.siteID,
		IPAddress:   ip,
	}

	if err := s.repo.Save(ctx, att, content); err != nil {
		if errors.Is(err, types.ErrStorageWrite) {
			metrics.StorageWriteFailures.WithLabelValues(s.repo.Backend().Name()).Inc()
		}

		return nil, err
	}

	metrics.UploadCounter.WithLabelValues(att.Backend).Inc()

	s.publishStored(att, creatorID)

	resp := s.toResponse(ctx, att)

	return &resp, nil
}

// ReplacePayload 重写已有附件的载荷. 字节未变化时是幂等空操作.
func (s *AttachmentService) ReplacePayload(ctx context.Context, slug string, content io.ReadSeeker) (*types.AttachmentResponse, error) {
	if err := s.checkSize(content); err != nil {
		return nil, err
	}

	att, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	// owner 可能在附件创建后被删掉，重写前再确认一次
	if err := s.resolveOwner(ctx, att.OwnerType, att.OwnerID); err != nil {
		return nil, err
	}

	prevSum := att.Checksum

	if err := s.repo.Save(ctx, att, content); err != nil {
		if errors.Is(err, types.ErrStorageWrite) {
			metrics.StorageWriteFailures.WithLabelValues(s.repo.Backend().Name()).Inc()
		}

		return nil, err
	}

	if att.Checksum != prevSum {
		s.publishReplaced(att, prevSum)
	}

	resp := s.toResponse(ctx, att)

	return &resp, nil
}

// Remove 删除附件：先载荷后元数据行.
func (s *AttachmentService) Remove(ctx context.Context, slug string) error {
	att, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, att); err != nil {
		return err
	}

	s.publishUnlinked(att, s.cfg.PreserveOnDelete)

	return nil
}

// FetchForDownload 按 slug 取附件与其载荷流. 调用方负责 Close.
// 校验和不匹配时拒绝返回数据并广播完整性事件.
func (s *AttachmentService) FetchForDownload(ctx context.Context, slug string) (*model.Attachment, io.ReadCloser, error) {
	att, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, nil, err
	}

	rc, err := s.repo.Open(ctx, att)
	if err != nil {
		if errors.Is(err, types.ErrIntegrityViolation) {
			metrics.IntegrityViolations.WithLabelValues(att.Backend).Inc()
			s.publishIntegrityViolated(att, err, "read")
		}

		return nil, nil, err
	}

	metrics.DownloadCounter.WithLabelValues(att.Backend).Inc()

	return att, rc, nil
}

// FindBySlug 按 slug 返回元数据表示，不触碰载荷.
func (s *AttachmentService) FindBySlug(ctx context.Context, slug string) (*types.AttachmentResponse, error) {
	att, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	resp := s.toResponse(ctx, att)

	return &resp, nil
}

// ListForOwner 列出某个 owner 的附件.
func (s *AttachmentService) ListForOwner(ctx context.Context, req *types.ListAttachmentsRequest) (*types.ListAttachmentsResponse, error) {
	atts, err := s.repo.FindForOwner(ctx, req.OwnerType, req.OwnerID, req.IncludePrivate)
	if err != nil {
		return nil, err
	}

	resp := &types.ListAttachmentsResponse{
		Total:       len(atts),
		Attachments: make([]types.AttachmentResponse, 0, len(atts)),
	}

	for i := range atts {
		resp.Attachments = append(resp.Attachments, s.toResponse(ctx, &atts[i]))
	}

	return resp, nil
}

// Repo 暴露仓储给巡检任务.
func (s *AttachmentService) Repo() *repository.AttachmentRepository {
	return s.repo
}

// checkSize 大小上限检查，结束后把读取位置还原到起点.
func (s *AttachmentService) checkSize(content io.ReadSeeker) error {
	if content == nil {
		return fmt.Errorf("%w: no content", types.ErrValidation)
	}

	size, err := content.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("%w: content not seekable: %v", types.ErrValidation, err)
	}

	if _, err := content.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: rewind content: %v", types.ErrValidation, err)
	}

	if s.cfg.MaxSize > 0 && size > s.cfg.MaxSize {
		return fmt.Errorf("%w: %d bytes exceeds limit %d", types.ErrPayloadTooLarge, size, s.cfg.MaxSize)
	}

	return nil
}

// resolveOwner 确认 owner 引用指向真实记录.
func (s *AttachmentService) resolveOwner(ctx context.Context, ownerType string, ownerID uint64) error {
	if len(ownerRegistry.Types()) == 0 {
		return nil
	}

	if _, err := ownerRegistry.Resolve(ctx, ownerType, ownerID); err != nil {
		return fmt.Errorf("%w: owner %s/%d: %v", types.ErrValidation, ownerType, ownerID, err)
	}

	return nil
}
