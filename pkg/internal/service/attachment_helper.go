package service

import (
	"context"
	"errors"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/attachvault/pkg/internal/model"
	"github.com/yeisme/attachvault/pkg/internal/storage/mq"
	"github.com/yeisme/attachvault/pkg/internal/types"
	alog "github.com/yeisme/attachvault/pkg/log"
	"github.com/yeisme/attachvault/pkg/queue"
)

const eventProducer = "attachvault"

// clientPublisher 把 mq.Client 适配成 watermill 的 message.Publisher.
type clientPublisher struct {
	c *mq.Client
}

func (p clientPublisher) Publish(topic string, msgs ...*message.Message) error {
	return p.c.Publish(context.Background(), topic, msgs...)
}

func (p clientPublisher) Close() error { return nil }

func publisherOf(c *mq.Client) message.Publisher {
	return clientPublisher{c: c}
}

// toResponse 把实体转为对外表示. 直链生成失败不算错误（后端可能
// 没有配置 base_url），留空即可.
func (s *AttachmentService) toResponse(ctx context.Context, att *model.Attachment) types.AttachmentResponse {
	resp := types.AttachmentResponse{
		ID:          att.ID,
		Slug:        att.Slug,
		OwnerType:   att.OwnerType,
		OwnerID:     att.OwnerID,
		FileName:    att.BaseName(),
		Description: att.Description,
		MimeType:    att.MimeType,
		Size:        att.Size,
		Checksum:    att.Checksum,
		Backend:     att.Backend,
		IsPublic:    att.IsPublic,
		CreatedAt:   att.CreatedAt.UTC().Format(time.RFC3339),
		ModifiedAt:  att.UpdatedAt.UTC().Format(time.RFC3339),
	}

	if u, err := s.repo.URL(ctx, att); err == nil {
		resp.URL = u
	} else if !errors.Is(err, types.ErrNotConfigured) {
		alog.Logger().Warn().Err(err).Str("slug", att.Slug).Msg("generate url failed")
	}

	return resp
}

func attachmentRef(att *model.Attachment) queue.AttachmentRef {
	return queue.AttachmentRef{
		ID:        att.ID,
		Slug:      att.Slug,
		OwnerType: att.OwnerType,
		OwnerID:   att.OwnerID,
		Backend:   att.Backend,
		FileName:  att.FileName,
		MimeType:  att.MimeType,
		Size:      att.Size,
		Checksum:  att.Checksum,
	}
}

// 事件是尽力而为的旁路通知：发布失败记日志，不影响主流程.

func (s *AttachmentService) publishStored(att *model.Attachment, creator uint64) {
	if s.mqClient == nil {
		return
	}

	err := queue.PublishAttachmentStored(publisherOf(s.mqClient), queue.AttachmentStoredPayload{
		Attachment: attachmentRef(att),
		Creator:    creator,
	}, queue.WithProducer(eventProducer))
	if err != nil {
		alog.Logger().Warn().Err(err).Str("slug", att.Slug).Msg("publish stored event failed")
	}
}

func (s *AttachmentService) publishReplaced(att *model.Attachment, prevChecksum string) {
	if s.mqClient == nil {
		return
	}

	err := queue.PublishAttachmentReplaced(publisherOf(s.mqClient), queue.AttachmentReplacedPayload{
		Attachment:   attachmentRef(att),
		PrevChecksum: prevChecksum,
	}, queue.WithProducer(eventProducer))
	if err != nil {
		alog.Logger().Warn().Err(err).Str("slug", att.Slug).Msg("publish replaced event failed")
	}
}

func (s *AttachmentService) publishUnlinked(att *model.Attachment, preserved bool) {
	if s.mqClient == nil {
		return
	}

	err := queue.PublishAttachmentUnlinked(publisherOf(s.mqClient), queue.AttachmentUnlinkedPayload{
		Attachment: attachmentRef(att),
		Preserved:  preserved,
	}, queue.WithProducer(eventProducer))
	if err != nil {
		alog.Logger().Warn().Err(err).Str("slug", att.Slug).Msg("publish unlinked event failed")
	}
}

func (s *AttachmentService) publishIntegrityViolated(att *model.Attachment, cause error, source string) {
	if s.mqClient == nil {
		return
	}

	err := queue.PublishIntegrityViolated(publisherOf(s.mqClient), queue.IntegrityViolatedPayload{
		Attachment: attachmentRef(att),
		Expected:   att.Checksum,
		Source:     source,
	}, queue.WithProducer(eventProducer))
	if err != nil {
		alog.Logger().Warn().Err(err).Str("slug", att.Slug).AnErr("cause", cause).Msg("publish integrity event failed")
	}
}
