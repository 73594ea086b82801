package queue

import "github.com/ThreeDotsLabs/watermill/message"

// -------------------------- 基于业务封装 events --------------------------

// PublishAttachmentStored 发布 av.attachment.stored 事件。
// 在元数据行与载荷字节都成功落盘后调用，通知下游流程（如病毒扫描、缩略图等）。
func PublishAttachmentStored(pub message.Publisher, payload AttachmentStoredPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicAttachmentStored, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicAttachmentStored, msg)
}

// PublishAttachmentReplaced 发布 av.attachment.replaced 事件。
func PublishAttachmentReplaced(pub message.Publisher, payload AttachmentReplacedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicAttachmentReplaced, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicAttachmentReplaced, msg)
}

// PublishAttachmentUnlinked 发布 av.attachment.unlinked 事件。
func PublishAttachmentUnlinked(pub message.Publisher, payload AttachmentUnlinkedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicAttachmentUnlinked, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicAttachmentUnlinked, msg)
}

// PublishAttachmentPurged 发布 av.attachment.purged 事件。
func PublishAttachmentPurged(pub message.Publisher, payload AttachmentPurgedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicAttachmentPurged, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicAttachmentPurged, msg)
}

// PublishIntegrityViolated 发布 av.integrity.violated 事件。
func PublishIntegrityViolated(pub message.Publisher, payload IntegrityViolatedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicIntegrityViolated, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicIntegrityViolated, msg)
}

// ParseAttachmentStored 将 Watermill 消息解析为强类型 Envelope。
func ParseAttachmentStored(msg *message.Message) (Message[AttachmentStoredPayload], error) {
	return ParseWatermillMessage[AttachmentStoredPayload](msg)
}

// ParseAttachmentUnlinked 将 Watermill 消息解析为强类型 Envelope。
func ParseAttachmentUnlinked(msg *message.Message) (Message[AttachmentUnlinkedPayload], error) {
	return ParseWatermillMessage[AttachmentUnlinkedPayload](msg)
}
