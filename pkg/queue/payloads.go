package queue

import "time"

// EventHeader 定义所有事件的通用头部元数据.
// 建议在发布消息时填充 TraceID、OccurredAt、Producer 等，便于追踪链路与审计.
type EventHeader struct {
	// Topic 冗余记录消息主题，便于离线处理或转储后定位来源主题.
	Topic string `json:"topic"`
	// TraceID 分布式追踪/关联 ID，可来自中间件或业务生成.
	TraceID string `json:"trace_id,omitempty"`
	// Producer 生产者服务名或节点标识.
	Producer string `json:"producer,omitempty"`
	// OccurredAt 事件发生时间（UTC，RFC3339）.
	OccurredAt time.Time `json:"occurred_at"`
	// Version 事件负载版本，便于向后兼容演进.
	Version string `json:"version,omitempty"`
}

// Message 是统一的消息封装，Header + Payload.
// T 即不同主题对应的负载结构体.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// AttachmentRef 标识一条附件与其载荷位置.
type AttachmentRef struct {
	ID        uint   `json:"id"`
	Slug      string `json:"slug"`
	OwnerType string `json:"owner_type"`
	OwnerID   uint64 `json:"owner_id"`
	Backend   string `json:"backend"`
	FileName  string `json:"file_name,omitempty"`
	MimeType  string `json:"mime_type,omitempty"`
	Size      int64  `json:"size,omitempty"`
	Checksum  string `json:"checksum,omitempty"`
}

// AttachmentStoredPayload 元数据与载荷均已写入.
type AttachmentStoredPayload struct {
	Attachment AttachmentRef `json:"attachment"`
	// Creator 触发上传的用户 ID，匿名上传为 0.
	Creator uint64 `json:"creator,omitempty"`
}

// AttachmentReplacedPayload 已有附件的载荷被重写.
type AttachmentReplacedPayload struct {
	Attachment   AttachmentRef `json:"attachment"`
	PrevChecksum string        `json:"prev_checksum,omitempty"`
}

// AttachmentUnlinkedPayload 载荷已删除或改名保留.
type AttachmentUnlinkedPayload struct {
	Attachment AttachmentRef `json:"attachment"`
	// Preserved 为 true 时载荷只是改名保留，等待定时清理.
	Preserved bool `json:"preserved,omitempty"`
}

// AttachmentPurgedPayload 保留的载荷被物理清除.
type AttachmentPurgedPayload struct {
	Path string `json:"path"`
	// Age 清除时距改名保留的天数.
	AgeDays int `json:"age_days,omitempty"`
}

// IntegrityViolatedPayload 校验和不匹配.
type IntegrityViolatedPayload struct {
	Attachment AttachmentRef `json:"attachment"`
	Expected   string        `json:"expected"`
	Actual     string        `json:"actual"`
	// Source 发现途径：read（下载时）或 scan（巡检任务）.
	Source string `json:"source,omitempty"`
}
