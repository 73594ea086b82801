// Package queue 定义消息主题常量，供发布/订阅使用.
package queue

// 主题命名规范：av.<域>.<动作>，尽量稳定且向后兼容.
// 域：attachment(附件生命周期)、integrity(完整性巡检)
// 动作：stored/replaced/unlinked/purged/violated

const (
	// 附件生命周期领域.
	TopicAttachmentStored   = "av.attachment.stored"   // 元数据行与载荷均已落盘
	TopicAttachmentReplaced = "av.attachment.replaced" // 已有附件的载荷被重写（校验和变化）
	TopicAttachmentUnlinked = "av.attachment.unlinked" // 载荷已删除（或改名保留），元数据行随后移除
	TopicAttachmentPurged   = "av.attachment.purged"   // 保留的已删除载荷被定时清理任务物理清除

	// 完整性巡检领域.
	TopicIntegrityViolated = "av.integrity.violated" // 读取或巡检发现校验和不匹配
)

// AttachmentTopics 附件生命周期主题集合，用于批量订阅.
var AttachmentTopics = []string{
	TopicAttachmentStored, TopicAttachmentReplaced,
	TopicAttachmentUnlinked, TopicAttachmentPurged,
}
