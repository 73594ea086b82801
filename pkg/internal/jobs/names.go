package jobs

// 任务名称常量，便于统一管理与引用.
// cron 表达式不在这里定死，由 storage 配置的 purge_cron /
// integrity_cron 决定.
const (
	JobPayloadPurge  = "payload.purge"
	JobIntegrityScan = "integrity.scan"
)
