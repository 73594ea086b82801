package types

import "errors"

// 附件子系统的错误分类. 调用方用 errors.Is 判断；包内统一用
// fmt.Errorf("%w: ...") 包装补充上下文.
var (
	// ErrNotFound 附件或其元数据行不存在.
	ErrNotFound = errors.New("attachment not found")

	// ErrInvalidToken 上传令牌与重新计算的 HMAC 不匹配.
	ErrInvalidToken = errors.New("invalid security token")

	// ErrStaleSubmission 表单时间戳超出有效窗口.
	ErrStaleSubmission = errors.New("stale submission")

	// ErrSpamDetected 蜜罐字段非空.
	ErrSpamDetected = errors.New("spam detected")

	// ErrPayloadTooLarge 内容超过配置的大小上限.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrValidation 上传内容不可读或元数据非法.
	ErrValidation = errors.New("validation failed")

	// ErrIntegrityViolation 读取时校验和与记录不一致，载荷已损坏.
	ErrIntegrityViolation = errors.New("checksum mismatch")

	// ErrUnsupportedBackend 选择了已声明但未实现的存储后端，启动即失败.
	ErrUnsupportedBackend = errors.New("unsupported storage backend")

	// ErrStorageWrite 二进制写入阶段失败，子事务已回滚；
	// 元数据行仍然存在，可以对同一行重试写入.
	ErrStorageWrite = errors.New("storage write failed")

	// ErrNotConfigured 没有可用的基础 URL，无法生成直链.
	ErrNotConfigured = errors.New("base url not configured")
)
