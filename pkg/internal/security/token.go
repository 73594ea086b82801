// Package security 实现匿名上传表单的防伪令牌.
//
// 令牌把 {owner 类型, owner ID, 时间戳} 绑定到一个加盐 HMAC 上，
// 提交时重新计算并用常数时间比较来发现篡改；时间戳超过配置的
// 窗口视为过期提交；蜜罐字段非空直接按垃圾提交拒绝.
package security

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yeisme/attachvault/pkg/configs"
	"github.com/yeisme/attachvault/pkg/internal/types"
)

// TokenService 生成并校验上传令牌.
type TokenService struct {
	secret string
	salt   string
	ttl    time.Duration
}

// Token 下发给表单的安全字段.
type Token struct {
	Timestamp int64  `json:"timestamp"`
	Value     string `json:"token"`
}

// NewTokenService 根据配置构造 TokenService. TTL 未配置时取默认两小时.
func NewTokenService(cfg *configs.SecurityConfig) *TokenService {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = configs.DefaultTokenTTL
	}

	return &TokenService{
		secret: cfg.Secret,
		salt:   cfg.Salt,
		ttl:    ttl,
	}
}

// Generate 为指定 owner 生成当前时刻的令牌.
func (s *TokenService) Generate(ownerType string, ownerID uint64, now time.Time) Token {
	ts := now.Unix()

	return Token{
		Timestamp: ts,
		Value:     s.compute(ownerType, ownerID, ts),
	}
}

// Validate 校验一次表单提交. honeypot 是蜜罐字段的原始值.
// 校验顺序：蜜罐 -> HMAC -> 时效，全部通过返回 nil.
func (s *TokenService) Validate(ownerType string, ownerID uint64, timestamp int64, token, honeypot string, now time.Time) error {
	if honeypot != "" {
		return fmt.Errorf("%w: honeypot field was filled", types.ErrSpamDetected)
	}

	expected := s.compute(ownerType, ownerID, timestamp)
	// 必须用常数时间比较，避免计时侧信道泄露正确前缀长度
	if !hmac.Equal([]byte(expected), []byte(token)) {
		return fmt.Errorf("%w: hash does not match submitted fields", types.ErrInvalidToken)
	}

	if now.Unix()-timestamp > int64(s.ttl.Seconds()) {
		return fmt.Errorf("%w: token issued %ds ago", types.ErrStaleSubmission, now.Unix()-timestamp)
	}

	return nil
}

// compute 计算加盐 HMAC-SHA1 的十六进制值（40 字符）.
// key = SHA1(salt + secret)，消息为 "ownerType-ownerID-timestamp".
func (s *TokenService) compute(ownerType string, ownerID uint64, timestamp int64) string {
	keySum := sha1.Sum([]byte(s.salt + s.secret))

	mac := hmac.New(sha1.New, keySum[:])
	mac.Write([]byte(strings.Join([]string{
		ownerType,
		strconv.FormatUint(ownerID, 10),
		strconv.FormatInt(timestamp, 10),
	}, "-")))

	return hex.EncodeToString(mac.Sum(nil))
}
