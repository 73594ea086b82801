package security_test

import (
	"errors"
	"testing"
	"time"

	"github.com/yeisme/attachvault/pkg/configs"
	"github.com/yeisme/attachvault/pkg/internal/security"
	"github.com/yeisme/attachvault/pkg/internal/types"
)

func newService() *security.TokenService {
	return security.NewTokenService(&configs.SecurityConfig{
		Secret:   "unit-test-secret",
		Salt:     "unit-test-salt",
		TokenTTL: 2 * time.Hour,
	})
}

// TestValidateRoundTrip 刚生成的令牌立即校验应当通过.
func TestValidateRoundTrip(t *testing.T) {
	svc := newService()
	now := time.Now()

	tok := svc.Generate("doc", 42, now)

	if len(tok.Value) != 40 {
		t.Errorf("token length = %d, want 40 hex chars", len(tok.Value))
	}

	if err := svc.Validate("doc", 42, tok.Timestamp, tok.Value, "", now); err != nil {
		t.Errorf("fresh token rejected: %v", err)
	}
}

// TestValidateStale 超过两小时窗口的令牌必须按过期拒绝.
func TestValidateStale(t *testing.T) {
	svc := newService()
	now := time.Now()

	tok := svc.Generate("doc", 42, now)

	late := now.Add(2*time.Hour + time.Second)

	err := svc.Validate("doc", 42, tok.Timestamp, tok.Value, "", late)
	if !errors.Is(err, types.ErrStaleSubmission) {
		t.Errorf("expected ErrStaleSubmission, got %v", err)
	}

	// 窗口边界内仍然有效
	edge := now.Add(2 * time.Hour)
	if err := svc.Validate("doc", 42, tok.Timestamp, tok.Value, "", edge); err != nil {
		t.Errorf("token at window edge rejected: %v", err)
	}
}

// TestValidateTampered 任一绑定字段被篡改都应当判为无效令牌.
func TestValidateTampered(t *testing.T) {
	svc := newService()
	now := time.Now()

	tok := svc.Generate("doc", 42, now)

	cases := []struct {
		name      string
		ownerType string
		ownerID   uint64
		timestamp int64
	}{
		{"owner type", "page", 42, tok.Timestamp},
		{"owner id", "doc", 43, tok.Timestamp},
		{"timestamp", "doc", 42, tok.Timestamp + 1},
	}

	for _, c := range cases {
		err := svc.Validate(c.ownerType, c.ownerID, c.timestamp, tok.Value, "", now)
		if !errors.Is(err, types.ErrInvalidToken) {
			t.Errorf("%s tampered: expected ErrInvalidToken, got %v", c.name, err)
		}
	}
}

// TestValidateHoneypot 蜜罐字段非空时无论其它字段是否有效都拒绝.
func TestValidateHoneypot(t *testing.T) {
	svc := newService()
	now := time.Now()

	tok := svc.Generate("doc", 42, now)

	err := svc.Validate("doc", 42, tok.Timestamp, tok.Value, "bot was here", now)
	if !errors.Is(err, types.ErrSpamDetected) {
		t.Errorf("expected ErrSpamDetected, got %v", err)
	}
}

// TestDifferentSecrets 不同密钥生成的令牌互不通用.
func TestDifferentSecrets(t *testing.T) {
	svc := newService()
	other := security.NewTokenService(&configs.SecurityConfig{
		Secret:   "another-secret",
		Salt:     "unit-test-salt",
		TokenTTL: 2 * time.Hour,
	})

	now := time.Now()
	tok := other.Generate("doc", 42, now)

	err := svc.Validate("doc", 42, tok.Timestamp, tok.Value, "", now)
	if !errors.Is(err, types.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken across secrets, got %v", err)
	}
}
