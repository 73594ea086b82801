package service_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeisme/attachvault/pkg/configs"
	ctxPkg "github.com/yeisme/attachvault/pkg/context"
	"github.com/yeisme/attachvault/pkg/internal/model"
	"github.com/yeisme/attachvault/pkg/internal/service"
	"github.com/yeisme/attachvault/pkg/internal/storage"
	"github.com/yeisme/attachvault/pkg/internal/storage/backend"
	dbc "github.com/yeisme/attachvault/pkg/internal/storage/db"
	"github.com/yeisme/attachvault/pkg/internal/types"
)

func newService(t *testing.T) (*service.AttachmentService, context.Context) {
	t.Helper()

	if err := configs.InitConfig(t.TempDir()); err != nil {
		t.Fatalf("init config: %v", err)
	}

	cfg := configs.GetConfig()
	cfg.Storage.MediaRoot = t.TempDir()
	cfg.Metrics.Enabled = false

	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	be, err := backend.New(backend.Deps{Cfg: &cfg.Storage})
	if err != nil {
		t.Fatalf("backend.New: %v", err)
	}

	mgr := &storage.Manager{DB: &dbc.Client{DB: gdb}, Backend: be}
	ctx := ctxPkg.WithStorageManager(context.Background(), mgr)

	svc := service.NewAttachmentService(ctx)
	if err := svc.Repo().Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return svc, ctx
}

func uploadRequest(svc *service.AttachmentService) *types.UploadAttachmentRequest {
	tok := svc.GenerateToken(&types.TokenRequest{OwnerType: "doc", OwnerID: 42})

	return &types.UploadAttachmentRequest{
		OwnerType: "doc",
		OwnerID:   42,
		Timestamp: tok.Timestamp,
		Token:     tok.Token,
	}
}

// TestSubmitUpload 正常上传：令牌通过、元数据齐全、载荷可下载.
func TestSubmitUpload(t *testing.T) {
	svc, ctx := newService(t)

	resp, err := svc.SubmitUpload(ctx, uploadRequest(svc), "notes.txt",
		strings.NewReader("attachment body"), 7, "203.0.113.9")
	if err != nil {
		t.Fatalf("SubmitUpload: %v", err)
	}

	if resp.Slug == "" || resp.Size != int64(len("attachment body")) {
		t.Errorf("response = %+v", resp)
	}

	if !resp.IsPublic {
		t.Error("default visibility must be public")
	}

	att, rc, err := svc.FetchForDownload(ctx, resp.Slug)
	if err != nil {
		t.Fatalf("FetchForDownload: %v", err)
	}
	defer rc.Close()

	data, _ := io.ReadAll(rc)
	if string(data) != "attachment body" {
		t.Errorf("payload = %q", data)
	}

	if att.CreatorID != 7 || att.IPAddress != "203.0.113.9" {
		t.Errorf("audit fields = %d/%s", att.CreatorID, att.IPAddress)
	}
}

// TestSubmitUploadRejections 令牌错误、蜜罐、超大载荷分别拒绝.
func TestSubmitUploadRejections(t *testing.T) {
	svc, ctx := newService(t)

	req := uploadRequest(svc)
	req.Token = strings.Repeat("0", 40)

	_, err := svc.SubmitUpload(ctx, req, "a.txt", strings.NewReader("x"), 0, "")
	if !errors.Is(err, types.ErrInvalidToken) {
		t.Errorf("bad token: expected ErrInvalidToken, got %v", err)
	}

	req = uploadRequest(svc)
	req.Honeypot = "filled by bot"

	_, err = svc.SubmitUpload(ctx, req, "a.txt", strings.NewReader("x"), 0, "")
	if !errors.Is(err, types.ErrSpamDetected) {
		t.Errorf("honeypot: expected ErrSpamDetected, got %v", err)
	}

	configs.GetConfig().Storage.MaxSize = 4

	_, err = svc.SubmitUpload(ctx, uploadRequest(svc), "a.txt",
		strings.NewReader("way past the limit"), 0, "")
	if !errors.Is(err, types.ErrPayloadTooLarge) {
		t.Errorf("oversize: expected ErrPayloadTooLarge, got %v", err)
	}

	// 恰好等于上限的载荷放行
	if _, err := svc.SubmitUpload(ctx, uploadRequest(svc), "b.txt",
		strings.NewReader("1234"), 0, ""); err != nil {
		t.Errorf("payload of exactly max_size rejected: %v", err)
	}
}

// TestOwnerResolution 注册解析器后，未知 owner 类型被拒绝.
func TestOwnerResolution(t *testing.T) {
	svc, ctx := newService(t)

	service.RegisterOwnerType("doc", func(_ context.Context, id uint64) (model.Owner, error) {
		return nil, nil
	})

	if _, err := svc.SubmitUpload(ctx, uploadRequest(svc), "a.txt",
		strings.NewReader("x"), 0, ""); err != nil {
		t.Fatalf("registered owner type rejected: %v", err)
	}

	tok := svc.GenerateToken(&types.TokenRequest{OwnerType: "page", OwnerID: 1})
	req := &types.UploadAttachmentRequest{
		OwnerType: "page", OwnerID: 1,
		Timestamp: tok.Timestamp, Token: tok.Token,
	}

	_, err := svc.SubmitUpload(ctx, req, "a.txt", strings.NewReader("x"), 0, "")
	if !errors.Is(err, types.ErrValidation) {
		t.Errorf("unknown owner type: expected ErrValidation, got %v", err)
	}
}

// TestReplaceRequiresLiveOwner owner 记录消失后不允许重写载荷.
func TestReplaceRequiresLiveOwner(t *testing.T) {
	svc, ctx := newService(t)

	gone := false

	service.RegisterOwnerType("wiki", func(_ context.Context, _ uint64) (model.Owner, error) {
		if gone {
			return nil, errors.New("owner deleted")
		}

		return nil, nil
	})

	tok := svc.GenerateToken(&types.TokenRequest{OwnerType: "wiki", OwnerID: 9})
	req := &types.UploadAttachmentRequest{
		OwnerType: "wiki", OwnerID: 9,
		Timestamp: tok.Timestamp, Token: tok.Token,
	}

	resp, err := svc.SubmitUpload(ctx, req, "page.txt", strings.NewReader("v1"), 0, "")
	if err != nil {
		t.Fatalf("SubmitUpload: %v", err)
	}

	gone = true

	if _, err := svc.ReplacePayload(ctx, resp.Slug, strings.NewReader("v2")); !errors.Is(err, types.ErrValidation) {
		t.Errorf("replace with vanished owner: expected ErrValidation, got %v", err)
	}
}

// TestReplaceAndRemove 重写载荷后校验和更新；删除后查询报 ErrNotFound.
func TestReplaceAndRemove(t *testing.T) {
	svc, ctx := newService(t)

	resp, err := svc.SubmitUpload(ctx, uploadRequest(svc), "a.txt",
		strings.NewReader("version one"), 0, "")
	if err != nil {
		t.Fatalf("SubmitUpload: %v", err)
	}

	replaced, err := svc.ReplacePayload(ctx, resp.Slug, strings.NewReader("version two"))
	if err != nil {
		t.Fatalf("ReplacePayload: %v", err)
	}

	if replaced.Checksum == resp.Checksum {
		t.Error("checksum unchanged after replace")
	}

	if replaced.Slug != resp.Slug {
		t.Errorf("slug changed on replace: %q -> %q", resp.Slug, replaced.Slug)
	}

	if err := svc.Remove(ctx, resp.Slug); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if _, _, err := svc.FetchForDownload(ctx, resp.Slug); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("expected ErrNotFound after remove, got %v", err)
	}
}

// TestListForOwner 列表只含公开附件，除非明确要求.
func TestListForOwner(t *testing.T) {
	svc, ctx := newService(t)

	pub := uploadRequest(svc)
	if _, err := svc.SubmitUpload(ctx, pub, "pub.txt", strings.NewReader("public"), 0, ""); err != nil {
		t.Fatalf("upload public: %v", err)
	}

	priv := uploadRequest(svc)
	no := false
	priv.IsPublic = &no

	if _, err := svc.SubmitUpload(ctx, priv, "priv.txt", strings.NewReader("private"), 0, ""); err != nil {
		t.Fatalf("upload private: %v", err)
	}

	list, err := svc.ListForOwner(ctx, &types.ListAttachmentsRequest{OwnerType: "doc", OwnerID: 42})
	if err != nil {
		t.Fatalf("ListForOwner: %v", err)
	}

	if list.Total != 1 || list.Attachments[0].FileName != "pub.txt" {
		t.Errorf("public list = %+v", list)
	}

	all, err := svc.ListForOwner(ctx, &types.ListAttachmentsRequest{
		OwnerType: "doc", OwnerID: 42, IncludePrivate: true,
	})
	if err != nil {
		t.Fatalf("ListForOwner all: %v", err)
	}

	if all.Total != 2 {
		t.Errorf("all total = %d", all.Total)
	}
}
