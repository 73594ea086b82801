package repository_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeisme/attachvault/pkg/configs"
	"github.com/yeisme/attachvault/pkg/internal/model"
	"github.com/yeisme/attachvault/pkg/internal/repository"
	"github.com/yeisme/attachvault/pkg/internal/storage/backend"
	"github.com/yeisme/attachvault/pkg/internal/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := db.AutoMigrate(&model.Attachment{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return db
}

func testStorageConfig(t *testing.T) *configs.StorageConfig {
	t.Helper()

	return &configs.StorageConfig{
		Backend:      string(configs.BackendFilesystem),
		MediaRoot:    t.TempDir(),
		UploadPrefix: "attachments",
	}
}

// countingBackend 包装后端并统计 Write/Unlink 调用次数.
type countingBackend struct {
	backend.Backend

	writes  int
	unlinks int
}

func (c *countingBackend) Write(ctx context.Context, tx *gorm.DB, att *model.Attachment, content io.Reader) error {
	c.writes++

	return c.Backend.Write(ctx, tx, att, content)
}

func (c *countingBackend) Unlink(ctx context.Context, tx *gorm.DB, att *model.Attachment) error {
	c.unlinks++

	return c.Backend.Unlink(ctx, tx, att)
}

func newRepo(t *testing.T) (*repository.AttachmentRepository, *countingBackend) {
	t.Helper()

	cfg := testStorageConfig(t)

	be, err := backend.New(backend.Deps{Cfg: cfg})
	if err != nil {
		t.Fatalf("backend.New: %v", err)
	}

	cb := &countingBackend{Backend: be}

	return repository.NewAttachmentRepository(newTestDB(t), cb, cfg), cb
}

// TestSaveCreate 首次保存：插入行、分配存储名、计算 slug 与校验和.
func TestSaveCreate(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	att := &model.Attachment{
		OwnerType: "doc",
		OwnerID:   42,
		FileName:  "report.pdf",
	}

	if err := repo.Save(ctx, att, strings.NewReader("hello world")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if att.ID == 0 {
		t.Fatal("ID not assigned")
	}

	if want := fmt.Sprintf("doc-%d-report-pdf", att.ID); att.Slug != want {
		t.Errorf("Slug = %q, want %q", att.Slug, want)
	}

	if att.FileName != "attachments/doc/42/report.pdf" {
		t.Errorf("FileName = %q", att.FileName)
	}

	if att.Checksum != "5eb63bbbe01eeed093cb22bb8f5acdc3" {
		t.Errorf("Checksum = %q", att.Checksum)
	}

	if att.Size != int64(len("hello world")) {
		t.Errorf("Size = %d", att.Size)
	}

	if !strings.HasPrefix(att.MimeType, "text/plain") {
		t.Errorf("MimeType = %q", att.MimeType)
	}

	// 载荷可读回
	rc, err := repo.Open(ctx, att)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()

	data, _ := io.ReadAll(rc)
	if string(data) != "hello world" {
		t.Errorf("payload = %q", data)
	}
}

// TestSaveIdempotentRewrite 同样字节的重复提交不再写载荷.
func TestSaveIdempotentRewrite(t *testing.T) {
	repo, cb := newRepo(t)
	ctx := context.Background()

	att := &model.Attachment{OwnerType: "doc", OwnerID: 1, FileName: "a.txt"}

	if err := repo.Save(ctx, att, strings.NewReader("same bytes")); err != nil {
		t.Fatalf("first Save: %v", err)
	}

	if cb.writes != 1 {
		t.Fatalf("writes = %d after first save", cb.writes)
	}

	att.Description = "updated description"
	if err := repo.Save(ctx, att, strings.NewReader("same bytes")); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	if cb.writes != 1 {
		t.Errorf("writes = %d, rewrite with unchanged checksum must skip payload", cb.writes)
	}

	row, err := repo.FindByID(ctx, att.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}

	if row.Description != "updated description" {
		t.Errorf("metadata not refreshed: %q", row.Description)
	}
}

// TestSaveRewriteChangedContent 校验和变化时重写载荷，存储名不变.
func TestSaveRewriteChangedContent(t *testing.T) {
	repo, cb := newRepo(t)
	ctx := context.Background()

	att := &model.Attachment{OwnerType: "doc", OwnerID: 1, FileName: "a.txt"}

	if err := repo.Save(ctx, att, strings.NewReader("v1")); err != nil {
		t.Fatalf("first Save: %v", err)
	}

	name, sum := att.FileName, att.Checksum

	if err := repo.Save(ctx, att, strings.NewReader("v2 content")); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	if cb.writes != 2 {
		t.Errorf("writes = %d, want 2", cb.writes)
	}

	if att.FileName != name {
		t.Errorf("FileName changed on rewrite: %q -> %q", name, att.FileName)
	}

	if att.Checksum == sum {
		t.Error("checksum not updated")
	}

	rc, _ := repo.Open(ctx, att)
	defer rc.Close()

	data, _ := io.ReadAll(rc)
	if string(data) != "v2 content" {
		t.Errorf("payload = %q", data)
	}
}

// failWriteBackend Write 永远失败，其余委托内层后端.
type failWriteBackend struct {
	backend.Backend
}

func (f *failWriteBackend) Write(context.Context, *gorm.DB, *model.Attachment, io.Reader) error {
	return fmt.Errorf("%w: disk full", types.ErrStorageWrite)
}

// TestSaveWriteFailureKeepsMetadata 载荷写入失败时元数据行保留，可重试.
func TestSaveWriteFailureKeepsMetadata(t *testing.T) {
	cfg := testStorageConfig(t)

	inner, err := backend.New(backend.Deps{Cfg: cfg})
	if err != nil {
		t.Fatalf("backend.New: %v", err)
	}

	repo := repository.NewAttachmentRepository(newTestDB(t), &failWriteBackend{Backend: inner}, cfg)
	ctx := context.Background()

	att := &model.Attachment{OwnerType: "doc", OwnerID: 1, FileName: "a.txt"}

	err = repo.Save(ctx, att, strings.NewReader("content"))
	if !errors.Is(err, types.ErrStorageWrite) {
		t.Fatalf("expected ErrStorageWrite, got %v", err)
	}

	if att.ID == 0 {
		t.Fatal("metadata row not inserted")
	}

	row, err := repo.FindByID(ctx, att.ID)
	if err != nil {
		t.Fatalf("metadata row missing after failed write: %v", err)
	}

	if row.Slug == "" {
		t.Error("slug missing on surviving row")
	}
}

// flakyWriteBackend 第一次 Write 失败，之后委托内层后端.
type flakyWriteBackend struct {
	backend.Backend

	failed bool
}

func (f *flakyWriteBackend) Write(ctx context.Context, tx *gorm.DB, att *model.Attachment, content io.Reader) error {
	if !f.failed {
		f.failed = true

		return fmt.Errorf("%w: transient outage", types.ErrStorageWrite)
	}

	return f.Backend.Write(ctx, tx, att, content)
}

// TestSaveRetryAfterCreateWriteFailure 首次写入失败后，行上不能留下
// 从未落盘的校验和，否则同样字节的重试会被幂等短路吞掉.
func TestSaveRetryAfterCreateWriteFailure(t *testing.T) {
	cfg := testStorageConfig(t)

	inner, err := backend.New(backend.Deps{Cfg: cfg})
	if err != nil {
		t.Fatalf("backend.New: %v", err)
	}

	repo := repository.NewAttachmentRepository(newTestDB(t), &flakyWriteBackend{Backend: inner}, cfg)
	ctx := context.Background()

	att := &model.Attachment{OwnerType: "doc", OwnerID: 1, FileName: "a.txt"}

	if err := repo.Save(ctx, att, strings.NewReader("retry me")); !errors.Is(err, types.ErrStorageWrite) {
		t.Fatalf("expected ErrStorageWrite, got %v", err)
	}

	row, err := repo.FindByID(ctx, att.ID)
	if err != nil {
		t.Fatalf("metadata row missing after failed write: %v", err)
	}

	if row.Checksum != "" {
		t.Fatalf("checksum = %q on row without payload, want empty", row.Checksum)
	}

	// 同样的字节重试必须真正写载荷
	if err := repo.Save(ctx, att, strings.NewReader("retry me")); err != nil {
		t.Fatalf("retry Save: %v", err)
	}

	rc, err := repo.Open(ctx, att)
	if err != nil {
		t.Fatalf("Open after retry: %v", err)
	}
	defer rc.Close()

	data, _ := io.ReadAll(rc)
	if string(data) != "retry me" {
		t.Errorf("payload = %q", data)
	}
}

// failUnlinkBackend Unlink 永远失败.
type failUnlinkBackend struct {
	backend.Backend
}

func (f *failUnlinkBackend) Unlink(context.Context, *gorm.DB, *model.Attachment) error {
	return errors.New("unlink refused")
}

// TestDelete 载荷删除成功后行才被移除；载荷删除失败则整体失败.
func TestDelete(t *testing.T) {
	repo, cb := newRepo(t)
	ctx := context.Background()

	att := &model.Attachment{OwnerType: "doc", OwnerID: 1, FileName: "a.txt"}
	if err := repo.Save(ctx, att, strings.NewReader("x")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := repo.Delete(ctx, att); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if cb.unlinks != 1 {
		t.Errorf("unlinks = %d", cb.unlinks)
	}

	if _, err := repo.FindByID(ctx, att.ID); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("row still present after delete: %v", err)
	}
}

func TestDeleteBlockedByUnlinkFailure(t *testing.T) {
	cfg := testStorageConfig(t)

	inner, err := backend.New(backend.Deps{Cfg: cfg})
	if err != nil {
		t.Fatalf("backend.New: %v", err)
	}

	repo := repository.NewAttachmentRepository(newTestDB(t), &failUnlinkBackend{Backend: inner}, cfg)
	ctx := context.Background()

	att := &model.Attachment{OwnerType: "doc", OwnerID: 1, FileName: "a.txt"}
	if err := repo.Save(ctx, att, strings.NewReader("x")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := repo.Delete(ctx, att); err == nil {
		t.Fatal("Delete succeeded despite unlink failure")
	}

	if _, err := repo.FindByID(ctx, att.ID); err != nil {
		t.Errorf("row removed despite unlink failure: %v", err)
	}
}

// TestFindForOwner 创建序升序返回，默认过滤私有附件.
func TestFindForOwner(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	names := []string{"first.txt", "second.txt", "third.txt"}
	for i, n := range names {
		att := &model.Attachment{OwnerType: "doc", OwnerID: 7, FileName: n}
		if i == 1 {
			att.IsPublic = false
		} else {
			att.IsPublic = true
		}

		if err := repo.Save(ctx, att, strings.NewReader(n)); err != nil {
			t.Fatalf("Save %s: %v", n, err)
		}

		time.Sleep(2 * time.Millisecond)
	}

	public, err := repo.FindForOwner(ctx, "doc", 7, false)
	if err != nil {
		t.Fatalf("FindForOwner: %v", err)
	}

	if len(public) != 2 {
		t.Fatalf("public count = %d, want 2", len(public))
	}

	if public[0].BaseName() != "first.txt" || public[1].BaseName() != "third.txt" {
		t.Errorf("order/filter wrong: %s, %s", public[0].BaseName(), public[1].BaseName())
	}

	all, err := repo.FindForOwner(ctx, "doc", 7, true)
	if err != nil {
		t.Fatalf("FindForOwner all: %v", err)
	}

	if len(all) != 3 {
		t.Errorf("all count = %d, want 3", len(all))
	}
}

// TestFindForOwnerSkipsForeignBackend 别的后端写入的历史行不参与列表：
// 当前后端读不回它们的载荷.
func TestFindForOwnerSkipsForeignBackend(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	mine := &model.Attachment{OwnerType: "doc", OwnerID: 9, FileName: "mine.txt"}
	if err := repo.Save(ctx, mine, strings.NewReader("a")); err != nil {
		t.Fatalf("Save mine: %v", err)
	}

	other := &model.Attachment{OwnerType: "doc", OwnerID: 9, FileName: "other.txt"}
	if err := repo.Save(ctx, other, strings.NewReader("b")); err != nil {
		t.Fatalf("Save other: %v", err)
	}

	// 模拟换过后端的部署：这一行由当年的 sqlite 后端写入
	if err := repo.DB().Model(&model.Attachment{}).Where("id = ?", other.ID).
		Update("backend", string(configs.BackendSQLite)).Error; err != nil {
		t.Fatalf("rewrite backend tag: %v", err)
	}

	got, err := repo.FindForOwner(ctx, "doc", 9, true)
	if err != nil {
		t.Fatalf("FindForOwner: %v", err)
	}

	if len(got) != 1 || got[0].ID != mine.ID {
		t.Errorf("listing must only contain current-backend rows, got %d", len(got))
	}
}
