package backend_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeisme/attachvault/pkg/configs"
	"github.com/yeisme/attachvault/pkg/internal/checksum"
	"github.com/yeisme/attachvault/pkg/internal/model"
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

func newSQLiteBackend(t *testing.T) backend.Backend {
	t.Helper()

	b, err := backend.New(backend.Deps{Cfg: &configs.StorageConfig{
		Backend: string(configs.BackendSQLite),
	}})
	if err != nil {
		t.Fatalf("backend.New: %v", err)
	}

	return b
}

// TestSQLiteWriteOpen 写入 blob 列后能读回并通过校验和检查.
func TestSQLiteWriteOpen(t *testing.T) {
	db := newTestDB(t)
	b := newSQLiteBackend(t)
	ctx := context.Background()

	att := &model.Attachment{FileName: "report.pdf", Backend: b.Name()}
	if err := db.Create(att).Error; err != nil {
		t.Fatalf("insert metadata: %v", err)
	}

	content := "payload bytes"
	att.Checksum = checksum.DigestBytes([]byte(content))

	err := db.Transaction(func(tx *gorm.DB) error {
		return b.Write(ctx, tx, att, strings.NewReader(content))
	})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	rc, err := b.Open(ctx, db, att)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()

	data, _ := io.ReadAll(rc)
	if !bytes.Equal(data, []byte(content)) {
		t.Errorf("read back %q", data)
	}

	if size, _ := b.Size(ctx, db, att); size != int64(len(content)) {
		t.Errorf("Size = %d", size)
	}
}

// TestSQLiteIntegrityViolation 载荷被绕过服务改写后读取必须失败.
func TestSQLiteIntegrityViolation(t *testing.T) {
	db := newTestDB(t)
	b := newSQLiteBackend(t)
	ctx := context.Background()

	att := &model.Attachment{FileName: "report.pdf", Backend: b.Name()}
	db.Create(att)

	att.Checksum = checksum.DigestBytes([]byte("original"))

	err := db.Transaction(func(tx *gorm.DB) error {
		return b.Write(ctx, tx, att, strings.NewReader("original"))
	})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	// 直接改写 blob 列，模拟外部篡改
	if err := db.Model(&model.Attachment{}).Where("id = ?", att.ID).
		Update("blob", []byte("tampered")).Error; err != nil {
		t.Fatalf("tamper: %v", err)
	}

	if _, err := b.Open(ctx, db, att); !errors.Is(err, types.ErrIntegrityViolation) {
		t.Errorf("expected ErrIntegrityViolation, got %v", err)
	}
}

// TestSQLiteUnlink 清空 blob 列但保留元数据行.
func TestSQLiteUnlink(t *testing.T) {
	db := newTestDB(t)
	b := newSQLiteBackend(t)
	ctx := context.Background()

	att := &model.Attachment{FileName: "report.pdf", Backend: b.Name()}
	db.Create(att)

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := b.Write(ctx, tx, att, strings.NewReader("x")); err != nil {
			return err
		}

		return b.Unlink(ctx, tx, att)
	})
	if err != nil {
		t.Fatalf("write+unlink: %v", err)
	}

	var row model.Attachment
	if err := db.First(&row, att.ID).Error; err != nil {
		t.Fatalf("metadata row gone: %v", err)
	}

	if len(row.Blob) != 0 {
		t.Errorf("blob not cleared, %d bytes left", len(row.Blob))
	}
}

// TestSQLiteAvailableName 名字占用查询 file_name 列.
func TestSQLiteAvailableName(t *testing.T) {
	db := newTestDB(t)
	b := newSQLiteBackend(t)
	ctx := context.Background()

	db.Create(&model.Attachment{FileName: "doc/report.pdf", Slug: "s1"})
	db.Create(&model.Attachment{FileName: "doc/report_1.pdf", Slug: "s2"})

	name, err := b.AvailableName(ctx, db, "doc/report.pdf")
	if err != nil {
		t.Fatalf("AvailableName: %v", err)
	}

	if name != "doc/report_2.pdf" {
		t.Errorf("AvailableName = %q, want doc/report_2.pdf", name)
	}
}
