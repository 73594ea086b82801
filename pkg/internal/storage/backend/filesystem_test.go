package backend_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yeisme/attachvault/pkg/configs"
	"github.com/yeisme/attachvault/pkg/internal/model"
	"github.com/yeisme/attachvault/pkg/internal/storage/backend"
	"github.com/yeisme/attachvault/pkg/internal/types"
)

func newFilesystemBackend(t *testing.T, cfg *configs.StorageConfig) backend.Backend {
	t.Helper()

	if cfg == nil {
		cfg = &configs.StorageConfig{}
	}

	cfg.Backend = string(configs.BackendFilesystem)
	if cfg.MediaRoot == "" {
		cfg.MediaRoot = t.TempDir()
	}

	b, err := backend.New(backend.Deps{Cfg: cfg})
	if err != nil {
		t.Fatalf("backend.New: %v", err)
	}

	return b
}

// TestFilesystemWriteOpen 写入后能按存储名读回同样的字节.
func TestFilesystemWriteOpen(t *testing.T) {
	b := newFilesystemBackend(t, nil)
	ctx := context.Background()

	att := &model.Attachment{ID: 1, FileName: "attachments/doc/42/report.pdf"}

	if err := b.Write(ctx, nil, att, strings.NewReader("payload bytes")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	rc, err := b.Open(ctx, nil, att)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()

	data, _ := io.ReadAll(rc)
	if !bytes.Equal(data, []byte("payload bytes")) {
		t.Errorf("read back %q", data)
	}

	if ok, _ := b.Exists(ctx, nil, att); !ok {
		t.Error("Exists = false after write")
	}

	if size, _ := b.Size(ctx, nil, att); size != int64(len("payload bytes")) {
		t.Errorf("Size = %d", size)
	}
}

// TestFilesystemAvailableName 名字被占用时追加递增后缀.
func TestFilesystemAvailableName(t *testing.T) {
	cfg := &configs.StorageConfig{MediaRoot: t.TempDir()}
	b := newFilesystemBackend(t, cfg)
	ctx := context.Background()

	name, err := b.AvailableName(ctx, nil, "doc/report.pdf")
	if err != nil || name != "doc/report.pdf" {
		t.Fatalf("first AvailableName = %q, %v", name, err)
	}

	// 占用期望名与第一个候选名
	for _, n := range []string{"doc/report.pdf", "doc/report_1.pdf"} {
		p := filepath.Join(cfg.MediaRoot, filepath.FromSlash(n))
		os.MkdirAll(filepath.Dir(p), 0o755)
		os.WriteFile(p, []byte("x"), 0o644)
	}

	name, err = b.AvailableName(ctx, nil, "doc/report.pdf")
	if err != nil {
		t.Fatalf("AvailableName: %v", err)
	}

	if name != "doc/report_2.pdf" {
		t.Errorf("AvailableName = %q, want doc/report_2.pdf", name)
	}
}

// TestFilesystemUnlink 默认物理删除，不存在时静默成功.
func TestFilesystemUnlink(t *testing.T) {
	b := newFilesystemBackend(t, nil)
	ctx := context.Background()

	att := &model.Attachment{ID: 1, FileName: "a/b.txt"}
	if err := b.Write(ctx, nil, att, strings.NewReader("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if err := b.Unlink(ctx, nil, att); err != nil {
		t.Fatalf("Unlink: %v", err)
	}

	if ok, _ := b.Exists(ctx, nil, att); ok {
		t.Error("payload still exists after Unlink")
	}

	// 幂等
	if err := b.Unlink(ctx, nil, att); err != nil {
		t.Errorf("second Unlink: %v", err)
	}
}

// TestFilesystemPreserveOnDelete 开启保留时改名而非删除.
func TestFilesystemPreserveOnDelete(t *testing.T) {
	cfg := &configs.StorageConfig{
		MediaRoot:        t.TempDir(),
		PreserveOnDelete: true,
		RemovedSuffix:    "_removed",
	}
	b := newFilesystemBackend(t, cfg)
	ctx := context.Background()

	att := &model.Attachment{ID: 1, FileName: "a/b.txt"}
	if err := b.Write(ctx, nil, att, strings.NewReader("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if err := b.Unlink(ctx, nil, att); err != nil {
		t.Fatalf("Unlink: %v", err)
	}

	preserved := filepath.Join(cfg.MediaRoot, "a", "b.txt_removed")
	if _, err := os.Stat(preserved); err != nil {
		t.Errorf("preserved file missing: %v", err)
	}
}

// TestFilesystemURL 未配置 base_url 时报 ErrNotConfigured.
func TestFilesystemURL(t *testing.T) {
	b := newFilesystemBackend(t, nil)
	att := &model.Attachment{FileName: "a/b.txt"}

	if _, err := b.URL(context.Background(), att); !errors.Is(err, types.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}

	cfg := &configs.StorageConfig{MediaRoot: t.TempDir(), BaseURL: "https://cdn.example.com/media/"}
	b = newFilesystemBackend(t, cfg)

	u, err := b.URL(context.Background(), att)
	if err != nil {
		t.Fatalf("URL: %v", err)
	}

	if u != "https://cdn.example.com/media/a/b.txt" {
		t.Errorf("URL = %q", u)
	}
}

// TestUnsupportedBackend mysql/oracle 在构造阶段即失败.
func TestUnsupportedBackend(t *testing.T) {
	for _, bt := range []configs.BackendType{configs.BackendMySQL, configs.BackendOracle} {
		_, err := backend.New(backend.Deps{Cfg: &configs.StorageConfig{Backend: string(bt)}})
		if !errors.Is(err, types.ErrUnsupportedBackend) {
			t.Errorf("%s: expected ErrUnsupportedBackend, got %v", bt, err)
		}
	}
}
