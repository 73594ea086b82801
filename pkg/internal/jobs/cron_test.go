package jobs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yeisme/attachvault/pkg/internal/storage"
)

// TestPurgeFilesystem 只清除带保留后缀且超期的文件.
func TestPurgeFilesystem(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "attachments", "doc", "42")

	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	old := filepath.Join(sub, "report.pdf_removed")
	fresh := filepath.Join(sub, "notes.txt_removed")
	live := filepath.Join(sub, "live.txt")

	for _, p := range []string{old, fresh, live} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}

	// old 的修改时间拨回 40 天前，超过默认保留期
	past := time.Now().AddDate(0, 0, -40)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	mgr := &storage.Manager{}
	before := time.Now().AddDate(0, 0, -30)

	purged, err := purgeFilesystem(context.Background(), mgr, root, "_removed", before)
	if err != nil {
		t.Fatalf("purgeFilesystem: %v", err)
	}

	if purged != 1 {
		t.Errorf("purged = %d, want 1", purged)
	}

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Errorf("expired preserved file still exists")
	}

	for _, p := range []string{fresh, live} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s should survive purge: %v", p, err)
		}
	}
}

// TestPurgeFilesystemMissingRoot 根目录不存在视为无事可做.
func TestPurgeFilesystemMissingRoot(t *testing.T) {
	mgr := &storage.Manager{}

	purged, err := purgeFilesystem(context.Background(), mgr, filepath.Join(t.TempDir(), "nope"), "_removed", time.Now())
	if err != nil {
		t.Fatalf("purgeFilesystem: %v", err)
	}

	if purged != 0 {
		t.Errorf("purged = %d, want 0", purged)
	}
}

// TestRegisterCronJobsNilArgs 参数缺失直接报错.
func TestRegisterCronJobsNilArgs(t *testing.T) {
	if err := RegisterCronJobs(nil, &storage.Manager{}); err == nil {
		t.Error("expected error for nil scheduler")
	}
}
