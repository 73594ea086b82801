package model_test

import (
	"context"
	"testing"

	"github.com/yeisme/attachvault/pkg/internal/model"
)

// TestSlugify 非字母数字折叠为连字符，首尾不留连字符.
func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"doc-7-report.pdf", "doc-7-report-pdf"},
		{"My File (final).PDF", "my-file-final-pdf"},
		{"--already--slugged--", "already-slugged"},
		{"___", ""},
	}

	for _, c := range cases {
		if got := model.Slugify(c.in); got != c.want {
			t.Errorf("Slugify(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

// TestPreSlug slug 源串由 owner 类型、行 ID 与文件名拼接.
func TestPreSlug(t *testing.T) {
	a := &model.Attachment{
		ID:        7,
		OwnerType: "doc",
		OwnerID:   42,
		FileName:  "attachments/doc/42/report.pdf",
	}

	if got, want := a.PreSlug(), "doc-7-report.pdf"; got != want {
		t.Errorf("PreSlug = %q, want %q", got, want)
	}

	if got, want := model.Slugify(a.PreSlug()), "doc-7-report-pdf"; got != want {
		t.Errorf("Slugify(PreSlug) = %q, want %q", got, want)
	}
}

type fakeOwner struct {
	tag string
	id  uint64
}

func (f fakeOwner) TypeTag() string   { return f.tag }
func (f fakeOwner) NumericID() uint64 { return f.id }

// TestOwnerRegistry 注册的类型可以解析，未注册的类型报错.
func TestOwnerRegistry(t *testing.T) {
	reg := model.NewOwnerRegistry()
	reg.Register("doc", func(_ context.Context, id uint64) (model.Owner, error) {
		return fakeOwner{tag: "doc", id: id}, nil
	})

	owner, err := reg.Resolve(context.Background(), "doc", 42)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	if owner.NumericID() != 42 || owner.TypeTag() != "doc" {
		t.Errorf("resolved owner = %v/%d", owner.TypeTag(), owner.NumericID())
	}

	if _, err := reg.Resolve(context.Background(), "page", 1); err == nil {
		t.Error("expected error for unregistered owner type")
	}
}
