package checksum_test

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/yeisme/attachvault/pkg/internal/checksum"
)

// TestDigestKnownValue 校验已知内容的摘要值.
func TestDigestKnownValue(t *testing.T) {
	r := strings.NewReader("hello world")

	got, err := checksum.Digest(r)
	if err != nil {
		t.Fatalf("Digest returned error: %v", err)
	}

	const want = "5eb63bbbe01eeed093cb22bb8f5acdc3"
	if got != want {
		t.Errorf("Digest = %q, want %q", got, want)
	}
}

// TestDigestRestoresPosition 摘要计算后读取位置必须回到起点，
// 调用方才能复用同一个 reader 做实际写入.
func TestDigestRestoresPosition(t *testing.T) {
	payload := []byte("payload to be written after digesting")
	r := bytes.NewReader(payload)

	// 先移动到中间，Digest 应当从头读取并复位
	if _, err := r.Seek(5, io.SeekStart); err != nil {
		t.Fatalf("seek: %v", err)
	}

	if _, err := checksum.Digest(r); err != nil {
		t.Fatalf("Digest returned error: %v", err)
	}

	rest, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read after digest: %v", err)
	}

	if !bytes.Equal(rest, payload) {
		t.Errorf("reader not rewound: got %d bytes, want %d", len(rest), len(payload))
	}
}

// TestDigestLargePayload 跨多个块的内容与一次性计算结果一致.
func TestDigestLargePayload(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, checksum.ChunkSize*3+17)

	got, err := checksum.Digest(bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("Digest returned error: %v", err)
	}

	if want := checksum.DigestBytes(payload); got != want {
		t.Errorf("streamed digest %q != one-shot digest %q", got, want)
	}
}

// TestDigestEmpty 空内容也有确定的摘要.
func TestDigestEmpty(t *testing.T) {
	got, err := checksum.Digest(bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("Digest returned error: %v", err)
	}

	const want = "d41d8cd98f00b204e9800998ecf8427e"
	if got != want {
		t.Errorf("Digest of empty payload = %q, want %q", got, want)
	}
}
