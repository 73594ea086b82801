// Package checksum 提供附件载荷的流式 MD5 摘要计算.
package checksum

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
)

// ChunkSize 摘要计算的读取块大小.
const ChunkSize = 64 * 1024

// Digest 以 64KiB 为单位流式读取 r 并返回 MD5 的十六进制摘要.
// 计算前后都会把读取位置归零，调用方可以接着把同一个 reader
// 交给后端做真正的写入.
func Digest(r io.ReadSeeker) (string, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("seek payload: %w", err)
	}

	h := md5.New()
	buf := make([]byte, ChunkSize)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}

		if err == io.EOF {
			break
		}

		if err != nil {
			return "", fmt.Errorf("read payload: %w", err)
		}
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind payload: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// DigestBytes 计算字节切片的 MD5 十六进制摘要.
func DigestBytes(b []byte) string {
	sum := md5.Sum(b)

	return hex.EncodeToString(sum[:])
}
