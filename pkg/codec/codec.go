package codec

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
)

// Threshold is the payload size in bytes above which payloads are
// compressed. Payloads of exactly Threshold bytes are stored raw.
const Threshold = 10000

// ShouldCompress reports whether a payload is large enough to benefit from
// compression. The comparison is strictly greater-than: a payload of exactly
// Threshold bytes is not compressed.
func ShouldCompress(text string) bool {
	return len(text) > Threshold
}

// Compress encodes text as gzip-compressed bytes. Empty input yields an
// empty (nil) byte slice.
func Compress(text string) ([]byte, error) {
	if text == "" {
		return nil, nil
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(text)); err != nil {
		return nil, fmt.Errorf("failed to compress payload: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize compressed payload: %w", err)
	}

	return buf.Bytes(), nil
}

// Decompress is the inverse of Compress. Empty or nil input yields the
// empty string.
func Decompress(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}

	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to open compressed payload: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return "", fmt.Errorf("failed to decompress payload: %w", err)
	}

	return string(out), nil
}

// CompressionRatio returns compressedSize/originalSize, or 0 when
// originalSize is 0.
func CompressionRatio(originalSize, compressedSize int) float64 {
	if originalSize == 0 {
		return 0
	}
	return float64(compressedSize) / float64(originalSize)
}

// SavingsPercent returns the space saved by compression as a percentage of
// the original size. The result is negative when compression expanded the
// data.
func SavingsPercent(originalSize, compressedSize int) float64 {
	if originalSize == 0 {
		return 0
	}
	return 100 - 100*float64(compressedSize)/float64(originalSize)
}
