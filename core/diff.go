package core

import (
	"bytes"
	"encoding/base64"
	"strings"
)

const (
	MessageSame          = "Left and Right are the same."
	MessageDifferentSize = "Left and Right have different sizes."
	MessageSameSize      = "Left and Right have same size, but with different content."
)

// Diff compares two payloads byte by byte at equal positions. Offsets are only
// reported when both payloads have the same length.
func Diff(left, right []byte) *DiffResult {
	if bytes.Equal(left, right) {
		return &DiffResult{Message: MessageSame}
	}
	if len(left) != len(right) {
		return &DiffResult{Message: MessageDifferentSize}
	}

	length := len(left)
	offsets := []int{}
	for i := 0; i < length; i++ {
		if left[i] != right[i] {
			offsets = append(offsets, i)
		}
	}
	return &DiffResult{
		Message:     MessageSameSize,
		Length:      &length,
		DiffOffsets: offsets,
	}
}

// DecodeBase64 decodes standard padded base64, ignoring embedded spaces, tabs
// and line breaks. Any other character, including Unicode white space, is invalid.
func DecodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, s))
}
