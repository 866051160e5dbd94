// Package validator enforces the upload policy for plain-text files.
package validator

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

const (
	// Extension is the only accepted filename suffix.
	Extension = ".txt"
	// ContentType is the only accepted declared MIME type.
	ContentType = "text/plain"
	// MinSize is the smallest accepted payload in bytes.
	MinSize int64 = 512
	// MaxSize is the largest accepted payload in bytes.
	MaxSize int64 = 2048
	// SniffSize is how many leading bytes are inspected for binary content.
	SniffSize = 1024
)

// ValidationError is a client-facing rejection. Message is shown to the user verbatim.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	ErrInvalidFileType = &ValidationError{Code: "INVALID_FILE_TYPE", Message: "Only .txt files are allowed."}
	ErrFileTooSmall    = &ValidationError{Code: "FILE_TOO_SMALL", Message: "File size is too small. Minimum size is 0.5KB."}
	ErrFileTooLarge    = &ValidationError{Code: "FILE_TOO_LARGE", Message: "File size exceeds 2KB limit."}
	ErrNotPlainText    = &ValidationError{Code: "NOT_PLAIN_TEXT", Message: "The file content must be plain text."}
)

// Payload is an uploaded file as declared by the client.
type Payload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.ReadSeeker
}

// Validate applies the checks cheapest first: declared type, size bounds,
// then a sniff of the leading bytes. Body is rewound to the start on success.
func Validate(p Payload) error {
	if !strings.HasSuffix(p.Filename, Extension) || p.ContentType != ContentType {
		return ErrInvalidFileType
	}
	if p.Size < MinSize {
		return ErrFileTooSmall
	}
	if p.Size > MaxSize {
		return ErrFileTooLarge
	}
	if p.Body == nil {
		return errors.New("validator: payload body is nil")
	}

	buf := make([]byte, SniffSize)
	n, err := io.ReadFull(p.Body, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("validator: read sample: %w", err)
	}
	if _, err := p.Body.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("validator: rewind body: %w", err)
	}

	// only a payload longer than the window can have a rune cut at its edge
	if !IsPlainText(buf[:n], n == SniffSize && p.Size > SniffSize) {
		return ErrNotPlainText
	}
	return nil
}

// IsPlainText reports whether sample is NUL-free UTF-8. When truncated is true
// the sample was cut by the probe window, so an incomplete trailing rune is allowed.
func IsPlainText(sample []byte, truncated bool) bool {
	if bytes.IndexByte(sample, 0) >= 0 {
		return false
	}
	if utf8.Valid(sample) {
		return true
	}
	if !truncated {
		return false
	}
	// drop at most one partial rune (up to UTFMax-1 bytes) from the tail
	for cut := 1; cut < utf8.UTFMax && cut <= len(sample); cut++ {
		head, tail := sample[:len(sample)-cut], sample[len(sample)-cut:]
		if utf8.Valid(head) && !utf8.FullRune(tail) && utf8.RuneStart(tail[0]) {
			return true
		}
	}
	return false
}
