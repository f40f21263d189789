// Package source holds an in-memory snapshot of a Ruby file and the
// position helpers the locator needs.
package source

import (
	"bytes"
	"fmt"
	"os"
)

// Buffer is a read-only snapshot of a source file.
type Buffer struct {
	Path    string
	Content []byte
}

// Load reads a source file into a Buffer.
func Load(path string) (*Buffer, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading file %s: %w", path, err)
	}
	return &Buffer{Path: path, Content: content}, nil
}

// New wraps content in a Buffer.
func New(path string, content []byte) *Buffer {
	return &Buffer{Path: path, Content: content}
}

// Len returns the size of the buffer in bytes.
func (b *Buffer) Len() int {
	return len(b.Content)
}

// LineTextAt returns the line containing offset, without its newline.
// Offsets outside the buffer are clamped.
func (b *Buffer) LineTextAt(offset int) string {
	offset = b.clamp(offset)
	start := bytes.LastIndexByte(b.Content[:offset], '\n') + 1
	end := bytes.IndexByte(b.Content[offset:], '\n')
	if end < 0 {
		end = len(b.Content)
	} else {
		end += offset
	}
	return string(bytes.TrimSuffix(b.Content[start:end], []byte("\r")))
}

// OffsetOfLine returns the offset of the first byte of the 1-based line.
// Lines past the end map to the end of the buffer.
func (b *Buffer) OffsetOfLine(line int) int {
	if line <= 1 {
		return 0
	}
	offset := 0
	for n := 1; n < line; n++ {
		i := bytes.IndexByte(b.Content[offset:], '\n')
		if i < 0 {
			return len(b.Content)
		}
		offset += i + 1
	}
	return offset
}

// EndOfLine returns the offset of the last byte on the 1-based line, so a
// cursor placed anywhere on that line is covered.
func (b *Buffer) EndOfLine(line int) int {
	start := b.OffsetOfLine(line)
	i := bytes.IndexByte(b.Content[start:], '\n')
	if i < 0 {
		return len(b.Content)
	}
	return start + i
}

// LineOfOffset returns the 1-based line containing offset.
func (b *Buffer) LineOfOffset(offset int) int {
	offset = b.clamp(offset)
	return bytes.Count(b.Content[:offset], []byte("\n")) + 1
}

func (b *Buffer) clamp(offset int) int {
	if offset < 0 {
		return 0
	}
	if offset > len(b.Content) {
		return len(b.Content)
	}
	return offset
}
