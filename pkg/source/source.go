package source

import (
	"io"
)

// Source is a sequential byte producer. Read fills p completely unless the
// underlying data is exhausted, in which case it returns what is left and
// io.EOF on the following call. Close releases everything the source owns,
// including a wrapped Source, and is safe to call more than once.
type Source interface {
	io.ReadCloser
	// Pos returns the number of bytes produced so far.
	Pos() int64
}

// Memory is a non-owning view over a caller supplied buffer. Closing it drops
// the view but never touches the underlying bytes.
type Memory struct {
	data []byte
	pos  int64
}

// NewMemory returns a Source reading from data
func NewMemory(data []byte) *Memory {
	return &Memory{data: data}
}

// Read copies min(remaining, len(p)) bytes and advances the cursor
func (m *Memory) Read(p []byte) (int, error) {
	if m.pos >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[m.pos:])
	m.pos += int64(n)
	return n, nil
}

// Pos returns the cursor position
func (m *Memory) Pos() int64 {
	return m.pos
}

// Len returns the number of unread bytes
func (m *Memory) Len() int {
	if m.pos >= int64(len(m.data)) {
		return 0
	}
	return len(m.data) - int(m.pos)
}

// Close drops the view. Subsequent reads return io.EOF.
func (m *Memory) Close() error {
	m.data = nil
	return nil
}
