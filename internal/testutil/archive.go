// Package testutil builds payload archives for tests. Nothing outside tests
// writes archives.
package testutil

import (
	"bytes"
	"encoding/binary"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz/lzma"
)

// Builder writes the uncompressed archive stream
type Builder struct {
	buf bytes.Buffer
}

// NewBuilder starts an archive whose header declares count entries
func NewBuilder(count uint32) *Builder {
	b := &Builder{}
	_ = binary.Write(&b.buf, binary.LittleEndian, count)
	return b
}

// Dir appends a directory entry
func (b *Builder) Dir(name string) *Builder {
	return b.entry("DIR", name, 0, nil)
}

// File appends a file entry with the FIL tag
func (b *Builder) File(name string, data []byte) *Builder {
	return b.Entry("FIL", name, data)
}

// Entry appends an entry with an arbitrary tag followed by its payload
func (b *Builder) Entry(tag string, name string, data []byte) *Builder {
	return b.entry(tag, name, uint32(len(data)), data)
}

// Raw appends bytes as is
func (b *Builder) Raw(p []byte) *Builder {
	b.buf.Write(p)
	return b
}

// End appends the terminator
func (b *Builder) End() *Builder {
	b.buf.WriteString("END")
	return b
}

// Bytes returns the uncompressed stream
func (b *Builder) Bytes() []byte {
	return b.buf.Bytes()
}

func (b *Builder) entry(tag string, name string, size uint32, data []byte) *Builder {
	if len(tag) != 3 {
		panic("tag must be 3 bytes: " + tag)
	}
	if len(name) > 255 {
		panic("name too long: " + name)
	}
	b.buf.WriteString(tag)
	_ = binary.Write(&b.buf, binary.LittleEndian, size)
	b.buf.WriteByte(byte(len(name)))
	b.buf.WriteString(name)
	b.buf.Write(data)
	return b
}

// Tree packs the directory tree under root, directories before their
// contents. It returns the builder without terminator and the expected file
// contents keyed by slash separated relative path.
func Tree(t testing.TB, root string) (*Builder, map[string][]byte) {
	t.Helper()
	type item struct {
		name string
		dir  bool
		data []byte
	}
	var items []item
	files := make(map[string][]byte)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = "./" + filepath.ToSlash(rel)
		if d.IsDir() {
			items = append(items, item{name: rel, dir: true})
			return nil
		}
		dt, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		items = append(items, item{name: rel, data: dt})
		files[filepath.ToSlash(rel[2:])] = dt
		return nil
	})
	require.NoError(t, err)

	b := NewBuilder(uint32(len(items)))
	for _, it := range items {
		if it.dir {
			b.Dir(it.name)
		} else {
			b.File(it.name, it.data)
		}
	}
	return b, files
}

// Zlib compresses p as a zlib stream
func Zlib(t testing.TB, p []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write(p)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// LZMA compresses p as an lzma stream with the uncompressed length in the
// header. An empty p yields an end of stream marker terminated stream since
// the writer does not record a zero length.
func LZMA(t testing.TB, p []byte) []byte {
	t.Helper()
	if len(p) == 0 {
		return LZMAStream(t, p)
	}
	var buf bytes.Buffer
	w, err := lzma.WriterConfig{
		SizeInHeader: true,
		Size:         int64(len(p)),
	}.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write(p)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// LZMAStream compresses p as an lzma stream of unknown length terminated by
// an end of stream marker.
func LZMAStream(t testing.TB, p []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := lzma.WriterConfig{EOSMarker: true}.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write(p)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}
