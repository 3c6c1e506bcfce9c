package extractor

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/pkg/errors"
)

// ChunkSize is the size of the buffer file payloads are copied through
const ChunkSize = 4096

// EnsureDirectory creates path and any missing parents. An existing
// directory is not an error, an existing non-directory is.
func EnsureDirectory(path string) error {
	if path == "" {
		return nil
	}
	if st, err := os.Stat(path); err == nil {
		if st.IsDir() {
			return nil
		}
		return &FilesystemError{Op: "create directory", Path: path, Err: errors.New("not a directory")}
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return &FilesystemError{Op: "create directory", Path: path, Err: err}
	}
	return nil
}

// WriteStreamToFile copies exactly length bytes from r into a newly created
// file at path, ChunkSize bytes at a time.
func WriteStreamToFile(ctx context.Context, path string, r io.Reader, length int64) error {
	w, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return &FilesystemError{Op: "create file", Path: path, Err: err}
	}
	if err = copyChunks(ctx, w, r, length, path); err != nil {
		_ = w.Close()
		return err
	}
	if err = w.Close(); err != nil {
		return &FilesystemError{Op: "close file", Path: path, Err: err}
	}
	return nil
}

// discard consumes length bytes of a payload that is not written anywhere
func discard(ctx context.Context, r io.Reader, length int64, name string) error {
	return copyChunks(ctx, io.Discard, r, length, name)
}

func copyChunks(ctx context.Context, w io.Writer, r io.Reader, length int64, name string) error {
	r = readerContext(ctx, r)
	buf := make([]byte, ChunkSize)
	var pos int64
	for pos < length {
		l := int64(ChunkSize)
		if length-pos < l {
			l = length - pos
		}
		n, err := io.ReadFull(r, buf[:l])
		if err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return errors.Wrapf(ErrUnexpectedEOF, "couldn't read byte %d (pos+%d) from input for file %s", pos+int64(n), n, name)
			}
			return errors.Wrapf(err, "reading byte %d for file %s", pos+int64(n), name)
		}
		if _, err = w.Write(buf[:l]); err != nil {
			return &FilesystemError{Op: "write file", Path: name, Err: err}
		}
		pos += l
	}
	return nil
}

// cleanName strips any number of leading "./" or ".\" segments and converts
// both separator styles to slashes.
func cleanName(name string) string {
	for strings.HasPrefix(name, "./") || strings.HasPrefix(name, ".\\") {
		name = name[2:]
	}
	return strings.ReplaceAll(name, "\\", "/")
}

// targetPath resolves a cleaned entry name under root. The result never
// escapes root, whatever ".." components or symlinks the name runs into.
func targetPath(root, name string) (string, error) {
	if name == "" || name == "." {
		return root, nil
	}
	path, err := securejoin.SecureJoin(root, filepath.FromSlash(name))
	if err != nil {
		return "", errors.Wrapf(err, "cannot resolve %q under %q", name, root)
	}
	return path, nil
}
