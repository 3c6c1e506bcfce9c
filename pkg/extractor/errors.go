package extractor

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrUnexpectedEOF is returned when the stream ends before a field or a file
// payload is complete.
var ErrUnexpectedEOF = errors.New("unexpected end of archive")

// FilesystemError is returned when a directory or file cannot be created or
// written.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %q failed: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}
