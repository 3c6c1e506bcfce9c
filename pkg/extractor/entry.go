package extractor

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

const (
	TagDir  = "DIR"
	TagEnd  = "END"
	TagFile = "FIL"

	tagSize = 3
)

// Entry is a directory or file record. Size is the length of the payload
// that follows the record for file entries.
type Entry struct {
	Tag  string
	Size uint32
	Name string
}

// IsDir reports whether the entry is a directory
func (e Entry) IsDir() bool {
	return e.Tag == TagDir
}

// IsEnd reports whether the entry is the terminator
func (e Entry) IsEnd() bool {
	return e.Tag == TagEnd
}

// entryReader decodes the archive header and entry records. It never
// consumes file payloads.
type entryReader struct {
	r   io.Reader
	buf [256]byte
}

func newEntryReader(r io.Reader) *entryReader {
	return &entryReader{r: r}
}

func (er *entryReader) readFull(n int, field string) ([]byte, error) {
	p := er.buf[:n]
	if _, err := io.ReadFull(er.r, p); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, errors.Wrapf(ErrUnexpectedEOF, "reading %s", field)
		}
		return nil, errors.Wrapf(err, "reading %s", field)
	}
	return p, nil
}

// Header reads the advisory entry count
func (er *entryReader) Header() (uint32, error) {
	p, err := er.readFull(4, "header")
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(p), nil
}

// Next reads the next record. The terminator is returned as an Entry with
// IsEnd set and no further fields.
func (er *entryReader) Next() (Entry, error) {
	p, err := er.readFull(tagSize, "tag")
	if err != nil {
		return Entry{}, err
	}
	e := Entry{Tag: string(p)}
	if e.IsEnd() {
		return e, nil
	}
	if p, err = er.readFull(4, "length"); err != nil {
		return Entry{}, err
	}
	e.Size = binary.LittleEndian.Uint32(p)
	if p, err = er.readFull(1, "filename length"); err != nil {
		return Entry{}, err
	}
	if p, err = er.readFull(int(p[0]), "filename"); err != nil {
		return Entry{}, err
	}
	e.Name = string(p)
	return e, nil
}
