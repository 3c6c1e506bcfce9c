package decompress

import (
	"bufio"
	"io"

	"github.com/crazy-max/unpayload/pkg/source"
	"github.com/klauspost/compress/zlib"
)

// DeflateBufferSize is the size of the staging buffer compressed bytes are
// pulled into from the wrapped source.
const DeflateBufferSize = 16 * 1024

// DeflateReader inflates a zlib stream read from a wrapped Source
type DeflateReader struct {
	input   source.Source
	staging *bufio.Reader
	zr      io.ReadCloser
	pos     int64
}

// NewDeflate reads the zlib header from input and returns the inflating
// Source. DeflateReader owns input from now on.
func NewDeflate(input source.Source) (*DeflateReader, error) {
	staging := bufio.NewReaderSize(input, DeflateBufferSize)
	zr, err := zlib.NewReader(staging)
	if err != nil {
		_ = input.Close()
		return nil, &Error{Codec: Deflate, Op: "init", Err: err}
	}
	return &DeflateReader{
		input:   input,
		staging: staging,
		zr:      zr,
	}, nil
}

// Read inflates into p until it is full or the stream ends. The stream end
// releases the inflater and the wrapped source; later calls return io.EOF.
func (d *DeflateReader) Read(p []byte) (int, error) {
	if d.zr == nil {
		return 0, io.EOF
	}
	var n int
	for n < len(p) {
		m, err := d.zr.Read(p[n:])
		n += m
		if err == io.EOF {
			d.pos += int64(n)
			if rerr := d.release(); rerr != nil {
				return n, rerr
			}
			if n == 0 {
				return 0, io.EOF
			}
			return n, nil
		} else if err != nil {
			d.pos += int64(n)
			return n, &Error{Codec: Deflate, Op: "inflate", Err: err}
		}
	}
	d.pos += int64(n)
	return n, nil
}

// Pos returns the number of decompressed bytes produced
func (d *DeflateReader) Pos() int64 {
	return d.pos
}

// Exhausted reports whether the end of the stream has been reached or the
// source has been closed.
func (d *DeflateReader) Exhausted() bool {
	return d.zr == nil
}

// Close releases the inflater and the wrapped source if the stream end has
// not done so already.
func (d *DeflateReader) Close() error {
	return d.release()
}

func (d *DeflateReader) release() error {
	if d.zr == nil {
		return nil
	}
	zerr := d.zr.Close()
	ierr := d.input.Close()
	d.zr, d.staging, d.input = nil, nil, nil
	if zerr != nil {
		return &Error{Codec: Deflate, Op: "end", Err: zerr}
	}
	return ierr
}
