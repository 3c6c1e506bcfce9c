package decompress

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/crazy-max/unpayload/pkg/source"
	"github.com/pkg/errors"
	"github.com/ulikunitz/xz/lzma"
)

const (
	// LZMAPropertiesSize is the size of the properties block (lc/lp/pb byte
	// and dictionary size) at the start of an lzma stream.
	LZMAPropertiesSize = 5
	// LZMAHeaderSize is the properties block followed by the 8 byte
	// uncompressed length.
	LZMAHeaderSize = LZMAPropertiesSize + 8

	// unknownSize in the length field means the stream is terminated by an
	// end of stream marker.
	unknownSize = ^uint64(0)

	minDictSize = 1 << 12
)

// Properties are the decoder parameters parsed from the stream header
type Properties struct {
	LC       int
	LP       int
	PB       int
	DictSize uint32
}

// ParseProperties decodes the 5 byte properties block
func ParseProperties(b []byte) (Properties, error) {
	if len(b) < LZMAPropertiesSize {
		return Properties{}, errors.Errorf("properties block is %d bytes, want %d", len(b), LZMAPropertiesSize)
	}
	d := int(b[0])
	if d >= 9*5*5 {
		return Properties{}, errors.Errorf("invalid properties byte 0x%02x", b[0])
	}
	p := Properties{
		LC:       d % 9,
		LP:       (d / 9) % 5,
		PB:       d / 45,
		DictSize: binary.LittleEndian.Uint32(b[1:LZMAPropertiesSize]),
	}
	if p.DictSize < minDictSize {
		p.DictSize = minDictSize
	}
	return p, nil
}

// LZMAReader decodes a raw lzma stream ("lzma alone" header) read from a wrapped
// Source.
type LZMAReader struct {
	input     source.Source
	lr        *lzma.Reader
	props     Properties
	size      uint64
	available int64
	pos       int64
}

// NewLZMA parses the stream header from input, sizes the decoder from the
// parsed properties and returns the decoding Source. LZMAReader owns input from now
// on.
func NewLZMA(input source.Source) (*LZMAReader, error) {
	var hdr [LZMAHeaderSize]byte
	if _, err := io.ReadFull(input, hdr[:]); err != nil {
		_ = input.Close()
		return nil, &Error{Codec: LZMA, Op: "header", Err: err}
	}
	props, err := ParseProperties(hdr[:LZMAPropertiesSize])
	if err != nil {
		_ = input.Close()
		return nil, &Error{Codec: LZMA, Op: "properties", Err: err}
	}
	size := binary.LittleEndian.Uint64(hdr[LZMAPropertiesSize:])
	if size != unknownSize && size > math.MaxInt64 {
		_ = input.Close()
		return nil, &Error{Codec: LZMA, Op: "header", Err: errors.Errorf("declared size %d out of range", size)}
	}

	cfg := lzma.ReaderConfig{DictCap: int(props.DictSize)}
	lr, err := cfg.NewReader(io.MultiReader(bytes.NewReader(hdr[:]), input))
	if err != nil {
		_ = input.Close()
		return nil, &Error{Codec: LZMA, Op: "init", Err: err}
	}

	available := int64(-1)
	if size != unknownSize {
		available = int64(size)
	}
	return &LZMAReader{
		input:     input,
		lr:        lr,
		props:     props,
		size:      size,
		available: available,
	}, nil
}

// Properties returns the decoder parameters from the stream header
func (l *LZMAReader) Properties() Properties {
	return l.props
}

// Size returns the uncompressed length declared in the header and whether
// it is known.
func (l *LZMAReader) Size() (uint64, bool) {
	return l.size, l.size != unknownSize
}

// Read decodes into p. Requests are clamped to the bytes that remain
// according to the header. Reaching the end of the stream releases the
// decoder and the wrapped source.
func (l *LZMAReader) Read(p []byte) (int, error) {
	if l.lr == nil || l.available == 0 {
		return 0, io.EOF
	}
	if l.available > 0 && int64(len(p)) > l.available {
		p = p[:l.available]
	}
	var n int
	var end bool
	for n < len(p) {
		m, err := l.lr.Read(p[n:])
		n += m
		if err == io.EOF {
			if l.available > int64(n) {
				l.advance(n)
				return n, &Error{Codec: LZMA, Op: "decode", Err: io.ErrUnexpectedEOF}
			}
			end = true
			break
		} else if err != nil {
			l.advance(n)
			return n, &Error{Codec: LZMA, Op: "decode", Err: err}
		}
	}
	l.advance(n)
	if end || l.available == 0 {
		if err := l.Close(); err != nil {
			return n, err
		}
	}
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (l *LZMAReader) advance(n int) {
	l.pos += int64(n)
	if l.available > 0 {
		l.available -= int64(n)
	}
}

// Pos returns the number of decoded bytes produced
func (l *LZMAReader) Pos() int64 {
	return l.pos
}

// Close drops the decoder tables and dictionary and releases the wrapped
// source.
func (l *LZMAReader) Close() error {
	if l.lr == nil {
		return nil
	}
	err := l.input.Close()
	l.lr, l.input = nil, nil
	return err
}
