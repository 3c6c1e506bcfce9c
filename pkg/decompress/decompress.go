package decompress

import (
	"fmt"
	"strings"

	"github.com/crazy-max/unpayload/pkg/source"
	"github.com/pkg/errors"
)

// Codec identifies a decompression backend
type Codec string

const (
	Deflate Codec = "deflate"
	LZMA    Codec = "lzma"
)

// DefaultCodec is the backend used when none is configured. It is fixed at
// build time: deflate, or lzma when built with the lzma tag.
const DefaultCodec = defaultCodec

// ParseCodec parses a codec name. An empty name returns DefaultCodec.
func ParseCodec(name string) (Codec, error) {
	switch Codec(strings.ToLower(strings.TrimSpace(name))) {
	case "":
		return DefaultCodec, nil
	case Deflate, "zlib":
		return Deflate, nil
	case LZMA:
		return LZMA, nil
	default:
		return "", errors.Errorf("unknown codec %q", name)
	}
}

// New wraps input with the decompressor for codec. The returned Source owns
// input; on error input has already been released.
func New(codec Codec, input source.Source) (source.Source, error) {
	switch codec {
	case Deflate:
		return NewDeflate(input)
	case LZMA:
		return NewLZMA(input)
	default:
		_ = input.Close()
		return nil, errors.Errorf("unknown codec %q", codec)
	}
}

// Error is returned when a codec reports anything other than progress or
// end of stream.
type Error struct {
	Codec Codec
	Op    string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Codec, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
