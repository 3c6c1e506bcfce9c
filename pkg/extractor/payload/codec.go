package payload

import (
	"bytes"
	"context"

	"github.com/crazy-max/unpayload/pkg/decompress"
	"github.com/mholt/archives"
	"github.com/pkg/errors"
)

// CodecAuto detects the payload compression from its first bytes
const CodecAuto = "auto"

func (c *Client) codec(data []byte) (decompress.Codec, error) {
	if c.opts.Codec != "" && c.opts.Codec != CodecAuto {
		return decompress.ParseCodec(c.opts.Codec)
	}
	codec, err := DetectCodec(c.ctx, data)
	if err != nil {
		return "", err
	}
	c.logger.Debug().Msgf("Payload compression %s detected", codec)
	return codec, nil
}

// DetectCodec returns deflate for a zlib stream and lzma when the payload
// starts with a valid lzma properties block. Formats without a magic number
// (brotli) can claim an lzma stream, so they only win when the properties
// block is invalid.
func DetectCodec(ctx context.Context, data []byte) (decompress.Codec, error) {
	format, _, err := archives.Identify(ctx, "", bytes.NewReader(data))
	if err == nil && format.Extension() == (archives.Zlib{}).Extension() {
		return decompress.Deflate, nil
	} else if err != nil && !errors.Is(err, archives.NoMatch) {
		return "", errors.Wrap(err, "cannot identify payload format")
	}
	if len(data) >= decompress.LZMAHeaderSize {
		if _, perr := decompress.ParseProperties(data[:decompress.LZMAPropertiesSize]); perr == nil {
			return decompress.LZMA, nil
		}
	}
	if err == nil {
		return "", errors.Errorf("payload format not supported: %s", format.Extension())
	}
	return "", errors.New("payload compression not recognized")
}
