package payload

import (
	"context"
	"io"
	"os"

	"github.com/crazy-max/unpayload/pkg/decompress"
	"github.com/crazy-max/unpayload/pkg/extractor"
	"github.com/dustin/go-humanize"
	"github.com/opencontainers/go-digest"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Client represents an active payload extractor object
type Client struct {
	*extractor.Client
	ctx    context.Context
	opts   Options
	logger zerolog.Logger
}

// Options represents payload extractor options
type Options struct {
	// Source file holding the payload
	Source string
	// Offset of the payload within Source
	Offset int64
	// Digest the payload must match, empty to skip verification
	Digest string
	// Codec is deflate, lzma or auto
	Codec string
	// Includes a subset of files/dirs from the payload
	Includes []string

	// Dist folder
	Dist string
	// Progress displays a progress bar on stderr
	Progress bool
	// ProgressOutput overrides the progress bar output
	ProgressOutput io.Writer
}

// New creates new payload extractor instance
func New(ctx context.Context, opts Options) (*extractor.Client, error) {
	if opts.Source == "" {
		return nil, errors.New("payload source is required")
	}
	if opts.Dist == "" {
		return nil, errors.New("dist folder is required")
	}
	if opts.Offset < 0 {
		return nil, errors.Errorf("invalid payload offset %d", opts.Offset)
	}
	if opts.Digest != "" {
		if _, err := digest.Parse(opts.Digest); err != nil {
			return nil, errors.Wrapf(err, "invalid payload digest %q", opts.Digest)
		}
	}
	if opts.Codec != "" && opts.Codec != CodecAuto {
		if _, err := decompress.ParseCodec(opts.Codec); err != nil {
			return nil, err
		}
	}
	if opts.ProgressOutput == nil {
		opts.ProgressOutput = os.Stderr
	}

	return &extractor.Client{
		Handler: &Client{
			ctx:    ctx,
			opts:   opts,
			logger: log.With().Str("src", opts.Source).Logger(),
		},
	}, nil
}

// Type returns the extractor type
func (c *Client) Type() string {
	return "payload"
}

// Extract unpacks the payload into the dist folder
func (c *Client) Extract() error {
	c.logger.Info().Msg("Extracting payload")

	data, err := c.load()
	if err != nil {
		return err
	}
	dgst := digest.FromBytes(data)
	c.logger.Info().Msgf("Payload loaded (%s, %s)", humanize.Bytes(uint64(len(data))), dgst)

	if err = c.verify(data); err != nil {
		return err
	}

	codec, err := c.codec(data)
	if err != nil {
		return err
	}
	logger := c.logger.With().Str("codec", string(codec)).Logger()
	logger.Debug().Msgf("Using %s decompression", codec)

	reporter := newReporter(logger, c.opts.Progress, c.opts.ProgressOutput)
	err = extractor.Unpack(data, c.opts.Dist, reporter, extractor.UnpackOpts{
		Context:  c.ctx,
		Logger:   logger,
		Codec:    codec,
		Includes: c.opts.Includes,
	})
	reporter.Wait()
	if err != nil {
		return errors.Wrapf(err, "cannot unpack payload to %s", c.opts.Dist)
	}

	logger.Info().Msgf("Extracted %d directories and %d files (%s) to %s",
		reporter.directories, reporter.files, humanize.Bytes(uint64(len(data))), c.opts.Dist)
	return nil
}

func (c *Client) load() ([]byte, error) {
	dt, err := os.ReadFile(c.opts.Source)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read payload source")
	}
	if c.opts.Offset > int64(len(dt)) {
		return nil, errors.Errorf("payload offset %d is beyond the end of %s (%d bytes)", c.opts.Offset, c.opts.Source, len(dt))
	}
	return dt[c.opts.Offset:], nil
}

func (c *Client) verify(data []byte) error {
	if c.opts.Digest == "" {
		return nil
	}
	expected := digest.Digest(c.opts.Digest)
	verifier := expected.Verifier()
	if _, err := verifier.Write(data); err != nil {
		return errors.Wrap(err, "cannot compute payload digest")
	}
	if !verifier.Verified() {
		return errors.Errorf("payload digest mismatch: expected %s, got %s", expected, expected.Algorithm().FromBytes(data))
	}
	c.logger.Debug().Msgf("Payload digest %s verified", expected)
	return nil
}
