package app

import (
	"context"
	"os"

	"github.com/crazy-max/unpayload/pkg/config"
	"github.com/crazy-max/unpayload/pkg/extractor/payload"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Unpayload represents an active unpayload object
type Unpayload struct {
	ctx    context.Context
	cancel context.CancelFunc
	meta   config.Meta
	cli    config.Cli
}

// New creates new unpayload instance
func New(meta config.Meta, cli config.Cli) (*Unpayload, error) {
	if len(cli.Source) == 0 {
		return nil, errors.New("source is required")
	}
	if len(cli.Dist) == 0 {
		return nil, errors.New("dist folder is required")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Unpayload{
		ctx:    ctx,
		cancel: cancel,
		meta:   meta,
		cli:    cli,
	}, nil
}

// Start starts unpayload
func (c *Unpayload) Start() error {
	if _, err := os.Stat(c.cli.Dist); err == nil && c.cli.RmDist {
		if err := os.RemoveAll(c.cli.Dist); err != nil {
			return errors.Wrapf(err, "failed to remove dist folder %q", c.cli.Dist)
		}
	}

	ext, err := payload.New(c.ctx, payload.Options{
		Source:   c.cli.Source,
		Offset:   c.cli.Offset,
		Digest:   c.cli.Digest,
		Codec:    c.cli.Codec,
		Includes: c.cli.Includes,
		Dist:     c.cli.Dist,
		Progress: c.cli.Progress,
	})
	if err != nil {
		return errors.Wrap(err, "cannot create extractor")
	}

	log.Debug().Str("type", ext.Type()).Msgf("Starting %s", c.meta.Name)
	return ext.Extract()
}

// Close cancels a running extraction. The extraction stops before the next
// entry or chunk.
func (c *Unpayload) Close() {
	if c.cancel != nil {
		c.cancel()
	}
}
