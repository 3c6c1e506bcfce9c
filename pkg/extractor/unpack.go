package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/crazy-max/unpayload/pkg/decompress"
	"github.com/crazy-max/unpayload/pkg/source"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// UnpackOpts holds unpack options
type UnpackOpts struct {
	Context  context.Context
	Logger   zerolog.Logger
	Codec    decompress.Codec
	Includes []string
}

// Unpack decompresses data with the configured codec and materializes its
// entries under dest. data is only viewed, never retained. On failure the
// reporter's Error hook has been called with the returned error's message
// and entries written so far are left in place.
func Unpack(data []byte, dest string, reporter Reporter, opts UnpackOpts) error {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Codec == "" {
		opts.Codec = decompress.DefaultCodec
	}
	if reporter == nil {
		reporter = NopReporter{}
	}
	err := unpack(data, dest, reporter, opts)
	if err != nil {
		opts.Logger.Debug().Err(err).Msg("Unpack failed")
		reporter.Error(err.Error())
	}
	return err
}

func unpack(data []byte, dest string, reporter Reporter, opts UnpackOpts) error {
	src, err := decompress.New(opts.Codec, source.NewMemory(data))
	if err != nil {
		return errors.Wrap(err, "couldn't decompress installation files")
	}
	defer src.Close()

	reporter.Message("Creating installation directory")
	if err = EnsureDirectory(dest); err != nil {
		return err
	}

	u := &unpacker{
		ctx:      opts.Context,
		logger:   opts.Logger.With().Str("codec", string(opts.Codec)).Logger(),
		reporter: reporter,
		src:      src,
		entries:  newEntryReader(src),
		dest:     dest,
		includes: includeList(opts.Includes),
	}
	return u.run()
}

// unpacker walks the entry stream. It is single use.
type unpacker struct {
	ctx      context.Context
	logger   zerolog.Logger
	reporter Reporter
	src      source.Source
	entries  *entryReader
	dest     string
	includes []string

	total uint32
	count uint32
}

func (u *unpacker) run() error {
	total, err := u.entries.Header()
	if err != nil {
		return err
	}
	u.total = total
	u.logger.Debug().Msgf("Archive header declares %d entries", total)

	u.reporter.Status(0, u.total)
	u.reporter.Message("Uncompressing files...")

	for {
		if err = u.ctx.Err(); err != nil {
			return errors.Wrap(err, "extraction cancelled")
		}
		e, err := u.entries.Next()
		if err != nil {
			return err
		}
		if e.IsEnd() {
			break
		}
		if err = u.entry(e); err != nil {
			return err
		}
	}

	u.logger.Debug().Msgf("Reached end of archive after %d entries (%d bytes)", u.count, u.src.Pos())
	u.reporter.Message("Finishing Installation")
	return nil
}

func (u *unpacker) entry(e Entry) error {
	name := cleanName(e.Name)
	path, err := targetPath(u.dest, name)
	if err != nil {
		return err
	}

	u.count++
	u.reporter.Status(u.count, u.total)
	u.reporter.Message(fmt.Sprintf("[%s] %s (%d bytes)", e.Tag, path, e.Size))

	if !fileIsIncluded(u.includes, strings.TrimPrefix(name, "/")) {
		u.logger.Trace().Msgf("Skipping %s", name)
		if e.IsDir() {
			return nil
		}
		return discard(u.ctx, u.src, int64(e.Size), path)
	}

	if e.IsDir() {
		u.logger.Trace().Msgf("Extracting %s", name)
		u.reporter.NewDirectory(path)
		return EnsureDirectory(path)
	}

	if e.Tag != TagFile {
		u.logger.Debug().Msgf("Entry %s has tag %q, extracting as file", name, e.Tag)
	}
	u.logger.Debug().Msgf("Extracting %s", name)
	if err = EnsureDirectory(filepath.Dir(path)); err != nil {
		return err
	}
	u.reporter.NewFile(path)
	return WriteStreamToFile(u.ctx, path, u.src, int64(e.Size))
}

func includeList(includes []string) []string {
	var list []string
	for _, inc := range includes {
		inc = strings.TrimPrefix(cleanName(inc), "/")
		if len(inc) > 0 {
			list = append(list, inc)
		}
	}
	return list
}

func fileIsIncluded(filenameList []string, filename string) bool {
	// include all files if there is no specific list
	if len(filenameList) == 0 {
		return true
	}
	for _, fn := range filenameList {
		// exact matches are of course included
		if filename == fn || filename == strings.TrimSuffix(fn, "/") {
			return true
		}
		// also consider the file included if its parent folder/path is in the list
		if strings.HasPrefix(filename, strings.TrimSuffix(fn, "/")+"/") {
			return true
		}
	}
	return false
}
