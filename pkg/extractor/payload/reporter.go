package payload

import (
	"io"

	"github.com/rs/zerolog"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// reporter logs unpack events and drives an optional progress bar
type reporter struct {
	logger   zerolog.Logger
	progress bool
	output   io.Writer

	p   *mpb.Progress
	bar *mpb.Bar

	failed      bool
	directories int
	files       int
}

func newReporter(logger zerolog.Logger, progress bool, output io.Writer) *reporter {
	return &reporter{
		logger:   logger,
		progress: progress,
		output:   output,
	}
}

func (r *reporter) Message(text string) {
	r.logger.Debug().Msg(text)
}

func (r *reporter) Error(text string) {
	r.failed = true
	r.logger.Debug().Msgf("Unpack aborted: %s", text)
}

func (r *reporter) Status(current, total uint32) {
	if !r.progress {
		return
	}
	if r.bar == nil {
		r.p = mpb.New(mpb.WithOutput(r.output), mpb.WithWidth(48))
		r.bar = r.p.AddBar(int64(total),
			mpb.PrependDecorators(decor.Name("Extracting", decor.WC{W: 11, C: decor.DindentRight})),
			mpb.AppendDecorators(decor.CountersNoUnit("%d / %d")),
		)
	}
	// the header count is advisory and may be exceeded
	if current > total {
		r.bar.SetTotal(int64(current), false)
	}
	r.bar.SetCurrent(int64(current))
}

func (r *reporter) NewDirectory(path string) {
	r.directories++
	r.logger.Trace().Msgf("New directory %s", path)
}

func (r *reporter) NewFile(path string) {
	r.files++
	r.logger.Trace().Msgf("New file %s", path)
}

// Wait completes or aborts the progress bar and waits for it to render
func (r *reporter) Wait() {
	if r.p == nil {
		return
	}
	if r.failed {
		r.bar.Abort(false)
	} else {
		r.bar.SetTotal(-1, true)
	}
	r.p.Wait()
}
