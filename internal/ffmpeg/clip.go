package ffmpeg

import (
	"context"
	"fmt"
	"time"

	"github.com/keagan/surgclip/pkg/util"
)

// ClipOptions defines clip extraction parameters
type ClipOptions struct {
	Start        time.Duration
	Frames       int
	Output       string
	CopyCodec    bool // If true, use -c copy for fast extraction
	VideoCodec   string
	CRF          int // Quality (0-51, lower = better)
	Preset       string
	Filter       string
	ProgressFunc ProgressFunc
}

// ExtractClip cuts exactly opts.Frames video frames starting at opts.Start.
// Output is bounded by frame count rather than duration because callers
// verify clips by counting frames. Audio is dropped.
func (e *Executor) ExtractClip(ctx context.Context, input string, opts ClipOptions) error {
	if opts.Frames <= 0 {
		return fmt.Errorf("invalid clip length: %d frames", opts.Frames)
	}
	if opts.Output == "" {
		return fmt.Errorf("output path is required")
	}

	e.logger.Debug().
		Str("input", input).
		Str("output", opts.Output).
		Dur("start", opts.Start).
		Int("frames", opts.Frames).
		Bool("copy_codec", opts.CopyCodec).
		Msg("extracting clip")

	args := []string{
		"-ss", util.FormatDuration(opts.Start),
		"-i", input,
		"-frames:v", fmt.Sprintf("%d", opts.Frames),
	}

	if opts.CopyCodec {
		args = append(args, "-c", "copy")
	} else {
		if opts.Filter != "" {
			args = append(args, "-vf", opts.Filter)
		}

		codec := opts.VideoCodec
		if codec == "" {
			codec = DefaultVideoCodec
		}
		args = append(args, "-c:v", codec)

		crf := opts.CRF
		if crf == 0 {
			crf = DefaultCRF
		}
		args = append(args, "-crf", fmt.Sprintf("%d", crf))

		preset := opts.Preset
		if preset == "" {
			preset = DefaultPreset
		}
		args = append(args, "-preset", preset, "-pix_fmt", "yuv420p")
	}

	args = append(args, "-an", opts.Output)

	logs := newTail(20)
	runOpts := RunOptions{
		Args:            args,
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			logs.add(line)
			e.logger.Debug().Str("ffmpeg", line).Msg("clip extraction")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		if out := logs.String(); out != "" {
			return fmt.Errorf("clip extraction failed: %w: %s", err, out)
		}
		return fmt.Errorf("clip extraction failed: %w", err)
	}

	return nil
}

// CutFrames materializes [start, start+frames) of src at out using the
// executor's configured codec settings. A partial output is removed when the
// cut fails.
func (e *Executor) CutFrames(ctx context.Context, src string, start time.Duration, frames int, out string) error {
	if e.opts.CutTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.CutTimeout)
		defer cancel()
	}

	opts := ClipOptions{
		Start:      start,
		Frames:     frames,
		Output:     out,
		CopyCodec:  e.opts.CopyCodec,
		VideoCodec: e.opts.VideoCodec,
		CRF:        e.opts.CRF,
		Preset:     e.opts.Preset,
		ProgressFunc: func(p *Progress) {
			e.logger.Trace().
				Str("output", out).
				Int("frame", p.Frame).
				Str("speed", p.Speed).
				Msg("cut progress")
		},
	}
	if !e.opts.CopyCodec {
		opts.Filter = NewFilterBuilder().ScaleHeight(e.opts.ScaleHeight).Build()
	}

	if err := e.ExtractClip(ctx, src, opts); err != nil {
		util.CleanupFiles(out)
		return err
	}
	return nil
}
