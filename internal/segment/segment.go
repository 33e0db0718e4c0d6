// Package segment cuts a video into fixed-length, verified clips.
package segment

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/keagan/surgclip/internal/clips"
	"github.com/keagan/surgclip/pkg/util"
)

var (
	// ErrCutFailed marks a window whose cut failed; the window is skipped.
	ErrCutFailed = errors.New("cut failed")
	// ErrShortClip marks a window whose verified frame count fell below the
	// minimum; its artifact is deleted.
	ErrShortClip = errors.New("clip shorter than minimum")
	// ErrInvalidVideo is returned for videos without frames or frame rate.
	ErrInvalidVideo = errors.New("video has no frames or frame rate")
)

// Cutter materializes a frame range of a source video as a file.
type Cutter interface {
	CutFrames(ctx context.Context, src string, start time.Duration, frames int, out string) error
}

// Prober counts the frames of a video file.
type Prober interface {
	CountFrames(ctx context.Context, path string) (int, error)
}

// Window is an inclusive source frame range.
type Window struct {
	Start int
	End   int
}

// Frames returns the number of frames in the window.
func (w Window) Frames() int {
	return w.End - w.Start + 1
}

// Windows splits [0, total) into consecutive windows of clipFrames frames.
// The last window may be shorter; any window under minFrames is dropped.
func Windows(total, clipFrames, minFrames int) []Window {
	if total <= 0 || clipFrames <= 0 {
		return nil
	}
	var out []Window
	for start := 0; start < total; start += clipFrames {
		end := start + clipFrames - 1
		if end > total-1 {
			end = total - 1
		}
		w := Window{Start: start, End: end}
		if w.Frames() < minFrames {
			break
		}
		out = append(out, w)
	}
	return out
}

// Config controls segmentation.
type Config struct {
	ClipFrames int
	MinFrames  int
	// OutputDir receives clip artifacts.
	OutputDir string
	// BasePath is the root that clip relative paths are computed from.
	BasePath string
}

// Drop records a window that did not produce a clip.
type Drop struct {
	Window Window
	Err    error
}

// Stats summarizes one video's segmentation.
type Stats struct {
	Windows int
	Cut     int
	Reused  int
	Kept    int
	Dropped []Drop
}

// Segmenter cuts videos into clips and verifies them.
type Segmenter struct {
	logger zerolog.Logger
	cutter Cutter
	prober Prober
	cfg    Config
}

// New creates a segmenter.
func New(logger zerolog.Logger, cutter Cutter, prober Prober, cfg Config) *Segmenter {
	return &Segmenter{
		logger: logger.With().Str("component", "segment").Logger(),
		cutter: cutter,
		prober: prober,
		cfg:    cfg,
	}
}

// Segment cuts every window of video and returns the clips whose verified
// frame count reaches the minimum. Existing artifacts are reused without
// cutting, so re-running against the same output directory is cheap.
// Window-level failures are recorded in Stats and never abort the video.
func (s *Segmenter) Segment(ctx context.Context, video clips.Video) ([]*clips.Clip, Stats, error) {
	var stats Stats
	if video.TotalFrames <= 0 || video.FPS <= 0 {
		return nil, stats, fmt.Errorf("%s: %w", video.ID, ErrInvalidVideo)
	}
	if err := util.EnsureDir(s.cfg.OutputDir); err != nil {
		return nil, stats, fmt.Errorf("create output dir: %w", err)
	}

	log := s.logger.With().Str("video", video.ID).Logger()
	windows := Windows(video.TotalFrames, s.cfg.ClipFrames, s.cfg.MinFrames)
	stats.Windows = len(windows)

	var out []*clips.Clip
	for _, w := range windows {
		if err := ctx.Err(); err != nil {
			return out, stats, err
		}

		path := filepath.Join(s.cfg.OutputDir, clips.Name(video.ID, w.Start, w.End))

		if util.FileExists(path) {
			stats.Reused++
		} else {
			start := util.FrameTime(w.Start, video.FPS)
			if err := s.cutter.CutFrames(ctx, video.Path, start, w.Frames(), path); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return out, stats, ctxErr
				}
				err = fmt.Errorf("%w: %v", ErrCutFailed, err)
				log.Warn().Err(err).Int("start", w.Start).Int("end", w.End).Msg("skipping window")
				stats.Dropped = append(stats.Dropped, Drop{Window: w, Err: err})
				continue
			}
			stats.Cut++
		}

		actual := s.verify(ctx, path)
		if actual < s.cfg.MinFrames {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				log.Warn().Err(err).Str("path", path).Msg("failed to delete short clip")
			}
			err := fmt.Errorf("%w: %d < %d frames", ErrShortClip, actual, s.cfg.MinFrames)
			log.Debug().Err(err).Int("start", w.Start).Int("end", w.End).Msg("dropping window")
			stats.Dropped = append(stats.Dropped, Drop{Window: w, Err: err})
			continue
		}

		rel, err := filepath.Rel(s.cfg.BasePath, path)
		if err != nil || s.cfg.BasePath == "" {
			rel = path
		}

		out = append(out, &clips.Clip{
			VideoID:      video.ID,
			Start:        w.Start,
			End:          w.End,
			TargetFrames: w.Frames(),
			ActualFrames: actual,
			Duration:     util.FrameTime(actual, video.FPS),
			Path:         path,
			RelPath:      filepath.ToSlash(rel),
		})
		stats.Kept++
	}

	log.Debug().
		Int("windows", stats.Windows).
		Int("cut", stats.Cut).
		Int("reused", stats.Reused).
		Int("kept", stats.Kept).
		Int("dropped", len(stats.Dropped)).
		Msg("segmentation complete")

	return out, stats, nil
}

// verify returns the artifact's real frame count, or 0 when it cannot be read.
func (s *Segmenter) verify(ctx context.Context, path string) int {
	if !util.FileExists(path) {
		return 0
	}
	n, err := s.prober.CountFrames(ctx, path)
	if err != nil {
		s.logger.Debug().Err(err).Str("path", path).Msg("frame count probe failed")
		return 0
	}
	return n
}
