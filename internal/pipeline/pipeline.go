package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"golang.org/x/sync/errgroup"

	"github.com/keagan/surgclip/internal/analyze"
	"github.com/keagan/surgclip/internal/annotation"
	"github.com/keagan/surgclip/internal/clips"
	"github.com/keagan/surgclip/internal/segment"
	"github.com/keagan/surgclip/internal/vocab"
	"github.com/keagan/surgclip/pkg/util"
)

// ErrMissingSource is reported for videos whose source file does not exist.
// The video is skipped.
var ErrMissingSource = errors.New("source video not found")

// Pipeline orchestrates the entire dataset processing workflow
type Pipeline struct {
	logger    zerolog.Logger
	config    Config
	media     Media
	loader    *annotation.Loader
	segmenter *segment.Segmenter
}

// New creates a new pipeline instance
func New(logger zerolog.Logger, media Media, cfg Config) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers()
	}

	segmenter := segment.New(logger, media, media, segment.Config{
		ClipFrames: cfg.Dataset.ClipFrames,
		MinFrames:  cfg.Dataset.MinFrames,
		OutputDir:  filepath.Join(cfg.BasePath, filepath.FromSlash(cfg.Dataset.OutputSubdir)),
		BasePath:   cfg.BasePath,
	})

	return &Pipeline{
		logger:    logger.With().Str("component", "pipeline").Logger(),
		config:    cfg,
		media:     media,
		loader:    annotation.NewLoader(logger),
		segmenter: segmenter,
	}
}

// DefaultWorkers returns half the physical core count, at least one.
// Cutting is subprocess bound, so oversubscribing only adds disk contention.
func DefaultWorkers() int {
	n, err := cpu.Counts(false)
	if err != nil || n <= 0 {
		n = runtime.NumCPU()
	}
	if n /= 2; n < 1 {
		n = 1
	}
	return n
}

// Run builds the label vocabulary, then segments and labels every video of
// the dataset with a bounded worker pool. Per-video failures are recorded in
// the result and never stop the run; only an empty vocabulary or context
// cancellation return an error.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	ds := p.config.Dataset
	ids := ds.VideoIDs()
	started := time.Now()

	p.logger.Info().
		Str("dataset", p.config.DatasetName).
		Int("videos", len(ids)).
		Int("workers", p.config.Workers).
		Int("clip_frames", ds.ClipFrames).
		Int("min_frames", ds.MinFrames).
		Msg("starting dataset pipeline")

	v, err := p.buildVocabulary(ids)
	if err != nil {
		return nil, err
	}

	p.logger.Info().
		Strs("phases", v.Phases()).
		Strs("tools", v.Tools()).
		Msg("label vocabulary built")

	if ds.NumPhases > 0 && len(v.Phases()) != ds.NumPhases {
		p.logger.Warn().
			Int("expected", ds.NumPhases).
			Int("found", len(v.Phases())).
			Msg("phase count differs from dataset declaration")
	}

	var (
		mu         sync.Mutex
		candidates []*clips.Candidate
		reports    = make([]VideoReport, len(ids))
		done       atomic.Int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Workers)

	for i, id := range ids {
		g.Go(func() error {
			report, cands, err := p.processVideo(gctx, id, v)
			if err != nil {
				return err
			}
			reports[i] = report

			mu.Lock()
			candidates = append(candidates, cands...)
			mu.Unlock()

			p.logger.Info().
				Str("video", id).
				Str("status", string(report.Status)).
				Int("clips", report.Segment.Kept).
				Int("candidates", report.Candidates).
				Int64("done", done.Add(1)).
				Int("total", len(ids)).
				Msg("video finished")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool { return clips.Less(candidates[i], candidates[j]) })

	res := &Result{Vocabulary: v, Candidates: candidates, Videos: reports}
	counts := res.Counts()
	p.logger.Info().
		Int("processed", counts[StatusProcessed]).
		Int("skipped", counts[StatusSkipped]).
		Int("failed", counts[StatusFailed]).
		Int("candidates", len(candidates)).
		Str("elapsed", util.FormatDuration(time.Since(started))).
		Msg("dataset pipeline complete")

	return res, nil
}

// buildVocabulary reads every phase file once for its labels and the
// representative tool file for its header.
func (p *Pipeline) buildVocabulary(ids []string) (*vocab.Vocabulary, error) {
	ds := p.config.Dataset

	var phases []string
	if ds.PhaseDir != "" {
		seen := make(map[string]struct{})
		for _, id := range ids {
			track, err := p.loader.Phase(ds.PhasePath(id))
			if err != nil {
				if !errors.Is(err, annotation.ErrMissingAnnotation) {
					p.logger.Warn().Err(err).Str("video", id).Msg("failed to read phase labels")
				}
				continue
			}
			for _, label := range track.Labels() {
				if _, ok := seen[label]; !ok {
					seen[label] = struct{}{}
					phases = append(phases, label)
				}
			}
		}
	}

	var tools []string
	if path := ds.ToolHeaderPath(); path != "" {
		header, err := p.loader.ToolHeader(path)
		if err != nil {
			p.logger.Warn().Err(err).Str("file", path).Msg("failed to read tool header")
		}
		tools = header
	}

	v, err := vocab.Build(phases, tools)
	if err != nil {
		return nil, fmt.Errorf("build vocabulary for %s: %w", p.config.DatasetName, err)
	}
	return v, nil
}

// processVideo runs one video end to end. The returned error is non-nil only
// when ctx is done; everything else is recorded in the report.
func (p *Pipeline) processVideo(ctx context.Context, id string, v *vocab.Vocabulary) (VideoReport, []*clips.Candidate, error) {
	ds := p.config.Dataset
	start := time.Now()
	report := VideoReport{ID: id}
	log := p.logger.With().Str("video", id).Logger()

	finish := func(status Status, err error) (VideoReport, []*clips.Candidate, error) {
		report.Status = status
		report.Err = err
		report.Elapsed = time.Since(start)
		if err != nil {
			log.Warn().Err(err).Str("status", string(status)).Msg("video not processed")
		}
		return report, nil, nil
	}

	if err := ctx.Err(); err != nil {
		return report, nil, err
	}

	src := ds.VideoPath(id)
	if !util.FileExists(src) {
		return finish(StatusSkipped, fmt.Errorf("%w: %s", ErrMissingSource, src))
	}

	phase := p.loadPhase(id, &report, log)
	rawTools := p.loadTools(id, &report, log)

	info, err := p.media.ProbeVideo(ctx, src)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return report, nil, ctxErr
		}
		return finish(StatusFailed, fmt.Errorf("probe %s: %w", src, err))
	}
	report.TotalFrames = info.FrameCount
	report.FPS = info.FPS

	master := phase.Len()
	if master == 0 {
		master = info.FrameCount
	}
	aligned, dropped := annotation.AlignTools(rawTools, v.Tools(), master, func(tool string) {
		log.Warn().Str("tool", tool).Msg("tool column not in vocabulary, ignoring")
	})
	report.SkippedRows += dropped
	if dropped > 0 {
		log.Warn().Int("rows", dropped).Msg("dropped tool rows with non-advancing frame index")
	}

	video := clips.Video{ID: id, Path: src, TotalFrames: info.FrameCount, FPS: info.FPS}
	segmented, stats, err := p.segmenter.Segment(ctx, video)
	report.Segment = stats
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return report, nil, ctxErr
		}
		return finish(StatusFailed, err)
	}

	var cands []*clips.Candidate
	for _, c := range segmented {
		if phase.Len() > 0 {
			res, ok, err := analyze.Phase(phase.Frames, c.Start, c.End, v)
			switch {
			case err != nil:
				report.UnknownLabels++
				log.Warn().Err(err).Msg("dropping phase candidate")
			case ok:
				cands = append(cands, candidate(c, res))
			}
		}

		results, err := analyze.Tools(aligned, c.Start, c.End, v)
		if err != nil {
			report.UnknownLabels++
			log.Warn().Err(err).Msg("dropping tool candidates")
		}
		for _, res := range results {
			cands = append(cands, candidate(c, res))
		}
	}

	report.Status = StatusProcessed
	report.Candidates = len(cands)
	report.Elapsed = time.Since(start)

	log.Debug().
		Int("frames", info.FrameCount).
		Float64("fps", info.FPS).
		Int("phase_frames", phase.Len()).
		Int("clips", len(segmented)).
		Int("candidates", len(cands)).
		Dur("elapsed", report.Elapsed).
		Msg("video processed")

	return report, cands, nil
}

func (p *Pipeline) loadPhase(id string, report *VideoReport, log zerolog.Logger) *annotation.PhaseTrack {
	path := p.config.Dataset.PhasePath(id)
	if path == "" {
		return nil
	}
	track, err := p.loader.Phase(path)
	if err != nil {
		logAnnotationErr(log, err, "phase")
		return nil
	}
	report.PhaseFrames = track.Len()
	report.SkippedRows += track.Skipped
	return track
}

func (p *Pipeline) loadTools(id string, report *VideoReport, log zerolog.Logger) *annotation.ToolTrack {
	path := p.config.Dataset.ToolPath(id)
	if path == "" {
		return nil
	}
	track, err := p.loader.Tools(path)
	if err != nil {
		logAnnotationErr(log, err, "tool")
		return nil
	}
	report.SkippedRows += track.Skipped
	return track
}

func logAnnotationErr(log zerolog.Logger, err error, kind string) {
	if errors.Is(err, annotation.ErrMissingAnnotation) {
		log.Info().Err(err).Str("kind", kind).Msg("no annotation file, treating as empty")
		return
	}
	log.Warn().Err(err).Str("kind", kind).Msg("failed to load annotation, treating as empty")
}

func candidate(c *clips.Clip, res analyze.Result) *clips.Candidate {
	return &clips.Candidate{
		Clip:       c,
		LabelIndex: res.LabelIndex,
		LabelName:  res.LabelName,
		Task:       res.Task,
		Confidence: res.Confidence,
	}
}
