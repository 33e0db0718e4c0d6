package main

import (
	"fmt"
	"math/rand/v2"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/keagan/surgclip/internal/clips"
	"github.com/keagan/surgclip/internal/config"
	"github.com/keagan/surgclip/internal/logging"
	"github.com/keagan/surgclip/internal/manifest"
	"github.com/keagan/surgclip/internal/pipeline"
	"github.com/keagan/surgclip/internal/selection"
)

// selectFlags override config values when set on the command line.
type selectFlags struct {
	dataset    string
	maxEntries int
	seed       uint64
	valRatio   float64
	workers    int
}

func (f *selectFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.dataset, "dataset", "d", "", "dataset name (default from config)")
	cmd.Flags().IntVarP(&f.maxEntries, "max-entries", "n", 0, "manifest size budget, 0 for no cap")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "tie-break seed, 0 draws a new one")
	cmd.Flags().Float64Var(&f.valRatio, "val-ratio", 0, "fraction of videos held out for validation")
}

func (f *selectFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("dataset") {
		cfg.Dataset = f.dataset
	}
	if flags.Changed("max-entries") {
		cfg.Selection.MaxEntries = f.maxEntries
	}
	if flags.Changed("seed") {
		cfg.Selection.Seed = f.seed
	}
	if flags.Changed("val-ratio") {
		cfg.Split.ValRatio = f.valRatio
	}
	if flags.Changed("workers") {
		cfg.Concurrency = f.workers
	}
	return cfg.Validate()
}

func newRunCmd() *cobra.Command {
	var flags selectFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Cut, label and select clips for a dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := config.FromContext(ctx)
			if err := flags.apply(cmd, cfg); err != nil {
				return err
			}

			ds, err := cfg.Lookup(cfg.Dataset)
			if err != nil {
				return err
			}
			base, err := filepath.Abs(cfg.BasePath)
			if err != nil {
				return err
			}

			media, err := newMedia(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize ffmpeg: %w", err)
			}

			rec := manifest.NewRunRecord("run", cfg.Dataset)
			pipe := pipeline.New(log.Logger, media, pipeline.Config{
				Workers:     cfg.Concurrency,
				BasePath:    base,
				Dataset:     ds,
				DatasetName: cfg.Dataset,
			})

			res, err := pipe.Run(ctx)
			if err != nil {
				return err
			}

			labels := &manifest.Labels{Phases: res.Vocabulary.Phases(), Tools: res.Vocabulary.Tools()}
			rec.Vocabulary = labels
			rec.Videos = videoStats(res.Videos)

			dump := manifest.DumpPath(base, cfg.Dataset)
			header := manifest.DumpHeader{RunID: rec.RunID, Dataset: cfg.Dataset, BasePath: base, Vocabulary: labels}
			if err := manifest.WriteCandidates(dump, header, res.Candidates); err != nil {
				return err
			}
			log.Info().Str("path", dump).Int("candidates", len(res.Candidates)).Msg("candidate dump written")

			return publish(cfg, ds, base, res.Candidates, rec)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&flags.workers, "workers", "w", 0, "videos processed concurrently (default from config or CPU count)")
	return cmd
}

func newSelectCmd() *cobra.Command {
	var flags selectFlags

	cmd := &cobra.Command{
		Use:   "select",
		Short: "Re-run selection from the candidate dump of a previous run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			if err := flags.apply(cmd, cfg); err != nil {
				return err
			}

			ds, err := cfg.Lookup(cfg.Dataset)
			if err != nil {
				return err
			}
			base, err := filepath.Abs(cfg.BasePath)
			if err != nil {
				return err
			}

			dump := manifest.DumpPath(base, cfg.Dataset)
			header, cands, err := manifest.ReadCandidates(dump)
			if err != nil {
				return fmt.Errorf("load candidates (run `surgclip run` first): %w", err)
			}
			if header.Dataset != cfg.Dataset {
				return fmt.Errorf("%s holds candidates for %q, not %q", dump, header.Dataset, cfg.Dataset)
			}
			if err := header.Verify(cands); err != nil {
				return fmt.Errorf("%s: %w", dump, err)
			}

			log.Info().
				Str("path", dump).
				Str("source_run", header.RunID).
				Int("candidates", len(cands)).
				Msg("candidate dump loaded")

			rec := manifest.NewRunRecord("select", cfg.Dataset)
			rec.Vocabulary = header.Vocabulary
			return publish(cfg, ds, base, cands, rec)
		},
	}

	flags.register(cmd)
	return cmd
}

// publish selects within the budget and writes the manifest, the optional
// train/val split and the run record.
func publish(cfg *config.Config, ds config.Dataset, base string, cands []*clips.Candidate, rec *manifest.RunRecord) error {
	seed := cfg.Selection.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := selection.NewRand(seed)

	sel := selection.Select(cands, cfg.Selection.MaxEntries, rng, logging.WithComponent("selection"))

	path := filepath.Join(base, ds.Manifest)
	if err := manifest.Write(path, manifest.Entries(sel.Entries, base, cfg.Dataset)); err != nil {
		return err
	}

	rec.BasePath = base
	rec.Manifest = path
	rec.Seed = seed
	rec.MaxEntries = cfg.Selection.MaxEntries
	rec.Candidates = len(cands)
	rec.Selected = len(sel.Entries)
	rec.Threshold = sel.Threshold
	rec.Tied = sel.Tied
	rec.Shortfall = sel.Shortfall

	if ratio := cfg.Split.ValRatio; ratio > 0 {
		train, val := manifest.SplitByVideo(sel.Entries, ratio, rng)
		trainPath, valPath := manifest.SplitPaths(path)
		if err := manifest.Write(trainPath, manifest.Entries(train, base, cfg.Dataset)); err != nil {
			return err
		}
		if err := manifest.Write(valPath, manifest.Entries(val, base, cfg.Dataset)); err != nil {
			return err
		}
		rec.ValRatio = ratio
		rec.Train = len(train)
		rec.Val = len(val)
	}

	if err := manifest.WriteRecord(manifest.RecordPath(path), rec); err != nil {
		return err
	}

	log.Info().
		Str("manifest", path).
		Str("run_id", rec.RunID).
		Uint64("seed", seed).
		Int("candidates", rec.Candidates).
		Int("selected", rec.Selected).
		Msg("manifest written")

	return nil
}

func videoStats(reports []pipeline.VideoReport) []manifest.Video {
	out := make([]manifest.Video, len(reports))
	for i, r := range reports {
		v := manifest.Video{
			ID:            r.ID,
			Status:        string(r.Status),
			Frames:        r.TotalFrames,
			FPS:           r.FPS,
			PhaseFrames:   r.PhaseFrames,
			SkippedRows:   r.SkippedRows,
			Windows:       r.Segment.Windows,
			Cut:           r.Segment.Cut,
			Reused:        r.Segment.Reused,
			Kept:          r.Segment.Kept,
			Dropped:       len(r.Segment.Dropped),
			Candidates:    r.Candidates,
			UnknownLabels: r.UnknownLabels,
			ElapsedMS:     r.Elapsed.Milliseconds(),
		}
		if r.Err != nil {
			v.Error = r.Err.Error()
		}
		out[i] = v
	}
	return out
}
