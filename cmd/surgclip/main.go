package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/keagan/surgclip/internal/config"
	"github.com/keagan/surgclip/internal/ffmpeg"
	"github.com/keagan/surgclip/internal/logging"
	"github.com/keagan/surgclip/internal/pipeline"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// newMedia builds the video toolchain; tests swap it for a fake.
var newMedia = func(cfg *config.Config) (pipeline.Media, error) {
	executor, err := ffmpeg.NewWithOptions(log.Logger, ffmpeg.Options{
		FFmpegPath:  cfg.FFmpeg.BinaryPath,
		FFprobePath: cfg.FFmpeg.ProbePath,
		Threads:     cfg.FFmpeg.Threads,
		CopyCodec:   cfg.FFmpeg.CopyCodec,
		VideoCodec:  cfg.FFmpeg.VideoCodec,
		CRF:         cfg.FFmpeg.CRF,
		Preset:      cfg.FFmpeg.Preset,
		ScaleHeight: cfg.FFmpeg.ScaleHeight,
		CutTimeout:  cfg.FFmpeg.CutTimeout,
	})
	if err != nil {
		return nil, err
	}
	return executor, nil
}

func newRootCmd() *cobra.Command {
	var (
		cfgFile  string
		verbose  bool
		jsonLogs bool
	)

	root := &cobra.Command{
		Use:           "surgclip",
		Short:         "surgclip - surgical video clip dataset builder",
		Long:          "Cuts annotated surgical videos into fixed-length clips, labels them from phase and tool annotations, and writes a confidence-ranked training manifest.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Initialize logging
			logging.Setup(logging.Options{Verbose: verbose, JSON: jsonLogs, Out: cmd.ErrOrStderr()})

			// Load config
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}

			// Store config in context
			ctx := config.WithConfig(cmd.Context(), cfg)
			cmd.SetContext(ctx)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./surgclip.yaml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	root.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "always log JSON lines")

	root.AddCommand(newRunCmd())
	root.AddCommand(newSelectCmd())
	root.AddCommand(newDatasetsCmd())
	root.AddCommand(newConfigCmd())

	return root
}

func newDatasetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List available datasets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			out := cmd.OutOrStdout()
			for _, name := range cfg.DatasetNames() {
				ds, err := cfg.Lookup(name)
				if err != nil {
					fmt.Fprintf(out, "%-12s invalid: %v\n", name, err)
					continue
				}
				fmt.Fprintf(out, "%-12s videos=%d clip_frames=%d min_frames=%d root=%s\n",
					name, len(ds.VideoIDs()), ds.ClipFrames, ds.MinFrames, ds.RawRoot)
			}
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Config management commands",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration to a file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "surgclip.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := config.Default().Save(path); err != nil {
				return err
			}
			log.Info().Str("path", path).Msg("wrote default config")
			return nil
		},
	})

	return configCmd
}
