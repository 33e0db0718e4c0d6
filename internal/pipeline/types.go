package pipeline

import (
	"context"
	"time"

	"github.com/keagan/surgclip/internal/clips"
	"github.com/keagan/surgclip/internal/config"
	"github.com/keagan/surgclip/internal/ffmpeg"
	"github.com/keagan/surgclip/internal/segment"
	"github.com/keagan/surgclip/internal/vocab"
)

// Media is everything the pipeline needs from the video toolchain.
// *ffmpeg.Executor implements it.
type Media interface {
	segment.Cutter
	segment.Prober
	ProbeVideo(ctx context.Context, path string) (*ffmpeg.VideoInfo, error)
}

// Config configures a pipeline run
type Config struct {
	// Workers bounds concurrently processed videos. Zero picks DefaultWorkers.
	Workers int
	// BasePath is the dataset output root; clip paths are relative to it.
	BasePath string
	Dataset  config.Dataset
	// DatasetName is recorded for diagnostics.
	DatasetName string
}

// Status summarizes how a video was handled.
type Status string

const (
	StatusProcessed Status = "processed"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// VideoReport describes one video's outcome.
type VideoReport struct {
	ID     string
	Status Status
	// Err is set for skipped and failed videos.
	Err error

	TotalFrames int
	FPS         float64
	PhaseFrames int
	// Tool rows dropped during alignment plus malformed rows in both files.
	SkippedRows int

	Segment       segment.Stats
	Candidates    int
	UnknownLabels int
	Elapsed       time.Duration
}

// Result is the outcome of Pipeline.Run.
type Result struct {
	Vocabulary *vocab.Vocabulary
	// Candidates is in clips.Less order.
	Candidates []*clips.Candidate
	// Videos is in dataset order.
	Videos []VideoReport
}

// Counts returns how many videos ended in each status.
func (r *Result) Counts() map[Status]int {
	out := make(map[Status]int, 3)
	for _, v := range r.Videos {
		out[v.Status]++
	}
	return out
}
