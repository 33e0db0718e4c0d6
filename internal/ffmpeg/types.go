package ffmpeg

import "time"

// VideoInfo contains metadata about a video file
type VideoInfo struct {
	FilePath   string
	Duration   time.Duration
	Width      int
	Height     int
	FPS        float64
	FrameCount int
	VideoCodec string
}

// Progress represents ffmpeg progress data
type Progress struct {
	Frame   int
	FPS     float64
	Bitrate string
	Time    string
	Speed   string
}

// RunOptions configures ffmpeg execution
type RunOptions struct {
	Args            []string
	ProgressHandler func(*Progress)
	LogHandler      func(line string)
}

// Default encoding settings
const (
	DefaultCRF        = 23
	DefaultPreset     = "medium"
	DefaultVideoCodec = "libx264"
)

// ProgressFunc is a callback for progress updates during ffmpeg operations.
// Called periodically with progress information as the operation executes.
type ProgressFunc func(*Progress)

// Options configures an Executor.
type Options struct {
	FFmpegPath  string
	FFprobePath string
	Threads     int

	// CopyCodec cuts with stream copy. When false clips are re-encoded
	// with VideoCodec/CRF/Preset, optionally scaled to ScaleHeight.
	CopyCodec   bool
	VideoCodec  string
	CRF         int
	Preset      string
	ScaleHeight int

	// CutTimeout bounds a single cut. Zero means no limit.
	CutTimeout time.Duration
}
