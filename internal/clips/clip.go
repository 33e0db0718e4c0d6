package clips

import (
	"fmt"
	"time"
)

// TaskType names the label dimension a candidate was derived from.
type TaskType string

const (
	TaskPhase TaskType = "phase_classification"
	TaskTool  TaskType = "tool_classification"
)

// Video is a probed source video. Immutable once probed.
type Video struct {
	ID          string
	Path        string
	TotalFrames int
	FPS         float64
}

// Clip is a materialized, verified segment of one video.
// Start and End are inclusive source frame indices.
type Clip struct {
	VideoID      string
	Start        int
	End          int
	TargetFrames int
	ActualFrames int
	Duration     time.Duration
	Path         string
	RelPath      string
}

// Name is the artifact file name used for the clip.
func Name(videoID string, start, end int) string {
	return fmt.Sprintf("%s_%06d_%06d.mp4", videoID, start, end)
}

// Candidate is one (clip, label, confidence) triple awaiting selection.
type Candidate struct {
	Clip       *Clip
	LabelIndex int
	LabelName  string
	Task       TaskType
	Confidence float64
}

// Less orders candidates by confidence descending, then by video, start
// frame and label index so that equal-confidence candidates have a fixed
// order independent of the order workers finished in.
func Less(a, b *Candidate) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if a.Clip.VideoID != b.Clip.VideoID {
		return a.Clip.VideoID < b.Clip.VideoID
	}
	if a.Clip.Start != b.Clip.Start {
		return a.Clip.Start < b.Clip.Start
	}
	return a.LabelIndex < b.LabelIndex
}
