// Package manifest persists the results of a run: the training manifest,
// its run record, the compressed candidate dump and the train/val split.
package manifest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/keagan/surgclip/internal/clips"
	"github.com/keagan/surgclip/pkg/util"
)

// Entry is one element of the manifest array.
type Entry struct {
	BasePath         string  `json:"base_path"`
	RelativePath     string  `json:"relative_path"`
	Duration         float64 `json:"duration"`
	DatasetName      string  `json:"dataset_name"`
	FrameCount       int     `json:"frame_count"`
	Label            int     `json:"label"`
	LabelIndex       string  `json:"label_index"`
	LabelDescription string  `json:"label_description"`
	TaskType         string  `json:"task_type"`
	Confidence       float64 `json:"confidence"`
}

// NewEntry converts a selected candidate into a manifest entry.
func NewEntry(c *clips.Candidate, basePath, dataset string) Entry {
	return Entry{
		BasePath:         basePath,
		RelativePath:     c.Clip.RelPath,
		Duration:         util.Round(c.Clip.Duration.Seconds(), 2),
		DatasetName:      dataset,
		FrameCount:       c.Clip.ActualFrames,
		Label:            c.LabelIndex,
		LabelIndex:       strconv.Itoa(c.LabelIndex),
		LabelDescription: c.LabelName,
		TaskType:         string(c.Task),
		Confidence:       util.Round(c.Confidence, 4),
	}
}

// Entries converts candidates in order.
func Entries(cands []*clips.Candidate, basePath, dataset string) []Entry {
	out := make([]Entry, len(cands))
	for i, c := range cands {
		out[i] = NewEntry(c, basePath, dataset)
	}
	return out
}

// Write atomically writes entries as an indented JSON array.
func Write(path string, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	return writeJSON(path, entries)
}

// Read loads a manifest written by Write.
func Read(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return entries, nil
}

func writeJSON(path string, v any) error {
	err := util.WriteFileAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "    ")
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
