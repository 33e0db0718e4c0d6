package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RunRecord describes how a manifest was produced. Seed plus the candidate
// dump is enough to reproduce the manifest exactly.
type RunRecord struct {
	RunID      string    `json:"run_id"`
	Command    string    `json:"command"`
	Dataset    string    `json:"dataset"`
	BasePath   string    `json:"base_path"`
	Manifest   string    `json:"manifest"`
	Seed       uint64    `json:"seed"`
	MaxEntries int       `json:"max_entries"`
	Candidates int       `json:"candidates"`
	Selected   int       `json:"selected"`
	Threshold  float64   `json:"threshold,omitempty"`
	Tied       int       `json:"tied,omitempty"`
	Shortfall  int       `json:"shortfall,omitempty"`
	ValRatio   float64   `json:"val_ratio,omitempty"`
	Train      int       `json:"train,omitempty"`
	Val        int       `json:"val,omitempty"`
	Vocabulary *Labels   `json:"vocabulary,omitempty"`
	Videos     []Video   `json:"videos,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Labels is the vocabulary used for the run.
type Labels struct {
	Phases []string `json:"phases"`
	Tools  []string `json:"tools"`
}

// Video is the per-video summary kept in the run record.
type Video struct {
	ID            string  `json:"id"`
	Status        string  `json:"status"`
	Error         string  `json:"error,omitempty"`
	Frames        int     `json:"frames"`
	FPS           float64 `json:"fps,omitempty"`
	PhaseFrames   int     `json:"phase_frames"`
	SkippedRows   int     `json:"skipped_rows,omitempty"`
	Windows       int     `json:"windows"`
	Cut           int     `json:"cut"`
	Reused        int     `json:"reused"`
	Kept          int     `json:"kept"`
	Dropped       int     `json:"dropped"`
	Candidates    int     `json:"candidates"`
	UnknownLabels int     `json:"unknown_labels,omitempty"`
	ElapsedMS     int64   `json:"elapsed_ms"`
}

// NewRunRecord starts a record with a fresh run id.
func NewRunRecord(command, dataset string) *RunRecord {
	return &RunRecord{
		RunID:     uuid.NewString(),
		Command:   command,
		Dataset:   dataset,
		StartedAt: time.Now().UTC(),
	}
}

// RecordPath is where the run record of a manifest lives.
func RecordPath(manifestPath string) string {
	return strings.TrimSuffix(manifestPath, ".json") + ".run.json"
}

// WriteRecord stamps the finish time and writes r next to its manifest.
func WriteRecord(path string, r *RunRecord) error {
	r.FinishedAt = time.Now().UTC()
	return writeJSON(path, r)
}

// ReadRecord loads a run record.
func ReadRecord(path string) (*RunRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r RunRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse run record %s: %w", path, err)
	}
	return &r, nil
}
