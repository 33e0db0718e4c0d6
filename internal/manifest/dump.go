package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/keagan/surgclip/internal/clips"
	"github.com/keagan/surgclip/internal/vocab"
	"github.com/keagan/surgclip/pkg/util"
)

// ErrBadDump is returned for candidate dumps that cannot be decoded.
var ErrBadDump = errors.New("invalid candidate dump")

// ErrLabelMismatch is returned when a candidate's label disagrees with the
// vocabulary recorded in its dump header.
var ErrLabelMismatch = errors.New("candidate label does not match dump vocabulary")

// DumpHeader is the first line of a candidate dump.
type DumpHeader struct {
	RunID      string  `json:"run_id"`
	Dataset    string  `json:"dataset"`
	BasePath   string  `json:"base_path"`
	Vocabulary *Labels `json:"vocabulary,omitempty"`
}

// Verify checks every candidate's label index, name and task against the
// header vocabulary. A header without a vocabulary is not checked.
func (h *DumpHeader) Verify(cands []*clips.Candidate) error {
	if h.Vocabulary == nil {
		return nil
	}
	v, err := vocab.Build(h.Vocabulary.Phases, h.Vocabulary.Tools)
	if err != nil {
		return fmt.Errorf("%w: header vocabulary: %v", ErrBadDump, err)
	}
	phases := len(v.Phases())
	for _, c := range cands {
		name, ok := v.Name(c.LabelIndex)
		if !ok || name != c.LabelName {
			return fmt.Errorf("%w: %s: index %d is %q, candidate says %q",
				ErrLabelMismatch, c.Clip.RelPath, c.LabelIndex, name, c.LabelName)
		}
		if want := taskOf(c.LabelIndex, phases); c.Task != want {
			return fmt.Errorf("%w: %s: label %q is a %s label, candidate says %s",
				ErrLabelMismatch, c.Clip.RelPath, c.LabelName, want, c.Task)
		}
	}
	return nil
}

func taskOf(index, phases int) clips.TaskType {
	if index < phases {
		return clips.TaskPhase
	}
	return clips.TaskTool
}

// dumpRecord is one candidate line. Clips are repeated per label; the
// reader shares one *clips.Clip per artifact path again.
type dumpRecord struct {
	VideoID      string  `json:"video_id"`
	Start        int     `json:"start"`
	End          int     `json:"end"`
	TargetFrames int     `json:"target_frames"`
	ActualFrames int     `json:"actual_frames"`
	DurationNS   int64   `json:"duration_ns"`
	Path         string  `json:"path"`
	RelPath      string  `json:"rel_path"`
	LabelIndex   int     `json:"label_index"`
	LabelName    string  `json:"label_name"`
	Task         string  `json:"task"`
	Confidence   float64 `json:"confidence"`
}

// DumpPath is the candidate dump location for a dataset under basePath.
func DumpPath(basePath, dataset string) string {
	return filepath.Join(basePath, dataset+"_candidates.jsonl.zst")
}

// WriteCandidates atomically writes a zstd-compressed JSON-lines dump of
// every candidate, so selection can be repeated without cutting again.
func WriteCandidates(path string, header DumpHeader, cands []*clips.Candidate) error {
	err := util.WriteFileAtomic(path, func(w io.Writer) error {
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if err != nil {
			return err
		}
		enc := json.NewEncoder(zw)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(header); err != nil {
			zw.Close()
			return err
		}
		for _, c := range cands {
			if err := enc.Encode(toRecord(c)); err != nil {
				zw.Close()
				return err
			}
		}
		return zw.Close()
	})
	if err != nil {
		return fmt.Errorf("write candidates %s: %w", path, err)
	}
	return nil
}

// ReadCandidates loads a dump written by WriteCandidates.
func ReadCandidates(path string) (*DumpHeader, []*clips.Candidate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrBadDump, path, err)
	}
	defer zr.Close()

	dec := json.NewDecoder(zr)
	var header DumpHeader
	if err := dec.Decode(&header); err != nil {
		return nil, nil, fmt.Errorf("%w: %s: header: %v", ErrBadDump, path, err)
	}

	shared := make(map[string]*clips.Clip)
	var cands []*clips.Candidate
	for line := 2; ; line++ {
		var rec dumpRecord
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, fmt.Errorf("%w: %s: line %d: %v", ErrBadDump, path, line, err)
		}
		clip, ok := shared[rec.Path]
		if !ok {
			clip = &clips.Clip{
				VideoID:      rec.VideoID,
				Start:        rec.Start,
				End:          rec.End,
				TargetFrames: rec.TargetFrames,
				ActualFrames: rec.ActualFrames,
				Duration:     time.Duration(rec.DurationNS),
				Path:         rec.Path,
				RelPath:      rec.RelPath,
			}
			shared[rec.Path] = clip
		}
		cands = append(cands, &clips.Candidate{
			Clip:       clip,
			LabelIndex: rec.LabelIndex,
			LabelName:  rec.LabelName,
			Task:       clips.TaskType(rec.Task),
			Confidence: rec.Confidence,
		})
	}
	return &header, cands, nil
}

func toRecord(c *clips.Candidate) dumpRecord {
	return dumpRecord{
		VideoID:      c.Clip.VideoID,
		Start:        c.Clip.Start,
		End:          c.Clip.End,
		TargetFrames: c.Clip.TargetFrames,
		ActualFrames: c.Clip.ActualFrames,
		DurationNS:   int64(c.Clip.Duration),
		Path:         c.Clip.Path,
		RelPath:      c.Clip.RelPath,
		LabelIndex:   c.LabelIndex,
		LabelName:    c.LabelName,
		Task:         string(c.Task),
		Confidence:   c.Confidence,
	}
}
