// Package analyze derives clip-level labels and confidences from aligned
// per-frame annotation tracks.
package analyze

import (
	"errors"
	"fmt"

	"github.com/keagan/surgclip/internal/annotation"
	"github.com/keagan/surgclip/internal/clips"
	"github.com/keagan/surgclip/internal/vocab"
	"github.com/keagan/surgclip/pkg/util"
)

// ErrUnknownLabel reports a label that is absent from the vocabulary. The
// candidate is dropped; no index is ever invented for it.
var ErrUnknownLabel = errors.New("label not in vocabulary")

// ConfidencePlaces is the rounding applied to every confidence.
const ConfidencePlaces = 4

// Result is a label derived for one frame range.
type Result struct {
	LabelIndex int
	LabelName  string
	Task       clips.TaskType
	Confidence float64
}

// Phase returns the dominant phase over the inclusive range [start, end],
// clipped to the track. ok is false when the range holds no annotated frames.
// Ties go to the phase encountered first.
func Phase(frames []string, start, end int, v *vocab.Vocabulary) (Result, bool, error) {
	lo, hi, ok := clip(start, end, len(frames))
	if !ok {
		return Result{}, false, nil
	}

	counts := make(map[string]int)
	var order []string
	for _, p := range frames[lo : hi+1] {
		if _, seen := counts[p]; !seen {
			order = append(order, p)
		}
		counts[p]++
	}

	dominant, best := "", 0
	for _, p := range order {
		if counts[p] > best {
			dominant, best = p, counts[p]
		}
	}
	total := hi - lo + 1

	idx, known := v.Phase(dominant)
	if !known {
		return Result{}, false, fmt.Errorf("%w: phase %q (frames %d-%d)", ErrUnknownLabel, dominant, start, end)
	}
	return Result{
		LabelIndex: idx,
		LabelName:  dominant,
		Task:       clips.TaskPhase,
		Confidence: util.Round(float64(best)/float64(total), ConfidencePlaces),
	}, true, nil
}

// Tools returns one result per tool present at least once in [start, end],
// in vocabulary order. Confidence is the fraction of frames in the clipped
// range where the tool is present. Tools missing from the vocabulary are
// skipped and reported in the returned error.
func Tools(track *annotation.AlignedTools, start, end int, v *vocab.Vocabulary) ([]Result, error) {
	if track == nil {
		return nil, nil
	}
	lo, hi, ok := clip(start, end, track.Len())
	if !ok {
		return nil, nil
	}

	counts := make([]int, len(track.Tools))
	for _, frame := range track.Frames[lo : hi+1] {
		for k, present := range frame {
			if present && k < len(counts) {
				counts[k]++
			}
		}
	}

	total := hi - lo + 1
	var (
		results []Result
		errs    []error
	)
	for k, name := range track.Tools {
		if counts[k] == 0 {
			continue
		}
		idx, known := v.Tool(name)
		if !known {
			errs = append(errs, fmt.Errorf("%w: tool %q (frames %d-%d)", ErrUnknownLabel, name, start, end))
			continue
		}
		results = append(results, Result{
			LabelIndex: idx,
			LabelName:  name,
			Task:       clips.TaskTool,
			Confidence: util.Round(float64(counts[k])/float64(total), ConfidencePlaces),
		})
	}
	return results, errors.Join(errs...)
}

func clip(start, end, n int) (int, int, bool) {
	if start < 0 {
		start = 0
	}
	if end > n-1 {
		end = n - 1
	}
	if start > end {
		return 0, 0, false
	}
	return start, end, true
}
