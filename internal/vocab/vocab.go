// Package vocab maps phase and tool label names onto dense integer indices.
//
// Phase indices occupy [0, P) in sorted name order, tool indices occupy
// [P, P+T) in the order of the representative tool header, so the two label
// spaces never collide. A Vocabulary is immutable once built and is passed
// explicitly to everything that needs label indices.
package vocab

import (
	"errors"
	"sort"
)

// ErrEmptyVocabulary is returned when neither phase nor tool labels were found.
// No candidate could ever be labeled, so the run must stop.
var ErrEmptyVocabulary = errors.New("no phase or tool labels found")

// Vocabulary is an immutable label-name to index bijection.
type Vocabulary struct {
	phases   []string
	tools    []string
	phaseIdx map[string]int
	toolIdx  map[string]int
}

// Build constructs a vocabulary from the union of observed phase labels and a
// tool header. Duplicate and empty names are ignored.
func Build(phaseLabels []string, toolHeader []string) (*Vocabulary, error) {
	seen := make(map[string]struct{}, len(phaseLabels))
	phases := make([]string, 0, len(phaseLabels))
	for _, p := range phaseLabels {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		phases = append(phases, p)
	}
	sort.Strings(phases)

	tools := make([]string, 0, len(toolHeader))
	toolSeen := make(map[string]struct{}, len(toolHeader))
	for _, t := range toolHeader {
		if t == "" {
			continue
		}
		if _, ok := toolSeen[t]; ok {
			continue
		}
		toolSeen[t] = struct{}{}
		tools = append(tools, t)
	}

	if len(phases) == 0 && len(tools) == 0 {
		return nil, ErrEmptyVocabulary
	}

	v := &Vocabulary{
		phases:   phases,
		tools:    tools,
		phaseIdx: make(map[string]int, len(phases)),
		toolIdx:  make(map[string]int, len(tools)),
	}
	for i, p := range phases {
		v.phaseIdx[p] = i
	}
	for i, t := range tools {
		v.toolIdx[t] = len(phases) + i
	}
	return v, nil
}

// Phase returns the index of a phase label.
func (v *Vocabulary) Phase(name string) (int, bool) {
	i, ok := v.phaseIdx[name]
	return i, ok
}

// Tool returns the index of a tool label.
func (v *Vocabulary) Tool(name string) (int, bool) {
	i, ok := v.toolIdx[name]
	return i, ok
}

// Phases returns a copy of the phase names in index order.
func (v *Vocabulary) Phases() []string {
	return append([]string(nil), v.phases...)
}

// Tools returns a copy of the tool names in index order.
func (v *Vocabulary) Tools() []string {
	return append([]string(nil), v.tools...)
}

// Size returns the total number of labels.
func (v *Vocabulary) Size() int {
	return len(v.phases) + len(v.tools)
}

// Name returns the label name for a global index.
func (v *Vocabulary) Name(index int) (string, bool) {
	switch {
	case index < 0:
		return "", false
	case index < len(v.phases):
		return v.phases[index], true
	case index < v.Size():
		return v.tools[index-len(v.phases)], true
	default:
		return "", false
	}
}
