package clips

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	assert.Equal(t, "video01_000000_000299.mp4", Name("video01", 0, 299))
	assert.Equal(t, "video12_012300_012599.mp4", Name("video12", 12300, 12599))
}

func TestLessTotalOrder(t *testing.T) {
	a := &Clip{VideoID: "video01", Start: 0}
	b := &Clip{VideoID: "video01", Start: 300}
	c := &Clip{VideoID: "video02", Start: 0}

	cands := []*Candidate{
		{Clip: c, LabelIndex: 1, Confidence: 0.5},
		{Clip: b, LabelIndex: 7, Confidence: 0.5},
		{Clip: a, LabelIndex: 9, Confidence: 0.5},
		{Clip: a, LabelIndex: 2, Confidence: 0.5},
		{Clip: c, LabelIndex: 0, Confidence: 0.9},
	}
	sort.Slice(cands, func(i, j int) bool { return Less(cands[i], cands[j]) })

	assert.Equal(t, 0.9, cands[0].Confidence)
	assert.Same(t, a, cands[1].Clip)
	assert.Equal(t, 2, cands[1].LabelIndex)
	assert.Same(t, a, cands[2].Clip)
	assert.Same(t, b, cands[3].Clip)
	assert.Same(t, c, cands[4].Clip)
}
