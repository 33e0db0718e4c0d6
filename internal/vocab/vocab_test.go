package vocab

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildIndices(t *testing.T) {
	v, err := Build(
		[]string{"Preparation", "CalotTriangleDissection", "Preparation", "ClippingCutting", ""},
		[]string{"Grasper", "Bipolar", "Hook"},
	)
	require.NoError(t, err)

	if diff := cmp.Diff([]string{"CalotTriangleDissection", "ClippingCutting", "Preparation"}, v.Phases()); diff != "" {
		t.Errorf("phases mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Grasper", "Bipolar", "Hook"}, v.Tools()); diff != "" {
		t.Errorf("tools mismatch (-want +got):\n%s", diff)
	}

	i, ok := v.Phase("Preparation")
	assert.True(t, ok)
	assert.Equal(t, 2, i)

	i, ok = v.Tool("Grasper")
	assert.True(t, ok)
	assert.Equal(t, 3, i)
	i, ok = v.Tool("Hook")
	assert.True(t, ok)
	assert.Equal(t, 5, i)

	_, ok = v.Phase("Grasper")
	assert.False(t, ok)
	_, ok = v.Tool("Unknown")
	assert.False(t, ok)
	assert.Equal(t, 6, v.Size())
}

func TestSpacesNeverCollide(t *testing.T) {
	v, err := Build([]string{"A", "B"}, []string{"A", "T"})
	require.NoError(t, err)

	seen := map[int]bool{}
	for _, p := range v.Phases() {
		i, _ := v.Phase(p)
		seen[i] = true
	}
	for _, tool := range v.Tools() {
		i, _ := v.Tool(tool)
		assert.False(t, seen[i], "tool %s collides with a phase index", tool)
	}
}

func TestName(t *testing.T) {
	v, err := Build([]string{"P1"}, []string{"T1", "T2"})
	require.NoError(t, err)

	name, ok := v.Name(0)
	assert.True(t, ok)
	assert.Equal(t, "P1", name)
	name, ok = v.Name(2)
	assert.True(t, ok)
	assert.Equal(t, "T2", name)
	_, ok = v.Name(3)
	assert.False(t, ok)
	_, ok = v.Name(-1)
	assert.False(t, ok)
}

func TestBuildEmpty(t *testing.T) {
	_, err := Build(nil, nil)
	assert.ErrorIs(t, err, ErrEmptyVocabulary)

	v, err := Build(nil, []string{"Hook"})
	require.NoError(t, err)
	i, _ := v.Tool("Hook")
	assert.Equal(t, 0, i)
}

func TestAccessorsReturnCopies(t *testing.T) {
	v, err := Build([]string{"A"}, []string{"T"})
	require.NoError(t, err)
	v.Phases()[0] = "mutated"
	v.Tools()[0] = "mutated"
	assert.Equal(t, []string{"A"}, v.Phases())
	assert.Equal(t, []string{"T"}, v.Tools())
}
