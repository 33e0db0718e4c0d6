package annotation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadPhase(t *testing.T) {
	path := writeFile(t, "video01-phase.txt",
		"Frame\tPhase\n0\tPreparation\n1\tPreparation\r\nbad\tCalotTriangleDissection\n2\n3\tCalotTriangleDissection\n\n")

	track, err := NewLoader(zerolog.Nop()).Phase(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Preparation", "Preparation", "CalotTriangleDissection"}, track.Frames)
	assert.Equal(t, 2, track.Skipped)
	assert.Equal(t, []string{"Preparation", "CalotTriangleDissection"}, track.Labels())
}

func TestLoadPhaseHeaderOnly(t *testing.T) {
	path := writeFile(t, "p.txt", "Frame\tPhase\n")
	track, err := NewLoader(zerolog.Nop()).Phase(path)
	require.NoError(t, err)
	assert.Zero(t, track.Len())
}

func TestLoadMissing(t *testing.T) {
	l := NewLoader(zerolog.Nop())
	missing := filepath.Join(t.TempDir(), "nope.txt")

	_, err := l.Phase(missing)
	assert.ErrorIs(t, err, ErrMissingAnnotation)
	_, err = l.Tools(missing)
	assert.ErrorIs(t, err, ErrMissingAnnotation)
	_, err = l.ToolHeader(missing)
	assert.ErrorIs(t, err, ErrMissingAnnotation)
}

func TestLoadTools(t *testing.T) {
	path := writeFile(t, "video01-tool.txt",
		"Frame\tGrasper\tHook\n0\t1\t0\n25\t0\t1\n50\t1\nx\t0\t0\n75\t1\tmaybe\n100\t1\t1\n")

	track, err := NewLoader(zerolog.Nop()).Tools(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Grasper", "Hook"}, track.Header)
	require.Len(t, track.Rows, 3)
	assert.Equal(t, ToolRow{Frame: 0, Values: []bool{true, false}}, track.Rows[0])
	assert.Equal(t, ToolRow{Frame: 25, Values: []bool{false, true}}, track.Rows[1])
	assert.Equal(t, ToolRow{Frame: 100, Values: []bool{true, true}}, track.Rows[2])
	assert.Equal(t, 3, track.Skipped)
}

func TestToolHeader(t *testing.T) {
	path := writeFile(t, "h.txt", "Frame\tGrasper\tBipolar\tHook\r\n0\t1\t0\t0\n")
	header, err := NewLoader(zerolog.Nop()).ToolHeader(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Grasper", "Bipolar", "Hook"}, header)

	empty := writeFile(t, "e.txt", "")
	header, err = NewLoader(zerolog.Nop()).ToolHeader(empty)
	require.NoError(t, err)
	assert.Empty(t, header)
}

func rawTools(rows ...ToolRow) *ToolTrack {
	return &ToolTrack{Header: []string{"Grasper", "Hook"}, Rows: rows}
}

func TestAlignLengthAlwaysMaster(t *testing.T) {
	tools := []string{"Grasper", "Hook"}
	cases := map[string]*ToolTrack{
		"nil":     nil,
		"empty":   rawTools(),
		"shorter": rawTools(ToolRow{0, []bool{true, false}}, ToolRow{1, []bool{true, true}}),
		"equal": rawTools(ToolRow{0, []bool{true, false}}, ToolRow{1, []bool{false, false}},
			ToolRow{2, []bool{true, false}}, ToolRow{3, []bool{true, false}}, ToolRow{4, []bool{true, false}}),
		"longer": rawTools(ToolRow{0, []bool{true, false}}, ToolRow{9, []bool{false, true}}),
		"sparse": rawTools(ToolRow{0, []bool{true, false}}, ToolRow{2, []bool{false, true}}, ToolRow{4, []bool{true, true}}),
	}
	for name, raw := range cases {
		for _, master := range []int{0, 1, 5, 12} {
			aligned, _ := AlignTools(raw, tools, master, nil)
			assert.Equal(t, master, aligned.Len(), "%s master=%d", name, master)
		}
	}
}

func TestAlignForwardFillsGapsAndTail(t *testing.T) {
	raw := rawTools(
		ToolRow{Frame: 2, Values: []bool{true, false}},
		ToolRow{Frame: 5, Values: []bool{false, true}},
	)
	aligned, dropped := AlignTools(raw, []string{"Grasper", "Hook"}, 8, nil)
	require.Zero(t, dropped)

	want := [][]bool{
		{false, false}, {false, false}, // before first row: absent
		{true, false}, {true, false}, {true, false}, // gap repeats frame 2
		{false, true}, {false, true}, {false, true}, // tail repeats frame 5
	}
	assert.Equal(t, want, aligned.Frames)
}

func TestAlignTruncates(t *testing.T) {
	raw := rawTools(
		ToolRow{Frame: 0, Values: []bool{true, false}},
		ToolRow{Frame: 1, Values: []bool{false, true}},
		ToolRow{Frame: 100000, Values: []bool{true, true}},
	)
	aligned, _ := AlignTools(raw, []string{"Grasper", "Hook"}, 3, nil)
	assert.Equal(t, [][]bool{{true, false}, {false, true}, {false, true}}, aligned.Frames)
}

func TestAlignRemapsColumnsAndReportsUnknown(t *testing.T) {
	raw := &ToolTrack{
		Header: []string{"Hook", "Laser", "Grasper"},
		Rows:   []ToolRow{{Frame: 0, Values: []bool{true, true, false}}},
	}
	var unknown []string
	aligned, _ := AlignTools(raw, []string{"Grasper", "Bipolar", "Hook"}, 2, func(s string) { unknown = append(unknown, s) })

	assert.Equal(t, []string{"Laser"}, unknown)
	assert.Equal(t, [][]bool{{false, false, true}, {false, false, true}}, aligned.Frames)
}

func TestAlignDropsNonAdvancingRows(t *testing.T) {
	raw := rawTools(
		ToolRow{Frame: 0, Values: []bool{true, false}},
		ToolRow{Frame: 0, Values: []bool{false, true}},
		ToolRow{Frame: 1, Values: []bool{false, true}},
	)
	aligned, dropped := AlignTools(raw, []string{"Grasper", "Hook"}, 2, nil)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, [][]bool{{true, false}, {false, true}}, aligned.Frames)
}
