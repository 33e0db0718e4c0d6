package ffmpeg

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// skipIfNoFFmpeg skips the test if ffmpeg is not available
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH - install with: brew install ffmpeg")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH - install with: brew install ffmpeg")
	}
}

// makeTestVideo renders a synthetic 25fps clip with the given frame count.
func makeTestVideo(t *testing.T, frames int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.mp4")
	cmd := exec.Command("ffmpeg", "-y", "-hide_banner", "-loglevel", "error",
		"-f", "lavfi", "-i", "testsrc=size=320x240:rate=25",
		"-frames:v", strconv.Itoa(frames),
		"-c:v", "libx264", "-g", "25", "-pix_fmt", "yuv420p",
		path,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Skipf("cannot render test video: %v: %s", err, out)
	}
	return path
}

func TestParseProbe(t *testing.T) {
	out := []byte(`{
		"streams": [{
			"codec_type": "video", "codec_name": "h264",
			"width": 320, "height": 240,
			"r_frame_rate": "25/1", "avg_frame_rate": "25/1",
			"nb_frames": "43000"
		}],
		"format": {"duration": "1720.000000"}
	}`)
	info, err := parseProbe(out)
	require.NoError(t, err)
	assert.Equal(t, 320, info.Width)
	assert.Equal(t, 240, info.Height)
	assert.Equal(t, 25.0, info.FPS)
	assert.Equal(t, 43000, info.FrameCount)
	assert.Equal(t, 1720*time.Second, info.Duration)
	assert.Equal(t, "h264", info.VideoCodec)
}

func TestParseProbeFallsBackToRFrameRate(t *testing.T) {
	out := []byte(`{"streams":[{"codec_type":"video","r_frame_rate":"30000/1001","avg_frame_rate":"0/0"}],"format":{}}`)
	info, err := parseProbe(out)
	require.NoError(t, err)
	assert.InDelta(t, 29.97, info.FPS, 1e-3)
	assert.Zero(t, info.FrameCount)
}

func TestParseProbeErrors(t *testing.T) {
	_, err := parseProbe([]byte(`not json`))
	assert.Error(t, err)

	_, err = parseProbe([]byte(`{"streams":[{"codec_type":"audio"}]}`))
	assert.Error(t, err)
}

func TestParseStreamCount(t *testing.T) {
	n, err := parseStreamCount([]byte(`{"streams":[{"nb_frames":"300"}]}`), func(s probeStream) string { return s.NbFrames })
	require.NoError(t, err)
	assert.Equal(t, 300, n)

	_, err = parseStreamCount([]byte(`{"streams":[{"nb_frames":"N/A"}]}`), func(s probeStream) string { return s.NbFrames })
	assert.Error(t, err)

	_, err = parseStreamCount([]byte(`{"streams":[]}`), func(s probeStream) string { return s.NbFrames })
	assert.Error(t, err)
}

func TestStreamOutput(t *testing.T) {
	input := strings.Join([]string{
		"frame=120",
		"fps=240.5",
		"bitrate=N/A",
		"out_time=00:00:04.800000",
		"speed=9.6x",
		"progress=continue",
		"[mp4 @ 0x1] Error writing trailer: x=1",
		"frame=300",
		"progress=end",
	}, "\n")

	var progress []Progress
	var logs []string
	streamOutput(strings.NewReader(input),
		func(p *Progress) { progress = append(progress, *p) },
		func(l string) { logs = append(logs, l) },
	)

	require.Len(t, progress, 2)
	assert.Equal(t, 120, progress[0].Frame)
	assert.Equal(t, 240.5, progress[0].FPS)
	assert.Equal(t, "00:00:04.800000", progress[0].Time)
	assert.Equal(t, "9.6x", progress[0].Speed)
	assert.Equal(t, 300, progress[1].Frame)
	assert.Equal(t, []string{"[mp4 @ 0x1] Error writing trailer: x=1"}, logs)
}

func TestTail(t *testing.T) {
	tl := newTail(2)
	tl.add("a")
	tl.add("b")
	tl.add("c")
	assert.Equal(t, "b\nc", tl.String())
}

func TestFilterBuilder(t *testing.T) {
	fb := NewFilterBuilder()
	filter := fb.ScaleHeight(480).ScaleHeight(240).Build()

	expected := "scale=-2:480,scale=-2:240"
	if filter != expected {
		t.Errorf("expected %q, got %q", expected, filter)
	}
}

func TestFilterBuilderEmpty(t *testing.T) {
	fb := NewFilterBuilder()
	filter := fb.ScaleHeight(0).ScaleHeight(-1).Build()

	if filter != "" {
		t.Errorf("expected empty string, got %q", filter)
	}
}

func TestExecutorCreation(t *testing.T) {
	skipIfNoFFmpeg(t)

	exec, err := NewWithOptions(zerolog.Nop(), Options{Threads: 4, CopyCodec: true})
	require.NoError(t, err)
	assert.NotEmpty(t, exec.ffmpegPath)
	assert.NotEmpty(t, exec.ffprobePath)
	assert.True(t, exec.opts.CopyCodec)
}

func TestExecutorMissingBinary(t *testing.T) {
	_, err := NewWithOptions(zerolog.Nop(), Options{FFmpegPath: "definitely-not-ffmpeg-binary"})
	assert.Error(t, err)
}

func TestProbeAndCountFrames(t *testing.T) {
	skipIfNoFFmpeg(t)
	src := makeTestVideo(t, 100)

	exec, err := NewWithOptions(zerolog.Nop(), Options{Threads: 2, CopyCodec: true})
	require.NoError(t, err)

	ctx := context.Background()
	info, err := exec.ProbeVideo(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, 320, info.Width)
	assert.Equal(t, 240, info.Height)
	assert.Equal(t, 25.0, info.FPS)
	assert.Equal(t, 100, info.FrameCount)

	n, err := exec.CountFrames(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
}

func TestCutFramesReencode(t *testing.T) {
	skipIfNoFFmpeg(t)
	src := makeTestVideo(t, 100)

	exec, err := NewWithOptions(zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}), Options{
		Threads:     2,
		CopyCodec:   false,
		Preset:      "ultrafast",
		ScaleHeight: 120,
	})
	require.NoError(t, err)

	ctx := context.Background()
	out := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, exec.CutFrames(ctx, src, 2*time.Second, 30, out))

	n, err := exec.CountFrames(ctx, out)
	require.NoError(t, err)
	assert.Equal(t, 30, n)

	info, err := exec.ProbeVideo(ctx, out)
	require.NoError(t, err)
	assert.Equal(t, 120, info.Height)
}

func TestCutFramesFailureRemovesOutput(t *testing.T) {
	skipIfNoFFmpeg(t)

	exec, err := NewWithOptions(zerolog.Nop(), Options{Threads: 1, CopyCodec: true})
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "clip.mp4")
	err = exec.CutFrames(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"), 0, 10, out)
	assert.Error(t, err)
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}
