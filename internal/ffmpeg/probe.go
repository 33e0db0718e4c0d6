package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/keagan/surgclip/pkg/util"
)

// ProbeVideo extracts metadata from a video file, including its frame count.
func (e *Executor) ProbeVideo(ctx context.Context, filePath string) (*VideoInfo, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path is required")
	}

	output, err := e.probe(ctx,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		"-select_streams", "v:0",
		filePath,
	)
	if err != nil {
		return nil, err
	}

	info, err := parseProbe(output)
	if err != nil {
		return nil, err
	}
	info.FilePath = filePath

	if info.FrameCount == 0 {
		n, err := e.countPackets(ctx, filePath)
		if err != nil {
			return nil, err
		}
		info.FrameCount = n
	}

	return info, nil
}

// CountFrames returns the number of video frames in a file. Containers that
// do not record nb_frames are counted by demuxing packets.
func (e *Executor) CountFrames(ctx context.Context, path string) (int, error) {
	output, err := e.probe(ctx,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=nb_frames",
		"-of", "json",
		path,
	)
	if err != nil {
		return 0, err
	}
	n, err := parseStreamCount(output, func(s probeStream) string { return s.NbFrames })
	if err == nil && n > 0 {
		return n, nil
	}
	return e.countPackets(ctx, path)
}

func (e *Executor) countPackets(ctx context.Context, path string) (int, error) {
	output, err := e.probe(ctx,
		"-v", "error",
		"-count_packets",
		"-select_streams", "v:0",
		"-show_entries", "stream=nb_read_packets",
		"-of", "json",
		path,
	)
	if err != nil {
		return 0, err
	}
	return parseStreamCount(output, func(s probeStream) string { return s.NbReadPackets })
}

func (e *Executor) probe(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, e.ffprobePath, args...)
	output, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}
	return output, nil
}

// probeResult matches ffprobe JSON output structure
type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []probeStream `json:"streams"`
}

type probeStream struct {
	CodecType     string `json:"codec_type"`
	CodecName     string `json:"codec_name"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	RFrameRate    string `json:"r_frame_rate"`
	AvgFrameRate  string `json:"avg_frame_rate"`
	Duration      string `json:"duration"`
	NbFrames      string `json:"nb_frames"`
	NbReadPackets string `json:"nb_read_packets"`
}

func parseProbe(output []byte) (*VideoInfo, error) {
	var probe probeResult
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	info := &VideoInfo{}

	// Parse duration
	if dur, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		info.Duration = time.Duration(dur * float64(time.Second))
	}

	var found bool
	for _, stream := range probe.Streams {
		if stream.CodecType != "" && stream.CodecType != "video" {
			continue
		}
		found = true
		info.Width = stream.Width
		info.Height = stream.Height
		info.VideoCodec = stream.CodecName

		// avg_frame_rate is reliable for VFR sources; r_frame_rate otherwise
		info.FPS = util.ParseFrameRate(stream.AvgFrameRate)
		if info.FPS == 0 {
			info.FPS = util.ParseFrameRate(stream.RFrameRate)
		}
		if n, err := strconv.Atoi(stream.NbFrames); err == nil {
			info.FrameCount = n
		}
		break
	}
	if !found {
		return nil, fmt.Errorf("no video stream found")
	}

	return info, nil
}

func parseStreamCount(output []byte, field func(probeStream) string) (int, error) {
	var probe probeResult
	if err := json.Unmarshal(output, &probe); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if len(probe.Streams) == 0 {
		return 0, fmt.Errorf("no video stream found")
	}
	raw := field(probe.Streams[0])
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("frame count %q: %w", raw, err)
	}
	return n, nil
}
