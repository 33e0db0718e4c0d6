package annotation

// AlignedTools is a dense, per-frame tool presence track. Frames[i][k] is the
// presence of Tools[k] at frame i. Frames may share backing slices, so the
// track is read-only.
type AlignedTools struct {
	Tools  []string
	Frames [][]bool
}

// Len returns the number of frames in the aligned track.
func (a *AlignedTools) Len() int {
	if a == nil {
		return 0
	}
	return len(a.Frames)
}

// AlignTools reconciles a raw tool track with the master length of its video.
//
// Columns are remapped onto tools (the vocabulary's tool order); header
// columns that are not in tools are passed to onUnknown and ignored. Missing
// frame indices repeat the most recent frame (all-absent before the first
// row), the track is extended by repeating its last frame and truncated at
// master. The result always has exactly master frames. Rows whose frame index
// does not advance are dropped and counted in the returned int.
func AlignTools(raw *ToolTrack, tools []string, master int, onUnknown func(tool string)) (*AlignedTools, int) {
	out := &AlignedTools{Tools: tools}
	if master <= 0 {
		return out, 0
	}

	absent := make([]bool, len(tools))
	frames := make([][]bool, 0, master)
	dropped := 0

	if raw != nil {
		cols := columnMap(raw.Header, tools, onUnknown)
		last := -1
		for _, row := range raw.Rows {
			if len(frames) >= master {
				break
			}
			if row.Frame <= last {
				dropped++
				continue
			}
			fill := absent
			if len(frames) > 0 {
				fill = frames[len(frames)-1]
			}
			for f := last + 1; f < row.Frame && len(frames) < master; f++ {
				frames = append(frames, fill)
			}
			if len(frames) >= master {
				break
			}

			v := make([]bool, len(tools))
			for k, col := range cols {
				if col >= 0 && col < len(row.Values) {
					v[k] = row.Values[col]
				}
			}
			frames = append(frames, v)
			last = row.Frame
		}
	}

	fill := absent
	if len(frames) > 0 {
		fill = frames[len(frames)-1]
	}
	for len(frames) < master {
		frames = append(frames, fill)
	}
	out.Frames = frames[:master]
	return out, dropped
}

// columnMap returns, for every tool, its column in header or -1.
func columnMap(header, tools []string, onUnknown func(string)) []int {
	index := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}
	known := make(map[string]struct{}, len(tools))
	cols := make([]int, len(tools))
	for k, tool := range tools {
		known[tool] = struct{}{}
		col, ok := index[tool]
		if !ok {
			col = -1
		}
		cols[k] = col
	}
	if onUnknown != nil {
		for _, h := range header {
			if _, ok := known[h]; !ok {
				onUnknown(h)
			}
		}
	}
	return cols
}
