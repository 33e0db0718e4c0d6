package annotation

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// ErrMissingAnnotation is returned when an annotation file does not exist.
// Callers treat the affected label dimension of that video as empty.
var ErrMissingAnnotation = errors.New("annotation file not found")

// RowError describes a row that could not be parsed. The row is skipped.
type RowError struct {
	Path   string
	Line   int
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s:%d: malformed annotation row: %s", e.Path, e.Line, e.Reason)
}

// PhaseTrack holds one phase label per annotated frame, in file order.
type PhaseTrack struct {
	Frames  []string
	Skipped int
}

// Len returns the number of annotated frames.
func (t *PhaseTrack) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Frames)
}

// Labels returns the distinct phase labels in first-seen order.
func (t *PhaseTrack) Labels() []string {
	if t == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, p := range t.Frames {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// ToolRow is one parsed row of a tool annotation file. Values is indexed by
// the file's header column.
type ToolRow struct {
	Frame  int
	Values []bool
}

// ToolTrack is a raw tool presence table as recorded in the file. Frame
// indices may be sparse; see AlignTools.
type ToolTrack struct {
	Header  []string
	Rows    []ToolRow
	Skipped int
}

// Loader parses tab-delimited annotation files.
type Loader struct {
	logger zerolog.Logger
}

// NewLoader creates a loader that reports malformed rows through logger.
func NewLoader(logger zerolog.Logger) *Loader {
	return &Loader{logger: logger.With().Str("component", "annotation").Logger()}
}

// Phase loads a phase file: header row, then "frame<TAB>phase" rows.
func (l *Loader) Phase(path string) (*PhaseTrack, error) {
	track := &PhaseTrack{}
	err := l.scan(path, func(line int, fields []string) {
		if line == 1 {
			return
		}
		if len(fields) < 2 {
			l.malformed(&RowError{Path: path, Line: line, Reason: "expected frame and phase columns"})
			track.Skipped++
			return
		}
		if _, err := strconv.Atoi(strings.TrimSpace(fields[0])); err != nil {
			l.malformed(&RowError{Path: path, Line: line, Reason: fmt.Sprintf("frame index %q is not an integer", fields[0])})
			track.Skipped++
			return
		}
		phase := strings.TrimSpace(fields[1])
		if phase == "" {
			l.malformed(&RowError{Path: path, Line: line, Reason: "empty phase"})
			track.Skipped++
			return
		}
		track.Frames = append(track.Frames, phase)
	})
	if err != nil {
		return nil, err
	}
	return track, nil
}

// Tools loads a tool file: header "frame<TAB>tool..." then 0/1 rows.
func (l *Loader) Tools(path string) (*ToolTrack, error) {
	track := &ToolTrack{}
	err := l.scan(path, func(line int, fields []string) {
		if line == 1 {
			track.Header = headerNames(fields)
			return
		}
		if len(fields) < len(track.Header)+1 {
			l.malformed(&RowError{Path: path, Line: line, Reason: fmt.Sprintf("expected %d columns, got %d", len(track.Header)+1, len(fields))})
			track.Skipped++
			return
		}
		row, err := parseToolRow(fields, len(track.Header))
		if err != nil {
			l.malformed(&RowError{Path: path, Line: line, Reason: err.Error()})
			track.Skipped++
			return
		}
		track.Rows = append(track.Rows, row)
	})
	if err != nil {
		return nil, err
	}
	return track, nil
}

// ToolHeader reads only the header of a tool file and returns the tool names.
func (l *Loader) ToolHeader(path string) ([]string, error) {
	f, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return headerNames(splitLine(line)), nil
}

func (l *Loader) scan(path string, fn func(line int, fields []string)) error {
	f, err := open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if line > 1 && strings.TrimSpace(text) == "" {
			continue
		}
		fn(line, splitLine(text))
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

func (l *Loader) malformed(e *RowError) {
	l.logger.Warn().
		Str("file", e.Path).
		Int("line", e.Line).
		Str("reason", e.Reason).
		Msg("skipping malformed annotation row")
}

func open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingAnnotation, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

func splitLine(s string) []string {
	s = strings.TrimRight(s, "\r\n")
	s = strings.TrimPrefix(s, "\ufeff")
	return strings.Split(s, "\t")
}

func headerNames(fields []string) []string {
	if len(fields) < 2 {
		return nil
	}
	names := make([]string, 0, len(fields)-1)
	for _, f := range fields[1:] {
		names = append(names, strings.TrimSpace(f))
	}
	return names
}

func parseToolRow(fields []string, n int) (ToolRow, error) {
	frame, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return ToolRow{}, fmt.Errorf("frame index %q is not an integer", fields[0])
	}
	if frame < 0 {
		return ToolRow{}, fmt.Errorf("negative frame index %d", frame)
	}
	values := make([]bool, n)
	for i := 0; i < n; i++ {
		v, err := strconv.Atoi(strings.TrimSpace(fields[i+1]))
		if err != nil {
			return ToolRow{}, fmt.Errorf("tool value %q is not an integer", fields[i+1])
		}
		values[i] = v != 0
	}
	return ToolRow{Frame: frame, Values: values}, nil
}
