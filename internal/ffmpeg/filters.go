package ffmpeg

import (
	"fmt"
	"strings"
)

// FilterBuilder helps construct ffmpeg filter chains
type FilterBuilder struct {
	filters []string
}

// NewFilterBuilder creates a new filter builder
func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{
		filters: make([]string, 0),
	}
}

// ScaleHeight scales to the given height keeping the aspect ratio with an
// even width.
func (fb *FilterBuilder) ScaleHeight(height int) *FilterBuilder {
	if height <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("scale=-2:%d", height))
	return fb
}

// Build returns the complete filter string joined with commas
func (fb *FilterBuilder) Build() string {
	if len(fb.filters) == 0 {
		return ""
	}
	return strings.Join(fb.filters, ",")
}
