package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00:00:00.000", FormatDuration(0))
	assert.Equal(t, "00:00:12.000", FormatDuration(12*time.Second))
	assert.Equal(t, "01:02:03.500", FormatDuration(time.Hour+2*time.Minute+3500*time.Millisecond))
}

func TestFormatDurationCarriesRoundedMilliseconds(t *testing.T) {
	assert.Equal(t, "00:01:00.000", FormatDuration(59999600*time.Microsecond))
	assert.Equal(t, "01:00:00.000", FormatDuration(time.Hour-100*time.Microsecond))
	assert.Equal(t, "00:00:59.999", FormatDuration(59999400*time.Microsecond))
	assert.Equal(t, "00:00:11.960", FormatDuration(FrameTime(299, 25)))
}

func TestFrameTime(t *testing.T) {
	assert.Equal(t, 12*time.Second, FrameTime(300, 25))
	assert.Equal(t, time.Duration(0), FrameTime(300, 0))
}

func TestParseFrameRate(t *testing.T) {
	assert.InDelta(t, 25.0, ParseFrameRate("25/1"), 1e-9)
	assert.InDelta(t, 29.97, ParseFrameRate("30000/1001"), 1e-3)
	assert.Zero(t, ParseFrameRate("0/0"))
	assert.Zero(t, ParseFrameRate("N/A"))
	assert.Zero(t, ParseFrameRate("25"))
}

func TestRound(t *testing.T) {
	assert.Equal(t, 0.6667, Round(2.0/3.0, 4))
	assert.Equal(t, 12.35, Round(12.345678, 2))
	assert.Equal(t, 1.0, Round(1, 4))
}
