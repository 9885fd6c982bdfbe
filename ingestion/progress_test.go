package ingestion

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker_Basic(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, "listings", 100, 10)

	tracker.Start()
	tracker.Add(25)
	tracker.Add(25)
	tracker.Add(50)

	assert.Equal(t, 100, tracker.Current())
	assert.Greater(t, tracker.Elapsed(), time.Duration(0))
	assert.Contains(t, buf.String(), "listings: 100/100 (100.0%)")
	assert.Contains(t, buf.String(), "listings/s")
}

func TestProgressTracker_FinishReportsActual(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, "reviews", 100, 1000)

	tracker.Start()
	tracker.Add(75)
	tracker.Finish()

	out := buf.String()
	assert.Contains(t, out, "75/100", "a partial import must not claim completion")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestProgressTracker_Caps(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, "listings", 100, 10)

	tracker.Start()
	tracker.Add(150)
	assert.Contains(t, buf.String(), "100/100")
}

func TestProgressTracker_NotStarted(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, "listings", 100, 10)

	tracker.Add(10)
	tracker.Finish()
	assert.Empty(t, buf.String())
	assert.Zero(t, tracker.Elapsed())
}

func TestProgressTracker_ReportInterval(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, "listings", 1000, 100)
	tracker.Start()

	tracker.Add(50)
	assert.Empty(t, buf.String(), "should not print under interval")

	tracker.Add(50)
	assert.NotEmpty(t, buf.String(), "should print at interval")
}

func TestProgressTracker_NilWriter(t *testing.T) {
	tracker := NewProgressTracker(nil, "listings", 0, 0)
	assert.NotPanics(t, func() {
		tracker.Start()
		tracker.Add(1)
		tracker.Finish()
	})
}
