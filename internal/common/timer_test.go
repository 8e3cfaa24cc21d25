package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStageTimer(t *testing.T) {
	timer := NewStageTimer("ocr")
	assert.Equal(t, "ocr", timer.Name())

	// Sleep for a short duration
	time.Sleep(10 * time.Millisecond)

	timer.Stop()
	assert.GreaterOrEqual(t, timer.Duration(), 10*time.Millisecond)

	str := timer.String()
	assert.Contains(t, str, "ocr")
	assert.Contains(t, str, "ms")
}

func TestStageTimings(t *testing.T) {
	timings := StageTimings{}
	timings.Record(&StageTimer{name: "load", duration: 5 * time.Millisecond})
	timings.Record(&StageTimer{name: "redact", duration: 7 * time.Millisecond})

	assert.Equal(t, 5*time.Millisecond, timings["load"])
	assert.Equal(t, 12*time.Millisecond, timings.Total())
	assert.Contains(t, timings.String(), "redact: 7ms")
}
