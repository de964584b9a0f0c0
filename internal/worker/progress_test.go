package worker

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressOutput(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(10, true)
	p.output = &buf

	p.Update(4, 1)
	out := buf.String()
	assert.Contains(t, out, "4/10")
	assert.Contains(t, out, "(1 failed)")

	buf.Reset()
	p.Update(10, 1)
	p.Done()
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
}

func TestProgressDisabled(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(10, false)
	p.output = &buf

	p.Update(5, 0)
	p.Done()
	assert.Empty(t, buf.String())
}

func TestProgressSummary(t *testing.T) {
	p := NewProgress(8, false)
	p.Update(8, 2)
	s := p.Summary()
	assert.Contains(t, s, "6/8 completed")
	assert.Contains(t, s, "(2 failed)")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "45s", formatDuration(45*time.Second))
	assert.Equal(t, "2m5s", formatDuration(2*time.Minute+5*time.Second))
	assert.Equal(t, "1h30m", formatDuration(90*time.Minute))
}
