package worker

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Progress renders a single-line progress bar for long batch jobs such as
// tile prefetching. Disabled instances swallow all output.
type Progress struct {
	start   time.Time
	output  io.Writer
	total   int
	done    int
	failed  int
	mu      sync.Mutex
	enabled bool
}

// NewProgress creates a progress bar over total units of work.
func NewProgress(total int, enabled bool) *Progress {
	return &Progress{
		total:   total,
		start:   time.Now(),
		output:  os.Stderr,
		enabled: enabled,
	}
}

// Observe pulls the current counters from a worker and redraws.
func (p *Progress) Observe(w *Worker) {
	p.Update(int(w.Completed()+w.Failed()), int(w.Failed()))
}

// Update records progress and redraws the bar.
func (p *Progress) Update(done, failed int) {
	p.mu.Lock()
	p.done = done
	p.failed = failed
	p.mu.Unlock()

	if p.enabled {
		p.print()
	}
}

func (p *Progress) print() {
	p.mu.Lock()
	done, total, failed, start := p.done, p.total, p.failed, p.start
	p.mu.Unlock()

	elapsed := time.Since(start)
	var rate float64
	if done > 0 {
		rate = float64(done) / elapsed.Seconds()
	}

	const barWidth = 30
	filled := 0
	if total > 0 {
		filled = done * barWidth / total
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	line := fmt.Sprintf("\r[%s] %d/%d", bar, done, total)
	if failed > 0 {
		line += fmt.Sprintf(" (%d failed)", failed)
	}
	line += fmt.Sprintf(" - %.1f/sec", rate)
	if done < total && rate > 0 {
		eta := time.Duration(float64(total-done)/rate) * time.Second
		line += " - ETA: " + formatDuration(eta)
	}
	line += "          "

	fmt.Fprint(p.output, line)
}

// Done finishes the bar with a newline.
func (p *Progress) Done() {
	if p.enabled {
		p.print()
		fmt.Fprintln(p.output)
	}
}

// Summary returns a one-line report of the batch.
func (p *Progress) Summary() string {
	p.mu.Lock()
	done, total, failed, start := p.done, p.total, p.failed, p.start
	p.mu.Unlock()

	elapsed := time.Since(start)
	var rate float64
	if elapsed.Seconds() > 0 {
		rate = float64(done) / elapsed.Seconds()
	}
	return fmt.Sprintf("%d/%d completed (%d failed) in %s (%.1f/sec)",
		done-failed, total, failed, formatDuration(elapsed), rate)
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%.0fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
