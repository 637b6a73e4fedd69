package worker

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const barWidth = 30

// Progress renders a single-line progress bar for a batch of work.
type Progress struct {
	startTime time.Time
	output    io.Writer
	unit      string
	total     int
	completed int
	failed    int
	mu        sync.RWMutex
	enabled   bool
}

// NewProgress creates a tracker writing to stderr. unit labels the counted
// items ("tiles", "rows"); empty means "tiles".
func NewProgress(total int, unit string, enabled bool) *Progress {
	if unit == "" {
		unit = "tiles"
	}
	return &Progress{
		total:     total,
		unit:      unit,
		startTime: time.Now(),
		output:    os.Stderr,
		enabled:   enabled,
	}
}

// Update records progress and redraws when enabled.
func (p *Progress) Update(completed, total, failed int) {
	p.mu.Lock()
	p.completed = completed
	p.total = total
	p.failed = failed
	p.mu.Unlock()

	if p.enabled {
		p.Print()
	}
}

// Callback adapts the tracker to Config.OnProgress.
func (p *Progress) Callback() ProgressFunc {
	return p.Update
}

type snapshot struct {
	completed, total, failed int
	elapsed                  time.Duration
}

func (p *Progress) snapshot() snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return snapshot{
		completed: p.completed,
		total:     p.total,
		failed:    p.failed,
		elapsed:   time.Since(p.startTime),
	}
}

func (s snapshot) rate() float64 {
	if s.elapsed <= 0 {
		return 0
	}
	return float64(s.completed) / s.elapsed.Seconds()
}

func bar(completed, total int) string {
	filled := 0
	if total > 0 {
		filled = completed * barWidth / total
	}
	if filled > barWidth {
		filled = barWidth
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

// Print writes the current state as a carriage-return line.
func (p *Progress) Print() {
	s := p.snapshot()
	rate := s.rate()

	var b strings.Builder
	fmt.Fprintf(&b, "\r[%s] %d/%d %s", bar(s.completed, s.total), s.completed, s.total, p.unit)
	if s.failed > 0 {
		fmt.Fprintf(&b, " (%d failed)", s.failed)
	}
	fmt.Fprintf(&b, " - %.1f %s/sec", rate, p.unit)
	switch {
	case s.completed >= s.total:
		fmt.Fprintf(&b, " - Done in %s", formatDuration(s.elapsed))
	case rate > 0:
		eta := time.Duration(float64(s.total-s.completed) / rate * float64(time.Second))
		fmt.Fprintf(&b, " - ETA: %s", formatDuration(eta))
	}
	// Clear leftovers from a longer previous line.
	b.WriteString("          ")

	fmt.Fprint(p.output, b.String())
}

// Done prints the final state followed by a newline.
func (p *Progress) Done() {
	if p.enabled {
		p.Print()
		fmt.Fprintln(p.output)
	}
}

// Summary describes the finished batch.
func (p *Progress) Summary() string {
	s := p.snapshot()
	return fmt.Sprintf("Rendered %d/%d %s (%d failed) in %s (%.1f %s/sec)",
		s.completed-s.failed, s.total, p.unit, s.failed, formatDuration(s.elapsed), s.rate(), p.unit)
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
