package transfer

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// progressInterval throttles redraws so slow terminals are not flooded.
const progressInterval = 100 * time.Millisecond

// Progress renders a transfer progress indicator to a terminal. It is a
// no-op when the destination is not an interactive terminal or when the
// caller disabled it, and its absence never affects transfer correctness.
type Progress struct {
	w        io.Writer
	label    string
	total    int64 // <= 0 when the total length is unknown
	n        int64
	enabled  bool
	lastDraw time.Time
	drew     bool
}

// NewProgress returns a progress indicator writing to w. The indicator is
// disabled when quiet is set or w is not an interactive terminal.
func NewProgress(w io.Writer, label string, total int64, quiet bool) *Progress {
	return &Progress{
		w:       w,
		label:   label,
		total:   total,
		enabled: !quiet && isTerminal(w),
	}
}

// Add records n more transferred bytes and redraws the indicator.
func (p *Progress) Add(n int) {
	p.n += int64(n)
	if !p.enabled {
		return
	}
	if now := time.Now(); now.Sub(p.lastDraw) >= progressInterval {
		p.draw()
		p.lastDraw = now
	}
}

// Done finishes the indicator line. Safe to call more than once.
func (p *Progress) Done() {
	if !p.enabled {
		return
	}
	p.draw()
	if p.drew {
		fmt.Fprintln(p.w)
		p.drew = false
		p.enabled = false
	}
}

func (p *Progress) draw() {
	if p.total > 0 {
		pct := float64(p.n) / float64(p.total) * 100
		fmt.Fprintf(p.w, "\r%s %s / %s (%.0f%%)",
			p.label, formatSize(p.n), formatSize(p.total), pct)
	} else {
		fmt.Fprintf(p.w, "\r%s %s", p.label, formatSize(p.n))
	}
	p.drew = true
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// formatSize formats a byte count into a human-readable string.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	s := fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
	return strings.TrimSpace(s)
}
