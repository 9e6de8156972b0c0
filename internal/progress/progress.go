// Package progress renders transfer progress on a terminal.
package progress

import (
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// Percent returns loaded/total as a rounded integer percentage in 0..100.
// An empty transfer counts as complete.
func Percent(loaded, total int64) int {
	if total <= 0 {
		return 100
	}
	p := math.Round(float64(loaded) * 100 / float64(total))
	return int(math.Max(0, math.Min(100, p)))
}

// Bar is a single-line progress bar redrawn in place with \r.
type Bar struct {
	mu     sync.Mutex
	w      io.Writer
	width  int
	start  time.Time
	now    func() time.Time
	drawn  bool
	lastPc int
}

func NewBar(w io.Writer) *Bar {
	return &Bar{w: w, width: 30, start: time.Now(), now: time.Now, lastPc: -1}
}

// Update redraws the bar for name. Redraws that would not change the
// percentage are skipped, except the final one.
func (b *Bar) Update(name string, loaded, total int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pc := Percent(loaded, total)
	if pc == b.lastPc && loaded != total {
		return
	}
	b.lastPc = pc

	filled := b.width * pc / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", b.width-filled)

	var speed uint64
	if elapsed := b.now().Sub(b.start).Seconds(); elapsed > 0 {
		speed = uint64(float64(loaded) / elapsed)
	}
	if runes := []rune(name); len(runes) > 25 {
		name = "..." + string(runes[len(runes)-22:])
	}
	fmt.Fprintf(b.w, "\r%s [%s] %s/%s (%d%%) %s/s",
		name, bar, humanize.Bytes(uint64(max(loaded, 0))), humanize.Bytes(uint64(max(total, 0))), pc, humanize.Bytes(speed))
	b.drawn = true
}

// Finish ends the bar line.
func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.drawn {
		fmt.Fprintln(b.w)
		b.drawn = false
	}
}
