package progress

import (
	"io"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// Bars draws indicators as terminal progress bars.
type Bars struct {
	p *mpb.Progress
}

func NewBars(w io.Writer) *Bars {
	return &Bars{p: mpb.New(
		mpb.WithOutput(w),
		mpb.WithRefreshRate(120*time.Millisecond),
	)}
}

func (b *Bars) Add(label string, total int64) Indicator {
	bar := b.p.New(0,
		mpb.BarStyle().Lbound(" ").Filler("━").Tip("╸").Padding(" ").Rbound(" "),
		mpb.BarWidth(40),
		mpb.PrependDecorators(
			decor.Name(label),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WC{W: 6}),
			decor.Name(" • "),
			decor.Elapsed(decor.ET_STYLE_HHMMSS),
			decor.Name(" • "),
			decor.AverageETA(decor.ET_STYLE_HHMMSS),
		),
	)
	// A bar created with zero total never completes on its own; it stays
	// until the work unit ends and Reset aborts it.
	bar.SetTotal(total, false)
	return bar
}

// Write prints p above the bars at the next refresh.
func (b *Bars) Write(p []byte) (int, error) { return b.p.Write(p) }

func (b *Bars) Wait() { b.p.Wait() }
