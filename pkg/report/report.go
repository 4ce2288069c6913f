package report

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/rs/zerolog"

	"github.com/moyu-x/mediastamp/internal"
	"github.com/moyu-x/mediastamp/pkg/exiftool"
)

// Reporter 展示处理进度，启动时选定一种实现
type Reporter interface {
	Start(total int)
	Report(o internal.Outcome)
	Finish(s internal.Summary)
}

// Compact 单行进度条，用回车刷新
type Compact struct {
	w     io.Writer
	mu    sync.Mutex
	bar   progress.Model
	total int
	done  int
}

func NewCompact(w io.Writer) *Compact {
	return &Compact{
		w:   w,
		bar: progress.New(progress.WithWidth(40), progress.WithoutPercentage(), progress.WithSolidFill("#7D56F4")),
	}
}

func (c *Compact) Start(total int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total = total
	c.done = 0
	c.render()
}

func (c *Compact) Report(o internal.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.done++
	c.render()
}

func (c *Compact) Finish(s internal.Summary) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.w, "\n%s\n", s.String())
}

// Processed 已报告的结果数
func (c *Compact) Processed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

func (c *Compact) render() {
	if c.total == 0 {
		return
	}
	pct := float64(c.done) / float64(c.total)
	fmt.Fprintf(c.w, "\r处理中 %s %d/%d (%.1f%%)", c.bar.ViewAs(pct), c.done, c.total, pct*100)
}

// Verbose 每个结果一行结构化日志，不显示进度条
type Verbose struct {
	w     io.Writer
	mu    sync.Mutex
	log   zerolog.Logger
	total int
	done  int
}

func NewVerbose(w io.Writer) *Verbose {
	return &Verbose{
		w:   w,
		log: zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: "15:04:05"}).With().Timestamp().Logger(),
	}
}

func (v *Verbose) Start(total int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.total = total
	v.done = 0
	v.log.Info().Int("total", total).Msg("开始处理")
}

func (v *Verbose) Report(o internal.Outcome) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.done++

	var e *zerolog.Event
	switch o.Kind {
	case internal.KindUpdated:
		e = v.log.Info()
	case internal.KindNoPatternMatch:
		e = v.log.Warn()
	default:
		e = v.log.Error()
	}

	e = e.Str("progress", fmt.Sprintf("%d/%d", v.done, v.total)).Str("file", o.File.Path)
	if o.Pattern != "" {
		e = e.Str("pattern", o.Pattern).Str("timestamp", exiftool.FormatTimestamp(o.Timestamp))
	}
	if o.Suffix != "" {
		e = e.Str("suffix", o.Suffix)
	}
	if o.Verified {
		e = e.Bool("verified", true)
	}
	if o.Reason != "" {
		e = e.Str("reason", o.Reason)
	}
	if o.MovedTo != "" {
		e = e.Str("moved_to", o.MovedTo)
	}
	e.Dur("took", o.Duration).Msg(o.Kind.String())
}

func (v *Verbose) Finish(s internal.Summary) {
	v.mu.Lock()
	defer v.mu.Unlock()

	fmt.Fprintln(v.w, s.String())
}

func (v *Verbose) Processed() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.done
}

// New 按模式选择 Reporter
func New(w io.Writer, verbose bool) Reporter {
	if verbose {
		return NewVerbose(w)
	}
	return NewCompact(w)
}
