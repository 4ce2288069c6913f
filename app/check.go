package app

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/afero"

	"github.com/moyu-x/mediastamp/internal"
	"github.com/moyu-x/mediastamp/pkg/logger"
	"github.com/moyu-x/mediastamp/pkg/pattern"
	"github.com/moyu-x/mediastamp/pkg/scanner"
)

type CheckOptions struct {
	Directories []string
	Recursive   bool
	Extensions  []string
	Sniff       bool
	PatternFile string
	Pivot       int
	LogLevel    string
	LogFile     string

	Fs afero.Fs
}

func DefaultCheckOptions() *CheckOptions {
	return &CheckOptions{
		Extensions: internal.DefaultExtensions,
		Pivot:      internal.DefaultCenturyPivot,
		LogLevel:   "info",
	}
}

// CheckResult 单个文件的识别结果，不涉及写入
type CheckResult struct {
	Path      string
	Name      string
	Matched   bool
	Pattern   string
	Timestamp pattern.Timestamp
}

type CheckReport struct {
	Directories []string
	Patterns    []string // 按优先级
	Results     []CheckResult
	Matched     int
	Unmatched   int
	ByPattern   map[string]int
	SkippedDirs int
}

// RunCheck 初始化日志后执行 Classify
func RunCheck(opts *CheckOptions) (*CheckReport, error) {
	if err := logger.Init(opts.LogLevel, opts.LogFile); err != nil {
		return nil, err
	}
	return Classify(opts)
}

// Classify 只读地用规则表识别所有候选文件名
func Classify(opts *CheckOptions) (*CheckReport, error) {
	dirs := SplitDirs(opts.Directories)
	if len(dirs) == 0 {
		return nil, errors.New("至少需要一个目录")
	}

	registry, err := buildRegistry(opts.PatternFile, opts.Pivot)
	if err != nil {
		return nil, err
	}

	files, stats, err := scanner.New(opts.Fs, scanner.Options{
		Recursive:  opts.Recursive,
		Extensions: opts.Extensions,
		Sniff:      opts.Sniff,
	}).Scan(dirs)
	if err != nil {
		return nil, err
	}

	r := &CheckReport{
		Directories: dirs,
		Patterns:    registry.Patterns(),
		Results:     make([]CheckResult, 0, len(files)),
		ByPattern:   make(map[string]int),
		SkippedDirs: stats.SkippedDirs,
	}

	for _, f := range files {
		res := CheckResult{Path: f.Path, Name: filepath.Base(f.Path)}
		if name, ts, ok := registry.Classify(f.Base); ok {
			res.Matched = true
			res.Pattern = name
			res.Timestamp = ts
			r.Matched++
			r.ByPattern[name]++
		} else {
			r.Unmatched++
		}
		r.Results = append(r.Results, res)
	}

	logger.Get().Info().Msgf("识别完成：匹配 %d 个，未匹配 %d 个", r.Matched, r.Unmatched)
	return r, nil
}

func (r *CheckReport) Total() int {
	return r.Matched + r.Unmatched
}

func (r *CheckReport) MatchedResults() []CheckResult {
	return r.filter(true)
}

func (r *CheckReport) UnmatchedResults() []CheckResult {
	return r.filter(false)
}

func (r *CheckReport) filter(matched bool) []CheckResult {
	var out []CheckResult
	for _, res := range r.Results {
		if res.Matched == matched {
			out = append(out, res)
		}
	}
	return out
}

func (r *CheckReport) String() string {
	var b strings.Builder

	b.WriteString("========== 识别统计 ==========\n")
	b.WriteString(fmt.Sprintf("文件总数: %d\n", r.Total()))
	b.WriteString(fmt.Sprintf("已匹配: %d\n", r.Matched))
	for _, name := range r.Patterns {
		if n := r.ByPattern[name]; n > 0 {
			b.WriteString(fmt.Sprintf("  %s: %d\n", name, n))
		}
	}
	b.WriteString(fmt.Sprintf("未匹配: %d\n", r.Unmatched))
	if r.SkippedDirs > 0 {
		b.WriteString(fmt.Sprintf("跳过目录: %d\n", r.SkippedDirs))
	}
	b.WriteString("============================")

	return b.String()
}

// WriteTable 以表格输出每个文件的识别结果
func (r *CheckReport) WriteTable(w io.Writer) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("文件", "规则", "时间", "标识")

	for _, res := range r.Results {
		if !res.Matched {
			t.Row(res.Name, "-", "-", "-")
			continue
		}
		ts := res.Timestamp
		ts.Suffix = ""
		t.Row(res.Name, res.Pattern, ts.String(), res.Timestamp.Suffix)
	}

	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, r.String())
	return err
}
