package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/afero"

	"github.com/moyu-x/mediastamp/internal"
	"github.com/moyu-x/mediastamp/pkg/dispatch"
	"github.com/moyu-x/mediastamp/pkg/exiftool"
	"github.com/moyu-x/mediastamp/pkg/pattern"
)

type UpdateOptions struct {
	Directories []string
	Workers     string // 百分比或 all
	Jobs        int    // 显式 worker 数量，优先于 Workers
	Verbose     bool
	Recursive   bool
	Extensions  []string
	Sniff       bool
	ToolPath    string
	DryRun      bool
	Verify      bool
	PatternFile string
	Pivot       int
	JournalPath string
	Resume      bool
	Quarantine  string
	LogLevel    string
	LogFile     string

	Fs     afero.Fs        // 默认为真实文件系统
	Writer exiftool.Writer // 默认按 ToolPath/DryRun 构造
	Output io.Writer       // 进度输出，默认 stdout
	LogOut io.Writer       // 控制台日志，默认进度条模式下为 stderr
	Cores  int             // 默认 runtime.NumCPU()
}

func DefaultUpdateOptions() *UpdateOptions {
	return &UpdateOptions{
		Workers:    fmt.Sprint(internal.DefaultWorkerPercent),
		Extensions: internal.DefaultExtensions,
		ToolPath:   internal.DefaultToolPath,
		Pivot:      internal.DefaultCenturyPivot,
		LogLevel:   "info",
	}
}

// console 进度条独占 stdout，控制台日志改写到 stderr
func (o *UpdateOptions) console() io.Writer {
	if o.LogOut != nil {
		return o.LogOut
	}
	if o.Verbose {
		return os.Stdout
	}
	return os.Stderr
}

// SplitDirs 支持逗号分隔的目录参数
func SplitDirs(args []string) []string {
	var dirs []string
	for _, arg := range args {
		for _, d := range strings.Split(arg, ",") {
			if d = strings.TrimSpace(d); d != "" {
				dirs = append(dirs, d)
			}
		}
	}
	return dirs
}

// PoolConfig 合并 Workers 与 Jobs
func (o *UpdateOptions) PoolConfig() (dispatch.PoolConfig, error) {
	pc, err := dispatch.ParsePoolConfig(o.Workers)
	if err != nil {
		return dispatch.PoolConfig{}, err
	}
	pc.Count = o.Jobs
	return pc, nil
}

// Validate 在开始处理前检查所有参数
func (o *UpdateOptions) Validate() error {
	o.Directories = SplitDirs(o.Directories)
	if len(o.Directories) == 0 {
		return errors.New("至少需要一个目录")
	}
	if o.Jobs < 0 {
		return fmt.Errorf("worker 数量不能为负数: %d", o.Jobs)
	}
	if _, err := o.PoolConfig(); err != nil {
		return err
	}
	if o.Pivot < 0 || o.Pivot > 100 {
		return fmt.Errorf("世纪分界必须在 0-100 之间: %d", o.Pivot)
	}
	if o.Resume && o.JournalPath == "" {
		return errors.New("--resume 需要同时指定 --journal")
	}
	if o.Writer == nil && !o.DryRun && o.ToolPath == "" {
		return errors.New("未指定元数据工具路径")
	}
	return nil
}

// buildRegistry 内置规则加上可选的规则文件
func buildRegistry(file string, pivot int) (*pattern.Registry, error) {
	opts := []pattern.Option{pattern.WithPivot(pivot)}
	if file != "" {
		entries, err := pattern.LoadFile(file)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pattern.WithExtra(entries...))
	}
	return pattern.NewRegistry(opts...)
}
