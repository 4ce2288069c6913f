package app

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/afero"

	"github.com/moyu-x/mediastamp/internal"
	"github.com/moyu-x/mediastamp/pkg/dispatch"
	"github.com/moyu-x/mediastamp/pkg/exiftool"
	"github.com/moyu-x/mediastamp/pkg/hasher"
	"github.com/moyu-x/mediastamp/pkg/journal"
	"github.com/moyu-x/mediastamp/pkg/logger"
	"github.com/moyu-x/mediastamp/pkg/quarantine"
	"github.com/moyu-x/mediastamp/pkg/report"
	"github.com/moyu-x/mediastamp/pkg/scanner"
	"github.com/moyu-x/mediastamp/pkg/verify"
)

// RunUpdate 扫描目录并把文件名中的时间写入元数据。
// 只有启动阶段的错误会返回 error，单个文件的失败体现在统计中。
func RunUpdate(ctx context.Context, opts *UpdateOptions) (*internal.Summary, error) {
	if err := logger.InitWithConsole(opts.LogLevel, opts.LogFile, opts.console()); err != nil {
		return nil, err
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	logger.Get().Info().Msgf("扫描目录数: %d", len(opts.Directories))
	for i, dir := range opts.Directories {
		logger.Get().Info().Msgf("  [%d] %s", i+1, dir)
	}

	registry, err := buildRegistry(opts.PatternFile, opts.Pivot)
	if err != nil {
		return nil, err
	}
	logger.Get().Debug().Msgf("文件名规则: %v", registry.Patterns())

	pc, err := opts.PoolConfig()
	if err != nil {
		return nil, err
	}
	cores := opts.Cores
	if cores == 0 {
		cores = runtime.NumCPU()
	}
	workers, err := pc.Resolve(cores)
	if err != nil {
		return nil, err
	}
	logger.Get().Info().Msgf("使用 %d 个 worker（共 %d 个 CPU 线程，配置 %s）", workers, cores, pc)

	writer, err := newWriter(opts)
	if err != nil {
		return nil, err
	}

	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	var mover *quarantine.Mover
	if opts.Quarantine != "" && !opts.DryRun {
		mover = quarantine.New(fs, opts.Quarantine)
	}

	scanOpts := scanner.Options{
		Recursive:  opts.Recursive,
		Extensions: opts.Extensions,
		Sniff:      opts.Sniff,
	}
	if mover != nil {
		scanOpts.Exclude = mover.Dirs()
	}
	files, scanStats, err := scanner.New(fs, scanOpts).Scan(opts.Directories)
	if err != nil {
		return nil, err
	}

	summary := internal.Summary{
		Total:       len(files),
		SkippedDirs: scanStats.SkippedDirs,
		StartTime:   time.Now(),
	}

	dispatchOpts := []dispatch.Option{dispatch.WithFs(fs)}
	if opts.Verify && !opts.DryRun {
		dispatchOpts = append(dispatchOpts, dispatch.WithVerifier(verify.New(fs)))
	}
	if mover != nil {
		dispatchOpts = append(dispatchOpts, dispatch.WithQuarantine(mover))
	}

	var recorder report.Recorder
	if opts.JournalPath != "" {
		j, err := journal.Open(opts.JournalPath)
		if err != nil {
			return nil, err
		}
		defer j.Close()

		h := hasher.New(fs)
		if opts.Resume {
			files, summary.Skipped, err = j.Filter(files, h)
			if err != nil {
				return nil, err
			}
		}
		if _, err := j.Begin(opts.Directories, workers, opts.DryRun); err != nil {
			return nil, err
		}
		defer func() {
			if err := j.Finish(summary); err != nil {
				logger.Get().Warn().Err(err).Msg("更新运行记录失败")
			}
		}()

		dispatchOpts = append(dispatchOpts, dispatch.WithHasher(h))
		recorder = j
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	reporter := report.New(out, opts.Verbose)

	d := dispatch.New(workers, registry, writer, dispatchOpts...)
	reporter.Start(len(files))
	report.NewCollector(reporter, recorder).Drain(d.Run(ctx, files), &summary)

	summary.EndTime = time.Now()
	summary.Cancelled = summary.Processed() < len(files)
	reporter.Finish(summary)

	logger.Get().Info().Msgf("处理完成: %s", summary.Counts())
	return &summary, nil
}

func newWriter(opts *UpdateOptions) (exiftool.Writer, error) {
	if opts.Writer != nil {
		return opts.Writer, nil
	}
	if opts.DryRun {
		return exiftool.DryRun{}, nil
	}
	path, err := exiftool.LookPath(opts.ToolPath)
	if err != nil {
		return nil, fmt.Errorf("元数据工具不可用: %w", err)
	}
	return exiftool.New(path), nil
}
