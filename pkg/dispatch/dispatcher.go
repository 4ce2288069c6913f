package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/spf13/afero"

	"github.com/moyu-x/mediastamp/internal"
	"github.com/moyu-x/mediastamp/pkg/exiftool"
	"github.com/moyu-x/mediastamp/pkg/logger"
	"github.com/moyu-x/mediastamp/pkg/pattern"
	"github.com/moyu-x/mediastamp/pkg/quarantine"
	"github.com/moyu-x/mediastamp/pkg/verify"
)

const reasonNoMatch = "no pattern matched"

type Verifier interface {
	Verify(path string, want time.Time) error
}

type Hasher interface {
	Sum(path string) (uint64, error)
}

type Mover interface {
	Move(path, bucket string) (string, error)
}

// Dispatcher 把候选文件分发到固定大小的 goroutine 池
type Dispatcher struct {
	workers  int
	registry *pattern.Registry
	writer   exiftool.Writer
	fs       afero.Fs
	verifier Verifier
	hasher   Hasher
	mover    Mover
}

type Option func(*Dispatcher)

func WithFs(fs afero.Fs) Option {
	return func(d *Dispatcher) { d.fs = fs }
}

// WithVerifier 写入后回读确认
func WithVerifier(v Verifier) Option {
	return func(d *Dispatcher) { d.verifier = v }
}

// WithHasher 写入成功后计算内容指纹
func WithHasher(h Hasher) Option {
	return func(d *Dispatcher) { d.hasher = h }
}

// WithQuarantine 失败的文件移入隔离目录
func WithQuarantine(m Mover) Option {
	return func(d *Dispatcher) { d.mover = m }
}

func New(workers int, registry *pattern.Registry, writer exiftool.Writer, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		workers:  max(1, workers),
		registry: registry,
		writer:   writer,
		fs:       afero.NewOsFs(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Workers() int {
	return d.workers
}

// Run 处理全部文件，每个已提交的文件恰好产生一个结果。
// ctx 取消后不再提交新文件，正在运行的任务会执行完；所有任务结束后关闭通道。
func (d *Dispatcher) Run(ctx context.Context, files []internal.CandidateFile) <-chan internal.Outcome {
	out := make(chan internal.Outcome, min(max(len(files), 1), internal.DefaultBufferSize))

	go func() {
		defer close(out)

		logger.Get().Debug().Msgf("启动处理池，工作线程数: %d，文件数: %d", d.workers, len(files))

		pool, err := ants.NewPool(d.workers)
		if err != nil {
			logger.Get().Error().Err(err).Msg("创建 goroutine 池失败")
			for _, f := range files {
				out <- scanError(f, err)
			}
			return
		}
		defer pool.Release()

		// 已开始的写入不随 ctx 取消
		taskCtx := context.WithoutCancel(ctx)

		// 令牌数等于池容量，等待空闲 worker 时也能响应取消
		slots := make(chan struct{}, d.workers)

		var wg sync.WaitGroup
		submitted := 0
	submit:
		for _, f := range files {
			select {
			case <-ctx.Done():
				break submit
			case slots <- struct{}{}:
			}
			if ctx.Err() != nil {
				<-slots
				break
			}

			f := f // 每次迭代独立的副本（go 1.21 语义下 goroutine 捕获循环变量）
			wg.Add(1)
			err := pool.Submit(func() {
				defer wg.Done()
				defer func() { <-slots }()
				out <- d.safeProcess(taskCtx, f)
			})
			if err != nil {
				<-slots
				wg.Done()
				out <- scanError(f, err)
			}
			submitted++
		}

		wg.Wait()

		if submitted < len(files) {
			logger.Get().Warn().Msgf("处理被中断，已提交 %d/%d 个文件", submitted, len(files))
		}
	}()

	return out
}

func (d *Dispatcher) safeProcess(ctx context.Context, f internal.CandidateFile) (o internal.Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Get().Error().Msgf("处理文件时发生 panic: %s: %v", f.Path, r)
			o = scanError(f, fmt.Errorf("panic: %v", r))
		}
		o.Duration = time.Since(start)
	}()

	return d.process(ctx, f)
}

func (d *Dispatcher) process(ctx context.Context, f internal.CandidateFile) internal.Outcome {
	o := internal.Outcome{File: f}

	info, err := d.fs.Stat(f.Path)
	if err != nil {
		return scanError(f, err)
	}
	o.SizeBefore = info.Size()
	o.SizeAfter = o.SizeBefore

	ts, ok := d.registry.Resolve(f.Base)
	if !ok {
		o.Kind = internal.KindNoPatternMatch
		o.Reason = reasonNoMatch
		d.quarantine(&o, quarantine.BucketFailed)
		logger.Get().Debug().Msgf("未匹配任何规则: %s", f.Path)
		return o
	}
	o.Pattern = ts.Pattern
	o.Timestamp = ts.Time
	o.Suffix = ts.Suffix

	werr := d.writer.Write(ctx, f.Path, ts.Time)
	if after, err := d.fs.Stat(f.Path); err == nil {
		o.SizeAfter = after.Size()
	}

	if werr != nil {
		o.Kind = internal.KindWriteFailed
		o.Reason = reason(werr)
		bucket := quarantine.BucketFailed
		if exiftool.IsRIFF(werr) {
			bucket = quarantine.BucketRIFF
		}
		d.quarantine(&o, bucket)
		return o
	}
	o.Kind = internal.KindUpdated

	if d.verifier != nil {
		err := d.verifier.Verify(f.Path, ts.Time)
		switch {
		case err == nil:
			o.Verified = true
		case errors.Is(err, verify.ErrMismatch):
			o.Kind = internal.KindWriteFailed
			o.Reason = err.Error()
			d.quarantine(&o, quarantine.BucketFailed)
			return o
		case errors.Is(err, verify.ErrUnsupported):
		default:
			logger.Get().Warn().Err(err).Msgf("无法回读确认: %s", f.Path)
		}
	}

	if d.hasher != nil {
		sum, err := d.hasher.Sum(f.Path)
		if err != nil {
			logger.Get().Warn().Err(err).Msgf("计算指纹失败: %s", f.Path)
		} else {
			o.Hash = sum
		}
	}

	return o
}

func (d *Dispatcher) quarantine(o *internal.Outcome, bucket string) {
	if d.mover == nil {
		return
	}
	dst, err := d.mover.Move(o.File.Path, bucket)
	if err != nil {
		logger.Get().Warn().Err(err).Msgf("隔离文件失败: %s", o.File.Path)
		return
	}
	o.MovedTo = dst
}

func reason(err error) string {
	var we *exiftool.WriteError
	if errors.As(err, &we) {
		return we.Reason
	}
	return err.Error()
}

func scanError(f internal.CandidateFile, err error) internal.Outcome {
	return internal.Outcome{
		File:   f,
		Kind:   internal.KindScanError,
		Reason: err.Error(),
	}
}
