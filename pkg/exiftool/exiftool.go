package exiftool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/moyu-x/mediastamp/pkg/logger"
)

// Layout exiftool 日期字段的格式
const Layout = "2006:01:02 15:04:05"

const riffDiagnostic = "looks more like a RIFF"

// Writer 把时间写入文件元数据
type Writer interface {
	Write(ctx context.Context, path string, t time.Time) error
}

// WriteError 外部工具写入失败，ExitCode 为 -1 表示进程没有启动
type WriteError struct {
	Path     string
	ExitCode int
	Reason   string
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("写入元数据失败 (exit %d): %s", e.ExitCode, e.Reason)
}

// IsRIFF 判断失败原因是否为 "Not a valid JPG (looks more like a RIFF)"
func IsRIFF(err error) bool {
	var we *WriteError
	if !errors.As(err, &we) {
		return false
	}
	return strings.Contains(we.Reason, riffDiagnostic)
}

func FormatTimestamp(t time.Time) string {
	return t.Format(Layout)
}

func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.ParseInLocation(Layout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("时间格式无效 %q: %w", s, err)
	}
	return t, nil
}

// Args 返回一次写入的完整参数
func Args(path string, t time.Time) []string {
	ts := FormatTimestamp(t)
	return []string{
		"-overwrite_original",
		"-DateTimeOriginal=" + ts,
		"-AllDates=" + ts,
		"-CreationTime=" + ts,
		"-ModifyDate=" + ts,
		path,
	}
}

// Tool 通过 exiftool 子进程写入
type Tool struct {
	Path string
}

func New(path string) *Tool {
	return &Tool{Path: path}
}

// LookPath 检查工具是否可执行，返回解析后的路径
func LookPath(path string) (string, error) {
	resolved, err := exec.LookPath(path)
	if err != nil {
		return "", fmt.Errorf("找不到元数据工具 %s: %w", path, err)
	}
	return resolved, nil
}

// Write 运行一次 exiftool。进程不绑定 ctx，已经开始的写入总会完成
func (t *Tool) Write(ctx context.Context, path string, ts time.Time) error {
	if err := ctx.Err(); err != nil {
		return &WriteError{Path: path, ExitCode: -1, Reason: err.Error()}
	}

	cmd := exec.Command(t.Path, Args(path, ts)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Get().Debug().Msgf("写入元数据: %s -> %s", path, FormatTimestamp(ts))

	err := cmd.Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return &WriteError{Path: path, ExitCode: -1, Reason: err.Error()}
	}

	reason := strings.TrimSpace(stderr.String())
	if reason == "" {
		reason = strings.TrimSpace(stdout.String())
	}
	if reason == "" {
		reason = exitErr.Error()
	}
	return &WriteError{Path: path, ExitCode: exitErr.ExitCode(), Reason: reason}
}

// DryRun 只记录将要执行的写入
type DryRun struct{}

func (DryRun) Write(ctx context.Context, path string, ts time.Time) error {
	logger.Get().Debug().Msgf("[dry-run] %s -> %s", path, FormatTimestamp(ts))
	return nil
}

// Func 把普通函数适配为 Writer
type Func func(ctx context.Context, path string, t time.Time) error

func (f Func) Write(ctx context.Context, path string, t time.Time) error {
	return f(ctx, path, t)
}
