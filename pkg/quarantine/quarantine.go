package quarantine

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/moyu-x/mediastamp/pkg/logger"
)

const (
	BucketRIFF   = "riff"
	BucketFailed = "failed"
)

// Mover 把处理失败的文件移到隔离目录 <root>/<bucket>/ 下
type Mover struct {
	fs   afero.Fs
	root string
	mu   sync.Mutex // 保证同名文件的重命名不冲突
}

func New(fs afero.Fs, root string) *Mover {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Mover{fs: fs, root: root}
}

func (m *Mover) Root() string {
	return m.root
}

// Dirs 返回所有隔离目录，扫描时需要排除
func (m *Mover) Dirs() []string {
	return []string{filepath.Join(m.root, BucketRIFF), filepath.Join(m.root, BucketFailed)}
}

// Move 移动文件并返回新路径，目标已存在时追加 _1、_2 …
func (m *Mover) Move(path, bucket string) (string, error) {
	dir := filepath.Join(m.root, bucket)
	if err := m.fs.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("创建隔离目录失败: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	dst, err := m.target(dir, filepath.Base(path))
	if err != nil {
		return "", err
	}
	if err := m.moveFile(path, dst); err != nil {
		return "", fmt.Errorf("移动文件失败: %w", err)
	}

	logger.Get().Debug().
		Str("source", path).
		Str("destination", dst).
		Str("bucket", bucket).
		Msg("文件已隔离")
	return dst, nil
}

func (m *Mover) target(dir, name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	dst := filepath.Join(dir, name)
	for i := 1; ; i++ {
		exists, err := afero.Exists(m.fs, dst)
		if err != nil {
			return "", fmt.Errorf("检查文件是否存在失败: %w", err)
		}
		if !exists {
			return dst, nil
		}
		dst = filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, i, ext))
	}
}

// moveFile 优先 rename，跨卷时复制后删除
func (m *Mover) moveFile(src, dst string) error {
	err := m.fs.Rename(src, dst)
	if err == nil {
		return nil
	}
	logger.Get().Debug().
		Err(err).
		Str("source", src).
		Str("destination", dst).
		Msg("直接重命名失败，尝试复制后删除")

	sourceFile, err := m.fs.Open(src)
	if err != nil {
		return fmt.Errorf("打开源文件失败: %w", err)
	}
	defer sourceFile.Close()

	destFile, err := m.fs.Create(dst)
	if err != nil {
		return fmt.Errorf("创建目标文件失败: %w", err)
	}

	if _, err = io.Copy(destFile, sourceFile); err != nil {
		destFile.Close()
		m.fs.Remove(dst)
		return fmt.Errorf("复制文件内容失败: %w", err)
	}
	if err := destFile.Close(); err != nil {
		return fmt.Errorf("写入目标文件失败: %w", err)
	}

	if err := m.fs.Remove(src); err != nil {
		return fmt.Errorf("删除原文件失败: %w", err)
	}
	return nil
}
