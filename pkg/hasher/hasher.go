package hasher

import (
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"

	"github.com/moyu-x/mediastamp/pkg/logger"
)

// Hasher 计算文件内容指纹，用于判断写入后的文件是否被改动过
type Hasher struct {
	fs afero.Fs
}

func New(fs afero.Fs) *Hasher {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Hasher{fs: fs}
}

func (h *Hasher) Sum(path string) (uint64, error) {
	logger.Get().Debug().Msgf("计算文件指纹: %s", path)

	file, err := h.fs.Open(path)
	if err != nil {
		return 0, fmt.Errorf("无法打开文件 %s: %w", path, err)
	}
	defer file.Close()

	d := xxhash.New()
	if _, err := io.Copy(d, file); err != nil {
		return 0, fmt.Errorf("计算指纹失败 %s: %w", path, err)
	}

	result := d.Sum64()
	logger.Get().Trace().Msgf("文件指纹计算完成: %s -> %x", path, result)
	return result, nil
}

// Format 指纹的文本形式，固定 16 位十六进制
func Format(sum uint64) string {
	return fmt.Sprintf("%016x", sum)
}
