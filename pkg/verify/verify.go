package verify

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	mp4 "github.com/abema/go-mp4"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/spf13/afero"

	"github.com/moyu-x/mediastamp/pkg/exiftool"
)

// mp4 时间从 1904-01-01 起算
const mp4EpochOffset = 2082844800

var (
	ErrUnsupported = errors.New("不支持校验的文件类型")
	ErrMismatch    = errors.New("verification mismatch")
	ErrNoTimestamp = errors.New("文件中没有拍摄时间")
)

// Verifier 写入后回读文件内的时间，确认与文件名解析结果一致
type Verifier struct {
	fs afero.Fs
}

func New(fs afero.Fs) *Verifier {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Verifier{fs: fs}
}

// Supported 判断扩展名是否可以回读
func Supported(path string) bool {
	switch ext(path) {
	case "jpg", "jpeg", "mp4", "mov", "m4v":
		return true
	}
	return false
}

// Read 读取文件内记录的拍摄时间，按 UTC 墙上时间返回
func (v *Verifier) Read(path string) (time.Time, error) {
	switch ext(path) {
	case "jpg", "jpeg":
		return v.readExif(path)
	case "mp4", "mov", "m4v":
		return v.readMvhd(path)
	}
	return time.Time{}, ErrUnsupported
}

// Verify 比较文件内时间与期望值，精确到秒
func (v *Verifier) Verify(path string, want time.Time) error {
	got, err := v.Read(path)
	if err != nil {
		return err
	}
	if !got.Equal(want.Truncate(time.Second)) {
		return fmt.Errorf("%w: 期望 %s, 实际 %s", ErrMismatch,
			exiftool.FormatTimestamp(want), exiftool.FormatTimestamp(got))
	}
	return nil
}

func (v *Verifier) readExif(path string) (time.Time, error) {
	f, err := v.fs.Open(path)
	if err != nil {
		return time.Time{}, fmt.Errorf("打开文件失败: %w", err)
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return time.Time{}, fmt.Errorf("解析 EXIF 失败: %w", err)
	}

	tag, err := x.Get(exif.DateTimeOriginal)
	if err != nil {
		return time.Time{}, ErrNoTimestamp
	}
	s, err := tag.StringVal()
	if err != nil {
		return time.Time{}, fmt.Errorf("读取 DateTimeOriginal 失败: %w", err)
	}
	return exiftool.ParseTimestamp(strings.TrimSpace(s))
}

func (v *Verifier) readMvhd(path string) (time.Time, error) {
	f, err := v.fs.Open(path)
	if err != nil {
		return time.Time{}, fmt.Errorf("打开文件失败: %w", err)
	}
	defer f.Close()

	boxes, err := mp4.ExtractBoxWithPayload(f, nil, mp4.BoxPath{mp4.BoxTypeMoov(), mp4.BoxTypeMvhd()})
	if err != nil {
		return time.Time{}, fmt.Errorf("读取 mvhd 失败: %w", err)
	}
	if len(boxes) == 0 {
		return time.Time{}, ErrNoTimestamp
	}
	mvhd, ok := boxes[0].Payload.(*mp4.Mvhd)
	if !ok {
		return time.Time{}, ErrNoTimestamp
	}

	var ct uint64
	if mvhd.Version > 0 {
		ct = mvhd.CreationTimeV1
	} else {
		ct = uint64(mvhd.CreationTimeV0)
	}
	if ct == 0 {
		return time.Time{}, ErrNoTimestamp
	}
	return time.Unix(int64(ct)-mp4EpochOffset, 0).UTC(), nil
}

func ext(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}
