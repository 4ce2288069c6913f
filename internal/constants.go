package internal

const (
	// 默认工具路径，通过 PATH 查找
	DefaultToolPath = "exiftool"

	// 默认 CPU 占用百分比
	DefaultWorkerPercent = 80

	// 两位年份的世纪分界：小于该值视为 20xx，否则 19xx
	DefaultCenturyPivot = 69

	// 结果通道缓冲区大小
	DefaultBufferSize = 1000
)

// DefaultExtensions 默认处理的媒体文件扩展名（小写，不含点）
var DefaultExtensions = []string{"jpg", "jpeg", "png", "heic", "mp4", "mov"}
