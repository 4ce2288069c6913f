package internal

import (
	"fmt"
	"strings"
	"time"
)

// 候选文件
type CandidateFile struct {
	Path string // 绝对路径
	Base string // 不含扩展名的文件名
	Ext  string // 小写扩展名，不含点
	Size int64
}

// 处理结果类型
type OutcomeKind int

const (
	KindUpdated OutcomeKind = iota
	KindNoPatternMatch
	KindWriteFailed
	KindScanError
)

func (k OutcomeKind) String() string {
	switch k {
	case KindUpdated:
		return "Updated"
	case KindNoPatternMatch:
		return "NoPatternMatch"
	case KindWriteFailed:
		return "WriteFailed"
	case KindScanError:
		return "ScanError"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// 单个文件的处理结果，每个文件只产生一次
type Outcome struct {
	File       CandidateFile
	Kind       OutcomeKind
	Pattern    string    // 命中的文件名规则
	Timestamp  time.Time // 解析出的时间，仅在命中规则时有效
	Suffix     string    // 时间之后的标识（图片编号等）
	Reason     string    // 失败原因
	Verified   bool      // 写入后是否回读确认
	SizeBefore int64
	SizeAfter  int64
	Hash       uint64 // 写入后的内容指纹，未启用时为 0
	MovedTo    string // 隔离后的新路径
	Duration   time.Duration
}

// 处理统计
type Summary struct {
	Total          int
	Updated        int
	NoPatternMatch int
	WriteFailed    int
	ScanError      int
	Skipped        int // 断点续跑时跳过的文件
	SkippedDirs    int
	SizeIncreased  int
	SizeDecreased  int
	Quarantined    int
	Cancelled      bool
	StartTime      time.Time
	EndTime        time.Time
}

// Add 累加一个结果，只能由收集协程调用
func (s *Summary) Add(o Outcome) {
	switch o.Kind {
	case KindUpdated:
		s.Updated++
	case KindNoPatternMatch:
		s.NoPatternMatch++
	case KindWriteFailed:
		s.WriteFailed++
	case KindScanError:
		s.ScanError++
	}

	if o.SizeBefore > 0 || o.SizeAfter > 0 {
		switch {
		case o.SizeAfter > o.SizeBefore:
			s.SizeIncreased++
		case o.SizeAfter < o.SizeBefore:
			s.SizeDecreased++
		}
	}

	if o.MovedTo != "" {
		s.Quarantined++
	}
}

// Processed 已产生结果的文件数
func (s *Summary) Processed() int {
	return s.Updated + s.NoPatternMatch + s.WriteFailed + s.ScanError
}

// Counts 单行分类统计
func (s *Summary) Counts() string {
	return fmt.Sprintf("Updated=%d, NoPatternMatch=%d, WriteFailed=%d, ScanError=%d",
		s.Updated, s.NoPatternMatch, s.WriteFailed, s.ScanError)
}

func (s *Summary) String() string {
	var b strings.Builder

	b.WriteString("========== 处理统计 ==========\n")
	b.WriteString(fmt.Sprintf("扫描文件数: %d\n", s.Total))
	b.WriteString(fmt.Sprintf("已处理: %d\n", s.Processed()))
	b.WriteString(s.Counts() + "\n")
	if s.Skipped > 0 {
		b.WriteString(fmt.Sprintf("已跳过（断点续跑）: %d\n", s.Skipped))
	}
	if s.SkippedDirs > 0 {
		b.WriteString(fmt.Sprintf("跳过目录: %d\n", s.SkippedDirs))
	}
	b.WriteString(fmt.Sprintf("文件变大: %d\n", s.SizeIncreased))
	b.WriteString(fmt.Sprintf("文件变小: %d\n", s.SizeDecreased))
	if s.Quarantined > 0 {
		b.WriteString(fmt.Sprintf("已隔离: %d\n", s.Quarantined))
	}
	if s.Cancelled {
		b.WriteString("运行被中断，剩余文件未处理\n")
	}
	if !s.EndTime.IsZero() {
		b.WriteString(fmt.Sprintf("总耗时: %v\n", s.EndTime.Sub(s.StartTime).Round(time.Millisecond)))
	}
	b.WriteString("============================")

	return b.String()
}
