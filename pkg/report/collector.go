package report

import (
	"github.com/moyu-x/mediastamp/internal"
	"github.com/moyu-x/mediastamp/pkg/logger"
)

// Recorder 持久化单个结果（运行日志）
type Recorder interface {
	Record(o internal.Outcome) error
}

// Collector 结果通道的唯一消费者，统计、进度和日志都只在这里更新
type Collector struct {
	reporter Reporter
	recorder Recorder
}

func NewCollector(r Reporter, rec Recorder) *Collector {
	return &Collector{reporter: r, recorder: rec}
}

// Drain 消费通道直到关闭
func (c *Collector) Drain(ch <-chan internal.Outcome, s *internal.Summary) {
	for o := range ch {
		s.Add(o)
		c.reporter.Report(o)

		if c.recorder == nil {
			continue
		}
		if err := c.recorder.Record(o); err != nil {
			logger.Get().Warn().Err(err).Msgf("写入运行记录失败: %s", o.File.Path)
		}
	}
}
