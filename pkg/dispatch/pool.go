package dispatch

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/moyu-x/mediastamp/internal"
)

var ErrNoWorkers = errors.New("没有可用的 CPU 核心")

// PoolConfig worker 数量配置：显式数量、CPU 百分比或全部核心
type PoolConfig struct {
	Count   int // 大于 0 时直接使用
	Percent int // 1-100，0 表示默认值
	All     bool
}

func DefaultPoolConfig() PoolConfig {
	return PoolConfig{Percent: internal.DefaultWorkerPercent}
}

// ParsePoolConfig 解析 "80"、"all" 或空字符串
func ParsePoolConfig(s string) (PoolConfig, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultPoolConfig(), nil
	}
	if strings.EqualFold(s, "all") {
		return PoolConfig{All: true}, nil
	}

	pct, err := strconv.Atoi(strings.TrimSuffix(s, "%"))
	if err != nil {
		return PoolConfig{}, fmt.Errorf("无效的 worker 配置 %q，应为 1-100 的百分比或 all", s)
	}
	return PoolConfig{Percent: clamp(pct, 1, 100)}, nil
}

// Resolve 根据核心数计算 worker 数量，结果至少为 1
func (c PoolConfig) Resolve(cores int) (int, error) {
	if cores < 1 {
		return 0, ErrNoWorkers
	}
	if c.Count > 0 {
		return c.Count, nil
	}
	if c.All {
		return cores, nil
	}

	pct := c.Percent
	if pct == 0 {
		pct = internal.DefaultWorkerPercent
	}
	pct = clamp(pct, 1, 100)

	return max(1, cores*pct/100), nil
}

func (c PoolConfig) String() string {
	switch {
	case c.Count > 0:
		return strconv.Itoa(c.Count)
	case c.All:
		return "all"
	case c.Percent == 0:
		return fmt.Sprintf("%d%%", internal.DefaultWorkerPercent)
	default:
		return fmt.Sprintf("%d%%", c.Percent)
	}
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
