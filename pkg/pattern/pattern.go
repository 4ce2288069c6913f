package pattern

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Timestamp 从文件名中解析出的拍摄时间
type Timestamp struct {
	Time      time.Time // 墙上时间，Location 固定为 UTC
	Subsecond bool      // 文件名中是否带毫秒
	Suffix    string    // 时间之后的标识，仅用于展示
	Pattern   string    // 命中的规则名
}

func (t Timestamp) String() string {
	layout := "2006-01-02T15:04:05"
	if t.Subsecond {
		layout += ".000"
	}
	s := t.Time.Format(layout)
	if t.Suffix != "" {
		s += " (" + t.Suffix + ")"
	}
	return s
}

type extractFunc func(p *Pattern, name string, idx []int) (Timestamp, bool)

// Pattern 一条文件名规则：锚定的识别正则加上提取函数
type Pattern struct {
	Name string

	re      *regexp.Regexp
	guards  []*regexp.Regexp // 更高优先级规则的识别正则
	extract extractFunc
	pivot   int
}

// Recognize 判断文件名是否符合该规则的结构
func (p *Pattern) Recognize(name string) bool {
	if !p.re.MatchString(name) {
		return false
	}
	for _, g := range p.guards {
		if g.MatchString(name) {
			return false
		}
	}
	return true
}

// Extract 提取并校验时间，结构不符或日期非法时返回 false
func (p *Pattern) Extract(name string) (Timestamp, bool) {
	if !p.Recognize(name) {
		return Timestamp{}, false
	}
	idx := p.re.FindStringSubmatchIndex(name)
	if idx == nil {
		return Timestamp{}, false
	}
	ts, ok := p.extract(p, name, idx)
	if !ok {
		return Timestamp{}, false
	}
	ts.Pattern = p.Name
	return ts, true
}

// Expr 返回识别正则的文本
func (p *Pattern) Expr() string {
	return p.re.String()
}

func (p *Pattern) group(name string, idx []int, group string) string {
	i := p.re.SubexpIndex(group)
	if i < 0 || 2*i+1 >= len(idx) || idx[2*i] < 0 {
		return ""
	}
	return name[idx[2*i]:idx[2*i+1]]
}

// extractFields 处理内置规则：按命名分组读取各个时间字段
func extractFields(p *Pattern, name string, idx []int) (Timestamp, bool) {
	num := func(group string) (int, bool) {
		s := p.group(name, idx, group)
		if s == "" {
			return 0, false
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, false
		}
		return n, true
	}

	var year int
	if y, ok := num("year"); ok {
		year = y
	} else if yy, ok := num("yy"); ok {
		year = expandYear(yy, p.pivot)
	} else {
		return Timestamp{}, false
	}

	month, ok := num("month")
	if !ok {
		return Timestamp{}, false
	}
	day, ok := num("day")
	if !ok {
		return Timestamp{}, false
	}

	// 时分秒缺省为 0（只有日期的规则）
	hour, _ := num("hour")
	minute, _ := num("minute")
	second, _ := num("second")
	ms, hasMS := num("ms")

	t, ok := civil(year, month, day, hour, minute, second, ms*int(time.Millisecond))
	if !ok {
		return Timestamp{}, false
	}

	return Timestamp{
		Time:      t,
		Subsecond: hasMS,
		Suffix:    cleanSuffix(p.group(name, idx, "suffix")),
	}, true
}

// civil 构造时间，time.Date 会把越界字段进位，这里要求各字段保持原值
func civil(year, month, day, hour, minute, second, nsec int) (time.Time, bool) {
	if year < 1 || year > 9999 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, hour, minute, second, nsec, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day ||
		t.Hour() != hour || t.Minute() != minute || t.Second() != second {
		return time.Time{}, false
	}
	return t, true
}

// expandYear 两位年份补全世纪
func expandYear(yy, pivot int) int {
	if yy < pivot {
		return 2000 + yy
	}
	return 1900 + yy
}

func cleanSuffix(s string) string {
	return strings.TrimSpace(strings.TrimLeft(s, " -_+"))
}

func (p *Pattern) String() string {
	return fmt.Sprintf("%s %s", p.Name, p.re.String())
}
