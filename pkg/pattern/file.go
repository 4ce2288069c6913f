package pattern

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileEntry 规则文件中的一条自定义规则
type FileEntry struct {
	Name    string   `yaml:"name"`
	Regex   string   `yaml:"regex"`
	Group   int      `yaml:"group"`
	Formats []string `yaml:"formats"`
}

type patternFile struct {
	Patterns []FileEntry `yaml:"patterns"`
}

// LoadFile 读取 YAML 或 JSON 格式的规则文件
func LoadFile(path string) ([]FileEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取规则文件失败: %w", err)
	}
	return ParseFile(data)
}

// ParseFile 解析规则文件内容，JSON 是 YAML 的子集，两者都可以
func ParseFile(data []byte) ([]FileEntry, error) {
	var f patternFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("解析规则文件失败: %w", err)
	}

	for i := range f.Patterns {
		e := &f.Patterns[i]
		if e.Name == "" {
			e.Name = fmt.Sprintf("custom-%d", i+1)
		}
		if e.Group == 0 {
			e.Group = 1
		}
		if _, err := e.compile(); err != nil {
			return nil, err
		}
	}

	return f.Patterns, nil
}

func (e FileEntry) compile() (*Pattern, error) {
	if e.Regex == "" {
		return nil, fmt.Errorf("规则 %s 缺少 regex", e.Name)
	}
	if len(e.Formats) == 0 {
		return nil, fmt.Errorf("规则 %s 缺少 formats", e.Name)
	}

	expr := e.Regex
	if !strings.HasPrefix(expr, "^") {
		expr = "^" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("规则 %s 正则无效: %w", e.Name, err)
	}

	group := e.Group
	if group == 0 {
		group = 1
	}
	if group > re.NumSubexp() {
		return nil, fmt.Errorf("规则 %s 分组 %d 不存在", e.Name, group)
	}

	layouts := make([]string, 0, len(e.Formats))
	for _, f := range e.Formats {
		layout, err := layoutOf(f)
		if err != nil {
			return nil, fmt.Errorf("规则 %s: %w", e.Name, err)
		}
		layouts = append(layouts, layout)
	}

	return &Pattern{
		Name:    e.Name,
		re:      re,
		extract: parseGroup(group, layouts),
	}, nil
}

// parseGroup 用给定的布局依次解析分组文本，第一个成功的生效
func parseGroup(group int, layouts []string) extractFunc {
	return func(p *Pattern, name string, idx []int) (Timestamp, bool) {
		start, end := idx[2*group], idx[2*group+1]
		if start < 0 {
			return Timestamp{}, false
		}
		raw := name[start:end]

		for _, layout := range layouts {
			t, err := time.ParseInLocation(layout, raw, time.UTC)
			if err != nil {
				continue
			}
			if t.Year() < 1 {
				continue
			}
			return Timestamp{
				Time:      t,
				Subsecond: t.Nanosecond() != 0,
				Suffix:    cleanSuffix(name[end:]),
			}, true
		}
		return Timestamp{}, false
	}
}

var strftime = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "01",
	'd': "02",
	'H': "15",
	'M': "04",
	'S': "05",
	'f': "999999",
	'b': "Jan",
	'%': "%",
}

// layoutOf 把 strftime 风格的格式转换为 Go 布局，不含 % 的按 Go 布局原样使用
func layoutOf(format string) (string, error) {
	if !strings.Contains(format, "%") {
		return format, nil
	}

	var b strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		if i+1 >= len(format) {
			return "", fmt.Errorf("格式 %q 以 %% 结尾", format)
		}
		i++
		v, ok := strftime[format[i]]
		if !ok {
			return "", fmt.Errorf("格式 %q 不支持 %%%c", format, format[i])
		}
		b.WriteString(v)
	}
	return b.String(), nil
}
