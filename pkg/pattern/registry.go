package pattern

import (
	"fmt"
	"regexp"

	"github.com/moyu-x/mediastamp/internal"
)

// 内置规则名称
const (
	NameISOEq         = "userslug-iso-eq"
	NameISOUnderscore = "userslug-iso-underscore"
	NameDotted        = "dotted-datetime"
	NameYYMMDDSpace   = "yymmdd-space"
	NameYYMMDDDash    = "yymmdd-dash"
)

const isoTime = `(?P<year>\d{4})-(?P<month>\d{2})-(?P<day>\d{2})T(?P<hour>\d{2})(?P<minute>\d{2})(?P<second>\d{2})(?:\.(?P<ms>\d{3}))?Z`

// 按优先级排列：结构更严格的在前，避免宽松规则截获
var builtins = []struct {
	name string
	expr string
}{
	{NameISOEq, `^(?P<user>.+?)=_=` + isoTime + `(?P<suffix>.*)$`},
	{NameISOUnderscore, `^(?P<user>.+?)__` + isoTime + `(?P<suffix>.*)$`},
	{NameDotted, `^(?P<year>\d{4})-(?P<month>\d{2})-(?P<day>\d{2}) (?P<hour>\d{2})\.(?P<minute>\d{2})\.(?P<second>\d{2})(?P<suffix>.*)$`},
	{NameYYMMDDSpace, `^(?P<yy>\d{2})(?P<month>\d{2})(?P<day>\d{2})\s+(?P<suffix>.*)$`},
	{NameYYMMDDDash, `^(?P<yy>\d{2})(?P<month>\d{2})(?P<day>\d{2})-(?P<suffix>.*)$`},
}

var builtinRE = func() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(builtins))
	for i, b := range builtins {
		out[i] = regexp.MustCompile(b.expr)
	}
	return out
}()

// Registry 有序的文件名规则表，构造后只读，可被多个 worker 共享
type Registry struct {
	patterns []*Pattern
	pivot    int
}

type Option func(*registryOptions)

type registryOptions struct {
	pivot int
	extra []FileEntry
}

// WithPivot 设置两位年份的世纪分界（0-100）
func WithPivot(pivot int) Option {
	return func(o *registryOptions) {
		o.pivot = pivot
	}
}

// WithExtra 追加用户自定义规则，排在内置规则之前
func WithExtra(entries ...FileEntry) Option {
	return func(o *registryOptions) {
		o.extra = append(o.extra, entries...)
	}
}

func NewRegistry(opts ...Option) (*Registry, error) {
	o := registryOptions{pivot: internal.DefaultCenturyPivot}
	for _, opt := range opts {
		opt(&o)
	}

	if o.pivot < 0 || o.pivot > 100 {
		return nil, fmt.Errorf("世纪分界必须在 0-100 之间: %d", o.pivot)
	}

	r := &Registry{pivot: o.pivot}

	for _, e := range o.extra {
		p, err := e.compile()
		if err != nil {
			return nil, err
		}
		r.patterns = append(r.patterns, p)
	}

	for i, b := range builtins {
		r.patterns = append(r.patterns, &Pattern{
			Name:    b.name,
			re:      builtinRE[i],
			guards:  builtinRE[:i],
			extract: extractFields,
			pivot:   o.pivot,
		})
	}

	return r, nil
}

// Default 只含内置规则和默认世纪分界的规则表
func Default() *Registry {
	r, err := NewRegistry()
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve 按优先级依次尝试，返回第一个提取成功的时间
func (r *Registry) Resolve(base string) (Timestamp, bool) {
	for _, p := range r.patterns {
		if ts, ok := p.Extract(base); ok {
			return ts, true
		}
	}
	return Timestamp{}, false
}

// Patterns 按优先级返回规则名
func (r *Registry) Patterns() []string {
	names := make([]string, len(r.patterns))
	for i, p := range r.patterns {
		names[i] = p.Name
	}
	return names
}

// Pattern 按名称查找规则
func (r *Registry) Pattern(name string) (*Pattern, bool) {
	for _, p := range r.patterns {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

func (r *Registry) Pivot() int {
	return r.pivot
}

// Classify 与 Resolve 相同，另外返回命中的规则名，未命中时为空
func (r *Registry) Classify(base string) (string, Timestamp, bool) {
	ts, ok := r.Resolve(base)
	if !ok {
		return "", Timestamp{}, false
	}
	return ts.Pattern, ts, true
}
