package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m *model) View() string {
	switch m.state {
	case StateLoading:
		return m.loadingView()
	case StateBrowse:
		return m.browseView()
	default:
		return "未知状态"
	}
}

func (m *model) loadingView() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("🔍 正在识别文件名...") + "\n\n")
	b.WriteString(m.spinner.View() + " 正在扫描目录并匹配规则\n")
	b.WriteString("  目录: " + filePathStyle.Render(strings.Join(m.dirs, ", ")))

	return lipgloss.NewStyle().
		Padding(2).
		Render(b.String())
}

func (m *model) browseView() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("🕒 文件名时间识别") + "\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", 60)) + "\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render("错误: "+m.err.Error()) + "\n\n")
	}

	if m.report != nil {
		b.WriteString(labelStyle.Render("识别比例：") + " ")
		b.WriteString(m.progressBar.ViewAs(m.ratio()) + "\n")
		b.WriteString(statsBoxStyle.Render(m.renderStats()) + "\n")
	}

	b.WriteString(m.framed(FocusMatched, m.matchedList.View()) + "\n")
	b.WriteString(m.framed(FocusUnmatched, m.unmatchedList.View()) + "\n")

	b.WriteString(labelStyle.Render("追加目录：") + "\n")
	b.WriteString(m.framed(FocusDirInput, m.dirInput.View()) + "\n")

	b.WriteString(separatorStyle.Render(strings.Repeat("─", 60)) + "\n")
	b.WriteString(hintStyle.Render("Tab 切换焦点 • / 过滤 • r 重新识别 • q 退出") + "\n")

	return lipgloss.NewStyle().
		Padding(1).
		Render(b.String())
}

func (m *model) framed(f Focus, content string) string {
	if m.focus == f {
		return focusedStyle.Render(content)
	}
	return normalStyle.Render(content)
}

func (m *model) renderStats() string {
	r := m.report

	var b strings.Builder
	b.WriteString(fmt.Sprintf("目录: %s\n", strings.Join(r.Directories, ", ")))
	b.WriteString(fmt.Sprintf("文件总数: %d  已匹配: %d  未匹配: %d\n", r.Total(), r.Matched, r.Unmatched))
	for _, name := range r.Patterns {
		if n := r.ByPattern[name]; n > 0 {
			b.WriteString(fmt.Sprintf("  %s: %d\n", name, n))
		}
	}
	if r.SkippedDirs > 0 {
		b.WriteString(fmt.Sprintf("跳过目录: %d\n", r.SkippedDirs))
	}
	return strings.TrimRight(b.String(), "\n")
}
