package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/moyu-x/mediastamp/app"
	"github.com/moyu-x/mediastamp/pkg/logger"
)

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.state == StateBrowse {
			if handled, cmd := m.handleKey(msg); handled {
				return m, cmd
			}
		}

	case tea.WindowSizeMsg:
		m.handleResize(msg)
		return m, nil

	case reportMsg:
		m.state = StateBrowse
		m.err = nil
		m.setReport(msg.report)
		return m, nil

	case errMsg:
		m.state = StateBrowse
		m.err = msg
		logger.Get().Error().Err(msg).Msg("识别失败")
		return m, nil

	case spinner.TickMsg:
		if m.state == StateLoading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if m.state != StateBrowse {
		return m, nil
	}

	var cmd tea.Cmd
	switch m.focus {
	case FocusMatched:
		m.matchedList, cmd = m.matchedList.Update(msg)
	case FocusUnmatched:
		m.unmatchedList, cmd = m.unmatchedList.Update(msg)
	case FocusDirInput:
		m.dirInput, cmd = m.dirInput.Update(msg)
	}
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleKey 处理浏览阶段的快捷键，返回 false 时按键交给当前焦点组件
func (m *model) handleKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	switch msg.String() {
	case "tab":
		m.nextFocus()
		m.updateFocusState()
		return true, nil

	case "enter":
		if m.focus != FocusDirInput {
			return false, nil
		}
		if dir := m.dirInput.Value(); dir != "" {
			m.dirs = append(m.dirs, dir)
			m.dirInput.Reset()
		}
		return true, m.reload()

	case "r":
		if m.focus == FocusDirInput || m.filtering() {
			return false, nil
		}
		return true, m.reload()

	case "q":
		if m.focus == FocusDirInput || m.filtering() {
			return false, nil
		}
		return true, tea.Quit
	}

	return false, nil
}

func (m *model) reload() tea.Cmd {
	m.state = StateLoading
	return tea.Batch(m.spinner.Tick, m.load())
}

func (m *model) filtering() bool {
	return m.matchedList.SettingFilter() || m.unmatchedList.SettingFilter()
}

func (m *model) nextFocus() {
	switch m.focus {
	case FocusMatched:
		m.focus = FocusUnmatched
	case FocusUnmatched:
		m.focus = FocusDirInput
	case FocusDirInput:
		m.focus = FocusMatched
	}
}

func (m *model) updateFocusState() {
	m.matchedList.KeyMap.CursorUp.SetEnabled(m.focus == FocusMatched)
	m.matchedList.KeyMap.CursorDown.SetEnabled(m.focus == FocusMatched)
	m.unmatchedList.KeyMap.CursorUp.SetEnabled(m.focus == FocusUnmatched)
	m.unmatchedList.KeyMap.CursorDown.SetEnabled(m.focus == FocusUnmatched)

	if m.focus == FocusDirInput {
		m.dirInput.Focus()
	} else {
		m.dirInput.Blur()
	}
}

func (m *model) setReport(r *app.CheckReport) {
	m.report = r
	m.matchedList.SetItems(toItems(r.MatchedResults()))
	m.unmatchedList.SetItems(toItems(r.UnmatchedResults()))
	logger.Get().Debug().Msgf("识别结果: 匹配 %d 个，未匹配 %d 个", r.Matched, r.Unmatched)
}

func (m *model) handleResize(msg tea.WindowSizeMsg) {
	width, height := msg.Width, msg.Height

	listHeight := (height - 16) / 2
	if listHeight < 5 {
		listHeight = 5
	}
	m.matchedList.SetSize(width-6, listHeight)
	m.unmatchedList.SetSize(width-6, listHeight)
	m.dirInput.Width = width - 10
	m.progressBar.Width = width - 30
}

// ratio 已识别文件占比
func (m *model) ratio() float64 {
	if m.report == nil || m.report.Total() == 0 {
		return 0
	}
	return float64(m.report.Matched) / float64(m.report.Total())
}
