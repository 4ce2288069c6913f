package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/moyu-x/mediastamp/pkg/logger"
)

type teaModel struct {
	m *model
}

func (tm teaModel) Init() tea.Cmd {
	return tm.m.Init()
}

func (tm teaModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	_, cmd := tm.m.Update(msg)
	return tm, cmd
}

func (tm teaModel) View() string {
	return tm.m.View()
}

// Run 启动交互式识别浏览界面，只读，不修改任何文件
func Run(dirs []string, loader Loader) error {
	logger.Get().Info().Msg("启动 TUI 界面")

	m := newModel(dirs, loader)
	p := tea.NewProgram(teaModel{m: &m}, tea.WithAltScreen())

	_, err := p.Run()
	if err != nil {
		logger.Get().Error().Err(err).Msg("TUI 运行错误")
	} else {
		logger.Get().Info().Msg("TUI 正常退出")
	}

	return err
}
