package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/moyu-x/mediastamp/app"
)

type State int

const (
	StateLoading State = iota
	StateBrowse
)

type Focus int

const (
	FocusMatched Focus = iota
	FocusUnmatched
	FocusDirInput
)

// Loader 对给定目录做一次只读识别
type Loader func(dirs []string) (*app.CheckReport, error)

type model struct {
	state         State
	focus         Focus
	dirs          []string
	loader        Loader
	report        *app.CheckReport
	matchedList   list.Model
	unmatchedList list.Model
	dirInput      textinput.Model
	progressBar   progress.Model
	spinner       spinner.Model
	err           error
}

func newModel(dirs []string, loader Loader) model {
	matchedList := newResultList("已识别")
	unmatchedList := newResultList("未识别")

	dirInput := textinput.New()
	dirInput.Placeholder = "追加要识别的目录（按回车重新加载）"
	dirInput.Prompt = "> "
	dirInput.PromptStyle = focusedPromptStyle
	dirInput.TextStyle = textStyle

	progressBar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(50))

	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		FPS:    time.Second / 10,
	}
	s.Style = spinnerStyle

	m := model{
		state:         StateLoading,
		focus:         FocusMatched,
		dirs:          append([]string(nil), dirs...),
		loader:        loader,
		matchedList:   matchedList,
		unmatchedList: unmatchedList,
		dirInput:      dirInput,
		progressBar:   progressBar,
		spinner:       s,
	}
	m.updateFocusState()
	return m
}

func newResultList(title string) list.Model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 80, 12)
	l.Title = title
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.Styles.Title = titleStyle
	return l
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load())
}

// load 在后台执行识别
func (m *model) load() tea.Cmd {
	dirs := append([]string(nil), m.dirs...)
	loader := m.loader
	return func() tea.Msg {
		r, err := loader(dirs)
		if err != nil {
			return errMsg(err)
		}
		return reportMsg{report: r}
	}
}

type resultItem struct {
	res app.CheckResult
}

func (r resultItem) Title() string { return r.res.Name }

func (r resultItem) Description() string {
	if !r.res.Matched {
		return r.res.Path
	}
	return r.res.Pattern + "  " + r.res.Timestamp.String()
}

func (r resultItem) FilterValue() string { return r.res.Name }

func toItems(results []app.CheckResult) []list.Item {
	items := make([]list.Item, len(results))
	for i, res := range results {
		items[i] = resultItem{res: res}
	}
	return items
}
