package tui

import (
	"github.com/moyu-x/mediastamp/app"
)

type reportMsg struct {
	report *app.CheckReport
}

type errMsg error
