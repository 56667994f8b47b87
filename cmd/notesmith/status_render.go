package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"notesmith/internal/api"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 24
	statusIndent     = "  "
)

type statusKind struct {
	label string
	color string
}

var (
	statusInfo  = statusKind{"INFO", ansiBlue}
	statusOK    = statusKind{"OK", ansiGreen}
	statusWarn  = statusKind{"WARN", ansiYellow}
	statusError = statusKind{"ERROR", ansiRed}
)

func paint(s, color string, colorize bool) string {
	if !colorize || color == "" {
		return s
	}
	return color + s + ansiReset
}

// renderStatusLine formats "  Label:   [KIND] message" with the label padded
// to a fixed column.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	text := "[" + kind.label + "]"
	if message != "" {
		text += " " + message
	}
	return paint(fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", text), kind.color, colorize)
}

func renderSectionHeader(title string, colorize bool) string {
	return paint("== "+strings.TrimSpace(title)+" ==", ansiBlue, colorize)
}

// checkLines renders preflight results. A passing check whose detail starts
// with "optional:" is a missing optional dependency and shows as a warning.
func checkLines(checks []api.CheckStatus, colorize bool) []string {
	lines := make([]string, 0, len(checks))
	for _, check := range checks {
		kind := statusOK
		if !check.Passed {
			kind = statusError
		} else if strings.HasPrefix(check.Detail, "optional:") {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}
	return lines
}

func shouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}
