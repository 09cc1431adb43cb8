package console

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"batchproc/internal/events"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
	ansiCyan   = "\x1b[36m"
	ansiGray   = "\x1b[90m"
)

// DefaultBorderWidth is used when the terminal width is unknown.
const DefaultBorderWidth = 60

// StatusKind selects the label and colour of a status line.
type StatusKind int

const (
	StatusInfo StatusKind = iota
	StatusOK
	StatusWarn
	StatusError
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

// ShouldColorize reports whether writer is an interactive terminal.
func ShouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// StatusLine renders "  label:   [KIND] message".
func StatusLine(label string, kind StatusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	line := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	return paint(line, statusKindColor(kind), colorize)
}

// Border returns a rule of ch repeated width times.
func Border(ch rune, width int) string {
	if width <= 0 {
		width = DefaultBorderWidth
	}
	return strings.Repeat(string(ch), width)
}

func statusKindLabel(kind StatusKind) string {
	switch kind {
	case StatusOK:
		return "OK"
	case StatusWarn:
		return "WARN"
	case StatusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind StatusKind) string {
	switch kind {
	case StatusOK:
		return ansiGreen
	case StatusWarn:
		return ansiYellow
	case StatusError:
		return ansiRed
	default:
		return ansiBlue
	}
}

func categoryColor(category events.Category) string {
	switch category {
	case events.CategoryDebug:
		return ansiGray
	case events.CategoryProcessStart, events.CategoryProcessComplete:
		return ansiCyan
	case events.CategoryWarning:
		return ansiYellow
	case events.CategoryException:
		return ansiRed
	default:
		return ""
	}
}

func paint(line, color string, colorize bool) string {
	if !colorize || color == "" {
		return line
	}
	return color + line + ansiReset
}
