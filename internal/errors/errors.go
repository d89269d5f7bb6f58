// Package errors formats luaerr errors with source context — the
// offending line plus a caret — for display at a CLI or log sink.
package errors

import (
	"fmt"
	"strings"

	"github.com/lua-embed/luabridge/internal/luaerr"
)

// SourceError pairs a luaerr.Error with the source text it was raised
// against, so the error can be rendered with surrounding source lines.
type SourceError struct {
	Err    *luaerr.Error
	Source string
	File   string
}

// NewSourceError creates a SourceError for the given engine error.
func NewSourceError(err *luaerr.Error, source, file string) *SourceError {
	return &SourceError{Err: err, Source: source, File: file}
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	return e.Format(false)
}

// line returns the line number of the error's innermost frame, or 0 if
// the error carries no frames.
func (e *SourceError) line() int {
	if len(e.Err.Frames) == 0 {
		return 0
	}
	return e.Err.Frames[len(e.Err.Frames)-1].Line
}

// Format formats the error with a single line of source context. If
// color is true, ANSI color codes are used for terminal output.
func (e *SourceError) Format(color bool) string {
	var sb strings.Builder

	line := e.line()
	if e.File != "" {
		fmt.Fprintf(&sb, "%s: %s", e.Err.Kind, e.Err.Message)
		if line > 0 {
			fmt.Fprintf(&sb, " (%s:%d)", e.File, line)
		}
	} else {
		fmt.Fprintf(&sb, "%s: %s", e.Err.Kind, e.Err.Message)
		if line > 0 {
			fmt.Fprintf(&sb, " (line %d)", line)
		}
	}
	sb.WriteString("\n")

	if sourceLine := e.getSourceLine(line); sourceLine != "" {
		lineNumStr := fmt.Sprintf("%4d | ", line)
		sb.WriteString(lineNumStr)
		sb.WriteString(sourceLine)
		sb.WriteString("\n")

		sb.WriteString(strings.Repeat(" ", len(lineNumStr)))
		if color {
			sb.WriteString("\033[1;31m")
		}
		sb.WriteString("^")
		if color {
			sb.WriteString("\033[0m")
		}
		sb.WriteString("\n")
	}

	for _, fr := range e.Err.Frames[:max(0, len(e.Err.Frames)-1)] {
		sb.WriteString("\t")
		sb.WriteString(fr.String())
		sb.WriteString("\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}

// getSourceLine extracts a specific line from the source (1-indexed).
func (e *SourceError) getSourceLine(lineNum int) string {
	if e.Source == "" || lineNum < 1 {
		return ""
	}

	lines := strings.Split(e.Source, "\n")
	if lineNum > len(lines) {
		return ""
	}

	return lines[lineNum-1]
}

// FormatAll formats a batch of errors, numbering each when there is more
// than one.
func FormatAll(errs []*SourceError, color bool) string {
	if len(errs) == 0 {
		return ""
	}
	if len(errs) == 1 {
		return errs[0].Format(color)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "execution failed with %d error(s):\n\n", len(errs))
	for i, err := range errs {
		fmt.Fprintf(&sb, "[error %d of %d]\n", i+1, len(errs))
		sb.WriteString(err.Format(color))
		if i < len(errs)-1 {
			sb.WriteString("\n\n")
		}
	}
	return sb.String()
}
