// Package logging builds the process-wide slog handler.
//
// Records go through charmbracelet/log, which renders colored text on a
// terminal and plain key=value or JSON lines elsewhere. Packages log through
// the slog package functions; Setup installs the handler as the default.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// Formats accepted by Options.Format.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options selects how log records are rendered.
type Options struct {
	Level   string // debug | info | warn | error
	Format  string // text | json
	Verbose bool   // forces debug and reports callers
	Prefix  string
	Writer  io.Writer // defaults to os.Stderr
}

var formatters = map[string]log.Formatter{
	FormatJSON: log.JSONFormatter,
	FormatText: log.TextFormatter,
}

// New builds a logger without installing it.
func New(opts Options) (*slog.Logger, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	if opts.Verbose {
		level = log.DebugLevel
	}

	formatter := log.TextFormatter
	if opts.Format != "" {
		f, ok := formatters[opts.Format]
		if !ok {
			return nil, fmt.Errorf("unknown log format %q: must be text or json", opts.Format)
		}
		formatter = f
	}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	logger := log.NewWithOptions(w, log.Options{
		ReportCaller:    opts.Verbose,
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Level:           level,
		Prefix:          opts.Prefix,
		Formatter:       formatter,
	})
	logger.SetStyles(styles())

	return slog.New(logger), nil
}

// Setup builds a logger and makes it the slog default.
func Setup(opts Options) (*slog.Logger, error) {
	logger, err := New(opts)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}

func parseLevel(s string) (log.Level, error) {
	if strings.TrimSpace(s) == "" {
		return log.InfoLevel, nil
	}
	level, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return 0, fmt.Errorf("unknown log level %q: %w", s, err)
	}
	return level, nil
}

func styles() *log.Styles {
	st := log.DefaultStyles()
	errorColor := lipgloss.AdaptiveColor{Light: "#D7263D", Dark: "#FF6B6B"}
	warnColor := lipgloss.AdaptiveColor{Light: "#B8860B", Dark: "#F4D35E"}
	infoColor := lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#04B575"}
	debugColor := lipgloss.AdaptiveColor{Light: "#7E57C2", Dark: "#9A7FD1"}

	level := func(label string, c lipgloss.AdaptiveColor) lipgloss.Style {
		return lipgloss.NewStyle().SetString(label).Bold(true).MaxWidth(5).Foreground(c)
	}
	st.Levels[log.ErrorLevel] = level("ERROR", errorColor)
	st.Levels[log.WarnLevel] = level("WARN", warnColor)
	st.Levels[log.InfoLevel] = level("INFO", infoColor)
	st.Levels[log.DebugLevel] = level("DEBUG", debugColor)

	st.Keys["error"] = lipgloss.NewStyle().Foreground(errorColor)
	st.Values["error"] = lipgloss.NewStyle().Bold(true)
	st.Keys["customer_id"] = lipgloss.NewStyle().Foreground(infoColor)
	st.Keys["op"] = lipgloss.NewStyle().Foreground(debugColor)
	return st
}
