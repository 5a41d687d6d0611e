package config

import (
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

// NewLogger builds a logger from the log section.
func (c LogConfig) NewLogger(w io.Writer) *log.Logger {
	level, err := log.ParseLevel(c.Level)
	if err != nil {
		level = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		Level:           level,
		Formatter:       parseFormatter(c.Format),
		ReportTimestamp: true,
		Prefix:          "tasklist",
	})
}

func parseFormatter(format string) log.Formatter {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}
