// FILE: lixenwraith/confclass/cmd/confcheck/logger.go
package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"

	config "github.com/lixenwraith/confclass"
)

// setupHandler builds a charmbracelet text handler. The level is parsed with
// LogLevelEnum, so both names ("debug") and numbers ("10") work.
func setupHandler(logLevel string, writer io.Writer) slog.Handler {
	if writer == nil {
		writer = os.Stderr
	}

	reportTimestamp := false
	lvl := log.InfoLevel
	if variant, ok := config.LogLevelEnum.Lookup(logLevel); ok {
		switch variant.Name {
		case "Debug":
			reportTimestamp = true
			lvl = log.DebugLevel
		case "Warn":
			lvl = log.WarnLevel
		case "Error":
			lvl = log.ErrorLevel
		case "Critical":
			lvl = log.FatalLevel
		}
	}

	return log.NewWithOptions(writer, log.Options{
		ReportTimestamp: reportTimestamp,
		Level:           lvl,
	})
}

func newLogger(logLevel string) *slog.Logger {
	return slog.New(setupHandler(logLevel, nil))
}
