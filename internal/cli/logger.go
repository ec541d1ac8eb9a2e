package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// NewLogger logs to path, falling back to stderr when the file cannot be
// opened. The returned closer is never nil.
func NewLogger(path string, verbose bool) (*log.Logger, io.Closer) {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}

	var w io.WriteCloser = nopCloser{os.Stderr}
	if f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600); err == nil {
		w = f
	}

	logger := log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
		Prefix:          "projecty",
	})
	return logger, w
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
