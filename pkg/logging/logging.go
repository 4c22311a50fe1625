// Package logging builds the zerolog loggers shared by the CLI and the
// simulation packages.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// New returns a logger writing to w at the given level. An empty level means
// "info"; format is "console" (human readable) or "json".
func New(level, format string, w io.Writer) (zerolog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}

	lvl := zerolog.InfoLevel
	if strings.TrimSpace(level) != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("log level %q: %w", level, err)
		}
		lvl = parsed
	}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatConsole:
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	case FormatJSON:
	default:
		return zerolog.Nop(), fmt.Errorf("log format %q: must be %q or %q", format, FormatConsole, FormatJSON)
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}
