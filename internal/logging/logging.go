package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Setup initializes a zerolog.Logger based on the requested format.
// format can be "text" (human-friendly console) or "json" (structured).
func Setup(format string) zerolog.Logger {
	return build(format, nil)
}

// SetupWithFile behaves like Setup but additionally tees every log line into
// a timestamped file under logsDir. The directory is created if needed; a
// failure to open the file falls back to stderr-only logging.
func SetupWithFile(format, logsDir string) (zerolog.Logger, error) {
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return Setup(format), fmt.Errorf("create logs dir: %w", err)
	}
	name := fmt.Sprintf("studyselect_%s.log", time.Now().UTC().Format("20060102_150405"))
	f, err := os.Create(filepath.Join(logsDir, name))
	if err != nil {
		return Setup(format), fmt.Errorf("create log file: %w", err)
	}
	return build(format, f), nil
}

func build(format string, file io.Writer) zerolog.Logger {
	var out io.Writer = os.Stderr
	if format == "text" {
		out = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}
	}
	if file != nil {
		// The file always gets structured JSON regardless of console format.
		out = zerolog.MultiLevelWriter(out, file)
	}
	return zerolog.New(out).With().Timestamp().Logger()
}
