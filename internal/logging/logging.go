// Package logging builds the process logger.
//
// Logs always go to stderr because stdout carries the MCP protocol stream.
// A rotating file can be added with Options.File.
package logging

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Fields is an alias so callers do not need to import logrus for structured
// fields.
type Fields = logrus.Fields

// CallIDKey is the field carrying the per tool call correlation id.
const CallIDKey = "call_id"

// Options configures New.
type Options struct {
	// Level is a logrus level name. Empty means "info".
	Level string

	// File, when set, receives a copy of every entry with size based rotation.
	File string

	// NoColors disables ANSI colours, e.g. when stderr is not a terminal.
	NoColors bool

	// Output overrides stderr. Tests use it to capture entries.
	Output io.Writer
}

// New returns a configured logger. An unknown level is an error.
func New(opts Options) (*logrus.Logger, error) {
	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(&formatter.Formatter{
		NoColors:        opts.NoColors,
		TimestampFormat: "02 Jan 06 - 15:04:05",
		CallerFirst:     true,
		CustomCallerFormatter: func(f *runtime.Frame) string {
			s := strings.Split(f.Function, ".")
			funcName := s[len(s)-1]
			return fmt.Sprintf(" [%s:%d][%s()]", path.Base(f.File), f.Line, funcName)
		},
	})
	logger.SetReportCaller(true)

	var out io.Writer = os.Stderr
	if opts.Output != nil {
		out = opts.Output
	}
	writers := []io.Writer{out}
	if opts.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			LocalTime:  true,
			Compress:   true,
			MaxSize:    50,
			MaxAge:     7,
			MaxBackups: 3,
		})
	}
	logger.SetOutput(io.MultiWriter(writers...))

	return logger, nil
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// NewCallID returns a fresh correlation id for a tool call.
func NewCallID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return "unknown"
	}
	return id.String()
}

// WithCall returns an entry tagged with a new call id and the tool name.
func WithCall(logger logrus.FieldLogger, tool string) *logrus.Entry {
	return logger.WithFields(Fields{
		CallIDKey: NewCallID(),
		"tool":    tool,
	})
}
