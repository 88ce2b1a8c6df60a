package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/rs/zerolog"
)

const (
	permission = 0664
)

// ZerologBuild assembles a zerolog backed Logger.
type ZerologBuild struct {
	writer io.Writer
	path   string
	level  slog.Level
}

type ZerologLogger struct {
	LogFile *os.File
	Logger  zerolog.Logger
}

var _ Logger = (*ZerologLogger)(nil)

func NewZerolog() *ZerologBuild {
	return &ZerologBuild{writer: os.Stdout, level: slog.LevelInfo}
}

func (build *ZerologBuild) FromPath(path string) *ZerologBuild {
	build.path = path
	return build
}

func (build *ZerologBuild) FromWriter(w io.Writer) *ZerologBuild {
	build.writer = w
	return build
}

func (build *ZerologBuild) Level(level slog.Level) *ZerologBuild {
	build.level = level
	return build
}

func (build *ZerologBuild) Make() (*ZerologLogger, error) {
	l := new(ZerologLogger)
	writer := build.writer
	if build.path != "" {
		f, err := os.OpenFile(build.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return nil, fmt.Errorf("logger: failed to open log file: %w", err)
		}
		l.LogFile = f
		writer = zerolog.SyncWriter(f)
	}
	l.Logger = zerolog.New(writer).Level(zerologLevel(build.level)).With().Timestamp().Logger()
	return l, nil
}

func zerologLevel(level slog.Level) zerolog.Level {
	switch {
	case level <= slog.LevelDebug:
		return zerolog.DebugLevel
	case level <= slog.LevelInfo:
		return zerolog.InfoLevel
	case level <= slog.LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

func (l *ZerologLogger) Error(msg string, args ...any) {
	l.Logger.Error().Fields(args).Msg(msg)
}

func (l *ZerologLogger) Warn(msg string, args ...any) {
	l.Logger.Warn().Fields(args).Msg(msg)
}

func (l *ZerologLogger) Info(msg string, args ...any) {
	l.Logger.Info().Fields(args).Msg(msg)
}

func (l *ZerologLogger) Debug(msg string, args ...any) {
	l.Logger.Debug().Fields(args).Msg(msg)
}

// Close releases the log file, if one was opened.
func (l *ZerologLogger) Close() error {
	if l.LogFile == nil {
		return nil
	}
	return l.LogFile.Close()
}
