package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

// TimestampLayout is the local timestamp layout shared by console debug lines and the run log.
const TimestampLayout = "2006-01-02 15:04:05"

// Logger interface defines the console logging methods
type Logger interface {
	Info(format string, args ...any)
	Debug(format string, args ...any)
	Success(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	SetOutput(out io.Writer)
	SetErrorOutput(out io.Writer)
	SetVerbose(enabled bool)
	SetQuiet(enabled bool)
	IsVerbose() bool
	IsQuiet() bool
}

type level int

const (
	levelDebug level = iota
	levelInfo
	levelSuccess
	levelWarn
	levelError
)

type levelStyle struct {
	icon  string
	plain string
	color string
}

const (
	blueColor   = "\033[34m"
	greenColor  = "\033[32m"
	yellowColor = "\033[33m"
	redColor    = "\033[31m"
	grayColor   = "\033[90m"
	resetColor  = "\033[0m"
)

var styles = map[level]levelStyle{
	levelDebug:   {icon: "🔍", plain: "DEBUG", color: grayColor},
	levelInfo:    {icon: "ℹ️", plain: "INFO", color: blueColor},
	levelSuccess: {icon: "✓", plain: "SUCCESS", color: greenColor},
	levelWarn:    {icon: "⚠", plain: "WARN", color: yellowColor},
	levelError:   {icon: "✗", plain: "ERROR", color: redColor},
}

// ConsoleLogger implements the Logger interface
type ConsoleLogger struct {
	output      io.Writer
	errOut      io.Writer
	verboseMode bool
	quietMode   bool
	colors      bool
	mu          sync.Mutex
}

var (
	instance Logger
	once     sync.Once
)

// GetLogger returns the singleton instance
func GetLogger() Logger {
	once.Do(func() {
		instance = &ConsoleLogger{
			output: os.Stdout,
			errOut: os.Stderr,
			// Enable colors only if stdout is a terminal
			colors: term.IsTerminal(int(os.Stdout.Fd())),
		}
	})
	return instance
}

func SetVerbose(verbose bool) { GetLogger().SetVerbose(verbose) }
func IsVerbose() bool         { return GetLogger().IsVerbose() }
func SetQuiet(quiet bool)     { GetLogger().SetQuiet(quiet) }
func IsQuiet() bool           { return GetLogger().IsQuiet() }

// Global helper functions for convenience
func Info(format string, args ...any)    { GetLogger().Info(format, args...) }
func Debug(format string, args ...any)   { GetLogger().Debug(format, args...) }
func Success(format string, args ...any) { GetLogger().Success(format, args...) }
func Warn(format string, args ...any)    { GetLogger().Warn(format, args...) }
func Error(format string, args ...any)   { GetLogger().Error(format, args...) }

// -------------------- Implementation --------------------

func (l *ConsoleLogger) SetOutput(out io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = out
}

func (l *ConsoleLogger) SetErrorOutput(out io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errOut = out
}

func (l *ConsoleLogger) SetVerbose(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.verboseMode = enabled
}

func (l *ConsoleLogger) IsVerbose() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.verboseMode
}

func (l *ConsoleLogger) SetQuiet(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.quietMode = enabled
}

func (l *ConsoleLogger) IsQuiet() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.quietMode
}

func (l *ConsoleLogger) log(lvl level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch {
	case lvl == levelDebug && !l.verboseMode:
		return
	case lvl != levelError && l.quietMode:
		return
	}

	style := styles[lvl]
	prefix := style.plain
	if l.colors {
		prefix = style.icon
	}
	if lvl == levelDebug {
		prefix = fmt.Sprintf("[%s] %s", time.Now().Format(TimestampLayout+".000"), prefix)
	}

	out := l.output
	if lvl == levelError {
		out = l.errOut
	}

	msg := fmt.Sprintf(format, args...)
	if l.colors {
		fmt.Fprintf(out, "%s%s %s%s\n", style.color, prefix, msg, resetColor)
	} else {
		fmt.Fprintf(out, "%s %s\n", prefix, msg)
	}
}

func (l *ConsoleLogger) Info(format string, args ...any)    { l.log(levelInfo, format, args...) }
func (l *ConsoleLogger) Debug(format string, args ...any)   { l.log(levelDebug, format, args...) }
func (l *ConsoleLogger) Success(format string, args ...any) { l.log(levelSuccess, format, args...) }
func (l *ConsoleLogger) Warn(format string, args ...any)    { l.log(levelWarn, format, args...) }
func (l *ConsoleLogger) Error(format string, args ...any)   { l.log(levelError, format, args...) }
