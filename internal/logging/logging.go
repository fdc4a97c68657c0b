// Package logging provides leveled loggers on top of the standard log package.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
	LevelNone
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	case LevelNone:
		return "NONE"
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// ParseLevel parses a level name such as "INFO" or "warning".
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug, nil
	case "INFO":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarning, nil
	case "ERROR":
		return LevelError, nil
	case "NONE", "OFF":
		return LevelNone, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

var (
	mu      sync.Mutex
	out     io.Writer = os.Stderr
	current Level

	debugLog   *log.Logger
	infoLog    *log.Logger
	warningLog *log.Logger
	errorLog   *log.Logger
)

func init() {
	flags := log.LstdFlags | log.Lshortfile
	debugLog = log.New(io.Discard, "D ", flags)
	infoLog = log.New(io.Discard, "I ", flags)
	warningLog = log.New(io.Discard, "W ", flags)
	errorLog = log.New(io.Discard, "E ", flags)

	SetLevel(LevelInfo)
}

// SetLevel enables every logger at or above l.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	current = l
	apply()
}

// GetLevel returns the active level.
func GetLevel() Level {
	mu.Lock()
	defer mu.Unlock()
	return current
}

// SetOutput redirects the enabled loggers to w.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	apply()
}

func apply() {
	for i, l := range []*log.Logger{debugLog, infoLog, warningLog, errorLog} {
		if Level(i) >= current {
			l.SetOutput(out)
		} else {
			l.SetOutput(io.Discard)
		}
	}
}

func Debug(msg string, v ...interface{}) {
	debugLog.Output(2, fmt.Sprintf(msg, v...))
}

func Info(msg string, v ...interface{}) {
	infoLog.Output(2, fmt.Sprintf(msg, v...))
}

func Warning(msg string, v ...interface{}) {
	warningLog.Output(2, fmt.Sprintf(msg, v...))
}

func Error(msg string, v ...interface{}) {
	errorLog.Output(2, fmt.Sprintf(msg, v...))
}
