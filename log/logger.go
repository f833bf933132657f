package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/op/go-logging"
)

type Level logging.Level

// The levels that can be passed to the SetLevel function.
const (
	Debug Level = iota
	Info
	Notice
	Warning
	Error
)

var levelNames = []string{"debug", "info", "notice", "warning", "error"}

var backendLevels = []logging.Level{
	logging.DEBUG,
	logging.INFO,
	logging.NOTICE,
	logging.WARNING,
	logging.ERROR,
}

// Log line formats for terminals and for redirected output.
var (
	colorFormat = logging.MustStringFormatter(
		`%{color}[%{time:15:04:05.000}] [%{module}] [%{level}]%{color:reset} %{message}`,
	)
	plainFormat = logging.MustStringFormatter(
		`[%{time:15:04:05.000}] [%{module}] [%{level}] %{message}`,
	)
)

// The internal leveled logger backend
var leveledBackend logging.LeveledBackend

var currentLevel = Notice

// The logger interface
type Logger interface {
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})

	Notice(v ...interface{})
	Noticef(format string, v ...interface{})

	Info(v ...interface{})
	Infof(format string, v ...interface{})

	Warning(v ...interface{})
	Warningf(format string, v ...interface{})

	Error(v ...interface{})
	Errorf(format string, v ...interface{})
}

// Create a new named logger.
func New(name string) Logger {
	return logging.MustGetLogger(name)
}

// Override the backend output sink. Colors are only emitted when writing to
// the process stdout or stderr.
func SetSink(sink io.Writer) {
	format := plainFormat
	if sink == os.Stdout || sink == os.Stderr {
		format = colorFormat
	}
	backend := logging.NewLogBackend(sink, "", 0)
	leveledBackend = logging.AddModuleLevel(logging.NewBackendFormatter(backend, format))
	logging.SetBackend(leveledBackend)
	SetLevel(currentLevel)
}

// Set logger verbosity.
func SetLevel(level Level) {
	if level < Debug || level > Error {
		level = Notice
	}
	currentLevel = level
	leveledBackend.SetLevel(backendLevels[level], "")
}

// Get the active verbosity.
func CurrentLevel() Level {
	return currentLevel
}

// Apply a configured level name and then the command line verbosity: 1
// selects Info and 2 or more select Debug regardless of the configured
// level. An invalid name leaves the level untouched before verbosity is
// applied.
func Configure(levelName string, verbosity int) error {
	var err error
	if strings.TrimSpace(levelName) != "" {
		var lvl Level
		if lvl, err = ParseLevel(levelName); err == nil {
			SetLevel(lvl)
		}
	}

	switch {
	case verbosity >= 2:
		SetLevel(Debug)
	case verbosity == 1:
		SetLevel(Info)
	}
	return err
}

// Parse a level name (debug, info, notice, warning, error).
func ParseLevel(name string) (Level, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "":
		return Notice, nil
	case "warn":
		return Warning, nil
	}
	for lvl, levelName := range levelNames {
		if levelName == name {
			return Level(lvl), nil
		}
	}
	return Notice, fmt.Errorf("log: unknown level %q", name)
}

func (l Level) String() string {
	if l >= Debug && l <= Error {
		return levelNames[l]
	}
	return fmt.Sprintf("level(%d)", int(l))
}

func init() {
	SetSink(os.Stdout)
}
