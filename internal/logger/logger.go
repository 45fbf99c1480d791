// Package logger provides named, leveled loggers that share a single
// process-wide handler.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cenkalti/log"
)

var handler log.Handler

func init() {
	SetHandler(log.NewFileHandler(os.Stderr))
}

// SetHandler changes the handler shared by all loggers.
func SetHandler(h log.Handler) {
	handler = h
	handler.SetFormatter(logFormatter{})
}

// SetLevel sets the logging level on the shared handler.
// Individual loggers forward every message; filtering happens here.
func SetLevel(l log.Level) {
	handler.SetLevel(l)
}

// Logger is used for all messages logged from inside this module.
type Logger log.Logger

// New returns a Logger with the given name.
// The name appears as a prefix in each message written by the default handler.
func New(name string) Logger {
	l := log.NewLogger(name)
	l.SetLevel(log.DEBUG)
	l.SetHandler(handler)
	return l
}

type logFormatter struct{}

// Format writes records as "2014-02-28 18:15:57 DEBUG    [name] file.go:12 message".
func (f logFormatter) Format(rec *log.Record) string {
	return fmt.Sprintf("%s %-8s [%s] %s %s",
		fmt.Sprint(rec.Time)[:19],
		rec.Level,
		rec.LoggerName,
		filepath.Base(rec.Filename)+":"+strconv.Itoa(rec.Line),
		rec.Message)
}
