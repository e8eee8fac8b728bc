// Package logger builds component loggers that print a colored prefix in
// front of every line, e.g. "[SERVER-SOCKET] [INFO] accepted connection".
package logger

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

const (
	prefixField     = "component"
	timestampLayout = "2006-01-02 15:04:05"
	colorReset      = "\033[0m"
)

var ErrNilWriter = errors.New("log output writer is nil")

var (
	settingsLock sync.RWMutex
	level        = logrus.InfoLevel
	jsonFormat   bool
)

// Init sets the level and format used by loggers created afterwards.
// Format is "text" or "json"; unknown levels fall back to info.
func Init(lvl, format string) {
	settingsLock.Lock()
	defer settingsLock.Unlock()

	parsed, err := logrus.ParseLevel(lvl)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	level = parsed
	jsonFormat = strings.EqualFold(format, "json")
}

// New returns a logger whose lines are tagged with prefix, colored with color.
func New(prefix, color string, out io.Writer) (*logrus.Entry, error) {
	if out == nil {
		return nil, ErrNilWriter
	}

	settingsLock.RLock()
	defer settingsLock.RUnlock()

	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(level)
	if jsonFormat {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&prefixFormatter{color: color})
	}

	return l.WithField(prefixField, prefix), nil
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// prefixFormatter renders "time <color>[PREFIX]<reset> [LEVEL] message key=value ...".
type prefixFormatter struct {
	color string
}

func (f *prefixFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer

	b.WriteString(e.Time.Format(timestampLayout))
	b.WriteByte(' ')
	if prefix, ok := e.Data[prefixField]; ok {
		fmt.Fprintf(&b, "%s[%v]%s ", f.color, prefix, colorReset)
	}
	fmt.Fprintf(&b, "[%s] %s", strings.ToUpper(e.Level.String()), e.Message)

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		if k != prefixField {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}
