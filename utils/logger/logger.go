package logger

import (
	"fmt"
	"io"
	"reflect"

	"github.com/sirupsen/logrus"
)

type stringer interface {
	String() string
}

// objWidth is the width of the object column every line is prefixed with.
const objWidth = 20

var std = logrus.New()

func objToString(obj any) (objStr string) {
	if obj == nil {
		objStr = "NIL"
	} else if stringerObj, ok := obj.(stringer); ok {
		objStr = stringerObj.String()
	} else if objStr, ok = obj.(string); ok {
	} else if t := reflect.TypeOf(obj); t.Kind() == reflect.Pointer {
		objStr = t.Elem().Name()
	} else {
		objStr = t.Name()
	}
	if len(objStr) > objWidth {
		objStr = objStr[:objWidth]
	}
	return
}

func format(obj any, message string) string {
	return fmt.Sprintf("|%20s|%-100s", objToString(obj), message)
}

// Init sets the level and the text formatter used by every logging call.
func Init(lvl logrus.Level) {
	std.SetLevel(lvl)
	std.SetFormatter(&logrus.TextFormatter{
		ForceColors:     true,
		FullTimestamp:   true,
		PadLevelText:    true,
		TimestampFormat: "2006/02/01 15:04:05",
	})
}

// InitLevel parses a level name ("debug", "warning", ...) and calls Init.
func InitLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	Init(lvl)
	return nil
}

// SetOutput redirects the log output, mostly for tests.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// Level returns the current level.
func Level() logrus.Level {
	return std.GetLevel()
}

// Entry tags a logrus entry with the object column so that structured fields can be attached.
type Entry struct {
	obj   any
	entry *logrus.Entry
}

// WithFields returns an Entry for obj carrying the given fields.
func WithFields(obj any, fields logrus.Fields) Entry {
	return Entry{obj: obj, entry: std.WithFields(fields)}
}

func (e Entry) Debug(message string) {
	if std.GetLevel() < logrus.DebugLevel {
		return
	}
	e.entry.Debug(format(e.obj, message))
}

func (e Entry) Info(message string) {
	if std.GetLevel() < logrus.InfoLevel {
		return
	}
	e.entry.Info(format(e.obj, message))
}

func (e Entry) Warning(message string) {
	if std.GetLevel() < logrus.WarnLevel {
		return
	}
	e.entry.Warning(format(e.obj, message))
}

func Trace(object any, message string) {
	if std.GetLevel() < logrus.TraceLevel {
		return
	}
	std.Trace(format(object, message))
}

func Tracef(object any, message string, args ...any) {
	if std.GetLevel() < logrus.TraceLevel {
		return
	}
	std.Trace(format(object, fmt.Sprintf(message, args...)))
}

func Debug(object any, message string) {
	if std.GetLevel() < logrus.DebugLevel {
		return
	}
	std.Debug(format(object, message))
}

func Debugf(object any, message string, args ...any) {
	if std.GetLevel() < logrus.DebugLevel {
		return
	}
	std.Debug(format(object, fmt.Sprintf(message, args...)))
}

func Info(object any, message string) {
	if std.GetLevel() < logrus.InfoLevel {
		return
	}
	std.Info(format(object, message))
}

func Infof(object any, message string, args ...any) {
	if std.GetLevel() < logrus.InfoLevel {
		return
	}
	std.Info(format(object, fmt.Sprintf(message, args...)))
}

func Warning(object any, message string) {
	if std.GetLevel() < logrus.WarnLevel {
		return
	}
	std.Warning(format(object, message))
}

func Warningf(object any, message string, args ...any) {
	if std.GetLevel() < logrus.WarnLevel {
		return
	}
	std.Warning(format(object, fmt.Sprintf(message, args...)))
}

func Error(object any, message string) {
	if std.GetLevel() < logrus.ErrorLevel {
		return
	}
	std.Error(format(object, message))
}

func Errorf(object any, message string, args ...any) {
	if std.GetLevel() < logrus.ErrorLevel {
		return
	}
	std.Error(format(object, fmt.Sprintf(message, args...)))
}

func Fatal(object any, message string) {
	std.Fatal(format(object, message))
}

func Fatalf(object any, message string, args ...any) {
	std.Fatal(format(object, fmt.Sprintf(message, args...)))
}
