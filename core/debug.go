package core

import "fmt"

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// Logger receives the driver's diagnostics. *logrus.Logger and
// *logrus.Entry satisfy it as they are.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// DebugLogger adapts a platform debug writer (UART, USB, println) to Logger.
// Debug level messages are only written when verbose is set.
func DebugLogger(w DebugWriter, verbose bool) Logger {
	if w == nil {
		return NopLogger
	}
	return &debugLogger{write: w, verbose: verbose}
}

type debugLogger struct {
	write   DebugWriter
	verbose bool
}

func (l *debugLogger) Debugf(format string, args ...interface{}) {
	if l.verbose {
		l.write("[DEBUG] " + fmt.Sprintf(format, args...))
	}
}

func (l *debugLogger) Infof(format string, args ...interface{}) {
	l.write("[INFO] " + fmt.Sprintf(format, args...))
}

func (l *debugLogger) Warnf(format string, args ...interface{}) {
	l.write("[WARN] " + fmt.Sprintf(format, args...))
}

func (l *debugLogger) Errorf(format string, args ...interface{}) {
	l.write("[ERROR] " + fmt.Sprintf(format, args...))
}

// NopLogger discards everything.
var NopLogger Logger = nopLogger{}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
