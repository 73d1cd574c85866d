package log

import (
	"github.com/sirupsen/logrus"
	waLog "go.mau.fi/whatsmeow/util/log"
)

type waLogger struct {
	entry *logrus.Entry
}

// WA adapts the process logger to the whatsmeow logging interface
func WA(module string) waLog.Logger {
	return &waLogger{entry: logger.WithField("module", module)}
}

func (l *waLogger) Warnf(msg string, args ...interface{})  { l.entry.Warnf(msg, args...) }
func (l *waLogger) Errorf(msg string, args ...interface{}) { l.entry.Errorf(msg, args...) }
func (l *waLogger) Infof(msg string, args ...interface{})  { l.entry.Infof(msg, args...) }
func (l *waLogger) Debugf(msg string, args ...interface{}) { l.entry.Debugf(msg, args...) }

func (l *waLogger) Sub(module string) waLog.Logger {
	parent, _ := l.entry.Data["module"].(string)
	if parent != "" {
		module = parent + "/" + module
	}
	return &waLogger{entry: l.entry.WithField("module", module)}
}
