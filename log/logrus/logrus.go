// Package logrus adapts a logrus logger or entry to methodcache.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/methodcache"
)

var _ methodcache.Logger = Logger{}

type Logger struct{ L logrus.FieldLogger }

func New(l logrus.FieldLogger) Logger {
	return Logger{L: l.WithField("component", "methodcache")}
}

func (l Logger) Debug(msg string, f methodcache.Fields) { l.with(f).Debug(msg) }
func (l Logger) Info(msg string, f methodcache.Fields)  { l.with(f).Info(msg) }
func (l Logger) Warn(msg string, f methodcache.Fields)  { l.with(f).Warn(msg) }
func (l Logger) Error(msg string, f methodcache.Fields) { l.with(f).Error(msg) }

func (l Logger) with(f methodcache.Fields) logrus.FieldLogger {
	if len(f) == 0 {
		return l.L
	}
	return l.L.WithFields(logrus.Fields(f))
}
