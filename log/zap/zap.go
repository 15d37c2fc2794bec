// Package zap adapts a *zap.Logger to methodcache.Logger.
package zap

import (
	"sort"

	"go.uber.org/zap"

	"github.com/unkn0wn-root/methodcache"
)

var _ methodcache.Logger = Logger{}

type Logger struct{ L *zap.Logger }

// New names the logger "methodcache" so registry events are easy to filter.
func New(l *zap.Logger) Logger {
	return Logger{L: l.Named("methodcache")}
}

func (z Logger) Debug(msg string, f methodcache.Fields) { z.L.Debug(msg, fields(f)...) }
func (z Logger) Info(msg string, f methodcache.Fields)  { z.L.Info(msg, fields(f)...) }
func (z Logger) Warn(msg string, f methodcache.Fields)  { z.L.Warn(msg, fields(f)...) }
func (z Logger) Error(msg string, f methodcache.Fields) { z.L.Error(msg, fields(f)...) }

// fields emits in key order so log lines are stable.
func fields(f methodcache.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]zap.Field, 0, len(f))
	for _, k := range keys {
		if err, ok := f[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, f[k]))
	}
	return out
}
