// Package zap adapts a *zap.Logger to rkv.Logger.
package zap

import (
	"sort"

	"go.uber.org/zap"

	"github.com/unkn0wn-root/rkv"
)

var _ rkv.Logger = Logger{}

type Logger struct{ L *zap.Logger }

func New(l *zap.Logger) Logger { return Logger{L: l.WithOptions(zap.AddCallerSkip(1))} }

func (z Logger) Debug(msg string, f rkv.Fields) { z.L.Debug(msg, fields(f)...) }
func (z Logger) Info(msg string, f rkv.Fields)  { z.L.Info(msg, fields(f)...) }
func (z Logger) Warn(msg string, f rkv.Fields)  { z.L.Warn(msg, fields(f)...) }
func (z Logger) Error(msg string, f rkv.Fields) { z.L.Error(msg, fields(f)...) }

// fields renders f in key order; errors go through zap.NamedError.
func fields(f rkv.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	names := make([]string, 0, len(f))
	for k := range f {
		names = append(names, k)
	}
	sort.Strings(names)

	out := make([]zap.Field, 0, len(f))
	for _, k := range names {
		if err, ok := f[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, f[k]))
	}
	return out
}
