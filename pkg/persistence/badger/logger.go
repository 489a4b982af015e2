package badger

import (
	"strings"

	badgerdb "github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"
)

// zapBadgerLogger routes badger's printf-style logging into a sugared zap
// logger tagged with the store component.
type zapBadgerLogger struct {
	sugar *zap.SugaredLogger
}

var _ badgerdb.Logger = (*zapBadgerLogger)(nil)

func newZapBadgerLogger(l *zap.Logger) *zapBadgerLogger {
	return &zapBadgerLogger{sugar: l.Sugar().With("component", "badger")}
}

// badger terminates most messages with a newline.
func trimFormat(format string) string {
	return strings.TrimRight(format, "\n")
}

func (z *zapBadgerLogger) Errorf(format string, args ...interface{}) {
	z.sugar.Errorf(trimFormat(format), args...)
}

func (z *zapBadgerLogger) Warningf(format string, args ...interface{}) {
	z.sugar.Warnf(trimFormat(format), args...)
}

func (z *zapBadgerLogger) Infof(format string, args ...interface{}) {
	z.sugar.Infof(trimFormat(format), args...)
}

func (z *zapBadgerLogger) Debugf(format string, args ...interface{}) {
	z.sugar.Debugf(trimFormat(format), args...)
}
