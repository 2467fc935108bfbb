package zap

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hellofresh/bankengine"
)

var _ bankengine.Logger = &wrapper{}

type (
	wrapper struct {
		logger *zap.Logger
	}

	entry struct {
		fields []zap.Field
	}
)

// Wrap wraps a zap.Logger
func Wrap(logger *zap.Logger) bankengine.Logger {
	return &wrapper{logger: logger}
}

func (w *wrapper) Error(msg string, fields func(bankengine.LoggerEntry)) {
	if ce := w.logger.Check(zapcore.ErrorLevel, msg); ce != nil {
		ce.Write(collect(fields)...)
	}
}

func (w *wrapper) Warn(msg string, fields func(bankengine.LoggerEntry)) {
	if ce := w.logger.Check(zapcore.WarnLevel, msg); ce != nil {
		ce.Write(collect(fields)...)
	}
}

func (w *wrapper) Info(msg string, fields func(bankengine.LoggerEntry)) {
	if ce := w.logger.Check(zapcore.InfoLevel, msg); ce != nil {
		ce.Write(collect(fields)...)
	}
}

func (w *wrapper) Debug(msg string, fields func(bankengine.LoggerEntry)) {
	if ce := w.logger.Check(zapcore.DebugLevel, msg); ce != nil {
		ce.Write(collect(fields)...)
	}
}

func (w *wrapper) WithFields(fields func(bankengine.LoggerEntry)) bankengine.Logger {
	if fields == nil {
		return w
	}

	return &wrapper{logger: w.logger.With(collect(fields)...)}
}

func collect(fields func(bankengine.LoggerEntry)) []zap.Field {
	if fields == nil {
		return nil
	}

	e := &entry{}
	fields(e)

	return e.fields
}

func (e *entry) Int(k string, v int) {
	e.fields = append(e.fields, zap.Int(k, v))
}

func (e *entry) Int64(k string, v int64) {
	e.fields = append(e.fields, zap.Int64(k, v))
}

func (e *entry) String(k, v string) {
	e.fields = append(e.fields, zap.String(k, v))
}

func (e *entry) Error(err error) {
	e.fields = append(e.fields, zap.Error(err))
}

func (e *entry) Any(k string, v interface{}) {
	e.fields = append(e.fields, zap.Any(k, v))
}
