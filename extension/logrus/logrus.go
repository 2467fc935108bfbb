package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/hellofresh/bankengine"
)

var _ bankengine.Logger = &wrapper{}

type (
	wrapper struct {
		entry *logrus.Entry
	}

	entry logrus.Fields
)

// Wrap wraps a logrus.Logger
func Wrap(logger *logrus.Logger) bankengine.Logger {
	return &wrapper{entry: logrus.NewEntry(logger)}
}

// WrapEntry wraps a logrus.Entry
func WrapEntry(entry *logrus.Entry) bankengine.Logger {
	return &wrapper{entry: entry}
}

// StandardLogger return a wrapped version of the logrus.StandardLogger()
func StandardLogger() bankengine.Logger {
	return Wrap(logrus.StandardLogger())
}

func (w *wrapper) Error(msg string, fields func(bankengine.LoggerEntry)) {
	w.log(logrus.ErrorLevel, msg, fields)
}

func (w *wrapper) Warn(msg string, fields func(bankengine.LoggerEntry)) {
	w.log(logrus.WarnLevel, msg, fields)
}

func (w *wrapper) Info(msg string, fields func(bankengine.LoggerEntry)) {
	w.log(logrus.InfoLevel, msg, fields)
}

func (w *wrapper) Debug(msg string, fields func(bankengine.LoggerEntry)) {
	w.log(logrus.DebugLevel, msg, fields)
}

func (w *wrapper) WithFields(fields func(bankengine.LoggerEntry)) bankengine.Logger {
	if fields == nil {
		return w
	}

	e := entry{}
	fields(e)

	return &wrapper{entry: w.entry.WithFields(logrus.Fields(e))}
}

func (w *wrapper) log(level logrus.Level, msg string, fields func(bankengine.LoggerEntry)) {
	if !w.entry.Logger.IsLevelEnabled(level) {
		return
	}

	if fields == nil {
		w.entry.Log(level, msg)
		return
	}

	e := entry{}
	fields(e)
	w.entry.WithFields(logrus.Fields(e)).Log(level, msg)
}

func (e entry) Int(k string, v int) {
	e[k] = v
}

func (e entry) Int64(k string, v int64) {
	e[k] = v
}

func (e entry) String(k, v string) {
	e[k] = v
}

func (e entry) Error(err error) {
	e[logrus.ErrorKey] = err
}

func (e entry) Any(k string, v interface{}) {
	e[k] = v
}
