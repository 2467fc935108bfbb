package bankengine

type (
	// Logger is the structured logger used by every component.
	// Fields are added through a callback so a disabled level costs nothing.
	Logger interface {
		Error(msg string, fields func(LoggerEntry))
		Warn(msg string, fields func(LoggerEntry))
		Info(msg string, fields func(LoggerEntry))
		Debug(msg string, fields func(LoggerEntry))

		WithFields(fields func(LoggerEntry)) Logger
	}

	// LoggerEntry collects the fields of a log line
	LoggerEntry interface {
		Int(k string, v int)
		Int64(k string, v int64)
		String(k, v string)
		Error(err error)
		Any(k string, v interface{})
	}

	discardLogger struct{}
)

// NopLogger discards everything, constructors fall back to it when given a nil Logger
var NopLogger Logger = discardLogger{}

func (discardLogger) Error(string, func(LoggerEntry)) {}

func (discardLogger) Warn(string, func(LoggerEntry)) {}

func (discardLogger) Info(string, func(LoggerEntry)) {}

func (discardLogger) Debug(string, func(LoggerEntry)) {}

func (l discardLogger) WithFields(func(LoggerEntry)) Logger {
	return l
}
