// Package observability defines the structured logger used across the review
// pipeline. Library packages log through Logger and default to NopLogger; the
// command line installs the logrus-backed implementation.
package observability

type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
}

type Field interface {
	Key() string
	Value() interface{}
}

type field struct {
	key string
	val interface{}
}

func (f field) Key() string        { return f.key }
func (f field) Value() interface{} { return f.val }

func String(key, value string) Field       { return field{key, value} }
func Int(key string, value int) Field      { return field{key, value} }
func Int64(key string, value int64) Field  { return field{key, value} }
func Bool(key string, value bool) Field    { return field{key, value} }
func Strings(key string, v []string) Field { return field{key, append([]string(nil), v...)} }
func Ints(key string, v []int) Field       { return field{key, append([]int(nil), v...)} }
func Any(key string, value interface{}) Field {
	return field{key, value}
}

// Error attaches err under key. A nil error is logged as an empty string.
func Error(key string, err error) Field {
	if err == nil {
		return field{key, ""}
	}
	return field{key, err.Error()}
}

type NopLogger struct{}

func (NopLogger) Debug(string, ...Field) {}
func (NopLogger) Info(string, ...Field)  {}
func (NopLogger) Warn(string, ...Field)  {}
func (NopLogger) Error(string, ...Field) {}
func (NopLogger) With(...Field) Logger   { return NopLogger{} }

// OrNop returns l, or NopLogger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NopLogger{}
	}
	return l
}
