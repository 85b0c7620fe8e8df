package core

import (
	"fmt"
	"log"
	"strings"
)

// Logger is the runtime's structured logging facade. The runtime itself logs
// sparingly (lifecycle transitions, stream churn, rejected operations);
// adapters for richer backends live under observability/ (see zaplog).
type Logger interface {
	// Debug logs worker-loop and stream-churn detail.
	Debug(msg string, fields ...Field)

	// Info logs lifecycle transitions.
	Info(msg string, fields ...Field)

	// Warn logs rejected or degraded operations.
	Warn(msg string, fields ...Field)

	// Error logs failures the runtime cannot handle itself.
	Error(msg string, fields ...Field)
}

// Field is one key/value pair attached to a log line.
type Field struct {
	Key   string
	Value any
}

// F is shorthand for constructing a Field.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// DefaultLogger writes leveled lines through the standard log package. It is
// the logger a Runtime gets when Options.Logger is nil.
type DefaultLogger struct{}

func NewDefaultLogger() *DefaultLogger {
	return &DefaultLogger{}
}

func (l *DefaultLogger) Debug(msg string, fields ...Field) {
	l.write("DEBUG", msg, fields)
}

func (l *DefaultLogger) Info(msg string, fields ...Field) {
	l.write("INFO", msg, fields)
}

func (l *DefaultLogger) Warn(msg string, fields ...Field) {
	l.write("WARN", msg, fields)
}

func (l *DefaultLogger) Error(msg string, fields ...Field) {
	l.write("ERROR", msg, fields)
}

func (l *DefaultLogger) write(level, msg string, fields []Field) {
	if len(fields) == 0 {
		log.Printf("[%s] %s", level, msg)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s {", level, msg)
	for i, f := range fields {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %v", f.Key, f.Value)
	}
	b.WriteString("}")
	log.Println(b.String())
}

// NoOpLogger discards everything. Tests use it to keep output quiet.
type NoOpLogger struct{}

func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (l *NoOpLogger) Debug(msg string, fields ...Field) {}
func (l *NoOpLogger) Info(msg string, fields ...Field)  {}
func (l *NoOpLogger) Warn(msg string, fields ...Field)  {}
func (l *NoOpLogger) Error(msg string, fields ...Field) {}
