// Package notify is the sink for user-facing failure messages, the toast of
// the web client this store replaces.
package notify

import "go.uber.org/zap"

// Notifier receives one-line user-facing error messages. Delivery is fire
// and forget.
type Notifier interface {
	Error(message string)
}

// Func adapts a plain function to the Notifier interface.
type Func func(message string)

// Error calls f.
func (f Func) Error(message string) { f(message) }

// Log is a Notifier that writes messages through a zap logger at warn
// level, for deployments with no interactive surface to toast at.
type Log struct {
	logger *zap.Logger
}

// NewLog creates a logging notifier.
func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger}
}

// Error logs the message.
func (l *Log) Error(message string) {
	l.logger.Warn("user notification", zap.String("message", message))
}

// Nop discards all messages.
var Nop = Func(func(string) {})
