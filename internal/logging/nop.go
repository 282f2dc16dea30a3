package logging

import "github.com/korospace/BE-WA-blaster/types"

// NopLogger discards all log output.
//
// Useful in tests and benchmarks where log output is unwanted.
type NopLogger struct{}

var _ types.Logger = (*NopLogger)(nil)

// NewNop creates a new no-op logger.
func NewNop() *NopLogger {
	return &NopLogger{}
}

// Debug discards the message.
func (*NopLogger) Debug(_ string, _ ...any) {}

// Info discards the message.
func (*NopLogger) Info(_ string, _ ...any) {}

// Warn discards the message.
func (*NopLogger) Warn(_ string, _ ...any) {}

// Error discards the message.
func (*NopLogger) Error(_ string, _ ...any) {}

// Fatal discards the message. Unlike real loggers it does not exit, so
// the nop logger is safe in tests.
func (*NopLogger) Fatal(_ string, _ ...any) {}
