package testing

import (
	"fmt"
	"strings"
	"testing"

	"github.com/korospace/BE-WA-blaster/types"
)

// NewTestLogger creates a types.Logger that routes log output through the
// test's own log, so records interleave with t.Log output and are only
// shown for failing tests (or with -v).
//
// Parameters:
//   - t: Test to log through
//
// Returns:
//   - types.Logger: Logger bound to the test
func NewTestLogger(t *testing.T) types.Logger {
	return &tLogger{t: t}
}

type tLogger struct {
	t *testing.T
}

var _ types.Logger = (*tLogger)(nil)

func (l *tLogger) Debug(msg string, keysAndValues ...any) {
	l.log("DEBUG", msg, keysAndValues)
}

func (l *tLogger) Info(msg string, keysAndValues ...any) {
	l.log("INFO", msg, keysAndValues)
}

func (l *tLogger) Warn(msg string, keysAndValues ...any) {
	l.log("WARN", msg, keysAndValues)
}

func (l *tLogger) Error(msg string, keysAndValues ...any) {
	l.log("ERROR", msg, keysAndValues)
}

func (l *tLogger) Fatal(msg string, keysAndValues ...any) {
	l.t.Helper()
	l.t.Fatalf("FATAL %s%s", msg, formatFields(keysAndValues))
}

func (l *tLogger) log(level, msg string, keysAndValues []any) {
	l.t.Helper()
	l.t.Logf("%-5s %s%s", level, msg, formatFields(keysAndValues))
}

// formatFields renders key-value pairs as " k=v k=v". A trailing key
// without a value is rendered as k=?.
func formatFields(keysAndValues []any) string {
	if len(keysAndValues) == 0 {
		return ""
	}

	var b strings.Builder
	for i := 0; i < len(keysAndValues); i += 2 {
		if i+1 < len(keysAndValues) {
			fmt.Fprintf(&b, " %v=%v", keysAndValues[i], keysAndValues[i+1])
		} else {
			fmt.Fprintf(&b, " %v=?", keysAndValues[i])
		}
	}

	return b.String()
}
