package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/purushottampradhan001-creator/answer-sheet-scan/observability"
)

// stderrLogger is a minimal key=value logger for CLI runs.
type stderrLogger struct {
	verbose bool
	fields  []observability.Field
}

func newStderrLogger(verbose bool) *stderrLogger {
	return &stderrLogger{verbose: verbose}
}

func (l *stderrLogger) write(level, msg string, fields []observability.Field) {
	var b strings.Builder
	for _, f := range append(l.fields, fields...) {
		fmt.Fprintf(&b, " %s=%v", f.Key(), f.Value())
	}
	fmt.Fprintf(os.Stderr, "%-5s %s%s\n", level, msg, b.String())
}

func (l *stderrLogger) Debug(msg string, fields ...observability.Field) {
	if l.verbose {
		l.write("DEBUG", msg, fields)
	}
}

func (l *stderrLogger) Info(msg string, fields ...observability.Field) {
	l.write("INFO", msg, fields)
}

func (l *stderrLogger) Warn(msg string, fields ...observability.Field) {
	l.write("WARN", msg, fields)
}

func (l *stderrLogger) Error(msg string, fields ...observability.Field) {
	l.write("ERROR", msg, fields)
}

func (l *stderrLogger) With(fields ...observability.Field) observability.Logger {
	combined := make([]observability.Field, 0, len(l.fields)+len(fields))
	combined = append(combined, l.fields...)
	combined = append(combined, fields...)
	return &stderrLogger{verbose: l.verbose, fields: combined}
}
