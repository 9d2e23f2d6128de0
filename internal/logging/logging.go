// Package logging installs a file-backed slog default for the command. The
// terminal belongs to the console, so nothing is written to stdout.
//
// Library packages log through otelslog. Setup also installs a global OTel
// LoggerProvider whose records end up in the same file.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

var (
	otelRecords = &forwarder{}
	installOnce sync.Once
)

// Setup opens path for appending and makes it the destination of the slog
// default logger and of OTel log records. closeFn closes the file.
func Setup(path, level string) (closeFn func() error, err error) {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	slog.SetDefault(slog.New(New(file, parsed)))

	// The otelslog loggers bind to the first provider set, so the provider
	// is installed once and only its destination changes.
	installOnce.Do(func() {
		global.SetLoggerProvider(sdklog.NewLoggerProvider(
			sdklog.WithProcessor(sdklog.NewSimpleProcessor(otelRecords)),
		))
	})
	otelRecords.set(log.NewWithOptions(file, log.Options{
		ReportTimestamp: true,
		Level:           parsed,
	}))

	return func() error {
		otelRecords.set(nil)
		return file.Close()
	}, nil
}

// New returns a charm logger writing to w, usable as a slog.Handler.
func New(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		Level:           level,
	})
}

// forwarder is an sdklog.Exporter writing records to a charm logger. Records
// are dropped while no logger is set.
type forwarder struct {
	mu     sync.RWMutex
	logger *log.Logger
}

func (f *forwarder) set(logger *log.Logger) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logger = logger
}

func (f *forwarder) Export(_ context.Context, records []sdklog.Record) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.logger == nil {
		return nil
	}

	for i := range records {
		record := &records[i]
		keyvals := []any{"scope", record.InstrumentationScope().Name}
		record.WalkAttributes(func(kv otellog.KeyValue) bool {
			keyvals = append(keyvals, kv.Key, value(kv.Value))
			return true
		})
		f.logger.Log(level(record.Severity()), value(record.Body()), keyvals...)
	}
	return nil
}

func (f *forwarder) Shutdown(context.Context) error   { return nil }
func (f *forwarder) ForceFlush(context.Context) error { return nil }

func level(severity otellog.Severity) log.Level {
	switch {
	case severity >= otellog.SeverityError:
		return log.ErrorLevel
	case severity >= otellog.SeverityWarn:
		return log.WarnLevel
	case severity >= otellog.SeverityInfo:
		return log.InfoLevel
	default:
		return log.DebugLevel
	}
}

func value(v otellog.Value) any {
	switch v.Kind() {
	case otellog.KindBool:
		return v.AsBool()
	case otellog.KindInt64:
		return v.AsInt64()
	case otellog.KindFloat64:
		return v.AsFloat64()
	case otellog.KindString:
		return v.AsString()
	default:
		return v.String()
	}
}
