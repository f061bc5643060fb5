package spank

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/felixgeelhaar/gospank/internal/spankapi"
	"github.com/hashicorp/go-hclog"
)

// LogLevel selects one of the host's logging channels.
type LogLevel = spankapi.Severity

const (
	LogLevelError   LogLevel = spankapi.SevError
	LogLevelInfo    LogLevel = spankapi.SevInfo
	LogLevelVerbose LogLevel = spankapi.SevVerbose
	LogLevelDebug   LogLevel = spankapi.SevDebug
	LogLevelDebug2  LogLevel = spankapi.SevDebug2
	LogLevelDebug3  LogLevel = spankapi.SevDebug3
)

// Log emits a message through the host's logging facility at the given
// severity. Embedded NUL bytes cannot cross into the host's printf-style
// loggers; rather than reject the message they are rendered as "0", which
// is kinder to an author who has no way to handle the failure.
func Log(level LogLevel, msg string) {
	msg = strings.ReplaceAll(msg, "\x00", "0")
	if api := currentAPI(); api != nil {
		api.Log(level, msg)
		return
	}
	// No host yet (nothing has called back into the plugin). Fall back to
	// the process default logger so the message is not lost.
	fallbackLog(level, msg)
}

// Logf formats and emits a message at the given severity.
func Logf(level LogLevel, format string, args ...any) {
	Log(level, fmt.Sprintf(format, args...))
}

// LogUser relays a message to the user's terminal (srun output) through
// slurm_spank_log.
func LogUser(format string, args ...any) {
	msg := strings.ReplaceAll(fmt.Sprintf(format, args...), "\x00", "0")
	if api := currentAPI(); api != nil {
		api.Log(spankapi.SevUser, msg)
		return
	}
	fallbackLog(LogLevelInfo, msg)
}

func fallbackLog(level LogLevel, msg string) {
	switch level {
	case LogLevelError:
		hclog.Default().Error(msg)
	case LogLevelInfo:
		hclog.Default().Info(msg)
	default:
		hclog.Default().Debug(msg)
	}
}

var hostLoggerState struct {
	once   sync.Once
	logger hclog.InterceptLogger
}

// hostLogger returns the process-wide structured logger whose records are
// forwarded to the host's logging channels. Built lazily once; the sink
// resolves the host on every record so the logger survives being created
// before the first callback.
func hostLogger() hclog.InterceptLogger {
	hostLoggerState.once.Do(func() {
		logger := hclog.NewInterceptLogger(&hclog.LoggerOptions{
			Name:   "spank",
			Level:  hclog.Trace,
			Output: io.Discard,
		})
		logger.RegisterSink(&hostSink{})
		hostLoggerState.logger = logger
	})
	return hostLoggerState.logger
}

// hostSink adapts hclog records onto the host's leveled log channels.
type hostSink struct{}

var _ hclog.SinkAdapter = (*hostSink)(nil)

func (s *hostSink) Accept(name string, level hclog.Level, msg string, args ...interface{}) {
	// Deliver straight to the host rather than through Log: once Setup has
	// made this logger the hclog default, Log's fallback path leads back
	// into this sink. Records emitted while no host is active are dropped.
	api := currentAPI()
	if api == nil {
		return
	}

	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
	}
	if len(args)%2 == 1 {
		fmt.Fprintf(&b, " %v", args[len(args)-1])
	}
	api.Log(severityFor(level), strings.ReplaceAll(b.String(), "\x00", "0"))
}

// severityFor maps hclog levels onto the host's severities. Trace has no
// host counterpart and lands on the quietest debug channel.
func severityFor(level hclog.Level) spankapi.Severity {
	switch level {
	case hclog.Error:
		return spankapi.SevError
	case hclog.Warn, hclog.Info:
		return spankapi.SevInfo
	case hclog.Debug:
		return spankapi.SevDebug
	case hclog.Trace:
		return spankapi.SevDebug3
	default:
		return spankapi.SevVerbose
	}
}
