package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Options configures the process-wide logger.
type Options struct {
	Level Level
	// Pretty switches from JSON lines to zerolog's human-readable console writer.
	Pretty bool
	// Output defaults to stderr.
	Output io.Writer
}

var (
	mu         sync.RWMutex
	logger     zerolog.Logger
	loggerOnce sync.Once
)

// initLogger installs the default stderr logger at INFO the first time it is needed.
func initLogger() {
	loggerOnce.Do(func() {
		mu.Lock()
		logger = newLogger(Options{Level: LevelInfo})
		mu.Unlock()
	})
}

func newLogger(opts Options) zerolog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).
		Level(toZerolog(opts.Level)).
		With().
		Timestamp().
		Logger()
}

// Configure replaces the process-wide logger.
func Configure(opts Options) {
	initLogger()
	mu.Lock()
	logger = newLogger(opts)
	mu.Unlock()
}

func SetLevel(l Level) {
	initLogger()
	mu.Lock()
	logger = logger.Level(toZerolog(l))
	mu.Unlock()
}

// ParseLevel maps config strings such as "debug" or "WARN" to a Level.
// Unknown values yield LevelInfo.
func ParseLevel(s string) Level {
	switch Level(strings.ToUpper(strings.TrimSpace(s))) {
	case LevelDebug:
		return LevelDebug
	case LevelWarn, "WARNING":
		return LevelWarn
	case LevelError:
		return LevelError
	default:
		return LevelInfo
	}
}

func Debug(msg string, kv ...any) {
	current().Debug().Fields(fieldsOf(kv)).Msg(msg)
}

func Info(msg string, kv ...any) {
	current().Info().Fields(fieldsOf(kv)).Msg(msg)
}

func Warn(msg string, kv ...any) {
	current().Warn().Fields(fieldsOf(kv)).Msg(msg)
}

func Error(msg string, err error, kv ...any) {
	current().Error().Err(err).Fields(fieldsOf(kv)).Msg(msg)
}

func current() *zerolog.Logger {
	initLogger()
	mu.RLock()
	l := logger
	mu.RUnlock()
	return &l
}

func toZerolog(l Level) zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// fieldsOf turns key, value, key, value, ... into a zerolog field map.
// Non-string keys are skipped and a trailing odd value is ignored.
func fieldsOf(kv []any) map[string]any {
	if len(kv) < 2 {
		return nil
	}
	out := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		out[key] = safeValue(kv[i+1])
	}
	return out
}

// safeValue keeps JSON-friendly scalars and stringifies the rest.
func safeValue(v any) any {
	switch v := v.(type) {
	case nil, string, bool, int, int64, float64, time.Time, time.Duration:
		return v
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
