package logger

import (
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// Logger is the structured logger injected into every faucet kit component. Components take a
// Logger and name it after themselves, e.g. lggr.Named("resolver").
//
// Levels
//   - Error: an action failed and the failure was surfaced to the caller.
//   - Warn: something degraded but the action went on. Example: manifest fetch failed, defaults kept.
//   - Info: high level progress. Example: transaction broadcast, outcome resolved.
//   - Debug: forensic detail. Example: a single poll attempt returned no decisive status.
type Logger interface {
	Name() string
	Named(name string) Logger
	With(keysAndValues ...any) Logger

	Debug(args ...any)
	Info(args ...any)
	Warn(args ...any)
	Error(args ...any)

	Debugw(msg string, keysAndValues ...any)
	Infow(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
	Errorw(msg string, keysAndValues ...any)

	Sync() error
}

// Output encodings accepted by Config.Format.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

type Config struct {
	Level zapcore.Level
	// Format is FormatJSON (default) or FormatConsole.
	Format string
	// Suppress drops entries whose message contains any of these substrings.
	Suppress []string
}

// New builds a production logger writing to stderr.
func (c Config) New() (Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(c.Level)

	switch c.Format {
	case "", FormatJSON:
	case FormatConsole:
		zc.Encoding = FormatConsole
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
		zc.Sampling = nil
	default:
		return nil, fmt.Errorf("unknown log format %q", c.Format)
	}

	zl, err := zc.Build()
	if err != nil {
		return nil, err
	}

	return FilterNoise(wrap(zl), c.Suppress...), nil
}

// Test returns a debug level logger writing through tb.
func Test(tb testing.TB) Logger {
	tb.Helper()

	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")

	return wrap(zap.New(zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zaptest.NewTestingWriter(tb), zapcore.DebugLevel)))
}

// TestObserved is Test with every entry at or above lvl also recorded in the returned logs.
func TestObserved(tb testing.TB, lvl zapcore.Level) (Logger, *observer.ObservedLogs) {
	tb.Helper()

	obs, logs := observer.New(lvl)
	tee := zap.WrapCore(func(c zapcore.Core) zapcore.Core { return zapcore.NewTee(c, obs) })

	return wrap(zaptest.NewLogger(tb, zaptest.WrapOptions(tee, zap.AddCaller()))), logs
}

// Nop discards everything.
func Nop() Logger { return wrap(zap.NewNop()) }

// FilterNoise returns a Logger that drops entries whose message contains any of substrings.
// Third party chatter is filtered this way at the CLI boundary.
func FilterNoise(lggr Logger, substrings ...string) Logger {
	l, ok := lggr.(*sugared)
	if !ok || len(substrings) == 0 {
		return lggr
	}

	return wrap(l.Desugar().WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return &noiseCore{Core: c, substrings: substrings}
	})))
}

type noiseCore struct {
	zapcore.Core
	substrings []string
}

func (c *noiseCore) With(fields []zapcore.Field) zapcore.Core {
	return &noiseCore{Core: c.Core.With(fields), substrings: c.substrings}
}

func (c *noiseCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.noisy(ent.Message) {
		return ce
	}

	return c.Core.Check(ent, ce)
}

func (c *noiseCore) noisy(msg string) bool {
	for _, s := range c.substrings {
		if strings.Contains(msg, s) {
			return true
		}
	}

	return false
}

type sugared struct {
	*zap.SugaredLogger
}

func wrap(zl *zap.Logger) *sugared { return &sugared{zl.Sugar()} }

func (l *sugared) Name() string { return l.Desugar().Name() }

func (l *sugared) Named(name string) Logger { return &sugared{l.SugaredLogger.Named(name)} }

func (l *sugared) With(keysAndValues ...any) Logger {
	return &sugared{l.SugaredLogger.With(keysAndValues...)}
}
