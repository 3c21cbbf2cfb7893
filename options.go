package willowfx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"
)

// Sentinel errors returned at the load boundary.
var (
	ErrInvalidJSON = errors.New("willowfx: invalid effect JSON")
	ErrNoRoot      = errors.New("willowfx: effect has no root object")
	ErrDisposed    = errors.New("willowfx: effect is disposed")
	ErrNotFound    = errors.New("willowfx: node not found")
)

// Options configures conversion, construction and simulation. The zero
// value is usable: silent logging and the authored defaults.
type Options struct {
	// Logger receives all diagnostics. Nil discards them.
	Logger *slog.Logger
	// Verbose logs the depth-indented tree walk at Debug level.
	Verbose bool
	// Validate enables extra structural checks during conversion and a pool
	// usage check when a system stops. Problems are logged as warnings and
	// never fail the load.
	Validate bool
	// Events receives particle system lifecycle events. Nil drops them.
	Events EventSink
	// AssetFS resolves non-data image URLs. Nil leaves such textures unloaded.
	AssetFS fs.FS

	// DefaultDuration is the cycle length used when an emitter has none (5).
	DefaultDuration float64
	// DefaultEmitRate is used when an emitter has no emissionOverTime (10).
	DefaultEmitRate float64
	// LimitVelocityDamping scales velocity once it exceeds the limit (0.1).
	LimitVelocityDamping float64
	// PrewarmStep is the time step used while prewarming (1/60).
	PrewarmStep float64
}

// fileOptions is the YAML form of the tunable Options fields.
type fileOptions struct {
	Verbose              bool    `yaml:"verbose"`
	Validate             bool    `yaml:"validate"`
	DefaultDuration      float64 `yaml:"default_duration"`
	DefaultEmitRate      float64 `yaml:"default_emit_rate"`
	LimitVelocityDamping float64 `yaml:"limit_velocity_damping"`
	PrewarmStep          float64 `yaml:"prewarm_step"`
	LogLevel             string  `yaml:"log_level"`
}

// LoadOptions reads tunables from YAML. Zero values keep their defaults.
// A log_level other than "off" installs a text logger writing to logOut.
func LoadOptions(r io.Reader, logOut io.Writer) (Options, error) {
	var f fileOptions
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return Options{}, fmt.Errorf("willowfx: parse options: %w", err)
	}
	opts := Options{
		Verbose:              f.Verbose,
		Validate:             f.Validate,
		DefaultDuration:      f.DefaultDuration,
		DefaultEmitRate:      f.DefaultEmitRate,
		LimitVelocityDamping: f.LimitVelocityDamping,
		PrewarmStep:          f.PrewarmStep,
	}
	if level, ok := parseLevel(f.LogLevel); ok && logOut != nil {
		opts.Logger = slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))
	}
	return opts.withDefaults(), nil
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return 0, false
	}
}

// withDefaults fills unset fields.
func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = newNopLogger()
	}
	if o.DefaultDuration <= 0 {
		o.DefaultDuration = 5
	}
	if o.DefaultEmitRate <= 0 {
		o.DefaultEmitRate = 10
	}
	if o.LimitVelocityDamping <= 0 {
		o.LimitVelocityDamping = 0.1
	}
	if o.PrewarmStep <= 0 {
		o.PrewarmStep = 1.0 / 60
	}
	return o
}

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// treeLog writes depth-indented tree-walk messages when verbose.
type treeLog struct {
	logger  *slog.Logger
	verbose bool
}

func (l treeLog) debug(depth int, msg string, args ...any) {
	if !l.verbose {
		return
	}
	l.logger.Debug(strings.Repeat("  ", depth)+msg, args...)
}
