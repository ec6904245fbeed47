package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/roach88/reactorrt/internal/ltime"
	"github.com/roach88/reactorrt/internal/reactor"
)

//go:embed schema.cue
var schemaCUE string

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the file and environment configuration of a run.
type Config struct {
	Mode          string         `json:"mode" yaml:"mode"`
	Workers       int            `json:"workers" yaml:"workers"`
	Timeout       string         `json:"timeout" yaml:"timeout"`
	KeepAlive     bool           `json:"keepalive" yaml:"keepalive"`
	MaxMicrosteps int            `json:"max_microsteps" yaml:"max_microsteps"`
	DB            string         `json:"db" yaml:"db"`
	Params        map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// Default returns the configuration of an empty config file.
func Default() Config {
	return Config{Mode: "realtime", Workers: 1, Timeout: "0"}
}

// configEnv holds raw env values. Unset variables leave the field nil.
type configEnv struct {
	Mode          *string `env:"REACTORRT_MODE"`
	Workers       *int    `env:"REACTORRT_WORKERS"`
	Timeout       *string `env:"REACTORRT_TIMEOUT"`
	KeepAlive     *bool   `env:"REACTORRT_KEEPALIVE"`
	MaxMicrosteps *int    `env:"REACTORRT_MAX_MICROSTEPS"`
	DB            *string `env:"REACTORRT_DB"`
}

// Load reads a .cue, .yaml or .yml file and validates it against the
// embedded schema. Missing fields take the schema defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	ctx := cuecontext.New()
	var v cue.Value
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		v = ctx.CompileBytes(data, cue.Filename(path))
	case ".yaml", ".yml":
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
		if raw == nil {
			raw = map[string]any{}
		}
		v = ctx.Encode(raw)
	default:
		return Config{}, fmt.Errorf("%w: unsupported config file type %q", ErrInvalidConfig, filepath.Ext(path))
	}
	if err := v.Err(); err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrInvalidConfig, formatCUEError(err))
	}
	return decode(ctx, v)
}

// Parse validates an in-memory YAML document. Used for configuration
// embedded in harness scenarios.
func Parse(data []byte) (Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	ctx := cuecontext.New()
	return decode(ctx, ctx.Encode(raw))
}

// Validate checks a config built in code against the schema.
func Validate(c Config) error {
	ctx := cuecontext.New()
	_, err := decode(ctx, ctx.Encode(c))
	return err
}

func decode(ctx *cue.Context, v cue.Value) (Config, error) {
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile config schema: %w", err)
	}
	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrInvalidConfig, formatCUEError(err))
	}
	var c Config
	if err := unified.Decode(&c); err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrInvalidConfig, formatCUEError(err))
	}
	if _, err := ltime.ParseDuration(c.Timeout); err != nil {
		return Config{}, fmt.Errorf("%w: timeout: %v", ErrInvalidConfig, err)
	}
	return c, nil
}

func formatCUEError(err error) string {
	var msgs []string
	for _, e := range cueerrors.Errors(err) {
		msgs = append(msgs, e.Error())
	}
	if len(msgs) == 0 {
		return err.Error()
	}
	return strings.Join(msgs, "; ")
}

// ApplyEnv overlays REACTORRT_* variables onto c and revalidates it.
// A nil environ reads the process environment.
func ApplyEnv(c Config, environ map[string]string) (Config, error) {
	var raw configEnv
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&raw, opts); err != nil {
		return Config{}, fmt.Errorf("%w: parse env: %v", ErrInvalidConfig, err)
	}

	if raw.Mode != nil {
		c.Mode = *raw.Mode
	}
	if raw.Workers != nil {
		c.Workers = *raw.Workers
	}
	if raw.Timeout != nil {
		c.Timeout = *raw.Timeout
	}
	if raw.KeepAlive != nil {
		c.KeepAlive = *raw.KeepAlive
	}
	if raw.MaxMicrosteps != nil {
		c.MaxMicrosteps = *raw.MaxMicrosteps
	}
	if raw.DB != nil {
		c.DB = *raw.DB
	}
	if err := Validate(c); err != nil {
		return Config{}, err
	}
	return c, nil
}

// TimeoutDuration parses the timeout literal.
func (c Config) TimeoutDuration() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	return ltime.ParseDuration(c.Timeout)
}

// SchedulerOptions converts the config to scheduler options.
func (c Config) SchedulerOptions() (reactor.SchedulerOptions, error) {
	mode, err := reactor.ParseMode(c.Mode)
	if err != nil {
		return reactor.SchedulerOptions{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	timeout, err := c.TimeoutDuration()
	if err != nil {
		return reactor.SchedulerOptions{}, fmt.Errorf("%w: timeout: %v", ErrInvalidConfig, err)
	}
	workers := c.Workers
	if workers < 1 {
		workers = 1
	}
	return reactor.SchedulerOptions{
		Mode:          mode,
		Workers:       workers,
		Timeout:       timeout,
		KeepAlive:     c.KeepAlive,
		MaxMicrosteps: c.MaxMicrosteps,
	}, nil
}
