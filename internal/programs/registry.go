package programs

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/roach88/reactorrt/internal/ltime"
	"github.com/roach88/reactorrt/internal/reactor"
)

// Params are the parameters of a program instance. Values come from CLI
// flags (strings), YAML scenarios (ints) or stored runs (json.Number).
type Params map[string]any

// Factory builds the main reactor of a program.
type Factory func(p Params) (reactor.Reactor, error)

// Entry describes a built-in program.
type Entry struct {
	Name        string
	Description string
	// Defaults lists every accepted parameter with its default value.
	Defaults Params
	// Physical programs receive input from outside the scheduler and need
	// keep-alive to wait for it.
	Physical bool
	New      Factory
}

var registry = map[string]Entry{}

func register(e Entry) {
	if _, dup := registry[e.Name]; dup {
		panic("programs: duplicate program " + e.Name)
	}
	registry[e.Name] = e
}

// Lookup returns the program registered under name.
func Lookup(name string) (Entry, bool) {
	e, ok := registry[name]
	return e, ok
}

// Names returns the registered program names in sorted order.
func Names() []string {
	return slices.Sorted(maps.Keys(registry))
}

// Entries returns all programs sorted by name.
func Entries() []Entry {
	out := make([]Entry, 0, len(registry))
	for _, name := range Names() {
		out = append(out, registry[name])
	}
	return out
}

// Build assembles a fresh instance of the named program.
//
// Unknown parameter names are rejected so typos do not silently fall back
// to defaults.
func Build(name string, params Params) (*reactor.Program, error) {
	e, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown program %q (available: %v)", name, Names())
	}
	for k := range params {
		if _, known := e.Defaults[k]; !known {
			return nil, fmt.Errorf("program %s: unknown parameter %q", name, k)
		}
	}
	main, err := e.New(params)
	if err != nil {
		return nil, fmt.Errorf("program %s: %w", name, err)
	}
	prog, err := reactor.Assemble(main)
	if err != nil {
		return nil, fmt.Errorf("program %s: %w", name, err)
	}
	return prog, nil
}

// Int reads an integer parameter.
func (p Params) Int(key string, def int) (int, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("parameter %s: %v is not an integer", key, n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("parameter %s: %w", key, err)
		}
		return int(i), nil
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, fmt.Errorf("parameter %s: %w", key, err)
		}
		return i, nil
	}
	return 0, fmt.Errorf("parameter %s: unsupported type %T", key, v)
}

// PositiveInt reads an integer parameter that must be at least one.
func (p Params) PositiveInt(key string, def int) (int, error) {
	n, err := p.Int(key, def)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("parameter %s: must be at least 1, got %d", key, n)
	}
	return n, nil
}

// Duration reads a duration parameter. Strings use ltime.ParseDuration,
// integers are nanoseconds.
func (p Params) Duration(key string, def time.Duration) (time.Duration, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	var d time.Duration
	switch x := v.(type) {
	case string:
		parsed, err := ltime.ParseDuration(x)
		if err != nil {
			return 0, fmt.Errorf("parameter %s: %w", key, err)
		}
		d = parsed
	case time.Duration:
		d = x
	default:
		n, err := p.Int(key, 0)
		if err != nil {
			return 0, err
		}
		d = time.Duration(n)
	}
	if d < 0 {
		return 0, fmt.Errorf("parameter %s: negative duration %s", key, d)
	}
	return d, nil
}
