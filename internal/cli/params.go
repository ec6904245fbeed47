package cli

import (
	"fmt"
	"maps"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/reactorrt/internal/programs"
)

// parseParams parses repeated --param key=value flags. Values are YAML
// scalars, so "count=3" is an int and "delay=5 msec" a string.
func parseParams(base map[string]any, flags []string) (programs.Params, error) {
	params := make(programs.Params, len(base)+len(flags))
	maps.Copy(params, base)
	for _, f := range flags {
		key, raw, ok := strings.Cut(f, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --param %q: want key=value", f)
		}
		var v any
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil || v == nil {
			v = raw
		}
		params[key] = v
	}
	return params, nil
}
