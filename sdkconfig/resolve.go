// Package sdkconfig layers configuration the way the teacher's own
// core/options.go GoOptionsResolver does: a precedence-ordered stack of
// named layers (defaults, loaded/env, runtime override) merged into one
// map via github.com/goliatone/go-options, then decoded and fail-fast
// validated via github.com/goliatone/go-config's cfgx.Build, the same
// two-stage shape GoOptionsResolver.Resolve runs (opts.Stack.Merge
// followed by cfgx.Build with a Validator).
package sdkconfig

import (
	"fmt"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
)

// Layer is one named, precedence-ordered source of configuration values.
// Higher Priority wins when the same key appears in more than one layer.
type Layer struct {
	Name     string
	Priority int
	Values   map[string]any
}

// Resolve merges layers low-to-high priority into a single value map.
// Typical call sites pass three layers: "defaults" (priority 0), "env"
// (priority 10, loaded from environment or file), and "runtime" (priority
// 20, explicit caller overrides) - the same three-tier shape the teacher
// resolves a service's Config through.
func Resolve(layers ...Layer) (map[string]any, error) {
	if len(layers) == 0 {
		return map[string]any{}, nil
	}

	optLayers := make([]opts.Layer[map[string]any], 0, len(layers))
	for _, l := range layers {
		values := l.Values
		if values == nil {
			values = map[string]any{}
		}
		optLayers = append(optLayers, opts.NewLayer(
			opts.NewScope(l.Name, l.Priority),
			values,
			opts.WithSnapshotID[map[string]any](l.Name),
		))
	}

	stack, err := opts.NewStack(optLayers...)
	if err != nil {
		return nil, fmt.Errorf("sdkconfig: build layer stack: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return nil, fmt.Errorf("sdkconfig: merge layers: %w", err)
	}
	return merged.Value, nil
}

// ResolveInto merges layers the same way Resolve does, then decodes the
// merged map into a T and runs validate against it via cfgx.Build, failing
// fast before the caller ever sees a half-populated config. Mirrors the
// second half of the teacher's GoOptionsResolver.Resolve, which hands its
// own merged stack to cfgx.Build(cfgx.WithDefaults(defaults),
// cfgx.WithValidator((*Config).Validate)) and then calls Validate again on
// the result as a final guard.
func ResolveInto[T any](defaults T, validate func(*T) error, layers ...Layer) (T, error) {
	var zero T
	merged, err := Resolve(layers...)
	if err != nil {
		return zero, err
	}
	resolved, err := cfgx.Build[T](merged,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[T](validate),
	)
	if err != nil {
		return zero, fmt.Errorf("sdkconfig: build config: %w", err)
	}
	if err := validate(&resolved); err != nil {
		return zero, err
	}
	return resolved, nil
}

// StringValue extracts a string key from a resolved value map, falling
// back to fallback when the key is absent or not a string.
func StringValue(values map[string]any, key, fallback string) string {
	raw, ok := values[key]
	if !ok {
		return fallback
	}
	s, ok := raw.(string)
	if !ok || s == "" {
		return fallback
	}
	return s
}
