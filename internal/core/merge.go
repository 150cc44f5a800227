package core

import (
	"fmt"
	"reflect"

	"dario.cat/mergo"
	"github.com/mohae/deepcopy"
)

// MergeFunc folds one record into the upstream context and returns the
// merged context. It must not modify upstream.
type MergeFunc func(upstream map[string]any, rec Record) (map[string]any, error)

// MergeInto returns a MergeFunc that deep-merges the record over a copy of the
// upstream context. With an empty target the record's fields land at the top
// level; otherwise they are nested under target. Record values win on conflict.
func MergeInto(target string) MergeFunc {
	return func(upstream map[string]any, rec Record) (map[string]any, error) {
		out, err := copyContext(upstream)
		if err != nil {
			return nil, err
		}

		src := rec.Map()
		if target != "" {
			src = map[string]any{target: src}
			if nested, ok := genericMap(out[target]); ok {
				out[target] = nested
			}
		}

		if err := mergo.Merge(&out, src, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge record: %w", err)
		}
		return out, nil
	}
}

// Map returns the record as a generic map for merging and encoding.
func (r Record) Map() map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// genericMap converts a string-keyed map of any value type, such as a Record
// carried over from an earlier run, into a map[string]any that mergo can
// write arbitrary values into.
func genericMap(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	it := rv.MapRange()
	for it.Next() {
		out[it.Key().String()] = it.Value().Interface()
	}
	return out, true
}

// copyContext returns a deep copy of ctx so nested maps can be merged into
// without touching the caller's values.
func copyContext(ctx map[string]any) (map[string]any, error) {
	if len(ctx) == 0 {
		return make(map[string]any), nil
	}
	copied, ok := deepcopy.Copy(ctx).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("copy upstream context")
	}
	return copied, nil
}
