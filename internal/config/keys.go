package config

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
)

// Settings are addressed by dot-separated JSON field names. List elements
// take their index as a path segment, so the first digest's schedule is
// "digests.0.schedule".

// IsSecretKey reports whether the value under key must not be printed in full.
func IsSecretKey(key string) bool {
	return key == "redis.url" || key == "telegram.token"
}

// Flatten turns the nested JSON form of a config into key/value pairs. An
// empty or null list stays a single leaf so it can still be set as a whole.
func Flatten(m map[string]any) map[string]any {
	out := make(map[string]any)
	walk("", m, out)
	return out
}

func walk(key string, v any, out map[string]any) {
	switch node := v.(type) {
	case map[string]any:
		for k, child := range node {
			walk(join(key, k), child, out)
		}
	case []any:
		if len(node) == 0 {
			out[key] = node
			return
		}
		for i, child := range node {
			walk(join(key, strconv.Itoa(i)), child, out)
		}
	default:
		out[key] = v
	}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// Unflatten rebuilds the nested form from Flatten's output. A branch whose
// keys are exactly 0..n-1 becomes a list again.
func Unflatten(flat map[string]any) map[string]any {
	root := make(map[string]any)
	for key, v := range flat {
		parts := strings.Split(key, ".")
		node := root
		for _, part := range parts[:len(parts)-1] {
			child, ok := node[part].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[part] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = v
	}
	for k, v := range root {
		root[k] = listify(v)
	}
	return root
}

func listify(v any) any {
	m, ok := v.(map[string]any)
	if !ok || len(m) == 0 {
		return v
	}
	for k, child := range m {
		m[k] = listify(child)
	}
	list := make([]any, len(m))
	for k, child := range m {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 || i >= len(m) || strconv.Itoa(i) != k {
			return m
		}
		list[i] = child
	}
	return list
}

// MaskSecrets returns a copy of flat with secret values hidden. Values longer
// than eight characters keep their last four so two tokens can be told apart.
func MaskSecrets(flat map[string]any) map[string]any {
	out := make(map[string]any, len(flat))
	for k, v := range flat {
		if s, ok := v.(string); ok && s != "" && IsSecretKey(k) {
			v = mask(s)
		}
		out[k] = v
	}
	return out
}

func mask(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return "****" + s[len(s)-4:]
}

// SortedKeys returns the keys of flat at or below prefix. List indices sort
// numerically, so digests.10 follows digests.9.
func SortedKeys(flat map[string]any, prefix string) []string {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		if prefix == "" || k == prefix || strings.HasPrefix(k, prefix+".") {
			keys = append(keys, k)
		}
	}
	slices.SortFunc(keys, compareKeys)
	return keys
}

func compareKeys(a, b string) int {
	pa, pb := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(pa) && i < len(pb); i++ {
		if pa[i] == pb[i] {
			continue
		}
		na, errA := strconv.Atoi(pa[i])
		nb, errB := strconv.Atoi(pb[i])
		if errA == nil && errB == nil {
			return cmp.Compare(na, nb)
		}
		return strings.Compare(pa[i], pb[i])
	}
	return cmp.Compare(len(pa), len(pb))
}
