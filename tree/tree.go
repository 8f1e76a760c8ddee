// Package tree reads and mutates values at arbitrary depth inside a JSON-shaped document tree.
//
// A tree is a map[string]any whose values are nil, bool, float64, string,
// []any or another map[string]any. Paths are slices of segments, as
// produced by splitting a dotted key.
package tree

// Get walks segs and returns the value stored at the terminal segment.
// The boolean is false when any intermediate is missing or not a map, or
// when the terminal key is absent. Present zero values (0, false, "", nil)
// are reported as found.
func Get(t map[string]any, segs []string) (any, bool) {
	if len(segs) == 0 {
		return nil, false
	}
	node := t
	for _, seg := range segs[:len(segs)-1] {
		next, ok := node[seg].(map[string]any)
		if !ok {
			return nil, false
		}
		node = next
	}
	v, ok := node[segs[len(segs)-1]]
	return v, ok
}

// Has reports whether the terminal segment exists as a key, whatever its value.
func Has(t map[string]any, segs []string) bool {
	_, ok := Get(t, segs)
	return ok
}

// Set stores v at segs, creating maps for missing intermediates.
// An intermediate holding a non-map value is replaced by an empty map.
// It returns the value now stored under the first segment.
func Set(t map[string]any, segs []string, v any) any {
	if len(segs) == 0 {
		return nil
	}
	node := t
	for _, seg := range segs[:len(segs)-1] {
		next, ok := node[seg].(map[string]any)
		if !ok {
			next = map[string]any{}
			node[seg] = next
		}
		node = next
	}
	node[segs[len(segs)-1]] = v
	return t[segs[0]]
}

// Unset removes the terminal segment. It returns false, leaving t
// untouched, when an intermediate is missing or not a map, or the
// terminal key does not exist.
func Unset(t map[string]any, segs []string) bool {
	if len(segs) == 0 {
		return false
	}
	node := t
	for _, seg := range segs[:len(segs)-1] {
		next, ok := node[seg].(map[string]any)
		if !ok {
			return false
		}
		node = next
	}
	last := segs[len(segs)-1]
	if _, ok := node[last]; !ok {
		return false
	}
	delete(node, last)
	return true
}
