// Package path splits and joins the dotted keys used to address values in a document tree.
package path

import (
	"errors"
	"strings"
)

// Separator delimits segments in a key.
const Separator = "."

// ErrInvalidKey is returned for empty keys and keys with empty segments.
var ErrInvalidKey = errors.New("arkdb: invalid key")

// Split breaks key into its segments.
// "a.b.c" yields ["a", "b", "c"]; "", "a..b", ".a" and "a." are rejected.
func Split(key string) ([]string, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	segs := strings.Split(key, Separator)
	for _, s := range segs {
		if s == "" {
			return nil, ErrInvalidKey
		}
	}
	return segs, nil
}

// First returns the first segment of key.
func First(key string) (string, error) {
	segs, err := Split(key)
	if err != nil {
		return "", err
	}
	return segs[0], nil
}

// Rest returns every segment of key after the first. It is empty for single-segment keys.
func Rest(key string) ([]string, error) {
	segs, err := Split(key)
	if err != nil {
		return nil, err
	}
	return segs[1:], nil
}

// Join is the inverse of Split.
func Join(segs []string) string {
	return strings.Join(segs, Separator)
}
