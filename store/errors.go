package store

import (
	"errors"

	"github.com/jacentio/arkdb/internal/path"
)

var (
	// ErrInvalidKey is returned when a key is empty or has an empty segment ("a..b").
	ErrInvalidKey = path.ErrInvalidKey

	// ErrInvalidValue is returned when Set, Push or Pull receive an absent (nil)
	// value, a value that cannot be encoded as JSON, or a non-finite number.
	ErrInvalidValue = errors.New("arkdb: invalid value")

	// ErrNotANumber is returned by Add and Subtract when the existing value is not a number.
	ErrNotANumber = errors.New("arkdb: existing value is not a number")

	// ErrNotAnArray is returned by Push and Pull when the existing value is not an array.
	ErrNotAnArray = errors.New("arkdb: existing value is not an array")

	// ErrNoSuchElement is returned by Pull, when Config.StrictPull is set,
	// if the element is not in the array.
	ErrNoSuchElement = errors.New("arkdb: element not found in array")

	// ErrMalformedMedium is returned at construction when the backing file or
	// slot does not hold a JSON object.
	ErrMalformedMedium = errors.New("arkdb: backing medium is not a valid JSON object")

	// ErrInvalidConnection is returned when a connection URI lacks the dynamodb:// scheme.
	ErrInvalidConnection = errors.New("arkdb: invalid connection URI")

	// ErrClosed is returned by operations on a closed connection.
	ErrClosed = errors.New("arkdb: connection closed")
)
