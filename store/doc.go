// Package store provides a path-addressable key-value store over a JSON
// document tree, backed by a local file, a browser-style storage slot or a
// DynamoDB table.
//
// Keys are dot-delimited paths: "user.profile.name" addresses the "name"
// field of the "profile" object stored under "user". Every backend exposes
// the same [Store] operation set.
//
// # Backends
//
//   - [Local] keeps the whole tree in memory and rewrites one JSON file
//     after every mutation.
//   - [Browser] does the same against one named slot of a [SlotStorage]
//     (see package webstorage).
//   - [Document] maps each top-level key to one DynamoDB item
//     {Key, Value} and addresses the rest of the path inside Value. It has
//     no in-memory mirror.
//
// [Open] picks a backend from a URI:
//
//	db, err := store.Open(ctx, "settings.json", store.DefaultConfig())
//	db, err := store.Open(ctx, "dynamodb://eu-west-1?collection=settings", store.DefaultConfig())
//
// # Write options
//
// File and slot backends flush after every Set, Delete, Add, Subtract,
// Push and Pull. Pass [WithoutWrite] to update memory only and [Pretty] to
// indent the flushed JSON:
//
//	db.Set(ctx, "counter", 1, store.WithoutWrite())
//	db.Set(ctx, "name", "ark", store.Pretty(true)) // flushes both changes
//
// # Values
//
// Values are normalized to JSON shapes: numbers come back as float64,
// structs as map[string]any. nil is rejected with [ErrInvalidValue]; 0,
// false and "" are ordinary values.
//
// # Errors
//
// The package defines domain-specific errors:
//
//   - [ErrInvalidKey] - empty key or empty path segment
//   - [ErrInvalidValue] - nil or non-JSON value
//   - [ErrNotANumber] - Add/Subtract on a non-number
//   - [ErrNotAnArray] - Push/Pull on a non-array
//   - [ErrNoSuchElement] - Pull of a missing element with StrictPull
//   - [ErrMalformedMedium] - backing file or slot is not a JSON object
//   - [ErrInvalidConnection] - remote URI without the dynamodb:// scheme
//   - [ErrClosed] - operation on a closed connection
package store
