package store

// WriteOptions controls persistence of a single mutating call on the file
// and browser backends. The document backend ignores them.
type WriteOptions struct {
	// Write flushes the tree after the mutation. When false the in-memory
	// tree is updated and the medium stays stale until the next flush.
	Write bool

	// Pretty indents the flushed JSON by two spaces.
	Pretty bool
}

// WriteOption mutates WriteOptions.
type WriteOption func(*WriteOptions)

// WithoutWrite skips the flush for this call.
func WithoutWrite() WriteOption {
	return func(o *WriteOptions) { o.Write = false }
}

// Pretty selects indented (true) or compact (false) output for this call's flush.
func Pretty(on bool) WriteOption {
	return func(o *WriteOptions) { o.Pretty = on }
}

func writeOptions(config Config, opts []WriteOption) WriteOptions {
	o := WriteOptions{Write: true, Pretty: config.Pretty}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
