package repository

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithMaxReports bounds the number of kept reports; the oldest finished
// reports are evicted first. Values <= 0 disable the bound.
func WithMaxReports(n int) Option {
	return func(s *MemoryStore) {
		s.maxReports = n
	}
}
