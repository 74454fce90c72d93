package repository

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithHistorySize bounds the number of transitions kept.
func WithHistorySize(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.limit = n
		}
	}
}
