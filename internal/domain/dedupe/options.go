package dedupe

// Option applies a configuration option to the game tracker.
type Option func(*gameTracker)

// WithMaxSize sets how many game IDs are remembered. When full, the oldest
// ID is forgotten first. A size of zero or less remembers every ID.
func WithMaxSize(maxSize int) Option {
	return func(d *gameTracker) {
		d.maxSize = maxSize
	}
}
