package engine

// Options represents configuration options for the replay engine.
type Options struct {
	// WindowStart and WindowEnd bound the continuous-matching session as a
	// closed interval over event source time. Events outside it never
	// trigger crossing resolution; crossed prices simply rest.
	WindowStart int64
	WindowEnd   int64
	// Passes is the number of timed replay passes over the feed. The book
	// is reset before each pass.
	Passes int
}

// DefaultOptions returns the default engine options.
func DefaultOptions() *Options {
	return &Options{
		WindowStart: 24300006000,
		WindowEnd:   53400000000,
		Passes:      1,
	}
}
