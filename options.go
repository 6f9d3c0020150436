package patchstream

// Default tuning values.
const (
	// DefaultReserveAttempts is how often a contended reservation is retried
	// within one frame before the cell is skipped.
	DefaultReserveAttempts = 4

	// DefaultRemoveAttempts is how often a failed build tries to remove its
	// reservation without blocking before it falls back to a blocking removal.
	DefaultRemoveAttempts = 8
)

// Option configures a Streamer during creation.
//
// Example:
//
//	s, err := patchstream.New(tree, builder, level,
//	    patchstream.WithWorkers(4),
//	    patchstream.WithMaxBuildsPerFrame(16),
//	)
type Option func(*options)

// options holds optional configuration for Streamer creation.
type options struct {
	scheduler         Scheduler
	workers           int
	reserveAttempts   int
	removeAttempts    int
	maxBuildsPerFrame int
}

// defaultOptions returns the default streamer options.
func defaultOptions() options {
	return options{
		scheduler:       nil, // Will be set to an owned PoolScheduler if nil
		workers:         0,   // GOMAXPROCS
		reserveAttempts: DefaultReserveAttempts,
		removeAttempts:  DefaultRemoveAttempts,
	}
}

// WithScheduler runs builds on s instead of an internal worker pool.
// The streamer does not close a scheduler it did not create.
func WithScheduler(s Scheduler) Option {
	return func(o *options) {
		o.scheduler = s
	}
}

// WithWorkers sets the size of the internal worker pool.
// Values <= 0 use GOMAXPROCS. Ignored when WithScheduler is given.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithReserveAttempts sets how often a contended reservation is retried in
// one frame. Values below 1 are raised to 1.
func WithReserveAttempts(n int) Option {
	return func(o *options) {
		o.reserveAttempts = max(n, 1)
	}
}

// WithRemoveAttempts sets how often a failed build retries the non-blocking
// removal of its reservation. Values below 0 are raised to 0, which goes
// straight to the blocking removal.
func WithRemoveAttempts(n int) Option {
	return func(o *options) {
		o.removeAttempts = max(n, 0)
	}
}

// WithMaxBuildsPerFrame caps how many cells Update reserves per frame,
// nearest first. The rest are deferred to later frames. 0 means no cap.
func WithMaxBuildsPerFrame(n int) Option {
	return func(o *options) {
		o.maxBuildsPerFrame = max(n, 0)
	}
}
