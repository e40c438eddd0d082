package container

import "go.uber.org/zap"

// Cleanup releases a singleton's resources during Close. It receives the
// cached instance it was registered with.
type Cleanup func(instance any) error

// Option configures a registration.
type Option func(*registration)

// WithAlias registers a secondary lookup name for the component. Keys and
// aliases share one lookup space.
func WithAlias(alias string) Option {
	return func(r *registration) {
		r.alias = alias
	}
}

// WithCleanup attaches a teardown callback invoked by Close, in reverse
// registration order. Valid for singletons only.
func WithCleanup(fn Cleanup) Option {
	return func(r *registration) {
		r.cleanup = fn
	}
}

// ContainerOption configures a Container at construction.
type ContainerOption func(*Container)

// WithLogger attaches a logger used for Initialize and Close diagnostics.
func WithLogger(log *zap.Logger) ContainerOption {
	return func(c *Container) {
		if log != nil {
			c.log = log
		}
	}
}
