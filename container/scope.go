package container

// Scope controls how many instances of a registration the container
// creates.
type Scope int

const (
	// ScopeSingleton creates one instance per container, lazily on first
	// resolve unless forced by Initialize.
	ScopeSingleton Scope = iota

	// ScopeTransient constructs a new instance on every resolve.
	ScopeTransient

	// ScopeSession is reserved for future per-request scoping. It exists
	// only as a value; registrations cannot use it yet.
	ScopeSession
)

// String returns the human-readable name of the scope.
func (s Scope) String() string {
	switch s {
	case ScopeSingleton:
		return "singleton"
	case ScopeTransient:
		return "transient"
	case ScopeSession:
		return "session"
	default:
		return "unknown"
	}
}
