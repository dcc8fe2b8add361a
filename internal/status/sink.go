package status

// Sink propagates order lifecycle events to a remote store. Publishing is
// best-effort: implementations report success with a bool and never surface
// an error to the caller.
type Sink interface {
	// Publish writes the latest status for (userID, orderID), overwriting
	// any previous record. It returns whether the send is believed to have
	// succeeded.
	Publish(userID, orderID, status, message string) bool

	// Available reports whether the remote store integration is configured.
	Available() bool
}

// NoopSink is the sink used when no remote store is configured. Every
// publish returns false without attempting network I/O, so the rest of the
// pipeline runs unchanged without the optional dependency.
type NoopSink struct{}

func (NoopSink) Publish(userID, orderID, status, message string) bool { return false }

func (NoopSink) Available() bool { return false }
