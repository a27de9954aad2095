package domain

// VideoJobHandle identifies a long-running video job at the provider.
// Ref carries provider-specific state and is opaque to callers.
type VideoJobHandle struct {
	Name string
	Ref  any
}

// VideoJobStatus is the result of one poll.
type VideoJobStatus struct {
	Handle   VideoJobHandle
	Done     bool
	MediaURI string
}
