package domain

// SessionState is the lifecycle position of the upstream session.
type SessionState int32

const (
	StateUnloaded SessionState = iota
	StateLoading
	StateLoaded
	StateUnloading
)

func (s SessionState) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateUnloading:
		return "unloading"
	default:
		return "unknown"
	}
}

// SessionStatus is the read-only view exposed to the control API.
type SessionStatus struct {
	State    string    `json:"state"`
	ID       string    `json:"sessionId,omitempty"`
	Identity *Identity `json:"identity,omitempty"`
}
