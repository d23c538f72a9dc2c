package session

// Event is a session lifecycle notification delivered to listeners.
type Event string

const (
	EventCreated         Event = "session_created"
	EventRenewed         Event = "session_renewed"
	EventExpired         Event = "session_expired"
	EventCleared         Event = "session_cleared"
	EventClearedExternal Event = "session_cleared_external"
	EventUpdatedExternal Event = "session_updated_external"
)

// Listener receives session lifecycle events. Listeners run on the
// manager's goroutine; a panicking listener is isolated and logged.
type Listener func(event Event, data any)
