package tracker

// Event type that is sent in an announce request.
type Event int32

// Announce events. Numbers correspond to the constants in the UDP tracker protocol.
const (
	// EventNone is sent on periodic announces.
	EventNone Event = iota
	EventCompleted
	EventStarted
	// EventStopped tells the tracker the client is leaving the swarm.
	// Stopped announces are best effort; nobody waits for their reply.
	EventStopped
)

var eventNames = [...]string{
	"empty",
	"completed",
	"started",
	"stopped",
}

// String returns the name of the event.
func (e Event) String() string {
	if e < 0 || int(e) >= len(eventNames) {
		return "unknown"
	}
	return eventNames[e]
}
