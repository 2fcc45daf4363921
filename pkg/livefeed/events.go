package livefeed

import "github.com/transitlens/transitlens/pkg/transit"

// Event is a tagged update emitted on the client's event stream.
// Consumers switch on the concrete type.
type Event interface {
	liveFeedEvent()
}

// VehiclesEvent carries a full vehicle snapshot pushed by the backend.
type VehiclesEvent struct {
	Vehicles []transit.Vehicle
}

// StopsEvent carries a full stop snapshot pushed by the backend.
type StopsEvent struct {
	Stops []transit.Stop
}

// ServerErrorEvent is an error notification sent over the live channel.
// The connection stays open.
type ServerErrorEvent struct {
	Message string
}

// StateEvent reports a connection state transition. Attempt is the
// reconnection attempt counter at the time of the transition.
type StateEvent struct {
	State   ConnectionState
	Attempt int
}

// TerminalErrorEvent is emitted exactly once when reconnection attempts
// are exhausted. No further attempts follow.
type TerminalErrorEvent struct {
	Err error
}

func (VehiclesEvent) liveFeedEvent()      {}
func (StopsEvent) liveFeedEvent()         {}
func (ServerErrorEvent) liveFeedEvent()   {}
func (StateEvent) liveFeedEvent()         {}
func (TerminalErrorEvent) liveFeedEvent() {}
