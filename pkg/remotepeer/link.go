package remotepeer

// Link is the outbound half of the remote-peer protocol, as seen by pkg/orchestrator: a way to
// push state to every connected client without knowing how many there are or how they are
// transported. *Server implements it.
type Link interface {
	BroadcastStateChanged(p StateChangedPayload) error
	BroadcastPGNFilesDone() error
	BroadcastRetPGNFile(p RetPGNFilePayload) error
	BroadcastError(message string) error
}

// ProtocolError represents a malformed or semantically invalid client message: an unrecognized
// action tag, invalid JSON, a missing required key, an invalid enum value, or an illegal move
// list. Handlers can errors.As it instead of string-matching.
type ProtocolError struct {
	Action  ClientAction
	Message string
}

func (e *ProtocolError) Error() string {
	return "remotepeer: " + e.Action.String() + ": " + e.Message
}
