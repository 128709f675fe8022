package chatws

type (
	CloseChan chan struct{}

	EventType string

	// Event describes a lifecycle change of the client's socket. Err is set for EventError,
	// and for EventClose when the transport reported a reason.
	Event struct {
		Type EventType
		Err  error
	}

	// MessageListener receives every inbound JSON message, in registration order.
	MessageListener func(InboundMessage)

	EventHandler func(Event)
)

const (
	EventConnect EventType = "connect"
	EventMessage EventType = "message"
	EventError   EventType = "error"
	EventClose   EventType = "close"
)
