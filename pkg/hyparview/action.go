package hyparview

// ActionKind identifies which variant an Action[N] carries.
type ActionKind int

const (
	// ActionSend instructs the host to deliver a message, dialing the
	// destination first if no connection exists yet.
	ActionSend ActionKind = iota
	// ActionDisconnect instructs the host to tear down its connection to
	// a peer. Idempotent: the host may ignore it if already disconnected.
	ActionDisconnect
	// ActionNotify surfaces a NeighborUp/NeighborDown event to upper layers.
	ActionNotify
)

func (k ActionKind) String() string {
	switch k {
	case ActionSend:
		return "SEND"
	case ActionDisconnect:
		return "DISCONNECT"
	case ActionNotify:
		return "NOTIFY"
	default:
		return "UNKNOWN"
	}
}

// EventKind distinguishes the two Notify payloads.
type EventKind int

const (
	// EventNeighborUp fires when a peer was added to the active view.
	EventNeighborUp EventKind = iota
	// EventNeighborDown fires when a peer was removed from the active view.
	EventNeighborDown
)

func (k EventKind) String() string {
	if k == EventNeighborUp {
		return "NEIGHBOR_UP"
	}
	return "NEIGHBOR_DOWN"
}

// Event is the payload of a Notify action.
type Event[N comparable] struct {
	Kind EventKind
	Node N
}

// Action is a single intention emitted by a Node for the host to execute.
// The engine never performs I/O itself; it only returns these.
type Action[N comparable] struct {
	Kind ActionKind

	// Destination and Message are populated for ActionSend.
	Destination N
	Message     Message[N]

	// Node is populated for ActionDisconnect.
	Node N

	// Event is populated for ActionNotify.
	Event Event[N]
}

func sendAction[N comparable](destination N, message Message[N]) Action[N] {
	return Action[N]{Kind: ActionSend, Destination: destination, Message: message}
}

func disconnectAction[N comparable](node N) Action[N] {
	return Action[N]{Kind: ActionDisconnect, Node: node}
}

func notifyUpAction[N comparable](node N) Action[N] {
	return Action[N]{Kind: ActionNotify, Event: Event[N]{Kind: EventNeighborUp, Node: node}}
}

func notifyDownAction[N comparable](node N) Action[N] {
	return Action[N]{Kind: ActionNotify, Event: Event[N]{Kind: EventNeighborDown, Node: node}}
}
