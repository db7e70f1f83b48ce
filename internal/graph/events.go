package graph

// EventKind identifies what changed in the model.
type EventKind int

const (
	EventAdded EventKind = iota + 1
	EventRemoved
	EventConnectedChanged
	EventPropertyChanged
	EventMoved
	EventCleared
)

func (k EventKind) String() string {
	switch k {
	case EventAdded:
		return "added"
	case EventRemoved:
		return "removed"
	case EventConnectedChanged:
		return "connected-changed"
	case EventPropertyChanged:
		return "property-changed"
	case EventMoved:
		return "moved"
	case EventCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// ElementKind tells whether an event is about a node or a link.
type ElementKind string

const (
	KindNode ElementKind = "node"
	KindLink ElementKind = "link"
)

// Event is a single model change.
//
// For EventConnectedChanged, ID is the node whose connections changed and
// Link is the link that was attached or detached. For link Added/Removed
// events Link holds a copy of the link.
type Event struct {
	Kind     EventKind
	Element  ElementKind
	ID       string
	Property string
	Link     *Link
}

// Structural reports whether the event changes topology rather than
// presentation or properties.
func (e Event) Structural() bool {
	switch e.Kind {
	case EventAdded, EventRemoved, EventConnectedChanged, EventCleared:
		return true
	}
	return false
}
