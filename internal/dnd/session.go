package dnd

import (
	"errors"
	"log/slog"
)

var (
	// ErrBusy is returned by Start when a gesture is already in progress.
	ErrBusy = errors.New("drag already in progress")
	// ErrNotDragging is returned when a drag operation arrives outside a gesture.
	ErrNotDragging = errors.New("no drag in progress")
)

// State is the phase of a drag gesture.
type State int

const (
	Idle State = iota
	Dragging
	Dropped
)

func (s State) String() string {
	switch s {
	case Dragging:
		return "dragging"
	case Dropped:
		return "dropped"
	default:
		return "idle"
	}
}

// ResolveFunc computes the descriptor for a tick.
type ResolveFunc func(Input) Descriptor

// Feedback shows and hides drop-target hints. Either function may be nil.
type Feedback struct {
	Show func(Descriptor)
	Hide func(Descriptor)
}

// Session tracks one drag gesture at a time.
type Session struct {
	resolve  ResolveFunc
	feedback Feedback
	logger   *slog.Logger

	state   State
	node    string
	context Provenance
	current Descriptor
	shown   bool
}

// NewSession creates an idle session.
func NewSession(resolve ResolveFunc, feedback Feedback, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{resolve: resolve, feedback: feedback, logger: logger}
}

// State returns the current phase.
func (s *Session) State() State { return s.state }

// Node returns the id of the node being dragged, or "" when idle.
func (s *Session) Node() string { return s.node }

// Current returns the last resolved descriptor.
func (s *Session) Current() Descriptor { return s.current }

// Start begins a gesture for the given node.
func (s *Session) Start(node string, from Provenance) error {
	if s.state != Idle {
		return ErrBusy
	}
	s.state = Dragging
	s.node = node
	s.context = from
	s.current = Descriptor{}
	s.shown = false
	s.logger.Debug("Drag started.", "node", node, "context", from)
	return nil
}

// Drag resolves one tick. changed is true when the descriptor differs
// structurally from the previous tick, which is also the only case in which
// feedback is updated.
func (s *Session) Drag(in Input) (d Descriptor, changed bool, err error) {
	if s.state != Dragging {
		return Descriptor{}, false, ErrNotDragging
	}
	in.Dragged = s.node
	if in.Context == "" {
		in.Context = s.context
	}
	d = s.resolve(in)
	if s.shown && d.Equal(s.current) {
		s.current = d
		return d, false, nil
	}
	s.hide()
	s.current = d
	if s.feedback.Show != nil {
		s.feedback.Show(d)
	}
	s.shown = true
	s.logger.Debug("Drag target changed.", "descriptor", d.String())
	return d, true, nil
}

// Drop ends the gesture and returns the final descriptor.
func (s *Session) Drop() (Descriptor, error) {
	if s.state != Dragging {
		return Descriptor{}, ErrNotDragging
	}
	s.hide()
	s.state = Dropped
	s.logger.Debug("Drag dropped.", "descriptor", s.current.String())
	return s.current, nil
}

// Finish returns a dropped session to Idle once the drop has been applied.
func (s *Session) Finish() {
	s.reset()
}

// Cancel aborts the gesture from any phase.
func (s *Session) Cancel() {
	s.hide()
	s.reset()
}

func (s *Session) hide() {
	if s.shown && s.feedback.Hide != nil {
		s.feedback.Hide(s.current)
	}
	s.shown = false
}

func (s *Session) reset() {
	s.state = Idle
	s.node = ""
	s.context = ""
	s.current = Descriptor{}
	s.shown = false
}
