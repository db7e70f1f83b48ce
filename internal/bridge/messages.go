package bridge

import (
	"errors"
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/vk/flowgrid/internal/dnd"
	"github.com/vk/flowgrid/internal/editor"
	"github.com/vk/flowgrid/internal/graph"
	"github.com/vk/flowgrid/internal/validation"
)

// Outbound events.
const (
	EventTextChanged    = "text-changed"
	EventMarkersChanged = "markers-changed"
	EventGraphChanged   = "graph-changed"
	EventSyncFailed     = "sync-failed"
	EventDragTarget     = "drag-target"
	EventCommandError   = "command-error"
)

// Inbound events.
const (
	EventSetText    = "set-text"
	EventDragStart  = "drag-start"
	EventDrag       = "drag"
	EventDrop       = "drop"
	EventDragCancel = "drag-cancel"
	EventDelete     = "delete"
	EventLayout     = "layout"
)

// ErrUnknownEvent is returned by Decode for events the bridge does not handle.
var ErrUnknownEvent = errors.New("unknown event")

// Encode converts an editor notification into an event name and payload.
// ok is false for notifications that are not forwarded.
func Encode(n editor.Notification) (event string, payload map[string]any, ok bool) {
	switch n.Kind {
	case editor.TextChanged:
		return EventTextChanged, map[string]any{"text": n.Text}, true
	case editor.MarkersChanged:
		return EventMarkersChanged, map[string]any{"markers": encodeMarkers(n.Markers)}, true
	case editor.GraphChanged:
		if n.Event == nil {
			return "", nil, false
		}
		p := map[string]any{"kind": n.Event.Kind.String()}
		if n.Event.Element != "" {
			p["element"] = string(n.Event.Element)
		}
		if n.Event.ID != "" {
			p["id"] = n.Event.ID
		}
		if n.Event.Property != "" {
			p["property"] = n.Event.Property
		}
		if l := n.Event.Link; l != nil {
			p["link"] = map[string]any{"id": l.ID, "source": l.Source.Node, "target": l.Target.Node}
		}
		return EventGraphChanged, p, true
	case editor.SyncFailed:
		p := map[string]any{"channel": n.Channel}
		if n.Err != nil {
			p["error"] = n.Err.Error()
		}
		return EventSyncFailed, p, true
	}
	return "", nil, false
}

func encodeMarkers(markers validation.Markers) map[string]any {
	out := make(map[string]any, len(markers))
	for _, id := range markers.IDs() {
		list := make([]any, 0, len(markers[id]))
		for _, m := range markers[id] {
			entry := map[string]any{"severity": string(m.Severity), "message": m.Message}
			if m.Range != nil {
				entry["range"] = map[string]any{
					"start": map[string]any{"line": m.Range.Start.Line, "column": m.Range.Start.Column},
					"end":   map[string]any{"line": m.Range.End.Line, "column": m.Range.End.Column},
				}
			}
			list = append(list, entry)
		}
		out[id] = list
	}
	return out
}

// EncodeDescriptor converts a drag descriptor for the drag-target event.
func EncodeDescriptor(d dnd.Descriptor) map[string]any {
	end := func(e *dnd.End) any {
		if e == nil {
			return nil
		}
		m := map[string]any{"kind": string(e.Kind), "id": e.ID}
		if e.Port != "" {
			m["port"] = string(e.Port)
		}
		return m
	}
	return map[string]any{"source": end(d.Source), "target": end(d.Target), "context": string(d.Context)}
}

// Command is a decoded inbound event.
type Command struct {
	Event   string
	Text    string
	Node    string
	Context dnd.Provenance
	Pointer graph.Point
	Under   *dnd.End
}

type setTextPayload struct {
	Text string `cty:"text"`
}

type dragStartPayload struct {
	Node    string  `cty:"node"`
	Context *string `cty:"context"`
}

type dragPayload struct {
	X     float64 `cty:"x"`
	Y     float64 `cty:"y"`
	Under *string `cty:"under"`
	Port  *string `cty:"port"`
}

type deletePayload struct {
	Node string `cty:"node"`
}

var (
	setTextType   = cty.Object(map[string]cty.Type{"text": cty.String})
	dragStartType = cty.ObjectWithOptionalAttrs(map[string]cty.Type{"node": cty.String, "context": cty.String}, []string{"context"})
	dragType      = cty.ObjectWithOptionalAttrs(map[string]cty.Type{"x": cty.Number, "y": cty.Number, "under": cty.String, "port": cty.String}, []string{"under", "port"})
	deleteType    = cty.Object(map[string]cty.Type{"node": cty.String})
)

// Decode converts an inbound event into a command. Payloads without
// parameters may be omitted.
func Decode(event string, args ...any) (Command, error) {
	cmd := Command{Event: event}
	var data any
	if len(args) > 0 {
		data = args[0]
	}

	switch event {
	case EventSetText:
		var p setTextPayload
		if err := decodePayload(data, setTextType, &p); err != nil {
			return cmd, err
		}
		cmd.Text = p.Text
	case EventDragStart:
		var p dragStartPayload
		if err := decodePayload(data, dragStartType, &p); err != nil {
			return cmd, err
		}
		cmd.Node = p.Node
		cmd.Context = dnd.FromCanvas
		if p.Context != nil && *p.Context == string(dnd.FromPalette) {
			cmd.Context = dnd.FromPalette
		}
	case EventDrag:
		var p dragPayload
		if err := decodePayload(data, dragType, &p); err != nil {
			return cmd, err
		}
		cmd.Pointer = graph.Point{X: p.X, Y: p.Y}
		if p.Under != nil && *p.Under != "" {
			if p.Port != nil && *p.Port != "" {
				cmd.Under = dnd.NodeEnd(*p.Under, graph.Port(*p.Port))
			} else {
				cmd.Under = dnd.LinkEnd(*p.Under)
			}
		}
	case EventDelete:
		var p deletePayload
		if err := decodePayload(data, deleteType, &p); err != nil {
			return cmd, err
		}
		cmd.Node = p.Node
	case EventDrop, EventDragCancel, EventLayout:
	default:
		return cmd, fmt.Errorf("%q: %w", event, ErrUnknownEvent)
	}
	return cmd, nil
}

func decodePayload(data any, ty cty.Type, target any) error {
	v, err := interfaceToCtyValue(data)
	if err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	if v.IsNull() {
		return errors.New("invalid payload: missing")
	}
	v, err = convert.Convert(v, ty)
	if err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	if err := gocty.FromCtyValue(v, target); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}
