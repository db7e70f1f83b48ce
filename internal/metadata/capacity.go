package metadata

// Capacity is the number of links a node may carry on each connector.
type Capacity struct {
	In  int
	Out int
}

// CapacityOf returns the capacity model of a group. Unknown groups are
// treated as processors.
func CapacityOf(g Group) Capacity {
	switch g {
	case GroupSource:
		return Capacity{In: 0, Out: 1}
	case GroupSink:
		return Capacity{In: 1, Out: 0}
	default:
		return Capacity{In: 1, Out: 1}
	}
}

// CapacityFor returns the capacity of an element, honouring explicit max
// constraints. A nil element yields the processor capacity.
func CapacityFor(e *Element) Capacity {
	if e == nil {
		return CapacityOf(GroupProcessor)
	}
	c := CapacityOf(e.Group)
	if e.Constraints != nil {
		if e.Constraints.MaxIncoming != nil {
			c.In = *e.Constraints.MaxIncoming
		}
		if e.Constraints.MaxOutgoing != nil {
			c.Out = *e.Constraints.MaxOutgoing
		}
	}
	return c
}

// WantsIncoming reports whether the element can accept an incoming link at all.
func (c Capacity) WantsIncoming() bool { return c.In > 0 }

// WantsOutgoing reports whether the element can produce an outgoing link at all.
func (c Capacity) WantsOutgoing() bool { return c.Out > 0 }
