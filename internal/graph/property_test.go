package graph

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

type op struct {
	Kind int
	A    int
	B    int
}

func genOp() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(0, 4),
		gen.IntRange(0, 5),
		gen.IntRange(0, 5),
	).Map(func(v []interface{}) op {
		return op{Kind: v[0].(int), A: v[1].(int), B: v[2].(int)}
	})
}

func apply(m *Model, o op) {
	a := fmt.Sprintf("n%d", o.A)
	b := fmt.Sprintf("n%d", o.B)
	switch o.Kind {
	case 0:
		_, _ = m.AddNode(&Node{ID: a})
	case 1:
		_ = m.RemoveNode(a)
	case 2:
		_, _ = m.AddLink(Link{Source: Endpoint{Node: a}, Target: Endpoint{Node: b}})
	case 3:
		links := m.ConnectedLinks(a, Any)
		if len(links) > 0 {
			_ = m.RemoveLink(links[0].ID)
		}
	case 4:
		_ = m.Atomic(func() error {
			_ = m.RemoveNode(b)
			return fmt.Errorf("rollback")
		})
	}
}

func integrityHolds(v View) bool {
	seen := map[[2]Endpoint]bool{}
	for _, l := range v.Links() {
		if _, ok := v.Node(l.Source.Node); !ok {
			return false
		}
		if _, ok := v.Node(l.Target.Node); !ok {
			return false
		}
		key := [2]Endpoint{l.Source, l.Target}
		if seen[key] {
			return false
		}
		seen[key] = true
	}
	return true
}

// TestModelInvariants checks that no sequence of operations leaves a link
// pointing at a missing node, whether observed directly or from a listener.
func TestModelInvariants(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping property-based test in short mode")
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("referential integrity after every operation", prop.ForAll(
		func(ops []op) bool {
			m := newTestModel()
			ok := true
			m.Subscribe(func(Event) {
				if !integrityHolds(m) {
					ok = false
				}
			})
			for _, o := range ops {
				apply(m, o)
				if !integrityHolds(m) || !integrityHolds(m.Snapshot()) {
					return false
				}
			}
			return ok
		},
		gen.SliceOf(genOp()),
	))

	properties.TestingRun(t)
}
