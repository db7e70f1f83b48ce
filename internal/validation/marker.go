package validation

import (
	"maps"
	"slices"
	"sort"

	"github.com/vk/flowgrid/internal/graph"
)

// Severity ranks a marker.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ParseSeverity maps free-form severities to a known value. Anything other
// than "warning" is an error.
func ParseSeverity(s string) Severity {
	if s == string(SeverityWarning) {
		return SeverityWarning
	}
	return SeverityError
}

// Marker is a single diagnostic attached to an element.
type Marker struct {
	Severity Severity
	Message  string
	Range    *graph.TextRange
}

// DocumentID is the pseudo element id for markers about the whole text.
const DocumentID = ""

// Markers maps an element id to its markers.
type Markers map[string][]Marker

// Add appends a marker for id.
func (m Markers) Add(id string, marker Marker) {
	m[id] = append(m[id], marker)
}

// Merge appends every marker of other.
func (m Markers) Merge(other Markers) {
	for id, list := range other {
		m[id] = append(m[id], list...)
	}
}

// IDs returns the element ids that carry markers, sorted.
func (m Markers) IDs() []string {
	ids := slices.Collect(maps.Keys(m))
	sort.Strings(ids)
	return ids
}

// Count returns the number of markers of the given severity.
func (m Markers) Count(s Severity) int {
	n := 0
	for _, list := range m {
		for _, mk := range list {
			if mk.Severity == s {
				n++
			}
		}
	}
	return n
}

// HasErrors reports whether any marker is an error.
func (m Markers) HasErrors() bool { return m.Count(SeverityError) > 0 }

// Equal compares two marker sets element by element.
func (m Markers) Equal(o Markers) bool {
	if len(m) != len(o) {
		return false
	}
	for id, list := range m {
		other, ok := o[id]
		if !ok || len(other) != len(list) {
			return false
		}
		for i := range list {
			if list[i].Severity != other[i].Severity || list[i].Message != other[i].Message {
				return false
			}
		}
	}
	return true
}

// normalize sorts each element's markers, errors first, then by message, and
// drops ids with no markers.
func (m Markers) normalize() {
	for id, list := range m {
		if len(list) == 0 {
			delete(m, id)
			continue
		}
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].Severity != list[j].Severity {
				return list[i].Severity == SeverityError
			}
			return list[i].Message < list[j].Message
		})
	}
}
