package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is matched by every *NotFoundError.
	ErrNotFound = errors.New("element not found")
	// ErrDuplicateLink is returned when a link between the same ports exists.
	ErrDuplicateLink = errors.New("duplicate link")
	// ErrDanglingLink is returned when a link end is not attached to a node.
	ErrDanglingLink = errors.New("dangling link")
	// ErrDuplicateID is returned when an element id is already in use.
	ErrDuplicateID = errors.New("duplicate id")
)

// NotFoundError reports a mutation or query against an unknown element.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// Is makes errors.Is(err, ErrNotFound) hold for any NotFoundError.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func nodeNotFound(id string) error { return &NotFoundError{Kind: "node", ID: id} }
func linkNotFound(id string) error { return &NotFoundError{Kind: "link", ID: id} }
