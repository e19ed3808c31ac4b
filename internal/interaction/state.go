// Package interaction tracks like and bookmark state as a viewer sees it,
// applying toggles optimistically and rolling them back when the store
// write fails.
package interaction

import "clubhouse/internal/models"

// Namespace separates likes from bookmarks. The same subject has independent
// state in each.
type Namespace string

const (
	NamespaceLike     Namespace = "like"
	NamespaceBookmark Namespace = "bookmark"
)

// Valid reports whether ns is a known namespace.
func (ns Namespace) Valid() bool {
	return ns == NamespaceLike || ns == NamespaceBookmark
}

// Key identifies one piece of interaction state.
type Key struct {
	Namespace Namespace
	Subject   models.Subject
}

// State is what the viewer sees for one subject: the edge count, whether
// they own an edge, and whether a write is outstanding.
type State struct {
	Count   int  `json:"count"`
	Active  bool `json:"active"`
	Pending bool `json:"pending"`
}

// EventKind names a state transition.
type EventKind int

const (
	// Toggled flips Active and adjusts Count optimistically.
	Toggled EventKind = iota
	// Committed confirms the optimistic state.
	Committed
	// RolledBack restores Prior.
	RolledBack
)

func (k EventKind) String() string {
	switch k {
	case Toggled:
		return "toggled"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled_back"
	}
	return "unknown"
}

// Event drives Reduce. Prior is only read for RolledBack.
type Event struct {
	Kind  EventKind
	Prior State
}

// Reduce applies e to s and returns the new state. It has no side effects.
func Reduce(s State, e Event) State {
	switch e.Kind {
	case Toggled:
		next := State{Active: !s.Active, Count: s.Count, Pending: true}
		if next.Active {
			next.Count++
		} else if next.Count > 0 {
			next.Count--
		}
		return next
	case Committed:
		s.Pending = false
		return s
	case RolledBack:
		prior := e.Prior
		prior.Pending = false
		return prior
	}
	return s
}
