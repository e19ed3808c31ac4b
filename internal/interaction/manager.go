package interaction

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"clubhouse/internal/models"
)

// ErrToggleInFlight is returned when a subject already has an outstanding
// toggle. Callers disable the triggering control until the first settles.
var ErrToggleInFlight = errors.New("toggle already in flight")

// ErrStateMismatch is returned when currentlyActive disagrees with the state
// the manager already holds for a subject. Callers reseed before retrying.
var ErrStateMismatch = errors.New("toggle does not match the visible state")

// Result is the store's view of a subject after a write.
type Result struct {
	Count  int  `json:"count"`
	Active bool `json:"active"`
}

// Committer performs the persistent half of a toggle: insert the edge when
// currentlyActive is false, delete it when true.
type Committer interface {
	Commit(ctx context.Context, ns Namespace, subject models.Subject, currentlyActive bool) (Result, error)
}

// CommitterFunc adapts a function to Committer.
type CommitterFunc func(ctx context.Context, ns Namespace, subject models.Subject, currentlyActive bool) (Result, error)

// Commit calls f.
func (f CommitterFunc) Commit(ctx context.Context, ns Namespace, subject models.Subject, currentlyActive bool) (Result, error) {
	return f(ctx, ns, subject, currentlyActive)
}

// Outcome is delivered once per toggle after the store write settles.
type Outcome struct {
	Key   Key
	State State
	Err   error
}

// Notice is a transient, user-facing message about a rolled back toggle.
type Notice struct {
	Key     Key
	Message string
	Err     error
}

const noticeBuffer = 16

// Manager owns the visible interaction state for one viewer.
type Manager struct {
	committer Committer
	logger    *slog.Logger

	mu      sync.Mutex
	states  map[Key]State
	notices chan Notice
}

// NewManager creates a Manager that writes through committer.
func NewManager(committer Committer, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		committer: committer,
		logger:    logger,
		states:    make(map[Key]State),
		notices:   make(chan Notice, noticeBuffer),
	}
}

// Seed sets the known state for a subject, typically from a thread page.
// Subjects with a pending toggle keep their optimistic state.
func (m *Manager) Seed(ns Namespace, subject models.Subject, s State) {
	key := Key{Namespace: ns, Subject: subject}
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.states[key]; ok && cur.Pending {
		return
	}
	s.Pending = false
	m.states[key] = s
}

// Snapshot returns the visible state for a subject.
func (m *Manager) Snapshot(ns Namespace, subject models.Subject) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[Key{Namespace: ns, Subject: subject}]
}

// Notices delivers transient messages for failed toggles. Notices are
// dropped when nobody reads them.
func (m *Manager) Notices() <-chan Notice {
	return m.notices
}

// Toggle flips the visible state immediately and commits in the background.
// On failure the state returns to exactly what it was before the call. A
// subject the manager has never seen starts from currentlyActive with a zero
// count. The commit is detached from ctx's cancellation so leaving a view
// does not abort it.
func (m *Manager) Toggle(ctx context.Context, ns Namespace, subject models.Subject, currentlyActive bool) (State, <-chan Outcome, error) {
	if !ns.Valid() {
		return State{}, nil, models.NewValidationError("unknown interaction namespace: " + string(ns))
	}
	key := Key{Namespace: ns, Subject: subject}

	m.mu.Lock()
	prior, known := m.states[key]
	if prior.Pending {
		m.mu.Unlock()
		return prior, nil, ErrToggleInFlight
	}
	if !known {
		prior = State{Active: currentlyActive}
	} else if prior.Active != currentlyActive {
		m.mu.Unlock()
		return prior, nil, ErrStateMismatch
	}
	optimistic := Reduce(prior, Event{Kind: Toggled})
	m.states[key] = optimistic
	m.mu.Unlock()

	done := make(chan Outcome, 1)
	go m.commit(context.WithoutCancel(ctx), key, prior, currentlyActive, done)
	return optimistic, done, nil
}

func (m *Manager) commit(ctx context.Context, key Key, prior State, currentlyActive bool, done chan<- Outcome) {
	_, err := m.committer.Commit(ctx, key.Namespace, key.Subject, currentlyActive)

	m.mu.Lock()
	var next State
	if err != nil {
		next = Reduce(m.states[key], Event{Kind: RolledBack, Prior: prior})
	} else {
		next = Reduce(m.states[key], Event{Kind: Committed})
	}
	m.states[key] = next
	m.mu.Unlock()

	if err != nil {
		m.logger.Warn("interaction toggle rolled back",
			slog.String("namespace", string(key.Namespace)),
			slog.String("subject", key.Subject.String()),
			slog.String("error", err.Error()))
		select {
		case m.notices <- Notice{Key: key, Message: noticeMessage(key.Namespace), Err: err}:
		default:
		}
	}
	done <- Outcome{Key: key, State: next, Err: err}
	close(done)
}

func noticeMessage(ns Namespace) string {
	if ns == NamespaceBookmark {
		return "Could not update bookmark. Please try again."
	}
	return "Could not update like. Please try again."
}
