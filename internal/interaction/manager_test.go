package interaction

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"clubhouse/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var subject = models.Subject{Kind: models.SubjectKindComment, ID: "c-1"}

func waitOutcome(t *testing.T, ch <-chan Outcome) Outcome {
	t.Helper()
	select {
	case out := <-ch:
		return out
	case <-time.After(2 * time.Second):
		t.Fatal("toggle never settled")
		return Outcome{}
	}
}

func TestReduce(t *testing.T) {
	t.Parallel()

	s := Reduce(State{Count: 4}, Event{Kind: Toggled})
	assert.Equal(t, State{Count: 5, Active: true, Pending: true}, s)

	s = Reduce(State{Count: 1, Active: true}, Event{Kind: Toggled})
	assert.Equal(t, State{Count: 0, Active: false, Pending: true}, s)

	// A stale count never goes negative.
	s = Reduce(State{Count: 0, Active: true}, Event{Kind: Toggled})
	assert.Equal(t, 0, s.Count)

	s = Reduce(State{Count: 5, Active: true, Pending: true}, Event{Kind: Committed})
	assert.Equal(t, State{Count: 5, Active: true}, s)

	s = Reduce(State{Count: 5, Active: true, Pending: true}, Event{Kind: RolledBack, Prior: State{Count: 4}})
	assert.Equal(t, State{Count: 4}, s)
}

func TestToggle_RollbackRestoresPriorState(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	m := NewManager(CommitterFunc(func(context.Context, Namespace, models.Subject, bool) (Result, error) {
		<-release
		return Result{}, models.NewTransientStoreError(errors.New("connection reset"))
	}), nil)
	m.Seed(NamespaceLike, subject, State{Count: 4})

	optimistic, done, err := m.Toggle(context.Background(), NamespaceLike, subject, false)
	require.NoError(t, err)
	assert.Equal(t, State{Count: 5, Active: true, Pending: true}, optimistic)
	assert.Equal(t, optimistic, m.Snapshot(NamespaceLike, subject))

	close(release)
	out := waitOutcome(t, done)
	require.Error(t, out.Err)
	assert.True(t, models.HasCode(out.Err, models.CodeTransientStore))
	assert.Equal(t, State{Count: 4, Active: false}, out.State)
	assert.Equal(t, State{Count: 4, Active: false}, m.Snapshot(NamespaceLike, subject))

	select {
	case n := <-m.Notices():
		assert.Equal(t, NamespaceLike, n.Key.Namespace)
		assert.NotEmpty(t, n.Message)
	case <-time.After(time.Second):
		t.Fatal("no notice emitted")
	}
}

func TestToggle_MismatchedFlagLeavesStateAlone(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	calls := 0
	m := NewManager(CommitterFunc(func(context.Context, Namespace, models.Subject, bool) (Result, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return Result{}, models.NewPermissionError("nope")
	}), nil)
	seeded := State{Count: 4, Active: true}
	m.Seed(NamespaceLike, subject, seeded)

	state, done, err := m.Toggle(context.Background(), NamespaceLike, subject, false)
	assert.ErrorIs(t, err, ErrStateMismatch)
	assert.Nil(t, done)
	assert.Equal(t, seeded, state)
	assert.Equal(t, seeded, m.Snapshot(NamespaceLike, subject))

	optimistic, done, err := m.Toggle(context.Background(), NamespaceLike, subject, true)
	require.NoError(t, err)
	assert.Equal(t, State{Count: 3, Active: false, Pending: true}, optimistic)

	out := waitOutcome(t, done)
	require.Error(t, out.Err)
	assert.Equal(t, seeded, out.State)
	assert.Equal(t, seeded, m.Snapshot(NamespaceLike, subject))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestToggle_UnseededSubjectStartsFromCallerFlag(t *testing.T) {
	t.Parallel()

	m := NewManager(CommitterFunc(func(context.Context, Namespace, models.Subject, bool) (Result, error) {
		return Result{}, models.NewTransientStoreError(errors.New("timeout"))
	}), nil)

	optimistic, done, err := m.Toggle(context.Background(), NamespaceBookmark, subject, true)
	require.NoError(t, err)
	assert.Equal(t, State{Count: 0, Active: false, Pending: true}, optimistic)

	out := waitOutcome(t, done)
	assert.Equal(t, State{Count: 0, Active: true}, out.State)
}

func TestToggle_SuccessKeepsOptimisticState(t *testing.T) {
	t.Parallel()

	m := NewManager(CommitterFunc(func(context.Context, Namespace, models.Subject, bool) (Result, error) {
		// The server count is not applied client side.
		return Result{Count: 99, Active: true}, nil
	}), nil)
	m.Seed(NamespaceBookmark, subject, State{Count: 2})

	_, done, err := m.Toggle(context.Background(), NamespaceBookmark, subject, false)
	require.NoError(t, err)
	out := waitOutcome(t, done)
	require.NoError(t, out.Err)
	assert.Equal(t, State{Count: 3, Active: true}, m.Snapshot(NamespaceBookmark, subject))
	assert.Zero(t, m.Snapshot(NamespaceLike, subject))
}

func TestToggle_SecondToggleWhileInFlightIsRejected(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	m := NewManager(CommitterFunc(func(context.Context, Namespace, models.Subject, bool) (Result, error) {
		<-release
		return Result{}, nil
	}), nil)

	_, done, err := m.Toggle(context.Background(), NamespaceLike, subject, false)
	require.NoError(t, err)

	state, again, err := m.Toggle(context.Background(), NamespaceLike, subject, true)
	assert.ErrorIs(t, err, ErrToggleInFlight)
	assert.Nil(t, again)
	assert.True(t, state.Pending)

	// Different namespace is independent.
	_, other, err := m.Toggle(context.Background(), NamespaceBookmark, subject, false)
	require.NoError(t, err)

	close(release)
	waitOutcome(t, done)
	waitOutcome(t, other)

	_, third, err := m.Toggle(context.Background(), NamespaceLike, subject, true)
	require.NoError(t, err)
	waitOutcome(t, third)
	assert.Equal(t, State{Count: 0, Active: false}, m.Snapshot(NamespaceLike, subject))
}

func TestToggle_CommitSurvivesCallerCancellation(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var sawCancel bool
	release := make(chan struct{})
	m := NewManager(CommitterFunc(func(ctx context.Context, _ Namespace, _ models.Subject, active bool) (Result, error) {
		<-release
		mu.Lock()
		sawCancel = ctx.Err() != nil
		mu.Unlock()
		assert.False(t, active)
		return Result{Count: 1, Active: true}, nil
	}), nil)

	ctx, cancel := context.WithCancel(context.Background())
	_, done, err := m.Toggle(ctx, NamespaceLike, subject, false)
	require.NoError(t, err)
	cancel()
	close(release)

	out := waitOutcome(t, done)
	require.NoError(t, out.Err)
	mu.Lock()
	assert.False(t, sawCancel)
	mu.Unlock()
}

func TestToggle_UnknownNamespace(t *testing.T) {
	t.Parallel()

	m := NewManager(CommitterFunc(func(context.Context, Namespace, models.Subject, bool) (Result, error) {
		return Result{}, nil
	}), nil)
	_, _, err := m.Toggle(context.Background(), Namespace("star"), subject, false)
	assert.True(t, models.HasCode(err, models.CodeValidation))
}

func TestSeed_DoesNotClobberPendingState(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	m := NewManager(CommitterFunc(func(context.Context, Namespace, models.Subject, bool) (Result, error) {
		<-release
		return Result{}, nil
	}), nil)
	m.Seed(NamespaceLike, subject, State{Count: 1})

	_, done, err := m.Toggle(context.Background(), NamespaceLike, subject, false)
	require.NoError(t, err)
	m.Seed(NamespaceLike, subject, State{Count: 7})
	assert.Equal(t, State{Count: 2, Active: true, Pending: true}, m.Snapshot(NamespaceLike, subject))

	close(release)
	waitOutcome(t, done)
}
