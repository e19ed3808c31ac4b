package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"clubhouse/internal/interaction"
	"clubhouse/internal/models"
	"clubhouse/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyInteractionRepo fails the first failures Add calls with err.
type flakyInteractionRepo struct {
	repository.InteractionRepository
	err      error
	failures int32
	calls    atomic.Int32
}

func (r *flakyInteractionRepo) Add(ctx context.Context, ns interaction.Namespace, subject models.Subject, userID string) error {
	if r.calls.Add(1) <= r.failures {
		return r.err
	}
	return r.InteractionRepository.Add(ctx, ns, subject, userID)
}

func (f *fixture) interactionService() *InteractionService {
	svc := NewInteractionService(f.interactions, f.comments, f.entities)
	svc.retryInterval = time.Millisecond
	return svc
}

func TestInteractionService_Toggle_Validation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	alice := f.user(t, "alice")
	entry := f.log(t, alice)
	c := f.seedComment(t, entry.ID, alice, "hi", nil, time.Now())
	svc := f.interactionService()
	ctx := context.Background()

	tests := []struct {
		name    string
		viewer  string
		ns      interaction.Namespace
		subject models.Subject
		code    string
	}{
		{"anonymous", "", interaction.NamespaceLike, models.Subject{Kind: models.SubjectKindComment, ID: c.ID}, models.CodeUnauthenticated},
		{"unknown namespace", alice.ID, "star", models.Subject{Kind: models.SubjectKindComment, ID: c.ID}, models.CodeValidation},
		{"unknown subject kind", alice.ID, interaction.NamespaceLike, models.Subject{Kind: "user", ID: c.ID}, models.CodeValidation},
		{"empty subject id", alice.ID, interaction.NamespaceLike, models.Subject{Kind: models.SubjectKindComment}, models.CodeValidation},
		{"missing comment", alice.ID, interaction.NamespaceLike, models.Subject{Kind: models.SubjectKindComment, ID: "404"}, models.CodeNotFound},
		{"missing entity", alice.ID, interaction.NamespaceBookmark, models.Subject{Kind: models.SubjectKindEntity, ID: "404"}, models.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Toggle(ctx, tt.viewer, tt.ns, tt.subject, false)
			assertCode(t, err, tt.code)
		})
	}
}

func TestInteractionService_Toggle(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	entry := f.log(t, alice)
	c := f.seedComment(t, entry.ID, alice, "hi", nil, time.Now())
	subject := models.Subject{Kind: models.SubjectKindComment, ID: c.ID}
	svc := f.interactionService()
	ctx := context.Background()

	res, err := svc.Toggle(ctx, alice.ID, interaction.NamespaceLike, subject, false)
	require.NoError(t, err)
	assert.Equal(t, interaction.Result{Count: 1, Active: true}, res)

	// Re-inserting an existing edge is a no-op.
	res, err = svc.Toggle(ctx, alice.ID, interaction.NamespaceLike, subject, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)

	res, err = svc.Toggle(ctx, bob.ID, interaction.NamespaceLike, subject, false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)

	// Bookmarks are a separate namespace.
	res, err = svc.Toggle(ctx, alice.ID, interaction.NamespaceBookmark, subject, false)
	require.NoError(t, err)
	assert.Equal(t, interaction.Result{Count: 1, Active: true}, res)

	res, err = svc.Toggle(ctx, alice.ID, interaction.NamespaceLike, subject, true)
	require.NoError(t, err)
	assert.Equal(t, interaction.Result{Count: 1, Active: false}, res)

	bookmarks, err := f.interactions.Count(ctx, interaction.NamespaceBookmark, subject)
	require.NoError(t, err)
	assert.Equal(t, 1, bookmarks)
}

func TestInteractionService_Toggle_EntitySubject(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	alice := f.user(t, "alice")
	entry := f.log(t, alice)
	svc := f.interactionService()

	res, err := svc.Toggle(context.Background(), alice.ID, interaction.NamespaceBookmark, models.Subject{Kind: models.SubjectKindEntity, ID: entry.ID}, false)
	require.NoError(t, err)
	assert.Equal(t, interaction.Result{Count: 1, Active: true}, res)
}

func TestInteractionService_Toggle_Retry(t *testing.T) {
	t.Parallel()

	transient := models.NewTransientStoreError(errors.New("connection reset"))

	tests := []struct {
		name      string
		err       error
		failures  int32
		wantCalls int32
		wantCode  string
	}{
		{"recovers after transient failures", transient, 2, 3, ""},
		{"gives up after three attempts", transient, 5, 3, models.CodeTransientStore},
		{"does not retry other errors", models.NewValidationError("bad edge"), 5, 1, models.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			alice := f.user(t, "alice")
			entry := f.log(t, alice)
			c := f.seedComment(t, entry.ID, alice, "hi", nil, time.Now())

			repo := &flakyInteractionRepo{InteractionRepository: f.interactions, err: tt.err, failures: tt.failures}
			svc := NewInteractionService(repo, f.comments, f.entities)
			svc.retryInterval = time.Millisecond

			res, err := svc.Toggle(context.Background(), alice.ID, interaction.NamespaceLike, models.Subject{Kind: models.SubjectKindComment, ID: c.ID}, false)
			assert.Equal(t, tt.wantCalls, repo.calls.Load())
			if tt.wantCode != "" {
				assertCode(t, err, tt.wantCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 1, res.Count)
		})
	}
}

func TestInteractionService_CommitterForDrivesManager(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	alice := f.user(t, "alice")
	entry := f.log(t, alice)
	c := f.seedComment(t, entry.ID, alice, "hi", nil, time.Now())
	subject := models.Subject{Kind: models.SubjectKindComment, ID: c.ID}
	svc := f.interactionService()

	mgr := interaction.NewManager(svc.CommitterFor(alice.ID), nil)
	optimistic, done, err := mgr.Toggle(context.Background(), interaction.NamespaceLike, subject, false)
	require.NoError(t, err)
	assert.True(t, optimistic.Active)
	assert.True(t, optimistic.Pending)
	assert.Equal(t, 1, optimistic.Count)

	select {
	case out := <-done:
		require.NoError(t, out.Err)
		assert.Equal(t, interaction.State{Count: 1, Active: true}, out.State)
	case <-time.After(5 * time.Second):
		t.Fatal("toggle did not settle")
	}

	n, err := f.interactions.Count(context.Background(), interaction.NamespaceLike, subject)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	anon := interaction.NewManager(svc.CommitterFor(""), nil)
	_, done, err = anon.Toggle(context.Background(), interaction.NamespaceLike, subject, true)
	require.NoError(t, err)
	out := <-done
	assertCode(t, out.Err, models.CodeUnauthenticated)
	assert.Equal(t, interaction.State{Count: 0, Active: true}, out.State)
}
