package service

import (
	"context"
	"log/slog"
	"time"

	"clubhouse/internal/interaction"
	"clubhouse/internal/middleware"
	"clubhouse/internal/models"
	"clubhouse/internal/observability"
	"clubhouse/internal/repository"

	"github.com/cenkalti/backoff/v4"
)

const (
	toggleMaxRetries  = 2
	toggleRetryBudget = 2 * time.Second
)

// InteractionService commits like and bookmark toggles. Edge writes are
// idempotent so a retried insert or delete is always safe.
type InteractionService struct {
	interactionRepo repository.InteractionRepository
	commentRepo     repository.CommentRepository
	entityRepo      repository.EntityRepository

	// retryInterval is the first backoff delay; tests shorten it.
	retryInterval time.Duration
}

func NewInteractionService(
	interactionRepo repository.InteractionRepository,
	commentRepo repository.CommentRepository,
	entityRepo repository.EntityRepository,
) *InteractionService {
	return &InteractionService{
		interactionRepo: interactionRepo,
		commentRepo:     commentRepo,
		entityRepo:      entityRepo,
		retryInterval:   100 * time.Millisecond,
	}
}

// Toggle inserts the viewer's edge when currentlyActive is false and removes
// it when true, then returns the authoritative count.
func (s *InteractionService) Toggle(ctx context.Context, viewerID string, ns interaction.Namespace, subject models.Subject, currentlyActive bool) (interaction.Result, error) {
	result, err := s.toggle(ctx, viewerID, ns, subject, currentlyActive)
	outcome := "committed"
	if err != nil {
		outcome = "failed"
	}
	observability.InteractionToggles.WithLabelValues(string(ns), outcome).Inc()
	return result, err
}

func (s *InteractionService) toggle(ctx context.Context, viewerID string, ns interaction.Namespace, subject models.Subject, currentlyActive bool) (interaction.Result, error) {
	if err := requireViewer(viewerID); err != nil {
		return interaction.Result{}, err
	}
	if !ns.Valid() {
		return interaction.Result{}, models.NewValidationError("Unknown interaction: " + string(ns))
	}
	if err := s.requireSubject(ctx, subject); err != nil {
		return interaction.Result{}, err
	}

	write := s.interactionRepo.Add
	if currentlyActive {
		write = s.interactionRepo.Remove
	}
	err := s.retry(ctx, "toggle_"+string(ns), func() error {
		return write(ctx, ns, subject, viewerID)
	})
	if err != nil {
		return interaction.Result{}, err
	}

	var count int
	err = s.retry(ctx, "count_"+string(ns), func() error {
		var err error
		count, err = s.interactionRepo.Count(ctx, ns, subject)
		return err
	})
	if err != nil {
		return interaction.Result{}, err
	}
	return interaction.Result{Count: count, Active: !currentlyActive}, nil
}

// CommitterFor binds the service to one viewer so an interaction.Manager
// can run in-process against it.
func (s *InteractionService) CommitterFor(viewerID string) interaction.Committer {
	return interaction.CommitterFunc(func(ctx context.Context, ns interaction.Namespace, subject models.Subject, currentlyActive bool) (interaction.Result, error) {
		return s.Toggle(ctx, viewerID, ns, subject, currentlyActive)
	})
}

func (s *InteractionService) requireSubject(ctx context.Context, subject models.Subject) error {
	if subject.ID == "" {
		return models.NewValidationError("Subject id is required")
	}
	switch subject.Kind {
	case models.SubjectKindComment:
		c, err := s.commentRepo.GetByID(ctx, subject.ID)
		if err != nil {
			return err
		}
		if c.Deleted {
			return models.NewNotFoundError("Comment", subject.ID)
		}
		return nil
	case models.SubjectKindEntity:
		// Entity ids are UUIDs, unique across every content table.
		for _, kind := range models.EntityKinds {
			ok, err := s.entityRepo.Exists(ctx, kind, subject.ID)
			if err != nil {
				return err
			}
			if ok {
				return nil
			}
		}
		return models.NewNotFoundError("Entity", subject.ID)
	}
	return models.NewValidationError("Unknown subject kind: " + string(subject.Kind))
}

// retry runs op until it succeeds, fails with anything other than a
// transient store error, or the attempt budget is spent.
func (s *InteractionService) retry(ctx context.Context, name string, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.retryInterval
	b.MaxElapsedTime = toggleRetryBudget

	return backoff.RetryNotify(func() error {
		err := op()
		if err != nil && !models.HasCode(err, models.CodeTransientStore) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, toggleMaxRetries), ctx), func(err error, next time.Duration) {
		middleware.Logger.WarnContext(ctx, "retrying interaction write",
			slog.String("operation", name),
			slog.Duration("next", next),
			slog.String("error", err.Error()),
		)
	})
}
