package service

import (
	"context"
	"maps"
	"slices"
	"time"

	"clubhouse/internal/cache"
	"clubhouse/internal/featureflags"
	"clubhouse/internal/interaction"
	"clubhouse/internal/mention"
	"clubhouse/internal/models"
	"clubhouse/internal/observability"
	"clubhouse/internal/repository"
	"clubhouse/internal/thread"

	"go.opentelemetry.io/otel/attribute"
)

// DefaultPageSize is used when a request does not name a page size.
const DefaultPageSize = 20

type ThreadPageInput struct {
	ViewerID  string
	Kind      models.EntityKind
	EntityID  string
	Page      int
	PageSize  int
	Highlight string
}

// CommentView is one comment as a viewer sees it.
type CommentView struct {
	ID            string            `json:"id"`
	ParentID      *string           `json:"parent_id"`
	Author        *models.Profile   `json:"author,omitempty"`
	Body          string            `json:"body"`
	Segments      []mention.Segment `json:"segments"`
	BodyHTML      string            `json:"body_html,omitempty"`
	Deleted       bool              `json:"deleted"`
	LikeCount     int               `json:"like_count"`
	Liked         bool              `json:"liked"`
	BookmarkCount int               `json:"bookmark_count"`
	Bookmarked    bool              `json:"bookmarked"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

type ThreadView struct {
	Comment CommentView   `json:"comment"`
	Replies []CommentView `json:"replies"`
}

// ThreadPage is the response for one page of an entity's threads.
type ThreadPage struct {
	EntityKind models.EntityKind `json:"entity_kind"`
	EntityID   string            `json:"entity_id"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalRoots int               `json:"total_roots"`
	TotalPages int               `json:"total_pages"`
	Threads    []ThreadView      `json:"threads"`
}

// threadSnapshot is the cached, viewer-independent part of a page.
type threadSnapshot struct {
	Page     thread.Page               `json:"page"`
	Profiles map[string]models.Profile `json:"profiles"`
}

type ThreadService struct {
	commentRepo     repository.CommentRepository
	entityRepo      repository.EntityRepository
	profileRepo     repository.ProfileRepository
	interactionRepo repository.InteractionRepository
	flags           *featureflags.Manager
	cacheTTL        time.Duration
}

func NewThreadService(
	commentRepo repository.CommentRepository,
	entityRepo repository.EntityRepository,
	profileRepo repository.ProfileRepository,
	interactionRepo repository.InteractionRepository,
	flags *featureflags.Manager,
	cacheTTL time.Duration,
) *ThreadService {
	if cacheTTL <= 0 {
		cacheTTL = cache.ThreadTTL
	}
	return &ThreadService{
		commentRepo:     commentRepo,
		entityRepo:      entityRepo,
		profileRepo:     profileRepo,
		interactionRepo: interactionRepo,
		flags:           flags,
		cacheTTL:        cacheTTL,
	}
}

// GetThreadPage returns one page of root comments, each with its complete
// reply list, plus the like and bookmark state of every comment on it.
func (s *ThreadService) GetThreadPage(ctx context.Context, in ThreadPageInput) (*ThreadPage, error) {
	start := time.Now()
	defer func() {
		observability.ThreadPageLatency.Observe(time.Since(start).Seconds())
	}()

	span, ctx := observability.NewSpan(ctx, "ThreadService.GetThreadPage")
	defer span.End()
	span.AddAttributes(
		attribute.String("entity.kind", string(in.Kind)),
		attribute.String("entity.id", in.EntityID),
		attribute.Int("page", in.Page),
	)

	if !in.Kind.Valid() {
		return nil, models.NewValidationError("Unknown entity kind: " + string(in.Kind))
	}
	if in.Page <= 0 {
		return nil, models.NewValidationError("page number must be positive")
	}
	if in.PageSize <= 0 {
		return nil, models.NewValidationError("page size must be positive")
	}
	size := min(in.PageSize, thread.MaxPageSize)

	var snap threadSnapshot
	hit, err := cache.HashAside(ctx, cache.ThreadKey(in.Kind, in.EntityID), cache.ThreadField(in.Page, size), &snap, s.cacheTTL, func() error {
		return s.loadSnapshot(ctx, in.Kind, in.EntityID, in.Page, size, &snap)
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	span.AddAttributes(attribute.Bool("cache.hit", hit))

	ids := thread.CommentIDs(snap.Page.Threads)
	state, err := s.interactionState(ctx, ids, in.ViewerID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	withHTML := s.flags.Enabled(featureflags.CommentHTML, in.ViewerID)
	view := func(c models.Comment) CommentView {
		return s.commentView(c, snap.Profiles, state, in.Highlight, withHTML)
	}

	out := &ThreadPage{
		EntityKind: in.Kind,
		EntityID:   in.EntityID,
		Page:       snap.Page.Page,
		PageSize:   snap.Page.PageSize,
		TotalRoots: snap.Page.TotalRoots,
		TotalPages: snap.Page.TotalPages,
		Threads:    make([]ThreadView, 0, len(snap.Page.Threads)),
	}
	for _, t := range snap.Page.Threads {
		tv := ThreadView{Comment: view(t.Root), Replies: make([]CommentView, 0, len(t.Replies))}
		for _, r := range t.Replies {
			tv.Replies = append(tv.Replies, view(r))
		}
		out.Threads = append(out.Threads, tv)
	}
	return out, nil
}

func (s *ThreadService) loadSnapshot(ctx context.Context, kind models.EntityKind, entityID string, page, size int, snap *threadSnapshot) error {
	ok, err := s.entityRepo.Exists(ctx, kind, entityID)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewNotFoundError(entityLabel(kind), entityID)
	}

	comments, err := s.commentRepo.ListByEntity(ctx, kind, entityID)
	if err != nil {
		return err
	}
	p, err := thread.Paginate(thread.Build(comments), page, size)
	if err != nil {
		return err
	}

	// Authors and mentioned users resolve in a single lookup.
	ids := map[string]struct{}{}
	var bodies []string
	for _, t := range p.Threads {
		for _, c := range append([]models.Comment{t.Root}, t.Replies...) {
			ids[c.UserID] = struct{}{}
			if !c.Deleted {
				bodies = append(bodies, c.Body)
			}
		}
	}
	for _, id := range mention.ExtractTokens(bodies...) {
		ids[id] = struct{}{}
	}

	profiles := map[string]models.Profile{}
	if len(ids) > 0 {
		profiles, err = s.profileRepo.LookupByIDs(ctx, slices.Sorted(maps.Keys(ids)))
		if err != nil {
			return err
		}
	}

	snap.Page = p
	snap.Profiles = profiles
	return nil
}

type pageState struct {
	likes      map[string]int
	liked      map[string]bool
	bookmarks  map[string]int
	bookmarked map[string]bool
}

// interactionState is read fresh on every request; counts change far more
// often than comment bodies.
func (s *ThreadService) interactionState(ctx context.Context, ids []string, viewerID string) (pageState, error) {
	st := pageState{
		likes:      map[string]int{},
		liked:      map[string]bool{},
		bookmarks:  map[string]int{},
		bookmarked: map[string]bool{},
	}
	if len(ids) == 0 {
		return st, nil
	}

	var err error
	if st.likes, err = s.interactionRepo.Counts(ctx, interaction.NamespaceLike, models.SubjectKindComment, ids); err != nil {
		return st, err
	}
	if st.bookmarks, err = s.interactionRepo.Counts(ctx, interaction.NamespaceBookmark, models.SubjectKindComment, ids); err != nil {
		return st, err
	}
	if viewerID == "" {
		return st, nil
	}
	if st.liked, err = s.interactionRepo.ViewerEdges(ctx, interaction.NamespaceLike, models.SubjectKindComment, ids, viewerID); err != nil {
		return st, err
	}
	if st.bookmarked, err = s.interactionRepo.ViewerEdges(ctx, interaction.NamespaceBookmark, models.SubjectKindComment, ids, viewerID); err != nil {
		return st, err
	}
	return st, nil
}

func (s *ThreadService) commentView(c models.Comment, profiles map[string]models.Profile, st pageState, highlight string, withHTML bool) CommentView {
	v := CommentView{
		ID:            c.ID,
		ParentID:      c.ParentID,
		Body:          c.Body,
		Deleted:       c.Deleted,
		LikeCount:     st.likes[c.ID],
		Liked:         st.liked[c.ID],
		BookmarkCount: st.bookmarks[c.ID],
		Bookmarked:    st.bookmarked[c.ID],
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
	if p, ok := profiles[c.UserID]; ok {
		v.Author = &p
	}

	segments := mention.Render(c.DisplayBody(), profiles, highlight)
	v.Segments = slices.Collect(segments)
	if v.Segments == nil {
		v.Segments = []mention.Segment{}
	}
	if withHTML {
		v.BodyHTML = mention.RenderHTML(segments)
	}
	return v
}
