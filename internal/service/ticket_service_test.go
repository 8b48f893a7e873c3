package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-portal/internal/domain"
	"github.com/spec-kit/support-portal/internal/observability"
	"github.com/spec-kit/support-portal/internal/store"
	apperrors "github.com/spec-kit/support-portal/pkg/util"
)

// fakeRepo is an in-memory system of record with the same revision
// semantics as the Postgres repository.
type fakeRepo struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
	order   []string

	insertErr error
	listErr   error
	getErr    error
	updateErr error
	deleteErr error

	// conflicts makes UpdateComments fail with CONFLICT this many times
	// before succeeding, simulating a concurrent writer.
	conflicts     int
	commentCalls  int
	conflictHook  func()
	listCallCount int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{tickets: make(map[string]*domain.Ticket)}
}

func (r *fakeRepo) ListAll(ctx context.Context) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCallCount++
	if r.listErr != nil {
		return nil, r.listErr
	}
	result := make([]domain.Ticket, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.tickets[id].Clone())
	}
	return result, nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	copied := ticket.Clone()
	return &copied, nil
}

func (r *fakeRepo) Insert(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	ticket.ID = uuid.NewString()
	ticket.Revision = 0
	stored := ticket.Clone()
	r.tickets[ticket.ID] = &stored
	r.order = append(r.order, ticket.ID)
	return nil
}

func (r *fakeRepo) Update(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.tickets[ticket.ID]; !ok {
		return apperrors.NewNotFound("ticket", map[string]any{"id": ticket.ID})
	}
	ticket.Revision++
	stored := ticket.Clone()
	r.tickets[ticket.ID] = &stored
	return nil
}

func (r *fakeRepo) UpdateComments(ctx context.Context, id string, comments []domain.Comment, expectedRevision int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commentCalls++
	ticket, ok := r.tickets[id]
	if !ok {
		return apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	if r.conflicts > 0 {
		r.conflicts--
		if r.conflictHook != nil {
			r.conflictHook()
		}
		return apperrors.NewConflict("ticket was modified concurrently", map[string]any{"id": id})
	}
	if ticket.Revision != expectedRevision {
		return apperrors.NewConflict("ticket was modified concurrently", map[string]any{"id": id})
	}
	ticket.Comments = append([]domain.Comment{}, comments...)
	ticket.Revision++
	return nil
}

func (r *fakeRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.tickets[id]; !ok {
		return apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	delete(r.tickets, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

type fakeSessions struct {
	err error
}

func (f *fakeSessions) ServiceSession(ctx context.Context) (*domain.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	return activeSession(), nil
}

type fakeDrafts struct {
	mu       sync.Mutex
	recorded []domain.Ticket
	err      error
}

func (f *fakeDrafts) Record(ctx context.Context, ticket domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.recorded = append(f.recorded, ticket)
	return nil
}

func activeSession() *domain.Session {
	now := time.Now()
	return &domain.Session{
		ID:        uuid.NewString(),
		Email:     "test@example.com",
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func adminSession() *domain.Session {
	s := activeSession()
	s.Admin = true
	return s
}

type testEnv struct {
	service  *TicketService
	repo     *fakeRepo
	store    *store.TicketStore
	drafts   *fakeDrafts
	sessions *fakeSessions
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := newFakeRepo()
	cache := store.New()
	drafts := &fakeDrafts{}
	sessions := &fakeSessions{}
	svc := NewTicketService(Dependencies{
		TicketRepo: repo,
		Store:      cache,
		Drafts:     drafts,
		Sessions:   sessions,
		Logger:     zap.NewNop(),
		Metrics:    observability.NewMetrics(),
	})
	return &testEnv{service: svc, repo: repo, store: cache, drafts: drafts, sessions: sessions}
}

func lincolnInput() SubmitInput {
	return SubmitInput{
		CustomerName:     "Lincoln ES",
		PhoneNumber:      "555-0100",
		Email:            "ops@lincoln.edu",
		IssueDescription: "Bus GPS offline",
	}
}

func TestSubmit_Defaults(t *testing.T) {
	env := newTestEnv(t)

	ticket, err := env.service.Submit(context.Background(), lincolnInput())
	require.NoError(t, err)

	assert.NotEmpty(t, ticket.ID)
	assert.NotEmpty(t, ticket.TicketNumber)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.False(t, ticket.Notified)
	assert.NotNil(t, ticket.Comments)
	assert.Empty(t, ticket.Comments)
	assert.True(t, ticket.CreatedAt.Equal(ticket.UpdatedAt))
	assert.Nil(t, ticket.ClosedAt)
}

func TestSubmit_ExplicitStatusRespected(t *testing.T) {
	env := newTestEnv(t)

	input := lincolnInput()
	input.Status = domain.TicketStatusInProgress
	ticket, err := env.service.Submit(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)
	// priority stays medium no matter what
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
}

func TestSubmit_AppearsInStoreAndDraftCache(t *testing.T) {
	env := newTestEnv(t)

	ticket, err := env.service.Submit(context.Background(), lincolnInput())
	require.NoError(t, err)

	// post-refetch the cache mirrors the remote collection
	cached, ok := env.store.Get(ticket.ID)
	require.True(t, ok)
	assert.Equal(t, "Lincoln ES", cached.CustomerName)
	assert.Equal(t, "555-0100", cached.PhoneNumber)
	assert.Equal(t, "ops@lincoln.edu", cached.Email)
	assert.Equal(t, "Bus GPS offline", cached.IssueDescription)

	entries := env.store.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, store.OriginRemote, entries[0].Origin)

	require.Len(t, env.drafts.recorded, 1)
	assert.Equal(t, ticket.TicketNumber, env.drafts.recorded[0].TicketNumber)
}

func TestSubmit_NoSessionNeverInserts(t *testing.T) {
	env := newTestEnv(t)
	env.sessions.err = apperrors.NewSessionRequired("could not sign in portal account")

	_, err := env.service.Submit(context.Background(), lincolnInput())
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "SESSION_REQUIRED"))
	assert.Empty(t, env.repo.order)
	assert.Zero(t, env.store.Len())
	assert.Empty(t, env.drafts.recorded)
}

func TestSubmit_InsertFailureReachesNeitherCache(t *testing.T) {
	env := newTestEnv(t)
	env.repo.insertErr = apperrors.NewRepositoryError("insert", assert.AnError)

	_, err := env.service.Submit(context.Background(), lincolnInput())
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "REPOSITORY"))
	assert.Zero(t, env.store.Len())
	assert.Empty(t, env.drafts.recorded)
}

func TestSubmit_DraftFailureDoesNotFailSubmission(t *testing.T) {
	env := newTestEnv(t)
	env.drafts.err = assert.AnError

	ticket, err := env.service.Submit(context.Background(), lincolnInput())
	require.NoError(t, err)
	_, ok := env.store.Get(ticket.ID)
	assert.True(t, ok)
}

func TestAddComment_OrderAndTimestamps(t *testing.T) {
	env := newTestEnv(t)
	ticket, err := env.service.Submit(context.Background(), lincolnInput())
	require.NoError(t, err)

	session := activeSession()
	first, err := env.service.AddComment(context.Background(), session, ticket.ID, "first")
	require.NoError(t, err)
	second, err := env.service.AddComment(context.Background(), session, ticket.ID, "second")
	require.NoError(t, err)

	stored, err := env.repo.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, stored.Comments, 2)
	assert.Equal(t, "first", stored.Comments[0].Content)
	assert.Equal(t, "second", stored.Comments[1].Content)
	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, second.CreatedAt.Before(first.CreatedAt))
	assert.Equal(t, "staff", stored.Comments[0].Author)

	// the refetched cache carries the thread too
	cached, ok := env.store.Get(ticket.ID)
	require.True(t, ok)
	assert.Len(t, cached.Comments, 2)
}

func TestAddComment_NoSessionNeverPersists(t *testing.T) {
	env := newTestEnv(t)
	ticket, err := env.service.Submit(context.Background(), lincolnInput())
	require.NoError(t, err)

	before := env.store.Snapshot()

	_, err = env.service.AddComment(context.Background(), nil, ticket.ID, "hello")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "SESSION_REQUIRED"))
	assert.Zero(t, env.repo.commentCalls)
	assert.Equal(t, before, env.store.Snapshot())
}

func TestAddComment_ExpiredSessionRejected(t *testing.T) {
	env := newTestEnv(t)
	ticket, err := env.service.Submit(context.Background(), lincolnInput())
	require.NoError(t, err)

	expired := activeSession()
	expired.ExpiresAt = time.Now().Add(-time.Minute)

	_, err = env.service.AddComment(context.Background(), expired, ticket.ID, "hello")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "SESSION_REQUIRED"))
	assert.Zero(t, env.repo.commentCalls)
}

func TestAddComment_UnknownTicket(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.AddComment(context.Background(), activeSession(), "missing", "hello")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "NOT_FOUND"))
}

func TestAddComment_RetriesOnRevisionConflict(t *testing.T) {
	env := newTestEnv(t)
	ticket, err := env.service.Submit(context.Background(), lincolnInput())
	require.NoError(t, err)

	// a concurrent writer lands a comment during the first attempt
	env.repo.conflicts = 1
	env.repo.conflictHook = func() {
		stored := env.repo.tickets[ticket.ID]
		stored.Comments = append(stored.Comments, domain.Comment{
			ID: uuid.NewString(), TicketID: ticket.ID, Author: "staff",
			Content: "concurrent", CreatedAt: time.Now(),
		})
		stored.Revision++
	}

	_, err = env.service.AddComment(context.Background(), activeSession(), ticket.ID, "mine")
	require.NoError(t, err)

	stored, err := env.repo.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, stored.Comments, 2)
	assert.Equal(t, "concurrent", stored.Comments[0].Content)
	assert.Equal(t, "mine", stored.Comments[1].Content)
	assert.Equal(t, 2, env.repo.commentCalls)
}

func TestAddComment_GivesUpAfterRetryLimit(t *testing.T) {
	env := newTestEnv(t)
	ticket, err := env.service.Submit(context.Background(), lincolnInput())
	require.NoError(t, err)

	env.repo.conflicts = commentRetryLimit + 1

	_, err = env.service.AddComment(context.Background(), activeSession(), ticket.ID, "mine")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "CONFLICT"))
}

func TestUpdate_ClosingStampsClosedAt(t *testing.T) {
	env := newTestEnv(t)
	ticket, err := env.service.Submit(context.Background(), lincolnInput())
	require.NoError(t, err)

	edited := *ticket
	edited.Status = domain.TicketStatusClosed
	notes := "resolved on site"
	edited.Notes = &notes
	edited.RepresentativeName = "JD"

	updated, err := env.service.Update(context.Background(), adminSession(), edited)
	require.NoError(t, err)
	require.NotNil(t, updated.ClosedAt)
	assert.True(t, updated.UpdatedAt.After(ticket.UpdatedAt) || updated.UpdatedAt.Equal(ticket.UpdatedAt))

	// reopening clears the stamp
	reopened := *updated
	reopened.Status = domain.TicketStatusOpen
	updated, err = env.service.Update(context.Background(), adminSession(), reopened)
	require.NoError(t, err)
	assert.Nil(t, updated.ClosedAt)
}

func TestUpdate_RequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	ticket, err := env.service.Submit(context.Background(), lincolnInput())
	require.NoError(t, err)

	_, err = env.service.Update(context.Background(), activeSession(), *ticket)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "FORBIDDEN"))

	_, err = env.service.Update(context.Background(), nil, *ticket)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "SESSION_REQUIRED"))
}

func TestDelete(t *testing.T) {
	env := newTestEnv(t)
	ticket, err := env.service.Submit(context.Background(), lincolnInput())
	require.NoError(t, err)

	require.NoError(t, env.service.Delete(context.Background(), adminSession(), ticket.ID))

	assert.Zero(t, env.store.Len())
	_, err = env.repo.GetByID(context.Background(), ticket.ID)
	require.Error(t, err)
}

func TestDelete_UnknownIdLeavesCacheUnchanged(t *testing.T) {
	env := newTestEnv(t)
	ticket, err := env.service.Submit(context.Background(), lincolnInput())
	require.NoError(t, err)

	before := env.store.Snapshot()

	err = env.service.Delete(context.Background(), adminSession(), "missing")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "NOT_FOUND"))
	assert.Equal(t, before, env.store.Snapshot())

	_, ok := env.store.Get(ticket.ID)
	assert.True(t, ok)
}

func TestDelete_RequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	ticket, err := env.service.Submit(context.Background(), lincolnInput())
	require.NoError(t, err)

	err = env.service.Delete(context.Background(), activeSession(), ticket.ID)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "FORBIDDEN"))
	assert.Equal(t, 1, env.store.Len())
}

func TestRefresh_SupersedesOptimisticState(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.service.Submit(context.Background(), lincolnInput())
	require.NoError(t, err)

	// an optimistic entry the backend never saw
	phantom := domain.Ticket{ID: "phantom", TicketNumber: "TKT-X", Comments: []domain.Comment{}}
	env.store.Append(phantom)
	require.Equal(t, 2, env.store.Len())

	require.NoError(t, env.service.Refresh(context.Background()))

	assert.Equal(t, 1, env.store.Len())
	_, ok := env.store.Get("phantom")
	assert.False(t, ok)
}

func TestRefresh_DegradedBackendYieldsEmptyCollection(t *testing.T) {
	env := newTestEnv(t)
	env.store.Append(domain.Ticket{ID: "stale", Comments: []domain.Comment{}})
	env.repo.listErr = apperrors.NewConfigurationError("ticket backend is not configured")

	require.NoError(t, env.service.Refresh(context.Background()))
	assert.Zero(t, env.store.Len())
}

func TestList_Filters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.service.Submit(ctx, lincolnInput())
	require.NoError(t, err)

	other := SubmitInput{
		CustomerName:     "Roosevelt MS",
		PhoneNumber:      "555-0199",
		Email:            "it@roosevelt.edu",
		IssueDescription: "Projector flickering",
	}
	_, err = env.service.Submit(ctx, other)
	require.NoError(t, err)

	all, err := env.service.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byName, err := env.service.List(ctx, ListFilter{SearchTerm: "lincoln"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, first.ID, byName[0].ID)

	byNumber, err := env.service.List(ctx, ListFilter{SearchTerm: first.TicketNumber})
	require.NoError(t, err)
	require.Len(t, byNumber, 1)

	byStatus, err := env.service.List(ctx, ListFilter{Status: domain.TicketStatusClosed})
	require.NoError(t, err)
	assert.Empty(t, byStatus)
}

func TestSetNotified(t *testing.T) {
	env := newTestEnv(t)
	ticket, err := env.service.Submit(context.Background(), lincolnInput())
	require.NoError(t, err)
	require.False(t, ticket.Notified)

	require.NoError(t, env.service.SetNotified(context.Background(), ticket.ID, true))

	stored, err := env.repo.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.True(t, stored.Notified)

	// idempotent
	require.NoError(t, env.service.SetNotified(context.Background(), ticket.ID, true))
}
