package pehub_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tendant/pehub/pkg/pehub"
	"github.com/tendant/pehub/pkg/pehub/i18n"
	"github.com/tendant/pehub/pkg/pehub/repo/memory"
	memorystorage "github.com/tendant/pehub/pkg/pehub/storage/memory"
)

type publishedEvent struct {
	Table     string
	EventType string
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, table, eventType string, record interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Table: table, EventType: eventType})
	return nil
}

func (p *recordingPublisher) has(table, eventType string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.events {
		if e.Table == table && e.EventType == eventType {
			return true
		}
	}
	return false
}

type scheduledPush struct {
	Title    string
	Body     string
	Metadata map[string]string
}

type recordingDispatcher struct {
	mu     sync.Mutex
	pushes []scheduledPush
}

func (d *recordingDispatcher) Schedule(title, body string, metadata map[string]string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pushes = append(d.pushes, scheduledPush{Title: title, Body: body, Metadata: metadata})
}

func (d *recordingDispatcher) all() []scheduledPush {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]scheduledPush(nil), d.pushes...)
}

// faultyRepo injects failures into selected repository calls.
type faultyRepo struct {
	*memory.Repository

	mu                sync.Mutex
	createContentErrs []error
	listContentErr    error
	createMessageErr  error
	countErr          error
}

func (r *faultyRepo) CreateContent(ctx context.Context, item *pehub.ContentItem) error {
	r.mu.Lock()
	if len(r.createContentErrs) > 0 {
		err := r.createContentErrs[0]
		r.createContentErrs = r.createContentErrs[1:]
		r.mu.Unlock()
		return err
	}
	r.mu.Unlock()
	return r.Repository.CreateContent(ctx, item)
}

func (r *faultyRepo) ListContent(ctx context.Context, filter pehub.ContentFilter) ([]*pehub.ContentItem, error) {
	if r.listContentErr != nil {
		return nil, r.listContentErr
	}
	return r.Repository.ListContent(ctx, filter)
}

func (r *faultyRepo) CreateMessage(ctx context.Context, msg *pehub.Message) error {
	if r.createMessageErr != nil {
		return r.createMessageErr
	}
	return r.Repository.CreateMessage(ctx, msg)
}

func (r *faultyRepo) CountContent(ctx context.Context) (int64, error) {
	if r.countErr != nil {
		return 0, r.countErr
	}
	return r.Repository.CountContent(ctx)
}

// flakyStore fails deletes while failDeletes is set.
type flakyStore struct {
	*memorystorage.Backend

	mu          sync.Mutex
	failDeletes bool
}

func (s *flakyStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	fail := s.failDeletes
	s.mu.Unlock()
	if fail {
		return errors.New("storage unavailable")
	}
	return s.Backend.Delete(ctx, key)
}

func (s *flakyStore) setFailDeletes(v bool) {
	s.mu.Lock()
	s.failDeletes = v
	s.mu.Unlock()
}

// tickingClock advances one second per call so created_at ordering is
// strict.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

type testEnv struct {
	svc        pehub.Service
	repo       *faultyRepo
	store      *flakyStore
	publisher  *recordingPublisher
	dispatcher *recordingDispatcher
	notices    *[]i18n.Notice
	admin      pehub.Actor
	user       pehub.Actor
}

func setupService(t *testing.T, opts ...pehub.Option) *testEnv {
	t.Helper()
	env := &testEnv{
		repo:       &faultyRepo{Repository: memory.New()},
		store:      &flakyStore{Backend: memorystorage.New("")},
		publisher:  &recordingPublisher{},
		dispatcher: &recordingDispatcher{},
		notices:    &[]i18n.Notice{},
	}
	var noticeMu sync.Mutex

	base := []pehub.Option{
		pehub.WithRepository(env.repo),
		pehub.WithBlobStore(env.store),
		pehub.WithPublisher(env.publisher),
		pehub.WithDispatcher(env.dispatcher),
		pehub.WithClock(tickingClock()),
		pehub.WithFailureNotifier(func(n i18n.Notice) {
			noticeMu.Lock()
			*env.notices = append(*env.notices, n)
			noticeMu.Unlock()
		}),
	}
	svc, err := pehub.New(append(base, opts...)...)
	require.NoError(t, err)
	env.svc = svc

	ctx := context.Background()
	env.admin = pehub.Actor{UserID: uuid.New(), Email: "admin@pehub.example"}
	require.NoError(t, env.repo.Repository.CreateProfile(ctx, &pehub.Profile{
		ID: env.admin.UserID, Email: env.admin.Email, FullName: "المشرف", Role: pehub.RoleAdmin,
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}))
	env.user = pehub.Actor{UserID: uuid.New(), Email: "teacher@pehub.example"}
	require.NoError(t, env.repo.Repository.CreateProfile(ctx, &pehub.Profile{
		ID: env.user.UserID, Email: env.user.Email, FullName: "أحمد", Role: pehub.RoleUser,
		CreatedAt: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
	}))
	return env
}
