package directory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/libraryhub/internal/app/services/directory"
	userstore "github.com/dalemusser/libraryhub/internal/app/store/users"
	"github.com/dalemusser/libraryhub/internal/app/system/liberr"
	"github.com/dalemusser/libraryhub/internal/domain/models"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// memUsers mimics the users collection with its unique email index.
// missTouches makes the first N TouchLastLogin calls report no document,
// which reproduces two instances racing on a first login.
type memUsers struct {
	mu          sync.Mutex
	users       []models.User
	missTouches int
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (m *memUsers) List(context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.User{}, m.users...), nil
}

func (m *memUsers) TouchLastLogin(_ context.Context, email string, at time.Time) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.missTouches > 0 {
		m.missTouches--
		return nil, mongo.ErrNoDocuments
	}
	for i := range m.users {
		if m.users[i].Email == email {
			m.users[i].LastLogin = at
			u := m.users[i]
			return &u, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (m *memUsers) Create(_ context.Context, u models.User) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return models.User{}, userstore.ErrDuplicateEmail
		}
	}
	u.ID = primitive.NewObjectID()
	m.users = append(m.users, u)
	return u, nil
}

func (m *memUsers) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

type memLogins struct {
	mu   sync.Mutex
	recs []models.LoginRecord
	err  error
}

func (m *memLogins) Create(_ context.Context, rec models.LoginRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.recs = append(m.recs, rec)
	return nil
}

func (m *memLogins) RecentByEmail(_ context.Context, email string, limit int64) ([]models.LoginRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.LoginRecord, 0)
	for i := len(m.recs) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		if m.recs[i].Email == email {
			out = append(out, m.recs[i])
		}
	}
	return out, nil
}

// stepClock returns t0, t0+1m, t0+2m, ...
func stepClock(t0 time.Time) func() time.Time {
	var mu sync.Mutex
	next := t0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := next
		next = next.Add(time.Minute)
		return now
	}
}

func TestLoginOrRegister_SecondLoginKeepsCreatedAt(t *testing.T) {
	users := &memUsers{}
	logins := &memLogins{}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_logins_total"}, []string{"outcome"})
	t1 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := directory.New(users, logins, events, nil, directory.WithClock(stepClock(t1)))
	ctx := context.Background()

	first, created, err := svc.LoginOrRegister(ctx, directory.LoginInput{
		Email:   "Reader@Example.com",
		Name:    "Reader",
		Profile: map[string]any{"uid": "abc123", "createdAt": "spoofed"},
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "reader@example.com", first.Email)
	assert.Equal(t, t1, first.CreatedAt)
	assert.Equal(t, t1, first.LastLogin)
	assert.Equal(t, map[string]any{"uid": "abc123"}, first.Profile)

	second, created, err := svc.LoginOrRegister(ctx, directory.LoginInput{Email: "reader@example.com", Name: "Renamed"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, t1, second.CreatedAt)
	assert.Equal(t, t1.Add(time.Minute), second.LastLogin)
	assert.Equal(t, "Reader", second.Name, "later logins only touch lastLogin")
	assert.Equal(t, 1, users.count())

	assert.Len(t, logins.recs, 2)
	assert.Equal(t, 1.0, promtestutil.ToFloat64(events.WithLabelValues(directory.OutcomeRegistered)))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(events.WithLabelValues(directory.OutcomeReturning)))
}

func TestLoginOrRegister_Validation(t *testing.T) {
	svc := directory.New(&memUsers{}, nil, nil, nil)
	ctx := context.Background()

	_, _, err := svc.LoginOrRegister(ctx, directory.LoginInput{})
	assert.ErrorIs(t, err, liberr.ErrMissingParam)

	_, _, err = svc.LoginOrRegister(ctx, directory.LoginInput{Email: "not an email"})
	assert.ErrorIs(t, err, liberr.ErrInvalidField)
}

func TestLoginOrRegister_LostInsertRaceFallsBackToTouch(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	users := &memUsers{
		users: []models.User{{
			ID:        primitive.NewObjectID(),
			Email:     "reader@example.com",
			CreatedAt: t0,
			LastLogin: t0,
		}},
		missTouches: 1,
	}
	svc := directory.New(users, nil, nil, nil, directory.WithClock(stepClock(t0.Add(time.Hour))))

	u, created, err := svc.LoginOrRegister(context.Background(), directory.LoginInput{Email: "reader@example.com"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, t0, u.CreatedAt)
	assert.Equal(t, t0.Add(time.Hour), u.LastLogin)
	assert.Equal(t, 1, users.count())
}

func TestLoginOrRegister_ConcurrentFirstLogins(t *testing.T) {
	users := &memUsers{}
	svc := directory.New(users, &memLogins{}, nil, nil)

	const n = 24
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, c, err := svc.LoginOrRegister(context.Background(), directory.LoginInput{Email: "new@example.com"})
			if err != nil {
				t.Errorf("LoginOrRegister failed: %v", err)
				return
			}
			if c {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, 1, users.count())
}

func TestLoginOrRegister_HistoryFailureIsNotSurfaced(t *testing.T) {
	svc := directory.New(&memUsers{}, &memLogins{err: errors.New("disk full")}, nil, nil)

	_, created, err := svc.LoginOrRegister(context.Background(), directory.LoginInput{Email: "a@x.com"})
	require.NoError(t, err)
	assert.True(t, created)
}

func TestGetByEmail(t *testing.T) {
	users := &memUsers{}
	svc := directory.New(users, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.GetByEmail(ctx, " ")
	assert.ErrorIs(t, err, liberr.ErrMissingParam)

	_, err = svc.GetByEmail(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, liberr.ErrNotFound)

	_, _, err = svc.LoginOrRegister(ctx, directory.LoginInput{Email: "a@x.com"})
	require.NoError(t, err)

	u, err := svc.GetByEmail(ctx, "A@X.COM")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", u.Email)

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRecentLogins(t *testing.T) {
	logins := &memLogins{}
	svc := directory.New(&memUsers{}, logins, nil, nil)
	ctx := context.Background()

	_, err := svc.RecentLogins(ctx, "", 5)
	assert.ErrorIs(t, err, liberr.ErrMissingParam)

	for i := 0; i < 3; i++ {
		_, _, err := svc.LoginOrRegister(ctx, directory.LoginInput{Email: "a@x.com", IP: "10.0.0.9", UserAgent: "ua"})
		require.NoError(t, err)
	}

	recs, err := svc.RecentLogins(ctx, "a@x.com", 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "10.0.0.9", recs[0].IP)
	assert.Equal(t, "ua", recs[0].UserAgent)

	recs, err = svc.RecentLogins(ctx, "a@x.com", 0)
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}
