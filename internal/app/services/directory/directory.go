// Package directory keeps the user directory: users are registered on their
// first login and have lastLogin bumped on every later one.
package directory

import (
	"context"
	"errors"
	"time"

	userstore "github.com/dalemusser/libraryhub/internal/app/store/users"
	"github.com/dalemusser/libraryhub/internal/app/system/inputval"
	"github.com/dalemusser/libraryhub/internal/app/system/keylock"
	"github.com/dalemusser/libraryhub/internal/app/system/liberr"
	"github.com/dalemusser/libraryhub/internal/app/system/normalize"
	"github.com/dalemusser/libraryhub/internal/app/system/timeouts"
	"github.com/dalemusser/libraryhub/internal/domain/models"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Store is the user persistence the directory needs. *userstore.Store
// satisfies it; Create must return userstore.ErrDuplicateEmail when the
// email is taken.
type Store interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	TouchLastLogin(ctx context.Context, email string, at time.Time) (*models.User, error)
	Create(ctx context.Context, u models.User) (models.User, error)
}

// LoginLog records login history. *loginstore.Store satisfies it.
type LoginLog interface {
	Create(ctx context.Context, rec models.LoginRecord) error
	RecentByEmail(ctx context.Context, email string, limit int64) ([]models.LoginRecord, error)
}

// Login outcome labels.
const (
	OutcomeRegistered = "registered"
	OutcomeReturning  = "returning"
)

// Limits for RecentLogins.
const (
	DefaultRecentLogins = 20
	MaxRecentLogins     = 100
)

// reserved keys never copied into a user's profile.
var reserved = map[string]bool{
	"_id": true, "email": true, "name": true, "photo": true,
	"profile": true, "createdAt": true, "lastLogin": true,
}

// LoginInput is one login call. Profile carries any extra fields the client
// sent; they are stored only when the user is first registered.
type LoginInput struct {
	Email   string         `validate:"required,email" label:"Email"`
	Name    string         `validate:"max=200" label:"name"`
	Photo   string         `validate:"max=2048" label:"photo"`
	Profile map[string]any `validate:"-"`

	// Request details for the login history.
	IP        string `validate:"-"`
	UserAgent string `validate:"-"`
}

type Service struct {
	users  Store
	logins LoginLog
	locks  *keylock.Locker
	events *prometheus.CounterVec
	log    *zap.Logger
	now    func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New builds a directory. logins and events may be nil.
func New(users Store, logins LoginLog, events *prometheus.CounterVec, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		users:  users,
		logins: logins,
		locks:  keylock.New(),
		events: events,
		log:    logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoginOrRegister bumps lastLogin for an existing user or registers a new
// one with createdAt = lastLogin = now. created reports which happened.
func (s *Service) LoginOrRegister(ctx context.Context, in LoginInput) (u models.User, created bool, err error) {
	in.Email = normalize.Email(in.Email)
	in.Name = normalize.Name(in.Name)
	in.Photo = normalize.Name(in.Photo)
	if in.Email == "" {
		return models.User{}, false, liberr.Missing("Email")
	}
	if res := inputval.Validate(in); res.HasErrors() {
		return models.User{}, false, liberr.Invalid(res.First())
	}

	unlock, err := s.locks.Lock(ctx, in.Email)
	if err != nil {
		return models.User{}, false, liberr.Store("login lock", err)
	}
	defer unlock()

	sctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), s.log, "user login")
	defer cancel()

	now := s.now().UTC().Truncate(time.Millisecond)

	existing, err := s.users.TouchLastLogin(sctx, in.Email, now)
	switch {
	case err == nil:
		u = *existing
	case errors.Is(err, mongo.ErrNoDocuments):
		u, err = s.users.Create(sctx, models.User{
			Email:     in.Email,
			Name:      in.Name,
			Photo:     in.Photo,
			Profile:   profileOf(in.Profile),
			CreatedAt: now,
			LastLogin: now,
		})
		if errors.Is(err, userstore.ErrDuplicateEmail) {
			// Another instance registered the email first.
			existing, err = s.users.TouchLastLogin(sctx, in.Email, now)
			if err != nil {
				return models.User{}, false, liberr.Store("touch user after race", err)
			}
			u = *existing
			break
		}
		if err != nil {
			return models.User{}, false, liberr.Store("create user", err)
		}
		created = true
	default:
		return models.User{}, false, liberr.Store("touch user", err)
	}

	if created {
		s.count(OutcomeRegistered)
		s.log.Info("user registered", zap.String("email", u.Email), zap.String("user_id", u.ID.Hex()))
	} else {
		s.count(OutcomeReturning)
	}
	s.record(ctx, u, in)
	return u, created, nil
}

// record writes login history. Failures are logged, never returned.
func (s *Service) record(ctx context.Context, u models.User, in LoginInput) {
	if s.logins == nil {
		return
	}
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), s.log, "login record")
	defer cancel()

	err := s.logins.Create(ctx, models.LoginRecord{
		UserID:    u.ID,
		Email:     u.Email,
		CreatedAt: u.LastLogin,
		IP:        in.IP,
		UserAgent: in.UserAgent,
	})
	if err != nil {
		s.log.Warn("failed to record login", zap.String("email", u.Email), zap.Error(err))
	}
}

// ListAll returns every user.
func (s *Service) ListAll(ctx context.Context) ([]models.User, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), s.log, "users list")
	defer cancel()

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, liberr.Store("list users", err)
	}
	return users, nil
}

// GetByEmail returns the user registered under email.
func (s *Service) GetByEmail(ctx context.Context, email string) (models.User, error) {
	email = normalize.Email(email)
	if email == "" {
		return models.User{}, liberr.Missing("Email")
	}
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), s.log, "user get")
	defer cancel()

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, liberr.NotFound("User")
	}
	if err != nil {
		return models.User{}, liberr.Store("get user", err)
	}
	return *u, nil
}

// RecentLogins returns up to limit login records for email, newest first.
// limit <= 0 means DefaultRecentLogins; it is capped at MaxRecentLogins.
func (s *Service) RecentLogins(ctx context.Context, email string, limit int64) ([]models.LoginRecord, error) {
	email = normalize.Email(email)
	if email == "" {
		return nil, liberr.Missing("Email")
	}
	if s.logins == nil {
		return []models.LoginRecord{}, nil
	}
	switch {
	case limit <= 0:
		limit = DefaultRecentLogins
	case limit > MaxRecentLogins:
		limit = MaxRecentLogins
	}
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), s.log, "login history")
	defer cancel()

	recs, err := s.logins.RecentByEmail(ctx, email, limit)
	if err != nil {
		return nil, liberr.Store("list logins", err)
	}
	return recs, nil
}

func (s *Service) count(outcome string) {
	if s.events != nil {
		s.events.WithLabelValues(outcome).Inc()
	}
}

func profileOf(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if !reserved[k] {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
