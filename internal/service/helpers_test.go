package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/hangarhq/flightgate/internal/domain"
	"github.com/hangarhq/flightgate/internal/repository"
	"github.com/hangarhq/flightgate/internal/security"
)

const testSessionSecret = "test-session-secret-0123456789abcdef"

func newRedisClientForTest(t *testing.T) redis.UniversalClient {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTokenServiceForTest(t *testing.T, now func() time.Time) *TokenService {
	t.Helper()
	mgr := security.NewJWTManager("flightgate-test", "flightgate", testSessionSecret)
	ts := NewTokenService(mgr, time.Hour, false)
	if now != nil {
		ts.WithClock(now)
	}
	return ts
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uint]*domain.User
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[uint]*domain.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uint) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	return r.Create(context.Background(), user)
}

type fakeAPIKeyRepo struct {
	mu      sync.Mutex
	nextID  uint
	keys    map[uint]*domain.APIKey
	touched map[uint]time.Time
}

func newFakeAPIKeyRepo() *fakeAPIKeyRepo {
	return &fakeAPIKeyRepo{
		nextID:  1,
		keys:    make(map[uint]*domain.APIKey),
		touched: make(map[uint]time.Time),
	}
}

func (r *fakeAPIKeyRepo) Create(_ context.Context, key *domain.APIKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key.ID = r.nextID
	r.nextID++
	cp := *key
	r.keys[key.ID] = &cp
	return nil
}

func (r *fakeAPIKeyRepo) FindByHash(_ context.Context, hash string) (*domain.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range r.keys {
		if k.KeyHash == hash {
			cp := *k
			return &cp, nil
		}
	}
	return nil, repository.ErrAPIKeyNotFound
}

func (r *fakeAPIKeyRepo) ListByUserID(_ context.Context, userID uint) ([]domain.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.APIKey
	for _, k := range r.keys {
		if k.UserID == userID {
			out = append(out, *k)
		}
	}
	return out, nil
}

func (r *fakeAPIKeyRepo) SetActive(_ context.Context, id uint, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[id]
	if !ok {
		return repository.ErrAPIKeyNotFound
	}
	k.IsActive = active
	return nil
}

func (r *fakeAPIKeyRepo) RevokeOwned(_ context.Context, id, userID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[id]
	if !ok || k.UserID != userID {
		return repository.ErrAPIKeyNotFound
	}
	k.IsActive = false
	return nil
}

func (r *fakeAPIKeyRepo) TouchUsage(_ context.Context, id uint, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touched[id] = at
	return nil
}

func (r *fakeAPIKeyRepo) touchedAt(id uint) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	at, ok := r.touched[id]
	return at, ok
}

type fakeSchoolRepo struct {
	admins      map[uint][]uint
	instructors map[uint][]uint
	students    map[uint]*domain.Student
}

func newFakeSchoolRepo() *fakeSchoolRepo {
	return &fakeSchoolRepo{
		admins:      make(map[uint][]uint),
		instructors: make(map[uint][]uint),
		students:    make(map[uint]*domain.Student),
	}
}

func (r *fakeSchoolRepo) FindByID(_ context.Context, id uint) (*domain.School, error) {
	if _, ok := r.admins[id]; ok {
		return &domain.School{ID: id}, nil
	}
	if _, ok := r.instructors[id]; ok {
		return &domain.School{ID: id}, nil
	}
	return nil, repository.ErrSchoolNotFound
}

func (r *fakeSchoolRepo) CreateSchool(_ context.Context, school *domain.School) error {
	r.admins[school.ID] = nil
	return nil
}

func (r *fakeSchoolRepo) IsAdmin(_ context.Context, schoolID, userID uint) (bool, error) {
	return contains(r.admins[schoolID], userID), nil
}

func (r *fakeSchoolRepo) IsInstructor(_ context.Context, schoolID, userID uint) (bool, error) {
	return contains(r.instructors[schoolID], userID), nil
}

func (r *fakeSchoolRepo) AddAdmin(_ context.Context, schoolID, userID uint) error {
	r.admins[schoolID] = append(r.admins[schoolID], userID)
	return nil
}

func (r *fakeSchoolRepo) AddInstructor(_ context.Context, schoolID, userID uint) error {
	r.instructors[schoolID] = append(r.instructors[schoolID], userID)
	return nil
}

func (r *fakeSchoolRepo) FindStudentByID(_ context.Context, id uint) (*domain.Student, error) {
	if s, ok := r.students[id]; ok {
		return s, nil
	}
	return nil, repository.ErrStudentNotFound
}

func (r *fakeSchoolRepo) ListStudentsBySchool(_ context.Context, schoolID uint) ([]domain.Student, error) {
	var out []domain.Student
	for _, s := range r.students {
		if s.SchoolID == schoolID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeSchoolRepo) CreateStudent(_ context.Context, student *domain.Student) error {
	r.students[student.ID] = student
	return nil
}

func (r *fakeSchoolRepo) UpdateStudent(_ context.Context, student *domain.Student) error {
	r.students[student.ID] = student
	return nil
}

func contains(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func uintPtr(v uint) *uint { return &v }
