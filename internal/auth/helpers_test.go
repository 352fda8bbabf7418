package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/job-portal/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// memStore 模拟带唯一约束和乐观锁的 users 表
type memStore struct {
	mu     sync.Mutex
	users  map[int64]*domain.User
	nextID int64

	beforeCreate func(user *domain.User)
	updateErr    error
}

func newMemStore() *memStore {
	return &memStore{users: make(map[int64]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	if u.Resume != nil {
		r := *u.Resume
		c.Resume = &r
	}
	return &c
}

func (s *memStore) GetUserByID(_ context.Context, id int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return cloneUser(u), nil
}

func (s *memStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrRecordNotFound
}

func (s *memStore) CreateUser(_ context.Context, user *domain.User) error {
	if s.beforeCreate != nil {
		s.beforeCreate(user)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == user.Email {
			return domain.ErrDuplicateEmail
		}
	}

	s.nextID++
	user.ID = s.nextID
	user.CreatedAt = time.Now()
	user.Version = 1
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *memStore) UpdateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.updateErr != nil {
		return s.updateErr
	}

	current, ok := s.users[user.ID]
	if !ok || current.Version != user.Version {
		return domain.ErrEditConflict
	}
	for id, u := range s.users {
		if id != user.ID && u.Email == user.Email {
			return domain.ErrDuplicateEmail
		}
	}

	user.Role = current.Role
	user.Version++
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *memStore) put(user *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	user.ID = s.nextID
	user.Version = 1
	s.users[user.ID] = cloneUser(user)
}

// memAssets 记录当前仍然存在的对象，用来检查有没有遗留的简历
type memAssets struct {
	mu      sync.Mutex
	live    map[string][]byte
	seq     int
	deleted []string

	uploadErr error
	deleteErr error
}

func newMemAssets() *memAssets {
	return &memAssets{live: make(map[string][]byte)}
}

func (a *memAssets) Upload(_ context.Context, namespace string, content []byte) (*domain.Resume, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.uploadErr != nil {
		return nil, a.uploadErr
	}
	a.seq++
	id := fmt.Sprintf("%s/%d", namespace, a.seq)
	a.live[id] = content
	return &domain.Resume{PublicID: id, URL: "https://assets.test/" + id}, nil
}

func (a *memAssets) Delete(_ context.Context, publicID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.deleteErr != nil {
		return a.deleteErr
	}
	delete(a.live, publicID)
	a.deleted = append(a.deleted, publicID)
	return nil
}

func (a *memAssets) liveIDs() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	ids := make([]string, 0, len(a.live))
	for id := range a.live {
		ids = append(ids, id)
	}
	return ids
}

// keyLocker 是进程内按 key 加锁的 Locker
type keyLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
	err   error
}

func newKeyLocker() *keyLocker {
	return &keyLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *keyLocker) Lock(_ context.Context, key string) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}

	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}

type testEnv struct {
	svc      *Service
	store    *memStore
	assets   *memAssets
	locker   *keyLocker
	sessions *SessionManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newMemStore()
	assets := newMemAssets()
	locker := newKeyLocker()

	sessions, err := NewSessionManager(SessionConfig{Secret: []byte("test-secret"), TTL: time.Hour}, store)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := NewService(store, assets, locker, NewBcryptHasher(bcrypt.MinCost), sessions, logger)
	require.NoError(t, err)

	return &testEnv{svc: svc, store: store, assets: assets, locker: locker, sessions: sessions}
}

func employerInput(email, password string) RegisterInput {
	return RegisterInput{
		Name:     "李强",
		Email:    email,
		Phone:    "13800000000",
		Password: password,
		Address:  "上海",
		Role:     domain.RoleEmployer,
	}
}

func jobSeekerInput(email, password string) RegisterInput {
	in := employerInput(email, password)
	in.Name = "张伟"
	in.Role = domain.RoleJobSeeker
	in.Niches = domain.Niches{FirstNiche: "后端开发", SecondNiche: "运维", ThirdNiche: "测试"}
	return in
}

var errBoom = errors.New("boom")
