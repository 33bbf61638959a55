package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ellavondegurechaff/materialpool/internal/domain/users"
)

type UserStore struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]users.User
	now    func() time.Time
}

func NewUserStore() *UserStore {
	return &UserStore{
		byID: make(map[int64]users.User),
		now:  time.Now,
	}
}

func (s *UserStore) GetByID(_ context.Context, id int64) (*users.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	return &u, nil
}

func (s *UserStore) GetByUsername(_ context.Context, username string) (*users.User, error) {
	return s.find(func(u users.User) bool { return u.Username == username })
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*users.User, error) {
	return s.find(func(u users.User) bool { return u.Email == email })
}

func (s *UserStore) List(_ context.Context) ([]users.User, error) {
	s.mu.RLock()
	out := make([]users.User, 0, len(s.byID))
	for _, u := range s.byID {
		out = append(out, u)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *UserStore) Usernames(ctx context.Context) ([]string, error) {
	list, _ := s.List(ctx)
	out := make([]string, 0, len(list))
	for _, u := range list {
		out = append(out, u.Username)
	}
	return out, nil
}

func (s *UserStore) Create(_ context.Context, user *users.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.byID {
		if u.Username == user.Username || u.Email == user.Email {
			return users.ErrUserExists
		}
	}

	s.nextID++
	now := s.now().UTC()
	user.ID = s.nextID
	user.CreatedAt = now
	user.UpdatedAt = now
	s.byID[user.ID] = *user
	return nil
}

func (s *UserStore) Update(_ context.Context, user *users.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[user.ID]
	if !ok {
		return users.ErrUserNotFound
	}
	for id, u := range s.byID {
		if id != user.ID && (u.Username == user.Username || u.Email == user.Email) {
			return users.ErrUserExists
		}
	}

	current.Email = user.Email
	current.Username = user.Username
	current.DisplayName = user.DisplayName
	current.UpdatedAt = s.now().UTC()
	s.byID[user.ID] = current
	*user = current
	return nil
}

func (s *UserStore) UpdatePassword(_ context.Context, id int64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return users.ErrUserNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = s.now().UTC()
	s.byID[id] = u
	return nil
}

func (s *UserStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return users.ErrUserNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *UserStore) find(pred func(users.User) bool) (*users.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.byID {
		if pred(u) {
			return &u, nil
		}
	}
	return nil, users.ErrUserNotFound
}

func (s *UserStore) displayName(username string) string {
	u, err := s.find(func(u users.User) bool { return u.Username == username })
	if err != nil {
		return ""
	}
	return u.DisplayName
}
