package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/crypto/bcrypt"
)

const (
	cacheSize         = 1024
	MinPasswordLength = 6
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid login or password")
	ErrInvalidUser        = errors.New("invalid user")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrDeleteSelf         = errors.New("cannot delete your own account")
)

type Service interface {
	// Authenticate accepts either the email address or the username as login.
	Authenticate(ctx context.Context, login, password string) (*User, error)
	Create(ctx context.Context, input NewUser) (*User, error)
	Update(ctx context.Context, id int64, profile Profile) (*User, error)
	// UpdatePassword replaces the password without checking the old one.
	UpdatePassword(ctx context.Context, id int64, password string) error
	ChangePassword(ctx context.Context, id int64, current, next string) error
	Delete(ctx context.Context, actorID, id int64) error
	Get(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]User, error)
	KnownUsernames(ctx context.Context) ([]string, error)
	IsKnown(ctx context.Context, username string) (bool, error)
}

type service struct {
	repository Repository
	// username -> *User, positive lookups only
	cache *lru.Cache
}

func NewService(repository Repository) *service {
	cache, _ := lru.New(cacheSize)
	return &service{
		repository: repository,
		cache:      cache,
	}
}

func (s *service) Authenticate(ctx context.Context, login, password string) (*User, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return nil, ErrInvalidCredentials
	}

	lookup := s.repository.GetByUsername
	if strings.Contains(login, "@") {
		lookup = s.repository.GetByEmail
	}
	user, err := lookup(ctx, login)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	s.cache.Add(user.Username, user)
	return user, nil
}

func (s *service) Create(ctx context.Context, input NewUser) (*User, error) {
	input.Email = strings.TrimSpace(input.Email)
	input.Username = strings.TrimSpace(input.Username)
	if input.Email == "" || input.Username == "" {
		return nil, fmt.Errorf("%w: email and username are required", ErrInvalidUser)
	}
	if len(input.Password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidUser, MinPasswordLength)
	}
	role, ok := ParseRole(string(input.Role))
	if !ok {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidUser, input.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		Email:        input.Email,
		Username:     input.Username,
		DisplayName:  strings.TrimSpace(input.DisplayName),
		Role:         role,
		PasswordHash: string(hash),
	}
	if err := s.repository.Create(ctx, user); err != nil {
		return nil, err
	}

	s.cache.Add(user.Username, user)
	slog.Info("User created",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username),
		slog.String("role", string(user.Role)))
	return user, nil
}

func (s *service) Update(ctx context.Context, id int64, profile Profile) (*User, error) {
	profile.Email = strings.TrimSpace(profile.Email)
	profile.Username = strings.TrimSpace(profile.Username)
	if profile.Email == "" || profile.Username == "" {
		return nil, fmt.Errorf("%w: email and username are required", ErrInvalidUser)
	}

	current, err := s.repository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	user := *current
	user.Email = profile.Email
	user.Username = profile.Username
	user.DisplayName = strings.TrimSpace(profile.DisplayName)
	if err := s.repository.Update(ctx, &user); err != nil {
		return nil, err
	}

	s.cache.Remove(current.Username)
	s.cache.Remove(user.Username)
	if current.Username != user.Username {
		slog.Info("User renamed",
			slog.Int64("user_id", id),
			slog.String("from", current.Username),
			slog.String("to", user.Username))
	}
	return &user, nil
}

func (s *service) UpdatePassword(ctx context.Context, id int64, password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidUser, MinPasswordLength)
	}

	user, err := s.repository.GetByID(ctx, id)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.repository.UpdatePassword(ctx, id, string(hash)); err != nil {
		return err
	}

	s.cache.Remove(user.Username)
	slog.Info("Password updated", slog.Int64("user_id", id))
	return nil
}

func (s *service) ChangePassword(ctx context.Context, id int64, current, next string) error {
	user, err := s.repository.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return ErrWrongPassword
	}
	return s.UpdatePassword(ctx, id, next)
}

func (s *service) Delete(ctx context.Context, actorID, id int64) error {
	if actorID == id {
		return ErrDeleteSelf
	}

	user, err := s.repository.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repository.Delete(ctx, id); err != nil {
		return err
	}

	s.cache.Remove(user.Username)
	slog.Info("User deleted",
		slog.Int64("user_id", id),
		slog.String("username", user.Username))
	return nil
}

func (s *service) Get(ctx context.Context, id int64) (*User, error) {
	return s.repository.GetByID(ctx, id)
}

func (s *service) GetByUsername(ctx context.Context, username string) (*User, error) {
	if cached, ok := s.cache.Get(username); ok {
		return cached.(*User), nil
	}

	user, err := s.repository.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	s.cache.Add(username, user)
	return user, nil
}

func (s *service) List(ctx context.Context) ([]User, error) {
	return s.repository.List(ctx)
}

func (s *service) KnownUsernames(ctx context.Context) ([]string, error) {
	return s.repository.Usernames(ctx)
}

func (s *service) IsKnown(ctx context.Context, username string) (bool, error) {
	if username == "" {
		return false, nil
	}
	_, err := s.GetByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
