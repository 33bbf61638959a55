package users_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ellavondegurechaff/materialpool/internal/domain/users"
	"github.com/ellavondegurechaff/materialpool/internal/domain/users/mock"
	"github.com/ellavondegurechaff/materialpool/internal/gateways/memory"
	"go.uber.org/mock/gomock"
)

func TestService_CreateAndAuthenticate(t *testing.T) {
	svc := users.NewService(memory.NewUserStore())
	ctx := context.Background()

	created, err := svc.Create(ctx, users.NewUser{
		Email:       "bob@example.com",
		Username:    "bob",
		DisplayName: "Bob",
		Password:    "hunter22",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.Role != users.RoleUser || created.PasswordHash == "hunter22" {
		t.Errorf("Create() = %+v", created)
	}

	tests := []struct {
		name     string
		login    string
		password string
		wantErr  error
	}{
		{name: "valid email", login: "bob@example.com", password: "hunter22"},
		{name: "valid username", login: " bob ", password: "hunter22"},
		{name: "wrong password", login: "bob@example.com", password: "nope", wantErr: users.ErrInvalidCredentials},
		{name: "unknown email", login: "who@example.com", password: "hunter22", wantErr: users.ErrInvalidCredentials},
		{name: "unknown username", login: "who", password: "hunter22", wantErr: users.ErrInvalidCredentials},
		{name: "empty login", login: "", password: "hunter22", wantErr: users.ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Authenticate(ctx, tt.login, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Authenticate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got.Username != "bob" {
				t.Errorf("Authenticate() = %+v", got)
			}
		})
	}
}

func TestService_CreateValidation(t *testing.T) {
	svc := users.NewService(memory.NewUserStore())
	ctx := context.Background()

	if _, err := svc.Create(ctx, users.NewUser{Email: "a@x", Username: "a", Password: "secret1"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	tests := []struct {
		name    string
		input   users.NewUser
		wantErr error
	}{
		{name: "short password", input: users.NewUser{Email: "b@x", Username: "b", Password: "123"}, wantErr: users.ErrInvalidUser},
		{name: "missing username", input: users.NewUser{Email: "b@x", Password: "secret1"}, wantErr: users.ErrInvalidUser},
		{name: "bad role", input: users.NewUser{Email: "b@x", Username: "b", Password: "secret1", Role: "owner"}, wantErr: users.ErrInvalidUser},
		{name: "taken username", input: users.NewUser{Email: "c@x", Username: "a", Password: "secret1"}, wantErr: users.ErrUserExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tt.input); !errors.Is(err, tt.wantErr) {
				t.Errorf("Create() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestService_IsKnownUsesCache(t *testing.T) {
	repo := mock.NewMockRepository(gomock.NewController(t))
	repo.EXPECT().
		GetByUsername(gomock.Any(), "bob").
		Return(&users.User{ID: 1, Username: "bob"}, nil).
		Times(1)
	repo.EXPECT().
		GetByUsername(gomock.Any(), "ghost").
		Return(nil, users.ErrUserNotFound).
		Times(2)

	svc := users.NewService(repo)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if ok, err := svc.IsKnown(ctx, "bob"); !ok || err != nil {
			t.Errorf("IsKnown(bob) = %v, %v", ok, err)
		}
		if ok, err := svc.IsKnown(ctx, "ghost"); ok || err != nil {
			t.Errorf("IsKnown(ghost) = %v, %v", ok, err)
		}
	}
	if ok, _ := svc.IsKnown(ctx, ""); ok {
		t.Errorf("IsKnown(\"\") = true")
	}
}

func TestService_Update(t *testing.T) {
	svc := users.NewService(memory.NewUserStore())
	ctx := context.Background()

	bob, err := svc.Create(ctx, users.NewUser{Email: "bob@example.com", Username: "bob", Password: "hunter22"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.Create(ctx, users.NewUser{Email: "carol@example.com", Username: "carol", Password: "hunter22"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	tests := []struct {
		name    string
		id      int64
		profile users.Profile
		wantErr error
	}{
		{name: "missing email", id: bob.ID, profile: users.Profile{Username: "bob"}, wantErr: users.ErrInvalidUser},
		{name: "taken username", id: bob.ID, profile: users.Profile{Email: "bob@example.com", Username: "carol"}, wantErr: users.ErrUserExists},
		{name: "taken email", id: bob.ID, profile: users.Profile{Email: "carol@example.com", Username: "bob"}, wantErr: users.ErrUserExists},
		{name: "unknown user", id: 42, profile: users.Profile{Email: "x@example.com", Username: "x"}, wantErr: users.ErrUserNotFound},
		{name: "rename", id: bob.ID, profile: users.Profile{Email: "robert@example.com", Username: "robert", DisplayName: " Robert "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Update(ctx, tt.id, tt.profile)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Update() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && (got.Username != "robert" || got.DisplayName != "Robert" || got.PasswordHash != bob.PasswordHash) {
				t.Errorf("Update() = %+v", got)
			}
		})
	}

	if ok, _ := svc.IsKnown(ctx, "bob"); ok {
		t.Error("IsKnown(bob) = true after rename")
	}
	if ok, _ := svc.IsKnown(ctx, "robert"); !ok {
		t.Error("IsKnown(robert) = false after rename")
	}
	if _, err := svc.Authenticate(ctx, "robert@example.com", "hunter22"); err != nil {
		t.Errorf("Authenticate() with new email error = %v", err)
	}
}

func TestService_UpdateEvictsCachedUsername(t *testing.T) {
	repo := mock.NewMockRepository(gomock.NewController(t))
	bob := &users.User{ID: 1, Email: "bob@example.com", Username: "bob"}

	gomock.InOrder(
		repo.EXPECT().GetByUsername(gomock.Any(), "bob").Return(bob, nil),
		repo.EXPECT().GetByID(gomock.Any(), int64(1)).Return(bob, nil),
		repo.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil),
		repo.EXPECT().GetByUsername(gomock.Any(), "bob").Return(nil, users.ErrUserNotFound),
	)

	svc := users.NewService(repo)
	ctx := context.Background()

	if ok, _ := svc.IsKnown(ctx, "bob"); !ok {
		t.Fatal("IsKnown(bob) = false before rename")
	}
	if _, err := svc.Update(ctx, 1, users.Profile{Email: "bob@example.com", Username: "robert"}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if ok, err := svc.IsKnown(ctx, "bob"); ok || err != nil {
		t.Errorf("IsKnown(bob) after rename = %v, %v", ok, err)
	}
}

func TestService_Passwords(t *testing.T) {
	svc := users.NewService(memory.NewUserStore())
	ctx := context.Background()

	bob, err := svc.Create(ctx, users.NewUser{Email: "bob@example.com", Username: "bob", Password: "hunter22"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := svc.UpdatePassword(ctx, bob.ID, "123"); !errors.Is(err, users.ErrInvalidUser) {
		t.Errorf("UpdatePassword(short) error = %v", err)
	}
	if err := svc.UpdatePassword(ctx, 42, "longenough"); !errors.Is(err, users.ErrUserNotFound) {
		t.Errorf("UpdatePassword(unknown) error = %v", err)
	}
	if err := svc.ChangePassword(ctx, bob.ID, "wrong", "newpass1"); !errors.Is(err, users.ErrWrongPassword) {
		t.Errorf("ChangePassword(wrong current) error = %v", err)
	}
	if err := svc.ChangePassword(ctx, bob.ID, "hunter22", "newpass1"); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}

	if _, err := svc.Authenticate(ctx, "bob", "hunter22"); !errors.Is(err, users.ErrInvalidCredentials) {
		t.Errorf("Authenticate(old password) error = %v", err)
	}
	if _, err := svc.Authenticate(ctx, "bob", "newpass1"); err != nil {
		t.Errorf("Authenticate(new password) error = %v", err)
	}

	if err := svc.UpdatePassword(ctx, bob.ID, "reset-by-admin"); err != nil {
		t.Fatalf("UpdatePassword() error = %v", err)
	}
	if _, err := svc.Authenticate(ctx, "bob@example.com", "reset-by-admin"); err != nil {
		t.Errorf("Authenticate(reset password) error = %v", err)
	}
}

func TestService_Delete(t *testing.T) {
	svc := users.NewService(memory.NewUserStore())
	ctx := context.Background()

	root, _ := svc.Create(ctx, users.NewUser{Email: "root@example.com", Username: "root", Role: users.RoleAdmin, Password: "rootpass"})
	bob, _ := svc.Create(ctx, users.NewUser{Email: "bob@example.com", Username: "bob", Password: "hunter22"})

	if ok, _ := svc.IsKnown(ctx, "bob"); !ok {
		t.Fatal("IsKnown(bob) = false")
	}
	if err := svc.Delete(ctx, root.ID, root.ID); !errors.Is(err, users.ErrDeleteSelf) {
		t.Errorf("Delete(self) error = %v", err)
	}
	if err := svc.Delete(ctx, root.ID, bob.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := svc.Delete(ctx, root.ID, bob.ID); !errors.Is(err, users.ErrUserNotFound) {
		t.Errorf("Delete(twice) error = %v", err)
	}
	if ok, _ := svc.IsKnown(ctx, "bob"); ok {
		t.Error("IsKnown(bob) = true after delete")
	}
	if _, err := svc.Authenticate(ctx, "bob", "hunter22"); !errors.Is(err, users.ErrInvalidCredentials) {
		t.Errorf("Authenticate(deleted) error = %v", err)
	}
}

func TestUser_Name(t *testing.T) {
	if got := (users.User{Username: "bob"}).Name(); got != "bob" {
		t.Errorf("Name() = %q, want bob", got)
	}
	if got := (users.User{Username: "bob", DisplayName: "Bobby"}).Name(); got != "Bobby" {
		t.Errorf("Name() = %q, want Bobby", got)
	}
}
