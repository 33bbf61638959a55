package users

import "time"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleUser, "":
		return RoleUser, true
	}
	return "", false
}

type User struct {
	ID           int64
	Email        string
	Username     string
	DisplayName  string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Name returns the display name, falling back to the username.
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

type NewUser struct {
	Email       string
	Username    string
	DisplayName string
	Role        Role
	Password    string
}

// Profile is the editable identity of an existing user.
type Profile struct {
	Email       string
	Username    string
	DisplayName string
}
