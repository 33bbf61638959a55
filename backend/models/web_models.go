package models

import (
	"time"

	"github.com/ellavondegurechaff/materialpool/internal/domain/audit"
	"github.com/ellavondegurechaff/materialpool/internal/domain/materials"
	"github.com/ellavondegurechaff/materialpool/internal/domain/users"
)

// UserSession is the signed payload of the session cookie.
type UserSession struct {
	UserID      int64     `json:"user_id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	IsAdmin     bool      `json:"is_admin"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func NewUserSession(u *users.User, ttl time.Duration) *UserSession {
	return &UserSession{
		UserID:      u.ID,
		Username:    u.Username,
		DisplayName: u.Name(),
		Email:       u.Email,
		Role:        string(u.Role),
		IsAdmin:     u.IsAdmin(),
		ExpiresAt:   time.Now().Add(ttl),
	}
}

// LoginRequest carries either a username or an email address as login;
// email is still accepted as the field name.
type LoginRequest struct {
	Login    string `json:"login"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Identifier() string {
	if r.Login != "" {
		return r.Login
	}
	return r.Email
}

// MaterialDTO is a material as shown to a viewer.
type MaterialDTO struct {
	ID          int64      `json:"id"`
	Category    string     `json:"category"`
	Identifier  string     `json:"identifier"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	StatusLabel string     `json:"status_label"`
	Holder      string     `json:"holder,omitempty"`
	HolderName  string     `json:"holder_name,omitempty"`
	UsageTime   *time.Time `json:"usage_time,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func NewMaterialDTO(m materials.Material) MaterialDTO {
	dto := MaterialDTO{
		ID:          m.ID,
		Category:    m.Category,
		Identifier:  m.Identifier,
		Description: m.Description,
		Status:      string(m.Status),
		StatusLabel: m.Status.Label(),
		Holder:      m.Holder,
		HolderName:  m.HolderName,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if !m.ClaimedAt.IsZero() {
		t := m.ClaimedAt
		dto.UsageTime = &t
	}
	return dto
}

func NewMaterialDTOs(items []materials.Material) []MaterialDTO {
	out := make([]MaterialDTO, 0, len(items))
	for _, m := range items {
		out = append(out, NewMaterialDTO(m))
	}
	return out
}

// ClaimResponse carries the unmasked identifier of a fresh claim.
type ClaimResponse struct {
	ID         int64     `json:"id"`
	Identifier string    `json:"identifier"`
	Category   string    `json:"category"`
	UsageTime  time.Time `json:"usage_time"`
}

type MaterialCreateRequest struct {
	Category    string     `json:"category"`
	Identifier  string     `json:"identifier"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Holder      string     `json:"holder"`
	UsageTime   *time.Time `json:"usage_time"`
}

func (r MaterialCreateRequest) Input() materials.Input {
	input := materials.Input{
		Category:    r.Category,
		Identifier:  r.Identifier,
		Description: r.Description,
		Status:      r.Status,
		Holder:      r.Holder,
	}
	if r.UsageTime != nil {
		input.ClaimedAt = *r.UsageTime
	}
	return input
}

type MaterialUpdateRequest struct {
	Category    *string    `json:"category,omitempty"`
	Identifier  *string    `json:"identifier,omitempty"`
	Description *string    `json:"description,omitempty"`
	Status      *string    `json:"status,omitempty"`
	Holder      *string    `json:"holder,omitempty"`
	UsageTime   *time.Time `json:"usage_time,omitempty"`
}

func (r MaterialUpdateRequest) Patch() materials.Patch {
	return materials.Patch{
		Category:    r.Category,
		Identifier:  r.Identifier,
		Description: r.Description,
		Status:      r.Status,
		Holder:      r.Holder,
		ClaimedAt:   r.UsageTime,
	}
}

type UserDTO struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name,omitempty"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewUserDTO(u users.User) UserDTO {
	return UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Role:        string(u.Role),
		CreatedAt:   u.CreatedAt,
	}
}

type UserCreateRequest struct {
	Email       string `json:"email"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	Password    string `json:"password"`
}

type ProfileUpdateRequest struct {
	Email       string `json:"email"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

type PasswordResetRequest struct {
	Password string `json:"password"`
}

type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

type AuditLogDTO struct {
	ID        int64     `json:"id"`
	UserName  string    `json:"user_name"`
	Action    string    `json:"action"`
	Entity    string    `json:"entity"`
	EntityID  string    `json:"entity_id,omitempty"`
	Details   string    `json:"details,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func NewAuditLogDTOs(entries []audit.Entry) []AuditLogDTO {
	out := make([]AuditLogDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, AuditLogDTO{
			ID:        e.ID,
			UserName:  e.UserName,
			Action:    e.Action,
			Entity:    e.Entity,
			EntityID:  e.EntityID,
			Details:   e.Details,
			IPAddress: e.IPAddress,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}

// ImportResponse is returned by the admin import endpoint.
type ImportResponse struct {
	BatchID    string                   `json:"batch_id"`
	Filename   string                   `json:"filename"`
	ArchiveKey string                   `json:"archive_key,omitempty"`
	Message    string                   `json:"message"`
	Summary    *materials.ImportSummary `json:"summary"`
}

// ValidationError describes one rejected request field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
