package utils

import (
	"fmt"
	"mime/multipart"
	"net/mail"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ellavondegurechaff/materialpool/backend/models"
	"github.com/ellavondegurechaff/materialpool/internal/domain/materials"
	"github.com/ellavondegurechaff/materialpool/internal/domain/users"
)

var (
	// ValidImportExtensions contains the accepted spreadsheet extensions
	ValidImportExtensions = []string{".xlsx", ".csv"}

	MaxCategoryLength    = 100
	MaxIdentifierLength  = 255
	MaxDescriptionLength = 1000

	// ValidUsernameRegex validates login names
	ValidUsernameRegex = regexp.MustCompile(`^[a-zA-Z0-9._\-]{2,50}$`)

	unsafeFilenameRegex = regexp.MustCompile(`[^\p{L}\p{N}.\-_]`)
)

// ValidateMaterialCreateRequest checks shape only; status and holder rules live in the domain.
func ValidateMaterialCreateRequest(req *models.MaterialCreateRequest) []models.ValidationError {
	var errors []models.ValidationError

	errors = appendLength(errors, "category", strings.TrimSpace(req.Category), MaxCategoryLength, true)
	errors = appendLength(errors, "identifier", strings.TrimSpace(req.Identifier), MaxIdentifierLength, true)
	errors = appendLength(errors, "description", req.Description, MaxDescriptionLength, false)

	if req.Status != "" {
		if _, ok := materials.ParseStatus(req.Status); !ok {
			errors = append(errors, models.ValidationError{
				Field:   "status",
				Message: fmt.Sprintf("Status must be %s or %s", materials.StatusIdle, materials.StatusInUse),
			})
		}
	}

	return errors
}

// ValidateMaterialUpdateRequest validates only the fields present in the patch
func ValidateMaterialUpdateRequest(req *models.MaterialUpdateRequest) []models.ValidationError {
	var errors []models.ValidationError

	if req.Category != nil {
		errors = appendLength(errors, "category", strings.TrimSpace(*req.Category), MaxCategoryLength, true)
	}
	if req.Identifier != nil {
		errors = appendLength(errors, "identifier", strings.TrimSpace(*req.Identifier), MaxIdentifierLength, true)
	}
	if req.Description != nil {
		errors = appendLength(errors, "description", *req.Description, MaxDescriptionLength, false)
	}
	if req.Status != nil {
		if _, ok := materials.ParseStatus(*req.Status); !ok {
			errors = append(errors, models.ValidationError{
				Field:   "status",
				Message: fmt.Sprintf("Status must be %s or %s", materials.StatusIdle, materials.StatusInUse),
			})
		}
	}

	return errors
}

// ValidateUserCreateRequest validates an account creation request
func ValidateUserCreateRequest(req *models.UserCreateRequest) []models.ValidationError {
	var errors []models.ValidationError

	if _, err := mail.ParseAddress(req.Email); err != nil {
		errors = append(errors, models.ValidationError{Field: "email", Message: "Email is invalid"})
	}
	if !ValidUsernameRegex.MatchString(req.Username) {
		errors = append(errors, models.ValidationError{
			Field:   "username",
			Message: "Username must be 2-50 letters, digits, dots, dashes or underscores",
		})
	}
	if _, ok := users.ParseRole(req.Role); !ok {
		errors = append(errors, models.ValidationError{Field: "role", Message: "Role must be admin or user"})
	}
	if len(req.Password) < users.MinPasswordLength {
		errors = append(errors, models.ValidationError{
			Field:   "password",
			Message: fmt.Sprintf("Password must be at least %d characters", users.MinPasswordLength),
		})
	}

	return errors
}

// ValidateProfileUpdateRequest validates a change of email, username or display name
func ValidateProfileUpdateRequest(req *models.ProfileUpdateRequest) []models.ValidationError {
	var errors []models.ValidationError

	if _, err := mail.ParseAddress(req.Email); err != nil {
		errors = append(errors, models.ValidationError{Field: "email", Message: "Email is invalid"})
	}
	if !ValidUsernameRegex.MatchString(req.Username) {
		errors = append(errors, models.ValidationError{
			Field:   "username",
			Message: "Username must be 2-50 letters, digits, dots, dashes or underscores",
		})
	}

	return errors
}

func ValidatePasswordChangeRequest(req *models.PasswordChangeRequest) []models.ValidationError {
	var errors []models.ValidationError

	if req.CurrentPassword == "" {
		errors = append(errors, models.ValidationError{Field: "current_password", Message: "Current password is required"})
	}
	if len(req.NewPassword) < users.MinPasswordLength {
		errors = append(errors, models.ValidationError{
			Field:   "new_password",
			Message: fmt.Sprintf("Password must be at least %d characters", users.MinPasswordLength),
		})
	}
	if req.NewPassword != req.ConfirmPassword {
		errors = append(errors, models.ValidationError{Field: "confirm_password", Message: "Passwords do not match"})
	}

	return errors
}

// ValidateImportFile validates an uploaded spreadsheet
func ValidateImportFile(fileHeader *multipart.FileHeader, maxSize int64) []models.ValidationError {
	var errors []models.ValidationError

	if maxSize > 0 && fileHeader.Size > maxSize {
		errors = append(errors, models.ValidationError{
			Field:   "file",
			Message: fmt.Sprintf("File size must be less than %dMB", maxSize/(1024*1024)),
		})
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	validExt := false
	for _, validExtension := range ValidImportExtensions {
		if ext == validExtension {
			validExt = true
			break
		}
	}
	if !validExt {
		errors = append(errors, models.ValidationError{
			Field:   "file",
			Message: fmt.Sprintf("Invalid file format. Allowed formats: %s", strings.Join(ValidImportExtensions, ", ")),
		})
	}

	return errors
}

// SanitizeFilename sanitizes a filename for safe storage
func SanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "\\", "/")
	filename = filepath.Base(filename)
	filename = strings.ReplaceAll(filename, "..", "_")
	filename = strings.ReplaceAll(filename, " ", "_")
	return unsafeFilenameRegex.ReplaceAllString(filename, "_")
}

func appendLength(errors []models.ValidationError, field, value string, max int, required bool) []models.ValidationError {
	n := utf8.RuneCountInString(value)
	switch {
	case required && n == 0:
		errors = append(errors, models.ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%s is required", strings.ToUpper(field[:1])+field[1:]),
		})
	case n > max:
		errors = append(errors, models.ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%s must be at most %d characters", strings.ToUpper(field[:1])+field[1:], max),
		})
	}
	return errors
}
