package materials

import "errors"

var (
	ErrNotFound            = errors.New("material not found")
	ErrAlreadyClaimed      = errors.New("material is already in use")
	ErrDuplicateIdentifier = errors.New("material identifier already exists")
	ErrInvalidStatus       = errors.New("invalid material status")
	ErrInvalidHolder       = errors.New("holder is not a known user")
	ErrInvalidMaterial     = errors.New("category and identifier are required")
)
