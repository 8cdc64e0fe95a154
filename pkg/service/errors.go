package service

import "errors"

var (
	ErrInvalidAuth         = errors.New("invalid auth")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrForbiddenSelf       = errors.New("key is not allowed")
	ErrNotFound            = errors.New("link not found")
	ErrInvalidKey          = errors.New("invalid key")
	ErrGenerationExhausted = errors.New("failed to generate unique code after max attempts")
	ErrInvalidCode         = errors.New("invalid code")
	ErrReservedCode        = errors.New("code is reserved")
	ErrCodeConflict        = errors.New("code already exists")
)
