package service

import (
	"errors"
	"sort"
	"strings"

	"familyvault/internal/access"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrInvalidID  = errors.New("invalid id")

	ErrAccountExists      = errors.New("an account already exists with this email, phone number or Aadhaar number")
	ErrAccountNotFound    = errors.New("account not found")
	ErrAlreadyVerified    = errors.New("account already verified")
	ErrInvalidOTP         = errors.New("invalid or expired otp")
	ErrTooManyAttempts    = errors.New("too many attempts, try again later")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotVerified        = errors.New("account not verified")
	ErrPhoneInUse         = errors.New("phone number already in use")

	ErrUserNotFound    = errors.New("user not found or not verified")
	ErrSelfFamily      = errors.New("cannot add yourself as a family member")
	ErrDuplicateFamily = errors.New("family member already added")

	ErrNotFound             = errors.New("document not found")
	ErrDownloadNotPermitted = errors.New("download not permitted")
	ErrSelfShare            = access.ErrSelfShare
	ErrDuplicateShare       = access.ErrDuplicateShare

	ErrFileRequired    = errors.New("file is required")
	ErrFileTooLarge    = errors.New("file exceeds the upload size limit")
	ErrUnsupportedType = errors.New("only JPEG, PNG and PDF files are allowed")
)

// ValidationError carries per-field messages. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}
