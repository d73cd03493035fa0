package repository

import (
	"context"
	"time"

	"familyvault/internal/model"
)

// AccountRepository defines data access for accounts and their family links.
// No business logic here, strictly persistence operations.
type AccountRepository interface {
	// Create inserts a new, unverified account. ErrDuplicate when email, phone or Aadhaar is taken.
	Create(ctx context.Context, acc *model.Account) (*model.Account, error)

	// ExistsByIdentity reports whether any account already uses the email, phone or Aadhaar number.
	ExistsByIdentity(ctx context.Context, email, phone, aadhaar string) (bool, error)

	// FindByID returns an account (without family links). ErrNotFound when absent.
	FindByID(ctx context.Context, id string) (*model.Account, error)

	// FindByEmail returns an account by its normalized email. ErrNotFound when absent.
	FindByEmail(ctx context.Context, email string) (*model.Account, error)

	// FindVerifiedByEmail returns a verified account by email. ErrNotFound when absent or unverified.
	FindVerifiedByEmail(ctx context.Context, email string) (*model.Account, error)

	// FindVerifiedByAadhaar returns a verified account by Aadhaar number. ErrNotFound when absent or unverified.
	FindVerifiedByAadhaar(ctx context.Context, aadhaar string) (*model.Account, error)

	// SetOTP replaces the pending code of an unverified account. ErrNotFound when absent or already verified.
	SetOTP(ctx context.Context, id string, code string, expiresAt time.Time) error

	// MarkVerified flips an unverified account to verified and clears its code,
	// provided code is still its pending code and has not expired at now.
	// ErrNotFound when no such unverified account exists.
	MarkVerified(ctx context.Context, id, code string, now time.Time) error

	// UpdateProfile applies the non-nil fields. ErrDuplicate when the phone number is taken.
	UpdateProfile(ctx context.Context, id string, upd model.ProfileUpdate) (*model.Account, error)

	// AddFamilyMember appends a link unless the pair already exists, in which case ErrDuplicate.
	AddFamilyMember(ctx context.Context, accountID string, link model.FamilyMember) error

	// ListFamilyMembers returns the links of an account in insertion order.
	ListFamilyMembers(ctx context.Context, accountID string) ([]model.FamilyMember, error)
}
