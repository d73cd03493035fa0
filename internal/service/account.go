package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"familyvault/internal/auth"
	"familyvault/internal/logger"
	"familyvault/internal/model"
	"familyvault/internal/notify"
	"familyvault/internal/ratelimit"
	"familyvault/internal/repository"
	"familyvault/internal/validate"
)

// TokenIssuer signs bearer tokens for an account id.
type TokenIssuer interface {
	Issue(accountID string) (string, error)
}

// CodeIssuer produces one-time verification codes.
type CodeIssuer interface {
	Issue(now time.Time) (model.OTP, error)
}

// AddressInput is the postal address accepted on registration.
type AddressInput struct {
	Street  string `json:"street" validate:"max=200"`
	City    string `json:"city" validate:"max=100"`
	State   string `json:"state" validate:"max=100"`
	Pincode string `json:"pincode" validate:"omitempty,pincode"`
}

// RegisterInput is the registration request.
type RegisterInput struct {
	FirstName     string       `json:"firstName" validate:"required,min=2,max=50"`
	LastName      string       `json:"lastName" validate:"required,min=2,max=50"`
	Email         string       `json:"email" validate:"required,email"`
	Password      string       `json:"password" validate:"required,min=6,max=72"`
	PhoneNumber   string       `json:"phoneNumber" validate:"required,phone"`
	AadhaarNumber string       `json:"aadhaarNumber" validate:"required,aadhaar"`
	DateOfBirth   string       `json:"dateOfBirth" validate:"required,isodate"`
	Address       AddressInput `json:"address"`
}

// RegisterResult identifies the pending account. OTP is only set when code
// exposure is enabled outside production.
type RegisterResult struct {
	UserID string `json:"userId"`
	OTP    string `json:"otp,omitempty"`
}

// VerifyInput is the code verification request.
type VerifyInput struct {
	UserID string `json:"userId" validate:"required,uuid"`
	OTP    string `json:"otp" validate:"required,len=6,numeric"`
}

// ResendInput is the code resend request.
type ResendInput struct {
	UserID string `json:"userId" validate:"required,uuid"`
}

// ResendResult mirrors RegisterResult for a reissued code.
type ResendResult struct {
	OTP string `json:"otp,omitempty"`
}

// LoginInput is the login request.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is returned by a successful verification or login.
type AuthResult struct {
	Token   string         `json:"token"`
	Account *model.Account `json:"user"`
}

// AddressPatch holds optional address changes.
type AddressPatch struct {
	Street  *string `json:"street" validate:"omitempty,max=200"`
	City    *string `json:"city" validate:"omitempty,max=100"`
	State   *string `json:"state" validate:"omitempty,max=100"`
	Pincode *string `json:"pincode" validate:"omitempty,pincode"`
}

// ProfileInput holds optional profile changes. Nil fields are left untouched.
type ProfileInput struct {
	FirstName   *string       `json:"firstName" validate:"omitempty,min=2,max=50"`
	LastName    *string       `json:"lastName" validate:"omitempty,min=2,max=50"`
	PhoneNumber *string       `json:"phoneNumber" validate:"omitempty,phone"`
	Address     *AddressPatch `json:"address"`
}

// FamilyPermissionsInput holds optional link flags; nil takes the default.
type FamilyPermissionsInput struct {
	CanView     *bool `json:"canView"`
	CanDownload *bool `json:"canDownload"`
}

// FamilyMemberInput is the add-family-member request.
type FamilyMemberInput struct {
	AadhaarNumber    string                  `json:"aadhaarNumber" validate:"required,aadhaar"`
	RelationshipType string                  `json:"relationshipType" validate:"required,oneof=parent child spouse sibling other"`
	Permissions      *FamilyPermissionsInput `json:"permissions"`
}

// AccountService defines the identity, profile and family use cases.
type AccountService interface {
	// Register creates an unverified account and dispatches a verification code.
	Register(ctx context.Context, in RegisterInput) (*RegisterResult, error)
	// VerifyOTP verifies a pending account exactly once and signs it in.
	VerifyOTP(ctx context.Context, in VerifyInput) (*AuthResult, error)
	// Login checks the password first, then the verified state.
	Login(ctx context.Context, in LoginInput) (*AuthResult, error)
	// ResendOTP replaces the pending code of an unverified account.
	ResendOTP(ctx context.Context, in ResendInput) (*ResendResult, error)

	GetProfile(ctx context.Context, accountID string) (*model.Account, error)
	UpdateProfile(ctx context.Context, accountID string, in ProfileInput) (*model.Account, error)
	// AddFamilyMember links a verified account found by Aadhaar number and returns the updated list.
	AddFamilyMember(ctx context.Context, accountID string, in FamilyMemberInput) ([]model.FamilyMember, error)
	// SearchByAadhaar returns the summary of the verified account holding aadhaar.
	SearchByAadhaar(ctx context.Context, aadhaar string) (*model.AccountSummary, error)
}

// AccountDeps are the collaborators of the account service.
type AccountDeps struct {
	Accounts  repository.AccountRepository
	Tokens    TokenIssuer
	Codes     CodeIssuer
	Notifier  notify.Notifier
	Limiter   ratelimit.Limiter
	Validator *validate.Validator
	Log       *zap.Logger
	// ExposeOTP echoes issued codes in responses. Never set in production.
	ExposeOTP bool
	Now       func() time.Time
}

type accountService struct {
	deps AccountDeps
}

// NewAccountService constructs a new AccountService. Optional deps fall back
// to no-op implementations.
func NewAccountService(deps AccountDeps) AccountService {
	if deps.Limiter == nil {
		deps.Limiter = ratelimit.Noop{}
	}
	if deps.Validator == nil {
		deps.Validator = validate.New()
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.NewLogNotifier(deps.Log)
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	return &accountService{deps: deps}
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func trimPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}

func (s *accountService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = normalizeEmail(in.Email)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	in.AadhaarNumber = strings.TrimSpace(in.AadhaarNumber)
	in.Address.Street = strings.TrimSpace(in.Address.Street)
	in.Address.City = strings.TrimSpace(in.Address.City)
	in.Address.State = strings.TrimSpace(in.Address.State)
	in.Address.Pincode = strings.TrimSpace(in.Address.Pincode)

	if err := invalid(s.deps.Validator.Struct(in)); err != nil {
		return nil, err
	}
	dob, err := validate.ParseDate(in.DateOfBirth)
	if err != nil {
		return nil, invalid(map[string]string{"dateOfBirth": "must be an ISO 8601 date"})
	}

	exists, err := s.deps.Accounts.ExistsByIdentity(ctx, in.Email, in.PhoneNumber, in.AadhaarNumber)
	if err != nil {
		return nil, fmt.Errorf("check identity: %w", err)
	}
	if exists {
		return nil, ErrAccountExists
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.deps.Now()
	code, err := s.deps.Codes.Issue(now)
	if err != nil {
		return nil, err
	}

	acc, err := s.deps.Accounts.Create(ctx, &model.Account{
		ID:            uuid.NewString(),
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		Email:         in.Email,
		PhoneNumber:   in.PhoneNumber,
		AadhaarNumber: in.AadhaarNumber,
		DateOfBirth:   dob,
		Address: model.Address{
			Street:  in.Address.Street,
			City:    in.Address.City,
			State:   in.Address.State,
			Pincode: in.Address.Pincode,
		},
		PasswordHash: hash,
		OTP:          &code,
		CreatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.dispatch(ctx, acc, code)

	res := &RegisterResult{UserID: acc.ID}
	if s.deps.ExposeOTP {
		res.OTP = code.Code
	}
	return res, nil
}

// dispatch delivers code. A delivery failure leaves the account pending; the
// holder can ask for a resend.
func (s *accountService) dispatch(ctx context.Context, acc *model.Account, code model.OTP) {
	err := s.deps.Notifier.SendOTP(ctx, notify.Message{
		AccountID: acc.ID,
		Email:     acc.Email,
		Phone:     acc.PhoneNumber,
		Code:      code.Code,
		ExpiresAt: code.ExpiresAt,
	})
	if err != nil {
		logger.FromContext(ctx, s.deps.Log).Warn("otp_dispatch_failed",
			zap.String("account_id", acc.ID),
			zap.Error(err),
		)
	}
}

func (s *accountService) VerifyOTP(ctx context.Context, in VerifyInput) (*AuthResult, error) {
	in.UserID = strings.TrimSpace(in.UserID)
	in.OTP = strings.TrimSpace(in.OTP)
	if err := invalid(s.deps.Validator.Struct(in)); err != nil {
		return nil, err
	}

	acc, err := s.findAccount(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if acc.IsVerified {
		return nil, ErrAlreadyVerified
	}

	if err := s.deps.Limiter.AllowVerify(ctx, acc.ID); err != nil {
		if errors.Is(err, ratelimit.ErrLimited) {
			return nil, ErrTooManyAttempts
		}
		return nil, fmt.Errorf("limit verify: %w", err)
	}

	now := s.deps.Now()
	if !acc.OTP.Valid(in.OTP, now) {
		return nil, ErrInvalidOTP
	}

	if err := s.deps.Accounts.MarkVerified(ctx, acc.ID, in.OTP, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, s.verifyConflict(ctx, acc.ID)
		}
		return nil, fmt.Errorf("mark verified: %w", err)
	}
	if err := s.deps.Limiter.Reset(ctx, acc.ID); err != nil {
		logger.FromContext(ctx, s.deps.Log).Warn("otp_limiter_reset_failed",
			zap.String("account_id", acc.ID),
			zap.Error(err),
		)
	}

	acc.IsVerified = true
	acc.OTP = nil
	return s.signIn(acc)
}

func (s *accountService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	if err := invalid(s.deps.Validator.Struct(in)); err != nil {
		return nil, err
	}

	acc, err := s.deps.Accounts.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find account: %w", err)
	}

	ok, err := auth.CheckPassword(acc.PasswordHash, in.Password)
	if err != nil {
		return nil, fmt.Errorf("check password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if !acc.IsVerified {
		return nil, ErrNotVerified
	}

	members, err := s.deps.Accounts.ListFamilyMembers(ctx, acc.ID)
	if err != nil {
		return nil, fmt.Errorf("list family members: %w", err)
	}
	acc.FamilyMembers = members
	return s.signIn(acc)
}

func (s *accountService) signIn(acc *model.Account) (*AuthResult, error) {
	token, err := s.deps.Tokens.Issue(acc.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{Token: token, Account: acc}, nil
}

func (s *accountService) ResendOTP(ctx context.Context, in ResendInput) (*ResendResult, error) {
	in.UserID = strings.TrimSpace(in.UserID)
	if err := invalid(s.deps.Validator.Struct(in)); err != nil {
		return nil, err
	}

	acc, err := s.findAccount(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if acc.IsVerified {
		return nil, ErrAlreadyVerified
	}

	if err := s.deps.Limiter.AllowResend(ctx, acc.ID); err != nil {
		if errors.Is(err, ratelimit.ErrLimited) {
			return nil, ErrTooManyAttempts
		}
		return nil, fmt.Errorf("limit resend: %w", err)
	}

	code, err := s.deps.Codes.Issue(s.deps.Now())
	if err != nil {
		return nil, err
	}
	if err := s.deps.Accounts.SetOTP(ctx, acc.ID, code.Code, code.ExpiresAt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAlreadyVerified
		}
		return nil, fmt.Errorf("store otp: %w", err)
	}

	s.dispatch(ctx, acc, code)

	res := &ResendResult{}
	if s.deps.ExposeOTP {
		res.OTP = code.Code
	}
	return res, nil
}

func (s *accountService) GetProfile(ctx context.Context, accountID string) (*model.Account, error) {
	acc, err := s.findAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	members, err := s.deps.Accounts.ListFamilyMembers(ctx, acc.ID)
	if err != nil {
		return nil, fmt.Errorf("list family members: %w", err)
	}
	acc.FamilyMembers = members
	return acc, nil
}

func (s *accountService) UpdateProfile(ctx context.Context, accountID string, in ProfileInput) (*model.Account, error) {
	in.FirstName = trimPtr(in.FirstName)
	in.LastName = trimPtr(in.LastName)
	in.PhoneNumber = trimPtr(in.PhoneNumber)
	upd := model.ProfileUpdate{
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		PhoneNumber: in.PhoneNumber,
	}
	if a := in.Address; a != nil {
		a.Street, a.City, a.State, a.Pincode = trimPtr(a.Street), trimPtr(a.City), trimPtr(a.State), trimPtr(a.Pincode)
		upd.Street, upd.City, upd.State, upd.Pincode = a.Street, a.City, a.State, a.Pincode
	}
	if err := invalid(s.deps.Validator.Struct(in)); err != nil {
		return nil, err
	}

	acc, err := s.deps.Accounts.UpdateProfile(ctx, accountID, upd)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrAccountNotFound
		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrPhoneInUse
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}

	members, err := s.deps.Accounts.ListFamilyMembers(ctx, acc.ID)
	if err != nil {
		return nil, fmt.Errorf("list family members: %w", err)
	}
	acc.FamilyMembers = members
	return acc, nil
}

func (s *accountService) AddFamilyMember(ctx context.Context, accountID string, in FamilyMemberInput) ([]model.FamilyMember, error) {
	in.AadhaarNumber = strings.TrimSpace(in.AadhaarNumber)
	in.RelationshipType = strings.TrimSpace(in.RelationshipType)
	if err := invalid(s.deps.Validator.Struct(in)); err != nil {
		return nil, err
	}

	target, err := s.deps.Accounts.FindVerifiedByAadhaar(ctx, in.AadhaarNumber)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find family member: %w", err)
	}
	if target.ID == accountID {
		return nil, ErrSelfFamily
	}

	perms := model.FamilyPermissions{CanView: true}
	if p := in.Permissions; p != nil {
		if p.CanView != nil {
			perms.CanView = *p.CanView
		}
		if p.CanDownload != nil {
			perms.CanDownload = *p.CanDownload
		}
	}

	summary := target.Summary()
	summary.AadhaarNumber = target.AadhaarNumber
	link := model.FamilyMember{
		Member:       summary,
		Relationship: in.RelationshipType,
		Permissions:  perms,
		AddedAt:      s.deps.Now(),
	}
	if err := s.deps.Accounts.AddFamilyMember(ctx, accountID, link); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrDuplicateFamily
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("add family member: %w", err)
	}

	members, err := s.deps.Accounts.ListFamilyMembers(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list family members: %w", err)
	}
	return members, nil
}

func (s *accountService) SearchByAadhaar(ctx context.Context, aadhaar string) (*model.AccountSummary, error) {
	aadhaar = strings.TrimSpace(aadhaar)
	if msg := s.deps.Validator.Var(aadhaar, "required,aadhaar"); msg != "" {
		return nil, invalid(map[string]string{"aadhaar": msg})
	}

	acc, err := s.deps.Accounts.FindVerifiedByAadhaar(ctx, aadhaar)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("search account: %w", err)
	}
	summary := acc.Summary()
	summary.AadhaarNumber = acc.AadhaarNumber
	return &summary, nil
}

// verifyConflict explains a refused verification flip: either a concurrent
// request verified the account first or the code was replaced meanwhile.
func (s *accountService) verifyConflict(ctx context.Context, id string) error {
	cur, err := s.findAccount(ctx, id)
	if err != nil {
		return err
	}
	if cur.IsVerified {
		return ErrAlreadyVerified
	}
	return ErrInvalidOTP
}

func (s *accountService) findAccount(ctx context.Context, id string) (*model.Account, error) {
	acc, err := s.deps.Accounts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return acc, nil
}
