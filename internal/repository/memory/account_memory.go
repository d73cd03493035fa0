package memory

import (
	"context"
	"time"

	"familyvault/internal/model"
	"familyvault/internal/repository"
)

// AccountMemory is an in-memory implementation of repository.AccountRepository.
type AccountMemory struct {
	s *Store
}

// NewAccountMemory creates an account repository over s.
func NewAccountMemory(s *Store) *AccountMemory {
	return &AccountMemory{s: s}
}

var _ repository.AccountRepository = (*AccountMemory)(nil)

// identityTaken reports whether another account uses one of the identity values.
// Callers hold the lock.
func (r *AccountMemory) identityTaken(exceptID, email, phone, aadhaar string) bool {
	for id, a := range r.s.accounts {
		if id == exceptID {
			continue
		}
		if (email != "" && a.Email == email) ||
			(phone != "" && a.PhoneNumber == phone) ||
			(aadhaar != "" && a.AadhaarNumber == aadhaar) {
			return true
		}
	}
	return false
}

func (r *AccountMemory) Create(_ context.Context, acc *model.Account) (*model.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.accounts[acc.ID]; ok {
		return nil, repository.ErrDuplicate
	}
	if r.identityTaken("", acc.Email, acc.PhoneNumber, acc.AadhaarNumber) {
		return nil, repository.ErrDuplicate
	}

	stored := cloneAccount(acc)
	stored.IsVerified = false
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = r.s.now()
	}
	stored.UpdatedAt = stored.CreatedAt
	r.s.accounts[stored.ID] = stored
	return cloneAccount(stored), nil
}

func (r *AccountMemory) ExistsByIdentity(_ context.Context, email, phone, aadhaar string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.identityTaken("", email, phone, aadhaar), nil
}

func (r *AccountMemory) FindByID(_ context.Context, id string) (*model.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneAccount(a), nil
}

func (r *AccountMemory) FindByEmail(_ context.Context, email string) (*model.Account, error) {
	return r.findFirst(func(a *model.Account) bool { return a.Email == email })
}

func (r *AccountMemory) FindVerifiedByEmail(_ context.Context, email string) (*model.Account, error) {
	return r.findFirst(func(a *model.Account) bool { return a.IsVerified && a.Email == email })
}

func (r *AccountMemory) FindVerifiedByAadhaar(_ context.Context, aadhaar string) (*model.Account, error) {
	return r.findFirst(func(a *model.Account) bool { return a.IsVerified && a.AadhaarNumber == aadhaar })
}

func (r *AccountMemory) findFirst(match func(*model.Account) bool) (*model.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, a := range r.s.accounts {
		if match(a) {
			return cloneAccount(a), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *AccountMemory) SetOTP(_ context.Context, id string, code string, expiresAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.accounts[id]
	if !ok || a.IsVerified {
		return repository.ErrNotFound
	}
	a.OTP = &model.OTP{Code: code, ExpiresAt: expiresAt}
	a.UpdatedAt = r.s.now()
	return nil
}

func (r *AccountMemory) MarkVerified(_ context.Context, id, code string, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.accounts[id]
	if !ok || a.IsVerified || !a.OTP.Valid(code, now) {
		return repository.ErrNotFound
	}
	a.IsVerified = true
	a.OTP = nil
	a.UpdatedAt = r.s.now()
	return nil
}

func (r *AccountMemory) UpdateProfile(_ context.Context, id string, upd model.ProfileUpdate) (*model.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if upd.PhoneNumber != nil && r.identityTaken(id, "", *upd.PhoneNumber, "") {
		return nil, repository.ErrDuplicate
	}

	setIf(&a.FirstName, upd.FirstName)
	setIf(&a.LastName, upd.LastName)
	setIf(&a.PhoneNumber, upd.PhoneNumber)
	setIf(&a.Address.Street, upd.Street)
	setIf(&a.Address.City, upd.City)
	setIf(&a.Address.State, upd.State)
	setIf(&a.Address.Pincode, upd.Pincode)
	a.UpdatedAt = r.s.now()
	return cloneAccount(a), nil
}

func (r *AccountMemory) AddFamilyMember(_ context.Context, accountID string, link model.FamilyMember) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.accounts[accountID]; !ok {
		return repository.ErrNotFound
	}
	for _, m := range r.s.family[accountID] {
		if m.Member.ID == link.Member.ID {
			return repository.ErrDuplicate
		}
	}
	r.s.family[accountID] = append(r.s.family[accountID], link)
	return nil
}

func (r *AccountMemory) ListFamilyMembers(_ context.Context, accountID string) ([]model.FamilyMember, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	links := r.s.family[accountID]
	out := make([]model.FamilyMember, 0, len(links))
	for _, l := range links {
		if m, ok := r.s.accounts[l.Member.ID]; ok {
			l.Member = m.Summary()
			l.Member.AadhaarNumber = m.AadhaarNumber
		}
		out = append(out, l)
	}
	return out, nil
}

func setIf(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
