package mocks

import (
	"context"
	"time"

	"familyvault/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Create(ctx context.Context, acc *model.Account) (*model.Account, error) {
	args := m.Called(ctx, acc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockAccountRepository) ExistsByIdentity(ctx context.Context, email, phone, aadhaar string) (bool, error) {
	args := m.Called(ctx, email, phone, aadhaar)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountRepository) FindByID(ctx context.Context, id string) (*model.Account, error) {
	return m.account(m.Called(ctx, id))
}

func (m *MockAccountRepository) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	return m.account(m.Called(ctx, email))
}

func (m *MockAccountRepository) FindVerifiedByEmail(ctx context.Context, email string) (*model.Account, error) {
	return m.account(m.Called(ctx, email))
}

func (m *MockAccountRepository) FindVerifiedByAadhaar(ctx context.Context, aadhaar string) (*model.Account, error) {
	return m.account(m.Called(ctx, aadhaar))
}

func (m *MockAccountRepository) SetOTP(ctx context.Context, id string, code string, expiresAt time.Time) error {
	args := m.Called(ctx, id, code, expiresAt)
	return args.Error(0)
}

func (m *MockAccountRepository) MarkVerified(ctx context.Context, id, code string, now time.Time) error {
	args := m.Called(ctx, id, code, now)
	return args.Error(0)
}

func (m *MockAccountRepository) UpdateProfile(ctx context.Context, id string, upd model.ProfileUpdate) (*model.Account, error) {
	return m.account(m.Called(ctx, id, upd))
}

func (m *MockAccountRepository) AddFamilyMember(ctx context.Context, accountID string, link model.FamilyMember) error {
	args := m.Called(ctx, accountID, link)
	return args.Error(0)
}

func (m *MockAccountRepository) ListFamilyMembers(ctx context.Context, accountID string) ([]model.FamilyMember, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.FamilyMember), args.Error(1)
}

func (m *MockAccountRepository) account(args mock.Arguments) (*model.Account, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}
