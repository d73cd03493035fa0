package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"familyvault/internal/model"
	"familyvault/internal/notify"
	"familyvault/internal/repository/memory"
	"familyvault/internal/storage"
)

type fixedCodes struct {
	code string
	ttl  time.Duration
}

func (f fixedCodes) Issue(now time.Time) (model.OTP, error) {
	return model.OTP{Code: f.code, ExpiresAt: now.Add(f.ttl)}, nil
}

type stubTokens struct{}

func (stubTokens) Issue(accountID string) (string, error) { return "token-" + accountID, nil }

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
	err  error
}

func (n *recordingNotifier) SendOTP(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	return n.err
}

func (n *recordingNotifier) last() notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.msgs[len(n.msgs)-1]
}

func newMemoryAccounts() *memory.AccountMemory {
	return memory.NewAccountMemory(memory.NewStore())
}

// vault wires both services over one in-memory store.
type vault struct {
	accounts AccountService
	docs     DocumentService
	store    *memory.Store
	objects  storage.Storage
	clock    *testClock
	notifier *recordingNotifier
}

func newVault(t *testing.T) *vault {
	t.Helper()
	st := memory.NewStore()
	accRepo := memory.NewAccountMemory(st)
	clock := &testClock{t: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
	notifier := &recordingNotifier{}
	objects := storage.NewMemory()

	return &vault{
		accounts: NewAccountService(AccountDeps{
			Accounts: accRepo,
			Tokens:   stubTokens{},
			Codes:    fixedCodes{code: "123456", ttl: 10 * time.Minute},
			Notifier: notifier,
			Now:      clock.Now,
		}),
		docs: NewDocumentService(DocumentDeps{
			Store:     objects,
			Documents: memory.NewDocumentMemory(st),
			Accounts:  accRepo,
			Now:       clock.Now,
		}),
		store:    st,
		objects:  objects,
		clock:    clock,
		notifier: notifier,
	}
}

func registration(suffix string) RegisterInput {
	return RegisterInput{
		FirstName:     "Asha",
		LastName:      "Rao",
		Email:         "asha" + suffix + "@example.com",
		Password:      "secret123",
		PhoneNumber:   "98765432" + suffix,
		AadhaarNumber: "1234567890" + suffix,
		DateOfBirth:   "1990-05-01",
		Address:       AddressInput{City: "Pune", Pincode: "411001"},
	}
}

// verifiedAccount registers and verifies an account; suffix must be two digits.
func (v *vault) verifiedAccount(t *testing.T, suffix string) string {
	t.Helper()
	ctx := context.Background()
	reg, err := v.accounts.Register(ctx, registration(suffix))
	require.NoError(t, err)
	_, err = v.accounts.VerifyOTP(ctx, VerifyInput{UserID: reg.UserID, OTP: "123456"})
	require.NoError(t, err)
	return reg.UserID
}
