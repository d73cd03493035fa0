// Package memory provides mutex-guarded in-process repositories. They back
// the memory store backend used for local runs and end-to-end tests.
package memory

import (
	"sync"
	"time"

	"familyvault/internal/model"
)

// Store is the shared state behind AccountMemory and DocumentMemory.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]*model.Account
	family   map[string][]model.FamilyMember
	docs     map[string]*model.Document
	now      func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		accounts: make(map[string]*model.Account),
		family:   make(map[string][]model.FamilyMember),
		docs:     make(map[string]*model.Document),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func cloneAccount(a *model.Account) *model.Account {
	out := *a
	if a.OTP != nil {
		otp := *a.OTP
		out.OTP = &otp
	}
	out.FamilyMembers = []model.FamilyMember{}
	return &out
}

func cloneDocument(d *model.Document) *model.Document {
	out := *d
	out.Tags = append([]string{}, d.Tags...)
	out.SharedWith = append([]model.Share{}, d.SharedWith...)
	return &out
}
