package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"familyvault/internal/model"
	"familyvault/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAccount(t *testing.T, repo *AccountMemory, id, email, phone, aadhaar string) *model.Account {
	t.Helper()
	acc, err := repo.Create(context.Background(), &model.Account{
		ID:            id,
		FirstName:     "First" + id,
		LastName:      "Last",
		Email:         email,
		PhoneNumber:   phone,
		AadhaarNumber: aadhaar,
		OTP:           &model.OTP{Code: "123456", ExpiresAt: time.Now().Add(time.Minute)},
	})
	require.NoError(t, err)
	return acc
}

func TestAccountMemory_Lifecycle(t *testing.T) {
	s := NewStore()
	repo := NewAccountMemory(s)
	ctx := context.Background()

	acc := seedAccount(t, repo, "a1", "a@example.com", "9876543210", "123456789012")
	assert.False(t, acc.IsVerified)

	_, err := repo.Create(ctx, &model.Account{ID: "a2", Email: "b@example.com", PhoneNumber: "9876543210", AadhaarNumber: "999999999999"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	exists, err := repo.ExistsByIdentity(ctx, "x@example.com", "0000000000", "123456789012")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = repo.FindVerifiedByEmail(ctx, "a@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, repo.SetOTP(ctx, "a1", "654321", time.Now().Add(time.Minute)))
	got, err := repo.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "654321", got.OTP.Code)

	assert.ErrorIs(t, repo.MarkVerified(ctx, "a1", "123456", time.Now()), repository.ErrNotFound)
	require.NoError(t, repo.MarkVerified(ctx, "a1", "654321", time.Now()))
	assert.ErrorIs(t, repo.MarkVerified(ctx, "a1", "654321", time.Now()), repository.ErrNotFound)
	assert.ErrorIs(t, repo.SetOTP(ctx, "a1", "111111", time.Now()), repository.ErrNotFound)

	verified, err := repo.FindVerifiedByAadhaar(ctx, "123456789012")
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)
	assert.Nil(t, verified.OTP)
}

func TestAccountMemory_MarkVerifiedConcurrent(t *testing.T) {
	repo := NewAccountMemory(NewStore())
	seedAccount(t, repo, "a1", "a@example.com", "9876543210", "123456789012")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.MarkVerified(context.Background(), "a1", "123456", time.Now()); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}

func TestAccountMemory_MarkVerifiedRequiresPendingCode(t *testing.T) {
	repo := NewAccountMemory(NewStore())
	ctx := context.Background()
	seedAccount(t, repo, "a1", "a@example.com", "9876543210", "123456789012")
	expiry := time.Now().Add(time.Minute)

	require.NoError(t, repo.SetOTP(ctx, "a1", "777777", expiry))

	assert.ErrorIs(t, repo.MarkVerified(ctx, "a1", "123456", time.Now()), repository.ErrNotFound)
	assert.ErrorIs(t, repo.MarkVerified(ctx, "a1", "777777", expiry), repository.ErrNotFound)
	assert.ErrorIs(t, repo.MarkVerified(ctx, "missing", "777777", time.Now()), repository.ErrNotFound)

	got, err := repo.FindByID(ctx, "a1")
	require.NoError(t, err)
	assert.False(t, got.IsVerified)

	require.NoError(t, repo.MarkVerified(ctx, "a1", "777777", expiry.Add(-time.Second)))
}

func TestAccountMemory_UpdateProfile(t *testing.T) {
	repo := NewAccountMemory(NewStore())
	ctx := context.Background()
	seedAccount(t, repo, "a1", "a@example.com", "9876543210", "123456789012")
	seedAccount(t, repo, "a2", "b@example.com", "9876543211", "123456789013")

	city := "Pune"
	acc, err := repo.UpdateProfile(ctx, "a1", model.ProfileUpdate{City: &city})
	require.NoError(t, err)
	assert.Equal(t, "Pune", acc.Address.City)
	assert.Equal(t, "Firsta1", acc.FirstName)

	taken := "9876543211"
	_, err = repo.UpdateProfile(ctx, "a1", model.ProfileUpdate{PhoneNumber: &taken})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	same := "9876543210"
	_, err = repo.UpdateProfile(ctx, "a1", model.ProfileUpdate{PhoneNumber: &same})
	assert.NoError(t, err)

	_, err = repo.UpdateProfile(ctx, "missing", model.ProfileUpdate{City: &city})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAccountMemory_FamilyMembers(t *testing.T) {
	repo := NewAccountMemory(NewStore())
	ctx := context.Background()
	seedAccount(t, repo, "a1", "a@example.com", "9876543210", "123456789012")
	seedAccount(t, repo, "a2", "b@example.com", "9876543211", "123456789013")

	link := model.FamilyMember{
		Member:       model.AccountSummary{ID: "a2"},
		Relationship: model.RelationshipSibling,
		Permissions:  model.FamilyPermissions{CanView: true},
		AddedAt:      time.Now(),
	}
	require.NoError(t, repo.AddFamilyMember(ctx, "a1", link))
	assert.ErrorIs(t, repo.AddFamilyMember(ctx, "a1", link), repository.ErrDuplicate)

	members, err := repo.ListFamilyMembers(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "b@example.com", members[0].Member.Email)
	assert.Equal(t, "123456789013", members[0].Member.AadhaarNumber)

	reverse, err := repo.ListFamilyMembers(ctx, "a2")
	require.NoError(t, err)
	assert.Empty(t, reverse)
}

func newDoc(id, owner string, created time.Time, docType string) *model.Document {
	return &model.Document{
		ID:           id,
		Title:        "Doc " + id,
		DocumentType: docType,
		FileName:     id + ".pdf",
		FileSize:     10,
		MimeType:     "application/pdf",
		StoragePath:  "documents/" + owner + "/" + id + ".pdf",
		Owner:        model.AccountSummary{ID: owner},
		CreatedAt:    created,
	}
}

func TestDocumentMemory_VisibilityAndPaging(t *testing.T) {
	s := NewStore()
	accounts := NewAccountMemory(s)
	docs := NewDocumentMemory(s)
	ctx := context.Background()
	seedAccount(t, accounts, "owner", "o@example.com", "9876543210", "123456789012")
	seedAccount(t, accounts, "viewer", "v@example.com", "9876543211", "123456789013")

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		docType := model.DocumentTypeOther
		if i%3 == 0 {
			docType = model.DocumentTypePassport
		}
		_, err := docs.Create(ctx, newDoc(fmt.Sprintf("d%02d", i), "owner", base.Add(time.Duration(i)*time.Minute), docType))
		require.NoError(t, err)
	}

	page, err := docs.ListVisible(ctx, repository.DocumentFilter{ViewerID: "owner"}, repository.PageQuery{Limit: 5, Offset: 10})
	require.NoError(t, err)
	assert.Equal(t, 12, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "d01", page.Items[0].ID)
	assert.Equal(t, "d00", page.Items[1].ID)
	assert.Equal(t, "o@example.com", page.Items[0].Owner.Email)

	passports, err := docs.ListVisible(ctx, repository.DocumentFilter{ViewerID: "owner", DocumentType: model.DocumentTypePassport}, repository.PageQuery{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 4, passports.Total)

	none, err := docs.ListVisible(ctx, repository.DocumentFilter{ViewerID: "viewer"}, repository.PageQuery{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 0, none.Total)

	require.NoError(t, docs.AddShare(ctx, "d05", model.Share{
		Grantee:     model.AccountSummary{ID: "viewer"},
		Permissions: model.SharePermissions{CanView: true},
		SharedAt:    time.Now(),
		SharedBy:    "owner",
	}))
	shared, err := docs.ListVisible(ctx, repository.DocumentFilter{ViewerID: "viewer"}, repository.PageQuery{Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 1, shared.Total)
	assert.Equal(t, "v@example.com", shared.Items[0].SharedWith[0].Grantee.Email)

	require.NoError(t, docs.Deactivate(ctx, "d05", "owner"))
	after, err := docs.ListVisible(ctx, repository.DocumentFilter{ViewerID: "viewer"}, repository.PageQuery{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 0, after.Total)

	_, err = docs.FindActiveByID(ctx, "d05")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDocumentMemory_OwnerOnlyMutations(t *testing.T) {
	s := NewStore()
	docs := NewDocumentMemory(s)
	ctx := context.Background()
	_, err := docs.Create(ctx, newDoc("d1", "owner", time.Now(), model.DocumentTypeOther))
	require.NoError(t, err)

	title := "New"
	_, err = docs.UpdateMetadata(ctx, "d1", "intruder", model.DocumentUpdate{Title: &title})
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, docs.Deactivate(ctx, "d1", "intruder"), repository.ErrNotFound)

	tags := []string{"a", "b"}
	updated, err := docs.UpdateMetadata(ctx, "d1", "owner", model.DocumentUpdate{Title: &title, Tags: &tags})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Title)
	assert.Equal(t, []string{"a", "b"}, updated.Tags)
	assert.Equal(t, "application/pdf", updated.MimeType)

	tags[0] = "mutated"
	again, err := docs.FindActiveByID(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "a", again.Tags[0])

	require.NoError(t, docs.Deactivate(ctx, "d1", "owner"))
	assert.ErrorIs(t, docs.Deactivate(ctx, "d1", "owner"), repository.ErrNotFound)
}

func TestDocumentMemory_ConcurrentShareIsAtomic(t *testing.T) {
	docs := NewDocumentMemory(NewStore())
	ctx := context.Background()
	_, err := docs.Create(ctx, newDoc("d1", "owner", time.Now(), model.DocumentTypeOther))
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		dups int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := docs.AddShare(ctx, "d1", model.Share{Grantee: model.AccountSummary{ID: "g"}, SharedBy: "owner"})
			if errors.Is(err, repository.ErrDuplicate) {
				mu.Lock()
				dups++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	doc, err := docs.FindActiveByID(ctx, "d1")
	require.NoError(t, err)
	assert.Len(t, doc.SharedWith, 1)
	assert.Equal(t, 15, dups)
}
