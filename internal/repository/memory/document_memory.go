package memory

import (
	"context"
	"sort"

	"familyvault/internal/model"
	"familyvault/internal/repository"
)

// DocumentMemory is an in-memory implementation of repository.DocumentRepository.
type DocumentMemory struct {
	s *Store
}

// NewDocumentMemory creates a document repository over s.
func NewDocumentMemory(s *Store) *DocumentMemory {
	return &DocumentMemory{s: s}
}

var _ repository.DocumentRepository = (*DocumentMemory)(nil)

func (r *DocumentMemory) Create(_ context.Context, doc *model.Document) (*model.Document, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.docs[doc.ID]; ok {
		return nil, repository.ErrDuplicate
	}

	stored := cloneDocument(doc)
	stored.IsActive = true
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = r.s.now()
	}
	stored.UpdatedAt = stored.CreatedAt
	r.s.docs[stored.ID] = stored
	return r.view(stored), nil
}

func (r *DocumentMemory) FindActiveByID(_ context.Context, id string) (*model.Document, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	d, ok := r.s.docs[id]
	if !ok || !d.IsActive {
		return nil, repository.ErrNotFound
	}
	return r.view(d), nil
}

func (r *DocumentMemory) ListVisible(_ context.Context, f repository.DocumentFilter, page repository.PageQuery) (*repository.PageResult[model.Document], error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := make([]*model.Document, 0)
	for _, d := range r.s.docs {
		if !d.IsActive {
			continue
		}
		if f.DocumentType != "" && d.DocumentType != f.DocumentType {
			continue
		}
		if _, shared := d.ShareFor(f.ViewerID); d.Owner.ID != f.ViewerID && !shared {
			continue
		}
		matched = append(matched, d)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	items := make([]model.Document, 0)
	for i := max(page.Offset, 0); i < len(matched) && len(items) < page.Limit; i++ {
		items = append(items, *r.view(matched[i]))
	}
	return &repository.PageResult[model.Document]{Items: items, Total: len(matched)}, nil
}

func (r *DocumentMemory) UpdateMetadata(_ context.Context, id, ownerID string, upd model.DocumentUpdate) (*model.Document, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, ok := r.s.docs[id]
	if !ok || !d.IsActive || d.Owner.ID != ownerID {
		return nil, repository.ErrNotFound
	}

	setIf(&d.Title, upd.Title)
	setIf(&d.Description, upd.Description)
	setIf(&d.IssuedBy, upd.IssuedBy)
	setIf(&d.DocumentNumber, upd.DocumentNumber)
	if upd.IssueDate != nil {
		v := *upd.IssueDate
		d.IssueDate = &v
	}
	if upd.ExpiryDate != nil {
		v := *upd.ExpiryDate
		d.ExpiryDate = &v
	}
	if upd.Tags != nil {
		d.Tags = append([]string{}, (*upd.Tags)...)
	}
	d.UpdatedAt = r.s.now()
	return r.view(d), nil
}

func (r *DocumentMemory) Deactivate(_ context.Context, id, ownerID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, ok := r.s.docs[id]
	if !ok || !d.IsActive || d.Owner.ID != ownerID {
		return repository.ErrNotFound
	}
	d.IsActive = false
	d.UpdatedAt = r.s.now()
	return nil
}

func (r *DocumentMemory) AddShare(_ context.Context, documentID string, share model.Share) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, ok := r.s.docs[documentID]
	if !ok || !d.IsActive {
		return repository.ErrNotFound
	}
	if _, exists := d.ShareFor(share.Grantee.ID); exists {
		return repository.ErrDuplicate
	}
	d.SharedWith = append(d.SharedWith, share)
	return nil
}

// view returns a copy of d with owner and grantee summaries refreshed from
// the account table. Callers hold the lock.
func (r *DocumentMemory) view(d *model.Document) *model.Document {
	out := cloneDocument(d)
	if a, ok := r.s.accounts[out.Owner.ID]; ok {
		out.Owner = a.Summary()
	}
	for i := range out.SharedWith {
		if a, ok := r.s.accounts[out.SharedWith[i].Grantee.ID]; ok {
			out.SharedWith[i].Grantee = a.Summary()
		}
	}
	return out
}
