package repository

import (
	"context"

	"familyvault/internal/model"
)

// DocumentFilter narrows a listing to the documents visible to ViewerID.
type DocumentFilter struct {
	ViewerID     string
	DocumentType string
}

// DocumentRepository defines data access for documents and their sharing lists.
// No business logic here, strictly persistence operations. Inactive documents
// are invisible to every method.
type DocumentRepository interface {
	// Create inserts a new document record and returns the stored record.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindActiveByID returns an active document with owner and sharing list populated.
	// ErrNotFound when absent or inactive.
	FindActiveByID(ctx context.Context, id string) (*model.Document, error)

	// ListVisible returns active documents owned by or shared with the viewer,
	// newest first, with a total count for the filter.
	ListVisible(ctx context.Context, f DocumentFilter, pq PageQuery) (*PageResult[model.Document], error)

	// UpdateMetadata applies the non-nil fields to an active document of ownerID.
	// ErrNotFound when there is no such document.
	UpdateMetadata(ctx context.Context, id, ownerID string, upd model.DocumentUpdate) (*model.Document, error)

	// Deactivate soft-deletes an active document of ownerID. ErrNotFound when there is no such document.
	Deactivate(ctx context.Context, id, ownerID string) error

	// AddShare appends a grant atomically. ErrDuplicate when the grantee is already present.
	AddShare(ctx context.Context, documentID string, share model.Share) error
}
