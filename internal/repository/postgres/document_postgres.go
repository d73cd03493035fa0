package postgres

import (
	"context"
	"database/sql"
	"time"

	"familyvault/internal/model"
	"familyvault/internal/repository"

	"github.com/lib/pq"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const documentSelect = `
	SELECT d.id, d.title, d.description, d.document_type, d.file_name, d.file_size, d.mime_type,
		d.storage_path, d.issued_by, d.issue_date, d.expiry_date, d.document_number, d.tags,
		d.is_active, d.is_verified, d.verified_by, d.verified_at, d.verification_method,
		d.created_at, d.updated_at, o.id, o.first_name, o.last_name, o.email
	FROM documents d
	JOIN accounts o ON o.id = d.owner_id
`

// visibleWhere matches active documents owned by or shared with $1,
// optionally narrowed to document type $2.
const visibleWhere = `
	WHERE d.is_active = true
		AND (d.owner_id = $1 OR EXISTS (
			SELECT 1 FROM document_shares s WHERE s.document_id = d.id AND s.grantee_id = $1
		))
		AND ($2::text = '' OR d.document_type = $2::text)
`

func scanDocument(row rowScanner) (*model.Document, error) {
	var (
		d          model.Document
		issueDate  sql.NullTime
		expiryDate sql.NullTime
		verifiedAt sql.NullTime
	)
	if err := row.Scan(
		&d.ID,
		&d.Title,
		&d.Description,
		&d.DocumentType,
		&d.FileName,
		&d.FileSize,
		&d.MimeType,
		&d.StoragePath,
		&d.IssuedBy,
		&issueDate,
		&expiryDate,
		&d.DocumentNumber,
		pq.Array(&d.Tags),
		&d.IsActive,
		&d.Verification.IsVerified,
		&d.Verification.VerifiedBy,
		&verifiedAt,
		&d.Verification.VerificationMethod,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.Owner.ID,
		&d.Owner.FirstName,
		&d.Owner.LastName,
		&d.Owner.Email,
	); err != nil {
		return nil, translate(err)
	}
	d.IssueDate = nullTimePtr(issueDate)
	d.ExpiryDate = nullTimePtr(expiryDate)
	d.Verification.VerifiedAt = nullTimePtr(verifiedAt)
	if d.Tags == nil {
		d.Tags = []string{}
	}
	d.SharedWith = []model.Share{}
	return &d, nil
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// Create inserts a new document record and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO documents (id, owner_id, title, description, document_type, file_name, file_size,
			mime_type, storage_path, issued_by, issue_date, expiry_date, document_number, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)
		RETURNING id, created_at, updated_at
	`
	tags := doc.Tags
	if tags == nil {
		tags = []string{}
	}

	out := *doc
	err := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.Owner.ID,
		doc.Title,
		doc.Description,
		doc.DocumentType,
		doc.FileName,
		doc.FileSize,
		doc.MimeType,
		doc.StoragePath,
		doc.IssuedBy,
		doc.IssueDate,
		doc.ExpiryDate,
		doc.DocumentNumber,
		pq.Array(tags),
		doc.CreatedAt,
	).Scan(&out.ID, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}

	out.Tags = tags
	out.IsActive = true
	if out.SharedWith == nil {
		out.SharedWith = []model.Share{}
	}
	return &out, nil
}

// FindActiveByID returns an active document with its owner and sharing list.
func (r *DocumentPostgres) FindActiveByID(ctx context.Context, id string) (*model.Document, error) {
	q := documentSelect + ` WHERE d.id = $1 AND d.is_active = true`

	doc, err := scanDocument(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, err
	}

	shares, err := r.loadShares(ctx, []string{doc.ID})
	if err != nil {
		return nil, err
	}
	doc.SharedWith = sharesOrEmpty(shares[doc.ID])
	return doc, nil
}

// ListVisible returns a page of active documents owned by or shared with the viewer.
func (r *DocumentPostgres) ListVisible(ctx context.Context, f repository.DocumentFilter, page repository.PageQuery) (*repository.PageResult[model.Document], error) {
	var total int
	countQ := `SELECT COUNT(*) FROM documents d ` + visibleWhere
	if err := r.db.QueryRowContext(ctx, countQ, f.ViewerID, f.DocumentType).Scan(&total); err != nil {
		return nil, err
	}

	listQ := documentSelect + visibleWhere + `
		ORDER BY d.created_at DESC, d.id DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.QueryContext(ctx, listQ, f.ViewerID, f.DocumentType, page.Limit, max(page.Offset, 0))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(docs) > 0 {
		ids := make([]string, len(docs))
		for i := range docs {
			ids[i] = docs[i].ID
		}
		shares, err := r.loadShares(ctx, ids)
		if err != nil {
			return nil, err
		}
		for i := range docs {
			docs[i].SharedWith = sharesOrEmpty(shares[docs[i].ID])
		}
	}

	return &repository.PageResult[model.Document]{Items: docs, Total: total}, nil
}

// UpdateMetadata applies the non-nil fields in a single conditional statement.
func (r *DocumentPostgres) UpdateMetadata(ctx context.Context, id, ownerID string, upd model.DocumentUpdate) (*model.Document, error) {
	const q = `
		UPDATE documents SET
			title           = COALESCE($3::text, title),
			description     = COALESCE($4::text, description),
			issued_by       = COALESCE($5::text, issued_by),
			issue_date      = COALESCE($6::date, issue_date),
			expiry_date     = COALESCE($7::date, expiry_date),
			document_number = COALESCE($8::text, document_number),
			tags            = COALESCE($9::text[], tags),
			updated_at      = now()
		WHERE id = $1 AND owner_id = $2 AND is_active = true
		RETURNING id
	`
	var tags any
	if upd.Tags != nil {
		t := *upd.Tags
		if t == nil {
			t = []string{}
		}
		tags = pq.Array(t)
	}

	var updatedID string
	err := r.db.QueryRowContext(ctx, q,
		id,
		ownerID,
		upd.Title,
		upd.Description,
		upd.IssuedBy,
		upd.IssueDate,
		upd.ExpiryDate,
		upd.DocumentNumber,
		tags,
	).Scan(&updatedID)
	if err != nil {
		return nil, translate(err)
	}

	return r.FindActiveByID(ctx, updatedID)
}

// Deactivate marks an active document of ownerID as inactive.
func (r *DocumentPostgres) Deactivate(ctx context.Context, id, ownerID string) error {
	const q = `
		UPDATE documents SET is_active = false, updated_at = now()
		WHERE id = $1 AND owner_id = $2 AND is_active = true
	`
	res, err := r.db.ExecContext(ctx, q, id, ownerID)
	if err != nil {
		return err
	}
	return expectOne(res, repository.ErrNotFound)
}

// AddShare inserts the grant; the primary key on (document_id, grantee_id)
// makes the duplicate check and the append one atomic step.
func (r *DocumentPostgres) AddShare(ctx context.Context, documentID string, share model.Share) error {
	const q = `
		INSERT INTO document_shares (document_id, grantee_id, can_view, can_download, can_share, shared_at, shared_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (document_id, grantee_id) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, q,
		documentID,
		share.Grantee.ID,
		share.Permissions.CanView,
		share.Permissions.CanDownload,
		share.Permissions.CanShare,
		share.SharedAt,
		share.SharedBy,
	)
	if err != nil {
		return translate(err)
	}
	return expectOne(res, repository.ErrDuplicate)
}

func (r *DocumentPostgres) loadShares(ctx context.Context, documentIDs []string) (map[string][]model.Share, error) {
	const q = `
		SELECT s.document_id, a.id, a.first_name, a.last_name, a.email,
			s.can_view, s.can_download, s.can_share, s.shared_at, s.shared_by
		FROM document_shares s
		JOIN accounts a ON a.id = s.grantee_id
		WHERE s.document_id = ANY($1)
		ORDER BY s.shared_at, a.id
	`
	rows, err := r.db.QueryContext(ctx, q, pq.Array(documentIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]model.Share, len(documentIDs))
	for rows.Next() {
		var (
			docID string
			s     model.Share
		)
		if err := rows.Scan(
			&docID,
			&s.Grantee.ID,
			&s.Grantee.FirstName,
			&s.Grantee.LastName,
			&s.Grantee.Email,
			&s.Permissions.CanView,
			&s.Permissions.CanDownload,
			&s.Permissions.CanShare,
			&s.SharedAt,
			&s.SharedBy,
		); err != nil {
			return nil, err
		}
		out[docID] = append(out[docID], s)
	}
	return out, rows.Err()
}

func sharesOrEmpty(s []model.Share) []model.Share {
	if s == nil {
		return []model.Share{}
	}
	return s
}
