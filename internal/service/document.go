package service

import (
	"bufio"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"familyvault/internal/access"
	"familyvault/internal/logger"
	"familyvault/internal/model"
	"familyvault/internal/repository"
	"familyvault/internal/storage"
	"familyvault/internal/validate"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 50

	// DefaultMaxUploadBytes is the upload limit used when none is configured.
	DefaultMaxUploadBytes = 10 << 20

	sniffLen = 512
)

// AllowedMimeTypes are the payload types accepted on upload.
var AllowedMimeTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"application/pdf": ".pdf",
}

// FileInput is the uploaded payload.
type FileInput struct {
	Reader       io.Reader
	FileName     string
	Size         int64
	DeclaredType string
}

// UploadInput is the metadata sent alongside an upload.
type UploadInput struct {
	Title          string   `json:"title" form:"title" validate:"required,min=1,max=100"`
	Description    string   `json:"description" form:"description" validate:"max=500"`
	DocumentType   string   `json:"documentType" form:"documentType" validate:"required,oneof=aadhaar pan passport drivinglicense marksheet certificate income medical insurance property other"`
	IssuedBy       string   `json:"issuedBy" form:"issuedBy" validate:"max=200"`
	IssueDate      string   `json:"issueDate" form:"issueDate" validate:"omitempty,isodate"`
	ExpiryDate     string   `json:"expiryDate" form:"expiryDate" validate:"omitempty,isodate"`
	DocumentNumber string   `json:"documentNumber" form:"documentNumber" validate:"max=100"`
	Tags           []string `json:"tags" form:"tags" validate:"max=20,dive,max=50"`
}

// UpdateInput holds optional metadata changes. Payload and document type cannot change.
type UpdateInput struct {
	Title          *string   `json:"title" validate:"omitempty,min=1,max=100"`
	Description    *string   `json:"description" validate:"omitempty,max=500"`
	IssuedBy       *string   `json:"issuedBy" validate:"omitempty,max=200"`
	IssueDate      *string   `json:"issueDate" validate:"omitempty,isodate"`
	ExpiryDate     *string   `json:"expiryDate" validate:"omitempty,isodate"`
	DocumentNumber *string   `json:"documentNumber" validate:"omitempty,max=100"`
	Tags           *[]string `json:"tags" validate:"omitempty,max=20,dive,max=50"`
}

// ListInput is the listing query. Nil page or limit take the defaults.
type ListInput struct {
	Type  string `json:"type" validate:"omitempty,oneof=aadhaar pan passport drivinglicense marksheet certificate income medical insurance property other"`
	Page  *int   `json:"page" validate:"omitempty,min=1"`
	Limit *int   `json:"limit" validate:"omitempty,min=1,max=50"`
}

// SharePermissionsInput holds optional grant flags; nil takes the default.
type SharePermissionsInput struct {
	CanView     *bool `json:"canView"`
	CanDownload *bool `json:"canDownload"`
	CanShare    *bool `json:"canShare"`
}

// ShareInput is the share request.
type ShareInput struct {
	UserEmail   string                 `json:"userEmail" validate:"required,email"`
	Permissions *SharePermissionsInput `json:"permissions"`
}

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items []model.Document
	Page  int
	Limit int
	Total int
}

// Pages is the number of pages of Limit items needed for Total documents.
func (r *DocumentListResult) Pages() int {
	if r.Limit <= 0 {
		return 0
	}
	return (r.Total + r.Limit - 1) / r.Limit
}

// Payload is an open document payload ready to stream.
type Payload struct {
	Body     io.ReadCloser
	FileName string
	MimeType string
	Size     int64
}

// DocumentService defines the use cases for handling documents.
type DocumentService interface {
	// Upload stores the payload in object storage, saves metadata to DB, and rolls back storage if DB save fails.
	Upload(ctx context.Context, actorID string, in UploadInput, file FileInput) (*model.Document, error)

	// List returns active documents owned by or shared with the actor, newest first.
	List(ctx context.Context, actorID string, in ListInput) (*DocumentListResult, error)

	// Get returns a visible document with its payload encoded in FileData.
	Get(ctx context.Context, actorID, id string) (*model.Document, error)

	// Download opens the payload of a visible document for the owner or a grantee with canDownload.
	Download(ctx context.Context, actorID, id string) (*Payload, error)

	// Update edits the metadata of an owned document.
	Update(ctx context.Context, actorID, id string, in UpdateInput) (*model.Document, error)

	// Delete soft-deletes an owned document.
	Delete(ctx context.Context, actorID, id string) error

	// Share grants a verified account, found by email, access to an owned document.
	Share(ctx context.Context, actorID, id string, in ShareInput) (*model.Document, error)
}

// DocumentDeps are the collaborators of the document service.
type DocumentDeps struct {
	Store          storage.Storage
	Documents      repository.DocumentRepository
	Accounts       repository.AccountRepository
	Validator      *validate.Validator
	Log            *zap.Logger
	MaxUploadBytes int64
	Now            func() time.Time
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	deps DocumentDeps
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(deps DocumentDeps) DocumentService {
	if deps.Validator == nil {
		deps.Validator = validate.New()
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	return &documentService{deps: deps}
}

func validID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidID
	}
	return nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func optionalDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := validate.ParseDate(s)
	if err != nil {
		return nil
	}
	return &t
}

// sniff detects the payload type from its first bytes and checks it against
// the declared type. The returned reader replays the sniffed bytes.
func sniff(file FileInput) (string, io.Reader, error) {
	br := bufio.NewReaderSize(file.Reader, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return "", nil, fmt.Errorf("read upload: %w", err)
	}
	if len(head) == 0 {
		return "", nil, ErrFileRequired
	}

	detected, _, _ := mime.ParseMediaType(http.DetectContentType(head))
	if _, ok := AllowedMimeTypes[detected]; !ok {
		return "", nil, ErrUnsupportedType
	}
	if file.DeclaredType != "" {
		declared, _, err := mime.ParseMediaType(file.DeclaredType)
		if err != nil {
			return "", nil, ErrUnsupportedType
		}
		if declared == "image/jpg" {
			declared = "image/jpeg"
		}
		if declared != detected && declared != "application/octet-stream" {
			return "", nil, ErrUnsupportedType
		}
	}
	return detected, br, nil
}

func (s *documentService) Upload(ctx context.Context, actorID string, in UploadInput, file FileInput) (*model.Document, error) {
	if file.Reader == nil {
		return nil, ErrFileRequired
	}
	if file.Size > s.deps.MaxUploadBytes {
		return nil, ErrFileTooLarge
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.DocumentType = strings.TrimSpace(in.DocumentType)
	in.IssuedBy = strings.TrimSpace(in.IssuedBy)
	in.DocumentNumber = strings.TrimSpace(in.DocumentNumber)
	in.Tags = normalizeTags(in.Tags)
	if err := invalid(s.deps.Validator.Struct(in)); err != nil {
		return nil, err
	}

	mimeType, body, err := sniff(file)
	if err != nil {
		return nil, err
	}

	owner, err := s.deps.Accounts.FindByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("find owner: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(file.FileName))
	if ext == "" {
		ext = AllowedMimeTypes[mimeType]
	}
	docID := uuid.NewString()
	key := storage.DocumentKey(owner.ID, docID, ext)

	size := file.Size
	if size <= 0 {
		size = -1
	}

	// Upload to object storage
	objInfo, err := s.deps.Store.Put(ctx, key, body, storage.PutObjectOptions{
		Size:        size,
		ContentType: mimeType,
		Metadata: map[string]string{
			"original-filename": file.FileName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	// Save metadata to database
	doc := &model.Document{
		ID:             docID,
		Title:          in.Title,
		Description:    in.Description,
		DocumentType:   in.DocumentType,
		FileName:       file.FileName,
		FileSize:       objInfo.Size,
		MimeType:       mimeType,
		StoragePath:    objInfo.Key,
		Owner:          owner.Summary(),
		IssuedBy:       in.IssuedBy,
		IssueDate:      optionalDate(in.IssueDate),
		ExpiryDate:     optionalDate(in.ExpiryDate),
		DocumentNumber: in.DocumentNumber,
		Tags:           in.Tags,
		SharedWith:     []model.Share{},
		CreatedAt:      s.deps.Now(),
	}
	stored, err := s.deps.Documents.Create(ctx, doc)
	if err != nil {
		// Rollback: delete the object from storage
		if delErr := s.deps.Store.Delete(ctx, key); delErr != nil {
			logger.FromContext(ctx, s.deps.Log).Error("upload_rollback_failed",
				zap.String("storage_key", key),
				zap.Error(delErr),
			)
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}
	return stored, nil
}

// List returns a page of visible documents without payloads.
func (s *documentService) List(ctx context.Context, actorID string, in ListInput) (*DocumentListResult, error) {
	in.Type = strings.TrimSpace(in.Type)
	if err := invalid(s.deps.Validator.Struct(in)); err != nil {
		return nil, err
	}

	page, limit := DefaultPage, DefaultLimit
	if in.Page != nil {
		page = *in.Page
	}
	if in.Limit != nil {
		limit = *in.Limit
	}

	res, err := s.deps.Documents.ListVisible(ctx,
		repository.DocumentFilter{ViewerID: actorID, DocumentType: in.Type},
		repository.PageQuery{Limit: limit, Offset: pageOffset(page, limit)},
	)
	if err != nil {
		return nil, err
	}
	for i := range res.Items {
		res.Items[i].FileData = ""
	}
	return &DocumentListResult{Items: res.Items, Page: page, Limit: limit, Total: res.Total}, nil
}

// pageOffset converts a 1-based page into a row offset. Pages too far out to
// address saturate at math.MaxInt, which yields an empty page.
func pageOffset(page, limit int) int {
	if page <= 1 || limit <= 0 {
		return 0
	}
	if page-1 > math.MaxInt/limit {
		return math.MaxInt
	}
	return (page - 1) * limit
}

// visible returns the document when actorID may see it. Absent, inactive and
// hidden documents are all reported as ErrNotFound.
func (s *documentService) visible(ctx context.Context, actorID, id string) (*model.Document, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	doc, err := s.deps.Documents.FindActiveByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !access.CanView(doc, actorID) {
		return nil, ErrNotFound
	}
	return doc, nil
}

// Get returns a document by ID, with its payload base64-encoded.
func (s *documentService) Get(ctx context.Context, actorID, id string) (*model.Document, error) {
	doc, err := s.visible(ctx, actorID, id)
	if err != nil {
		return nil, err
	}

	rc, _, err := s.deps.Store.Get(ctx, doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("read storage: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read storage: %w", err)
	}
	doc.FileData = base64.StdEncoding.EncodeToString(data)
	return doc, nil
}

func (s *documentService) Download(ctx context.Context, actorID, id string) (*Payload, error) {
	doc, err := s.visible(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if !access.CanDownload(doc, actorID) {
		return nil, ErrDownloadNotPermitted
	}

	rc, info, err := s.deps.Store.Get(ctx, doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("read storage: %w", err)
	}
	size := info.Size
	if size <= 0 {
		size = doc.FileSize
	}
	return &Payload{Body: rc, FileName: doc.FileName, MimeType: doc.MimeType, Size: size}, nil
}

func (s *documentService) Update(ctx context.Context, actorID, id string, in UpdateInput) (*model.Document, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	in.Title = trimPtr(in.Title)
	in.Description = trimPtr(in.Description)
	in.IssuedBy = trimPtr(in.IssuedBy)
	in.DocumentNumber = trimPtr(in.DocumentNumber)
	in.IssueDate = trimPtr(in.IssueDate)
	in.ExpiryDate = trimPtr(in.ExpiryDate)
	if in.Tags != nil {
		tags := normalizeTags(*in.Tags)
		in.Tags = &tags
	}
	if err := invalid(s.deps.Validator.Struct(in)); err != nil {
		return nil, err
	}

	upd := model.DocumentUpdate{
		Title:          in.Title,
		Description:    in.Description,
		IssuedBy:       in.IssuedBy,
		DocumentNumber: in.DocumentNumber,
		Tags:           in.Tags,
	}
	if in.IssueDate != nil && *in.IssueDate != "" {
		upd.IssueDate = optionalDate(*in.IssueDate)
	}
	if in.ExpiryDate != nil && *in.ExpiryDate != "" {
		upd.ExpiryDate = optionalDate(*in.ExpiryDate)
	}

	doc, err := s.deps.Documents.UpdateMetadata(ctx, id, actorID, upd)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	doc.FileData = ""
	return doc, nil
}

func (s *documentService) Delete(ctx context.Context, actorID, id string) error {
	if err := validID(id); err != nil {
		return err
	}
	if err := s.deps.Documents.Deactivate(ctx, id, actorID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *documentService) Share(ctx context.Context, actorID, id string, in ShareInput) (*model.Document, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	in.UserEmail = normalizeEmail(in.UserEmail)
	if err := invalid(s.deps.Validator.Struct(in)); err != nil {
		return nil, err
	}

	doc, err := s.deps.Documents.FindActiveByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !access.CanShare(doc, actorID) {
		return nil, ErrNotFound
	}

	target, err := s.deps.Accounts.FindVerifiedByEmail(ctx, in.UserEmail)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find grantee: %w", err)
	}
	if err := access.ValidateGrant(doc, target.ID); err != nil {
		return nil, err
	}

	perms := model.SharePermissions{CanView: true}
	if p := in.Permissions; p != nil {
		if p.CanView != nil {
			perms.CanView = *p.CanView
		}
		if p.CanDownload != nil {
			perms.CanDownload = *p.CanDownload
		}
		if p.CanShare != nil {
			perms.CanShare = *p.CanShare
		}
	}

	err = s.deps.Documents.AddShare(ctx, doc.ID, model.Share{
		Grantee:     target.Summary(),
		Permissions: perms,
		SharedAt:    s.deps.Now(),
		SharedBy:    actorID,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrDuplicateShare
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("add share: %w", err)
	}

	updated, err := s.deps.Documents.FindActiveByID(ctx, doc.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	updated.FileData = ""
	return updated, nil
}
