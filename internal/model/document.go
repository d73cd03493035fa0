package model

import "time"

// Document types accepted on upload and as a list filter.
const (
	DocumentTypeAadhaar        = "aadhaar"
	DocumentTypePAN            = "pan"
	DocumentTypePassport       = "passport"
	DocumentTypeDrivingLicense = "drivinglicense"
	DocumentTypeMarksheet      = "marksheet"
	DocumentTypeCertificate    = "certificate"
	DocumentTypeIncome         = "income"
	DocumentTypeMedical        = "medical"
	DocumentTypeInsurance      = "insurance"
	DocumentTypeProperty       = "property"
	DocumentTypeOther          = "other"
)

// DocumentTypes lists every accepted document type tag.
var DocumentTypes = []string{
	DocumentTypeAadhaar,
	DocumentTypePAN,
	DocumentTypePassport,
	DocumentTypeDrivingLicense,
	DocumentTypeMarksheet,
	DocumentTypeCertificate,
	DocumentTypeIncome,
	DocumentTypeMedical,
	DocumentTypeInsurance,
	DocumentTypeProperty,
	DocumentTypeOther,
}

// IsDocumentType reports whether t is one of DocumentTypes.
func IsDocumentType(t string) bool {
	for _, v := range DocumentTypes {
		if v == t {
			return true
		}
	}
	return false
}

// SharePermissions are the flags granted to a grantee of a document.
type SharePermissions struct {
	CanView     bool `json:"canView"`
	CanDownload bool `json:"canDownload"`
	CanShare    bool `json:"canShare"`
}

// Share is one entry of a document's sharing list.
type Share struct {
	Grantee     AccountSummary   `json:"userId"`
	Permissions SharePermissions `json:"permissions"`
	SharedAt    time.Time        `json:"sharedAt"`
	SharedBy    string           `json:"sharedBy"`
}

// Verification is the optional verification stamp of a document. It is
// recorded and returned but not consulted by any access decision.
type Verification struct {
	IsVerified         bool       `json:"isVerified"`
	VerifiedBy         string     `json:"verifiedBy,omitempty"`
	VerifiedAt         *time.Time `json:"verifiedAt,omitempty"`
	VerificationMethod string     `json:"verificationMethod,omitempty"`
}

// Document is a stored personal document together with its sharing list.
// StoragePath points at the payload in object storage; FileData is only
// filled by the single-document fetch.
type Document struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Description    string         `json:"description,omitempty"`
	DocumentType   string         `json:"documentType"`
	FileName       string         `json:"fileName"`
	FileSize       int64          `json:"fileSize"`
	MimeType       string         `json:"mimeType"`
	StoragePath    string         `json:"-"`
	FileData       string         `json:"fileData,omitempty"`
	Owner          AccountSummary `json:"owner"`
	IssuedBy       string         `json:"issuedBy,omitempty"`
	IssueDate      *time.Time     `json:"issueDate,omitempty"`
	ExpiryDate     *time.Time     `json:"expiryDate,omitempty"`
	DocumentNumber string         `json:"documentNumber,omitempty"`
	SharedWith     []Share        `json:"sharedWith"`
	Tags           []string       `json:"tags"`
	IsActive       bool           `json:"isActive"`
	Verification   Verification   `json:"verification"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// ShareFor returns the sharing entry of accountID, if any.
func (d *Document) ShareFor(accountID string) (Share, bool) {
	for _, s := range d.SharedWith {
		if s.Grantee.ID == accountID {
			return s, true
		}
	}
	return Share{}, false
}

// DocumentUpdate carries the optional metadata fields of an edit. Nil means unchanged.
type DocumentUpdate struct {
	Title          *string
	Description    *string
	IssuedBy       *string
	IssueDate      *time.Time
	ExpiryDate     *time.Time
	DocumentNumber *string
	Tags           *[]string
}
