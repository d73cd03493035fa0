// Package access decides what an account may do with a document, based only
// on the owner field and the sharing list. Grants are not transitive and
// family links confer nothing on their own.
package access

import (
	"errors"

	"familyvault/internal/model"
)

var (
	ErrSelfShare      = errors.New("cannot share a document with its owner")
	ErrDuplicateShare = errors.New("document already shared with this account")
)

// IsOwner reports whether accountID owns doc.
func IsOwner(doc *model.Document, accountID string) bool {
	return doc != nil && accountID != "" && doc.Owner.ID == accountID
}

// CanView reports whether accountID may see doc. Callers surface a false
// result as not-found so that existence is not disclosed.
func CanView(doc *model.Document, accountID string) bool {
	if IsOwner(doc, accountID) {
		return true
	}
	if doc == nil {
		return false
	}
	_, ok := doc.ShareFor(accountID)
	return ok
}

// CanMutate reports whether accountID may edit or deactivate doc.
func CanMutate(doc *model.Document, accountID string) bool {
	return IsOwner(doc, accountID)
}

// CanDownload reports whether accountID may fetch the raw payload of doc.
func CanDownload(doc *model.Document, accountID string) bool {
	if IsOwner(doc, accountID) {
		return true
	}
	if doc == nil {
		return false
	}
	s, ok := doc.ShareFor(accountID)
	return ok && s.Permissions.CanDownload
}

// CanShare reports whether accountID may grant access to doc. The canShare
// flag on a grant is recorded but does not confer this right.
func CanShare(doc *model.Document, accountID string) bool {
	return IsOwner(doc, accountID)
}

// ValidateGrant checks a prospective grantee against doc's current state.
func ValidateGrant(doc *model.Document, granteeID string) error {
	if IsOwner(doc, granteeID) {
		return ErrSelfShare
	}
	if _, ok := doc.ShareFor(granteeID); ok {
		return ErrDuplicateShare
	}
	return nil
}
