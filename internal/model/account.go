package model

import "time"

// Relationship tags accepted for family links.
const (
	RelationshipParent  = "parent"
	RelationshipChild   = "child"
	RelationshipSpouse  = "spouse"
	RelationshipSibling = "sibling"
	RelationshipOther   = "other"
)

// Relationships lists every accepted relationship tag in display order.
var Relationships = []string{
	RelationshipParent,
	RelationshipChild,
	RelationshipSpouse,
	RelationshipSibling,
	RelationshipOther,
}

// Address is the postal address of an account holder.
type Address struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Pincode string `json:"pincode,omitempty"`
}

// OTP is a pending one-time verification code.
type OTP struct {
	Code      string
	ExpiresAt time.Time
}

// Valid reports whether code matches and is presented strictly before expiry.
func (o *OTP) Valid(code string, now time.Time) bool {
	if o == nil || o.Code == "" {
		return false
	}
	return o.Code == code && now.Before(o.ExpiresAt)
}

// Account is a registered identity. PasswordHash and OTP never leave the process.
type Account struct {
	ID            string         `json:"id"`
	FirstName     string         `json:"firstName"`
	LastName      string         `json:"lastName"`
	Email         string         `json:"email"`
	PhoneNumber   string         `json:"phoneNumber"`
	AadhaarNumber string         `json:"aadhaarNumber"`
	DateOfBirth   time.Time      `json:"dateOfBirth"`
	Address       Address        `json:"address"`
	PasswordHash  string         `json:"-"`
	IsVerified    bool           `json:"isVerified"`
	OTP           *OTP           `json:"-"`
	FamilyMembers []FamilyMember `json:"familyMembers"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// Summary returns the public projection of the account used when it is
// referenced from another record.
func (a *Account) Summary() AccountSummary {
	return AccountSummary{
		ID:        a.ID,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Email:     a.Email,
	}
}

// AccountSummary is the reduced view of an account embedded in documents,
// shares and family links.
type AccountSummary struct {
	ID            string `json:"id"`
	FirstName     string `json:"firstName,omitempty"`
	LastName      string `json:"lastName,omitempty"`
	Email         string `json:"email,omitempty"`
	AadhaarNumber string `json:"aadhaarNumber,omitempty"`
}

// FamilyPermissions are the flags attached to a family link.
type FamilyPermissions struct {
	CanView     bool `json:"canView"`
	CanDownload bool `json:"canDownload"`
}

// FamilyMember is a one-directional link from an account to another verified account.
type FamilyMember struct {
	Member       AccountSummary    `json:"userId"`
	Relationship string            `json:"relationshipType"`
	Permissions  FamilyPermissions `json:"permissions"`
	AddedAt      time.Time         `json:"addedAt"`
}

// ProfileUpdate carries the optional fields of a profile edit. Nil means unchanged.
type ProfileUpdate struct {
	FirstName   *string
	LastName    *string
	PhoneNumber *string
	Street      *string
	City        *string
	State       *string
	Pincode     *string
}
