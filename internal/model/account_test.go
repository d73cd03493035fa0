package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOTP_Valid(t *testing.T) {
	issued := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	code := &OTP{Code: "123456", ExpiresAt: issued.Add(10 * time.Minute)}

	tests := []struct {
		name string
		otp  *OTP
		in   string
		at   time.Time
		want bool
	}{
		{"at issuance", code, "123456", issued, true},
		{"one second before expiry", code, "123456", issued.Add(10*time.Minute - time.Second), true},
		{"exactly at expiry", code, "123456", issued.Add(10 * time.Minute), false},
		{"after expiry", code, "123456", issued.Add(time.Hour), false},
		{"wrong code", code, "654321", issued, false},
		{"no pending code", nil, "123456", issued, false},
		{"cleared code", &OTP{}, "", issued, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.otp.Valid(tt.in, tt.at))
		})
	}
}

func TestDocument_ShareFor(t *testing.T) {
	doc := Document{SharedWith: []Share{
		{Grantee: AccountSummary{ID: "a"}, Permissions: SharePermissions{CanView: true}},
		{Grantee: AccountSummary{ID: "b"}, Permissions: SharePermissions{CanView: true, CanDownload: true}},
	}}

	s, ok := doc.ShareFor("b")
	assert.True(t, ok)
	assert.True(t, s.Permissions.CanDownload)

	_, ok = doc.ShareFor("c")
	assert.False(t, ok)
}

func TestIsDocumentType(t *testing.T) {
	assert.True(t, IsDocumentType("drivinglicense"))
	assert.False(t, IsDocumentType("driving_license"))
	assert.False(t, IsDocumentType(""))
}
