package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type address struct {
	Pincode string `json:"pincode" validate:"omitempty,pincode"`
}

type registration struct {
	FirstName   string  `json:"firstName" validate:"required,min=2,max=50"`
	Email       string  `json:"email" validate:"required,email"`
	Phone       string  `json:"phoneNumber" validate:"required,phone"`
	Aadhaar     string  `json:"aadhaarNumber" validate:"required,aadhaar"`
	DateOfBirth string  `json:"dateOfBirth" validate:"required,isodate"`
	Address     address `json:"address"`
	Kind        string  `json:"kind" validate:"omitempty,oneof=parent child"`
}

func valid() registration {
	return registration{
		FirstName:   "Asha",
		Email:       "asha@example.com",
		Phone:       "9876543210",
		Aadhaar:     "123456789012",
		DateOfBirth: "1990-05-01",
		Address:     address{Pincode: "411001"},
	}
}

func TestValidator_Struct(t *testing.T) {
	v := New()

	tests := []struct {
		name   string
		mutate func(r *registration)
		field  string
		msg    string
	}{
		{"short name", func(r *registration) { r.FirstName = "A" }, "firstName", "must be at least 2 characters"},
		{"bad email", func(r *registration) { r.Email = "nope" }, "email", "must be a valid email address"},
		{"phone starting with 5", func(r *registration) { r.Phone = "5876543210" }, "phoneNumber", "must be a valid 10-digit Indian mobile number"},
		{"phone too short", func(r *registration) { r.Phone = "987654321" }, "phoneNumber", "must be a valid 10-digit Indian mobile number"},
		{"aadhaar with letters", func(r *registration) { r.Aadhaar = "12345678901a" }, "aadhaarNumber", "must be a 12-digit Aadhaar number"},
		{"date not iso", func(r *registration) { r.DateOfBirth = "01/05/1990" }, "dateOfBirth", "must be an ISO 8601 date"},
		{"nested pincode", func(r *registration) { r.Address.Pincode = "4110" }, "address.pincode", "must be a 6-digit pincode"},
		{"oneof", func(r *registration) { r.Kind = "cousin" }, "kind", "must be one of: parent, child"},
		{"missing email", func(r *registration) { r.Email = "" }, "email", "is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(&r)

			fields := v.Struct(r)

			assert.Equal(t, tt.msg, fields[tt.field])
			assert.Len(t, fields, 1)
		})
	}
}

func TestValidator_StructValid(t *testing.T) {
	assert.Nil(t, New().Struct(valid()))
}

func TestValidator_Var(t *testing.T) {
	v := New()

	assert.Empty(t, v.Var("123456789012", "required,aadhaar"))
	assert.Equal(t, "must be a 12-digit Aadhaar number", v.Var("1234", "required,aadhaar"))
	assert.Equal(t, "is required", v.Var("", "required,aadhaar"))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	assert.NoError(t, err)
	assert.Equal(t, 29, d.Day())

	ts, err := ParseDate("2024-02-29T10:00:00+05:30")
	assert.NoError(t, err)
	assert.Equal(t, 4, ts.Hour())

	_, err = ParseDate("2023-02-29")
	assert.Error(t, err)
}
