package postgres

import (
	"context"
	"database/sql"
	"time"

	"familyvault/internal/model"
	"familyvault/internal/repository"
)

// AccountPostgres is a PostgreSQL implementation of repository.AccountRepository.
type AccountPostgres struct {
	db *sql.DB
}

// NewAccountPostgres creates a new AccountPostgres repository.
func NewAccountPostgres(db *sql.DB) *AccountPostgres {
	return &AccountPostgres{db: db}
}

var _ repository.AccountRepository = (*AccountPostgres)(nil)

const accountColumns = `id, first_name, last_name, email, phone_number, aadhaar_number, date_of_birth,
		street, city, state, pincode, password_hash, is_verified, otp_code, otp_expires_at, created_at, updated_at`

func scanAccount(row rowScanner) (*model.Account, error) {
	var (
		a         model.Account
		otpCode   sql.NullString
		otpExpiry sql.NullTime
	)
	if err := row.Scan(
		&a.ID,
		&a.FirstName,
		&a.LastName,
		&a.Email,
		&a.PhoneNumber,
		&a.AadhaarNumber,
		&a.DateOfBirth,
		&a.Address.Street,
		&a.Address.City,
		&a.Address.State,
		&a.Address.Pincode,
		&a.PasswordHash,
		&a.IsVerified,
		&otpCode,
		&otpExpiry,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, translate(err)
	}
	if otpCode.Valid {
		a.OTP = &model.OTP{Code: otpCode.String, ExpiresAt: otpExpiry.Time}
	}
	a.FamilyMembers = []model.FamilyMember{}
	return &a, nil
}

// Create inserts a new account row and returns the stored record.
func (r *AccountPostgres) Create(ctx context.Context, acc *model.Account) (*model.Account, error) {
	const q = `
		INSERT INTO accounts (id, first_name, last_name, email, phone_number, aadhaar_number, date_of_birth,
			street, city, state, pincode, password_hash, is_verified, otp_code, otp_expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, false, $13, $14, $15, $15)
		RETURNING ` + accountColumns

	var (
		code    sql.NullString
		expires sql.NullTime
	)
	if acc.OTP != nil {
		code = sql.NullString{String: acc.OTP.Code, Valid: true}
		expires = sql.NullTime{Time: acc.OTP.ExpiresAt, Valid: true}
	}

	row := r.db.QueryRowContext(ctx, q,
		acc.ID,
		acc.FirstName,
		acc.LastName,
		acc.Email,
		acc.PhoneNumber,
		acc.AadhaarNumber,
		acc.DateOfBirth,
		acc.Address.Street,
		acc.Address.City,
		acc.Address.State,
		acc.Address.Pincode,
		acc.PasswordHash,
		code,
		expires,
		acc.CreatedAt,
	)
	return scanAccount(row)
}

// ExistsByIdentity reports whether any of the identity attributes is already registered.
func (r *AccountPostgres) ExistsByIdentity(ctx context.Context, email, phone, aadhaar string) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM accounts
			WHERE email = $1 OR phone_number = $2 OR aadhaar_number = $3
		)
	`
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, email, phone, aadhaar).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// FindByID fetches a single account by its ID.
func (r *AccountPostgres) FindByID(ctx context.Context, id string) (*model.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.db.QueryRowContext(ctx, q, id))
}

// FindByEmail fetches a single account by email.
func (r *AccountPostgres) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return scanAccount(r.db.QueryRowContext(ctx, q, email))
}

// FindVerifiedByEmail fetches a verified account by email.
func (r *AccountPostgres) FindVerifiedByEmail(ctx context.Context, email string) (*model.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1 AND is_verified = true`
	return scanAccount(r.db.QueryRowContext(ctx, q, email))
}

// FindVerifiedByAadhaar fetches a verified account by Aadhaar number.
func (r *AccountPostgres) FindVerifiedByAadhaar(ctx context.Context, aadhaar string) (*model.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE aadhaar_number = $1 AND is_verified = true`
	return scanAccount(r.db.QueryRowContext(ctx, q, aadhaar))
}

// SetOTP overwrites the pending code of an unverified account.
func (r *AccountPostgres) SetOTP(ctx context.Context, id string, code string, expiresAt time.Time) error {
	const q = `
		UPDATE accounts
		SET otp_code = $2, otp_expires_at = $3, updated_at = now()
		WHERE id = $1 AND is_verified = false
	`
	res, err := r.db.ExecContext(ctx, q, id, code, expiresAt)
	if err != nil {
		return err
	}
	return expectOne(res, repository.ErrNotFound)
}

// MarkVerified is a conditional update so that an account is verified at most
// once and only with the code currently stored for it.
func (r *AccountPostgres) MarkVerified(ctx context.Context, id, code string, now time.Time) error {
	const q = `
		UPDATE accounts
		SET is_verified = true, otp_code = NULL, otp_expires_at = NULL, updated_at = now()
		WHERE id = $1 AND is_verified = false AND otp_code = $2 AND otp_expires_at > $3
	`
	res, err := r.db.ExecContext(ctx, q, id, code, now)
	if err != nil {
		return err
	}
	return expectOne(res, repository.ErrNotFound)
}

// UpdateProfile applies the non-nil fields of upd and returns the stored record.
func (r *AccountPostgres) UpdateProfile(ctx context.Context, id string, upd model.ProfileUpdate) (*model.Account, error) {
	const q = `
		UPDATE accounts SET
			first_name   = COALESCE($2::text, first_name),
			last_name    = COALESCE($3::text, last_name),
			phone_number = COALESCE($4::text, phone_number),
			street       = COALESCE($5::text, street),
			city         = COALESCE($6::text, city),
			state        = COALESCE($7::text, state),
			pincode      = COALESCE($8::text, pincode),
			updated_at   = now()
		WHERE id = $1
		RETURNING ` + accountColumns

	row := r.db.QueryRowContext(ctx, q,
		id,
		upd.FirstName,
		upd.LastName,
		upd.PhoneNumber,
		upd.Street,
		upd.City,
		upd.State,
		upd.Pincode,
	)
	return scanAccount(row)
}

// AddFamilyMember inserts the link; an existing (account, member) pair yields ErrDuplicate.
func (r *AccountPostgres) AddFamilyMember(ctx context.Context, accountID string, link model.FamilyMember) error {
	const q = `
		INSERT INTO family_members (account_id, member_id, relationship, can_view, can_download, added_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (account_id, member_id) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, q,
		accountID,
		link.Member.ID,
		link.Relationship,
		link.Permissions.CanView,
		link.Permissions.CanDownload,
		link.AddedAt,
	)
	if err != nil {
		return translate(err)
	}
	return expectOne(res, repository.ErrDuplicate)
}

// ListFamilyMembers returns the links of accountID with member summaries populated.
func (r *AccountPostgres) ListFamilyMembers(ctx context.Context, accountID string) ([]model.FamilyMember, error) {
	const q = `
		SELECT a.id, a.first_name, a.last_name, a.email, a.aadhaar_number,
			f.relationship, f.can_view, f.can_download, f.added_at
		FROM family_members f
		JOIN accounts a ON a.id = f.member_id
		WHERE f.account_id = $1
		ORDER BY f.added_at, a.id
	`
	rows, err := r.db.QueryContext(ctx, q, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]model.FamilyMember, 0)
	for rows.Next() {
		var m model.FamilyMember
		if err := rows.Scan(
			&m.Member.ID,
			&m.Member.FirstName,
			&m.Member.LastName,
			&m.Member.Email,
			&m.Member.AadhaarNumber,
			&m.Relationship,
			&m.Permissions.CanView,
			&m.Permissions.CanDownload,
			&m.AddedAt,
		); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return members, nil
}
