package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type migrationStep struct {
	Name string
	SQL  string
}

// sentinelTable is the table whose presence marks the schema as applied.
const sentinelTable = "public.document_shares"

var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_accounts",
		SQL: `CREATE TABLE IF NOT EXISTS accounts (
  id              UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  first_name      TEXT        NOT NULL,
  last_name       TEXT        NOT NULL,
  email           TEXT        NOT NULL UNIQUE,
  phone_number    TEXT        NOT NULL UNIQUE CHECK (phone_number ~ '^[6-9][0-9]{9}$'),
  aadhaar_number  TEXT        NOT NULL UNIQUE CHECK (aadhaar_number ~ '^[0-9]{12}$'),
  date_of_birth   DATE        NOT NULL,
  street          TEXT        NOT NULL DEFAULT '',
  city            TEXT        NOT NULL DEFAULT '',
  state           TEXT        NOT NULL DEFAULT '',
  pincode         TEXT        NOT NULL DEFAULT '',
  password_hash   TEXT        NOT NULL,
  is_verified     BOOLEAN     NOT NULL DEFAULT false,
  otp_code        TEXT,
  otp_expires_at  TIMESTAMPTZ,
  created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_family_members",
		SQL: `CREATE TABLE IF NOT EXISTS family_members (
  account_id    UUID        NOT NULL REFERENCES accounts (id),
  member_id     UUID        NOT NULL REFERENCES accounts (id),
  relationship  TEXT        NOT NULL CHECK (relationship IN ('parent','child','spouse','sibling','other')),
  can_view      BOOLEAN     NOT NULL DEFAULT true,
  can_download  BOOLEAN     NOT NULL DEFAULT false,
  added_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
  PRIMARY KEY (account_id, member_id),
  CHECK (account_id <> member_id)
);`,
	},
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id                   UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  owner_id             UUID        NOT NULL REFERENCES accounts (id),
  title                TEXT        NOT NULL,
  description          TEXT        NOT NULL DEFAULT '',
  document_type        TEXT        NOT NULL,
  file_name            TEXT        NOT NULL,
  file_size            BIGINT      NOT NULL CHECK (file_size >= 0),
  mime_type            TEXT        NOT NULL,
  storage_path         TEXT        NOT NULL UNIQUE,
  issued_by            TEXT        NOT NULL DEFAULT '',
  issue_date           DATE,
  expiry_date          DATE,
  document_number      TEXT        NOT NULL DEFAULT '',
  tags                 TEXT[]      NOT NULL DEFAULT '{}',
  is_active            BOOLEAN     NOT NULL DEFAULT true,
  is_verified          BOOLEAN     NOT NULL DEFAULT false,
  verified_by          TEXT        NOT NULL DEFAULT '',
  verified_at          TIMESTAMPTZ,
  verification_method  TEXT        NOT NULL DEFAULT '',
  created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_documents_owner_type",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_owner_type ON documents (owner_id, document_type);`,
	},
	{
		Name: "create_index_documents_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents (created_at DESC);`,
	},
	{
		Name: "create_index_documents_tags",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_tags ON documents USING GIN (tags);`,
	},
	{
		Name: "create_table_document_shares",
		SQL: `CREATE TABLE IF NOT EXISTS document_shares (
  document_id   UUID        NOT NULL REFERENCES documents (id),
  grantee_id    UUID        NOT NULL REFERENCES accounts (id),
  can_view      BOOLEAN     NOT NULL DEFAULT true,
  can_download  BOOLEAN     NOT NULL DEFAULT false,
  can_share     BOOLEAN     NOT NULL DEFAULT false,
  shared_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
  shared_by     UUID        NOT NULL REFERENCES accounts (id),
  PRIMARY KEY (document_id, grantee_id)
);`,
	},
	{
		Name: "create_index_document_shares_grantee",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_document_shares_grantee ON document_shares (grantee_id);`,
	},
}

// EnsureMigrated applies the schema unless the sentinel table already exists.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *zap.Logger, dbHost string) error {
	start := time.Now()
	log = log.With(zap.String("component", "database"), zap.String("db_host", dbHost))

	log.Info("db_migration_check", zap.String("status", "starting"))

	var exists bool
	query := "SELECT to_regclass($1) IS NOT NULL"
	if err := db.QueryRowContext(ctx, query, sentinelTable).Scan(&exists); err != nil {
		log.Error("db_migration_failed",
			zap.String("status", "error"),
			zap.Error(err),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info("db_migration_skip",
			zap.String("status", "success"),
			zap.String("reason", "schema already exists"),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return nil
	}

	log.Info("db_migration_start", zap.String("status", "in_progress"), zap.Int("steps", len(steps)))

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("db_migration_failed",
				zap.String("status", "error"),
				zap.String("migration_step", step.Name),
				zap.Error(err),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.Int64("step_duration_ms", time.Since(stepStart).Milliseconds()),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Debug("db_migration_step",
			zap.String("status", "success"),
			zap.String("migration_step", step.Name),
			zap.Int64("step_duration_ms", time.Since(stepStart).Milliseconds()),
		)
	}

	log.Info("db_migration_success",
		zap.String("status", "success"),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	return nil
}
