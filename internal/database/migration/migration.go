package migration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_users",
		SQL: `CREATE TABLE IF NOT EXISTS users (
  id            UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  email         TEXT        NOT NULL,
  password_hash TEXT        NOT NULL,
  display_name  TEXT,
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_unique_index_users_email",
		SQL:  `CREATE UNIQUE INDEX IF NOT EXISTS uniq_users_email ON users (LOWER(email));`,
	},
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id            UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  owner_user_id UUID        NOT NULL REFERENCES users (id),
  filename      TEXT        NOT NULL,
  storage_path  TEXT        NOT NULL UNIQUE,
  size          BIGINT      NOT NULL CHECK (size >= 0),
  content_type  TEXT        NOT NULL,
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_documents_owner",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_owner ON documents (owner_user_id);`,
	},
	{
		Name: "create_table_shares",
		SQL: `CREATE TABLE IF NOT EXISTS shares (
  id            UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  share_token   TEXT        NOT NULL UNIQUE,
  document_id   UUID        NOT NULL REFERENCES documents (id) ON DELETE CASCADE,
  from_user_id  UUID        NOT NULL REFERENCES users (id),
  to_user_id    UUID        REFERENCES users (id),
  to_user_email TEXT,
  recipient_key TEXT        NOT NULL DEFAULT '',
  access        TEXT        NOT NULL CHECK (access IN ('public', 'private')),
  expiry_time   TIMESTAMPTZ,
  is_revoked    BOOLEAN     NOT NULL DEFAULT FALSE,
  revoked_at    TIMESTAMPTZ,
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
  CHECK (to_user_id IS NULL OR to_user_email IS NULL)
);`,
	},
	{
		// Active-share idempotency guard. Expiry cannot appear in an index
		// predicate, so expired-but-unrevoked rows are revoked by the create
		// transaction before their slot is reused.
		Name: "create_unique_index_shares_active_tuple",
		SQL: `CREATE UNIQUE INDEX IF NOT EXISTS uniq_shares_active
  ON shares (document_id, from_user_id, recipient_key, access)
  WHERE NOT is_revoked;`,
	},
	{
		Name: "create_index_shares_pending_email",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_shares_pending_email ON shares (LOWER(to_user_email)) WHERE to_user_id IS NULL;`,
	},
	{
		Name: "create_table_otp_verifications",
		SQL: `CREATE TABLE IF NOT EXISTS otp_verifications (
  id          UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  user_id     UUID        NOT NULL REFERENCES users (id),
  share_id    UUID        NOT NULL REFERENCES shares (id) ON DELETE CASCADE,
  otp_code    TEXT        NOT NULL,
  expiry_time TIMESTAMPTZ NOT NULL,
  is_verified BOOLEAN     NOT NULL DEFAULT FALSE,
  created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_otp_pair_recency",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_otp_pair_recency ON otp_verifications (user_id, share_id, created_at DESC);`,
	},
	{
		Name: "create_table_access_logs",
		SQL: `CREATE TABLE IF NOT EXISTS access_logs (
  id             UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  share_id       UUID        REFERENCES shares (id) ON DELETE SET NULL,
  document_id    UUID        NOT NULL,
  viewer_user_id UUID,
  action         TEXT        NOT NULL,
  meta           TEXT,
  created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_access_logs_document",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_access_logs_document ON access_logs (document_id, created_at);`,
	},
}

// EnsureMigrated checks if the 'shares' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, loc *time.Location, dbHost string) error {
	start := time.Now()

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_check",
		"status":    "starting",
		"db_host":   dbHost,
	})

	var exists bool
	query := "SELECT to_regclass('public.shares') IS NOT NULL"
	err := db.QueryRowContext(ctx, query).Scan(&exists)
	if err != nil {
		logJSON(loc, map[string]any{
			"component":     "database",
			"event":         "db_migration_failed",
			"status":        "error",
			"error_message": fmt.Sprintf("failed to check sentinel table: %v", err),
			"db_host":       dbHost,
			"duration_ms":   time.Since(start).Milliseconds(),
		})
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		logJSON(loc, map[string]any{
			"component":   "database",
			"event":       "db_migration_skip",
			"status":      "success",
			"msg":         "schema already exists, skipping migration",
			"db_host":     dbHost,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil
	}

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_start",
		"status":    "in_progress",
		"db_host":   dbHost,
	})

	for _, step := range steps {
		stepStart := time.Now()
		_, err := db.ExecContext(ctx, step.SQL)
		if err != nil {
			logJSON(loc, map[string]any{
				"component":        "database",
				"event":            "db_migration_failed",
				"status":           "error",
				"migration_step":   step.Name,
				"error_message":    err.Error(),
				"db_host":          dbHost,
				"duration_ms":      time.Since(start).Milliseconds(),
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			})
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		logJSON(loc, map[string]any{
			"component":        "database",
			"event":            "db_migration_step",
			"status":           "success",
			"migration_step":   step.Name,
			"db_host":          dbHost,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		})
	}

	logJSON(loc, map[string]any{
		"component":   "database",
		"event":       "db_migration_success",
		"status":      "success",
		"db_host":     dbHost,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return nil
}

func logJSON(loc *time.Location, data map[string]any) {
	data["ts"] = time.Now().In(loc).Format(time.RFC3339Nano)
	if _, ok := data["level"]; !ok {
		if data["status"] == "error" {
			data["level"] = "error"
		} else {
			data["level"] = "info"
		}
	}

	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal migration log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
