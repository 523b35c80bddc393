package postgres

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open opens a PostgreSQL database using the pgx stdlib driver.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate runs idempotent DDL migrations for the gochat schema on PostgreSQL.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id                BIGSERIAL    PRIMARY KEY,
			username          VARCHAR(50)  UNIQUE NOT NULL,
			name              VARCHAR(100) NOT NULL DEFAULT '',
			email             VARCHAR(100) UNIQUE,
			profile_picture   VARCHAR(255) NOT NULL DEFAULT '',
			is_active         BOOLEAN      NOT NULL DEFAULT TRUE,
			is_online         BOOLEAN      NOT NULL DEFAULT FALSE,
			connection_handle VARCHAR(64),
			created_at        TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			last_seen         TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS conversations (
			id                BIGSERIAL    PRIMARY KEY,
			name              VARCHAR(100),
			is_group          BOOLEAN      NOT NULL DEFAULT FALSE,
			last_sender_id    BIGINT       REFERENCES users(id),
			last_message_text TEXT,
			last_message_at   TIMESTAMPTZ,
			created_at        TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			updated_at        TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS conversation_participants (
			user_id         BIGINT       NOT NULL REFERENCES users(id),
			conversation_id BIGINT       NOT NULL REFERENCES conversations(id),
			joined_at       TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, conversation_id)
		)`,

		`CREATE TABLE IF NOT EXISTS messages (
			id              BIGSERIAL    PRIMARY KEY,
			conversation_id BIGINT       NOT NULL REFERENCES conversations(id),
			sender_id       BIGINT       NOT NULL REFERENCES users(id),
			text            TEXT         NOT NULL,
			seen            BOOLEAN      NOT NULL DEFAULT FALSE,
			is_deleted      BOOLEAN      NOT NULL DEFAULT FALSE,
			created_at      TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_participants_conversation ON conversation_participants(conversation_id)`,
		`CREATE INDEX IF NOT EXISTS idx_users_online ON users(is_online)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
