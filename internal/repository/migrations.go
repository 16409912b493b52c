package repository

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

type migration struct {
	version int
	sql     []string
}

// The DDL sticks to types PostgreSQL and SQLite both understand. Ids are
// stored as TEXT and timestamps are always written in UTC by the services.
var migrations = []migration{
	{
		version: 1,
		sql: []string{
			`CREATE TABLE IF NOT EXISTS notifications (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	user_type   TEXT NOT NULL,
	type        TEXT NOT NULL,
	title       TEXT NOT NULL,
	message     TEXT NOT NULL,
	payload     TEXT NOT NULL DEFAULT '{}',
	priority    TEXT NOT NULL DEFAULT 'normal',
	is_read     BOOLEAN NOT NULL DEFAULT FALSE,
	read_at     TIMESTAMP NULL,
	expires_at  TIMESTAMP NULL,
	created_at  TIMESTAMP NOT NULL
)`,
			`CREATE INDEX IF NOT EXISTS idx_notifications_owner ON notifications(user_id, user_type, is_read)`,
			`CREATE INDEX IF NOT EXISTS idx_notifications_created ON notifications(created_at)`,
			`CREATE TABLE IF NOT EXISTS notification_settings (
	id                TEXT PRIMARY KEY,
	user_id           TEXT NOT NULL,
	user_type         TEXT NOT NULL,
	notification_type TEXT NOT NULL,
	email_enabled     BOOLEAN NOT NULL DEFAULT TRUE,
	push_enabled      BOOLEAN NOT NULL DEFAULT TRUE,
	sms_enabled       BOOLEAN NOT NULL DEFAULT TRUE,
	in_app_enabled    BOOLEAN NOT NULL DEFAULT TRUE,
	created_at        TIMESTAMP NOT NULL,
	updated_at        TIMESTAMP NOT NULL,
	UNIQUE (user_id, user_type, notification_type)
)`,
			`CREATE TABLE IF NOT EXISTS messages (
	id                  TEXT PRIMARY KEY,
	sender_id           TEXT NOT NULL,
	sender_type         TEXT NOT NULL,
	receiver_id         TEXT NULL,
	receiver_type       TEXT NULL,
	message_type        TEXT NOT NULL,
	subject             TEXT NOT NULL,
	body                TEXT NOT NULL,
	priority            TEXT NOT NULL DEFAULT 'normal',
	parent_message_id   TEXT NULL REFERENCES messages(id),
	has_attachments     BOOLEAN NOT NULL DEFAULT FALSE,
	is_read             BOOLEAN NOT NULL DEFAULT FALSE,
	read_at             TIMESTAMP NULL,
	sender_deleted_at   TIMESTAMP NULL,
	receiver_deleted_at TIMESTAMP NULL,
	created_at          TIMESTAMP NOT NULL
)`,
			`CREATE INDEX IF NOT EXISTS idx_messages_receiver ON messages(receiver_id, receiver_type)`,
			`CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender_id, sender_type)`,
			`CREATE INDEX IF NOT EXISTS idx_messages_parent ON messages(parent_message_id)`,
			`CREATE TABLE IF NOT EXISTS message_recipients (
	id             TEXT PRIMARY KEY,
	message_id     TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
	recipient_id   TEXT NOT NULL,
	recipient_type TEXT NOT NULL,
	is_read        BOOLEAN NOT NULL DEFAULT FALSE,
	is_archived    BOOLEAN NOT NULL DEFAULT FALSE,
	is_starred     BOOLEAN NOT NULL DEFAULT FALSE,
	read_at        TIMESTAMP NULL,
	deleted_at     TIMESTAMP NULL,
	created_at     TIMESTAMP NOT NULL,
	UNIQUE (message_id, recipient_id, recipient_type)
)`,
			`CREATE INDEX IF NOT EXISTS idx_message_recipients_owner ON message_recipients(recipient_id, recipient_type)`,
			`CREATE TABLE IF NOT EXISTS message_attachments (
	id           TEXT PRIMARY KEY,
	message_id   TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
	file_name    TEXT NOT NULL,
	file_size    BIGINT NOT NULL,
	mime_type    TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	created_at   TIMESTAMP NOT NULL
)`,
			`CREATE TABLE IF NOT EXISTS forum_topics (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	body        TEXT NOT NULL,
	author_id   TEXT NOT NULL,
	author_type TEXT NOT NULL,
	group_name  TEXT NULL,
	posts_count BIGINT NOT NULL DEFAULT 0,
	likes_count BIGINT NOT NULL DEFAULT 0,
	is_locked   BOOLEAN NOT NULL DEFAULT FALSE,
	created_at  TIMESTAMP NOT NULL,
	updated_at  TIMESTAMP NOT NULL
)`,
			`CREATE TABLE IF NOT EXISTS forum_posts (
	id             TEXT PRIMARY KEY,
	topic_id       TEXT NOT NULL REFERENCES forum_topics(id) ON DELETE CASCADE,
	author_id      TEXT NOT NULL,
	author_type    TEXT NOT NULL,
	parent_post_id TEXT NULL,
	body           TEXT NOT NULL,
	likes_count    BIGINT NOT NULL DEFAULT 0,
	created_at     TIMESTAMP NOT NULL,
	updated_at     TIMESTAMP NOT NULL
)`,
			`CREATE INDEX IF NOT EXISTS idx_forum_posts_topic ON forum_posts(topic_id)`,
			`CREATE TABLE IF NOT EXISTS forum_likes (
	id          TEXT PRIMARY KEY,
	target_type TEXT NOT NULL,
	target_id   TEXT NOT NULL,
	user_id     TEXT NOT NULL,
	user_type   TEXT NOT NULL,
	created_at  TIMESTAMP NOT NULL,
	UNIQUE (target_type, target_id, user_id, user_type)
)`,
			`CREATE TABLE IF NOT EXISTS forum_subscriptions (
	id         TEXT PRIMARY KEY,
	topic_id   TEXT NOT NULL REFERENCES forum_topics(id) ON DELETE CASCADE,
	user_id    TEXT NOT NULL,
	user_type  TEXT NOT NULL,
	is_active  BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	UNIQUE (topic_id, user_id, user_type)
)`,
			`CREATE TABLE IF NOT EXISTS students (
	id         TEXT PRIMARY KEY,
	full_name  TEXT NOT NULL,
	email      TEXT NOT NULL DEFAULT '',
	group_name TEXT NOT NULL,
	is_active  BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMP NOT NULL
)`,
			`CREATE INDEX IF NOT EXISTS idx_students_group ON students(group_name, is_active)`,
			`CREATE TABLE IF NOT EXISTS assignments (
	id           TEXT PRIMARY KEY,
	teacher_id   TEXT NOT NULL,
	group_name   TEXT NOT NULL,
	title        TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	due_at       TIMESTAMP NULL,
	published_at TIMESTAMP NULL,
	created_at   TIMESTAMP NOT NULL
)`,
			`CREATE TABLE IF NOT EXISTS tests (
	id               TEXT PRIMARY KEY,
	teacher_id       TEXT NOT NULL,
	group_name       TEXT NOT NULL,
	title            TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	scheduled_at     TIMESTAMP NULL,
	duration_minutes INTEGER NOT NULL DEFAULT 0,
	published_at     TIMESTAMP NULL,
	created_at       TIMESTAMP NOT NULL
)`,
			`CREATE TABLE IF NOT EXISTS submissions (
	id            TEXT PRIMARY KEY,
	assignment_id TEXT NOT NULL REFERENCES assignments(id) ON DELETE CASCADE,
	student_id    TEXT NOT NULL,
	content       TEXT NOT NULL,
	grade         DOUBLE PRECISION NULL,
	feedback      TEXT NULL,
	submitted_at  TIMESTAMP NOT NULL,
	graded_at     TIMESTAMP NULL,
	UNIQUE (assignment_id, student_id)
)`,
		},
	},
}

// Migrate applies every migration newer than the recorded schema version.
func Migrate(db *sqlx.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	var current int
	if err := db.Get(&current, `SELECT COALESCE(MAX(version), 0) FROM schema_version`); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		tx, err := db.Beginx()
		if err != nil {
			return fmt.Errorf("beginning migration v%d: %w", m.version, err)
		}
		for _, stmt := range m.sql {
			if _, err := tx.Exec(stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("applying migration v%d: %w", m.version, err)
			}
		}
		if _, err := tx.Exec(tx.Rebind(`INSERT INTO schema_version (version) VALUES (?)`), m.version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("recording migration v%d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration v%d: %w", m.version, err)
		}
	}

	return nil
}
