// File path: internal/sqlite/schema.go
package sqlite

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS chats (
                id INTEGER PRIMARY KEY AUTOINCREMENT,
                email TEXT NOT NULL,
                message TEXT NOT NULL,
                sender TEXT NOT NULL,
                message_type TEXT NOT NULL DEFAULT 'text',
                created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`,
	`CREATE INDEX IF NOT EXISTS idx_chats_email ON chats(email, created_at)`,
	`CREATE TABLE IF NOT EXISTS submissions (
                id TEXT PRIMARY KEY,
                email TEXT NOT NULL,
                submitted_at TIMESTAMP NOT NULL
        )`,
	`CREATE INDEX IF NOT EXISTS idx_submissions_email ON submissions(email, submitted_at)`,
	`CREATE TABLE IF NOT EXISTS submission_answers (
                submission_id TEXT NOT NULL REFERENCES submissions(id) ON DELETE CASCADE,
                position INTEGER NOT NULL,
                field_key TEXT NOT NULL,
                answer TEXT NOT NULL,
                PRIMARY KEY (submission_id, field_key)
        )`,
	`CREATE TABLE IF NOT EXISTS submission_files (
                id INTEGER PRIMARY KEY AUTOINCREMENT,
                submission_id TEXT NOT NULL REFERENCES submissions(id) ON DELETE CASCADE,
                original_name TEXT NOT NULL,
                stored_id TEXT NOT NULL,
                size_bytes INTEGER NOT NULL,
                mime_category TEXT NOT NULL,
                uploaded_at TIMESTAMP NOT NULL
        )`,
	`CREATE TABLE IF NOT EXISTS admins (
                id INTEGER PRIMARY KEY AUTOINCREMENT,
                email TEXT NOT NULL UNIQUE,
                password_hash TEXT NOT NULL,
                created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`,
}
