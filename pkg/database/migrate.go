package database

import (
	"database/sql"
	"fmt"
)

// Migrate creates the schema. The three content tables share their common
// columns; books additionally carry both the page-oriented and the
// audio-oriented fields (hybrid content).
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT UNIQUE,
			password_hash TEXT,
			role TEXT NOT NULL DEFAULT 'USER',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS categories (
			id TEXT PRIMARY KEY,
			name TEXT UNIQUE NOT NULL,
			image TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS books (
			id TEXT PRIMARY KEY,
			book_name TEXT NOT NULL,
			book_cover TEXT,
			synopsis TEXT,
			category_id TEXT NOT NULL,
			category_name TEXT NOT NULL,
			tags TEXT, -- JSON array as text
			view_count INTEGER NOT NULL DEFAULT 0,
			is_saved INTEGER NOT NULL DEFAULT 0,
			page_count INTEGER NOT NULL DEFAULT 0,
			pdf_file TEXT,
			duration INTEGER NOT NULL DEFAULT 0, -- seconds
			audio_file TEXT,
			created_by TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS ebooks (
			id TEXT PRIMARY KEY,
			book_name TEXT NOT NULL,
			book_cover TEXT,
			synopsis TEXT,
			category_id TEXT NOT NULL,
			category_name TEXT NOT NULL,
			tags TEXT,
			view_count INTEGER NOT NULL DEFAULT 0,
			is_saved INTEGER NOT NULL DEFAULT 0,
			page_count INTEGER NOT NULL DEFAULT 0,
			pdf_file TEXT,
			created_by TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS audiobooks (
			id TEXT PRIMARY KEY,
			book_name TEXT NOT NULL,
			book_cover TEXT,
			synopsis TEXT,
			category_id TEXT NOT NULL,
			category_name TEXT NOT NULL,
			tags TEXT,
			view_count INTEGER NOT NULL DEFAULT 0,
			is_saved INTEGER NOT NULL DEFAULT 0,
			duration INTEGER NOT NULL DEFAULT 0, -- seconds
			audio_file TEXT,
			created_by TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS user_progress (
			user_id TEXT NOT NULL,
			content_id TEXT NOT NULL,
			content_type TEXT NOT NULL,
			content_model TEXT NOT NULL,
			progress REAL NOT NULL DEFAULT 0,
			current_page INTEGER NOT NULL DEFAULT 0,
			total_pages INTEGER NOT NULL DEFAULT 0,
			current_time_sec REAL NOT NULL DEFAULT 0,
			total_duration REAL NOT NULL DEFAULT 0,
			is_completed INTEGER NOT NULL DEFAULT 0,
			bookmarked INTEGER NOT NULL DEFAULT 0,
			started_at TIMESTAMP NOT NULL,
			last_read_at TIMESTAMP,
			last_listen_at TIMESTAMP,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (user_id, content_id, content_type)
		);`,
		`CREATE TABLE IF NOT EXISTS user_activity (
			user_id TEXT NOT NULL,
			date TEXT NOT NULL, -- YYYY-MM-DD
			pages_read INTEGER NOT NULL DEFAULT 0,
			reading_minutes INTEGER NOT NULL DEFAULT 0,
			time_listened INTEGER NOT NULL DEFAULT 0,
			listening_minutes INTEGER NOT NULL DEFAULT 0,
			ebooks_read INTEGER NOT NULL DEFAULT 0,
			audiobooks_listened INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, date)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_progress_user ON user_progress(user_id, content_type);`,
		`CREATE INDEX IF NOT EXISTS idx_books_category ON books(category_id);`,
		`CREATE INDEX IF NOT EXISTS idx_ebooks_category ON ebooks(category_id);`,
		`CREATE INDEX IF NOT EXISTS idx_audiobooks_category ON audiobooks(category_id);`,
	}

	for i, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("migrate stmt %d: %w", i, err)
		}
	}
	return nil
}
