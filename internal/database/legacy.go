package database

import (
	"context"
	"database/sql"
	"fmt"
)

const legacyColumnsVersion = 3

// migrateLegacyColumns brings databases created by older releases up to the
// current column layout. Books gain the cover column; reading sessions that
// still carry start_time/end_time get their values copied into started_at and
// ended_at wherever those are still NULL, then the table is rebuilt without the
// old columns. Fresh databases only get their indexes.
func migrateLegacyColumns(ctx context.Context, tx *sql.Tx) error {
	bookCols, err := tableColumns(ctx, tx, "books")
	if err != nil {
		return err
	}
	if !bookCols["image"] {
		if _, err := tx.ExecContext(ctx, `ALTER TABLE books ADD COLUMN image TEXT`); err != nil {
			return fmt.Errorf("add books.image: %w", err)
		}
	}

	cols, err := tableColumns(ctx, tx, "reading_sessions")
	if err != nil {
		return err
	}

	if cols["start_time"] || cols["end_time"] {
		if err := reconcileSessionColumns(ctx, tx, cols); err != nil {
			return err
		}
	}

	for _, stmt := range []string{
		`CREATE INDEX IF NOT EXISTS idx_reading_sessions_user ON reading_sessions(user_id, started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_reading_sessions_book ON reading_sessions(book_id)`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create reading_sessions index: %w", err)
		}
	}
	return nil
}

func reconcileSessionColumns(ctx context.Context, tx *sql.Tx, cols map[string]bool) error {
	for _, c := range []string{"started_at", "ended_at", "duration_seconds"} {
		if cols[c] {
			continue
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`ALTER TABLE reading_sessions ADD COLUMN %s INTEGER`, c)); err != nil {
			return fmt.Errorf("add reading_sessions.%s: %w", c, err)
		}
	}

	var copies []string
	if cols["start_time"] {
		copies = append(copies, `UPDATE reading_sessions SET started_at = start_time WHERE started_at IS NULL`)
	}
	if cols["end_time"] {
		copies = append(copies, `UPDATE reading_sessions SET ended_at = end_time WHERE ended_at IS NULL`)
	}
	copies = append(copies,
		`UPDATE reading_sessions SET duration_seconds = MAX(ended_at - started_at, 0)
		 WHERE duration_seconds IS NULL AND ended_at IS NOT NULL AND started_at IS NOT NULL`,
	)
	for _, stmt := range copies {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("copy legacy session columns: %w", err)
		}
	}

	rebuild := []string{
		`CREATE TABLE reading_sessions_rebuilt (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			book_id INTEGER NOT NULL,
			started_at INTEGER NOT NULL,
			ended_at INTEGER,
			duration_seconds INTEGER,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (book_id) REFERENCES books(id) ON DELETE CASCADE
		)`,
		`INSERT INTO reading_sessions_rebuilt (id, user_id, book_id, started_at, ended_at, duration_seconds)
		 SELECT id, user_id, book_id, COALESCE(started_at, 0), ended_at, duration_seconds FROM reading_sessions`,
		`DROP TABLE reading_sessions`,
		`ALTER TABLE reading_sessions_rebuilt RENAME TO reading_sessions`,
	}
	for _, stmt := range rebuild {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("rebuild reading_sessions: %w", err)
		}
	}
	return nil
}

func tableColumns(ctx context.Context, tx *sql.Tx, table string) (map[string]bool, error) {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("inspect %s: %w", table, err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}
