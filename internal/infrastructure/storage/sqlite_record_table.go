package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"colony-counter/internal/domain/entity"
	"colony-counter/internal/domain/port"
)

// SQLiteRecordTable таблица метаданных в SQLite.
// Колонии и параметры лежат в JSON-колонках, порядок сессии задаёт seq.
type SQLiteRecordTable struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecordTable открывает базу и создаёт таблицы при необходимости
func NewSQLiteRecordTable(dbPath string) (*SQLiteRecordTable, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	table := &SQLiteRecordTable{db: db}
	if err := table.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return table, nil
}

func (t *SQLiteRecordTable) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS images (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		session_id TEXT NOT NULL,
		filename TEXT NOT NULL,
		auto_colonies TEXT NOT NULL DEFAULT 'null',
		manual_added TEXT NOT NULL DEFAULT 'null',
		manual_removed TEXT NOT NULL DEFAULT 'null',
		last_count INTEGER NOT NULL DEFAULT 0,
		last_parameters TEXT,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_images_session ON images(session_id, seq);
	`

	_, err := t.db.Exec(schema)
	return err
}

// Close закрывает соединение с базой
func (t *SQLiteRecordTable) Close() error {
	return t.db.Close()
}

// CreateSession регистрирует сессию; повторная регистрация ничего не меняет
func (t *SQLiteRecordTable) CreateSession(ctx context.Context, sessionID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, err := t.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO sessions (id, created_at) VALUES (?, ?)`,
		sessionID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// HasSession проверяет наличие сессии
func (t *SQLiteRecordTable) HasSession(ctx context.Context, sessionID string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.hasSession(ctx, sessionID)
}

func (t *SQLiteRecordTable) hasSession(ctx context.Context, sessionID string) (bool, error) {
	var n int
	err := t.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM sessions WHERE id = ?`, sessionID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to query session: %w", err)
	}
	return n > 0, nil
}

// InsertImage добавляет запись в конец сессии
func (t *SQLiteRecordTable) InsertImage(ctx context.Context, record *entity.ImageRecord) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	exists, err := t.hasSession(ctx, record.SessionID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("session %s: %w", record.SessionID, entity.ErrNotFound)
	}

	auto, added, removed, err := marshalColonyLists(record.AutoColonies, record.ManualAdded, record.ManualRemoved)
	if err != nil {
		return err
	}
	params, err := marshalParameters(record.LastParameters)
	if err != nil {
		return err
	}

	_, err = t.db.ExecContext(ctx, `
		INSERT INTO images (id, session_id, filename, auto_colonies, manual_added, manual_removed,
			last_count, last_parameters, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, record.ID, record.SessionID, record.Filename, auto, added, removed,
		record.LastCount, params, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert image: %w", err)
	}
	return nil
}

// SaveDetection заменяет колонии, счёт и параметры одним UPDATE
func (t *SQLiteRecordTable) SaveDetection(ctx context.Context, imageID string, colonies []entity.Colony, count int, params entity.Parameters) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	auto, err := json.Marshal(colonies)
	if err != nil {
		return fmt.Errorf("failed to encode colonies: %w", err)
	}
	p, err := marshalParameters(&params)
	if err != nil {
		return err
	}

	result, err := t.db.ExecContext(ctx,
		`UPDATE images SET auto_colonies = ?, last_count = ?, last_parameters = ? WHERE id = ?`,
		string(auto), count, p, imageID)
	if err != nil {
		return fmt.Errorf("failed to save detection: %w", err)
	}
	return requireAffected(result, imageID)
}

// UpdateAnnotations заменяет переданные списки ручных правок
func (t *SQLiteRecordTable) UpdateAnnotations(ctx context.Context, imageID string, added, removed *[]entity.Colony) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM images WHERE id = ?`, imageID).Scan(&n); err != nil {
		return fmt.Errorf("failed to query image: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("image %s: %w", imageID, entity.ErrNotFound)
	}

	updates := []struct {
		column string
		list   *[]entity.Colony
	}{{"manual_added", added}, {"manual_removed", removed}}
	for _, u := range updates {
		if u.list == nil {
			continue
		}
		data, err := json.Marshal(*u.list)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", u.column, err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE images SET `+u.column+` = ? WHERE id = ?`, string(data), imageID); err != nil {
			return fmt.Errorf("failed to update %s: %w", u.column, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Get возвращает запись по ID
func (t *SQLiteRecordTable) Get(ctx context.Context, imageID string) (*entity.ImageRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	row := t.db.QueryRowContext(ctx, selectImage+` WHERE id = ?`, imageID)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("image %s: %w", imageID, entity.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ListBySession возвращает записи в порядке добавления
func (t *SQLiteRecordTable) ListBySession(ctx context.Context, sessionID string) ([]entity.ImageRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	exists, err := t.hasSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("session %s: %w", sessionID, entity.ErrNotFound)
	}

	rows, err := t.db.QueryContext(ctx, selectImage+` WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query images: %w", err)
	}
	defer rows.Close()

	records := []entity.ImageRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate images: %w", err)
	}
	return records, nil
}

const selectImage = `
	SELECT id, session_id, filename, auto_colonies, manual_added, manual_removed,
		last_count, last_parameters, created_at
	FROM images`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*entity.ImageRecord, error) {
	var (
		record               entity.ImageRecord
		auto, added, removed string
		params               sql.NullString
	)
	err := row.Scan(&record.ID, &record.SessionID, &record.Filename, &auto, &added, &removed,
		&record.LastCount, &params, &record.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan image: %w", err)
	}

	for _, col := range []struct {
		raw string
		dst *[]entity.Colony
	}{{auto, &record.AutoColonies}, {added, &record.ManualAdded}, {removed, &record.ManualRemoved}} {
		if err := json.Unmarshal([]byte(col.raw), col.dst); err != nil {
			return nil, fmt.Errorf("failed to decode colonies: %w", err)
		}
	}
	if params.Valid {
		var p entity.Parameters
		if err := json.Unmarshal([]byte(params.String), &p); err != nil {
			return nil, fmt.Errorf("failed to decode parameters: %w", err)
		}
		record.LastParameters = &p
	}
	return &record, nil
}

func marshalColonyLists(lists ...[]entity.Colony) (string, string, string, error) {
	out := make([]string, len(lists))
	for i, list := range lists {
		data, err := json.Marshal(list)
		if err != nil {
			return "", "", "", fmt.Errorf("failed to encode colonies: %w", err)
		}
		out[i] = string(data)
	}
	return out[0], out[1], out[2], nil
}

func marshalParameters(p *entity.Parameters) (sql.NullString, error) {
	if p == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode parameters: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func requireAffected(result sql.Result, imageID string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("image %s: %w", imageID, entity.ErrNotFound)
	}
	return nil
}

// Проверка реализации интерфейса
var _ port.MetadataTable = (*SQLiteRecordTable)(nil)
