package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nejkit/telegram-drive-bridge/domain"
	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrations string

const taskColumns = `id, cmd_type, filename, root_path, url, upload_url, current_length, total_length,
	chat_id, chat_bot_handle, chat_user_handle, chat_origin_handle,
	message_id, message_indicator_id, message_origin_id, auto_delete, created_at`

type SQLiteTaskStorage struct {
	db *sql.DB
}

func NewSQLiteTaskStorage(ctx context.Context, path string, busyTimeout time.Duration) (*SQLiteTaskStorage, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)

	if err != nil {
		return nil, err
	}

	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if busyTimeout > 0 {
		_, _ = db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout.Milliseconds()))
	}

	_, _ = db.ExecContext(ctx, "PRAGMA journal_mode = WAL")
	_, _ = db.ExecContext(ctx, "PRAGMA synchronous = NORMAL")

	if _, err := db.ExecContext(ctx, migrations); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteTaskStorage{db: db}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task      domain.Task
		createdAt int64
	)

	err := row.Scan(
		&task.ID, &task.CmdType, &task.Filename, &task.RootPath, &task.URL, &task.UploadURL,
		&task.CurrentLength, &task.TotalLength,
		&task.ChatID, &task.ChatBotHandle, &task.ChatUserHandle, &task.ChatOriginHandle,
		&task.MessageID, &task.MessageIndicatorID, &task.MessageOriginID, &task.AutoDelete, &createdAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrorTaskNotFound
	}

	if err != nil {
		return nil, err
	}

	task.CreatedAt = time.UnixMilli(createdAt).UTC()

	return &task, nil
}

func (s *SQLiteTaskStorage) InsertTask(ctx context.Context, task *domain.Task) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, string(task.CmdType), task.Filename, task.RootPath, task.URL, task.UploadURL,
		task.CurrentLength, task.TotalLength,
		task.ChatID, task.ChatBotHandle, task.ChatUserHandle, task.ChatOriginHandle,
		task.MessageID, task.MessageIndicatorID, task.MessageOriginID, task.AutoDelete, task.CreatedAt.UnixMilli(),
	)

	return err
}

func (s *SQLiteTaskStorage) DeleteTask(ctx context.Context, taskID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, taskID)
	return err
}

func (s *SQLiteTaskStorage) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	return scanTask(s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, taskID))
}

func (s *SQLiteTaskStorage) FindTaskByIndicator(ctx context.Context, chatID int64, messageIndicatorID int) (*domain.Task, error) {
	return scanTask(s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE chat_id = ? AND message_indicator_id = ?`,
		chatID, messageIndicatorID,
	))
}

func (s *SQLiteTaskStorage) IsLastTask(ctx context.Context, chatID int64, messageIndicatorID int) (bool, error) {
	var count int

	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks
		WHERE chat_id = ? AND message_id = (
			SELECT message_id FROM tasks WHERE chat_id = ? AND message_indicator_id = ?
		)`,
		chatID, chatID, messageIndicatorID,
	).Scan(&count)

	if err != nil {
		return false, err
	}

	return count == 1, nil
}

func (s *SQLiteTaskStorage) GetMessageIndicatorIDs(ctx context.Context, chatID int64, messageID int) ([]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_indicator_id FROM tasks WHERE chat_id = ? AND message_id = ? ORDER BY created_at`,
		chatID, messageID,
	)

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	indicatorIDs := make([]int, 0)

	for rows.Next() {
		var id int

		if err := rows.Scan(&id); err != nil {
			return nil, err
		}

		indicatorIDs = append(indicatorIDs, id)
	}

	return indicatorIDs, rows.Err()
}

func (s *SQLiteTaskStorage) DeleteOrphanTask(ctx context.Context, chatID int64, messageID int) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE chat_id = ? AND (message_indicator_id = ? OR message_id = ?)`,
		chatID, messageID, messageID,
	)

	if err != nil {
		return 0, err
	}

	affected, err := result.RowsAffected()

	return int(affected), err
}

func (s *SQLiteTaskStorage) UpdateProgress(ctx context.Context, taskID string, currentLength uint64) error {
	result, err := s.db.ExecContext(ctx, `UPDATE tasks SET current_length = ? WHERE id = ?`, currentLength, taskID)

	if err != nil {
		return err
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return domain.ErrorTaskNotFound
	}

	return nil
}

func (s *SQLiteTaskStorage) ListTasks(ctx context.Context) ([]*domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at, id`)

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	tasks := make([]*domain.Task, 0)

	for rows.Next() {
		task, err := scanTask(rows)

		if err != nil {
			return nil, err
		}

		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

func (s *SQLiteTaskStorage) Close() error {
	return s.db.Close()
}
