package storage

import (
	"context"

	"github.com/nejkit/telegram-drive-bridge/domain"
)

// TaskStorage keeps durable task records. A task is addressed by its id, by
// its status message (chat id + indicator id) and by its origin message
// (chat id + message id); several tasks may share one origin message.
type TaskStorage interface {
	InsertTask(ctx context.Context, task *domain.Task) error
	DeleteTask(ctx context.Context, taskID string) error
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)
	FindTaskByIndicator(ctx context.Context, chatID int64, messageIndicatorID int) (*domain.Task, error)
	// IsLastTask reports whether the task behind the status message is the
	// only one left referencing its origin message.
	IsLastTask(ctx context.Context, chatID int64, messageIndicatorID int) (bool, error)
	GetMessageIndicatorIDs(ctx context.Context, chatID int64, messageID int) ([]int, error)
	// DeleteOrphanTask removes records whose status or origin message is
	// messageID. Absence is not an error.
	DeleteOrphanTask(ctx context.Context, chatID int64, messageID int) (int, error)
	UpdateProgress(ctx context.Context, taskID string, currentLength uint64) error
	ListTasks(ctx context.Context) ([]*domain.Task, error)
	Close() error
}
