package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/ristretto"
	"github.com/nejkit/telegram-drive-bridge/domain"
)

type messageKey struct {
	chatID    int64
	messageID int
}

// InMemoryTaskStorage keeps task records in a ristretto cache and the
// status/origin indexes in plain maps. Records do not survive a restart.
type InMemoryTaskStorage struct {
	client *ristretto.Cache

	mu         sync.Mutex
	taskIDs    map[string]struct{}
	indicators map[messageKey]string
	origins    map[messageKey]map[string]struct{}
}

func NewInMemoryTaskStorage(client *ristretto.Cache) *InMemoryTaskStorage {
	return &InMemoryTaskStorage{
		client:     client,
		taskIDs:    make(map[string]struct{}),
		indicators: make(map[messageKey]string),
		origins:    make(map[messageKey]map[string]struct{}),
	}
}

func NewTaskCache() (*ristretto.Cache, error) {
	return ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     1 << 30,
		BufferItems: 64,
	})
}

func (i *InMemoryTaskStorage) getTaskKey(taskID string) string {
	return fmt.Sprintf("task:%s", taskID)
}

func (i *InMemoryTaskStorage) InsertTask(_ context.Context, task *domain.Task) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	stored := *task

	if ok := i.client.Set(i.getTaskKey(task.ID), &stored, 1); !ok {
		return errors.New("failed to save task")
	}

	i.client.Wait()

	i.taskIDs[task.ID] = struct{}{}
	i.indicators[messageKey{task.ChatID, task.MessageIndicatorID}] = task.ID

	origin := messageKey{task.ChatID, task.MessageID}

	if _, ok := i.origins[origin]; !ok {
		i.origins[origin] = make(map[string]struct{})
	}

	i.origins[origin][task.ID] = struct{}{}

	return nil
}

func (i *InMemoryTaskStorage) getTask(taskID string) (*domain.Task, error) {
	if _, ok := i.taskIDs[taskID]; !ok {
		return nil, domain.ErrorTaskNotFound
	}

	data, ok := i.client.Get(i.getTaskKey(taskID))

	if !ok {
		return nil, domain.ErrorTaskNotFound
	}

	task := *data.(*domain.Task)

	return &task, nil
}

func (i *InMemoryTaskStorage) GetTask(_ context.Context, taskID string) (*domain.Task, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.getTask(taskID)
}

func (i *InMemoryTaskStorage) deleteTask(taskID string) bool {
	task, err := i.getTask(taskID)

	if err != nil {
		return false
	}

	i.client.Del(i.getTaskKey(taskID))
	delete(i.taskIDs, taskID)
	delete(i.indicators, messageKey{task.ChatID, task.MessageIndicatorID})

	origin := messageKey{task.ChatID, task.MessageID}
	delete(i.origins[origin], taskID)

	if len(i.origins[origin]) == 0 {
		delete(i.origins, origin)
	}

	return true
}

func (i *InMemoryTaskStorage) DeleteTask(_ context.Context, taskID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.deleteTask(taskID)

	return nil
}

func (i *InMemoryTaskStorage) FindTaskByIndicator(_ context.Context, chatID int64, messageIndicatorID int) (*domain.Task, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	taskID, ok := i.indicators[messageKey{chatID, messageIndicatorID}]

	if !ok {
		return nil, domain.ErrorTaskNotFound
	}

	return i.getTask(taskID)
}

func (i *InMemoryTaskStorage) IsLastTask(_ context.Context, chatID int64, messageIndicatorID int) (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	taskID, ok := i.indicators[messageKey{chatID, messageIndicatorID}]

	if !ok {
		return false, nil
	}

	task, err := i.getTask(taskID)

	if err != nil {
		return false, nil
	}

	return len(i.origins[messageKey{chatID, task.MessageID}]) <= 1, nil
}

func (i *InMemoryTaskStorage) GetMessageIndicatorIDs(_ context.Context, chatID int64, messageID int) ([]int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	indicatorIDs := make([]int, 0)

	for taskID := range i.origins[messageKey{chatID, messageID}] {
		task, err := i.getTask(taskID)

		if err != nil {
			continue
		}

		indicatorIDs = append(indicatorIDs, task.MessageIndicatorID)
	}

	return indicatorIDs, nil
}

func (i *InMemoryTaskStorage) DeleteOrphanTask(_ context.Context, chatID int64, messageID int) (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	key := messageKey{chatID, messageID}
	taskIDs := make([]string, 0)

	for taskID := range i.origins[key] {
		taskIDs = append(taskIDs, taskID)
	}

	if taskID, ok := i.indicators[key]; ok {
		taskIDs = append(taskIDs, taskID)
	}

	deleted := 0

	for _, taskID := range taskIDs {
		if i.deleteTask(taskID) {
			deleted++
		}
	}

	return deleted, nil
}

func (i *InMemoryTaskStorage) UpdateProgress(_ context.Context, taskID string, currentLength uint64) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	task, err := i.getTask(taskID)

	if err != nil {
		return err
	}

	task.CurrentLength = currentLength

	if ok := i.client.Set(i.getTaskKey(taskID), task, 1); !ok {
		return errors.New("failed to save task progress")
	}

	i.client.Wait()

	return nil
}

func (i *InMemoryTaskStorage) ListTasks(_ context.Context) ([]*domain.Task, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	tasks := make([]*domain.Task, 0, len(i.taskIDs))

	for taskID := range i.taskIDs {
		task, err := i.getTask(taskID)

		if err != nil {
			continue
		}

		tasks = append(tasks, task)
	}

	sortTasks(tasks)

	return tasks, nil
}

func (i *InMemoryTaskStorage) Close() error {
	i.client.Close()
	return nil
}
