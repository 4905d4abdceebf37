package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nejkit/telegram-drive-bridge/domain"
	"github.com/redis/go-redis/v9"
)

type RedisTaskStorage struct {
	botInstancePrefix string
	client            *redis.Client
}

func NewRedisTaskStorage(
	botInstancePrefix string,
	client *redis.Client,
) *RedisTaskStorage {
	return &RedisTaskStorage{botInstancePrefix: botInstancePrefix, client: client}
}

func (s *RedisTaskStorage) getTaskKey(taskID string) string {
	return fmt.Sprintf("%s:task:%s", s.botInstancePrefix, taskID)
}

func (s *RedisTaskStorage) getIndicatorKey(chatID int64, messageIndicatorID int) string {
	return fmt.Sprintf("%s:task:indicator:%d:%d", s.botInstancePrefix, chatID, messageIndicatorID)
}

func (s *RedisTaskStorage) getOriginKey(chatID int64, messageID int) string {
	return fmt.Sprintf("%s:task:origin:%d:%d", s.botInstancePrefix, chatID, messageID)
}

func (s *RedisTaskStorage) getTasksKey() string {
	return fmt.Sprintf("%s:tasks", s.botInstancePrefix)
}

func (s *RedisTaskStorage) InsertTask(ctx context.Context, task *domain.Task) error {
	payloadBytes, err := json.Marshal(task)

	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.getTaskKey(task.ID), payloadBytes, 0)
		pipe.Set(ctx, s.getIndicatorKey(task.ChatID, task.MessageIndicatorID), task.ID, 0)
		pipe.SAdd(ctx, s.getOriginKey(task.ChatID, task.MessageID), task.ID)
		pipe.SAdd(ctx, s.getTasksKey(), task.ID)
		return nil
	})

	return err
}

func (s *RedisTaskStorage) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	rawData, err := s.client.Get(ctx, s.getTaskKey(taskID)).Bytes()

	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrorTaskNotFound
	}

	if err != nil {
		return nil, err
	}

	var task domain.Task

	if err = json.Unmarshal(rawData, &task); err != nil {
		return nil, err
	}

	return &task, nil
}

func (s *RedisTaskStorage) DeleteTask(ctx context.Context, taskID string) error {
	task, err := s.GetTask(ctx, taskID)

	if errors.Is(err, domain.ErrorTaskNotFound) {
		return nil
	}

	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.getTaskKey(task.ID))
		pipe.Del(ctx, s.getIndicatorKey(task.ChatID, task.MessageIndicatorID))
		pipe.SRem(ctx, s.getOriginKey(task.ChatID, task.MessageID), task.ID)
		pipe.SRem(ctx, s.getTasksKey(), task.ID)
		return nil
	})

	return err
}

func (s *RedisTaskStorage) FindTaskByIndicator(ctx context.Context, chatID int64, messageIndicatorID int) (*domain.Task, error) {
	taskID, err := s.client.Get(ctx, s.getIndicatorKey(chatID, messageIndicatorID)).Result()

	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrorTaskNotFound
	}

	if err != nil {
		return nil, err
	}

	return s.GetTask(ctx, taskID)
}

func (s *RedisTaskStorage) IsLastTask(ctx context.Context, chatID int64, messageIndicatorID int) (bool, error) {
	task, err := s.FindTaskByIndicator(ctx, chatID, messageIndicatorID)

	if errors.Is(err, domain.ErrorTaskNotFound) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	count, err := s.client.SCard(ctx, s.getOriginKey(chatID, task.MessageID)).Result()

	if err != nil {
		return false, err
	}

	return count <= 1, nil
}

func (s *RedisTaskStorage) GetMessageIndicatorIDs(ctx context.Context, chatID int64, messageID int) ([]int, error) {
	taskIDs, err := s.client.SMembers(ctx, s.getOriginKey(chatID, messageID)).Result()

	if err != nil {
		return nil, err
	}

	indicatorIDs := make([]int, 0, len(taskIDs))

	for _, taskID := range taskIDs {
		task, err := s.GetTask(ctx, taskID)

		if errors.Is(err, domain.ErrorTaskNotFound) {
			continue
		}

		if err != nil {
			return nil, err
		}

		indicatorIDs = append(indicatorIDs, task.MessageIndicatorID)
	}

	return indicatorIDs, nil
}

func (s *RedisTaskStorage) DeleteOrphanTask(ctx context.Context, chatID int64, messageID int) (int, error) {
	taskIDs, err := s.client.SMembers(ctx, s.getOriginKey(chatID, messageID)).Result()

	if err != nil {
		return 0, err
	}

	indicatorTaskID, err := s.client.Get(ctx, s.getIndicatorKey(chatID, messageID)).Result()

	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, err
	}

	if indicatorTaskID != "" {
		taskIDs = append(taskIDs, indicatorTaskID)
	}

	deleted := 0

	for _, taskID := range taskIDs {
		exists, err := s.client.Exists(ctx, s.getTaskKey(taskID)).Result()

		if err != nil {
			return deleted, err
		}

		if exists == 0 {
			continue
		}

		if err := s.DeleteTask(ctx, taskID); err != nil {
			return deleted, err
		}

		deleted++
	}

	return deleted, nil
}

func (s *RedisTaskStorage) UpdateProgress(ctx context.Context, taskID string, currentLength uint64) error {
	task, err := s.GetTask(ctx, taskID)

	if err != nil {
		return err
	}

	task.CurrentLength = currentLength

	return s.writeProgress(ctx, task)
}

// writeProgress overwrites the record only while it still exists, so a task
// deleted after it was read is not brought back without its index keys.
func (s *RedisTaskStorage) writeProgress(ctx context.Context, task *domain.Task) error {
	payloadBytes, err := json.Marshal(task)

	if err != nil {
		return err
	}

	updated, err := s.client.SetXX(ctx, s.getTaskKey(task.ID), payloadBytes, 0).Result()

	if err != nil {
		return err
	}

	if !updated {
		return domain.ErrorTaskNotFound
	}

	return nil
}

func (s *RedisTaskStorage) ListTasks(ctx context.Context) ([]*domain.Task, error) {
	taskIDs, err := s.client.SMembers(ctx, s.getTasksKey()).Result()

	if err != nil {
		return nil, err
	}

	tasks := make([]*domain.Task, 0, len(taskIDs))

	for _, taskID := range taskIDs {
		task, err := s.GetTask(ctx, taskID)

		if errors.Is(err, domain.ErrorTaskNotFound) {
			continue
		}

		if err != nil {
			return nil, err
		}

		tasks = append(tasks, task)
	}

	sortTasks(tasks)

	return tasks, nil
}

func (s *RedisTaskStorage) Close() error {
	return s.client.Close()
}
