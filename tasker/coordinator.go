package tasker

import (
	"context"

	"github.com/nejkit/telegram-drive-bridge/domain"
	"github.com/nejkit/telegram-drive-bridge/storage"
	"github.com/sirupsen/logrus"
)

type MessageDeleter interface {
	DeleteMessages(ctx context.Context, chat domain.ChatHandle, messageIDs []int) error
}

// Coordinator turns message deletions into task aborts and bookkeeping
// cleanup. Errors are logged per message and never stop the caller.
type Coordinator struct {
	registry *Registry
	store    storage.TaskStorage
	deleter  MessageDeleter
}

func NewCoordinator(registry *Registry, store storage.TaskStorage, deleter MessageDeleter) *Coordinator {
	return &Coordinator{
		registry: registry,
		store:    store,
		deleter:  deleter,
	}
}

func (c *Coordinator) Registry() *Registry {
	return c.registry
}

// OnStatusDeletion handles deleted status messages. The origin message is
// deleted too once no other task references it.
func (c *Coordinator) OnStatusDeletion(ctx context.Context, chatID int64, messageIDs []int) {
	for _, messageID := range messageIDs {
		c.cancelStatusMessage(ctx, chatID, messageID)
	}
}

func (c *Coordinator) cancelStatusMessage(ctx context.Context, chatID int64, messageID int) {
	log := logrus.WithFields(logrus.Fields{
		"chatID":    chatID,
		"messageID": messageID,
	})

	key := Key{ChatID: chatID, StatusMessageID: messageID}

	c.registry.mu.Lock()
	defer c.registry.mu.Unlock()

	aborter, ok := c.registry.abortLocked(key)

	if !ok {
		c.registry.tombstoneLocked(key)
		c.deleteOrphan(ctx, log, chatID, messageID)
		return
	}

	log = log.WithField("taskID", aborter.TaskID)
	log.Info("status message deleted, task aborted")

	isLast, err := c.store.IsLastTask(ctx, chatID, messageID)

	if err != nil {
		log.WithError(err).Error("failed check last task of origin message")
	}

	if err := c.store.DeleteTask(ctx, aborter.TaskID); err != nil {
		log.WithError(err).Error("failed delete task record")
	}

	if isLast {
		c.deleteMessage(ctx, log, aborter.ChatHandle, aborter.MessageID)
	}
}

// OnOriginDeletion handles deleted origin messages: every task started from
// one of them is aborted and its status message removed.
func (c *Coordinator) OnOriginDeletion(ctx context.Context, chatID int64, messageIDs []int) {
	for _, messageID := range messageIDs {
		log := logrus.WithFields(logrus.Fields{
			"chatID":          chatID,
			"originMessageID": messageID,
		})

		indicatorIDs, err := c.store.GetMessageIndicatorIDs(ctx, chatID, messageID)

		if err != nil {
			log.WithError(err).Error("failed get status messages of origin message")
			continue
		}

		c.cancelStatusMessages(ctx, log, chatID, indicatorIDs)
	}
}

func (c *Coordinator) cancelStatusMessages(ctx context.Context, log *logrus.Entry, chatID int64, indicatorIDs []int) {
	c.registry.mu.Lock()
	defer c.registry.mu.Unlock()

	for _, indicatorID := range indicatorIDs {
		log := log.WithField("messageID", indicatorID)
		aborter, ok := c.registry.abortLocked(Key{ChatID: chatID, StatusMessageID: indicatorID})

		if !ok {
			c.deleteOrphan(ctx, log, chatID, indicatorID)
			continue
		}

		log.WithField("taskID", aborter.TaskID).Info("origin message deleted, task aborted")

		if err := c.store.DeleteTask(ctx, aborter.TaskID); err != nil {
			log.WithError(err).Error("failed delete task record")
		}

		c.deleteMessage(ctx, log, aborter.ChatHandle, indicatorID)
	}
}

func (c *Coordinator) deleteOrphan(ctx context.Context, log *logrus.Entry, chatID int64, messageID int) {
	log.Debug("no live task for deleted message")

	deleted, err := c.store.DeleteOrphanTask(ctx, chatID, messageID)

	if err != nil {
		log.WithError(err).Error("failed delete orphan task record")
		return
	}

	if deleted > 0 {
		log.WithField("deleted", deleted).Info("deleted orphan task records")
	}
}

func (c *Coordinator) deleteMessage(ctx context.Context, log *logrus.Entry, chat domain.ChatHandle, messageID int) {
	if c.deleter == nil || chat == (domain.ChatHandle{}) {
		log.Debug("no admin chat handle, skip message cleanup")
		return
	}

	if err := c.deleter.DeleteMessages(ctx, chat, []int{messageID}); err != nil {
		log.WithError(err).Error("failed delete message")
	}
}
