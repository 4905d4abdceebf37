package tasker

import (
	"context"

	"github.com/nejkit/telegram-drive-bridge/domain"
	"github.com/sirupsen/logrus"
)

type UpdateSource interface {
	NextUpdate(ctx context.Context) (domain.Update, error)
}

type DeletionHandler func(ctx context.Context, chatID int64, messageIDs []int)

// Listener reads one update stream forever and forwards channel message
// deletions to its handler. Stream errors are logged and the loop goes on.
type Listener struct {
	name   string
	source UpdateSource
	handle DeletionHandler
}

func NewListener(name string, source UpdateSource, handle DeletionHandler) *Listener {
	return &Listener{
		name:   name,
		source: source,
		handle: handle,
	}
}

// NewStatusListener listens on the system account, where deletions of the
// status messages it sent arrive one by one.
func NewStatusListener(source UpdateSource, coordinator *Coordinator) *Listener {
	return NewListener("status", source, coordinator.OnStatusDeletion)
}

// NewOriginListener listens on the admin account, which sees deletions of
// user messages in batches per channel.
func NewOriginListener(source UpdateSource, coordinator *Coordinator) *Listener {
	return NewListener("origin", source, coordinator.OnOriginDeletion)
}

func (l *Listener) Run(ctx context.Context) {
	log := logrus.WithField("listener", l.name)
	log.Info("start deletion listener")

	for {
		if ctx.Err() != nil {
			log.Info("deletion listener stopped")
			return
		}

		update, err := l.source.NextUpdate(ctx)

		if err != nil {
			if ctx.Err() != nil {
				continue
			}

			log.WithError(err).Error("failed read next update")
			continue
		}

		if !update.IsChannelDeletion() {
			continue
		}

		log.WithFields(logrus.Fields{
			"chatID":   update.ChatID,
			"messages": len(update.MessageIDs),
		}).Debug("received message deletion")

		l.handle(ctx, update.ChatID, update.MessageIDs)
	}
}
