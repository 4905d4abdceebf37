package client

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-faster/errors"
	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/updates"
	"github.com/gotd/td/tg"
	"github.com/nejkit/telegram-drive-bridge/config"
	"github.com/nejkit/telegram-drive-bridge/domain"
	"github.com/sirupsen/logrus"
)

const updatesBuffer = 256

// Session is one MTProto identity. It streams message deletions seen by that
// identity and deletes channel messages on its behalf.
type Session struct {
	name string
	cfg  config.MTProtoConfig

	client    atomic.Pointer[telegram.Client]
	updates   chan domain.Update
	ready     chan struct{}
	readyOnce sync.Once
}

func NewSession(name string, cfg config.MTProtoConfig) *Session {
	return &Session{
		name:    name,
		cfg:     cfg,
		updates: make(chan domain.Update, updatesBuffer),
		ready:   make(chan struct{}),
	}
}

// Run connects and keeps the session online until ctx is done, reconnecting
// with exponential backoff. A session that cannot authorize is not retried.
func (s *Session) Run(ctx context.Context) error {
	log := logrus.WithField("session", s.name)

	policy := backoff.NewExponentialBackOff()
	policy.MaxInterval = time.Minute
	policy.MaxElapsedTime = 0

	err := backoff.RetryNotify(func() error {
		err := s.runOnce(ctx)

		if ctx.Err() != nil {
			return nil
		}

		if errors.Is(err, domain.ErrorSessionNotAuthorized) {
			return backoff.Permanent(err)
		}

		if err == nil {
			return errors.New("session closed")
		}

		return err
	}, backoff.WithContext(policy, ctx), func(err error, wait time.Duration) {
		log.WithError(err).WithField("retryIn", wait).Warn("mtproto session dropped")
	})

	if ctx.Err() != nil {
		log.Info("mtproto session stopped")
		return nil
	}

	return errors.Wrapf(err, "run %s session", s.name)
}

func (s *Session) runOnce(ctx context.Context) error {
	dispatcher := tg.NewUpdateDispatcher()
	dispatcher.OnDeleteChannelMessages(s.onDeleteChannelMessages)
	dispatcher.OnDeleteMessages(s.onDeleteMessages)

	// The manager fetches the update state and fills gaps, so channel
	// deletions keep arriving for the account.
	manager := updates.New(updates.Config{
		Handler: dispatcher,
	})

	client := telegram.NewClient(s.cfg.APIID, s.cfg.APIHash, telegram.Options{
		SessionStorage: &session.FileStorage{Path: s.cfg.SessionFile},
		UpdateHandler:  manager,
	})

	s.client.Store(client)

	return client.Run(ctx, func(ctx context.Context) error {
		if err := s.authorize(ctx, client); err != nil {
			return err
		}

		self, err := client.Self(ctx)

		if err != nil {
			return errors.Wrap(err, "get self")
		}

		return manager.Run(ctx, client.API(), self.ID, updates.AuthOptions{
			IsBot: self.Bot,
			OnStart: func(context.Context) {
				s.readyOnce.Do(func() { close(s.ready) })
				logrus.WithField("session", s.name).Info("mtproto session online")
			},
		})
	})
}

func (s *Session) authorize(ctx context.Context, client *telegram.Client) error {
	status, err := client.Auth().Status(ctx)

	if err != nil {
		return errors.Wrap(err, "auth status")
	}

	if status.Authorized {
		return nil
	}

	if s.cfg.BotToken == "" {
		return domain.ErrorSessionNotAuthorized
	}

	if _, err := client.Auth().Bot(ctx, s.cfg.BotToken); err != nil {
		return errors.Wrap(err, "bot login")
	}

	return nil
}

func (s *Session) onDeleteChannelMessages(ctx context.Context, _ tg.Entities, update *tg.UpdateDeleteChannelMessages) error {
	s.emit(ctx, channelDeletion(update))
	return nil
}

func (s *Session) onDeleteMessages(ctx context.Context, _ tg.Entities, update *tg.UpdateDeleteMessages) error {
	s.emit(ctx, domain.Update{Kind: domain.UpdateMessagesDeleted, MessageIDs: update.Messages})
	return nil
}

func (s *Session) emit(ctx context.Context, update domain.Update) {
	select {
	case s.updates <- update:
	case <-ctx.Done():
	}
}

// channelDeletion converts a channel deletion into Bot API chat terms.
func channelDeletion(update *tg.UpdateDeleteChannelMessages) domain.Update {
	return domain.Update{
		Kind:       domain.UpdateMessagesDeleted,
		ChatID:     domain.ChannelToBotChatID(update.ChannelID),
		MessageIDs: update.Messages,
	}
}

func (s *Session) NextUpdate(ctx context.Context) (domain.Update, error) {
	select {
	case update := <-s.updates:
		return update, nil
	case <-ctx.Done():
		return domain.Update{}, ctx.Err()
	}
}

// DeleteMessages deletes channel messages; it waits for the session to come
// online first.
func (s *Session) DeleteMessages(ctx context.Context, chat domain.ChatHandle, messageIDs []int) error {
	select {
	case <-s.ready:
	case <-ctx.Done():
		return ctx.Err()
	}

	client := s.client.Load()

	_, err := client.API().ChannelsDeleteMessages(ctx, &tg.ChannelsDeleteMessagesRequest{
		Channel: &tg.InputChannel{
			ChannelID:  chat.ChannelID,
			AccessHash: chat.AccessHash,
		},
		ID: messageIDs,
	})

	if err != nil {
		return errors.Wrapf(err, "delete %d messages of channel %d", len(messageIDs), chat.ChannelID)
	}

	return nil
}
