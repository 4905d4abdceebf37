package outbox

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/nejkit/telegram-drive-bridge/domain"
	"github.com/sirupsen/logrus"
)

type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, content Content) (Message, error)
	ReplyMessage(ctx context.Context, chatID int64, replyTo int, content Content) (Message, error)
	EditMessage(ctx context.Context, chatID int64, messageID int, content Content) error
}

// Dispatcher drains the Table against a Messenger: one entry per chat per
// pass, then a jittered pause.
type Dispatcher struct {
	table     *Table
	messenger Messenger

	jitterMin time.Duration
	jitterMax time.Duration

	startOnce sync.Once
}

func NewDispatcher(messenger Messenger, jitterMin, jitterMax time.Duration) *Dispatcher {
	return &Dispatcher{
		table:     NewTable(),
		messenger: messenger,
		jitterMin: jitterMin,
		jitterMax: jitterMax,
	}
}

func (d *Dispatcher) Table() *Table {
	return d.table
}

func (d *Dispatcher) Push(entry *Entry) {
	d.table.Push(entry)
}

func (d *Dispatcher) Send(ctx context.Context, chatID int64, content Content) (Message, error) {
	return d.await(ctx, NewSend(chatID, content))
}

func (d *Dispatcher) Reply(ctx context.Context, chatID int64, replyTo int, content Content) (Message, error) {
	return d.await(ctx, NewReply(chatID, replyTo, content))
}

func (d *Dispatcher) Edit(ctx context.Context, chatID int64, messageID int, content Content) error {
	_, err := d.await(ctx, NewEdit(chatID, messageID, content))
	return err
}

func (d *Dispatcher) await(ctx context.Context, entry *Entry) (Message, error) {
	d.Push(entry)

	select {
	case result := <-entry.result:
		return result.Message, result.Err

	case <-ctx.Done():
		entry.abandoned.Store(true)
		return Message{}, ctx.Err()
	}
}

// Start launches Run in the background. Only the first call has an effect.
func (d *Dispatcher) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		go d.Run(ctx)
	})
}

func (d *Dispatcher) Run(ctx context.Context) {
	logrus.Info("start outgoing message dispatcher")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logrus.Info("outgoing message dispatcher stopped")
			return

		case <-timer.C:
			d.pass(ctx)
			timer.Reset(d.jitter())
		}
	}
}

func (d *Dispatcher) jitter() time.Duration {
	if d.jitterMax <= d.jitterMin {
		return d.jitterMin
	}

	return d.jitterMin + rand.N(d.jitterMax-d.jitterMin)
}

func (d *Dispatcher) pass(ctx context.Context) {
	d.table.drain(func(entry *Entry) {
		d.deliver(entry, d.dispatch(ctx, entry))
	})
}

func (d *Dispatcher) dispatch(ctx context.Context, entry *Entry) Result {
	switch entry.Kind {
	case KindSend:
		message, err := d.messenger.SendMessage(ctx, entry.ChatID, entry.Content)
		return Result{Message: message, Err: err}

	case KindReply:
		message, err := d.messenger.ReplyMessage(ctx, entry.ChatID, entry.TargetMessageID, entry.Content)
		return Result{Message: message, Err: err}

	default:
		err := d.messenger.EditMessage(ctx, entry.ChatID, entry.TargetMessageID, entry.Content)
		return Result{Message: Message{ChatID: entry.ChatID, ID: entry.TargetMessageID}, Err: err}
	}
}

func (d *Dispatcher) deliver(entry *Entry, result Result) {
	log := logrus.WithFields(logrus.Fields{
		"chatID":    entry.ChatID,
		"kind":      entry.Kind.String(),
		"messageID": entry.TargetMessageID,
	})

	if result.Err != nil {
		log.WithError(result.Err).Debug("failed dispatch queued message")
	}

	if entry.abandoned.Load() {
		log.WithError(domain.ErrorChannelAbandoned).Warn("discard queued message result")
		return
	}

	select {
	case entry.result <- result:
	default:
		log.WithError(domain.ErrorChannelAbandoned).Warn("result already delivered, discard")
	}
}
