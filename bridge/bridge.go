package bridge

import (
	"context"
	"sync"

	"github.com/nejkit/telegram-drive-bridge/config"
	"github.com/nejkit/telegram-drive-bridge/domain"
	"github.com/nejkit/telegram-drive-bridge/locale"
	"github.com/nejkit/telegram-drive-bridge/outbox"
	"github.com/nejkit/telegram-drive-bridge/storage"
	"github.com/nejkit/telegram-drive-bridge/tasker"
	"github.com/nejkit/telegram-drive-bridge/wrapper"
	"github.com/sirupsen/logrus"
)

type Deps struct {
	Messenger outbox.Messenger
	Store     storage.TaskStorage
	Locales   *locale.LocalizationProvider

	// Deleter removes messages through the admin account.
	Deleter tasker.MessageDeleter
	// StatusSource streams deletions seen by the system account, OriginSource
	// those seen by the admin account. Either may be nil.
	StatusSource tasker.UpdateSource
	OriginSource tasker.UpdateSource
}

// Bridge wires the outgoing message dispatcher, the task runner and the
// deletion listeners together.
type Bridge struct {
	dispatcher  *outbox.Dispatcher
	coordinator *tasker.Coordinator
	tasker      *tasker.Tasker
	listeners   []*tasker.Listener
	store       storage.TaskStorage
	locales     *locale.LocalizationProvider
}

// New assembles a bridge. Tasks started through it stop when ctx is done.
func New(ctx context.Context, cfg config.Config, deps Deps) *Bridge {
	dispatcher := outbox.NewDispatcher(deps.Messenger, cfg.Dispatch.JitterMin, cfg.Dispatch.JitterMax)
	registry := tasker.NewRegistry()
	coordinator := tasker.NewCoordinator(registry, deps.Store, deps.Deleter)

	b := &Bridge{
		dispatcher:  dispatcher,
		coordinator: coordinator,
		tasker:      tasker.NewTasker(ctx, registry, deps.Store, dispatcher, deps.Locales),
		store:       deps.Store,
		locales:     deps.Locales,
	}

	if deps.StatusSource != nil {
		b.listeners = append(b.listeners, tasker.NewStatusListener(deps.StatusSource, coordinator))
	}

	if deps.OriginSource != nil {
		b.listeners = append(b.listeners, tasker.NewOriginListener(deps.OriginSource, coordinator))
	}

	return b
}

func (b *Bridge) Dispatcher() *outbox.Dispatcher {
	return b.dispatcher
}

// Run starts the dispatcher and the listeners and blocks until ctx is done
// and every running task has returned.
func (b *Bridge) Run(ctx context.Context) {
	b.RecoverInterrupted(ctx)
	b.dispatcher.Start(ctx)

	var wg sync.WaitGroup

	for _, listener := range b.listeners {
		wg.Add(1)

		go func() {
			defer wg.Done()
			listener.Run(ctx)
		}()
	}

	<-ctx.Done()

	wg.Wait()
	b.tasker.Wait()

	logrus.Info("bridge stopped")
}

// Submission is a task request coming from a command handler.
type Submission struct {
	Task domain.InsertTask
	// Chat addresses the origin chat through the admin account.
	Chat domain.ChatHandle
	Run  tasker.TaskFunc
}

// SubmitTask replies to the origin message with a status message and starts
// the task bound to it.
func (b *Bridge) SubmitTask(ctx context.Context, submission Submission) (*domain.Task, error) {
	defer wrapper.Trace(ctx, "bridge.SubmitTask")()

	insert := submission.Task

	status, err := b.dispatcher.Reply(ctx, insert.ChatID, insert.MessageID, outbox.Content{
		Text: b.locales.GetDefaultLocalization(locale.KeyTaskQueued, insert.Filename),
	})

	if err != nil {
		return nil, wrapper.WithContext("send status message", err)
	}

	insert.MessageIndicatorID = status.ID

	if submission.Chat != (domain.ChatHandle{}) {
		insert.ChatUserHandle = submission.Chat.Pack()
	}

	return b.tasker.Start(ctx, insert, submission.Chat, submission.Run)
}

// RecoverInterrupted reports records left by a previous run as interrupted
// and drops them: no task of this process runs them.
func (b *Bridge) RecoverInterrupted(ctx context.Context) {
	tasks, err := b.store.ListTasks(ctx)

	if err != nil {
		logrus.WithError(err).Error("failed list stored tasks")
		return
	}

	for _, task := range tasks {
		log := logrus.WithFields(logrus.Fields{
			"chatID": task.ChatID,
			"taskID": task.ID,
		})

		b.dispatcher.Push(outbox.NewEdit(task.ChatID, task.MessageIndicatorID, outbox.Content{
			Text: b.locales.GetDefaultLocalization(locale.KeyTaskInterrupted, task.Filename),
		}))

		if err := b.store.DeleteTask(ctx, task.ID); err != nil {
			log.WithError(err).Error("failed delete interrupted task")
			continue
		}

		log.Info("interrupted task dropped")
	}
}
