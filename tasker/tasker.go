package tasker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/nejkit/telegram-drive-bridge/domain"
	"github.com/nejkit/telegram-drive-bridge/locale"
	"github.com/nejkit/telegram-drive-bridge/outbox"
	"github.com/nejkit/telegram-drive-bridge/storage"
	"github.com/nejkit/telegram-drive-bridge/wrapper"
	"github.com/sirupsen/logrus"
)

// ProgressFunc reports how many bytes of the task are done.
type ProgressFunc func(currentLength uint64)

// TaskFunc performs the transfer. It must return soon after ctx is done.
type TaskFunc func(ctx context.Context, task *domain.Task, progress ProgressFunc) error

type StatusEditor interface {
	Push(entry *outbox.Entry)
}

// Tasker creates tasks and runs them. A task's aborter is registered before
// the task starts, and the task's status message follows its progress.
type Tasker struct {
	base     context.Context
	registry *Registry
	store    storage.TaskStorage
	status   StatusEditor
	locales  *locale.LocalizationProvider

	wg  sync.WaitGroup
	now func() time.Time
}

// NewTasker returns a Tasker whose tasks live under base: cancelling base
// aborts every running task.
func NewTasker(
	base context.Context,
	registry *Registry,
	store storage.TaskStorage,
	status StatusEditor,
	locales *locale.LocalizationProvider,
) *Tasker {
	return &Tasker{
		base:     base,
		registry: registry,
		store:    store,
		status:   status,
		locales:  locales,
		now:      time.Now,
	}
}

// Start stores the task record and registers its aborter as one step under
// the registry lock, then runs fn in the background.
func (t *Tasker) Start(ctx context.Context, insert domain.InsertTask, handle domain.ChatHandle, fn TaskFunc) (*domain.Task, error) {
	defer wrapper.Trace(ctx, "tasker.Start")()

	key := Key{ChatID: insert.ChatID, StatusMessageID: insert.MessageIndicatorID}

	var (
		task    *domain.Task
		taskCtx context.Context
		cancel  context.CancelFunc
	)

	err := t.registry.Register(key, func() (*Aborter, error) {
		task = domain.NewTask(uuid.NewString(), insert, t.now())

		if err := t.store.InsertTask(ctx, task); err != nil {
			return nil, err
		}

		taskCtx, cancel = context.WithCancel(wrapper.FillCtx(t.base, task.ChatID, task.ID))

		return NewAborter(task.ID, task.ChatID, handle, task.MessageID, cancel), nil
	})

	if err != nil {
		return nil, wrapper.WithContext("register task", err)
	}

	wrapper.Logger(taskCtx).WithFields(logrus.Fields{
		"filename": task.Filename,
		"size":     humanize.IBytes(task.TotalLength),
	}).Info("inserted task")

	t.wg.Add(1)

	go func() {
		defer t.wg.Done()
		defer cancel()
		t.run(taskCtx, key, task, fn)
	}()

	return task, nil
}

func (t *Tasker) run(ctx context.Context, key Key, task *domain.Task, fn TaskFunc) {
	log := wrapper.Logger(ctx)

	var current atomic.Uint64
	current.Store(task.CurrentLength)

	err := fn(ctx, task, func(currentLength uint64) {
		current.Store(currentLength)
		t.reportProgress(ctx, task, currentLength)
	})

	if !t.registry.Complete(key) {
		log.Info("task aborted")
		return
	}

	// The record stays for the next start to report as interrupted.
	if t.base.Err() != nil {
		log.Info("task interrupted by shutdown")
		return
	}

	if err != nil {
		log.WithError(err).Error("task failed")
		t.editStatus(task, t.locales.GetDefaultLocalization(locale.KeyTaskFailed, task.Filename, err.Error()))
	} else {
		log.Info("task completed")
		t.editStatus(task, t.locales.GetDefaultLocalization(locale.KeyTaskCompleted, task.Filename, humanize.IBytes(current.Load())))
	}

	if err := t.store.DeleteTask(context.WithoutCancel(ctx), task.ID); err != nil {
		log.WithError(err).Error("failed delete completed task record")
	}
}

func (t *Tasker) reportProgress(ctx context.Context, task *domain.Task, currentLength uint64) {
	if ctx.Err() != nil {
		return
	}

	if err := t.store.UpdateProgress(ctx, task.ID, currentLength); err != nil {
		wrapper.Logger(ctx).WithError(err).Warn("failed store task progress")
	}

	percent := 0

	if task.TotalLength > 0 {
		percent = int(currentLength * 100 / task.TotalLength)
	}

	t.editStatus(task, t.locales.GetDefaultLocalization(
		locale.KeyTaskProgress,
		task.Filename,
		humanize.IBytes(currentLength),
		humanize.IBytes(task.TotalLength),
		percent,
	))
}

// editStatus queues the edit without waiting; repeated progress edits of one
// status message collapse in the outbox.
func (t *Tasker) editStatus(task *domain.Task, text string) {
	t.status.Push(outbox.NewEdit(task.ChatID, task.MessageIndicatorID, outbox.Content{Text: text}))
}

// Wait blocks until every started task has returned.
func (t *Tasker) Wait() {
	t.wg.Wait()
}
