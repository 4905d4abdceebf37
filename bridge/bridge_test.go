package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/nejkit/telegram-drive-bridge/config"
	"github.com/nejkit/telegram-drive-bridge/domain"
	"github.com/nejkit/telegram-drive-bridge/locale"
	"github.com/nejkit/telegram-drive-bridge/outbox"
	"github.com/nejkit/telegram-drive-bridge/storage"
	"github.com/nejkit/telegram-drive-bridge/tasker"
)

type fakeMessenger struct {
	mu     sync.Mutex
	nextID int
	edits  []string
}

func (f *fakeMessenger) SendMessage(_ context.Context, chatID int64, _ outbox.Content) (outbox.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++

	return outbox.Message{ChatID: chatID, ID: 100 + f.nextID}, nil
}

func (f *fakeMessenger) ReplyMessage(ctx context.Context, chatID int64, _ int, content outbox.Content) (outbox.Message, error) {
	return f.SendMessage(ctx, chatID, content)
}

func (f *fakeMessenger) EditMessage(_ context.Context, _ int64, _ int, content outbox.Content) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.edits = append(f.edits, content.Text)

	return nil
}

type fakeDeleter struct {
	deleted chan []int
}

func (f *fakeDeleter) DeleteMessages(_ context.Context, _ domain.ChatHandle, messageIDs []int) error {
	f.deleted <- messageIDs
	return nil
}

type fakeSource struct {
	updates chan domain.Update
}

func (f *fakeSource) NextUpdate(ctx context.Context) (domain.Update, error) {
	select {
	case update := <-f.updates:
		return update, nil
	case <-ctx.Done():
		return domain.Update{}, ctx.Err()
	}
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Dispatch.JitterMin = time.Millisecond
	cfg.Dispatch.JitterMax = 2 * time.Millisecond

	return cfg
}

func newTestStore(t *testing.T) storage.TaskStorage {
	t.Helper()

	cache, err := storage.NewTaskCache()

	if err != nil {
		t.Fatal(err)
	}

	return storage.NewInMemoryTaskStorage(cache)
}

func newTestLocales(t *testing.T) *locale.LocalizationProvider {
	t.Helper()

	locales, err := locale.NewLocalizationProvider("")

	if err != nil {
		t.Fatal(err)
	}

	return locales
}

func TestStatusDeletionAbortsSubmittedTask(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := newTestStore(t)
	deleter := &fakeDeleter{deleted: make(chan []int, 1)}
	source := &fakeSource{updates: make(chan domain.Update, 1)}
	handle := domain.ChatHandle{ChannelID: 1, AccessHash: 7}

	b := New(ctx, testConfig(), Deps{
		Messenger:    &fakeMessenger{},
		Store:        store,
		Locales:      newTestLocales(t),
		Deleter:      deleter,
		StatusSource: source,
	})

	stopped := make(chan struct{})

	go func() {
		b.Run(ctx)
		close(stopped)
	}()

	aborted := make(chan struct{})

	task, err := b.SubmitTask(ctx, Submission{
		Task: domain.InsertTask{
			CmdType:   domain.CmdTypeURL,
			Filename:  "video.mp4",
			ChatID:    domain.ChannelToBotChatID(handle.ChannelID),
			MessageID: 5,
		},
		Chat: handle,
		Run: func(ctx context.Context, _ *domain.Task, _ tasker.ProgressFunc) error {
			<-ctx.Done()
			close(aborted)
			return ctx.Err()
		},
	})

	if err != nil {
		t.Fatal(err)
	}

	if task.MessageIndicatorID != 101 {
		t.Errorf("status message id = %d", task.MessageIndicatorID)
	}

	if task.ChatUserHandle != handle.Pack() {
		t.Error("admin chat handle must be stored with the task")
	}

	source.updates <- domain.Update{
		Kind:       domain.UpdateMessagesDeleted,
		ChatID:     task.ChatID,
		MessageIDs: []int{task.MessageIndicatorID},
	}

	select {
	case <-aborted:
	case <-time.After(time.Second):
		t.Fatal("task was not aborted")
	}

	select {
	case ids := <-deleter.deleted:
		if len(ids) != 1 || ids[0] != 5 {
			t.Errorf("deleted %v, want origin message 5", ids)
		}
	case <-time.After(time.Second):
		t.Fatal("origin message was not deleted")
	}

	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("bridge did not stop")
	}
}

func TestRecoverInterruptedDropsStaleTasks(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	messenger := &fakeMessenger{}

	stale := domain.NewTask("stale", domain.InsertTask{ChatID: 1, MessageID: 5, MessageIndicatorID: 10}, time.Now())

	if err := store.InsertTask(ctx, stale); err != nil {
		t.Fatal(err)
	}

	b := New(ctx, testConfig(), Deps{Messenger: messenger, Store: store, Locales: newTestLocales(t)})
	b.RecoverInterrupted(ctx)

	if _, err := store.GetTask(ctx, "stale"); !errors.Is(err, domain.ErrorTaskNotFound) {
		t.Error("stale task must be dropped")
	}

	if b.Dispatcher().Table().Pending(1) != 1 {
		t.Error("interrupted status edit must be queued")
	}
}

func freeAddr(t *testing.T) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")

	if err != nil {
		t.Fatal(err)
	}

	addr := listener.Addr().String()
	_ = listener.Close()

	return addr
}

func TestAwaitAuthorizationReceivesCode(t *testing.T) {
	addr := freeAddr(t)

	go func() {
		for i := 0; i < 50; i++ {
			resp, err := http.Get(fmt.Sprintf("http://%s/auth?code=xyz", addr))

			if err == nil {
				_ = resp.Body.Close()
				return
			}

			time.Sleep(10 * time.Millisecond)
		}
	}()

	code, err := AwaitAuthorization(context.Background(), addr, "/auth", 5*time.Second)

	if err != nil {
		t.Fatal(err)
	}

	if code != "xyz" {
		t.Error("code != xyz")
	}

	if _, err := net.Dial("tcp", addr); err == nil {
		t.Error("callback server must be shut down after the code arrived")
	}
}

func TestAwaitAuthorizationTimesOut(t *testing.T) {
	addr := freeAddr(t)

	_, err := AwaitAuthorization(context.Background(), addr, "/auth", 20*time.Millisecond)

	if !errors.Is(err, domain.ErrorAuthorizationCancelled) {
		t.Errorf("err = %v", err)
	}

	if _, err := net.Dial("tcp", addr); err == nil {
		t.Error("callback server must be shut down after the timeout")
	}
}
