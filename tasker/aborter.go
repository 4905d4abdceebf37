package tasker

import (
	"context"
	"sync/atomic"

	"github.com/nejkit/telegram-drive-bridge/domain"
)

// Aborter is the cancellation capability of one running task together with
// what is needed to clean up after it: the origin chat as seen by the admin
// session and the origin message id.
type Aborter struct {
	TaskID     string
	ChatID     int64
	ChatHandle domain.ChatHandle
	MessageID  int

	cancel  context.CancelFunc
	aborted atomic.Bool
}

func NewAborter(taskID string, chatID int64, handle domain.ChatHandle, messageID int, cancel context.CancelFunc) *Aborter {
	return &Aborter{
		TaskID:     taskID,
		ChatID:     chatID,
		ChatHandle: handle,
		MessageID:  messageID,
		cancel:     cancel,
	}
}

// Abort signals the task to stop. It does not wait for the task to return.
func (a *Aborter) Abort() {
	if a.aborted.CompareAndSwap(false, true) {
		a.cancel()
	}
}

func (a *Aborter) Aborted() bool {
	return a.aborted.Load()
}
