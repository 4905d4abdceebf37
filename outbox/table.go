package outbox

import "sync"

// Table maps chat ids to their pending queues. A chat is present only while
// it has at least one pending entry.
type Table struct {
	mu     sync.Mutex
	queues map[int64]*ChatQueue
	order  *chatOrder
}

func NewTable() *Table {
	return &Table{
		queues: make(map[int64]*ChatQueue),
		order:  newChatOrder(),
	}
}

func (t *Table) Push(entry *Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	queue, ok := t.queues[entry.ChatID]

	if !ok {
		queue = NewChatQueue()
		t.queues[entry.ChatID] = queue
		t.order.Push(entry.ChatID)
	}

	queue.Push(entry)
}

// Pending reports the number of queued entries for chatID.
func (t *Table) Pending(chatID int64) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	queue, ok := t.queues[chatID]

	if !ok {
		return 0
	}

	return queue.Len()
}

func (t *Table) Chats() []int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.order.Snapshot()
}

// drain runs fn on the front entry of every chat, in chat order, holding
// the table lock for the whole pass. Chats left empty are removed.
func (t *Table) drain(fn func(entry *Entry)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, chatID := range t.order.Snapshot() {
		queue := t.queues[chatID]

		if entry, ok := queue.PopFront(); ok {
			fn(entry)
		}

		if queue.IsEmpty() {
			delete(t.queues, chatID)
			t.order.Omit(chatID)
		}
	}
}
