package outbox

// ChatQueue is the pending entries of one chat. Edits of the same message are
// coalesced: a newer edit replaces the content of the queued one in place.
type ChatQueue struct {
	entries []*Entry
	// edited message id -> absolute position in entries
	edits map[int]int
}

func NewChatQueue() *ChatQueue {
	return &ChatQueue{
		edits: make(map[int]int),
	}
}

func (q *ChatQueue) Push(entry *Entry) {
	if entry.Kind != KindEdit {
		q.entries = append(q.entries, entry)
		return
	}

	if idx, ok := q.edits[entry.TargetMessageID]; ok {
		replaced := q.entries[idx]
		q.entries[idx] = entry
		// the replaced caller never gets a dispatch of its own
		replaced.result <- Result{}
		return
	}

	q.edits[entry.TargetMessageID] = len(q.entries)
	q.entries = append(q.entries, entry)
}

func (q *ChatQueue) PopFront() (*Entry, bool) {
	if len(q.entries) == 0 {
		return nil, false
	}

	entry := q.entries[0]
	q.entries[0] = nil
	q.entries = q.entries[1:]

	if entry.Kind == KindEdit {
		delete(q.edits, entry.TargetMessageID)
	}

	for messageID := range q.edits {
		q.edits[messageID]--
	}

	return entry, true
}

func (q *ChatQueue) IsEmpty() bool {
	return len(q.entries) == 0
}

func (q *ChatQueue) Len() int {
	return len(q.entries)
}
