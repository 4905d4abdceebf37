package outbox

type orderMember struct {
	ChatID int64
	Next   *orderMember
}

// chatOrder keeps chat ids in the order they first received a pending entry.
// It is not synchronized; the Table lock covers it.
type chatOrder struct {
	currentMember *orderMember
	lastMember    *orderMember
	members       map[int64]struct{}
}

func newChatOrder() *chatOrder {
	return &chatOrder{
		members: make(map[int64]struct{}),
	}
}

func (q *chatOrder) Push(chatID int64) {
	if _, ok := q.members[chatID]; ok {
		return
	}

	member := &orderMember{
		ChatID: chatID,
	}

	if q.currentMember == nil {
		q.currentMember = member
	}

	if q.lastMember != nil {
		q.lastMember.Next = member
	}

	q.lastMember = member
	q.members[chatID] = struct{}{}
}

func (q *chatOrder) First() *orderMember {
	return q.currentMember
}

func (q *chatOrder) Omit(chatID int64) {
	if _, ok := q.members[chatID]; !ok {
		return
	}

	delete(q.members, chatID)

	if q.currentMember.ChatID == chatID {
		if q.currentMember == q.lastMember {
			q.lastMember = nil
		}

		q.currentMember = q.currentMember.Next
		return
	}

	for member := q.currentMember; member.Next != nil; member = member.Next {
		if member.Next.ChatID != chatID {
			continue
		}

		if member.Next == q.lastMember {
			q.lastMember = member
		}

		member.Next = member.Next.Next
		return
	}
}

func (q *chatOrder) Snapshot() []int64 {
	chatIDs := make([]int64, 0, len(q.members))

	for member := q.currentMember; member != nil; member = member.Next {
		chatIDs = append(chatIDs, member.ChatID)
	}

	return chatIDs
}

func (q *chatOrder) Len() int {
	return len(q.members)
}
