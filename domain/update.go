package domain

type UpdateKind int

const (
	UpdateOther UpdateKind = iota
	UpdateMessagesDeleted
)

// Update is the part of a platform event the core reacts to. ChatID uses the
// Bot API form; it is zero when the platform did not say which chat the
// deleted messages belonged to (private chats and basic groups).
type Update struct {
	Kind       UpdateKind
	ChatID     int64
	MessageIDs []int
}

func (u Update) IsChannelDeletion() bool {
	return u.Kind == UpdateMessagesDeleted && u.ChatID != 0
}
