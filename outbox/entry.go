package outbox

import "sync/atomic"

type Kind int

const (
	KindSend Kind = iota
	KindReply
	KindEdit
)

func (k Kind) String() string {
	switch k {
	case KindSend:
		return "send"
	case KindReply:
		return "reply"
	case KindEdit:
		return "edit"
	default:
		return "unknown"
	}
}

type Content struct {
	Text      string
	ParseMode string
}

type Message struct {
	ChatID int64
	ID     int
}

// Result is delivered once per entry. For edits Message is the edited message;
// an edit replaced by a newer one for the same message gets a zero Result.
type Result struct {
	Message Message
	Err     error
}

// Entry is one queued outgoing operation. TargetMessageID is the message
// replied to for KindReply and the edited message for KindEdit.
type Entry struct {
	Kind            Kind
	ChatID          int64
	TargetMessageID int
	Content         Content

	result    chan Result
	abandoned atomic.Bool
}

func newEntry(kind Kind, chatID int64, target int, content Content) *Entry {
	return &Entry{
		Kind:            kind,
		ChatID:          chatID,
		TargetMessageID: target,
		Content:         content,
		result:          make(chan Result, 1),
	}
}

func NewSend(chatID int64, content Content) *Entry {
	return newEntry(KindSend, chatID, 0, content)
}

func NewReply(chatID int64, replyTo int, content Content) *Entry {
	return newEntry(KindReply, chatID, replyTo, content)
}

func NewEdit(chatID int64, messageID int, content Content) *Entry {
	return newEntry(KindEdit, chatID, messageID, content)
}

// Result returns the channel the dispatcher delivers this entry's outcome on.
func (e *Entry) Result() <-chan Result {
	return e.result
}
