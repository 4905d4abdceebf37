package domain

import "time"

type CmdType string

const (
	CmdTypeFile  CmdType = "file"
	CmdTypePhoto CmdType = "photo"
	CmdTypeLink  CmdType = "link"
	CmdTypeURL   CmdType = "url"
)

// InsertTask carries the fields known when a task is created. The store
// assigns nothing; ID and CreatedAt are filled by the caller.
type InsertTask struct {
	CmdType          CmdType
	Filename         string
	RootPath         string
	URL              string
	UploadURL        string
	CurrentLength    uint64
	TotalLength      uint64
	ChatID           int64
	ChatBotHandle    string
	ChatUserHandle   string
	ChatOriginHandle string
	// MessageID is the origin message the task was started from.
	MessageID int
	// MessageIndicatorID is the status message showing task progress.
	MessageIndicatorID int
	MessageOriginID    int
	AutoDelete         bool
}

type Task struct {
	ID string `json:"id"`

	CmdType          CmdType `json:"cmd_type"`
	Filename         string  `json:"filename"`
	RootPath         string  `json:"root_path"`
	URL              string  `json:"url,omitempty"`
	UploadURL        string  `json:"upload_url"`
	CurrentLength    uint64  `json:"current_length"`
	TotalLength      uint64  `json:"total_length"`
	ChatID           int64   `json:"chat_id"`
	ChatBotHandle    string  `json:"chat_bot_handle"`
	ChatUserHandle   string  `json:"chat_user_handle"`
	ChatOriginHandle string  `json:"chat_origin_handle,omitempty"`

	MessageID          int  `json:"message_id"`
	MessageIndicatorID int  `json:"message_indicator_id"`
	MessageOriginID    int  `json:"message_origin_id,omitempty"`
	AutoDelete         bool `json:"auto_delete"`

	CreatedAt time.Time `json:"created_at"`
}

func NewTask(id string, insert InsertTask, now time.Time) *Task {
	return &Task{
		ID:                 id,
		CmdType:            insert.CmdType,
		Filename:           insert.Filename,
		RootPath:           insert.RootPath,
		URL:                insert.URL,
		UploadURL:          insert.UploadURL,
		CurrentLength:      insert.CurrentLength,
		TotalLength:        insert.TotalLength,
		ChatID:             insert.ChatID,
		ChatBotHandle:      insert.ChatBotHandle,
		ChatUserHandle:     insert.ChatUserHandle,
		ChatOriginHandle:   insert.ChatOriginHandle,
		MessageID:          insert.MessageID,
		MessageIndicatorID: insert.MessageIndicatorID,
		MessageOriginID:    insert.MessageOriginID,
		AutoDelete:         insert.AutoDelete,
		CreatedAt:          now,
	}
}
