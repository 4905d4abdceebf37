package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nejkit/telegram-drive-bridge/config"
	"github.com/nejkit/telegram-drive-bridge/outbox"
)

func newBotServer(t *testing.T, handle func(method string, w http.ResponseWriter, r *http.Request)) *TelegramClient {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]

		if method == "getMe" {
			_, _ = fmt.Fprint(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"bridge","username":"bridge_bot"}}`)
			return
		}

		handle(method, w, r)
	}))

	t.Cleanup(server.Close)

	client, err := NewTelegramClientWithEndpoint(config.TelegramConfig{
		Token:         "token",
		HTTPRetries:   2,
		HTTPRetryWait: time.Millisecond,
	}, server.URL+"/bot%s/%s")

	if err != nil {
		t.Fatal(err)
	}

	return client
}

func TestReplyMessage(t *testing.T) {
	client := newBotServer(t, func(method string, w http.ResponseWriter, r *http.Request) {
		if method != "sendMessage" {
			t.Errorf("unexpected method %s", method)
		}

		if r.FormValue("reply_to_message_id") != "5" {
			t.Error("reply_to_message_id != 5")
		}

		_, _ = fmt.Fprint(w, `{"ok":true,"result":{"message_id":42,"date":0,"chat":{"id":7,"type":"private"}}}`)
	})

	message, err := client.ReplyMessage(context.Background(), 7, 5, outbox.Content{Text: "queued"})

	if err != nil {
		t.Fatal(err)
	}

	if message.ID != 42 || message.ChatID != 7 {
		t.Errorf("unexpected message %+v", message)
	}

	if client.BotUserName() != "bridge_bot" {
		t.Error("client.BotUserName() != bridge_bot")
	}
}

func TestEditNotModifiedIsNotAnError(t *testing.T) {
	client := newBotServer(t, func(_ string, w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = fmt.Fprint(w, `{"ok":false,"error_code":400,"description":"Bad Request: message is not modified"}`)
	})

	if err := client.EditMessage(context.Background(), 7, 5, outbox.Content{Text: "same"}); err != nil {
		t.Error(err)
	}
}

func TestFloodWaitIsRetried(t *testing.T) {
	var calls atomic.Int32

	client := newBotServer(t, func(_ string, w http.ResponseWriter, r *http.Request) {
		if r.FormValue("text") != "hello" {
			t.Error("retried request lost its body")
		}

		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = fmt.Fprint(w, `{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":0}}`)
			return
		}

		_, _ = fmt.Fprint(w, `{"ok":true,"result":{"message_id":43,"date":0,"chat":{"id":7,"type":"private"}}}`)
	})

	message, err := client.SendMessage(context.Background(), 7, outbox.Content{Text: "hello"})

	if err != nil {
		t.Fatal(err)
	}

	if message.ID != 43 || calls.Load() != 2 {
		t.Errorf("message %+v after %d calls", message, calls.Load())
	}
}

func TestSendFailureIsReturned(t *testing.T) {
	client := newBotServer(t, func(_ string, w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = fmt.Fprint(w, `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`)
	})

	if _, err := client.SendMessage(context.Background(), 7, outbox.Content{Text: "hello"}); err == nil {
		t.Error("forbidden send must fail")
	}
}

func TestSendIsNotRepeatedAfterServerFailure(t *testing.T) {
	var calls atomic.Int32

	client := newBotServer(t, func(_ string, w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = fmt.Fprint(w, `{"ok":false,"error_code":502,"description":"Bad Gateway"}`)
	})

	if _, err := client.SendMessage(context.Background(), 7, outbox.Content{Text: "hello"}); err == nil {
		t.Error("send after bad gateway must fail")
	}

	if calls.Load() != 1 {
		t.Errorf("sendMessage reached the server %d times", calls.Load())
	}
}

func TestEditIsRepeatedAfterServerFailure(t *testing.T) {
	var calls atomic.Int32

	client := newBotServer(t, func(_ string, w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = fmt.Fprint(w, `{"ok":false,"error_code":502,"description":"Bad Gateway"}`)
			return
		}

		_, _ = fmt.Fprint(w, `{"ok":true,"result":true}`)
	})

	if err := client.EditMessage(context.Background(), 7, 5, outbox.Content{Text: "progress"}); err != nil {
		t.Error(err)
	}

	if calls.Load() != 2 {
		t.Errorf("editMessageText reached the server %d times", calls.Load())
	}
}
