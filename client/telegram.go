package client

import (
	"context"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/nejkit/telegram-drive-bridge/config"
	"github.com/nejkit/telegram-drive-bridge/limiter"
	"github.com/nejkit/telegram-drive-bridge/outbox"
	"github.com/nejkit/telegram-drive-bridge/wrapper"
	"golang.org/x/time/rate"
)

var _ outbox.Messenger = (*TelegramClient)(nil)

// TelegramClient sends, replies to and edits messages through the Bot API.
type TelegramClient struct {
	api *tgbotapi.BotAPI

	chatLimiter   *limiter.ChatLimiter
	globalLimiter *rate.Limiter
}

func NewTelegramClient(cfg config.TelegramConfig) (*TelegramClient, error) {
	return NewTelegramClientWithEndpoint(cfg, tgbotapi.APIEndpoint)
}

// NewTelegramClientWithEndpoint talks to a Bot API server other than the
// public one, such as a local bot api server.
func NewTelegramClientWithEndpoint(cfg config.TelegramConfig, endpoint string) (*TelegramClient, error) {
	httpClient := &http.Client{
		Transport: &RetryTransport{
			Base:    http.DefaultTransport,
			Retries: cfg.HTTPRetries,
			Wait:    cfg.HTTPRetryWait,
		},
	}

	botApi, err := tgbotapi.NewBotAPIWithClient(cfg.Token, endpoint, httpClient)

	if err != nil {
		return nil, wrapper.WithContext("create bot api client", err)
	}

	chatRate := rate.Limit(-1)

	if cfg.MessagePerSecond > 0 {
		chatRate = rate.Limit(cfg.MessagePerSecond)
	}

	globalPerSecond := cfg.GlobalPerSecond

	if globalPerSecond <= 0 {
		globalPerSecond = 25
	}

	return &TelegramClient{
		api:           botApi,
		chatLimiter:   limiter.NewChatLimiter(chatRate, 1),
		globalLimiter: rate.NewLimiter(rate.Limit(globalPerSecond), globalPerSecond),
	}, nil
}

func (t *TelegramClient) RunChatRatesCleanup(ctx context.Context) {
	go t.chatLimiter.Run(ctx)
}

func (t *TelegramClient) wait(ctx context.Context, chatID int64) error {
	if err := t.globalLimiter.Wait(ctx); err != nil {
		return err
	}

	return t.chatLimiter.Wait(ctx, chatID)
}

func (t *TelegramClient) SendMessage(ctx context.Context, chatID int64, content outbox.Content) (outbox.Message, error) {
	defer wrapper.Trace(ctx, "client.SendMessage")()

	cfg := tgbotapi.NewMessage(chatID, content.Text)
	cfg.ParseMode = content.ParseMode

	return t.send(ctx, chatID, cfg)
}

func (t *TelegramClient) ReplyMessage(ctx context.Context, chatID int64, replyTo int, content outbox.Content) (outbox.Message, error) {
	defer wrapper.Trace(ctx, "client.ReplyMessage")()

	cfg := tgbotapi.NewMessage(chatID, content.Text)
	cfg.ParseMode = content.ParseMode
	cfg.ReplyToMessageID = replyTo

	return t.send(ctx, chatID, cfg)
}

func (t *TelegramClient) send(ctx context.Context, chatID int64, cfg tgbotapi.MessageConfig) (outbox.Message, error) {
	if err := t.wait(ctx, chatID); err != nil {
		return outbox.Message{}, err
	}

	response, err := t.api.Send(cfg)

	if err != nil {
		return outbox.Message{}, wrapper.WithContext("send message", err)
	}

	return outbox.Message{ChatID: response.Chat.ID, ID: response.MessageID}, nil
}

// EditMessage replaces the text of a message. An edit that would not change
// the text is not an error.
func (t *TelegramClient) EditMessage(ctx context.Context, chatID int64, messageID int, content outbox.Content) error {
	defer wrapper.Trace(ctx, "client.EditMessage")()

	cfg := tgbotapi.NewEditMessageText(chatID, messageID, content.Text)
	cfg.ParseMode = content.ParseMode

	if err := t.wait(ctx, chatID); err != nil {
		return err
	}

	_, err := t.api.Request(cfg)

	if err != nil && strings.Contains(err.Error(), "message is not modified") {
		return nil
	}

	return wrapper.WithContext("edit message", err)
}

// BotUserName is the username the bot token belongs to.
func (t *TelegramClient) BotUserName() string {
	return t.api.Self.UserName
}
