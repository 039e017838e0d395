package telegramadapter

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"fieldreportbot/pkg/ports/botport"
)

func TestAdapterSendMessageSuccess(t *testing.T) {
	fc := &fakeClient{
		sendFn: func(chatID int64, text string, markup interface{}) (tgbotapi.Message, error) {
			return tgbotapi.Message{
				MessageID: 42,
				Text:      text,
				Chat:      &tgbotapi.Chat{ID: chatID},
			}, nil
		},
	}
	adapter, err := New(fc, testLogger{t})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("ok", "data"),
		),
	)

	msg, err := adapter.SendMessage(context.Background(), 7, "hello", keyboard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.ChatID != 7 || msg.MessageID != 42 {
		t.Fatalf("unexpected bot message: %+v", msg)
	}
	if msg.Transport != "telegram" {
		t.Fatalf("expected transport 'telegram', got %s", msg.Transport)
	}
	if msg.Payload != "hello" {
		t.Fatalf("expected payload 'hello', got %s", msg.Payload)
	}
}

func TestAdapterSendMessageWrapsRateLimitError(t *testing.T) {
	expectedErr := errors.New("Too Many Requests: retry after 3")
	fc := &fakeClient{
		sendFn: func(int64, string, interface{}) (tgbotapi.Message, error) {
			return tgbotapi.Message{}, expectedErr
		},
	}
	adapter, err := New(fc, testLogger{t})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = adapter.SendMessage(context.Background(), 1, "hi", nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	var be *botport.BotError
	if !errors.As(err, &be) {
		t.Fatalf("expected BotError, got %T", err)
	}
	if be.Code != "rate_limited" {
		t.Fatalf("expected rate_limited code, got %s", be.Code)
	}
	if be.RetryAfter != 3*time.Second {
		t.Fatalf("expected RetryAfter=3s, got %v", be.RetryAfter)
	}
}

func TestAdapterEditMessageClassifiesNotModified(t *testing.T) {
	fc := &fakeClient{
		editFn: func(int64, int, string, *tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
			return tgbotapi.Message{}, errors.New("Bad Request: message is not modified")
		},
	}
	adapter, err := New(fc, testLogger{t})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = adapter.EditMessage(context.Background(), 1, 2, "text", nil)
	if !botport.IsCode(err, "message_not_modified") {
		t.Fatalf("expected message_not_modified, got %v", err)
	}
}

func TestAdapterEditMessageRejectsInvalidMarkup(t *testing.T) {
	adapter, err := New(&fakeClient{}, testLogger{t})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = adapter.EditMessage(context.Background(), 1, 2, "text", "bad markup")
	if err == nil {
		t.Fatalf("expected error")
	}
	var be *botport.BotError
	if !errors.As(err, &be) {
		t.Fatalf("expected BotError, got %T", err)
	}
	if be.Code != "bad_payload" {
		t.Fatalf("expected bad_payload, got %s", be.Code)
	}
}

func TestAdapterDeleteMessageClassifiesNotFound(t *testing.T) {
	fc := &fakeClient{
		deleteFn: func(int64, int) error {
			return errors.New("Bad Request: message to delete not found")
		},
	}
	adapter, err := New(fc, testLogger{t})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = adapter.DeleteMessage(context.Background(), 1, 2)
	if !botport.IsCode(err, "message_not_found") {
		t.Fatalf("expected message_not_found, got %v", err)
	}
}

func TestAdapterHonorsCancelledContext(t *testing.T) {
	adapter, err := New(&fakeClient{}, testLogger{t})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = adapter.SendMessage(ctx, 1, "hi", nil)
	if !botport.IsCode(err, "context_canceled") {
		t.Fatalf("expected context_canceled, got %v", err)
	}
}

type fakeClient struct {
	sendFn   func(chatID int64, text string, markup interface{}) (tgbotapi.Message, error)
	editFn   func(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error)
	cbFn     func(callbackID string, text string) error
	deleteFn func(chatID int64, messageID int) error
}

func (f *fakeClient) SendMessage(chatID int64, text string, markup interface{}) (tgbotapi.Message, error) {
	if f.sendFn == nil {
		return tgbotapi.Message{}, nil
	}
	return f.sendFn(chatID, text, markup)
}

func (f *fakeClient) EditMessageText(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	if f.editFn == nil {
		return tgbotapi.Message{}, nil
	}
	return f.editFn(chatID, messageID, text, markup)
}

func (f *fakeClient) AnswerCallback(callbackID string, text string) error {
	if f.cbFn == nil {
		return nil
	}
	return f.cbFn(callbackID, text)
}

func (f *fakeClient) DeleteMessage(chatID int64, messageID int) error {
	if f.deleteFn == nil {
		return nil
	}
	return f.deleteFn(chatID, messageID)
}

type testLogger struct {
	t *testing.T
}

func (l testLogger) Printf(format string, args ...any) {
	l.t.Logf(format, args...)
}
