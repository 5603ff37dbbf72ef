// Package bot is the Telegram front end: every private chat gets its own
// dashboard session driven by commands, reply keyboards and inline buttons.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskflow/internal/service"
)

// Sender is the part of the Telegram API the bot writes through.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// DashboardFactory builds a fresh dashboard reporting to notifier.
type DashboardFactory func(notifier service.Notifier) *service.Dashboard

// Options wires a Bot.
type Options struct {
	Dashboards DashboardFactory
	Reminder   *service.ReminderService
	Logger     *slog.Logger
	Now        func() time.Time
}

type session struct {
	dash         *service.Dashboard
	conversation *conversationState
	confirmation *confirmationRequest
}

// Bot aggregates the Telegram API with per-chat dashboards.
type Bot struct {
	api        *tgbotapi.BotAPI
	out        Sender
	dashboards DashboardFactory
	reminder   *service.ReminderService
	log        *slog.Logger
	now        func() time.Time

	mu       sync.Mutex
	sessions map[int64]*session
}

// New authorizes token against the Telegram API.
func New(token string, opts Options) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	b := NewWithSender(api, opts)
	b.api = api
	b.log.Info("bot authorized", "account", api.Self.UserName)
	return b, nil
}

// NewWithSender builds a Bot that sends through out. It cannot poll.
func NewWithSender(out Sender, opts Options) *Bot {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Bot{
		out:        out,
		dashboards: opts.Dashboards,
		reminder:   opts.Reminder,
		log:        log.With("component", "bot"),
		now:        now,
		sessions:   make(map[int64]*session),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if b.api == nil {
		return fmt.Errorf("bot has no telegram connection")
	}
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		b.HandleUpdate(ctx, update)
	}

	b.closeSessions()
	return nil
}

// HandleUpdate dispatches one update. Errors are logged, not returned.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
			b.log.Error("handle callback", "error", err)
		}
	case update.Message != nil:
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			return
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			b.log.Error("handle message", "chat", update.Message.Chat.ID, "error", err)
		}
	}
}

// SendDailyReports sends the report to every chat that has a session.
func (b *Bot) SendDailyReports(ctx context.Context) error {
	if b.reminder == nil {
		return nil
	}
	text, err := b.reminder.DailySummary(ctx, b.now())
	if err != nil {
		return err
	}
	for _, chatID := range b.chatIDs() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := b.sendText(chatID, escape(text)); err != nil {
			b.log.Warn("send report", "chat", chatID, "error", err)
		}
	}
	return nil
}

// session returns the chat's session, creating and loading it on first use.
func (b *Bot) session(ctx context.Context, chatID int64) *session {
	b.mu.Lock()
	s, ok := b.sessions[chatID]
	if !ok {
		s = &session{dash: b.dashboards(b.chatNotifier(chatID))}
		b.sessions[chatID] = s
	}
	b.mu.Unlock()

	if !ok {
		b.log.Info("session opened", "chat", chatID)
		// Failures are reported to the chat by the dashboard itself.
		_ = s.dash.Load(ctx)
	}
	return s
}

func (b *Bot) chatNotifier(chatID int64) service.Notifier {
	return service.NotifierFunc(func(level service.Level, message string) {
		text := escape(message)
		if level == service.LevelError {
			text = "❌ " + text
		}
		if err := b.sendText(chatID, text); err != nil {
			b.log.Warn("send notification", "chat", chatID, "error", err)
		}
	})
}

func (b *Bot) chatIDs() []int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]int64, 0, len(b.sessions))
	for id := range b.sessions {
		ids = append(ids, id)
	}
	return ids
}

func (b *Bot) closeSessions() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.sessions {
		s.dash.Close()
	}
}

func (b *Bot) getConfirmation(chatID int64) (confirmationRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[chatID]
	if !ok || s.confirmation == nil {
		return confirmationRequest{}, false
	}
	return *s.confirmation, true
}

func (b *Bot) setConfirmation(chatID int64, req confirmationRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.sessions[chatID]; ok {
		s.confirmation = &req
	}
}

func (b *Bot) clearConfirmation(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.sessions[chatID]; ok {
		s.confirmation = nil
	}
}

func (b *Bot) setConversation(chatID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.sessions[chatID]; ok {
		s.conversation = state
	}
}

func (b *Bot) getConversation(chatID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.sessions[chatID]; ok {
		return s.conversation
	}
	return nil
}

func (b *Bot) clearConversation(chatID int64) {
	b.setConversation(chatID, nil)
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.out.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.out.Send(msg)
	return err
}

func (b *Bot) ack(cb *tgbotapi.CallbackQuery) {
	if _, err := b.out.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Warn("callback ack", "error", err)
	}
}
