// Package telegram connects the order bot to the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"petprint-bot/internal/bot"
	"petprint-bot/internal/storage"
)

const (
	helpText = `ご利用方法:
「限定」と送ると注文を開始します。
/start - 注文を始める
/whoami - ユーザーIDを表示
/help - このヘルプを表示`

	unknownCommandText = "不明なコマンドです。/help をご確認ください。"
	slowDownText       = "メッセージが多すぎます。少し時間をおいてから送信してください。"
)

// API is the part of tgbotapi.BotAPI the adapter uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	HandleUpdate(r *http.Request) (*tgbotapi.Update, error)
}

// EventHandler consumes chat events.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev bot.Event)
}

// OrderAdmin backs the admin commands.
type OrderAdmin interface {
	GetOrderStatistics(ctx context.Context) (*storage.OrderStatistics, error)
	ExportAllOrdersToExcel(ctx context.Context, dir string) (string, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status string) error
	GetOrderByID(ctx context.Context, orderID int64) (*storage.Order, error)
}

type Limiter interface {
	Exceeded(ctx context.Context, userID, action string) (bool, error)
}

type Config struct {
	PublicBaseURL string
	AdminIDs      []string
	StartPhrase   string
	ReportsDir    string
}

// Adapter renders prompts as Telegram messages and feeds updates to the bot.
// Updates are handled one at a time.
type Adapter struct {
	api         API
	baseURL     string
	admins      map[string]struct{}
	startPhrase string
	reportsDir  string
	logger      *zap.Logger

	handler EventHandler
	orders  OrderAdmin
	limiter Limiter

	mu sync.Mutex
}

var _ bot.Messenger = (*Adapter)(nil)

func New(api API, cfg Config, logger *zap.Logger) *Adapter {
	admins := make(map[string]struct{}, len(cfg.AdminIDs))
	for _, id := range cfg.AdminIDs {
		admins[id] = struct{}{}
	}
	return &Adapter{
		api:         api,
		baseURL:     cfg.PublicBaseURL,
		admins:      admins,
		startPhrase: cfg.StartPhrase,
		reportsDir:  cfg.ReportsDir,
		logger:      logger,
	}
}

// SetHandler wires the event consumer. The bot needs the adapter as its
// messenger, so the two are connected after construction.
func (a *Adapter) SetHandler(h EventHandler) { a.handler = h }

// SetOrderAdmin enables /stats, /export and /status for admins.
func (a *Adapter) SetOrderAdmin(o OrderAdmin) { a.orders = o }

func (a *Adapter) SetLimiter(l Limiter) { a.limiter = l }

// ReplyTo answers an event. The reply token is the chat ID.
func (a *Adapter) ReplyTo(ctx context.Context, replyToken string, prompts []bot.Prompt) error {
	return a.sendTo(ctx, replyToken, prompts)
}

// PushTo messages a user directly. Telegram user IDs double as private chat IDs.
func (a *Adapter) PushTo(ctx context.Context, userID string, prompts []bot.Prompt) error {
	return a.sendTo(ctx, userID, prompts)
}

func (a *Adapter) sendTo(_ context.Context, target string, prompts []bot.Prompt) error {
	chatID, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", target, err)
	}

	var errs []error
	for _, p := range prompts {
		for _, msg := range a.render(chatID, p) {
			if _, err := a.api.Send(msg); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("send to %d: %w", chatID, errors.Join(errs...))
	}
	return nil
}

// Run polls for updates until ctx is cancelled.
func (a *Adapter) Run(ctx context.Context) error {
	a.logger.Info("Starting bot")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := a.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("Shutting down bot")
			return nil
		case update, ok := <-updates:
			if !ok {
				return errors.New("telegram update channel closed")
			}
			a.ProcessUpdate(ctx, update)
		}
	}
}

func (a *Adapter) ProcessUpdate(ctx context.Context, update tgbotapi.Update) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch {
	case update.CallbackQuery != nil:
		a.processCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		a.processMessage(ctx, update.Message)
	}
}

func (a *Adapter) processCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if _, err := a.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		a.logger.Warn("Failed to answer callback", zap.String("callback_id", cb.ID), zap.Error(err))
	}
	if cb.From == nil {
		return
	}

	chatID := cb.From.ID
	if cb.Message != nil && cb.Message.Chat != nil {
		chatID = cb.Message.Chat.ID
	}
	a.dispatch(ctx, bot.Event{
		UserID:     strconv.FormatInt(cb.From.ID, 10),
		ReplyToken: strconv.FormatInt(chatID, 10),
		Kind:       bot.EventPostback,
		Data:       cb.Data,
	})
}

func (a *Adapter) processMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	userID := strconv.FormatInt(msg.From.ID, 10)
	chatID := msg.Chat.ID

	a.logger.Debug("Processing message",
		zap.Int64("chat_id", chatID),
		zap.String("user_id", userID))

	ev := bot.Event{
		UserID:     userID,
		ReplyToken: strconv.FormatInt(chatID, 10),
		Kind:       bot.EventText,
		Text:       msg.Text,
	}

	switch {
	case msg.Contact != nil:
		ev.Text = msg.Contact.PhoneNumber
	case msg.IsCommand():
		if !a.handleCommand(ctx, chatID, userID, msg.Command(), msg.CommandArguments(), &ev) {
			return
		}
	}
	a.dispatch(ctx, ev)
}

// handleCommand answers commands the adapter owns. It returns true when the
// command was translated into ev and should go on to the bot.
func (a *Adapter) handleCommand(ctx context.Context, chatID int64, userID, command, args string, ev *bot.Event) bool {
	switch command {
	case "start":
		ev.Text = a.startPhrase
		return true
	case "whoami":
		ev.Text = "whoami"
		return true
	case "help":
		a.sendText(chatID, helpText)
		return false
	}

	if a.isAdmin(userID) && a.orders != nil {
		if a.handleAdminCommand(ctx, chatID, command, args) {
			return false
		}
	}
	a.sendText(chatID, unknownCommandText)
	return false
}

func (a *Adapter) dispatch(ctx context.Context, ev bot.Event) {
	if a.handler == nil {
		a.logger.Warn("No event handler configured", zap.String("user_id", ev.UserID))
		return
	}
	if a.limiter != nil {
		exceeded, err := a.limiter.Exceeded(ctx, ev.UserID, string(ev.Kind))
		if err != nil {
			a.logger.Warn("Failed to check rate limit", zap.String("user_id", ev.UserID), zap.Error(err))
		} else if exceeded {
			if chatID, err := strconv.ParseInt(ev.ReplyToken, 10, 64); err == nil {
				a.sendText(chatID, slowDownText)
			}
			return
		}
	}
	a.handler.HandleEvent(ctx, ev)
}

func (a *Adapter) isAdmin(userID string) bool {
	_, ok := a.admins[userID]
	return ok
}

func (a *Adapter) sendText(chatID int64, text string) {
	if _, err := a.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		a.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}
}
