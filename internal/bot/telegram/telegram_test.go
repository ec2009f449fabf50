package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"petprint-bot/internal/bot"
	"petprint-bot/internal/storage"
)

type fakeAPI struct {
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	sendErr  error
	updates  chan tgbotapi.Update
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.sendErr
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) HandleUpdate(r *http.Request) (*tgbotapi.Update, error) {
	return new(tgbotapi.BotAPI).HandleUpdate(r)
}

func (f *fakeAPI) texts() []string {
	var out []string
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m.Text)
		}
	}
	return out
}

type recordingHandler struct {
	events []bot.Event
}

func (r *recordingHandler) HandleEvent(_ context.Context, ev bot.Event) {
	r.events = append(r.events, ev)
}

type fakeOrders struct {
	stats      *storage.OrderStatistics
	exportPath string
	updated    map[int64]string
	updateErr  error
	order      *storage.Order
}

func (f *fakeOrders) GetOrderStatistics(context.Context) (*storage.OrderStatistics, error) {
	return f.stats, nil
}

func (f *fakeOrders) ExportAllOrdersToExcel(context.Context, string) (string, error) {
	return f.exportPath, nil
}

func (f *fakeOrders) UpdateOrderStatus(_ context.Context, id int64, status string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if f.updated == nil {
		f.updated = map[int64]string{}
	}
	f.updated[id] = status
	return nil
}

func (f *fakeOrders) GetOrderByID(context.Context, int64) (*storage.Order, error) {
	if f.order == nil {
		return nil, storage.ErrOrderNotFound
	}
	return f.order, nil
}

type fakeLimiter struct{ exceeded bool }

func (f fakeLimiter) Exceeded(context.Context, string, string) (bool, error) {
	return f.exceeded, nil
}

func newTestAdapter() (*Adapter, *fakeAPI, *recordingHandler) {
	api := &fakeAPI{}
	a := New(api, Config{
		PublicBaseURL: "https://cdn.example.com/assets",
		AdminIDs:      []string{"900"},
		StartPhrase:   "限定",
		ReportsDir:    "reports",
	}, zap.NewNop())
	h := &recordingHandler{}
	a.SetHandler(h)
	return a, api, h
}

func command(userID, chatID int64, text string) tgbotapi.Update {
	cmd := strings.SplitN(text, " ", 2)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: userID},
		Chat:     &tgbotapi.Chat{ID: chatID},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}}
}

func TestRenderText(t *testing.T) {
	a, _, _ := newTestAdapter()
	out := a.render(42, bot.TextPrompt("こんにちは"))
	require.Len(t, out, 1)
	msg := out[0].(tgbotapi.MessageConfig)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, "こんにちは", msg.Text)

	assert.Empty(t, a.render(42, bot.TextPrompt("")))
}

func TestRenderChoicesWithImage(t *testing.T) {
	a, _, _ := newTestAdapter()
	out := a.render(42, bot.ChoicePrompt("/sweat_main_1.png", "カラーを選択",
		bot.Choice{Label: "グレー", Data: "color=gray"},
		bot.Choice{Label: "白", Data: "color=white"},
	))
	require.Len(t, out, 1)

	photo := out[0].(tgbotapi.PhotoConfig)
	assert.Equal(t, "カラーを選択", photo.Caption)
	assert.Equal(t, tgbotapi.FileURL("https://cdn.example.com/assets/sweat_main_1.png"), photo.File)

	kb := photo.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.Len(t, kb.InlineKeyboard, 2)
	assert.Equal(t, "グレー", kb.InlineKeyboard[0][0].Text)
	assert.Equal(t, "color=gray", *kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "color=white", *kb.InlineKeyboard[1][0].CallbackData)
}

func TestRenderChoicesWithoutBaseURL(t *testing.T) {
	a := New(&fakeAPI{}, Config{}, zap.NewNop())
	out := a.render(1, bot.ChoicePrompt("/x.png", "タイトル", bot.Choice{Label: "はい", Data: "addmore=yes"}))
	require.Len(t, out, 1)
	msg := out[0].(tgbotapi.MessageConfig)
	assert.Equal(t, "タイトル", msg.Text)
	assert.IsType(t, tgbotapi.InlineKeyboardMarkup{}, msg.ReplyMarkup)
}

func TestRenderCarousel(t *testing.T) {
	a, _, _ := newTestAdapter()
	out := a.render(1, bot.CarouselPrompt(
		bot.Card{Title: "A", Image: "/a.png", Choices: []bot.Choice{{Label: "選ぶ", Data: "product=a"}}},
		bot.Card{Title: "B", Image: "https://img.example.com/b.png"},
	))
	require.Len(t, out, 2)
	assert.Equal(t, tgbotapi.FileURL("https://img.example.com/b.png"), out[1].(tgbotapi.PhotoConfig).File)
	assert.Nil(t, out[1].(tgbotapi.PhotoConfig).ReplyMarkup)
}

func TestAbsoluteURL(t *testing.T) {
	assert.Equal(t, "https://x.test/a.png", absoluteURL("https://x.test", "/a.png"))
	assert.Equal(t, "https://x.test/base/a.png", absoluteURL("https://x.test/base/", "a.png"))
	assert.Equal(t, "http://y.test/a.png", absoluteURL("https://x.test", "http://y.test/a.png"))
	assert.Empty(t, absoluteURL("", "/a.png"))
	assert.Empty(t, absoluteURL("https://x.test", ""))
}

func TestReplyAndPush(t *testing.T) {
	a, api, _ := newTestAdapter()
	err := a.ReplyTo(context.Background(), "42", []bot.Prompt{bot.TextPrompt("a"), bot.TextPrompt("b")})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, api.texts())

	assert.Error(t, a.PushTo(context.Background(), "not-a-number", []bot.Prompt{bot.TextPrompt("x")}))

	api.sendErr = errors.New("blocked")
	assert.Error(t, a.PushTo(context.Background(), "7", []bot.Prompt{bot.TextPrompt("x")}))
}

func TestTextMessageBecomesEvent(t *testing.T) {
	a, _, h := newTestAdapter()
	a.ProcessUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: 5},
		Chat: &tgbotapi.Chat{ID: 6},
		Text: "入金済み",
	}})

	require.Len(t, h.events, 1)
	assert.Equal(t, bot.Event{UserID: "5", ReplyToken: "6", Kind: bot.EventText, Text: "入金済み"}, h.events[0])
}

func TestContactBecomesPhoneText(t *testing.T) {
	a, _, h := newTestAdapter()
	a.ProcessUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		From:    &tgbotapi.User{ID: 5},
		Chat:    &tgbotapi.Chat{ID: 5},
		Contact: &tgbotapi.Contact{PhoneNumber: "+819012345678"},
	}})
	require.Len(t, h.events, 1)
	assert.Equal(t, "+819012345678", h.events[0].Text)
}

func TestCallbackBecomesPostback(t *testing.T) {
	a, api, h := newTestAdapter()
	a.ProcessUpdate(context.Background(), tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb1",
		From:    &tgbotapi.User{ID: 5},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 8}},
		Data:    "color=gray",
	}})

	require.Len(t, api.requests, 1)
	require.Len(t, h.events, 1)
	assert.Equal(t, bot.Event{UserID: "5", ReplyToken: "8", Kind: bot.EventPostback, Data: "color=gray"}, h.events[0])
}

func TestStartAndWhoamiCommands(t *testing.T) {
	a, _, h := newTestAdapter()
	a.ProcessUpdate(context.Background(), command(5, 5, "/start"))
	a.ProcessUpdate(context.Background(), command(5, 5, "/whoami"))

	require.Len(t, h.events, 2)
	assert.Equal(t, "限定", h.events[0].Text)
	assert.Equal(t, "whoami", h.events[1].Text)
}

func TestHelpAndUnknownCommands(t *testing.T) {
	a, api, h := newTestAdapter()
	a.ProcessUpdate(context.Background(), command(5, 5, "/help"))
	a.ProcessUpdate(context.Background(), command(5, 5, "/stats"))

	assert.Empty(t, h.events)
	assert.Equal(t, []string{helpText, unknownCommandText}, api.texts())
}

func TestAdminStats(t *testing.T) {
	a, api, _ := newTestAdapter()
	a.SetOrderAdmin(&fakeOrders{stats: &storage.OrderStatistics{
		TotalOrders:  3,
		TotalRevenue: 25600,
		StatusCounts: map[string]int{storage.StatusShipped: 2},
	}})

	a.ProcessUpdate(context.Background(), command(900, 900, "/stats"))
	require.Len(t, api.texts(), 1)
	text := api.texts()[0]
	assert.Contains(t, text, "全期間: 3件 / ¥25600")
	assert.Contains(t, text, "発送済み: 2")
	assert.Contains(t, text, "制作中: 0")
}

func TestAdminExport(t *testing.T) {
	a, api, _ := newTestAdapter()
	a.SetOrderAdmin(&fakeOrders{exportPath: "reports/orders.xlsx"})

	a.ProcessUpdate(context.Background(), command(900, 900, "/export"))
	require.Len(t, api.sent, 1)
	doc := api.sent[0].(tgbotapi.DocumentConfig)
	assert.Equal(t, tgbotapi.FilePath("reports/orders.xlsx"), doc.File)
}

func TestAdminStatusUpdate(t *testing.T) {
	a, api, _ := newTestAdapter()
	orders := &fakeOrders{order: &storage.Order{ID: 12, UserID: "5"}}
	a.SetOrderAdmin(orders)

	a.ProcessUpdate(context.Background(), command(900, 900, "/status 12 shipped"))
	assert.Equal(t, storage.StatusShipped, orders.updated[12])

	require.Len(t, api.sent, 2)
	assert.Equal(t, int64(900), api.sent[0].(tgbotapi.MessageConfig).ChatID)
	notice := api.sent[1].(tgbotapi.MessageConfig)
	assert.Equal(t, int64(5), notice.ChatID)
	assert.Contains(t, notice.Text, "発送済み")
}

func TestAdminStatusRejects(t *testing.T) {
	a, api, _ := newTestAdapter()
	orders := &fakeOrders{updateErr: storage.ErrOrderNotFound}
	a.SetOrderAdmin(orders)

	a.ProcessUpdate(context.Background(), command(900, 900, "/status 12"))
	a.ProcessUpdate(context.Background(), command(900, 900, "/status x shipped"))
	a.ProcessUpdate(context.Background(), command(900, 900, "/status 12 lost"))
	a.ProcessUpdate(context.Background(), command(900, 900, "/status 12 shipped"))

	texts := api.texts()
	require.Len(t, texts, 4)
	assert.Contains(t, texts[0], "使い方")
	assert.Contains(t, texts[1], "形式")
	assert.Contains(t, texts[2], "いずれか")
	assert.Equal(t, "注文 #12 が見つかりません。", texts[3])
}

func TestRateLimitedEventIsDropped(t *testing.T) {
	a, api, h := newTestAdapter()
	a.SetLimiter(fakeLimiter{exceeded: true})
	a.ProcessUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: 5},
		Chat: &tgbotapi.Chat{ID: 5},
		Text: "限定",
	}})
	assert.Empty(t, h.events)
	assert.Equal(t, []string{slowDownText}, api.texts())
}

func TestRunStopsOnCancel(t *testing.T) {
	a, api, h := newTestAdapter()
	api.updates = make(chan tgbotapi.Update, 1)
	api.updates <- tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: 5},
		Chat: &tgbotapi.Chat{ID: 5},
		Text: "hi",
	}}
	close(api.updates)

	err := a.Run(context.Background())
	assert.Error(t, err)
	assert.Len(t, h.events, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	api.updates = make(chan tgbotapi.Update)
	assert.NoError(t, a.Run(ctx))
}

func TestWebhookHandler(t *testing.T) {
	a, _, h := newTestAdapter()
	srv := httptest.NewServer(a.WebhookHandler())
	defer srv.Close()

	body := `{"update_id":1,"message":{"message_id":1,"from":{"id":5},"chat":{"id":5,"type":"private"},"text":"限定"}}`
	resp, err := http.Post(srv.URL, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, h.events, 1)
	assert.Equal(t, "限定", h.events[0].Text)

	resp, err = http.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Post(srv.URL, "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
