package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"petprint-bot/internal/catalog"
	"petprint-bot/internal/metrics"
	"petprint-bot/internal/session"
	"petprint-bot/internal/storage"
	"petprint-bot/pkg/square"
)

type sent struct {
	target  string
	prompts []Prompt
}

type fakeMessenger struct {
	mu       sync.Mutex
	replies  []sent
	pushes   []sent
	replyErr error
}

func (f *fakeMessenger) ReplyTo(_ context.Context, token string, prompts []Prompt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, sent{target: token, prompts: prompts})
	return f.replyErr
}

func (f *fakeMessenger) PushTo(_ context.Context, userID string, prompts []Prompt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes = append(f.pushes, sent{target: userID, prompts: prompts})
	return nil
}

func (f *fakeMessenger) replyFor(token string) []Prompt {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.replies {
		if r.target == token {
			return r.prompts
		}
	}
	return nil
}

type fakePayments struct {
	url   string
	err   error
	calls int
	items []square.LineItem
	ref   string
}

func (f *fakePayments) CreatePaymentLink(_ context.Context, items []square.LineItem, ref string) (string, error) {
	f.calls++
	f.items = items
	f.ref = ref
	return f.url, f.err
}

type fakeArchive struct {
	orders []storage.Order
	err    error
}

func (f *fakeArchive) SaveOrder(_ context.Context, o storage.Order) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.orders = append(f.orders, o)
	return int64(len(f.orders)), nil
}

type harness struct {
	t       *testing.T
	bot     *Bot
	machine *Machine
	store   *session.MemoryStore
	msgr    *fakeMessenger
	pay     *fakePayments
	archive *fakeArchive
	metrics *metrics.Recorder
	seq     int
}

func newHarness(t *testing.T, admins ...string) *harness {
	t.Helper()
	h := &harness{
		t:       t,
		store:   session.NewMemoryStore(time.Hour),
		msgr:    &fakeMessenger{},
		pay:     &fakePayments{url: "https://square.link/u/test"},
		archive: &fakeArchive{},
		metrics: metrics.New(),
	}
	h.machine = NewMachine(catalog.Default(), h.pay, admins, h.metrics, zap.NewNop())
	h.bot = New(h.machine, h.store, h.msgr, zap.NewNop(), WithArchive(h.archive), WithMetrics(h.metrics))
	h.bot.newRef = func() string { return fmt.Sprintf("ref-%d", len(h.archive.orders)+1) }
	return h
}

func (h *harness) send(ev Event) []Prompt {
	h.seq++
	ev.ReplyToken = fmt.Sprintf("tok-%d", h.seq)
	h.bot.HandleEvent(context.Background(), ev)
	return h.msgr.replyFor(ev.ReplyToken)
}

func (h *harness) text(user, text string) []Prompt {
	return h.send(Event{UserID: user, Kind: EventText, Text: text})
}

func (h *harness) tap(user, key, value string) []Prompt {
	return h.send(Event{UserID: user, Kind: EventPostback, Data: postback(key, value)})
}

func (h *harness) session(user string) *session.Session {
	h.t.Helper()
	s, err := h.store.Get(context.Background(), user)
	require.NoError(h.t, err)
	return s
}

func (h *harness) step(user string) session.Step {
	return h.session(user).Step
}

// flatten joins every visible string of the prompts.
func flatten(prompts []Prompt) string {
	var b strings.Builder
	for _, p := range prompts {
		for _, s := range []string{p.Text, p.Title} {
			if s != "" {
				b.WriteString(s)
				b.WriteString("\n")
			}
		}
		for _, c := range p.Cards {
			b.WriteString(c.Title)
			b.WriteString("\n")
		}
		for _, c := range p.Choices {
			b.WriteString(c.Label)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// canvasOrder builds one canvas line of 14,700 yen and leaves the user at
// ask_additional.
func (h *harness) canvasOrder(user string) {
	h.t.Helper()
	h.text(user, "限定")
	h.tap(user, keyProduct, "canvas_art")
	h.tap(user, keyCanvasQty, "3")
	h.tap(user, keyCanvasSource, "photo")
	h.tap(user, keyCanvasOption, toggleOff)
	require.Equal(h.t, session.StepAskAdditional, h.step(user))
}

// checkout walks the customer chain up to pick_pay.
func (h *harness) checkout(user string) {
	h.t.Helper()
	h.tap(user, keyAddMore, answerNo)
	h.tap(user, keyConfirm, answerYes)
	h.text(user, "山田 太郎")
	h.text(user, "090-1234-5678")
	h.text(user, "150-0001")
	h.text(user, "東京都渋谷区神宮前1-1-1")
	h.text(user, "なし")
	h.tap(user, keyCustOK, answerYes)
	require.Equal(h.t, session.StepPickPay, h.step(user))
}

func TestBankFlowEndToEnd(t *testing.T) {
	h := newHarness(t, "A1", "A2")
	h.canvasOrder("U1")
	h.checkout("U1")

	out := h.tap("U1", keyPay, session.PaymentBank)
	assert.Equal(t, session.StepBank, h.step("U1"))
	assert.Contains(t, flatten(out), "【銀行振込のご案内】")

	out = h.text("U1", "入金済み")
	require.Len(t, out, 1)
	assert.Equal(t, paymentAckText, out[0].Text)

	s := h.session("U1")
	assert.Equal(t, session.StepCompleted, s.Step)

	require.Len(t, h.msgr.pushes, 3)
	assert.Equal(t, "U1", h.msgr.pushes[0].target)
	assert.Contains(t, h.msgr.pushes[0].prompts[0].Text, "合計：¥14,700")
	assert.Equal(t, "A1", h.msgr.pushes[1].target)
	assert.Equal(t, "A2", h.msgr.pushes[2].target)
	for _, p := range h.msgr.pushes[1:] {
		assert.Contains(t, p.prompts[0].Text, "userId: U1")
		assert.Contains(t, p.prompts[0].Text, "決済方法: bank")
	}

	require.Len(t, h.archive.orders, 1)
	o := h.archive.orders[0]
	assert.Equal(t, "ref-1", o.Reference)
	assert.Equal(t, "U1", o.UserID)
	assert.Equal(t, 14700, o.Total)
	assert.Equal(t, "09012345678", o.Phone)
	assert.Equal(t, "1500001", o.Postal)
	assert.Empty(t, o.Address2)
	assert.Equal(t, storage.StatusPaymentReported, o.Status)
}

func TestApparelKidsSizeBankFlow(t *testing.T) {
	h := newHarness(t, "A1", "A2")
	h.text("U1", "限定")
	h.tap("U1", keyProduct, "tshirt_premium")
	h.tap("U1", keyQuantity, "1")
	h.tap("U1", keyCampaign, "momiji")
	h.tap("U1", keyVariation, "normal")
	h.tap("U1", keyColor, "white")
	h.tap("U1", keySize, "kids120")
	require.Equal(t, "kids120", h.session("U1").CurrentUnit().Size.Value)
	h.tap("U1", keySide, "front")
	h.tap("U1", keyOptSet, "text:off")
	require.Equal(t, session.StepAskAdditional, h.step("U1"))

	h.checkout("U1")
	h.tap("U1", keyPay, session.PaymentBank)
	require.Equal(t, session.StepBank, h.step("U1"))

	out := h.text("U1", "入金済み")
	require.Len(t, out, 1)
	assert.Equal(t, paymentAckText, out[0].Text)

	s := h.session("U1")
	assert.Equal(t, session.StepCompleted, s.Step)
	assert.Equal(t, 3300, s.Total())

	perTarget := map[string]int{}
	for _, p := range h.msgr.pushes {
		perTarget[p.target]++
	}
	assert.Equal(t, map[string]int{"U1": 1, "A1": 1, "A2": 1}, perTarget)
	require.Len(t, h.archive.orders, 1)
	assert.Equal(t, 3300, h.archive.orders[0].Total)
}

func TestStrictAckAcceptedInAnyStep(t *testing.T) {
	t.Run("pick_pay", func(t *testing.T) {
		h := newHarness(t, "A1")
		h.canvasOrder("U1")
		h.checkout("U1")

		out := h.text("U1", "入金済み")
		require.Len(t, out, 1)
		assert.Equal(t, paymentAckText, out[0].Text)
		assert.Equal(t, session.StepCompleted, h.step("U1"))
		assert.Len(t, h.msgr.pushes, 2)
		assert.Len(t, h.archive.orders, 1)
	})

	t.Run("ask_additional", func(t *testing.T) {
		h := newHarness(t, "A1")
		h.canvasOrder("U1")

		out := h.text("U1", "お支払い完了しました")
		require.Len(t, out, 1)
		assert.Equal(t, paymentAckText, out[0].Text)
		assert.Equal(t, session.StepCompleted, h.step("U1"))
		require.Len(t, h.msgr.pushes, 2)
		assert.Equal(t, "U1", h.msgr.pushes[0].target)
		assert.Equal(t, "A1", h.msgr.pushes[1].target)
	})

	t.Run("empty order", func(t *testing.T) {
		h := newHarness(t, "A1")
		out := h.text("U1", "入金済み")
		require.Len(t, out, 1)
		assert.Equal(t, noOrderToPayText, out[0].Text)
		assert.Equal(t, session.StepIdle, h.step("U1"))
		assert.Empty(t, h.msgr.pushes)
		assert.Empty(t, h.archive.orders)
	})
}

func TestRepeatedAckDoesNotArchiveTwice(t *testing.T) {
	h := newHarness(t, "A1")
	h.canvasOrder("U1")
	h.checkout("U1")
	h.tap("U1", keyPay, session.PaymentBank)
	h.text("U1", "入金済み")
	require.Len(t, h.archive.orders, 1)

	out := h.text("U1", "振込しました")
	require.Len(t, out, 1)
	assert.Equal(t, paymentAckText, out[0].Text)
	assert.Equal(t, session.StepCompleted, h.step("U1"))
	assert.Len(t, h.msgr.pushes, 4)
	assert.Len(t, h.archive.orders, 1)
}

func TestVagueAckRejectedInPickPay(t *testing.T) {
	h := newHarness(t, "A1")
	h.canvasOrder("U1")
	h.checkout("U1")

	for _, vague := range []string{"完了", "済み"} {
		out := h.text("U1", vague)
		assert.Empty(t, out, vague)
		assert.Equal(t, session.StepPickPay, h.step("U1"))
	}
	assert.Empty(t, h.msgr.pushes)
}

func TestVagueAckOnlyInBank(t *testing.T) {
	h := newHarness(t)
	h.canvasOrder("U1")
	h.checkout("U1")
	h.tap("U1", keyPay, session.PaymentCard)
	require.Equal(t, session.StepWaitingPayment, h.step("U1"))

	out := h.text("U1", "済み")
	assert.Empty(t, out)
	assert.Equal(t, session.StepWaitingPayment, h.step("U1"))

	h.text("U1", "決済完了しました")
	assert.Equal(t, session.StepCompleted, h.step("U1"))

	h2 := newHarness(t)
	h2.canvasOrder("U2")
	h2.checkout("U2")
	h2.tap("U2", keyPay, session.PaymentBank)
	h2.text("U2", "済み")
	assert.Equal(t, session.StepCompleted, h2.step("U2"))
}

func TestCardPaymentLink(t *testing.T) {
	h := newHarness(t)
	h.canvasOrder("U1")
	h.tap("U1", keyAddMore, answerYes)
	h.tap("U1", keyProduct, "line_stamp")
	h.tap("U1", keyStampPack, "p16")
	h.tap("U1", keyStampPet, "3")
	h.tap("U1", keyStampPublish, "ok")
	h.checkout("U1")

	out := h.tap("U1", keyPay, session.PaymentCard)
	s := h.session("U1")
	assert.Equal(t, session.StepWaitingPayment, s.Step)
	assert.Equal(t, "https://square.link/u/test", s.PaymentLink)
	assert.Equal(t, session.PaymentCard, s.PaymentMethod)
	assert.Contains(t, flatten(out), "https://square.link/u/test")

	assert.Equal(t, 1, h.pay.calls)
	assert.Equal(t, "U1", h.pay.ref)
	require.Len(t, h.pay.items, 3)
	sum := 0
	for _, it := range h.pay.items {
		sum += it.Amount * max(it.Quantity, 1)
	}
	assert.Equal(t, s.Total(), sum)
	assert.Equal(t, 14700+9200, s.Total())
}

func TestPaymentLinkFailureStaysInPickPay(t *testing.T) {
	for name, pay := range map[string]*fakePayments{
		"error":     {err: errors.New("square down")},
		"empty url": {},
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			h.pay.url, h.pay.err = pay.url, pay.err
			h.canvasOrder("U1")
			h.checkout("U1")

			out := h.tap("U1", keyPay, session.PaymentCard)
			require.Len(t, out, 1)
			assert.Equal(t, paymentLinkFailedText, out[0].Text)

			s := h.session("U1")
			assert.Equal(t, session.StepPickPay, s.Step)
			assert.Empty(t, s.PaymentLink)

			h.pay.url, h.pay.err = "https://square.link/u/retry", nil
			h.tap("U1", keyPay, session.PaymentCard)
			assert.Equal(t, session.StepWaitingPayment, h.step("U1"))
		})
	}
}

func TestPaymentLinkWithoutProvider(t *testing.T) {
	h := newHarness(t)
	h.machine.payments = nil
	h.canvasOrder("U1")
	h.checkout("U1")

	out := h.tap("U1", keyPay, session.PaymentCard)
	require.Len(t, out, 1)
	assert.Equal(t, paymentLinkFailedText, out[0].Text)
	assert.Equal(t, session.StepPickPay, h.step("U1"))
}

func TestArchiveFailureIsNotFatal(t *testing.T) {
	h := newHarness(t, "A1")
	h.archive.err = errors.New("db down")
	h.canvasOrder("U1")
	h.checkout("U1")
	h.tap("U1", keyPay, session.PaymentBank)

	out := h.text("U1", "入金済み")
	require.Len(t, out, 1)
	assert.Equal(t, session.StepCompleted, h.step("U1"))
	assert.Len(t, h.msgr.pushes, 2)
}

type failingStore struct {
	session.Store
	getErr  error
	saveErr error
	panics  bool
}

func (f *failingStore) Get(ctx context.Context, userID string) (*session.Session, error) {
	if f.panics {
		panic("boom")
	}
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.Store.Get(ctx, userID)
}

func (f *failingStore) Save(ctx context.Context, s *session.Session) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.Store.Save(ctx, s)
}

func TestUnexpectedFailuresReplyGenericError(t *testing.T) {
	tests := []struct {
		name  string
		store *failingStore
	}{
		{name: "load", store: &failingStore{getErr: errors.New("redis down")}},
		{name: "save", store: &failingStore{saveErr: errors.New("redis down")}},
		{name: "panic", store: &failingStore{panics: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			tt.store.Store = h.store
			h.bot.store = tt.store

			var out []Prompt
			assert.NotPanics(t, func() { out = h.text("U1", "限定") })
			require.Len(t, out, 1)
			assert.Equal(t, genericErrorText, out[0].Text)

			_, err := h.store.Get(context.Background(), "U1")
			assert.ErrorIs(t, err, session.ErrNotFound)
		})
	}
}

func TestTransitionErrorKeepsStoredSession(t *testing.T) {
	h := newHarness(t)
	s := session.New("U1")
	s.Step = session.StepIllCompose
	require.NoError(t, h.store.Save(context.Background(), s))

	out := h.tap("U1", keyIllCompose, "one_per_image")
	require.Len(t, out, 1)
	assert.Equal(t, genericErrorText, out[0].Text)
	assert.Equal(t, session.StepIllCompose, h.step("U1"))

	h.text("U1", "限定")
	assert.Equal(t, session.StepPickProduct, h.step("U1"))
}

func TestReplyFailureStillAdvances(t *testing.T) {
	h := newHarness(t)
	h.msgr.replyErr = errors.New("telegram down")
	h.text("U1", "限定")
	assert.Equal(t, session.StepPickProduct, h.step("U1"))
}

func TestEventWithoutUserIsSkipped(t *testing.T) {
	h := newHarness(t)
	out := h.text("", "限定")
	assert.Empty(t, out)
	assert.Equal(t, 0, h.store.Len())
}

func TestHandleEventsInOrder(t *testing.T) {
	h := newHarness(t)
	h.bot.HandleEvents(context.Background(), []Event{
		{UserID: "U1", Kind: EventText, Text: "限定", ReplyToken: "a"},
		{UserID: "U2", Kind: EventText, Text: "whoami", ReplyToken: "b"},
		{UserID: "U1", Kind: EventPostback, Data: postback(keyProduct, "sweat"), ReplyToken: "c"},
	})

	assert.Equal(t, session.StepAskQuantity, h.step("U1"))
	require.Len(t, h.msgr.replies, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{h.msgr.replies[0].target, h.msgr.replies[1].target, h.msgr.replies[2].target})
}
