package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"petprint-bot/internal/catalog"
	"petprint-bot/internal/metrics"
	"petprint-bot/internal/payack"
	"petprint-bot/internal/session"
)

type EventKind string

const (
	EventText     EventKind = "text"
	EventPostback EventKind = "postback"
)

// Event is one inbound message from the chat channel.
type Event struct {
	UserID     string
	ReplyToken string
	Kind       EventKind
	Text       string
	Data       string
}

// Push is an unsolicited message produced by a transition.
type Push struct {
	To      string
	Prompts []Prompt
}

// Outcome is what a single transition wants sent.
type Outcome struct {
	Reply     []Prompt
	Pushes    []Push
	Completed bool
}

func reply(prompts ...Prompt) (Outcome, error) {
	return Outcome{Reply: prompts}, nil
}

var errNoPending = errors.New("bot: no pending product")

const (
	paymentAckText   = "ありがとうございます。入金確認後、制作/手配を開始します。"
	noOrderToPayText = "ご注文内容が見つかりません。「限定」と送って、ご注文からお手続きください。"
)

type handlerFunc func(ctx context.Context, s *session.Session, value string) (Outcome, error)

// Machine is the order state machine. It holds no per-user state; every call
// operates on the session it is given.
type Machine struct {
	catalog  *catalog.Catalog
	payments PaymentLinkProvider
	admins   []string
	metrics  *metrics.Recorder
	logger   *zap.Logger

	triggers map[string]struct{}
	table    map[session.Step]map[string]handlerFunc
}

func NewMachine(
	c *catalog.Catalog,
	payments PaymentLinkProvider,
	admins []string,
	rec *metrics.Recorder,
	logger *zap.Logger,
) *Machine {
	m := &Machine{
		catalog:  c,
		payments: payments,
		admins:   admins,
		metrics:  rec,
		logger:   logger,
		triggers: make(map[string]struct{}, len(c.StartTriggers)),
	}
	for _, t := range c.StartTriggers {
		m.triggers[normalizeText(t)] = struct{}{}
	}
	m.registerHandlers()
	return m
}

func (m *Machine) registerHandlers() {
	apparel := map[string]handlerFunc{
		keyCampaign:  m.handleCampaign,
		keyVariation: m.handleVariation,
		keyColor:     m.handleColor,
		keySize:      m.handleSize,
		keySide:      m.handleSide,
		keyOptSet:    m.handleOptSet,
	}

	m.table = map[session.Step]map[string]handlerFunc{
		session.StepPickProduct: {keyProduct: m.handleProduct},
		session.StepAskQuantity: {keyQuantity: m.handleQuantity},

		session.StepIllPetCount: {keyIllPet: m.handleIllustrationPetCount},
		session.StepIllCompose:  {keyIllCompose: m.handleIllustrationCompose},
		session.StepIllStyle:    {keyIllStyle: m.handleIllustrationStyle},
		session.StepIllOption:   {keyIllOption: m.handleIllustrationOption},
		session.StepIllRatio:    {keyIllRatio: m.handleIllustrationRatio},

		session.StepCanvasQty:    {keyCanvasQty: m.handleCanvasQty},
		session.StepCanvasSource: {keyCanvasSource: m.handleCanvasSource},
		session.StepCanvasOption: {keyCanvasOption: m.handleCanvasOption},

		session.StepStampPack:    {keyStampPack: m.handleStampPack},
		session.StepStampPet:     {keyStampPet: m.handleStampPet},
		session.StepStampPublish: {keyStampPublish: m.handleStampPublish},

		session.StepAskAdditional: {keyAddMore: m.handleAddMore},
		session.StepConfirmAll:    {keyConfirm: m.handleConfirmAll},

		session.StepAskCustomerName:     {actionText: m.handleCustomerName},
		session.StepAskCustomerPhone:    {actionText: m.handleCustomerPhone},
		session.StepAskCustomerPostal:   {actionText: m.handleCustomerPostal},
		session.StepAskCustomerAddress1: {actionText: m.handleCustomerAddress1},
		session.StepAskCustomerAddress2: {actionText: m.handleCustomerAddress2},
		session.StepConfirmCustomer:     {keyCustOK: m.handleConfirmCustomer},
		session.StepPickPay:             {keyPay: m.handlePay},
	}
	for _, step := range session.ApparelUnitSteps {
		m.table[step] = apparel
	}
}

// Handle runs one event against s. Events with no transition for the current
// step are ignored and produce an empty outcome.
func (m *Machine) Handle(ctx context.Context, s *session.Session, ev Event) (Outcome, error) {
	if ev.Kind == EventText {
		if strings.EqualFold(strings.TrimSpace(ev.Text), "whoami") {
			return reply(TextPrompt("your userId:\n" + ev.UserID))
		}
		if m.IsStartTrigger(ev.Text) {
			s.Reset()
			s.Step = session.StepPickProduct
			return reply(m.askPickProduct("ありがとうございます。商品をお選びください。")...)
		}
		if payack.IsPaid(ev.Text, s.Step == session.StepBank) {
			if len(s.Order) == 0 {
				return reply(TextPrompt(noOrderToPayText))
			}
			return m.acknowledgePayment(s)
		}
	}

	action, value, ok := eventAction(ev)
	if !ok {
		return Outcome{}, nil
	}
	h, ok := m.table[s.Step][action]
	if !ok {
		m.logger.Debug("Ignoring event",
			zap.String("user_id", s.UserID),
			zap.String("step", string(s.Step)),
			zap.String("action", action))
		return Outcome{}, nil
	}

	out, err := h(ctx, s, value)
	if err != nil {
		return Outcome{}, fmt.Errorf("step %s action %s: %w", s.Step, action, err)
	}
	return out, nil
}

// IsStartTrigger matches text against the start phrases after normalization.
func (m *Machine) IsStartTrigger(text string) bool {
	_, ok := m.triggers[normalizeText(text)]
	return ok
}

// acknowledgePayment confirms a reported payment to the customer and the
// admins. A repeated report after completion is confirmed again but does not
// complete the order a second time.
func (m *Machine) acknowledgePayment(s *session.Session) (Outcome, error) {
	out := Outcome{
		Reply:     []Prompt{TextPrompt(paymentAckText)},
		Completed: s.Step != session.StepCompleted,
	}
	out.Pushes = append(out.Pushes, Push{
		To:      s.UserID,
		Prompts: []Prompt{TextPrompt(CustomerConfirmationText(m.catalog, s))},
	})
	adminText := AdminConfirmationText(m.catalog, s)
	for _, id := range m.admins {
		out.Pushes = append(out.Pushes, Push{To: id, Prompts: []Prompt{TextPrompt(adminText)}})
	}

	s.Step = session.StepCompleted
	return out, nil
}

func eventAction(ev Event) (action, value string, ok bool) {
	switch ev.Kind {
	case EventText:
		return actionText, strings.TrimSpace(ev.Text), true
	case EventPostback:
		return parsePostback(ev.Data)
	default:
		return "", "", false
	}
}

// normalizeText removes whitespace, folds the full-width ampersand and lowers case.
func normalizeText(text string) string {
	text = strings.Join(strings.Fields(text), "")
	text = strings.ReplaceAll(text, "＆", "&")
	return strings.ToLower(text)
}
