package bot

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"petprint-bot/internal/session"
)

const (
	address2None = "なし"

	askNameText     = "【お客様情報】\nお名前（フルネーム）をご入力ください。"
	askPhoneText    = "お電話番号（ハイフンなし）をご入力ください。"
	badPhoneText    = "お電話番号は10〜15桁の数字でご入力ください。"
	askPostalText   = "郵便番号をご入力ください。"
	askAddress1Text = "ご住所をご入力ください。"
	askAddress2Text = "建物名・部屋番号があればご入力ください。（なければ「なし」）"

	paymentLinkFailedText = "決済リンクの作成に失敗しました。時間をおいて再度お試しください。"
)

func (m *Machine) handleAddMore(_ context.Context, s *session.Session, answer string) (Outcome, error) {
	switch answer {
	case answerYes:
		s.Step = session.StepPickProduct
		return reply(m.askPickProduct("ありがとうございます。追加の商品をお選びください。")...)
	case answerNo:
		s.Step = session.StepConfirmAll
		return reply(
			TextPrompt(OrderSummary(m.catalog, s.Order)),
			ChoicePrompt(m.leadImage(s), "上記の内容で注文しますか？",
				Choice{Label: "はい（お客様情報の入力へ）", Data: postback(keyConfirm, answerYes)},
				Choice{Label: "修正する（最初から）", Data: postback(keyConfirm, answerNo)},
			),
		)
	}
	return reply(m.askAdditional(m.leadImage(s)))
}

func (m *Machine) handleConfirmAll(_ context.Context, s *session.Session, answer string) (Outcome, error) {
	switch answer {
	case answerYes:
		s.Customer = session.CustomerDraft{}
		s.Step = session.StepAskCustomerName
		return reply(TextPrompt(askNameText))
	case answerNo:
		s.Reset()
		s.Step = session.StepPickProduct
		return reply(m.askPickProduct("はじめからやり直します。商品をお選びください。")...)
	}
	return Outcome{}, nil
}

func (m *Machine) handleCustomerName(_ context.Context, s *session.Session, text string) (Outcome, error) {
	if text == "" {
		return reply(TextPrompt(askNameText))
	}
	s.Customer.Name = text
	s.Step = session.StepAskCustomerPhone
	return reply(TextPrompt(askPhoneText))
}

func (m *Machine) handleCustomerPhone(_ context.Context, s *session.Session, text string) (Outcome, error) {
	phone := NormalizePhoneNumber(text)
	if !IsValidPhoneNumber(phone) {
		return reply(TextPrompt(badPhoneText), TextPrompt(askPhoneText))
	}
	s.Customer.Phone = phone
	s.Step = session.StepAskCustomerPostal
	return reply(TextPrompt(askPostalText))
}

func (m *Machine) handleCustomerPostal(_ context.Context, s *session.Session, text string) (Outcome, error) {
	postal := NormalizePostalCode(text)
	if postal == "" {
		return reply(TextPrompt(askPostalText))
	}
	s.Customer.Postal = postal
	s.Step = session.StepAskCustomerAddress1
	return reply(TextPrompt(askAddress1Text))
}

func (m *Machine) handleCustomerAddress1(_ context.Context, s *session.Session, text string) (Outcome, error) {
	if text == "" {
		return reply(TextPrompt(askAddress1Text))
	}
	s.Customer.Address1 = text
	s.Step = session.StepAskCustomerAddress2
	return reply(TextPrompt(askAddress2Text))
}

func (m *Machine) handleCustomerAddress2(_ context.Context, s *session.Session, text string) (Outcome, error) {
	if text == address2None {
		text = ""
	}
	s.Customer.Address2 = text
	s.Step = session.StepConfirmCustomer
	return reply(
		TextPrompt(CustomerReviewText(m.catalog, s)),
		ChoicePrompt(m.leadImage(s), "上記のお客様情報でよろしいですか？",
			Choice{Label: "OK（決済へ進む）", Data: postback(keyCustOK, answerYes)},
			Choice{Label: "修正（最初から）", Data: postback(keyCustOK, answerNo)},
		),
	)
}

func (m *Machine) handleConfirmCustomer(_ context.Context, s *session.Session, answer string) (Outcome, error) {
	switch answer {
	case answerYes:
		if !s.Customer.Complete() {
			s.Step = session.StepAskCustomerName
			return reply(TextPrompt(askNameText))
		}
		s.Step = session.StepPickPay
		return reply(
			TextPrompt(OrderSummary(m.catalog, s.Order)),
			ChoicePrompt(m.leadImage(s), "決済方法を選択してください",
				Choice{Label: "クレジットカード（Square）", Data: postback(keyPay, session.PaymentCard)},
				Choice{Label: "口座振込", Data: postback(keyPay, session.PaymentBank)},
			),
		)
	case answerNo:
		s.Customer = session.CustomerDraft{}
		s.Step = session.StepAskCustomerName
		return reply(TextPrompt(askNameText))
	}
	return Outcome{}, nil
}

func (m *Machine) handlePay(ctx context.Context, s *session.Session, method string) (Outcome, error) {
	switch method {
	case session.PaymentBank:
		s.PaymentMethod = session.PaymentBank
		s.Step = session.StepBank
		return reply(TextPrompt(strings.Join(m.catalog.BankTransfer, "\n")))
	case session.PaymentCard:
		return m.requestPaymentLink(ctx, s)
	}
	return Outcome{}, nil
}

// requestPaymentLink leaves the session in pick_pay on failure so that the
// customer can press the same button again.
func (m *Machine) requestPaymentLink(ctx context.Context, s *session.Session) (Outcome, error) {
	if m.payments == nil {
		m.logger.Warn("Payment link provider is not configured", zap.String("user_id", s.UserID))
		m.metrics.PaymentLink(false)
		return reply(TextPrompt(paymentLinkFailedText))
	}

	items := PaymentLineItems(m.catalog, s.Order)
	link, err := m.payments.CreatePaymentLink(ctx, items, s.UserID)
	if err != nil || link == "" {
		m.logger.Error("Failed to create payment link",
			zap.String("user_id", s.UserID),
			zap.Int("items", len(items)),
			zap.Error(err))
		m.metrics.PaymentLink(false)
		return reply(TextPrompt(paymentLinkFailedText))
	}
	m.metrics.PaymentLink(true)

	s.PaymentMethod = session.PaymentCard
	s.PaymentLink = link
	s.Step = session.StepWaitingPayment
	return reply(
		TextPrompt("こちらから決済してください：\n"+link),
		TextPrompt("決済完了後にこのトークへ戻ってきてください。\n完了したら「入金済み」と送ってください。"),
	)
}
