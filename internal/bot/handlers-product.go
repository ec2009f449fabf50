package bot

import (
	"context"
	"fmt"

	"petprint-bot/internal/catalog"
	"petprint-bot/internal/session"
)

func (m *Machine) askPickProduct(lead string) []Prompt {
	cards := make([]Card, 0, len(m.catalog.Products))
	for _, p := range m.catalog.Products {
		title := p.Label
		if p.BasePrice > 0 {
			title = fmt.Sprintf("%s  ¥%s", p.Label, formatYen(p.BasePrice))
		}
		cards = append(cards, Card{
			Title:   title,
			Image:   p.Image,
			Choices: []Choice{{Label: "選ぶ", Data: postback(keyProduct, p.Key)}},
		})
	}
	return withLead(lead,
		CarouselPrompt(cards...),
		TextPrompt("上記より、ご希望の商品をお選びください。"),
	)
}

func (m *Machine) handleProduct(_ context.Context, s *session.Session, key string) (Outcome, error) {
	p, ok := m.catalog.Product(key)
	if !ok {
		return reply(TextPrompt("商品が見つかりませんでした。"))
	}

	switch p.Category {
	case catalog.CategoryIllustration:
		s.Pending = &session.PendingBuilder{Product: p.Key, Illustration: &session.IllustrationDraft{}}
		s.Step = session.StepIllPetCount
		return reply(m.askIllustrationPetCount(p)...)
	case catalog.CategoryCanvas:
		s.Pending = &session.PendingBuilder{Product: p.Key, Canvas: &session.CanvasDraft{}}
		s.Step = session.StepCanvasQty
		return reply(m.askCanvasQty(p))
	case catalog.CategoryStamp:
		s.Pending = &session.PendingBuilder{Product: p.Key, Stamp: &session.StampDraft{}}
		s.Step = session.StepStampPack
		return reply(m.askStampPack(p))
	}

	s.Pending = session.NewApparelBuilder(p.Key)
	s.Step = session.StepAskQuantity
	return reply(
		TextPrompt(fmt.Sprintf("%s ですね。", p.Label)),
		m.askQuantity(p),
	)
}

func (m *Machine) askAdditional(image string) Prompt {
	return ChoicePrompt(image, "他にご注文はありますか？",
		Choice{Label: "はい（商品を追加する）", Data: postback(keyAddMore, answerYes)},
		Choice{Label: "いいえ（確認へ進む）", Data: postback(keyAddMore, answerNo)},
	)
}

// finishLine appends finalized lines and moves to the additional-order question.
func (m *Machine) finishLine(s *session.Session, p catalog.Product, lead string, lines ...session.OrderLine) (Outcome, error) {
	s.Append(lines...)
	s.Step = session.StepAskAdditional
	return reply(withLead(lead, m.askAdditional(p.Image))...)
}

// pendingProduct resolves the product of the pending builder.
func (m *Machine) pendingProduct(s *session.Session) (catalog.Product, error) {
	if s.Pending == nil {
		return catalog.Product{}, errNoPending
	}
	p, ok := m.catalog.Product(s.Pending.Product)
	if !ok {
		return catalog.Product{}, fmt.Errorf("%w: %q", catalog.ErrUnknownProduct, s.Pending.Product)
	}
	return p, nil
}

// leadImage is the image shown next to order-wide questions.
func (m *Machine) leadImage(s *session.Session) string {
	if len(s.Order) > 0 {
		if p, ok := m.catalog.Product(s.Order[0].Product); ok {
			return p.Image
		}
	}
	if len(m.catalog.Products) > 0 {
		return m.catalog.Products[0].Image
	}
	return ""
}
