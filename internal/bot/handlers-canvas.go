package bot

import (
	"context"
	"fmt"
	"strconv"

	"petprint-bot/internal/catalog"
	"petprint-bot/internal/pricing"
	"petprint-bot/internal/session"
)

func (m *Machine) canvasDraft(s *session.Session) (catalog.Product, *session.CanvasDraft, error) {
	p, err := m.pendingProduct(s)
	if err != nil {
		return catalog.Product{}, nil, err
	}
	if s.Pending.Canvas == nil {
		return catalog.Product{}, nil, fmt.Errorf("%w: no canvas draft", errNoPending)
	}
	return p, s.Pending.Canvas, nil
}

func (m *Machine) askCanvasQty(p catalog.Product) Prompt {
	adders := m.catalog.Canvas.Adders
	choices := make([]Choice, 0, len(adders))
	for _, a := range adders {
		label := fmt.Sprintf("%d枚（＋¥%s）", a.Count, formatYen(a.Add))
		if a.Add == 0 {
			label = fmt.Sprintf("%d枚（基本 ¥%s）", a.Count, formatYen(p.BasePrice))
		}
		choices = append(choices, Choice{Label: label, Data: postback(keyCanvasQty, strconv.Itoa(a.Count))})
	}
	return ChoicePrompt(p.Image, "キャンバスアートの枚数を選択", choices...)
}

func (m *Machine) canvasSourcePrompt(p catalog.Product) Prompt {
	return ChoicePrompt(p.Image, "デザインの素材を選択", choicesFrom(keyCanvasSource, m.catalog.Canvas.Sources)...)
}

func (m *Machine) canvasOptionPrompt(p catalog.Product) Prompt {
	title := fmt.Sprintf("%sを希望しますか？", m.catalog.Canvas.EditOptionLabel)
	return ChoicePrompt(p.Image, title, toggleChoices(keyCanvasOption)...)
}

func (m *Machine) handleCanvasQty(_ context.Context, s *session.Session, value string) (Outcome, error) {
	p, draft, err := m.canvasDraft(s)
	if err != nil {
		return Outcome{}, err
	}
	q, err := strconv.Atoi(value)
	if _, ok := catalog.LookupTier(m.catalog.Canvas.Adders, q); err != nil || !ok {
		return reply(m.askCanvasQty(p))
	}

	draft.Qty = q
	s.Step = session.StepCanvasSource
	return reply(m.canvasSourcePrompt(p))
}

func (m *Machine) handleCanvasSource(_ context.Context, s *session.Session, value string) (Outcome, error) {
	p, draft, err := m.canvasDraft(s)
	if err != nil {
		return Outcome{}, err
	}
	if _, ok := catalog.FindChoice(m.catalog.Canvas.Sources, value); !ok {
		return reply(m.canvasSourcePrompt(p))
	}

	draft.Source = value
	s.Step = session.StepCanvasOption
	return reply(m.canvasOptionPrompt(p))
}

func (m *Machine) handleCanvasOption(_ context.Context, s *session.Session, value string) (Outcome, error) {
	p, draft, err := m.canvasDraft(s)
	if err != nil {
		return Outcome{}, err
	}
	on, ok := parseToggle(value)
	if !ok {
		return reply(m.canvasOptionPrompt(p))
	}
	draft.EditAdd = on

	amount, err := pricing.Canvas(p, m.catalog.Canvas, draft.Qty, draft.EditAdd)
	if err != nil {
		return Outcome{}, err
	}
	line := session.NewCanvasLine(p.Key, session.CanvasLine{
		Qty:     draft.Qty,
		Source:  draft.Source,
		EditAdd: draft.EditAdd,
	}, amount)
	return m.finishLine(s, p, "", line)
}
