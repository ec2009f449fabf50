package bot

import (
	"context"
	"fmt"
	"strconv"

	"petprint-bot/internal/catalog"
	"petprint-bot/internal/pricing"
	"petprint-bot/internal/session"
)

func (m *Machine) stampDraft(s *session.Session) (catalog.Product, *session.StampDraft, error) {
	p, err := m.pendingProduct(s)
	if err != nil {
		return catalog.Product{}, nil, err
	}
	if s.Pending.Stamp == nil {
		return catalog.Product{}, nil, fmt.Errorf("%w: no stamp draft", errNoPending)
	}
	return p, s.Pending.Stamp, nil
}

func (m *Machine) askStampPack(p catalog.Product) Prompt {
	packs := m.catalog.Stamp.Packs
	choices := make([]Choice, 0, len(packs))
	for _, pk := range packs {
		choices = append(choices, Choice{
			Label: fmt.Sprintf("%s：¥%s", pk.Label, formatYen(pk.Price)),
			Data:  postback(keyStampPack, pk.Value),
		})
	}
	return ChoicePrompt(p.Image, "パックを選択", choices...)
}

func (m *Machine) askStampPetHeads(p catalog.Product) Prompt {
	tiers := m.catalog.Stamp.Surcharges
	choices := make([]Choice, 0, len(tiers))
	for _, t := range tiers {
		label := fmt.Sprintf("%d匹", t.Count)
		if t.Add > 0 {
			label += fmt.Sprintf("（＋¥%s）", formatYen(t.Add))
		}
		choices = append(choices, Choice{Label: label, Data: postback(keyStampPet, strconv.Itoa(t.Count))})
	}
	return ChoicePrompt(p.Image, "ペット頭数を選択", choices...)
}

func (m *Machine) askStampPublish(p catalog.Product) []Prompt {
	return []Prompt{
		TextPrompt("掲載のご協力について：ワンちゃんのお写真と完成スタンプを紹介させていただくことがあります。"),
		ChoicePrompt(p.Image, "掲載の可否をお選びください", choicesFrom(keyStampPublish, m.catalog.Stamp.Publish)...),
	}
}

func (m *Machine) handleStampPack(_ context.Context, s *session.Session, value string) (Outcome, error) {
	p, draft, err := m.stampDraft(s)
	if err != nil {
		return Outcome{}, err
	}
	if _, ok := m.catalog.StampPack(value); !ok {
		return reply(m.askStampPack(p))
	}

	draft.Pack = value
	s.Step = session.StepStampPet
	return reply(m.askStampPetHeads(p))
}

func (m *Machine) handleStampPet(_ context.Context, s *session.Session, value string) (Outcome, error) {
	p, draft, err := m.stampDraft(s)
	if err != nil {
		return Outcome{}, err
	}
	n, err := strconv.Atoi(value)
	if _, ok := catalog.LookupTier(m.catalog.Stamp.Surcharges, n); err != nil || !ok {
		return reply(m.askStampPetHeads(p))
	}

	draft.PetHeads = n
	s.Step = session.StepStampPublish
	return reply(m.askStampPublish(p)...)
}

func (m *Machine) handleStampPublish(_ context.Context, s *session.Session, value string) (Outcome, error) {
	p, draft, err := m.stampDraft(s)
	if err != nil {
		return Outcome{}, err
	}
	if _, ok := catalog.FindChoice(m.catalog.Stamp.Publish, value); !ok {
		return reply(m.askStampPublish(p)...)
	}
	draft.Publish = value

	quote, err := pricing.Stamp(m.catalog, draft.Pack, draft.PetHeads)
	if err != nil {
		return Outcome{}, err
	}
	line := session.NewStampLine(p.Key, session.StampLine{
		Pack:      draft.Pack,
		PackPrice: quote.PackPrice,
		PetHeads:  draft.PetHeads,
		Surcharge: quote.Surcharge,
		Publish:   draft.Publish,
	})
	return m.finishLine(s, p, "", line)
}
