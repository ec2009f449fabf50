package bot

import (
	"context"
	"fmt"
	"strconv"

	"petprint-bot/internal/catalog"
	"petprint-bot/internal/pricing"
	"petprint-bot/internal/session"
)

func (m *Machine) illustrationDraft(s *session.Session) (catalog.Product, *session.IllustrationDraft, error) {
	p, err := m.pendingProduct(s)
	if err != nil {
		return catalog.Product{}, nil, err
	}
	if s.Pending.Illustration == nil {
		return catalog.Product{}, nil, fmt.Errorf("%w: no illustration draft", errNoPending)
	}
	return p, s.Pending.Illustration, nil
}

func (m *Machine) askIllustrationPetCount(p catalog.Product) []Prompt {
	cfg := m.catalog.Illustration
	choices := make([]Choice, 0, len(cfg.Tiers))
	for _, t := range cfg.Tiers {
		label := fmt.Sprintf("%d匹（＋¥%s）", t.Count, formatYen(t.Add))
		if cfg.ConsultationFrom > 0 && t.Count >= cfg.ConsultationFrom {
			label = fmt.Sprintf("%d匹以上（事前にご相談ください）", t.Count)
		}
		choices = append(choices, Choice{Label: label, Data: postback(keyIllPet, strconv.Itoa(t.Count))})
	}
	return []Prompt{
		TextPrompt("イラストにしたいペットの頭数をお選びください。"),
		ChoicePrompt(p.Image, "ペット頭数を選択", choices...),
	}
}

func (m *Machine) handleIllustrationPetCount(_ context.Context, s *session.Session, value string) (Outcome, error) {
	p, draft, err := m.illustrationDraft(s)
	if err != nil {
		return Outcome{}, err
	}
	cfg := m.catalog.Illustration
	n, err := strconv.Atoi(value)
	if _, ok := catalog.LookupTier(cfg.Tiers, n); err != nil || !ok {
		return reply(m.askIllustrationPetCount(p)...)
	}

	draft.PetCount = n
	s.Step = session.StepIllCompose

	var lead string
	if m.needsConsultation(n) {
		lead = fmt.Sprintf("※%d匹以上は制作可否・お見積りを事前にご相談ください。", cfg.ConsultationFrom)
	}
	return reply(withLead(lead, ChoicePrompt(p.Image, "1枚内の構成を選択", choicesFrom(keyIllCompose, cfg.Compose)...))...)
}

func (m *Machine) needsConsultation(petCount int) bool {
	from := m.catalog.Illustration.ConsultationFrom
	return from > 0 && petCount >= from
}

func (m *Machine) handleIllustrationCompose(_ context.Context, s *session.Session, value string) (Outcome, error) {
	p, draft, err := m.illustrationDraft(s)
	if err != nil {
		return Outcome{}, err
	}
	cfg := m.catalog.Illustration
	if _, ok := catalog.FindChoice(cfg.Compose, value); !ok {
		return reply(ChoicePrompt(p.Image, "1枚内の構成を選択", choicesFrom(keyIllCompose, cfg.Compose)...))
	}

	draft.Compose = value
	s.Step = session.StepIllStyle
	return reply(ChoicePrompt(p.Image, "希望の作風を選択", choicesFrom(keyIllStyle, cfg.Styles)...))
}

func (m *Machine) handleIllustrationStyle(_ context.Context, s *session.Session, value string) (Outcome, error) {
	p, draft, err := m.illustrationDraft(s)
	if err != nil {
		return Outcome{}, err
	}
	cfg := m.catalog.Illustration
	if _, ok := catalog.FindChoice(cfg.Styles, value); !ok {
		return reply(ChoicePrompt(p.Image, "希望の作風を選択", choicesFrom(keyIllStyle, cfg.Styles)...))
	}

	draft.Style = value
	s.Step = session.StepIllOption
	return reply(m.illustrationOptionPrompt(p))
}

func (m *Machine) illustrationOptionPrompt(p catalog.Product) Prompt {
	title := fmt.Sprintf("文字入れを希望しますか？（＋¥%s）", formatYen(m.catalog.Illustration.TextOptionPrice))
	return ChoicePrompt(p.Image, title, toggleChoices(keyIllOption)...)
}

func (m *Machine) handleIllustrationOption(_ context.Context, s *session.Session, value string) (Outcome, error) {
	p, draft, err := m.illustrationDraft(s)
	if err != nil {
		return Outcome{}, err
	}
	on, ok := parseToggle(value)
	if !ok {
		return reply(m.illustrationOptionPrompt(p))
	}

	draft.TextAdd = on
	s.Step = session.StepIllRatio
	return reply(ChoicePrompt(p.Image, "ご希望のアスペクト比を選択", choicesFrom(keyIllRatio, m.catalog.Illustration.Ratios)...))
}

func (m *Machine) handleIllustrationRatio(_ context.Context, s *session.Session, value string) (Outcome, error) {
	p, draft, err := m.illustrationDraft(s)
	if err != nil {
		return Outcome{}, err
	}
	cfg := m.catalog.Illustration
	if _, ok := catalog.FindChoice(cfg.Ratios, value); !ok {
		return reply(ChoicePrompt(p.Image, "ご希望のアスペクト比を選択", choicesFrom(keyIllRatio, cfg.Ratios)...))
	}
	draft.Ratio = value

	amount, err := pricing.Illustration(p, cfg, draft.PetCount, draft.TextAdd)
	if err != nil {
		return Outcome{}, err
	}
	line := session.NewIllustrationLine(p.Key, session.IllustrationLine{
		PetCount:          draft.PetCount,
		Compose:           draft.Compose,
		Style:             draft.Style,
		Ratio:             draft.Ratio,
		TextAdd:           draft.TextAdd,
		NeedsConsultation: m.needsConsultation(draft.PetCount),
	}, amount)
	return m.finishLine(s, p, "", line)
}

func choicesFrom(key string, list []catalog.Choice) []Choice {
	out := make([]Choice, 0, len(list))
	for _, c := range list {
		out = append(out, Choice{Label: c.Label, Data: postback(key, c.Value)})
	}
	return out
}

func toggleChoices(key string) []Choice {
	return []Choice{
		{Label: "希望する", Data: postback(key, toggleOn)},
		{Label: "不要", Data: postback(key, toggleOff)},
	}
}

func parseToggle(value string) (on, ok bool) {
	switch value {
	case toggleOn:
		return true, true
	case toggleOff:
		return false, true
	default:
		return false, false
	}
}
