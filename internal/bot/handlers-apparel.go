package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"petprint-bot/internal/catalog"
	"petprint-bot/internal/pricing"
	"petprint-bot/internal/session"
)

const (
	sizeKids   = "kids120"
	colorWhite = "white"

	kidsSizeNotice = "子供用120は白のみ対応です。カラーを白に変更してください。"
)

func (m *Machine) askQuantity(p catalog.Product) Prompt {
	choices := make([]Choice, 0, m.catalog.Apparel.MaxQuantity)
	for q := 1; q <= m.catalog.Apparel.MaxQuantity; q++ {
		choices = append(choices, Choice{Label: fmt.Sprintf("%d点", q), Data: postback(keyQuantity, strconv.Itoa(q))})
	}
	return ChoicePrompt(p.Image, "ご購入点数を選択してください", choices...)
}

func (m *Machine) campaignCarousel() Prompt {
	cards := make([]Card, 0, len(m.catalog.Campaigns))
	for _, c := range m.catalog.Campaigns {
		cards = append(cards, Card{
			Title:   c.Label,
			Image:   c.Image,
			Choices: []Choice{{Label: "このテーマで進む", Data: postback(keyCampaign, c.ID)}},
		})
	}
	return CarouselPrompt(cards...)
}

func (m *Machine) variationCarousel(campaignID string) Prompt {
	cards := make([]Card, 0, len(m.catalog.Variations))
	for _, v := range m.catalog.Variations {
		cards = append(cards, Card{
			Title:   v.Label,
			Image:   v.Image(campaignID),
			Choices: []Choice{{Label: "このバリエーションで進む", Data: postback(keyVariation, v.ID)}},
		})
	}
	return CarouselPrompt(cards...)
}

func (m *Machine) colorPrompt(p catalog.Product) Prompt {
	choices := make([]Choice, 0, len(p.Colors))
	for _, c := range p.Colors {
		choices = append(choices, Choice{Label: m.catalog.ColorLabel(c), Data: postback(keyColor, c)})
	}
	return ChoicePrompt(firstNonEmpty(p.ColorImage, p.Image), "カラーを選択", choices...)
}

func (m *Machine) sizePrompt(p catalog.Product) Prompt {
	choices := make([]Choice, 0, len(p.Sizes))
	for _, z := range p.Sizes {
		choices = append(choices, Choice{Label: m.catalog.SizeLabel(z), Data: postback(keySize, z)})
	}
	return ChoicePrompt(firstNonEmpty(p.SizeImage, p.Image), "サイズを選択", choices...)
}

func (m *Machine) sidePrompt(p catalog.Product) Prompt {
	choices := make([]Choice, 0, len(p.Sides))
	for _, sd := range p.Sides {
		choices = append(choices, Choice{Label: sd.Label, Data: postback(keySide, sd.Value)})
	}
	return ChoicePrompt(firstNonEmpty(p.SideImage, m.catalog.Apparel.SideImage, p.Image), "プリント面を選択", choices...)
}

func (m *Machine) optionPrompt(p catalog.Product) Prompt {
	return ChoicePrompt(firstNonEmpty(m.catalog.Apparel.OptionImage, p.Image),
		"オプションを選択してください\n"+m.catalog.Apparel.TextOptionLabel,
		Choice{Label: "する", Data: postback(keyOptSet, textOptionKey+":"+toggleOn)},
		Choice{Label: "しない", Data: postback(keyOptSet, textOptionKey+":"+toggleOff)},
	)
}

// apparelUnit returns the product and unit under construction.
func (m *Machine) apparelUnit(s *session.Session) (catalog.Product, *session.UnitBuilder, error) {
	p, err := m.pendingProduct(s)
	if err != nil {
		return catalog.Product{}, nil, err
	}
	unit := s.CurrentUnit()
	if unit == nil {
		return catalog.Product{}, nil, fmt.Errorf("%w: no apparel unit for %s", errNoPending, p.Key)
	}
	return p, unit, nil
}

func (m *Machine) handleQuantity(_ context.Context, s *session.Session, value string) (Outcome, error) {
	p, err := m.pendingProduct(s)
	if err != nil {
		return Outcome{}, err
	}
	q, err := strconv.Atoi(value)
	if err != nil || q < 1 || q > m.catalog.Apparel.MaxQuantity {
		return reply(TextPrompt("ご購入点数を選び直してください。"), m.askQuantity(p))
	}

	s.Pending.SetQuantity(q)
	s.Step = session.StepPickCampaignItem
	lead := "ありがとうございます。次にテーマをお選びください。"
	if q > 1 {
		lead = "ありがとうございます。まずは1点目のテーマをお選びください。"
	}
	return reply(TextPrompt(lead), m.campaignCarousel())
}

func (m *Machine) handleCampaign(_ context.Context, s *session.Session, id string) (Outcome, error) {
	_, unit, err := m.apparelUnit(s)
	if err != nil {
		return Outcome{}, err
	}
	c, ok := m.catalog.Campaign(id)
	if !ok {
		return reply(TextPrompt("キャンペーンが見つかりませんでした。もう一度お選びください。"), m.campaignCarousel())
	}

	msg := choiceMessage(unit.Campaign.Set(id), "テーマ", c.Label)
	s.Step = session.StepPickVariationItem
	return reply(withLead(msg, m.variationCarousel(id))...)
}

func (m *Machine) handleVariation(_ context.Context, s *session.Session, id string) (Outcome, error) {
	p, unit, err := m.apparelUnit(s)
	if err != nil {
		return Outcome{}, err
	}
	v, ok := m.catalog.Variation(id)
	if !ok {
		return reply(
			TextPrompt("バリエーションが見つかりませんでした。もう一度お選びください。"),
			m.variationCarousel(unit.Campaign.Value),
		)
	}

	msg := choiceMessage(unit.Variation.Set(id), "", v.Label)
	return m.nextApparelPrompt(s, p, msg)
}

func (m *Machine) handleColor(_ context.Context, s *session.Session, color string) (Outcome, error) {
	p, unit, err := m.apparelUnit(s)
	if err != nil {
		return Outcome{}, err
	}
	if !p.HasColor(color) {
		return reply(TextPrompt("カラーが見つかりませんでした。もう一度お選びください。"), m.colorPrompt(p))
	}

	msgs := []string{choiceMessage(unit.Color.Set(color), "カラー", m.catalog.ColorLabel(color))}
	if color != colorWhite && unit.Size.Value == sizeKids {
		unit.Size.Value = ""
		msgs = append(msgs, "子供用120は白のみ対応のため、サイズを選び直してください。")
	}
	return m.nextApparelPrompt(s, p, joinLines(msgs...))
}

func (m *Machine) handleSize(_ context.Context, s *session.Session, size string) (Outcome, error) {
	p, unit, err := m.apparelUnit(s)
	if err != nil {
		return Outcome{}, err
	}
	if !p.HasSize(size) {
		return reply(TextPrompt("サイズが見つかりませんでした。もう一度お選びください。"), m.sizePrompt(p))
	}
	if size == sizeKids && unit.Color.Value != colorWhite {
		return reply(TextPrompt(kidsSizeNotice), m.colorPrompt(p))
	}

	msg := choiceMessage(unit.Size.Set(size), "サイズ", m.catalog.SizeLabel(size))
	return m.nextApparelPrompt(s, p, msg)
}

func (m *Machine) handleSide(_ context.Context, s *session.Session, side string) (Outcome, error) {
	p, unit, err := m.apparelUnit(s)
	if err != nil {
		return Outcome{}, err
	}
	if !p.HasSide(side) {
		return reply(TextPrompt("プリント面が見つかりませんでした。もう一度お選びください。"), m.sidePrompt(p))
	}

	msg := choiceMessage(unit.Side.Set(side), "プリント面", p.SideLabel(side))
	return m.nextApparelPrompt(s, p, msg)
}

// handleOptSet takes "text:on" or "text:off".
func (m *Machine) handleOptSet(_ context.Context, s *session.Session, value string) (Outcome, error) {
	p, unit, err := m.apparelUnit(s)
	if err != nil {
		return Outcome{}, err
	}
	key, state, _ := strings.Cut(value, ":")
	if key != textOptionKey || (state != toggleOn && state != toggleOff) {
		return reply(m.optionPrompt(p))
	}

	on := state == toggleOn
	label := m.catalog.Apparel.TextOptionLabel
	var msg string
	switch unit.SetTextOption(on) {
	case session.FirstSelection:
		msg = fmt.Sprintf("オプション「%s」が選択されました。", label)
	case session.Changed:
		if on {
			msg = fmt.Sprintf("オプションを「%s」に変更しました。", label)
		} else {
			msg = fmt.Sprintf("オプション「%s」を外しました。", label)
		}
	}
	return m.nextApparelPrompt(s, p, msg)
}

// nextApparelPrompt asks for the first unset attribute of the current unit in
// the order campaign, variation, color, size, side, option, and finalizes the
// unit once nothing is left.
func (m *Machine) nextApparelPrompt(s *session.Session, p catalog.Product, lead string) (Outcome, error) {
	unit := s.CurrentUnit()

	switch {
	case !unit.Campaign.IsSet():
		s.Step = session.StepPickCampaignItem
		return reply(withLead(lead, m.campaignCarousel())...)
	case !unit.Variation.IsSet():
		s.Step = session.StepPickVariationItem
		return reply(withLead(lead, m.variationCarousel(unit.Campaign.Value))...)
	case len(p.Colors) > 0 && !unit.Color.IsSet():
		s.Step = session.StepPickColorItem
		return reply(withLead(lead, TextPrompt("カラーを選択してください"), m.colorPrompt(p))...)
	case len(p.Sizes) > 0 && !unit.Size.IsSet():
		s.Step = session.StepPickSizeItem
		title := "サイズを選択してください"
		if p.HasSize(sizeKids) {
			title = "サイズを選択してください（※子供用120は白のみ）"
		}
		return reply(withLead(lead, TextPrompt(title), m.sizePrompt(p))...)
	case len(p.Sides) > 0 && !unit.Side.IsSet():
		s.Step = session.StepPickSideItem
		return reply(withLead(lead, TextPrompt("プリント面を選択してください"), m.sidePrompt(p))...)
	case !unit.OptionAnswered:
		s.Step = session.StepPickOptsItem
		return reply(withLead(lead, m.optionPrompt(p))...)
	}
	return m.finalizeUnit(s, p, lead)
}

func (m *Machine) finalizeUnit(s *session.Session, p catalog.Product, lead string) (Outcome, error) {
	unit := s.CurrentUnit()
	unit.Amount = pricing.Apparel(p, m.catalog.Apparel, unit.Side.Value, unit.TextOption)

	if s.Pending.Advance() {
		s.Step = session.StepPickCampaignItem
		next := fmt.Sprintf("続いて %d点目のテーマをお選びください。", s.Pending.CurrentIndex+1)
		return reply(withLead(lead, TextPrompt(next), m.campaignCarousel())...)
	}

	lines := make([]session.OrderLine, 0, len(s.Pending.Items))
	for _, item := range s.Pending.Items {
		lines = append(lines, session.NewApparelLine(p.Key, item))
	}
	return m.finishLine(s, p, lead, lines...)
}

// choiceMessage words a selection as first or changed. An empty attribute name
// quotes the value alone.
func choiceMessage(change session.Change, attribute, label string) string {
	switch change {
	case session.FirstSelection:
		return fmt.Sprintf("%s「%s」が選択されました。", attribute, label)
	case session.Changed:
		if attribute == "" {
			return fmt.Sprintf("「%s」に変更しました。", label)
		}
		return fmt.Sprintf("%sを「%s」に変更しました。", attribute, label)
	default:
		return ""
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// joinLines joins the non-empty messages with newlines.
func joinLines(msgs ...string) string {
	out := make([]string, 0, len(msgs))
	for _, s := range msgs {
		if s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "\n")
}
