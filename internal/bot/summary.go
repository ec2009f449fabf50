package bot

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"petprint-bot/internal/catalog"
	"petprint-bot/internal/pricing"
	"petprint-bot/internal/session"
	"petprint-bot/pkg/square"
)

var yenPrinter = message.NewPrinter(language.Japanese)

// formatYen groups thousands: 13800 -> "13,800".
func formatYen(amount int) string {
	return yenPrinter.Sprintf("%d", amount)
}

func productLabel(c *catalog.Catalog, key string) string {
	if p, ok := c.Product(key); ok {
		return p.Label
	}
	return key
}

func choiceLabel(list []catalog.Choice, value string) string {
	if ch, ok := catalog.FindChoice(list, value); ok {
		return ch.Label
	}
	return value
}

func nonEmpty(parts ...string) []string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// lineDetail describes the attributes of one order line.
func lineDetail(c *catalog.Catalog, l session.OrderLine) string {
	switch l.Kind {
	case session.LineIllustration:
		d := l.Illustration
		text := ""
		if d.TextAdd {
			text = fmt.Sprintf("文字入れあり（＋%s円）", formatYen(c.Illustration.TextOptionPrice))
		}
		consult := ""
		if d.NeedsConsultation {
			consult = "要相談"
		}
		return strings.Join(nonEmpty(
			fmt.Sprintf("頭数:%d匹", d.PetCount),
			choiceLabel(c.Illustration.Compose, d.Compose),
			choiceLabel(c.Illustration.Styles, d.Style),
			choiceLabel(c.Illustration.Ratios, d.Ratio),
			text,
			consult,
		), " / ")
	case session.LineCanvas:
		d := l.Canvas
		edit := ""
		if d.EditAdd {
			edit = c.Canvas.EditOptionLabel
		}
		return strings.Join(nonEmpty(
			fmt.Sprintf("枚数:%d枚", d.Qty),
			choiceLabel(c.Canvas.Sources, d.Source),
			edit,
		), " / ")
	case session.LineStamp:
		d := l.Stamp
		pack := d.Pack
		if pk, ok := c.StampPack(d.Pack); ok {
			pack = pk.Label
		}
		return strings.Join(nonEmpty(
			pack,
			fmt.Sprintf("頭数:%d匹", d.PetHeads),
			choiceLabel(c.Stamp.Publish, d.Publish),
		), " / ")
	case session.LineApparel:
		d := l.Apparel
		side := ""
		if d.Side != "" {
			side = choiceLabel(sidesOf(c, l.Product), d.Side)
			if d.Side == pricing.SideBoth {
				side = fmt.Sprintf("両面プリント（＋%s円）", formatYen(c.Apparel.BothSideSurcharge))
			}
		}
		if d.TextOption {
			side += "／" + c.Apparel.TextOptionLabel
		}
		return strings.Join(nonEmpty(
			colorLabelOf(c, d.Color),
			sizeLabelOf(c, d.Size),
			strings.TrimPrefix(side, "／"),
		), "／")
	}
	return ""
}

func sidesOf(c *catalog.Catalog, key string) []catalog.Choice {
	if p, ok := c.Product(key); ok {
		return p.Sides
	}
	return nil
}

func colorLabelOf(c *catalog.Catalog, v string) string {
	if v == "" {
		return ""
	}
	return c.ColorLabel(v)
}

func sizeLabelOf(c *catalog.Catalog, v string) string {
	if v == "" {
		return ""
	}
	return c.SizeLabel(v)
}

// orderBlocks renders one block per line, numbered from 1.
func orderBlocks(c *catalog.Catalog, lines []session.OrderLine, money func(int) string) []string {
	blocks := make([]string, 0, len(lines))
	for i, l := range lines {
		blocks = append(blocks, strings.Join(nonEmpty(
			fmt.Sprintf("\n#%d %s", i+1, productLabel(c, l.Product)),
			lineDetail(c, l),
			"→ "+money(l.Amount),
		), "\n"))
	}
	return blocks
}

func yenSuffix(n int) string { return formatYen(n) + "円" }

func yenPrefix(n int) string { return "¥" + formatYen(n) }

// OrderSummary is the review shown before checkout and payment.
func OrderSummary(c *catalog.Catalog, lines []session.OrderLine) string {
	parts := []string{"【注文内容の確認】"}
	parts = append(parts, orderBlocks(c, lines, yenSuffix)...)
	parts = append(parts, "\n合計: "+yenSuffix(session.LinesTotal(lines)))
	return strings.Join(parts, "\n")
}

func customerLines(cust session.CustomerDraft) []string {
	address := cust.Address1
	if cust.Address2 != "" {
		address += " " + cust.Address2
	}
	return []string{
		"お名前：" + cust.Name,
		"電話：" + cust.Phone,
		"郵便番号：" + cust.Postal,
		"住所：" + address,
	}
}

// CustomerReviewText is shown when the customer confirms shipping details.
func CustomerReviewText(c *catalog.Catalog, s *session.Session) string {
	parts := []string{"ご注文内容の確認", "【ご注文】", OrderSummary(c, s.Order), "", "【お届け先】"}
	parts = append(parts, customerLines(s.Customer)...)
	return strings.Join(parts, "\n")
}

// CustomerConfirmationText is pushed to the customer once payment is reported.
func CustomerConfirmationText(c *catalog.Catalog, s *session.Session) string {
	parts := []string{"【ご注文内容は以下の通りです】"}
	parts = append(parts, orderBlocks(c, s.Order, yenPrefix)...)
	parts = append(parts, "\n合計："+yenPrefix(s.Total()), "", "【お届け先】")
	parts = append(parts, customerLines(s.Customer)...)
	parts = append(parts, "")
	return strings.Join(parts, "\n")
}

// AdminConfirmationText is pushed to every admin once payment is reported.
func AdminConfirmationText(c *catalog.Catalog, s *session.Session) string {
	parts := []string{"【注文確定（お客様控え送信済み）】", "userId: " + s.UserID}
	if s.PaymentMethod != "" {
		parts = append(parts, "決済方法: "+s.PaymentMethod)
	}
	parts = append(parts, orderBlocks(c, s.Order, yenPrefix)...)
	parts = append(parts, "\n合計："+yenPrefix(s.Total()), "", "【お届け先】")
	parts = append(parts, customerLines(s.Customer)...)
	return strings.Join(parts, "\n")
}

// PaymentLineItems converts frozen order lines into payment line items. The
// items always add up to the order total; sticker packs are billed as the
// pack plus a separate head surcharge.
func PaymentLineItems(c *catalog.Catalog, lines []session.OrderLine) []square.LineItem {
	items := make([]square.LineItem, 0, len(lines))
	for _, l := range lines {
		label := productLabel(c, l.Product)

		switch l.Kind {
		case session.LineIllustration:
			d := l.Illustration
			text := ""
			if d.TextAdd {
				text = "文字入れ"
			}
			name := strings.Join(nonEmpty(
				label,
				fmt.Sprintf("頭数:%d匹", d.PetCount),
				choiceLabel(c.Illustration.Compose, d.Compose),
				choiceLabel(c.Illustration.Styles, d.Style),
				choiceLabel(c.Illustration.Ratios, d.Ratio),
				text,
			), " / ")
			items = append(items, square.LineItem{Name: name, Amount: l.Amount, Quantity: 1})
		case session.LineCanvas:
			d := l.Canvas
			edit := ""
			if d.EditAdd {
				edit = "加工/文字入れ"
			}
			name := strings.Join(nonEmpty(
				label,
				fmt.Sprintf("枚数:%d枚", d.Qty),
				choiceLabel(c.Canvas.Sources, d.Source),
				edit,
			), " / ")
			items = append(items, square.LineItem{Name: name, Amount: l.Amount, Quantity: 1})
		case session.LineStamp:
			d := l.Stamp
			pack := d.Pack
			if pk, ok := c.StampPack(d.Pack); ok {
				pack = pk.Label
			}
			items = append(items, square.LineItem{Name: label + " / " + pack, Amount: d.PackPrice, Quantity: 1})
			if d.Surcharge > 0 {
				items = append(items, square.LineItem{
					Name:     fmt.Sprintf("頭数加算（%d匹）", d.PetHeads),
					Amount:   d.Surcharge,
					Quantity: 1,
				})
			}
		default:
			d := l.Apparel
			var opts []string
			if d != nil && d.Side == pricing.SideBoth {
				opts = append(opts, "両面")
			}
			if d != nil && d.TextOption {
				opts = append(opts, "文字入れ")
			}
			optText := ""
			if len(opts) > 0 {
				optText = "オプション:" + strings.Join(opts, "・")
			}
			var size, color string
			if d != nil {
				size, color = sizeLabelOf(c, d.Size), colorLabelOf(c, d.Color)
			}
			name := strings.Join(nonEmpty(label, size, color, optText), " / ")
			items = append(items, square.LineItem{Name: name, Amount: l.Amount, Quantity: 1})
		}
	}
	return items
}
