package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petprint-bot/internal/catalog"
	"petprint-bot/internal/session"
)

func TestFormatYen(t *testing.T) {
	assert.Equal(t, "0", formatYen(0))
	assert.Equal(t, "400", formatYen(400))
	assert.Equal(t, "13,800", formatYen(13800))
	assert.Equal(t, "1,234,567", formatYen(1234567))
}

func mixedOrder() []session.OrderLine {
	return []session.OrderLine{
		{
			Kind: session.LineApparel, Product: "tshirt_premium", Amount: 5700,
			Apparel: &session.ApparelLine{Campaign: "momiji", Variation: "normal", Color: "white", Size: "kids120", Side: "both", TextOption: true},
		},
		{
			Kind: session.LineIllustration, Product: "illustration", Amount: 3500,
			Illustration: &session.IllustrationLine{PetCount: 2, Compose: "one_per_image", Style: "art", Ratio: "1_1"},
		},
		{
			Kind: session.LineCanvas, Product: "canvas_art", Amount: 10600,
			Canvas: &session.CanvasLine{Qty: 2, Source: "photo", EditAdd: true},
		},
		session.NewStampLine("line_stamp", session.StampLine{Pack: "p8", PackPrice: 4800, PetHeads: 3, Surcharge: 1000, Publish: "ok"}),
	}
}

func TestOrderSummary(t *testing.T) {
	c := catalog.Default()
	text := OrderSummary(c, mixedOrder())

	assert.Contains(t, text, "【注文内容の確認】")
	assert.Contains(t, text, "#1 プレミアムTシャツ")
	assert.Contains(t, text, "白／子供用120／両面プリント（＋2,000円）／文字入れ（＋400円）")
	assert.Contains(t, text, "#2 映えワン/映えニャン（ペットのイラスト製作）")
	assert.Contains(t, text, "頭数:2匹 / 1枚のイラストに1匹 / アート系 / 正方形 1:1")
	assert.Contains(t, text, "枚数:2枚 / お持ちの写真 / 画像の加工/文字入れ（＋400円）")
	assert.Contains(t, text, "お試しパック 8個 / 頭数:3匹 / 掲載OK")
	assert.Contains(t, text, "→ 5,800円")
	assert.Contains(t, text, "合計: 25,600円")
}

func TestPaymentLineItemsMatchTotal(t *testing.T) {
	c := catalog.Default()
	lines := mixedOrder()
	items := PaymentLineItems(c, lines)

	require.Len(t, items, 5)
	sum := 0
	for _, it := range items {
		assert.Equal(t, 1, it.Quantity)
		assert.NotEmpty(t, it.Name)
		sum += it.Amount
	}
	s := &session.Session{Order: lines}
	assert.Equal(t, s.Total(), sum)

	assert.Equal(t, "プレミアムTシャツ / 子供用120 / 白 / オプション:両面・文字入れ", items[0].Name)
	assert.Equal(t, "愛犬LINEスタンプ / お試しパック 8個", items[3].Name)
	assert.Equal(t, 4800, items[3].Amount)
	assert.Equal(t, "頭数加算（3匹）", items[4].Name)
	assert.Equal(t, 1000, items[4].Amount)
}

func TestStampWithoutSurchargeIsOneItem(t *testing.T) {
	items := PaymentLineItems(catalog.Default(), []session.OrderLine{
		session.NewStampLine("line_stamp", session.StampLine{Pack: "p16", PackPrice: 8200, PetHeads: 1, Publish: "ng"}),
	})
	require.Len(t, items, 1)
	assert.Equal(t, 8200, items[0].Amount)
}

func TestConfirmationTexts(t *testing.T) {
	c := catalog.Default()
	s := session.New("U7")
	s.Order = mixedOrder()
	s.PaymentMethod = session.PaymentCard
	s.Customer = session.CustomerDraft{Name: "山田", Phone: "09012345678", Postal: "1000001", Address1: "東京都"}

	customer := CustomerConfirmationText(c, s)
	assert.Contains(t, customer, "【ご注文内容は以下の通りです】")
	assert.Contains(t, customer, "→ ¥5,800")
	assert.Contains(t, customer, "合計：¥25,600")
	assert.Contains(t, customer, "住所：東京都")
	assert.NotContains(t, customer, "userId")

	admin := AdminConfirmationText(c, s)
	assert.Contains(t, admin, "userId: U7")
	assert.Contains(t, admin, "決済方法: card")
	assert.Contains(t, admin, "電話：09012345678")
}
