package session

// LineKind tags which payload of an OrderLine is populated.
type LineKind string

const (
	LineApparel      LineKind = "apparel"
	LineIllustration LineKind = "illustration"
	LineCanvas       LineKind = "canvas"
	LineStamp        LineKind = "stamp"
)

// OrderLine is one finalized order entry. Amount is frozen when the line is
// created and never recomputed from the catalog.
type OrderLine struct {
	Kind    LineKind `json:"kind"`
	Product string   `json:"product"`
	Amount  int      `json:"amount"`

	Apparel      *ApparelLine      `json:"apparel,omitempty"`
	Illustration *IllustrationLine `json:"illustration,omitempty"`
	Canvas       *CanvasLine       `json:"canvas,omitempty"`
	Stamp        *StampLine        `json:"stamp,omitempty"`
}

type ApparelLine struct {
	Campaign   string `json:"campaign"`
	Variation  string `json:"variation"`
	Color      string `json:"color,omitempty"`
	Size       string `json:"size,omitempty"`
	Side       string `json:"side,omitempty"`
	TextOption bool   `json:"text_option"`
}

type IllustrationLine struct {
	PetCount          int    `json:"pet_count"`
	Compose           string `json:"compose"`
	Style             string `json:"style"`
	Ratio             string `json:"ratio"`
	TextAdd           bool   `json:"text_add"`
	NeedsConsultation bool   `json:"needs_consultation"`
}

type CanvasLine struct {
	Qty     int    `json:"qty"`
	Source  string `json:"source"`
	EditAdd bool   `json:"edit_add"`
}

type StampLine struct {
	Pack      string `json:"pack"`
	PackPrice int    `json:"pack_price"`
	PetHeads  int    `json:"pet_heads"`
	Surcharge int    `json:"surcharge"`
	Publish   string `json:"publish"`
}

func NewApparelLine(product string, unit UnitBuilder) OrderLine {
	return OrderLine{
		Kind:    LineApparel,
		Product: product,
		Amount:  unit.Amount,
		Apparel: &ApparelLine{
			Campaign:   unit.Campaign.Value,
			Variation:  unit.Variation.Value,
			Color:      unit.Color.Value,
			Size:       unit.Size.Value,
			Side:       unit.Side.Value,
			TextOption: unit.TextOption,
		},
	}
}

func NewIllustrationLine(product string, l IllustrationLine, amount int) OrderLine {
	return OrderLine{Kind: LineIllustration, Product: product, Amount: amount, Illustration: &l}
}

func NewCanvasLine(product string, l CanvasLine, amount int) OrderLine {
	return OrderLine{Kind: LineCanvas, Product: product, Amount: amount, Canvas: &l}
}

func NewStampLine(product string, l StampLine) OrderLine {
	return OrderLine{Kind: LineStamp, Product: product, Amount: l.PackPrice + l.Surcharge, Stamp: &l}
}
