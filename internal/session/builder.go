package session

// Change describes what an assignment did to a field.
type Change int

const (
	Unchanged Change = iota
	FirstSelection
	Changed
)

// FieldState tracks one selectable attribute of an apparel unit.
type FieldState struct {
	Value            string `json:"value,omitempty"`
	IsFirstSelection bool   `json:"is_first_selection"`
}

func NewFieldState() FieldState {
	return FieldState{IsFirstSelection: true}
}

func (f FieldState) IsSet() bool { return f.Value != "" }

// Set assigns v. Re-assigning the current value is a no-op.
func (f *FieldState) Set(v string) Change {
	if f.Value == v {
		return Unchanged
	}
	f.Value = v
	if f.IsFirstSelection {
		f.IsFirstSelection = false
		return FirstSelection
	}
	return Changed
}

// UnitBuilder collects the attributes of one apparel unit.
type UnitBuilder struct {
	Campaign    FieldState `json:"campaign"`
	Variation   FieldState `json:"variation"`
	Color       FieldState `json:"color"`
	Size        FieldState `json:"size"`
	Side        FieldState `json:"side"`
	TextOption  bool       `json:"text_option"`
	OptionFirst bool       `json:"option_first"`
	// OptionAnswered is set once the customer answered the option question,
	// even when the answer kept the default.
	OptionAnswered bool `json:"option_answered"`
	Amount         int  `json:"amount"`
}

func NewUnitBuilder() UnitBuilder {
	return UnitBuilder{
		Campaign:    NewFieldState(),
		Variation:   NewFieldState(),
		Color:       NewFieldState(),
		Size:        NewFieldState(),
		Side:        NewFieldState(),
		OptionFirst: true,
	}
}

// SetTextOption toggles the text option. Selecting the current state is a no-op.
func (u *UnitBuilder) SetTextOption(on bool) Change {
	u.OptionAnswered = true
	if u.TextOption == on {
		return Unchanged
	}
	u.TextOption = on
	if u.OptionFirst {
		u.OptionFirst = false
		return FirstSelection
	}
	return Changed
}

type IllustrationDraft struct {
	PetCount int    `json:"pet_count"`
	Compose  string `json:"compose"`
	Style    string `json:"style"`
	TextAdd  bool   `json:"text_add"`
	Ratio    string `json:"ratio"`
}

type CanvasDraft struct {
	Qty     int    `json:"qty"`
	Source  string `json:"source"`
	EditAdd bool   `json:"edit_add"`
}

type StampDraft struct {
	Pack     string `json:"pack"`
	PetHeads int    `json:"pet_heads"`
	Publish  string `json:"publish"`
}

// PendingBuilder is the product currently being configured. Apparel uses the
// unit list; each custom category uses its own draft.
type PendingBuilder struct {
	Product      string             `json:"product"`
	Quantity     int                `json:"quantity,omitempty"`
	Items        []UnitBuilder      `json:"items,omitempty"`
	CurrentIndex int                `json:"current_index"`
	Illustration *IllustrationDraft `json:"illustration,omitempty"`
	Canvas       *CanvasDraft       `json:"canvas,omitempty"`
	Stamp        *StampDraft        `json:"stamp,omitempty"`
}

func NewApparelBuilder(product string) *PendingBuilder {
	return &PendingBuilder{Product: product}
}

// SetQuantity allocates one unit builder per requested unit.
func (p *PendingBuilder) SetQuantity(q int) {
	p.Quantity = q
	p.Items = make([]UnitBuilder, q)
	for i := range p.Items {
		p.Items[i] = NewUnitBuilder()
	}
	p.CurrentIndex = 0
}

func (p *PendingBuilder) Current() *UnitBuilder {
	if p.CurrentIndex < 0 || p.CurrentIndex >= len(p.Items) {
		return nil
	}
	return &p.Items[p.CurrentIndex]
}

// Advance moves to the next unit and reports whether one remains.
func (p *PendingBuilder) Advance() bool {
	if p.CurrentIndex+1 >= p.Quantity {
		return false
	}
	p.CurrentIndex++
	return true
}
