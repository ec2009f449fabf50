// Package catalog holds the static product definitions and price tables.
//
// The catalog is shipped as an embedded YAML document and validated once at
// load time; everything handed out afterwards is read-only.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultDocument []byte

var ErrUnknownProduct = errors.New("catalog: unknown product")

type Category string

const (
	CategoryApparel      Category = "apparel"
	CategoryIllustration Category = "illustration"
	CategoryCanvas       Category = "canvas"
	CategoryStamp        Category = "stamp"
)

// Choice is a selectable value with its customer-facing label.
type Choice struct {
	Value string `yaml:"value"`
	Label string `yaml:"label"`
}

// Tier maps a count (pets, panels, heads) to an amount added to the base price.
type Tier struct {
	Count int `yaml:"count"`
	Add   int `yaml:"add"`
}

type Product struct {
	Key        string   `yaml:"key"`
	Label      string   `yaml:"label"`
	Category   Category `yaml:"category"`
	BasePrice  int      `yaml:"base_price"`
	Image      string   `yaml:"image"`
	SizeImage  string   `yaml:"size_image"`
	SideImage  string   `yaml:"side_image"`
	ColorImage string   `yaml:"color_image"`
	Colors     []string `yaml:"colors"`
	Sizes      []string `yaml:"sizes"`
	Sides      []Choice `yaml:"sides"`
}

type Campaign struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
	Image string `yaml:"image"`
}

type Variation struct {
	ID     string            `yaml:"id"`
	Label  string            `yaml:"label"`
	Images map[string]string `yaml:"images"`
}

type Apparel struct {
	MaxQuantity       int    `yaml:"max_quantity"`
	BothSideSurcharge int    `yaml:"both_side_surcharge"`
	TextOptionPrice   int    `yaml:"text_option_price"`
	TextOptionLabel   string `yaml:"text_option_label"`
	ColorImage        string `yaml:"color_image"`
	SideImage         string `yaml:"side_image"`
	OptionImage       string `yaml:"option_image"`
}

type Illustration struct {
	TextOptionPrice  int      `yaml:"text_option_price"`
	ConsultationFrom int      `yaml:"consultation_from"`
	Tiers            []Tier   `yaml:"tiers"`
	Compose          []Choice `yaml:"compose"`
	Styles           []Choice `yaml:"styles"`
	Ratios           []Choice `yaml:"ratios"`
}

type Canvas struct {
	EditOptionPrice int      `yaml:"edit_option_price"`
	EditOptionLabel string   `yaml:"edit_option_label"`
	Adders          []Tier   `yaml:"adders"`
	Sources         []Choice `yaml:"sources"`
}

type StampPack struct {
	Value string `yaml:"value"`
	Label string `yaml:"label"`
	Price int    `yaml:"price"`
	Count int    `yaml:"count"`
}

type Stamp struct {
	Packs      []StampPack `yaml:"packs"`
	Surcharges []Tier      `yaml:"surcharges"`
	Publish    []Choice    `yaml:"publish"`
}

type Catalog struct {
	StartTriggers []string          `yaml:"start_triggers"`
	Apparel       Apparel           `yaml:"apparel"`
	Products      []Product         `yaml:"products"`
	Campaigns     []Campaign        `yaml:"campaigns"`
	Variations    []Variation       `yaml:"variations"`
	ColorLabels   map[string]string `yaml:"color_labels"`
	SizeLabels    map[string]string `yaml:"size_labels"`
	Illustration  Illustration      `yaml:"illustration"`
	Canvas        Canvas            `yaml:"canvas"`
	Stamp         Stamp             `yaml:"stamp"`
	BankTransfer  []string          `yaml:"bank_transfer"`

	byKey map[string]int
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the embedded catalog. It panics if the embedded document is
// invalid, which can only happen through a broken build.
func Default() *Catalog {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Load(defaultDocument)
	})
	if defaultErr != nil {
		panic(fmt.Sprintf("catalog: embedded document: %v", defaultErr))
	}
	return defaultCatalog
}

// Load parses and validates a catalog document.
func Load(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.Products) == 0 {
		return errors.New("catalog: no products")
	}
	if len(c.StartTriggers) == 0 {
		return errors.New("catalog: no start triggers")
	}

	c.byKey = make(map[string]int, len(c.Products))
	seen := map[Category]int{}
	for i, p := range c.Products {
		if p.Key == "" {
			return fmt.Errorf("catalog: product #%d has no key", i)
		}
		if _, dup := c.byKey[p.Key]; dup {
			return fmt.Errorf("catalog: duplicate product %q", p.Key)
		}
		switch p.Category {
		case CategoryApparel:
			if p.BasePrice <= 0 {
				return fmt.Errorf("catalog: product %q has no base price", p.Key)
			}
		case CategoryIllustration, CategoryCanvas, CategoryStamp:
		default:
			return fmt.Errorf("catalog: product %q has unknown category %q", p.Key, p.Category)
		}
		c.byKey[p.Key] = i
		seen[p.Category]++
	}

	for _, cat := range []Category{CategoryIllustration, CategoryCanvas, CategoryStamp} {
		if seen[cat] != 1 {
			return fmt.Errorf("catalog: want exactly one %s product, got %d", cat, seen[cat])
		}
	}
	if seen[CategoryApparel] > 0 {
		if len(c.Campaigns) == 0 || len(c.Variations) == 0 {
			return errors.New("catalog: apparel requires campaigns and variations")
		}
		if c.Apparel.MaxQuantity < 1 {
			return errors.New("catalog: apparel max quantity must be positive")
		}
	}

	if err := validateTiers("illustration tiers", c.Illustration.Tiers); err != nil {
		return err
	}
	if err := validateTiers("canvas adders", c.Canvas.Adders); err != nil {
		return err
	}
	if err := validateTiers("stamp surcharges", c.Stamp.Surcharges); err != nil {
		return err
	}
	if len(c.Stamp.Packs) == 0 {
		return errors.New("catalog: no stamp packs")
	}
	return nil
}

// validateTiers requires counts to start at 1 and increase by one.
func validateTiers(name string, tiers []Tier) error {
	if len(tiers) == 0 {
		return fmt.Errorf("catalog: %s are empty", name)
	}
	for i, t := range tiers {
		if t.Count != i+1 {
			return fmt.Errorf("catalog: %s must be contiguous from 1, got %d at position %d", name, t.Count, i)
		}
	}
	return nil
}

func (c *Catalog) Product(key string) (Product, bool) {
	i, ok := c.byKey[key]
	if !ok {
		return Product{}, false
	}
	return c.Products[i], true
}

func (c *Catalog) Campaign(id string) (Campaign, bool) {
	for _, cp := range c.Campaigns {
		if cp.ID == id {
			return cp, true
		}
	}
	return Campaign{}, false
}

func (c *Catalog) Variation(id string) (Variation, bool) {
	for _, v := range c.Variations {
		if v.ID == id {
			return v, true
		}
	}
	return Variation{}, false
}

// Image returns the variation image for a campaign, falling back to any image.
func (v Variation) Image(campaignID string) string {
	if img, ok := v.Images[campaignID]; ok {
		return img
	}
	for _, img := range v.Images {
		return img
	}
	return ""
}

func (c *Catalog) StampPack(value string) (StampPack, bool) {
	for _, p := range c.Stamp.Packs {
		if p.Value == value {
			return p, true
		}
	}
	return StampPack{}, false
}

func (c *Catalog) ColorLabel(v string) string {
	if l, ok := c.ColorLabels[v]; ok {
		return l
	}
	return v
}

func (c *Catalog) SizeLabel(v string) string {
	if l, ok := c.SizeLabels[v]; ok {
		return l
	}
	return v
}

func (p Product) HasColor(v string) bool { return contains(p.Colors, v) }

func (p Product) HasSize(v string) bool { return contains(p.Sizes, v) }

func (p Product) HasSide(v string) bool {
	_, ok := FindChoice(p.Sides, v)
	return ok
}

func (p Product) SideLabel(v string) string {
	if ch, ok := FindChoice(p.Sides, v); ok {
		return ch.Label
	}
	return v
}

// FindChoice looks a value up in a choice list.
func FindChoice(choices []Choice, value string) (Choice, bool) {
	for _, ch := range choices {
		if ch.Value == value {
			return ch, true
		}
	}
	return Choice{}, false
}

// LookupTier returns the amount added for count.
func LookupTier(tiers []Tier, count int) (int, bool) {
	for _, t := range tiers {
		if t.Count == count {
			return t.Add, true
		}
	}
	return 0, false
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
