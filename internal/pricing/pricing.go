// Package pricing computes per-line amounts from catalog tables.
// All functions are pure; amounts are integer JPY.
package pricing

import (
	"errors"
	"fmt"

	"petprint-bot/internal/catalog"
)

var ErrUnknownTier = errors.New("pricing: no tier for value")

const SideBoth = "both"

// Apparel prices one apparel unit.
func Apparel(p catalog.Product, cfg catalog.Apparel, side string, textOption bool) int {
	amount := p.BasePrice
	if side == SideBoth {
		amount += cfg.BothSideSurcharge
	}
	if textOption {
		amount += cfg.TextOptionPrice
	}
	return amount
}

// Illustration prices an illustration by pet count.
func Illustration(p catalog.Product, cfg catalog.Illustration, petCount int, textAdd bool) (int, error) {
	add, ok := catalog.LookupTier(cfg.Tiers, petCount)
	if !ok {
		return 0, fmt.Errorf("%w: illustration pet count %d", ErrUnknownTier, petCount)
	}
	amount := p.BasePrice + add
	if textAdd {
		amount += cfg.TextOptionPrice
	}
	return amount, nil
}

// Canvas prices a canvas art order by panel quantity.
func Canvas(p catalog.Product, cfg catalog.Canvas, qty int, editAdd bool) (int, error) {
	add, ok := catalog.LookupTier(cfg.Adders, qty)
	if !ok {
		return 0, fmt.Errorf("%w: canvas quantity %d", ErrUnknownTier, qty)
	}
	amount := p.BasePrice + add
	if editAdd {
		amount += cfg.EditOptionPrice
	}
	return amount, nil
}

// StampQuote keeps the pack price and the head surcharge apart so that they can
// be billed as separate line items.
type StampQuote struct {
	PackPrice int
	Surcharge int
}

func Stamp(c *catalog.Catalog, pack string, petHeads int) (StampQuote, error) {
	p, ok := c.StampPack(pack)
	if !ok {
		return StampQuote{}, fmt.Errorf("%w: stamp pack %q", ErrUnknownTier, pack)
	}
	add, ok := catalog.LookupTier(c.Stamp.Surcharges, petHeads)
	if !ok {
		return StampQuote{}, fmt.Errorf("%w: stamp pet heads %d", ErrUnknownTier, petHeads)
	}
	return StampQuote{PackPrice: p.Price, Surcharge: add}, nil
}
