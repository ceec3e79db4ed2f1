// Package pricing computes and maintains the trade-point x price-type price
// matrix of a price document. All functions are pure and synchronous: they
// take caller-owned snapshots, never touch storage, and never raise hard
// failures for numeric input. Business-rule violations are either advisory
// (low margin) or sentinel errors that leave state untouched (minimum price).
package pricing

import (
	"errors"
	"time"

	"pricedesk/backend/internal/domain"
)

// LowMarginThreshold is the margin percentage below which an edit produces
// an advisory warning.
const LowMarginThreshold = 5.0

// Editable fields of a single price entry.
const (
	FieldPrice  = "price"
	FieldMarkup = "markup_percent"
)

var (
	// ErrBelowMinPrice rejects a manual price edit under the item's
	// configured minimum. The entry is left unchanged.
	ErrBelowMinPrice = errors.New("price below configured minimum")
	// ErrEntryNotFound reports an unknown (trade point, price type) pair.
	ErrEntryNotFound = errors.New("price entry not found")
	// ErrUnknownField reports an unsupported editable field name.
	ErrUnknownField = errors.New("unknown price entry field")
)

// Advisory carries non-blocking signals produced by an edit.
type Advisory struct {
	LowMargin     bool
	MarginPercent float64
}

// MarginPercent computes the share of price that is profit over cost:
// (price - cost) / price * 100. A zero cost means "no cost data" and yields
// zero, as does a zero price, so the degenerate cases never divide by zero.
func MarginPercent(price, cost float64) float64 {
	if price == 0 || cost == 0 {
		return 0
	}
	return (price - cost) / price * 100
}

// MarkupPercent computes the percentage increase of price over cost:
// (price - cost) / cost * 100, or zero when cost is zero.
func MarkupPercent(price, cost float64) float64 {
	if cost == 0 {
		return 0
	}
	return (price - cost) / cost * 100
}

// MatrixParams are the inputs for one matrix generation pass.
type MatrixParams struct {
	TradePointIDs        []string
	PriceTypes           []domain.PriceType
	BasePrice            float64
	CostPrice            float64
	AutoApplyMarkup      bool
	DefaultMarkupPercent float64
	ValidFrom            time.Time
	Rounding             Rule
}

// GenerateMatrix produces one PriceEntry per (trade point, price type) pair.
// The result always has len(TradePointIDs) * len(PriceTypes) entries with no
// duplicate pairs and is deterministic for identical inputs. Price-type
// default markups win over the form-level default when AutoApplyMarkup is
// set; otherwise the base price is carried through unchanged. Every emitted
// price is post-rounding, and margins are computed from the rounded price.
func GenerateMatrix(p MatrixParams) []domain.PriceEntry {
	entries := make([]domain.PriceEntry, 0, len(p.TradePointIDs)*len(p.PriceTypes))
	for _, tpID := range p.TradePointIDs {
		for _, pt := range p.PriceTypes {
			price := p.BasePrice
			markup := p.DefaultMarkupPercent
			if p.AutoApplyMarkup && pt.DefaultMarkup > 0 {
				markup = pt.DefaultMarkup
				price = p.CostPrice * (1 + markup/100)
			}
			price = Round(price, p.Rounding)

			entries = append(entries, domain.PriceEntry{
				TradePointID:  tpID,
				PriceTypeID:   pt.ID,
				Price:         price,
				MarkupPercent: markup,
				MarginPercent: MarginPercent(price, p.CostPrice),
				IsActive:      true,
				EffectiveFrom: p.ValidFrom,
			})
		}
	}
	return entries
}

// UpdateEntry mutates exactly one entry of item, matched by the
// (tradePointID, priceTypeID) pair.
//
// For FieldPrice the value is rounded first; if the item has a minimum price
// configured and the rounded value falls below it, the entry is left
// untouched and ErrBelowMinPrice is returned. The markup is recomputed from
// the new price. For FieldMarkup the markup is stored as given (unrounded)
// and the price is recomputed from the item's cost price, then rounded.
// The margin is recomputed after either branch; a margin under
// LowMarginThreshold is reported in the advisory without blocking the edit.
func UpdateEntry(item *domain.PriceItem, rule Rule, tradePointID, priceTypeID, field string, value float64) (Advisory, error) {
	idx := -1
	for i := range item.Entries {
		if item.Entries[i].TradePointID == tradePointID && item.Entries[i].PriceTypeID == priceTypeID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Advisory{}, ErrEntryNotFound
	}

	entry := &item.Entries[idx]
	switch field {
	case FieldPrice:
		rounded := Round(value, rule)
		if item.MinPrice > 0 && rounded < item.MinPrice {
			return Advisory{}, ErrBelowMinPrice
		}
		entry.Price = rounded
		entry.MarkupPercent = MarkupPercent(rounded, item.CostPrice)
	case FieldMarkup:
		entry.MarkupPercent = value
		entry.Price = Round(item.CostPrice*(1+value/100), rule)
	default:
		return Advisory{}, ErrUnknownField
	}

	entry.MarginPercent = MarginPercent(entry.Price, item.CostPrice)

	advisory := Advisory{MarginPercent: entry.MarginPercent}
	if item.CostPrice > 0 && entry.MarginPercent < LowMarginThreshold {
		advisory.LowMargin = true
	}
	return advisory, nil
}

// ApplyBulkMarkup recomputes every item's base price from its cost price and
// the uniform markup, then regenerates every entry with the same formula.
// Idempotent: applying the same markup twice yields identical output because
// rounding is idempotent and cost prices are never modified.
func ApplyBulkMarkup(items []domain.PriceItem, markupPercent float64, rule Rule) []domain.PriceItem {
	result := make([]domain.PriceItem, len(items))
	for i, item := range items {
		base := Round(item.CostPrice*(1+markupPercent/100), rule)
		item.BasePrice = base

		entries := make([]domain.PriceEntry, len(item.Entries))
		for j, entry := range item.Entries {
			entry.Price = base
			entry.MarkupPercent = markupPercent
			entry.MarginPercent = MarginPercent(base, item.CostPrice)
			entries[j] = entry
		}
		item.Entries = entries
		result[i] = item
	}
	return result
}
