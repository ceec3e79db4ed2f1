package pricing

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricedesk/backend/internal/domain"
)

func TestRound(t *testing.T) {
	t.Run("kopeck rounds to two decimals", func(t *testing.T) {
		assert.Equal(t, 62.5, Round(62.499999999, RuleKopeck))
		assert.Equal(t, 10.46, Round(10.455, RuleKopeck))
	})

	t.Run("hryvnia rounds to whole units", func(t *testing.T) {
		assert.Equal(t, 100.0, Round(99.999, RuleHryvnia))
		assert.Equal(t, 99.0, Round(99.4, RuleHryvnia))
	})

	t.Run("none keeps the value", func(t *testing.T) {
		assert.Equal(t, 99.999, Round(99.999, RuleNone))
	})

	t.Run("idempotent for every rule", func(t *testing.T) {
		for _, rule := range []Rule{RuleKopeck, RuleHryvnia, RuleNone} {
			for _, x := range []float64{0, 0.005, 12.345, 99.999, 1234.567} {
				once := Round(x, rule)
				assert.Equal(t, once, Round(once, rule), "rule %s value %v", rule, x)
			}
		}
	})
}

func TestParseRule(t *testing.T) {
	assert.Equal(t, RuleHryvnia, ParseRule("hryvnia"))
	assert.Equal(t, RuleNone, ParseRule("none"))
	assert.Equal(t, RuleKopeck, ParseRule("kopeck"))
	assert.Equal(t, RuleKopeck, ParseRule(""))
	assert.Equal(t, RuleKopeck, ParseRule("whatever"))
}

func TestMarginPercent(t *testing.T) {
	assert.Equal(t, 0.0, MarginPercent(100, 100))
	assert.Equal(t, 0.0, MarginPercent(0, 0))
	assert.Equal(t, 0.0, MarginPercent(100, 0), "zero cost means no cost data")
	assert.Equal(t, 20.0, MarginPercent(125, 100))
	assert.Equal(t, -25.0, MarginPercent(80, 100))
}

func TestMarkupPercent(t *testing.T) {
	assert.Equal(t, 0.0, MarkupPercent(100, 0))
	assert.Equal(t, 25.0, MarkupPercent(125, 100))
	assert.Equal(t, -20.0, MarkupPercent(80, 100))
}

func TestGenerateMatrixSize(t *testing.T) {
	validFrom := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	for _, tc := range []struct {
		tradePoints int
		priceTypes  int
	}{
		{0, 3},
		{3, 0},
		{1, 1},
		{2, 3},
		{5, 4},
	} {
		t.Run(fmt.Sprintf("%dx%d", tc.tradePoints, tc.priceTypes), func(t *testing.T) {
			tps := make([]string, 0, tc.tradePoints)
			for i := 0; i < tc.tradePoints; i++ {
				tps = append(tps, fmt.Sprintf("tp-%d", i))
			}
			pts := make([]domain.PriceType, 0, tc.priceTypes)
			for i := 0; i < tc.priceTypes; i++ {
				pts = append(pts, domain.PriceType{ID: fmt.Sprintf("pt-%d", i)})
			}

			entries := GenerateMatrix(MatrixParams{
				TradePointIDs: tps,
				PriceTypes:    pts,
				BasePrice:     100,
				CostPrice:     80,
				ValidFrom:     validFrom,
				Rounding:      RuleKopeck,
			})

			require.Len(t, entries, tc.tradePoints*tc.priceTypes)

			seen := make(map[string]bool, len(entries))
			for _, e := range entries {
				key := e.TradePointID + "|" + e.PriceTypeID
				assert.False(t, seen[key], "duplicate pair %s", key)
				seen[key] = true
				assert.True(t, e.IsActive)
				assert.Equal(t, validFrom, e.EffectiveFrom)
			}
		})
	}
}

func TestGenerateMatrixAutoMarkup(t *testing.T) {
	validFrom := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("price type default markup wins when auto-apply is on", func(t *testing.T) {
		entries := GenerateMatrix(MatrixParams{
			TradePointIDs:        []string{"tp-1", "tp-2"},
			PriceTypes:           []domain.PriceType{{ID: "pt-10", DefaultMarkup: 25}},
			BasePrice:            40,
			CostPrice:            50,
			AutoApplyMarkup:      true,
			DefaultMarkupPercent: 10,
			ValidFrom:            validFrom,
			Rounding:             RuleKopeck,
		})

		require.Len(t, entries, 2)
		for _, e := range entries {
			assert.Equal(t, 62.5, e.Price)
			assert.Equal(t, 25.0, e.MarkupPercent)
		}
	})

	t.Run("form default markup used when auto-apply is off", func(t *testing.T) {
		entries := GenerateMatrix(MatrixParams{
			TradePointIDs:        []string{"tp-1"},
			PriceTypes:           []domain.PriceType{{ID: "pt-10", DefaultMarkup: 25}},
			BasePrice:            40,
			CostPrice:            50,
			AutoApplyMarkup:      false,
			DefaultMarkupPercent: 10,
			ValidFrom:            validFrom,
			Rounding:             RuleKopeck,
		})

		require.Len(t, entries, 1)
		assert.Equal(t, 40.0, entries[0].Price, "base price carried through")
		assert.Equal(t, 10.0, entries[0].MarkupPercent)
	})

	t.Run("price type without default markup falls back to form default", func(t *testing.T) {
		entries := GenerateMatrix(MatrixParams{
			TradePointIDs:        []string{"tp-1"},
			PriceTypes:           []domain.PriceType{{ID: "pt-11"}},
			BasePrice:            40,
			CostPrice:            50,
			AutoApplyMarkup:      true,
			DefaultMarkupPercent: 10,
			ValidFrom:            validFrom,
			Rounding:             RuleKopeck,
		})

		require.Len(t, entries, 1)
		assert.Equal(t, 40.0, entries[0].Price)
		assert.Equal(t, 10.0, entries[0].MarkupPercent)
	})

	t.Run("hryvnia rounding applied before storing", func(t *testing.T) {
		entries := GenerateMatrix(MatrixParams{
			TradePointIDs: []string{"tp-1"},
			PriceTypes:    []domain.PriceType{{ID: "pt-10"}},
			BasePrice:     99.999,
			CostPrice:     0,
			ValidFrom:     validFrom,
			Rounding:      RuleHryvnia,
		})

		require.Len(t, entries, 1)
		assert.Equal(t, 100.0, entries[0].Price)
	})

	t.Run("deterministic for identical input", func(t *testing.T) {
		params := MatrixParams{
			TradePointIDs:        []string{"tp-2", "tp-1"},
			PriceTypes:           []domain.PriceType{{ID: "pt-10", DefaultMarkup: 25}, {ID: "pt-11"}},
			BasePrice:            123.45,
			CostPrice:            100,
			AutoApplyMarkup:      true,
			DefaultMarkupPercent: 15,
			ValidFrom:            validFrom,
			Rounding:             RuleKopeck,
		}
		assert.Equal(t, GenerateMatrix(params), GenerateMatrix(params))
	})
}

func testItem() domain.PriceItem {
	validFrom := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	item := domain.PriceItem{
		ID:        "item-1",
		ProductID: "prod-1",
		BasePrice: 120,
		CostPrice: 100,
		MinPrice:  90,
	}
	item.Entries = GenerateMatrix(MatrixParams{
		TradePointIDs:        []string{"tp-1", "tp-2"},
		PriceTypes:           []domain.PriceType{{ID: "pt-1"}, {ID: "pt-2"}},
		BasePrice:            item.BasePrice,
		CostPrice:            item.CostPrice,
		DefaultMarkupPercent: 20,
		ValidFrom:            validFrom,
		Rounding:             RuleKopeck,
	})
	return item
}

func TestUpdateEntryPrice(t *testing.T) {
	t.Run("rounds the value and recomputes markup and margin", func(t *testing.T) {
		item := testItem()

		advisory, err := UpdateEntry(&item, RuleKopeck, "tp-1", "pt-1", FieldPrice, 150.005)
		require.NoError(t, err)

		entry := item.Entries[0]
		assert.Equal(t, 150.01, entry.Price)
		assert.InDelta(t, 50.01, entry.MarkupPercent, 0.001)
		assert.InDelta(t, (150.01-100)/150.01*100, entry.MarginPercent, 0.0001)
		assert.False(t, advisory.LowMargin)
	})

	t.Run("mutates only the matched entry", func(t *testing.T) {
		item := testItem()

		_, err := UpdateEntry(&item, RuleKopeck, "tp-2", "pt-2", FieldPrice, 200)
		require.NoError(t, err)

		for _, e := range item.Entries {
			if e.TradePointID == "tp-2" && e.PriceTypeID == "pt-2" {
				assert.Equal(t, 200.0, e.Price)
			} else {
				assert.Equal(t, 120.0, e.Price)
			}
		}
	})

	t.Run("rejects price below minimum without mutating", func(t *testing.T) {
		item := testItem()
		before := item.Entries[0]

		_, err := UpdateEntry(&item, RuleKopeck, "tp-1", "pt-1", FieldPrice, 85)
		require.ErrorIs(t, err, ErrBelowMinPrice)
		assert.Equal(t, before, item.Entries[0])
	})

	t.Run("warns on low margin without blocking", func(t *testing.T) {
		item := testItem()

		advisory, err := UpdateEntry(&item, RuleKopeck, "tp-1", "pt-1", FieldPrice, 102)
		require.NoError(t, err)
		assert.True(t, advisory.LowMargin)
		assert.Equal(t, 102.0, item.Entries[0].Price, "edit stored despite warning")
	})

	t.Run("unknown pair", func(t *testing.T) {
		item := testItem()
		_, err := UpdateEntry(&item, RuleKopeck, "tp-9", "pt-1", FieldPrice, 100)
		assert.ErrorIs(t, err, ErrEntryNotFound)
	})

	t.Run("unknown field", func(t *testing.T) {
		item := testItem()
		_, err := UpdateEntry(&item, RuleKopeck, "tp-1", "pt-1", "discount", 100)
		assert.ErrorIs(t, err, ErrUnknownField)
	})
}

func TestUpdateEntryMarkup(t *testing.T) {
	t.Run("markup stored unrounded and price recomputed", func(t *testing.T) {
		item := testItem()

		_, err := UpdateEntry(&item, RuleKopeck, "tp-1", "pt-1", FieldMarkup, 12.3456)
		require.NoError(t, err)

		entry := item.Entries[0]
		assert.Equal(t, 12.3456, entry.MarkupPercent)
		assert.Equal(t, 112.35, entry.Price, "cost 100 * 1.123456 rounded to kopecks")
	})

	t.Run("no minimum price check on markup edits", func(t *testing.T) {
		item := testItem()

		// 100 * 0.8 = 80, below the 90 minimum, but markup edits go through.
		_, err := UpdateEntry(&item, RuleKopeck, "tp-1", "pt-1", FieldMarkup, -20)
		require.NoError(t, err)
		assert.Equal(t, 80.0, item.Entries[0].Price)
	})
}

func TestApplyBulkMarkup(t *testing.T) {
	t.Run("cost 100 markup 20 gives exactly 120 everywhere", func(t *testing.T) {
		items := []domain.PriceItem{testItem(), testItem()}

		updated := ApplyBulkMarkup(items, 20, RuleKopeck)

		for _, item := range updated {
			assert.Equal(t, 120.0, item.BasePrice)
			require.Len(t, item.Entries, 4)
			for _, e := range item.Entries {
				assert.Equal(t, 120.0, e.Price)
				assert.Equal(t, 20.0, e.MarkupPercent)
				assert.InDelta(t, 100.0/6, e.MarginPercent, 0.0001)
			}
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		items := []domain.PriceItem{testItem()}

		once := ApplyBulkMarkup(items, 17.5, RuleKopeck)
		twice := ApplyBulkMarkup(once, 17.5, RuleKopeck)

		assert.Equal(t, once, twice)
	})

	t.Run("does not mutate the input", func(t *testing.T) {
		items := []domain.PriceItem{testItem()}
		before := items[0].Entries[0].Price

		_ = ApplyBulkMarkup(items, 50, RuleKopeck)

		assert.Equal(t, before, items[0].Entries[0].Price)
	})

	t.Run("zero cost yields zero prices", func(t *testing.T) {
		item := testItem()
		item.CostPrice = 0

		updated := ApplyBulkMarkup([]domain.PriceItem{item}, 20, RuleKopeck)

		assert.Equal(t, 0.0, updated[0].BasePrice)
		for _, e := range updated[0].Entries {
			assert.Equal(t, 0.0, e.Price)
			assert.Equal(t, 0.0, e.MarginPercent)
		}
	})
}
