package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"pricedesk/backend/internal/cache"
	"pricedesk/backend/internal/domain"
	"pricedesk/backend/internal/pricing"
	"pricedesk/backend/internal/store"
	"pricedesk/backend/internal/store/memory"
)

func newTestService() *Service {
	repo := memory.NewSeeded()
	return New(repo, cache.NoopDictionaryCache{}, "firm-1", time.Minute)
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "admin", Role: "admin"})
}

func operatorCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "operator", Role: "operator"})
}

func newDraftWithItems(t *testing.T, svc *Service, productIDs ...string) string {
	t.Helper()

	resp, err := svc.CreatePriceDraft(adminCtx(), domain.PriceDraftCreateRequest{
		FirmID:               "firm-1",
		RoundingRule:         "kopeck",
		DefaultMarkupPercent: 20,
	})
	if err != nil {
		t.Fatalf("create draft failed: %v", err)
	}
	draftID := resp.Draft.ID

	if len(productIDs) > 0 {
		if _, err := svc.AddDraftItems(adminCtx(), draftID, domain.DraftItemsAddRequest{ProductIDs: productIDs}); err != nil {
			t.Fatalf("add draft items failed: %v", err)
		}
	}
	return draftID
}

func TestCreatePriceDraftDefaultsToAllActiveTradePoints(t *testing.T) {
	svc := newTestService()

	resp, err := svc.CreatePriceDraft(adminCtx(), domain.PriceDraftCreateRequest{FirmID: "firm-1"})
	if err != nil {
		t.Fatalf("create draft failed: %v", err)
	}
	if len(resp.Draft.TradePointIDs) != 3 {
		t.Fatalf("expected 3 seeded trade points, got %d", len(resp.Draft.TradePointIDs))
	}
	if resp.Draft.Status != domain.PriceDocumentStatusDraft {
		t.Fatalf("expected draft status, got %s", resp.Draft.Status)
	}
	if resp.Draft.Settings.RoundingRule != "kopeck" {
		t.Fatalf("expected kopeck rounding default, got %s", resp.Draft.Settings.RoundingRule)
	}
}

func TestCreatePriceDraftRejectsUnknownTradePoint(t *testing.T) {
	svc := newTestService()

	_, err := svc.CreatePriceDraft(adminCtx(), domain.PriceDraftCreateRequest{
		FirmID:        "firm-1",
		TradePointIDs: []string{"tp-1", "tp-unknown"},
	})
	if err == nil {
		t.Fatal("expected error for unknown trade point")
	}
}

func TestAddDraftItemsGeneratesFullMatrix(t *testing.T) {
	svc := newTestService()
	draftID := newDraftWithItems(t, svc, "prod-1", "prod-3")

	resp, err := svc.GetDraft(context.Background(), draftID)
	if err != nil {
		t.Fatalf("get draft failed: %v", err)
	}
	if len(resp.Draft.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(resp.Draft.Items))
	}
	// 3 trade points x 3 price types per item.
	for _, item := range resp.Draft.Items {
		if len(item.Entries) != 9 {
			t.Fatalf("expected 9 entries for item %s, got %d", item.ProductID, len(item.Entries))
		}
	}
}

func TestAddDraftItemsSkipsDuplicates(t *testing.T) {
	svc := newTestService()
	draftID := newDraftWithItems(t, svc, "prod-1")

	resp, err := svc.AddDraftItems(adminCtx(), draftID, domain.DraftItemsAddRequest{ProductIDs: []string{"prod-1", "prod-2"}})
	if err != nil {
		t.Fatalf("add draft items failed: %v", err)
	}
	if len(resp.Draft.Items) != 2 {
		t.Fatalf("expected 2 items after duplicate add, got %d", len(resp.Draft.Items))
	}
}

func TestAddDraftItemsUnknownProductLeavesDraftUnchanged(t *testing.T) {
	svc := newTestService()
	draftID := newDraftWithItems(t, svc, "prod-1")

	_, err := svc.AddDraftItems(adminCtx(), draftID, domain.DraftItemsAddRequest{
		ProductIDs: []string{"prod-3", "prod-unknown"},
	})
	if err == nil {
		t.Fatal("expected error for unknown product")
	}

	resp, err := svc.GetDraft(context.Background(), draftID)
	if err != nil {
		t.Fatalf("get draft failed: %v", err)
	}
	if len(resp.Draft.Items) != 1 {
		t.Fatalf("failed add must leave the draft unchanged, got %d items", len(resp.Draft.Items))
	}
	if resp.Draft.Items[0].ProductID != "prod-1" {
		t.Fatalf("unexpected item %s", resp.Draft.Items[0].ProductID)
	}
}

func TestDraftResponsesAreDetachedSnapshots(t *testing.T) {
	svc := newTestService()
	draftID := newDraftWithItems(t, svc, "prod-1")

	before, err := svc.GetDraft(context.Background(), draftID)
	if err != nil {
		t.Fatalf("get draft failed: %v", err)
	}
	item := before.Draft.Items[0]
	entry := item.Entries[0]

	_, err = svc.UpdateDraftEntry(adminCtx(), draftID, domain.DraftEntryUpdateRequest{
		ItemID:       item.ID,
		TradePointID: entry.TradePointID,
		PriceTypeID:  entry.PriceTypeID,
		Field:        "price",
		Value:        entry.Price + 50,
	})
	if err != nil {
		t.Fatalf("update entry failed: %v", err)
	}

	if got := before.Draft.Items[0].Entries[0].Price; got != entry.Price {
		t.Fatalf("earlier response mutated by a later edit: %v -> %v", entry.Price, got)
	}

	after, err := svc.GetDraft(context.Background(), draftID)
	if err != nil {
		t.Fatalf("get draft failed: %v", err)
	}
	if got := after.Draft.Items[0].Entries[0].Price; got != entry.Price+50 {
		t.Fatalf("expected registry draft to hold the edit, got %v", got)
	}
}

func TestAddDraftItemsFromReceiptUsesReceiptCost(t *testing.T) {
	svc := newTestService()

	receipt, err := svc.CreateGoodsReceipt(adminCtx(), domain.GoodsReceiptCreateRequest{
		FirmID:      "firm-1",
		WarehouseID: "wh-1",
		Lines: []domain.GoodsReceiptLine{
			{ProductID: "prod-1", Qty: 10, UnitPrice: 30},
		},
	})
	if err != nil {
		t.Fatalf("create receipt failed: %v", err)
	}

	draftID := newDraftWithItems(t, svc)
	resp, err := svc.AddDraftItems(adminCtx(), draftID, domain.DraftItemsAddRequest{ReceiptID: receipt.ID})
	if err != nil {
		t.Fatalf("add items from receipt failed: %v", err)
	}
	if len(resp.Draft.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(resp.Draft.Items))
	}
	if resp.Draft.Items[0].CostPrice != 30 {
		t.Fatalf("expected receipt unit price 30 as cost, got %v", resp.Draft.Items[0].CostPrice)
	}
}

func TestSetDraftTradePointsRegeneratesMatrix(t *testing.T) {
	svc := newTestService()
	draftID := newDraftWithItems(t, svc, "prod-1")

	resp, err := svc.SetDraftTradePoints(adminCtx(), draftID, domain.DraftTradePointsRequest{TradePointIDs: []string{"tp-2"}})
	if err != nil {
		t.Fatalf("set trade points failed: %v", err)
	}
	if len(resp.Draft.TradePointIDs) != 1 {
		t.Fatalf("expected 1 trade point, got %d", len(resp.Draft.TradePointIDs))
	}
	item := resp.Draft.Items[0]
	if len(item.Entries) != 3 {
		t.Fatalf("expected 3 entries after narrowing, got %d", len(item.Entries))
	}
	for _, entry := range item.Entries {
		if entry.TradePointID != "tp-2" {
			t.Fatalf("unexpected trade point %s in regenerated matrix", entry.TradePointID)
		}
	}
}

func TestUpdateDraftEntryRejectsBelowMinimum(t *testing.T) {
	svc := newTestService()
	// prod-1 seed: cost 34.00, min price 36.00.
	draftID := newDraftWithItems(t, svc, "prod-1")

	draft, _ := svc.GetDraft(context.Background(), draftID)
	item := draft.Draft.Items[0]
	entry := item.Entries[0]

	_, err := svc.UpdateDraftEntry(adminCtx(), draftID, domain.DraftEntryUpdateRequest{
		ItemID:       item.ID,
		TradePointID: entry.TradePointID,
		PriceTypeID:  entry.PriceTypeID,
		Field:        pricing.FieldPrice,
		Value:        35,
	})
	if !errors.Is(err, pricing.ErrBelowMinPrice) {
		t.Fatalf("expected below-min-price error, got %v", err)
	}

	after, _ := svc.GetDraft(context.Background(), draftID)
	if after.Draft.Items[0].Entries[0].Price != entry.Price {
		t.Fatal("rejected edit must not change the entry")
	}
}

func TestUpdateDraftEntryWarnsOnLowMargin(t *testing.T) {
	svc := newTestService()
	draftID := newDraftWithItems(t, svc, "prod-1")

	draft, _ := svc.GetDraft(context.Background(), draftID)
	item := draft.Draft.Items[0]
	entry := item.Entries[0]

	// Cost 34.00, price 35.00 is about 2.86% margin: stored with a warning.
	resp, err := svc.UpdateDraftEntry(adminCtx(), draftID, domain.DraftEntryUpdateRequest{
		ItemID:       item.ID,
		TradePointID: entry.TradePointID,
		PriceTypeID:  entry.PriceTypeID,
		Field:        pricing.FieldMarkup,
		Value:        3,
	})
	if err != nil {
		t.Fatalf("markup edit failed: %v", err)
	}
	if len(resp.Warnings) == 0 {
		t.Fatal("expected low margin warning")
	}
	if !strings.Contains(resp.Warnings[0], "low margin") {
		t.Fatalf("unexpected warning text %q", resp.Warnings[0])
	}
}

func TestApplyDraftMarkupIsIdempotent(t *testing.T) {
	svc := newTestService()
	draftID := newDraftWithItems(t, svc, "prod-1", "prod-5")

	first, err := svc.ApplyDraftMarkup(adminCtx(), draftID, domain.DraftBulkMarkupRequest{MarkupPercent: 25})
	if err != nil {
		t.Fatalf("bulk markup failed: %v", err)
	}
	second, err := svc.ApplyDraftMarkup(adminCtx(), draftID, domain.DraftBulkMarkupRequest{MarkupPercent: 25})
	if err != nil {
		t.Fatalf("second bulk markup failed: %v", err)
	}

	for i := range first.Draft.Items {
		if first.Draft.Items[i].BasePrice != second.Draft.Items[i].BasePrice {
			t.Fatalf("bulk markup not idempotent for item %d", i)
		}
		for j := range first.Draft.Items[i].Entries {
			if first.Draft.Items[i].Entries[j].Price != second.Draft.Items[i].Entries[j].Price {
				t.Fatalf("bulk markup not idempotent for entry %d/%d", i, j)
			}
		}
	}
}

func TestRemoveDraftItem(t *testing.T) {
	svc := newTestService()
	draftID := newDraftWithItems(t, svc, "prod-1", "prod-2")

	draft, _ := svc.GetDraft(context.Background(), draftID)
	resp, err := svc.RemoveDraftItem(adminCtx(), draftID, draft.Draft.Items[0].ID)
	if err != nil {
		t.Fatalf("remove item failed: %v", err)
	}
	if len(resp.Draft.Items) != 1 {
		t.Fatalf("expected 1 item after removal, got %d", len(resp.Draft.Items))
	}
}

func TestSubmitPriceDraftRequiresNegativeMarginConfirmation(t *testing.T) {
	svc := newTestService()
	draftID := newDraftWithItems(t, svc, "prod-3")

	// prod-3 cost 21.50, markup -10 prices it below cost.
	if _, err := svc.ApplyDraftMarkup(adminCtx(), draftID, domain.DraftBulkMarkupRequest{MarkupPercent: -10}); err != nil {
		t.Fatalf("bulk markup failed: %v", err)
	}

	_, err := svc.SubmitPriceDraft(adminCtx(), draftID, domain.DraftSubmitRequest{})
	if !errors.Is(err, ErrNegativeMargin) {
		t.Fatalf("expected negative margin error, got %v", err)
	}

	// Draft must survive the rejected submit.
	if _, err := svc.GetDraft(context.Background(), draftID); err != nil {
		t.Fatalf("draft should still exist after rejected submit: %v", err)
	}

	doc, err := svc.SubmitPriceDraft(adminCtx(), draftID, domain.DraftSubmitRequest{ConfirmNegativeMargin: true})
	if err != nil {
		t.Fatalf("confirmed submit failed: %v", err)
	}
	if doc.Status != domain.PriceDocumentStatusPosted {
		t.Fatalf("expected posted status, got %s", doc.Status)
	}
	if doc.PostedAt == nil {
		t.Fatal("expected posted_at to be set")
	}
	if doc.Number == "" {
		t.Fatal("expected document number to be assigned")
	}

	if _, err := svc.GetDraft(context.Background(), draftID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("draft should be gone after submit, got %v", err)
	}
}

func TestSubmitPriceDraftRefreshesCatalogPrices(t *testing.T) {
	svc := newTestService()
	draftID := newDraftWithItems(t, svc, "prod-5")

	if _, err := svc.ApplyDraftMarkup(adminCtx(), draftID, domain.DraftBulkMarkupRequest{MarkupPercent: 50}); err != nil {
		t.Fatalf("bulk markup failed: %v", err)
	}
	if _, err := svc.SubmitPriceDraft(adminCtx(), draftID, domain.DraftSubmitRequest{}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	product, err := svc.GetProduct(context.Background(), "prod-5")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	// Seed cost 12.80 at 50% markup.
	if product.Price != 19.2 {
		t.Fatalf("expected refreshed catalog price 19.2, got %v", product.Price)
	}
}

func TestSubmitEmptyDraftFails(t *testing.T) {
	svc := newTestService()
	draftID := newDraftWithItems(t, svc)

	if _, err := svc.SubmitPriceDraft(adminCtx(), draftID, domain.DraftSubmitRequest{}); !errors.Is(err, store.ErrInvalidDocument) {
		t.Fatalf("expected invalid document error, got %v", err)
	}
}

func TestDiscardDraft(t *testing.T) {
	svc := newTestService()
	draftID := newDraftWithItems(t, svc, "prod-1")

	if err := svc.DiscardDraft(adminCtx(), draftID); err != nil {
		t.Fatalf("discard failed: %v", err)
	}
	if _, err := svc.GetDraft(context.Background(), draftID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found after discard, got %v", err)
	}
	if err := svc.DiscardDraft(adminCtx(), draftID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found on double discard, got %v", err)
	}
}

func TestGoodsReceiptIncreasesStock(t *testing.T) {
	svc := newTestService()

	receipt, err := svc.CreateGoodsReceipt(operatorCtx(), domain.GoodsReceiptCreateRequest{
		FirmID:      "firm-1",
		WarehouseID: "wh-2",
		Lines: []domain.GoodsReceiptLine{
			{ProductID: "prod-1", Qty: 25, UnitPrice: 33.50},
			{ProductID: "prod-2", Qty: 5, UnitPrice: 300},
		},
	})
	if err != nil {
		t.Fatalf("create receipt failed: %v", err)
	}
	if receipt.TotalAmount != 25*33.50+5*300 {
		t.Fatalf("unexpected receipt total %v", receipt.TotalAmount)
	}
	if receipt.Number == "" {
		t.Fatal("expected receipt number")
	}

	// wh-2 starts empty in the seed.
	sale, err := svc.CreateSalesDocument(operatorCtx(), domain.SalesCreateRequest{
		FirmID:       "firm-1",
		TradePointID: "tp-1",
		WarehouseID:  "wh-2",
		Lines: []domain.SalesLine{
			{ProductID: "prod-1", Qty: 25, UnitPrice: 42.50},
		},
	})
	if err != nil {
		t.Fatalf("sale from received stock failed: %v", err)
	}
	if sale.Total != 1062.5 {
		t.Fatalf("unexpected sale total %v", sale.Total)
	}
}

func TestSalesDocumentRejectsInsufficientStock(t *testing.T) {
	svc := newTestService()

	_, err := svc.CreateSalesDocument(operatorCtx(), domain.SalesCreateRequest{
		FirmID:       "firm-1",
		TradePointID: "tp-1",
		WarehouseID:  "wh-1",
		Lines: []domain.SalesLine{
			{ProductID: "prod-1", Qty: 1000, UnitPrice: 42.50},
		},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock error, got %v", err)
	}
}

func TestSalesDocumentExtractsVAT(t *testing.T) {
	svc := newTestService()

	sale, err := svc.CreateSalesDocument(operatorCtx(), domain.SalesCreateRequest{
		FirmID:       "firm-1",
		TradePointID: "tp-1",
		WarehouseID:  "wh-1",
		Lines: []domain.SalesLine{
			{ProductID: "prod-1", Qty: 2, UnitPrice: 60},
		},
	})
	if err != nil {
		t.Fatalf("create sale failed: %v", err)
	}
	// 120.00 gross at 20% VAT included: 20.00 VAT, 100.00 net.
	if sale.Total != 120 {
		t.Fatalf("unexpected total %v", sale.Total)
	}
	if sale.VATTotal != 20 {
		t.Fatalf("unexpected VAT total %v", sale.VATTotal)
	}
	if sale.Subtotal != 100 {
		t.Fatalf("unexpected subtotal %v", sale.Subtotal)
	}
}

func TestSalesReturnCapsCumulativeQuantity(t *testing.T) {
	svc := newTestService()

	sale, err := svc.CreateSalesDocument(operatorCtx(), domain.SalesCreateRequest{
		FirmID:       "firm-1",
		TradePointID: "tp-1",
		WarehouseID:  "wh-1",
		Lines: []domain.SalesLine{
			{ProductID: "prod-1", Qty: 10, UnitPrice: 42.50},
		},
	})
	if err != nil {
		t.Fatalf("create sale failed: %v", err)
	}

	first, err := svc.CreateSalesReturn(operatorCtx(), domain.SalesReturnCreateRequest{
		SaleID: sale.ID,
		Reason: "damaged",
		Lines:  []domain.SalesReturnLine{{ProductID: "prod-1", Qty: 6}},
	})
	if err != nil {
		t.Fatalf("first return failed: %v", err)
	}
	if first.RefundTotal != 255 {
		t.Fatalf("unexpected refund total %v", first.RefundTotal)
	}

	_, err = svc.CreateSalesReturn(operatorCtx(), domain.SalesReturnCreateRequest{
		SaleID: sale.ID,
		Lines:  []domain.SalesReturnLine{{ProductID: "prod-1", Qty: 5}},
	})
	if err == nil {
		t.Fatal("expected cumulative return cap to reject 6+5 of 10")
	}

	if _, err := svc.CreateSalesReturn(operatorCtx(), domain.SalesReturnCreateRequest{
		SaleID: sale.ID,
		Lines:  []domain.SalesReturnLine{{ProductID: "prod-1", Qty: 4}},
	}); err != nil {
		t.Fatalf("return within cap failed: %v", err)
	}
}

func TestSalesReturnCapsRepeatedLinesInOneRequest(t *testing.T) {
	svc := newTestService()

	sale, err := svc.CreateSalesDocument(operatorCtx(), domain.SalesCreateRequest{
		FirmID:       "firm-1",
		TradePointID: "tp-1",
		WarehouseID:  "wh-1",
		Lines: []domain.SalesLine{
			{ProductID: "prod-1", Qty: 10, UnitPrice: 42.50},
		},
	})
	if err != nil {
		t.Fatalf("create sale failed: %v", err)
	}

	// Two 7-unit lines for the same product total 14 against 10 sold.
	_, err = svc.CreateSalesReturn(operatorCtx(), domain.SalesReturnCreateRequest{
		SaleID: sale.ID,
		Lines: []domain.SalesReturnLine{
			{ProductID: "prod-1", Qty: 7},
			{ProductID: "prod-1", Qty: 7},
		},
	})
	if err == nil {
		t.Fatal("expected split lines exceeding sold qty to be rejected")
	}

	stocks, err := svc.repo.GetStockMap(context.Background(), "wh-1", []string{"prod-1"})
	if err != nil {
		t.Fatalf("stock map failed: %v", err)
	}
	if stocks["prod-1"] != 90 {
		t.Fatalf("rejected return must not restock: expected 90, got %v", stocks["prod-1"])
	}

	ret, err := svc.CreateSalesReturn(operatorCtx(), domain.SalesReturnCreateRequest{
		SaleID: sale.ID,
		Lines: []domain.SalesReturnLine{
			{ProductID: "prod-1", Qty: 6},
			{ProductID: "prod-1", Qty: 4},
		},
	})
	if err != nil {
		t.Fatalf("split lines within sold qty failed: %v", err)
	}
	if ret.RefundTotal != 425 {
		t.Fatalf("unexpected refund total %v", ret.RefundTotal)
	}
}

func TestSalesReturnRejectsForeignProduct(t *testing.T) {
	svc := newTestService()

	sale, err := svc.CreateSalesDocument(operatorCtx(), domain.SalesCreateRequest{
		FirmID:       "firm-1",
		TradePointID: "tp-1",
		WarehouseID:  "wh-1",
		Lines: []domain.SalesLine{
			{ProductID: "prod-1", Qty: 1, UnitPrice: 42.50},
		},
	})
	if err != nil {
		t.Fatalf("create sale failed: %v", err)
	}

	_, err = svc.CreateSalesReturn(operatorCtx(), domain.SalesReturnCreateRequest{
		SaleID: sale.ID,
		Lines:  []domain.SalesReturnLine{{ProductID: "prod-2", Qty: 1}},
	})
	if err == nil {
		t.Fatal("expected error for product not in the sale")
	}
}

func TestCreateProductRequiresAdmin(t *testing.T) {
	svc := newTestService()

	_, err := svc.CreateProduct(operatorCtx(), domain.ProductCreateRequest{
		SKU:   "NEW-01",
		Name:  "Novyi Tovar",
		Price: 10,
	})
	if err == nil || !strings.Contains(err.Error(), "admin role required") {
		t.Fatalf("expected admin role error, got %v", err)
	}

	product, err := svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{
		SKU:       "new-01",
		Name:      "Novyi Tovar",
		Price:     10,
		CostPrice: 7,
	})
	if err != nil {
		t.Fatalf("admin create failed: %v", err)
	}
	if product.SKU != "NEW-01" {
		t.Fatalf("expected upper-cased sku, got %s", product.SKU)
	}
}

func TestProductGroupTree(t *testing.T) {
	svc := newTestService()

	tree, err := svc.ProductGroupTree(context.Background())
	if err != nil {
		t.Fatalf("group tree failed: %v", err)
	}

	var food *domain.ProductGroupNode
	for i := range tree {
		if tree[i].ID == "grp-food" {
			food = &tree[i]
		}
	}
	if food == nil {
		t.Fatal("expected grp-food root")
	}
	if len(food.Children) != 2 {
		t.Fatalf("expected 2 children under food, got %d", len(food.Children))
	}
}

func TestLoadFormDictionaries(t *testing.T) {
	svc := newTestService()

	dict, err := svc.LoadFormDictionaries(context.Background(), "firm-1")
	if err != nil {
		t.Fatalf("load dictionaries failed: %v", err)
	}
	if len(dict.TradePoints) != 3 || len(dict.PriceTypes) != 3 || len(dict.Firms) != 2 {
		t.Fatalf("unexpected dictionary sizes: tp=%d pt=%d firms=%d", len(dict.TradePoints), len(dict.PriceTypes), len(dict.Firms))
	}
}

func TestExportPriceDocumentXLSX(t *testing.T) {
	svc := newTestService()
	draftID := newDraftWithItems(t, svc, "prod-1")

	payload, filename, err := svc.ExportPriceDocumentXLSX(context.Background(), draftID)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if len(payload) == 0 {
		t.Fatal("expected non-empty workbook")
	}
	if !strings.HasSuffix(filename, ".xlsx") {
		t.Fatalf("unexpected filename %s", filename)
	}
}
