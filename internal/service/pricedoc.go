package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"pricedesk/backend/internal/domain"
	"pricedesk/backend/internal/pricing"
	"pricedesk/backend/internal/store"
	"pricedesk/backend/internal/xid"
)

// CreatePriceDraft opens a new price document in draft state. The draft is
// held in memory until submitted; discarding it loses all edits.
func (s *Service) CreatePriceDraft(ctx context.Context, req domain.PriceDraftCreateRequest) (domain.DraftResponse, error) {
	if req.FirmID == "" {
		req.FirmID = s.defaultFirmID
	}
	if req.Currency == "" {
		req.Currency = "UAH"
	}
	if req.DefaultMarkupPercent < 0 {
		return domain.DraftResponse{}, store.ErrInvalidDocument
	}

	validFrom, err := parseValidFrom(req.ValidFrom)
	if err != nil {
		return domain.DraftResponse{}, store.ErrInvalidDocument
	}

	tradePoints, err := s.repo.ListTradePoints(ctx, req.FirmID)
	if err != nil {
		return domain.DraftResponse{}, err
	}
	tradePointIDs, err := resolveTradePoints(req.TradePointIDs, tradePoints)
	if err != nil {
		return domain.DraftResponse{}, err
	}

	actor, _ := ActorFromContext(ctx)
	draft := &domain.PriceDocument{
		ID:     xid.New("pd"),
		Status: domain.PriceDocumentStatusDraft,
		Settings: domain.PriceSettings{
			FirmID:               req.FirmID,
			Currency:             req.Currency,
			RoundingRule:         string(pricing.ParseRule(req.RoundingRule)),
			AutoApplyMarkup:      req.AutoApplyMarkup,
			DefaultMarkupPercent: req.DefaultMarkupPercent,
			ValidFrom:            validFrom,
		},
		TradePointIDs: tradePointIDs,
		Items:         []domain.PriceItem{},
		CreatedBy:     actor.Username,
		CreatedAt:     time.Now().UTC(),
	}

	s.draftMu.Lock()
	s.drafts[draft.ID] = draft
	s.draftMu.Unlock()

	s.logAudit(ctx, req.FirmID, "price_draft_create", "price_document", draft.ID, fmt.Sprintf("rounding=%s,markup=%.2f", draft.Settings.RoundingRule, req.DefaultMarkupPercent))
	return domain.DraftResponse{Draft: snapshotDraft(*draft)}, nil
}

// AddDraftItems appends products to the draft and generates the full price
// matrix for each. When ReceiptID is set, products and cost prices come from
// the receipt lines instead of the catalog cost. Already-present products are
// skipped.
func (s *Service) AddDraftItems(ctx context.Context, draftID string, req domain.DraftItemsAddRequest) (domain.DraftResponse, error) {
	costOverrides := map[string]float64{}
	productIDs := req.ProductIDs

	if req.ReceiptID != "" {
		receipt, err := s.repo.GetGoodsReceiptByID(ctx, req.ReceiptID)
		if err != nil {
			return domain.DraftResponse{}, err
		}
		for _, line := range receipt.Lines {
			productIDs = append(productIDs, line.ProductID)
			costOverrides[line.ProductID] = line.UnitPrice
		}
	}
	if len(productIDs) == 0 {
		return domain.DraftResponse{}, store.ErrInvalidDocument
	}

	products, err := s.repo.GetProductsByIDs(ctx, productIDs)
	if err != nil {
		return domain.DraftResponse{}, err
	}
	priceTypes, err := s.repo.ListPriceTypes(ctx)
	if err != nil {
		return domain.DraftResponse{}, err
	}

	s.draftMu.Lock()
	defer s.draftMu.Unlock()

	draft, ok := s.drafts[draftID]
	if !ok {
		return domain.DraftResponse{}, store.ErrNotFound
	}

	present := make(map[string]bool, len(draft.Items))
	for _, item := range draft.Items {
		present[item.ProductID] = true
	}

	// Build the new items first and append in one step, so a missing or
	// inactive product leaves the draft exactly as it was.
	rule := pricing.ParseRule(draft.Settings.RoundingRule)
	newItems := make([]domain.PriceItem, 0, len(productIDs))
	for _, id := range productIDs {
		if present[id] {
			continue
		}
		product, found := products[id]
		if !found {
			return domain.DraftResponse{}, fmt.Errorf("product %s unavailable", id)
		}

		cost := product.CostPrice
		if override, hasOverride := costOverrides[id]; hasOverride {
			cost = override
		}
		item := domain.PriceItem{
			ID:          xid.New("pi"),
			ProductID:   product.ID,
			ProductName: product.Name,
			Unit:        product.Unit,
			UnitName:    product.UnitName,
			BasePrice:   product.Price,
			CostPrice:   cost,
			VATRate:     product.VATRate,
			VATIncluded: true,
			MinPrice:    product.MinPrice,
		}
		item.Entries = pricing.GenerateMatrix(pricing.MatrixParams{
			TradePointIDs:        draft.TradePointIDs,
			PriceTypes:           priceTypes,
			BasePrice:            item.BasePrice,
			CostPrice:            item.CostPrice,
			AutoApplyMarkup:      draft.Settings.AutoApplyMarkup,
			DefaultMarkupPercent: draft.Settings.DefaultMarkupPercent,
			ValidFrom:            draft.Settings.ValidFrom,
			Rounding:             rule,
		})
		newItems = append(newItems, item)
		present[id] = true
	}
	draft.Items = append(draft.Items, newItems...)

	s.logAudit(ctx, draft.Settings.FirmID, "price_draft_add_items", "price_document", draft.ID, fmt.Sprintf("added=%d,receipt=%s", len(newItems), req.ReceiptID))
	return domain.DraftResponse{Draft: snapshotDraft(*draft), Warnings: lowMarginWarnings(draft.Items)}, nil
}

// SetDraftTradePoints replaces the draft's trade point selection and
// regenerates every item's matrix against the new set. Manual per-entry edits
// are lost, which mirrors how the settings form behaves.
func (s *Service) SetDraftTradePoints(ctx context.Context, draftID string, req domain.DraftTradePointsRequest) (domain.DraftResponse, error) {
	priceTypes, err := s.repo.ListPriceTypes(ctx)
	if err != nil {
		return domain.DraftResponse{}, err
	}

	s.draftMu.Lock()
	defer s.draftMu.Unlock()

	draft, ok := s.drafts[draftID]
	if !ok {
		return domain.DraftResponse{}, store.ErrNotFound
	}

	tradePoints, err := s.repo.ListTradePoints(ctx, draft.Settings.FirmID)
	if err != nil {
		return domain.DraftResponse{}, err
	}
	tradePointIDs, err := resolveTradePoints(req.TradePointIDs, tradePoints)
	if err != nil {
		return domain.DraftResponse{}, err
	}

	draft.TradePointIDs = tradePointIDs
	rule := pricing.ParseRule(draft.Settings.RoundingRule)
	for i := range draft.Items {
		draft.Items[i].Entries = pricing.GenerateMatrix(pricing.MatrixParams{
			TradePointIDs:        draft.TradePointIDs,
			PriceTypes:           priceTypes,
			BasePrice:            draft.Items[i].BasePrice,
			CostPrice:            draft.Items[i].CostPrice,
			AutoApplyMarkup:      draft.Settings.AutoApplyMarkup,
			DefaultMarkupPercent: draft.Settings.DefaultMarkupPercent,
			ValidFrom:            draft.Settings.ValidFrom,
			Rounding:             rule,
		})
	}

	s.logAudit(ctx, draft.Settings.FirmID, "price_draft_set_trade_points", "price_document", draft.ID, fmt.Sprintf("count=%d", len(tradePointIDs)))
	return domain.DraftResponse{Draft: snapshotDraft(*draft)}, nil
}

// UpdateDraftEntry edits a single cell of the matrix. Minimum-price
// violations reject the edit; low margins go through with a warning.
func (s *Service) UpdateDraftEntry(ctx context.Context, draftID string, req domain.DraftEntryUpdateRequest) (domain.DraftResponse, error) {
	s.draftMu.Lock()
	defer s.draftMu.Unlock()

	draft, ok := s.drafts[draftID]
	if !ok {
		return domain.DraftResponse{}, store.ErrNotFound
	}

	idx := -1
	for i := range draft.Items {
		if draft.Items[i].ID == req.ItemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.DraftResponse{}, store.ErrNotFound
	}

	rule := pricing.ParseRule(draft.Settings.RoundingRule)
	advisory, err := pricing.UpdateEntry(&draft.Items[idx], rule, req.TradePointID, req.PriceTypeID, req.Field, req.Value)
	if err != nil {
		return domain.DraftResponse{}, err
	}

	resp := domain.DraftResponse{Draft: snapshotDraft(*draft)}
	if advisory.LowMargin {
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("low margin %.2f%% for %s", advisory.MarginPercent, draft.Items[idx].ProductName))
	}
	return resp, nil
}

// ApplyDraftMarkup recomputes every item and entry from cost with one
// markup. Idempotent.
func (s *Service) ApplyDraftMarkup(ctx context.Context, draftID string, req domain.DraftBulkMarkupRequest) (domain.DraftResponse, error) {
	s.draftMu.Lock()
	defer s.draftMu.Unlock()

	draft, ok := s.drafts[draftID]
	if !ok {
		return domain.DraftResponse{}, store.ErrNotFound
	}

	rule := pricing.ParseRule(draft.Settings.RoundingRule)
	draft.Items = pricing.ApplyBulkMarkup(draft.Items, req.MarkupPercent, rule)
	draft.Settings.DefaultMarkupPercent = req.MarkupPercent

	s.logAudit(ctx, draft.Settings.FirmID, "price_draft_bulk_markup", "price_document", draft.ID, fmt.Sprintf("markup=%.2f", req.MarkupPercent))
	return domain.DraftResponse{Draft: snapshotDraft(*draft), Warnings: lowMarginWarnings(draft.Items)}, nil
}

func (s *Service) RemoveDraftItem(ctx context.Context, draftID string, itemID string) (domain.DraftResponse, error) {
	s.draftMu.Lock()
	defer s.draftMu.Unlock()

	draft, ok := s.drafts[draftID]
	if !ok {
		return domain.DraftResponse{}, store.ErrNotFound
	}

	idx := -1
	for i := range draft.Items {
		if draft.Items[i].ID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.DraftResponse{}, store.ErrNotFound
	}
	draft.Items = append(draft.Items[:idx], draft.Items[idx+1:]...)

	return domain.DraftResponse{Draft: snapshotDraft(*draft)}, nil
}

func (s *Service) GetDraft(_ context.Context, draftID string) (domain.DraftResponse, error) {
	s.draftMu.Lock()
	defer s.draftMu.Unlock()

	draft, ok := s.drafts[draftID]
	if !ok {
		return domain.DraftResponse{}, store.ErrNotFound
	}
	return domain.DraftResponse{Draft: snapshotDraft(*draft), Warnings: lowMarginWarnings(draft.Items)}, nil
}

func (s *Service) DiscardDraft(ctx context.Context, draftID string) error {
	s.draftMu.Lock()
	draft, ok := s.drafts[draftID]
	if ok {
		delete(s.drafts, draftID)
	}
	s.draftMu.Unlock()

	if !ok {
		return store.ErrNotFound
	}
	s.logAudit(ctx, draft.Settings.FirmID, "price_draft_discard", "price_document", draftID, "")
	return nil
}

// SubmitPriceDraft posts the draft. Entries priced below cost block the save
// until the caller confirms; confirmed or clean drafts are persisted, the
// catalog base prices are refreshed, and the draft leaves the registry.
func (s *Service) SubmitPriceDraft(ctx context.Context, draftID string, req domain.DraftSubmitRequest) (domain.PriceDocument, error) {
	s.draftMu.Lock()
	draft, ok := s.drafts[draftID]
	if !ok {
		s.draftMu.Unlock()
		return domain.PriceDocument{}, store.ErrNotFound
	}
	if len(draft.Items) == 0 {
		s.draftMu.Unlock()
		return domain.PriceDocument{}, store.ErrInvalidDocument
	}

	negative := 0
	for _, item := range draft.Items {
		if item.CostPrice <= 0 {
			continue
		}
		for _, entry := range item.Entries {
			if entry.MarginPercent < 0 {
				negative++
			}
		}
	}
	if negative > 0 && !req.ConfirmNegativeMargin {
		s.draftMu.Unlock()
		return domain.PriceDocument{}, fmt.Errorf("%w: %d entries priced below cost", ErrNegativeMargin, negative)
	}

	actor, _ := ActorFromContext(ctx)
	now := time.Now().UTC()
	doc := snapshotDraft(*draft)
	doc.Status = domain.PriceDocumentStatusPosted
	doc.PostedAt = &now
	if doc.CreatedBy == "" {
		doc.CreatedBy = actor.Username
	}
	s.draftMu.Unlock()

	saved, err := s.repo.CreatePriceDocument(ctx, doc)
	if err != nil {
		return domain.PriceDocument{}, err
	}

	s.draftMu.Lock()
	delete(s.drafts, draftID)
	s.draftMu.Unlock()

	// Refresh catalog base prices so new documents start from the posted
	// prices. Failures here do not undo the posted document.
	for _, item := range saved.Items {
		product, err := s.repo.GetProductByID(ctx, item.ProductID)
		if err != nil {
			log.Printf("[service] WARN: failed to load product %s for price refresh: %v", item.ProductID, err)
			continue
		}
		if product.Price == item.BasePrice {
			continue
		}
		product.Price = item.BasePrice
		if _, err := s.repo.UpdateProduct(ctx, *product); err != nil {
			log.Printf("[service] WARN: failed to refresh catalog price product=%s: %v", item.ProductID, err)
		}
	}

	s.logAudit(ctx, saved.Settings.FirmID, "price_document_post", "price_document", saved.ID, fmt.Sprintf("number=%s,items=%d,negative_margins=%d", saved.Number, len(saved.Items), negative))
	return *saved, nil
}

func (s *Service) GetPriceDocument(ctx context.Context, id string) (domain.PriceDocument, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.PriceDocument{}, store.ErrInvalidDocument
	}
	doc, err := s.repo.GetPriceDocumentByID(ctx, id)
	if err != nil {
		return domain.PriceDocument{}, err
	}
	return *doc, nil
}

func (s *Service) ListPriceDocuments(ctx context.Context, firmID string, limit int) ([]domain.PriceDocument, error) {
	if limit < 1 {
		limit = 100
	}
	return s.repo.ListPriceDocuments(ctx, firmID, limit)
}

// snapshotDraft detaches a draft from the registry copy. Items and entries
// get their own backing arrays so callers never observe later edits.
func snapshotDraft(src domain.PriceDocument) domain.PriceDocument {
	dup := src
	tps := make([]string, len(src.TradePointIDs))
	copy(tps, src.TradePointIDs)
	dup.TradePointIDs = tps
	items := make([]domain.PriceItem, len(src.Items))
	for i, item := range src.Items {
		entries := make([]domain.PriceEntry, len(item.Entries))
		copy(entries, item.Entries)
		item.Entries = entries
		items[i] = item
	}
	dup.Items = items
	return dup
}

func lowMarginWarnings(items []domain.PriceItem) []string {
	var warnings []string
	for _, item := range items {
		if item.CostPrice <= 0 {
			continue
		}
		for _, entry := range item.Entries {
			if entry.MarginPercent < pricing.LowMarginThreshold {
				warnings = append(warnings, fmt.Sprintf("low margin %.2f%% for %s (%s/%s)", entry.MarginPercent, item.ProductName, entry.TradePointID, entry.PriceTypeID))
			}
		}
	}
	return warnings
}

func resolveTradePoints(requested []string, available []domain.TradePoint) ([]string, error) {
	active := make(map[string]bool, len(available))
	ordered := make([]string, 0, len(available))
	for _, tp := range available {
		if !tp.Active {
			continue
		}
		active[tp.ID] = true
		ordered = append(ordered, tp.ID)
	}

	if len(requested) == 0 {
		return ordered, nil
	}

	result := make([]string, 0, len(requested))
	seen := make(map[string]bool, len(requested))
	for _, id := range requested {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		if !active[id] {
			return nil, fmt.Errorf("unknown or inactive trade point %s", id)
		}
		seen[id] = true
		result = append(result, id)
	}
	if len(result) == 0 {
		return nil, store.ErrInvalidDocument
	}
	return result, nil
}

func parseValidFrom(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Now().UTC().Truncate(24 * time.Hour), nil
	}
	if ts, err := time.Parse("2006-01-02", raw); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339, raw)
}
