package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"pricedesk/backend/internal/store"
)

// ExportPriceDocumentXLSX renders a price document (posted or still in
// draft) as a spreadsheet, one row per matrix cell.
func (s *Service) ExportPriceDocumentXLSX(ctx context.Context, id string) ([]byte, string, error) {
	doc, err := s.repo.GetPriceDocumentByID(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, "", err
		}
		s.draftMu.Lock()
		draft, ok := s.drafts[id]
		if ok {
			copied := snapshotDraft(*draft)
			doc = &copied
		}
		s.draftMu.Unlock()
		if !ok {
			return nil, "", store.ErrNotFound
		}
	}

	tradePoints, err := s.repo.ListTradePoints(ctx, doc.Settings.FirmID)
	if err != nil {
		return nil, "", err
	}
	priceTypes, err := s.repo.ListPriceTypes(ctx)
	if err != nil {
		return nil, "", err
	}

	tpNames := make(map[string]string, len(tradePoints))
	for _, tp := range tradePoints {
		tpNames[tp.ID] = tp.Name
	}
	ptNames := make(map[string]string, len(priceTypes))
	for _, pt := range priceTypes {
		ptNames[pt.ID] = pt.Name
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	header := []any{"Product", "Unit", "Cost Price", "Trade Point", "Price Type", "Price", "Markup %", "Margin %"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, "", err
	}

	row := 2
	for _, item := range doc.Items {
		for _, entry := range item.Entries {
			tpName := tpNames[entry.TradePointID]
			if tpName == "" {
				tpName = entry.TradePointID
			}
			ptName := ptNames[entry.PriceTypeID]
			if ptName == "" {
				ptName = entry.PriceTypeID
			}
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return nil, "", err
			}
			values := []any{item.ProductName, item.Unit, item.CostPrice, tpName, ptName, entry.Price, entry.MarkupPercent, entry.MarginPercent}
			if err := f.SetSheetRow(sheet, cell, &values); err != nil {
				return nil, "", err
			}
			row++
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, "", err
	}

	name := doc.Number
	if name == "" {
		name = doc.ID
	}
	return buf.Bytes(), fmt.Sprintf("price-document-%s.xlsx", name), nil
}
