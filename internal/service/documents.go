package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pricedesk/backend/internal/domain"
	"pricedesk/backend/internal/pricing"
	"pricedesk/backend/internal/store"
)

// CreateGoodsReceipt posts an inventory receipt and increases warehouse
// stock line by line.
func (s *Service) CreateGoodsReceipt(ctx context.Context, req domain.GoodsReceiptCreateRequest) (domain.GoodsReceipt, error) {
	if req.FirmID == "" {
		req.FirmID = s.defaultFirmID
	}
	if req.WarehouseID == "" || len(req.Lines) == 0 {
		return domain.GoodsReceipt{}, store.ErrInvalidDocument
	}

	productIDs := make([]string, 0, len(req.Lines))
	for _, line := range req.Lines {
		if line.ProductID == "" || line.Qty <= 0 || line.UnitPrice < 0 {
			return domain.GoodsReceipt{}, store.ErrInvalidDocument
		}
		productIDs = append(productIDs, line.ProductID)
	}

	products, err := s.repo.GetProductsByIDs(ctx, productIDs)
	if err != nil {
		return domain.GoodsReceipt{}, err
	}

	total := 0.0
	lines := make([]domain.GoodsReceiptLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		product, ok := products[line.ProductID]
		if !ok {
			return domain.GoodsReceipt{}, fmt.Errorf("product %s unavailable", line.ProductID)
		}
		line.ProductName = product.Name
		line.Amount = pricing.Round(line.Qty*line.UnitPrice, pricing.RuleKopeck)
		total += line.Amount
		lines = append(lines, line)
	}

	actor, _ := ActorFromContext(ctx)
	receipt := domain.GoodsReceipt{
		FirmID:      req.FirmID,
		WarehouseID: req.WarehouseID,
		SupplierID:  req.SupplierID,
		Status:      domain.ReceiptStatusPosted,
		Lines:       lines,
		TotalAmount: pricing.Round(total, pricing.RuleKopeck),
		CreatedBy:   actor.Username,
		CreatedAt:   time.Now().UTC(),
	}

	created, err := s.repo.CreateGoodsReceipt(ctx, receipt)
	if err != nil {
		return domain.GoodsReceipt{}, err
	}

	for _, line := range created.Lines {
		if err := s.repo.IncreaseStock(ctx, created.WarehouseID, line.ProductID, line.Qty); err != nil {
			return domain.GoodsReceipt{}, err
		}
	}

	s.logAudit(ctx, created.FirmID, "goods_receipt_post", "goods_receipt", created.ID, fmt.Sprintf("number=%s,lines=%d,total=%.2f", created.Number, len(created.Lines), created.TotalAmount))
	return *created, nil
}

func (s *Service) GetGoodsReceipt(ctx context.Context, id string) (domain.GoodsReceipt, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.GoodsReceipt{}, store.ErrInvalidDocument
	}
	receipt, err := s.repo.GetGoodsReceiptByID(ctx, id)
	if err != nil {
		return domain.GoodsReceipt{}, err
	}
	return *receipt, nil
}

func (s *Service) ListGoodsReceipts(ctx context.Context, firmID string, limit int) ([]domain.GoodsReceipt, error) {
	if limit < 1 {
		limit = 100
	}
	return s.repo.ListGoodsReceipts(ctx, firmID, limit)
}

// CreateSalesDocument posts a sale. Stock is verified and decremented by the
// repository; VAT is extracted from VAT-inclusive line prices.
func (s *Service) CreateSalesDocument(ctx context.Context, req domain.SalesCreateRequest) (domain.SalesDocument, error) {
	if req.FirmID == "" {
		req.FirmID = s.defaultFirmID
	}
	if req.TradePointID == "" || req.WarehouseID == "" || len(req.Lines) == 0 {
		return domain.SalesDocument{}, store.ErrInvalidDocument
	}

	productIDs := make([]string, 0, len(req.Lines))
	for _, line := range req.Lines {
		if line.ProductID == "" || line.Qty <= 0 || line.UnitPrice < 0 {
			return domain.SalesDocument{}, store.ErrInvalidDocument
		}
		productIDs = append(productIDs, line.ProductID)
	}

	products, err := s.repo.GetProductsByIDs(ctx, productIDs)
	if err != nil {
		return domain.SalesDocument{}, err
	}

	var subtotal, vatTotal, total float64
	lines := make([]domain.SalesLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		product, ok := products[line.ProductID]
		if !ok {
			return domain.SalesDocument{}, fmt.Errorf("product %s unavailable", line.ProductID)
		}
		line.ProductName = product.Name
		line.VATRate = product.VATRate
		line.Amount = pricing.Round(line.Qty*line.UnitPrice, pricing.RuleKopeck)
		line.VATAmount = 0
		if line.VATRate > 0 {
			line.VATAmount = pricing.Round(line.Amount*line.VATRate/(100+line.VATRate), pricing.RuleKopeck)
		}
		subtotal += line.Amount - line.VATAmount
		vatTotal += line.VATAmount
		total += line.Amount
		lines = append(lines, line)
	}

	actor, _ := ActorFromContext(ctx)
	doc := domain.SalesDocument{
		FirmID:       req.FirmID,
		TradePointID: req.TradePointID,
		WarehouseID:  req.WarehouseID,
		ContractID:   req.ContractID,
		Lines:        lines,
		Subtotal:     pricing.Round(subtotal, pricing.RuleKopeck),
		VATTotal:     pricing.Round(vatTotal, pricing.RuleKopeck),
		Total:        pricing.Round(total, pricing.RuleKopeck),
		Status:       "posted",
		CreatedBy:    actor.Username,
		CreatedAt:    time.Now().UTC(),
	}

	created, err := s.repo.CreateSalesDocument(ctx, doc)
	if err != nil {
		return domain.SalesDocument{}, err
	}

	s.logAudit(ctx, created.FirmID, "sales_document_post", "sales_document", created.ID, fmt.Sprintf("number=%s,total=%.2f", created.Number, created.Total))
	return *created, nil
}

func (s *Service) GetSalesDocument(ctx context.Context, id string) (domain.SalesDocument, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.SalesDocument{}, store.ErrInvalidDocument
	}
	doc, err := s.repo.GetSalesDocumentByID(ctx, id)
	if err != nil {
		return domain.SalesDocument{}, err
	}
	return *doc, nil
}

func (s *Service) ListSalesDocuments(ctx context.Context, firmID string, date string, limit int) ([]domain.SalesDocument, error) {
	if limit < 1 {
		limit = 100
	}

	var from, to time.Time
	if strings.TrimSpace(date) != "" {
		day, err := time.Parse("2006-01-02", strings.TrimSpace(date))
		if err != nil {
			return nil, store.ErrInvalidDocument
		}
		from = day
		to = day.Add(24 * time.Hour)
	}
	return s.repo.ListSalesDocuments(ctx, firmID, from, to, limit)
}

// CreateSalesReturn posts a return against a sale. Cumulative returned
// quantity per product never exceeds the sold quantity, and returned goods go
// back to the sale's warehouse.
func (s *Service) CreateSalesReturn(ctx context.Context, req domain.SalesReturnCreateRequest) (domain.SalesReturn, error) {
	if strings.TrimSpace(req.SaleID) == "" || len(req.Lines) == 0 {
		return domain.SalesReturn{}, store.ErrInvalidDocument
	}

	sale, err := s.repo.GetSalesDocumentByID(ctx, req.SaleID)
	if err != nil {
		return domain.SalesReturn{}, err
	}

	soldQty := make(map[string]float64, len(sale.Lines))
	soldPrice := make(map[string]float64, len(sale.Lines))
	soldName := make(map[string]string, len(sale.Lines))
	for _, line := range sale.Lines {
		soldQty[line.ProductID] += line.Qty
		soldPrice[line.ProductID] = line.UnitPrice
		soldName[line.ProductID] = line.ProductName
	}

	returned, err := s.repo.GetReturnedQtyBySale(ctx, req.SaleID)
	if err != nil {
		return domain.SalesReturn{}, err
	}

	refund := 0.0
	lines := make([]domain.SalesReturnLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		if line.ProductID == "" || line.Qty <= 0 {
			return domain.SalesReturn{}, store.ErrInvalidDocument
		}
		sold, wasSold := soldQty[line.ProductID]
		if !wasSold {
			return domain.SalesReturn{}, fmt.Errorf("product %s was not part of sale %s", line.ProductID, req.SaleID)
		}
		if returned[line.ProductID]+line.Qty > sold {
			return domain.SalesReturn{}, fmt.Errorf("return qty for %s exceeds sold qty", soldName[line.ProductID])
		}
		// Count this line against the cap so repeated lines for the same
		// product within one request cannot exceed the sold quantity together.
		returned[line.ProductID] += line.Qty
		line.UnitPrice = soldPrice[line.ProductID]
		line.Amount = pricing.Round(line.Qty*line.UnitPrice, pricing.RuleKopeck)
		refund += line.Amount
		lines = append(lines, line)
	}

	actor, _ := ActorFromContext(ctx)
	ret := domain.SalesReturn{
		SaleID:      req.SaleID,
		Reason:      strings.TrimSpace(req.Reason),
		Lines:       lines,
		RefundTotal: pricing.Round(refund, pricing.RuleKopeck),
		CreatedBy:   actor.Username,
		CreatedAt:   time.Now().UTC(),
	}

	created, err := s.repo.CreateSalesReturn(ctx, ret)
	if err != nil {
		return domain.SalesReturn{}, err
	}

	for _, line := range created.Lines {
		if err := s.repo.IncreaseStock(ctx, sale.WarehouseID, line.ProductID, line.Qty); err != nil {
			return domain.SalesReturn{}, err
		}
	}

	s.logAudit(ctx, sale.FirmID, "sales_return_post", "sales_return", created.ID, fmt.Sprintf("number=%s,sale=%s,refund=%.2f", created.Number, created.SaleID, created.RefundTotal))
	return *created, nil
}

func (s *Service) ListSalesReturns(ctx context.Context, saleID string) ([]domain.SalesReturn, error) {
	return s.repo.ListSalesReturns(ctx, saleID)
}
