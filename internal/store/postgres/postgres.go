package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"pricedesk/backend/internal/domain"
	"pricedesk/backend/internal/store"
	"pricedesk/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListCompanies(ctx context.Context) ([]domain.Company, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, code
		FROM companies
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	companies := make([]domain.Company, 0, 8)
	for rows.Next() {
		var c domain.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Code); err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

func (s *Store) ListFirms(ctx context.Context) ([]domain.Firm, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, company_id, name, COALESCE(tax_number, '')
		FROM firms
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	firms := make([]domain.Firm, 0, 8)
	for rows.Next() {
		var f domain.Firm
		if err := rows.Scan(&f.ID, &f.CompanyID, &f.Name, &f.TaxNumber); err != nil {
			return nil, err
		}
		firms = append(firms, f)
	}
	return firms, rows.Err()
}

func (s *Store) ListWarehouses(ctx context.Context, firmID string) ([]domain.Warehouse, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, firm_id, name, active
		FROM warehouses
		WHERE ($1 = '' OR firm_id = $1)
		ORDER BY name
	`, firmID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	warehouses := make([]domain.Warehouse, 0, 8)
	for rows.Next() {
		var wh domain.Warehouse
		if err := rows.Scan(&wh.ID, &wh.FirmID, &wh.Name, &wh.Active); err != nil {
			return nil, err
		}
		warehouses = append(warehouses, wh)
	}
	return warehouses, rows.Err()
}

func (s *Store) ListTradePoints(ctx context.Context, firmID string) ([]domain.TradePoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, firm_id, name, active
		FROM trade_points
		WHERE ($1 = '' OR firm_id = $1)
		ORDER BY id
	`, firmID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := make([]domain.TradePoint, 0, 16)
	for rows.Next() {
		var tp domain.TradePoint
		if err := rows.Scan(&tp.ID, &tp.FirmID, &tp.Name, &tp.Active); err != nil {
			return nil, err
		}
		points = append(points, tp)
	}
	return points, rows.Err()
}

func (s *Store) CreateTradePoint(ctx context.Context, tp domain.TradePoint) (*domain.TradePoint, error) {
	if tp.Name == "" || tp.FirmID == "" {
		return nil, store.ErrInvalidDocument
	}
	if tp.ID == "" {
		tp.ID = xid.New("tp")
	}
	tp.Active = true

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trade_points (id, firm_id, name, active, created_at)
		VALUES ($1,$2,$3,$4,now())
	`, tp.ID, tp.FirmID, tp.Name, tp.Active)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidDocument
		}
		return nil, err
	}
	created := tp
	return &created, nil
}

func (s *Store) ListPriceTypes(ctx context.Context) ([]domain.PriceType, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, is_retail, is_wholesale, default_markup
		FROM price_types
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types := make([]domain.PriceType, 0, 8)
	for rows.Next() {
		var pt domain.PriceType
		if err := rows.Scan(&pt.ID, &pt.Name, &pt.IsRetail, &pt.IsWholesale, &pt.DefaultMarkup); err != nil {
			return nil, err
		}
		types = append(types, pt)
	}
	return types, rows.Err()
}

func (s *Store) CreatePriceType(ctx context.Context, pt domain.PriceType) (*domain.PriceType, error) {
	if pt.Name == "" || pt.DefaultMarkup < 0 {
		return nil, store.ErrInvalidDocument
	}
	if pt.ID == "" {
		pt.ID = xid.New("pt")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO price_types (id, name, is_retail, is_wholesale, default_markup)
		VALUES ($1,$2,$3,$4,$5)
	`, pt.ID, pt.Name, pt.IsRetail, pt.IsWholesale, pt.DefaultMarkup)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidDocument
		}
		return nil, err
	}
	created := pt
	return &created, nil
}

func (s *Store) ListContracts(ctx context.Context, firmID string) ([]domain.Contract, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, firm_id, name, counterparty, valid_from
		FROM contracts
		WHERE ($1 = '' OR firm_id = $1)
		ORDER BY valid_from DESC
	`, firmID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contracts := make([]domain.Contract, 0, 8)
	for rows.Next() {
		var ct domain.Contract
		if err := rows.Scan(&ct.ID, &ct.FirmID, &ct.Name, &ct.Counterparty, &ct.ValidFrom); err != nil {
			return nil, err
		}
		ct.ValidFrom = ct.ValidFrom.UTC()
		contracts = append(contracts, ct)
	}
	return contracts, rows.Err()
}

func (s *Store) ListProductGroups(ctx context.Context) ([]domain.ProductGroup, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(parent_id, ''), name
		FROM product_groups
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := make([]domain.ProductGroup, 0, 32)
	for rows.Next() {
		var g domain.ProductGroup
		if err := rows.Scan(&g.ID, &g.ParentID, &g.Name); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (s *Store) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	limit := filter.Limit
	if limit < 1 {
		limit = 500
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.sku, p.name, p.unit, p.unit_name, p.group_id, COALESCE(g.name, ''),
			p.price, p.cost_price, p.min_price, p.vat_rate, p.active
		FROM products p
		LEFT JOIN product_groups g ON g.id = p.group_id
		WHERE p.active = true
			AND ($1 = '' OR p.group_id = $1)
			AND ($2 = '' OR p.name ILIKE '%' || $2 || '%' OR p.sku ILIKE '%' || $2 || '%')
		ORDER BY p.group_id, p.name
		LIMIT $3
	`, filter.GroupID, filter.Search, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, limit)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Unit, &p.UnitName, &p.GroupID, &p.GroupName, &p.Price, &p.CostPrice, &p.MinPrice, &p.VATRate, &p.Active); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, sku, name, unit, unit_name, group_id, price, cost_price, min_price, vat_rate, active
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.SKU, &p.Name, &p.Unit, &p.UnitName, &p.GroupID, &p.Price, &p.CostPrice, &p.MinPrice, &p.VATRate, &p.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	result := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sku, name, unit, unit_name, group_id, price, cost_price, min_price, vat_rate, active
		FROM products
		WHERE active = true AND id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Unit, &p.UnitName, &p.GroupID, &p.Price, &p.CostPrice, &p.MinPrice, &p.VATRate, &p.Active); err != nil {
			return nil, err
		}
		result[p.ID] = p
	}
	return result, rows.Err()
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.SKU == "" || product.Name == "" || product.Price < 0 || product.CostPrice < 0 {
		return nil, store.ErrInvalidDocument
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	product.Active = true

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, sku, name, unit, unit_name, group_id, price, cost_price, min_price, vat_rate, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now(),now())
	`, product.ID, product.SKU, product.Name, product.Unit, product.UnitName, nullIfEmpty(product.GroupID), product.Price, product.CostPrice, product.MinPrice, product.VATRate, product.Active)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidDocument
		}
		return nil, err
	}
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.Price < 0 || product.CostPrice < 0 {
		return nil, store.ErrInvalidDocument
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, unit = $3, unit_name = $4, group_id = $5, price = $6, cost_price = $7,
			min_price = $8, vat_rate = $9, active = $10, updated_at = now()
		WHERE id = $1
	`, product.ID, product.Name, product.Unit, product.UnitName, nullIfEmpty(product.GroupID), product.Price, product.CostPrice, product.MinPrice, product.VATRate, product.Active)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	updated := product
	return &updated, nil
}

func (s *Store) CreateGoodsReceipt(ctx context.Context, receipt domain.GoodsReceipt) (*domain.GoodsReceipt, error) {
	if receipt.FirmID == "" || receipt.WarehouseID == "" || len(receipt.Lines) == 0 {
		return nil, store.ErrInvalidDocument
	}
	for _, line := range receipt.Lines {
		if line.Qty <= 0 || line.UnitPrice < 0 {
			return nil, store.ErrInvalidDocument
		}
	}
	if receipt.ID == "" {
		receipt.ID = xid.New("rcpt")
	}
	if receipt.CreatedAt.IsZero() {
		receipt.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if receipt.Number == "" {
		receipt.Number, err = nextDocNumber(ctx, tx, "GR")
		if err != nil {
			return nil, err
		}
	}
	linesJSON, err := json.Marshal(receipt.Lines)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO goods_receipts (
			id, number, firm_id, warehouse_id, supplier_id, status, lines, total_amount, created_by, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, receipt.ID, receipt.Number, receipt.FirmID, receipt.WarehouseID, nullIfEmpty(receipt.SupplierID), receipt.Status, linesJSON, receipt.TotalAmount, receipt.CreatedBy, receipt.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := receipt
	return &created, nil
}

func (s *Store) GetGoodsReceiptByID(ctx context.Context, id string) (*domain.GoodsReceipt, error) {
	var receipt domain.GoodsReceipt
	var supplierID sql.NullString
	var linesRaw []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, number, firm_id, warehouse_id, supplier_id, status, lines, total_amount, created_by, created_at
		FROM goods_receipts
		WHERE id = $1
	`, id).Scan(&receipt.ID, &receipt.Number, &receipt.FirmID, &receipt.WarehouseID, &supplierID, &receipt.Status, &linesRaw, &receipt.TotalAmount, &receipt.CreatedBy, &receipt.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	receipt.CreatedAt = receipt.CreatedAt.UTC()
	if supplierID.Valid {
		receipt.SupplierID = supplierID.String
	}
	if len(linesRaw) > 0 {
		if err := json.Unmarshal(linesRaw, &receipt.Lines); err != nil {
			return nil, err
		}
	}
	return &receipt, nil
}

func (s *Store) ListGoodsReceipts(ctx context.Context, firmID string, limit int) ([]domain.GoodsReceipt, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, number, firm_id, warehouse_id, supplier_id, status, lines, total_amount, created_by, created_at
		FROM goods_receipts
		WHERE ($1 = '' OR firm_id = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, firmID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	receipts := make([]domain.GoodsReceipt, 0, limit)
	for rows.Next() {
		var receipt domain.GoodsReceipt
		var supplierID sql.NullString
		var linesRaw []byte
		if err := rows.Scan(&receipt.ID, &receipt.Number, &receipt.FirmID, &receipt.WarehouseID, &supplierID, &receipt.Status, &linesRaw, &receipt.TotalAmount, &receipt.CreatedBy, &receipt.CreatedAt); err != nil {
			return nil, err
		}
		receipt.CreatedAt = receipt.CreatedAt.UTC()
		if supplierID.Valid {
			receipt.SupplierID = supplierID.String
		}
		if len(linesRaw) > 0 {
			if err := json.Unmarshal(linesRaw, &receipt.Lines); err != nil {
				return nil, err
			}
		}
		receipts = append(receipts, receipt)
	}
	return receipts, rows.Err()
}

func (s *Store) GetStockMap(ctx context.Context, warehouseID string, productIDs []string) (map[string]float64, error) {
	stockMap := make(map[string]float64, len(productIDs))
	if len(productIDs) == 0 {
		return stockMap, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, qty
		FROM warehouse_stocks
		WHERE warehouse_id = $1 AND product_id = ANY($2)
	`, warehouseID, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var productID string
		var qty float64
		if err := rows.Scan(&productID, &qty); err != nil {
			return nil, err
		}
		stockMap[productID] = qty
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, id := range productIDs {
		if _, ok := stockMap[id]; !ok {
			stockMap[id] = 0
		}
	}
	return stockMap, nil
}

func (s *Store) IncreaseStock(ctx context.Context, warehouseID string, productID string, qty float64) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO warehouse_stocks (warehouse_id, product_id, qty, updated_at)
		VALUES ($1,$2,$3,now())
		ON CONFLICT (warehouse_id, product_id)
		DO UPDATE SET qty = warehouse_stocks.qty + EXCLUDED.qty, updated_at = now()
		WHERE warehouse_stocks.qty + EXCLUDED.qty >= 0
	`, warehouseID, productID, qty)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrInsufficientStock
	}
	return nil
}

func (s *Store) CreateSalesDocument(ctx context.Context, doc domain.SalesDocument) (*domain.SalesDocument, error) {
	if doc.FirmID == "" || doc.TradePointID == "" || doc.WarehouseID == "" || len(doc.Lines) == 0 {
		return nil, store.ErrInvalidDocument
	}
	if doc.ID == "" {
		doc.ID = xid.New("sale")
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, line := range doc.Lines {
		if line.Qty <= 0 {
			return nil, store.ErrInvalidDocument
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE warehouse_stocks
			SET qty = qty - $3, updated_at = now()
			WHERE warehouse_id = $1 AND product_id = $2 AND qty >= $3
		`, doc.WarehouseID, line.ProductID, line.Qty)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, store.ErrInsufficientStock
		}
	}

	if doc.Number == "" {
		doc.Number, err = nextDocNumber(ctx, tx, "SL")
		if err != nil {
			return nil, err
		}
	}
	linesJSON, err := json.Marshal(doc.Lines)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales_documents (
			id, number, firm_id, trade_point_id, warehouse_id, contract_id,
			lines, subtotal, vat_total, total, status, created_by, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, doc.ID, doc.Number, doc.FirmID, doc.TradePointID, doc.WarehouseID, nullIfEmpty(doc.ContractID),
		linesJSON, doc.Subtotal, doc.VATTotal, doc.Total, doc.Status, doc.CreatedBy, doc.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := doc
	return &created, nil
}

func (s *Store) GetSalesDocumentByID(ctx context.Context, id string) (*domain.SalesDocument, error) {
	var doc domain.SalesDocument
	var contractID sql.NullString
	var linesRaw []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, number, firm_id, trade_point_id, warehouse_id, contract_id,
			lines, subtotal, vat_total, total, status, created_by, created_at
		FROM sales_documents
		WHERE id = $1
	`, id).Scan(&doc.ID, &doc.Number, &doc.FirmID, &doc.TradePointID, &doc.WarehouseID, &contractID,
		&linesRaw, &doc.Subtotal, &doc.VATTotal, &doc.Total, &doc.Status, &doc.CreatedBy, &doc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	doc.CreatedAt = doc.CreatedAt.UTC()
	if contractID.Valid {
		doc.ContractID = contractID.String
	}
	if len(linesRaw) > 0 {
		if err := json.Unmarshal(linesRaw, &doc.Lines); err != nil {
			return nil, err
		}
	}
	return &doc, nil
}

func (s *Store) ListSalesDocuments(ctx context.Context, firmID string, from time.Time, to time.Time, limit int) ([]domain.SalesDocument, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, number, firm_id, trade_point_id, warehouse_id, contract_id,
			lines, subtotal, vat_total, total, status, created_by, created_at
		FROM sales_documents
		WHERE ($1 = '' OR firm_id = $1)
			AND ($2::timestamptz IS NULL OR created_at >= $2)
			AND ($3::timestamptz IS NULL OR created_at < $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`, firmID, nullTimeZero(from), nullTimeZero(to), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]domain.SalesDocument, 0, limit)
	for rows.Next() {
		var doc domain.SalesDocument
		var contractID sql.NullString
		var linesRaw []byte
		if err := rows.Scan(&doc.ID, &doc.Number, &doc.FirmID, &doc.TradePointID, &doc.WarehouseID, &contractID,
			&linesRaw, &doc.Subtotal, &doc.VATTotal, &doc.Total, &doc.Status, &doc.CreatedBy, &doc.CreatedAt); err != nil {
			return nil, err
		}
		doc.CreatedAt = doc.CreatedAt.UTC()
		if contractID.Valid {
			doc.ContractID = contractID.String
		}
		if len(linesRaw) > 0 {
			if err := json.Unmarshal(linesRaw, &doc.Lines); err != nil {
				return nil, err
			}
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *Store) GetReturnedQtyBySale(ctx context.Context, saleID string) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT line->>'product_id', (line->>'qty')::float8
		FROM sales_returns, jsonb_array_elements(lines) AS line
		WHERE sale_id = $1
	`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]float64)
	for rows.Next() {
		var productID string
		var qty float64
		if err := rows.Scan(&productID, &qty); err != nil {
			return nil, err
		}
		result[productID] += qty
	}
	return result, rows.Err()
}

func (s *Store) CreateSalesReturn(ctx context.Context, ret domain.SalesReturn) (*domain.SalesReturn, error) {
	if ret.SaleID == "" || len(ret.Lines) == 0 {
		return nil, store.ErrInvalidDocument
	}
	if ret.ID == "" {
		ret.ID = xid.New("ret")
	}
	if ret.CreatedAt.IsZero() {
		ret.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM sales_documents WHERE id = $1)`, ret.SaleID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrNotFound
	}

	if ret.Number == "" {
		ret.Number, err = nextDocNumber(ctx, tx, "RT")
		if err != nil {
			return nil, err
		}
	}
	linesJSON, err := json.Marshal(ret.Lines)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales_returns (id, number, sale_id, reason, lines, refund_total, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, ret.ID, ret.Number, ret.SaleID, ret.Reason, linesJSON, ret.RefundTotal, ret.CreatedBy, ret.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := ret
	return &created, nil
}

func (s *Store) ListSalesReturns(ctx context.Context, saleID string) ([]domain.SalesReturn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, number, sale_id, reason, lines, refund_total, created_by, created_at
		FROM sales_returns
		WHERE ($1 = '' OR sale_id = $1)
		ORDER BY created_at DESC, id DESC
	`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	returns := make([]domain.SalesReturn, 0, 8)
	for rows.Next() {
		var ret domain.SalesReturn
		var linesRaw []byte
		if err := rows.Scan(&ret.ID, &ret.Number, &ret.SaleID, &ret.Reason, &linesRaw, &ret.RefundTotal, &ret.CreatedBy, &ret.CreatedAt); err != nil {
			return nil, err
		}
		ret.CreatedAt = ret.CreatedAt.UTC()
		if len(linesRaw) > 0 {
			if err := json.Unmarshal(linesRaw, &ret.Lines); err != nil {
				return nil, err
			}
		}
		returns = append(returns, ret)
	}
	return returns, rows.Err()
}

func (s *Store) CreatePriceDocument(ctx context.Context, doc domain.PriceDocument) (*domain.PriceDocument, error) {
	if doc.Settings.FirmID == "" || len(doc.Items) == 0 {
		return nil, store.ErrInvalidDocument
	}
	if doc.ID == "" {
		doc.ID = xid.New("pd")
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if doc.Number == "" {
		doc.Number, err = nextDocNumber(ctx, tx, "PD")
		if err != nil {
			return nil, err
		}
	}
	settingsJSON, err := json.Marshal(doc.Settings)
	if err != nil {
		return nil, err
	}
	tradePointsJSON, err := json.Marshal(doc.TradePointIDs)
	if err != nil {
		return nil, err
	}
	itemsJSON, err := json.Marshal(doc.Items)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO price_documents (
			id, number, firm_id, status, settings, trade_point_ids, items, created_by, created_at, posted_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, doc.ID, doc.Number, doc.Settings.FirmID, doc.Status, settingsJSON, tradePointsJSON, itemsJSON, doc.CreatedBy, doc.CreatedAt, nullTime(doc.PostedAt))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := doc
	return &created, nil
}

func (s *Store) GetPriceDocumentByID(ctx context.Context, id string) (*domain.PriceDocument, error) {
	var doc domain.PriceDocument
	var settingsRaw, tradePointsRaw, itemsRaw []byte
	var postedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, number, status, settings, trade_point_ids, items, created_by, created_at, posted_at
		FROM price_documents
		WHERE id = $1
	`, id).Scan(&doc.ID, &doc.Number, &doc.Status, &settingsRaw, &tradePointsRaw, &itemsRaw, &doc.CreatedBy, &doc.CreatedAt, &postedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if err := scanPriceDocument(&doc, settingsRaw, tradePointsRaw, itemsRaw, postedAt); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *Store) ListPriceDocuments(ctx context.Context, firmID string, limit int) ([]domain.PriceDocument, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, number, status, settings, trade_point_ids, items, created_by, created_at, posted_at
		FROM price_documents
		WHERE ($1 = '' OR firm_id = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, firmID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]domain.PriceDocument, 0, limit)
	for rows.Next() {
		var doc domain.PriceDocument
		var settingsRaw, tradePointsRaw, itemsRaw []byte
		var postedAt sql.NullTime
		if err := rows.Scan(&doc.ID, &doc.Number, &doc.Status, &settingsRaw, &tradePointsRaw, &itemsRaw, &doc.CreatedBy, &doc.CreatedAt, &postedAt); err != nil {
			return nil, err
		}
		if err := scanPriceDocument(&doc, settingsRaw, tradePointsRaw, itemsRaw, postedAt); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, firm_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, entry.ID, entry.FirmID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, firmID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, firm_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE ($1 = '' OR firm_id = $1)
			AND ($2::timestamptz IS NULL OR created_at >= $2)
			AND ($3::timestamptz IS NULL OR created_at < $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`, firmID, nullTimeZero(from), nullTimeZero(to), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.FirmID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidDocument
	}
	if user.Role == "" {
		user.Role = "operator"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil && isUniqueViolation(err) {
		return store.ErrInvalidDocument
	}
	return err
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	if username == "" || password == "" {
		return store.ErrInvalidDocument
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $2 WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func nextDocNumber(ctx context.Context, tx *sql.Tx, prefix string) (string, error) {
	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT nextval('doc_number_seq')`).Scan(&seq); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%06d", prefix, seq), nil
}

func scanPriceDocument(doc *domain.PriceDocument, settingsRaw, tradePointsRaw, itemsRaw []byte, postedAt sql.NullTime) error {
	doc.CreatedAt = doc.CreatedAt.UTC()
	if postedAt.Valid {
		posted := postedAt.Time.UTC()
		doc.PostedAt = &posted
	}
	if len(settingsRaw) > 0 {
		if err := json.Unmarshal(settingsRaw, &doc.Settings); err != nil {
			return err
		}
	}
	if len(tradePointsRaw) > 0 {
		if err := json.Unmarshal(tradePointsRaw, &doc.TradePointIDs); err != nil {
			return err
		}
	}
	if len(itemsRaw) > 0 {
		if err := json.Unmarshal(itemsRaw, &doc.Items); err != nil {
			return err
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}

func nullTimeZero(val time.Time) any {
	if val.IsZero() {
		return nil
	}
	return val
}
