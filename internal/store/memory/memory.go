package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"pricedesk/backend/internal/domain"
	"pricedesk/backend/internal/store"
	"pricedesk/backend/internal/xid"
)

type Store struct {
	mu               sync.RWMutex
	companies        []domain.Company
	firms            []domain.Firm
	warehouses       []domain.Warehouse
	tradePointsByID  map[string]domain.TradePoint
	priceTypesByID   map[string]domain.PriceType
	contracts        []domain.Contract
	productGroups    []domain.ProductGroup
	productsByID     map[string]domain.Product
	receiptsByID     map[string]domain.GoodsReceipt
	stocks           map[string]map[string]float64
	salesByID        map[string]domain.SalesDocument
	returnsByID      map[string]domain.SalesReturn
	priceDocsByID    map[string]domain.PriceDocument
	auditLogs        []domain.AuditLog
	usersByUsername  map[string]domain.UserAccount
	docSeq           int
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_OPERATOR_PASSWORD
// environment variables. If unset, hardcoded dev defaults are used with a
// warning printed to stdout. These credentials are never used in production
// (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	operatorPwd := envOr("SEED_OPERATOR_PASSWORD", "operator123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_OPERATOR_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_OPERATOR_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"operator", operatorPwd, "operator"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	companies := []domain.Company{
		{ID: "co-1", Name: "Torgova Grupa Dnipro", Code: "TGD"},
	}
	firms := []domain.Firm{
		{ID: "firm-1", CompanyID: "co-1", Name: "TOV Prodtorg", TaxNumber: "3312456789"},
		{ID: "firm-2", CompanyID: "co-1", Name: "FOP Kovalenko", TaxNumber: "2987654321"},
	}
	warehouses := []domain.Warehouse{
		{ID: "wh-1", FirmID: "firm-1", Name: "Central Warehouse", Active: true},
		{ID: "wh-2", FirmID: "firm-1", Name: "Retail Backroom", Active: true},
	}
	tradePoints := []domain.TradePoint{
		{ID: "tp-1", FirmID: "firm-1", Name: "Shop Tsentralnyi", Active: true},
		{ID: "tp-2", FirmID: "firm-1", Name: "Shop Vokzalnyi", Active: true},
		{ID: "tp-3", FirmID: "firm-1", Name: "Kiosk Rynok", Active: true},
	}
	priceTypes := []domain.PriceType{
		{ID: "pt-retail", Name: "Retail", IsRetail: true, DefaultMarkup: 25},
		{ID: "pt-wholesale", Name: "Wholesale", IsWholesale: true, DefaultMarkup: 10},
		{ID: "pt-vip", Name: "VIP Retail", IsRetail: true, DefaultMarkup: 18},
	}
	contracts := []domain.Contract{
		{ID: "ct-1", FirmID: "firm-1", Name: "Supply 2025/03", Counterparty: "TOV Postach", ValidFrom: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	groups := []domain.ProductGroup{
		{ID: "grp-food", Name: "Food"},
		{ID: "grp-dairy", ParentID: "grp-food", Name: "Dairy"},
		{ID: "grp-bakery", ParentID: "grp-food", Name: "Bakery"},
		{ID: "grp-household", Name: "Household"},
	}
	products := []domain.Product{
		{ID: "prod-1", SKU: "MLK-09", Name: "Moloko 2.5% 1L", Unit: "pc", UnitName: "piece", GroupID: "grp-dairy", Price: 42.50, CostPrice: 34.00, MinPrice: 36.00, VATRate: 20, Active: true},
		{ID: "prod-2", SKU: "SYR-04", Name: "Syr Tverdyi kg", Unit: "kg", UnitName: "kilogram", GroupID: "grp-dairy", Price: 385.00, CostPrice: 310.00, MinPrice: 320.00, VATRate: 20, Active: true},
		{ID: "prod-3", SKU: "HLB-01", Name: "Khlib Zhytnii", Unit: "pc", UnitName: "piece", GroupID: "grp-bakery", Price: 28.00, CostPrice: 21.50, MinPrice: 0, VATRate: 20, Active: true},
		{ID: "prod-4", SKU: "BAT-02", Name: "Baton Naryznyi", Unit: "pc", UnitName: "piece", GroupID: "grp-bakery", Price: 24.00, CostPrice: 18.20, MinPrice: 0, VATRate: 20, Active: true},
		{ID: "prod-5", SKU: "MYL-11", Name: "Mylo Hospodarske", Unit: "pc", UnitName: "piece", GroupID: "grp-household", Price: 19.00, CostPrice: 12.80, MinPrice: 14.00, VATRate: 20, Active: true},
		{ID: "prod-6", SKU: "PRL-07", Name: "Poroshok Pralnyi 450g", Unit: "pc", UnitName: "piece", GroupID: "grp-household", Price: 74.00, CostPrice: 58.90, MinPrice: 60.00, VATRate: 20, Active: true},
	}

	tpMap := make(map[string]domain.TradePoint, len(tradePoints))
	for _, tp := range tradePoints {
		tpMap[tp.ID] = tp
	}
	ptMap := make(map[string]domain.PriceType, len(priceTypes))
	for _, pt := range priceTypes {
		ptMap[pt.ID] = pt
	}
	productMap := make(map[string]domain.Product, len(products))
	stocks := map[string]map[string]float64{"wh-1": {}, "wh-2": {}}
	for _, p := range products {
		productMap[p.ID] = p
		stocks["wh-1"][p.ID] = 100
	}

	return &Store{
		companies:       companies,
		firms:           firms,
		warehouses:      warehouses,
		tradePointsByID: tpMap,
		priceTypesByID:  ptMap,
		contracts:       contracts,
		productGroups:   groups,
		productsByID:    productMap,
		receiptsByID:    make(map[string]domain.GoodsReceipt),
		stocks:          stocks,
		salesByID:       make(map[string]domain.SalesDocument),
		returnsByID:     make(map[string]domain.SalesReturn),
		priceDocsByID:   make(map[string]domain.PriceDocument),
		auditLogs:       make([]domain.AuditLog, 0, 128),
		usersByUsername: seedUsers(),
	}
}

func (s *Store) ListCompanies(_ context.Context) ([]domain.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Company, len(s.companies))
	copy(result, s.companies)
	return result, nil
}

func (s *Store) ListFirms(_ context.Context) ([]domain.Firm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Firm, len(s.firms))
	copy(result, s.firms)
	return result, nil
}

func (s *Store) ListWarehouses(_ context.Context, firmID string) ([]domain.Warehouse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Warehouse, 0, len(s.warehouses))
	for _, wh := range s.warehouses {
		if firmID != "" && wh.FirmID != firmID {
			continue
		}
		result = append(result, wh)
	}
	return result, nil
}

func (s *Store) ListTradePoints(_ context.Context, firmID string) ([]domain.TradePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.TradePoint, 0, len(s.tradePointsByID))
	for _, tp := range s.tradePointsByID {
		if firmID != "" && tp.FirmID != firmID {
			continue
		}
		result = append(result, tp)
	}
	slices.SortFunc(result, func(a, b domain.TradePoint) int {
		return cmpString(a.ID, b.ID)
	})
	return result, nil
}

func (s *Store) CreateTradePoint(_ context.Context, tp domain.TradePoint) (*domain.TradePoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tp.Name = strings.TrimSpace(tp.Name)
	if tp.Name == "" || tp.FirmID == "" {
		return nil, store.ErrInvalidDocument
	}
	if tp.ID == "" {
		tp.ID = xid.New("tp")
	}
	tp.Active = true
	s.tradePointsByID[tp.ID] = tp
	created := tp
	return &created, nil
}

func (s *Store) ListPriceTypes(_ context.Context) ([]domain.PriceType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.PriceType, 0, len(s.priceTypesByID))
	for _, pt := range s.priceTypesByID {
		result = append(result, pt)
	}
	slices.SortFunc(result, func(a, b domain.PriceType) int {
		return cmpString(a.ID, b.ID)
	})
	return result, nil
}

func (s *Store) CreatePriceType(_ context.Context, pt domain.PriceType) (*domain.PriceType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pt.Name = strings.TrimSpace(pt.Name)
	if pt.Name == "" {
		return nil, store.ErrInvalidDocument
	}
	if pt.DefaultMarkup < 0 {
		return nil, store.ErrInvalidDocument
	}
	if pt.ID == "" {
		pt.ID = xid.New("pt")
	}
	s.priceTypesByID[pt.ID] = pt
	created := pt
	return &created, nil
}

func (s *Store) ListContracts(_ context.Context, firmID string) ([]domain.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Contract, 0, len(s.contracts))
	for _, ct := range s.contracts {
		if firmID != "" && ct.FirmID != firmID {
			continue
		}
		result = append(result, ct)
	}
	return result, nil
}

func (s *Store) ListProductGroups(_ context.Context) ([]domain.ProductGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.ProductGroup, len(s.productGroups))
	copy(result, s.productGroups)
	return result, nil
}

func (s *Store) ListProducts(_ context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	result := make([]domain.Product, 0, len(s.productsByID))
	for _, p := range s.productsByID {
		if !p.Active {
			continue
		}
		if filter.GroupID != "" && p.GroupID != filter.GroupID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) && !strings.Contains(strings.ToLower(p.SKU), search) {
			continue
		}
		result = append(result, p)
	}

	slices.SortFunc(result, func(a, b domain.Product) int {
		if a.GroupID == b.GroupID {
			return cmpString(a.Name, b.Name)
		}
		return cmpString(a.GroupID, b.GroupID)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.productsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) GetProductsByIDs(_ context.Context, ids []string) (map[string]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.productsByID[id]; ok && p.Active {
			result[id] = p
		}
	}
	return result, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.SKU == "" || product.Name == "" || product.Price < 0 || product.CostPrice < 0 {
		return nil, store.ErrInvalidDocument
	}
	for _, existing := range s.productsByID {
		if existing.SKU == product.SKU {
			return nil, store.ErrInvalidDocument
		}
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	product.Active = true
	s.productsByID[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" || product.Name == "" || product.Price < 0 || product.CostPrice < 0 {
		return nil, store.ErrInvalidDocument
	}
	if _, exists := s.productsByID[product.ID]; !exists {
		return nil, store.ErrNotFound
	}
	s.productsByID[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) CreateGoodsReceipt(_ context.Context, receipt domain.GoodsReceipt) (*domain.GoodsReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if receipt.FirmID == "" || receipt.WarehouseID == "" || len(receipt.Lines) == 0 {
		return nil, store.ErrInvalidDocument
	}
	for _, line := range receipt.Lines {
		if line.Qty <= 0 || line.UnitPrice < 0 {
			return nil, store.ErrInvalidDocument
		}
		if _, exists := s.productsByID[line.ProductID]; !exists {
			return nil, fmt.Errorf("product %s unavailable", line.ProductID)
		}
	}
	if receipt.ID == "" {
		receipt.ID = xid.New("rcpt")
	}
	if receipt.Number == "" {
		s.docSeq++
		receipt.Number = fmt.Sprintf("GR-%06d", s.docSeq)
	}
	if receipt.CreatedAt.IsZero() {
		receipt.CreatedAt = time.Now().UTC()
	}

	s.receiptsByID[receipt.ID] = cloneReceipt(receipt)
	created := cloneReceipt(receipt)
	return &created, nil
}

func (s *Store) GetGoodsReceiptByID(_ context.Context, id string) (*domain.GoodsReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	receipt, exists := s.receiptsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	result := cloneReceipt(receipt)
	return &result, nil
}

func (s *Store) ListGoodsReceipts(_ context.Context, firmID string, limit int) ([]domain.GoodsReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.GoodsReceipt, 0, len(s.receiptsByID))
	for _, receipt := range s.receiptsByID {
		if firmID != "" && receipt.FirmID != firmID {
			continue
		}
		result = append(result, cloneReceipt(receipt))
	}
	slices.SortFunc(result, func(a, b domain.GoodsReceipt) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) GetStockMap(_ context.Context, warehouseID string, productIDs []string) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stockMap := make(map[string]float64, len(productIDs))
	warehouseStock := s.stocks[warehouseID]
	for _, id := range productIDs {
		if warehouseStock == nil {
			stockMap[id] = 0
			continue
		}
		stockMap[id] = warehouseStock[id]
	}
	return stockMap, nil
}

func (s *Store) IncreaseStock(_ context.Context, warehouseID string, productID string, qty float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.productsByID[productID]; !exists {
		return fmt.Errorf("product %s unavailable", productID)
	}
	warehouseStock, ok := s.stocks[warehouseID]
	if !ok {
		warehouseStock = make(map[string]float64)
		s.stocks[warehouseID] = warehouseStock
	}
	next := warehouseStock[productID] + qty
	if next < 0 {
		return store.ErrInsufficientStock
	}
	warehouseStock[productID] = next
	return nil
}

func (s *Store) CreateSalesDocument(_ context.Context, doc domain.SalesDocument) (*domain.SalesDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.FirmID == "" || doc.TradePointID == "" || doc.WarehouseID == "" || len(doc.Lines) == 0 {
		return nil, store.ErrInvalidDocument
	}
	warehouseStock := s.stocks[doc.WarehouseID]
	for _, line := range doc.Lines {
		if line.Qty <= 0 {
			return nil, store.ErrInvalidDocument
		}
		product, exists := s.productsByID[line.ProductID]
		if !exists || !product.Active {
			return nil, fmt.Errorf("product %s unavailable", line.ProductID)
		}
		if warehouseStock == nil || warehouseStock[line.ProductID] < line.Qty {
			return nil, store.ErrInsufficientStock
		}
	}
	for _, line := range doc.Lines {
		warehouseStock[line.ProductID] -= line.Qty
	}

	if doc.ID == "" {
		doc.ID = xid.New("sale")
	}
	if doc.Number == "" {
		s.docSeq++
		doc.Number = fmt.Sprintf("SL-%06d", s.docSeq)
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	s.salesByID[doc.ID] = cloneSale(doc)
	created := cloneSale(doc)
	return &created, nil
}

func (s *Store) GetSalesDocumentByID(_ context.Context, id string) (*domain.SalesDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, exists := s.salesByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	result := cloneSale(doc)
	return &result, nil
}

func (s *Store) ListSalesDocuments(_ context.Context, firmID string, from time.Time, to time.Time, limit int) ([]domain.SalesDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.SalesDocument, 0, len(s.salesByID))
	for _, doc := range s.salesByID {
		if firmID != "" && doc.FirmID != firmID {
			continue
		}
		if !from.IsZero() && doc.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && !doc.CreatedAt.Before(to) {
			continue
		}
		result = append(result, cloneSale(doc))
	}
	slices.SortFunc(result, func(a, b domain.SalesDocument) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) GetReturnedQtyBySale(_ context.Context, saleID string) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]float64)
	for _, ret := range s.returnsByID {
		if ret.SaleID != saleID {
			continue
		}
		for _, line := range ret.Lines {
			result[line.ProductID] += line.Qty
		}
	}
	return result, nil
}

func (s *Store) CreateSalesReturn(_ context.Context, ret domain.SalesReturn) (*domain.SalesReturn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(ret.SaleID) == "" || len(ret.Lines) == 0 {
		return nil, store.ErrInvalidDocument
	}
	if _, exists := s.salesByID[ret.SaleID]; !exists {
		return nil, store.ErrNotFound
	}
	if ret.ID == "" {
		ret.ID = xid.New("ret")
	}
	if ret.Number == "" {
		s.docSeq++
		ret.Number = fmt.Sprintf("RT-%06d", s.docSeq)
	}
	if ret.CreatedAt.IsZero() {
		ret.CreatedAt = time.Now().UTC()
	}

	s.returnsByID[ret.ID] = cloneReturn(ret)
	created := cloneReturn(ret)
	return &created, nil
}

func (s *Store) ListSalesReturns(_ context.Context, saleID string) ([]domain.SalesReturn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.SalesReturn, 0, 8)
	for _, ret := range s.returnsByID {
		if saleID != "" && ret.SaleID != saleID {
			continue
		}
		result = append(result, cloneReturn(ret))
	}
	slices.SortFunc(result, func(a, b domain.SalesReturn) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return result, nil
}

func (s *Store) CreatePriceDocument(_ context.Context, doc domain.PriceDocument) (*domain.PriceDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.Settings.FirmID == "" || len(doc.Items) == 0 {
		return nil, store.ErrInvalidDocument
	}
	if doc.ID == "" {
		doc.ID = xid.New("pd")
	}
	if doc.Number == "" {
		s.docSeq++
		doc.Number = fmt.Sprintf("PD-%06d", s.docSeq)
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	s.priceDocsByID[doc.ID] = clonePriceDocument(doc)
	created := clonePriceDocument(doc)
	return &created, nil
}

func (s *Store) GetPriceDocumentByID(_ context.Context, id string) (*domain.PriceDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, exists := s.priceDocsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	result := clonePriceDocument(doc)
	return &result, nil
}

func (s *Store) ListPriceDocuments(_ context.Context, firmID string, limit int) ([]domain.PriceDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.PriceDocument, 0, len(s.priceDocsByID))
	for _, doc := range s.priceDocsByID {
		if firmID != "" && doc.Settings.FirmID != firmID {
			continue
		}
		result = append(result, clonePriceDocument(doc))
	}
	slices.SortFunc(result, func(a, b domain.PriceDocument) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, firmID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 64)
	for _, entry := range s.auditLogs {
		if firmID != "" && entry.FirmID != firmID {
			continue
		}
		if !from.IsZero() && entry.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && !entry.CreatedAt.Before(to) {
			continue
		}
		result = append(result, entry)
	}

	slices.SortFunc(result, func(a, b domain.AuditLog) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidDocument
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrInvalidDocument
	}
	user.Username = username
	if user.Role == "" {
		user.Role = "operator"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidDocument
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

func cloneReceipt(src domain.GoodsReceipt) domain.GoodsReceipt {
	dup := src
	lines := make([]domain.GoodsReceiptLine, len(src.Lines))
	copy(lines, src.Lines)
	dup.Lines = lines
	return dup
}

func cloneSale(src domain.SalesDocument) domain.SalesDocument {
	dup := src
	lines := make([]domain.SalesLine, len(src.Lines))
	copy(lines, src.Lines)
	dup.Lines = lines
	return dup
}

func cloneReturn(src domain.SalesReturn) domain.SalesReturn {
	dup := src
	lines := make([]domain.SalesReturnLine, len(src.Lines))
	copy(lines, src.Lines)
	dup.Lines = lines
	return dup
}

func clonePriceDocument(src domain.PriceDocument) domain.PriceDocument {
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
