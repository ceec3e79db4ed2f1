package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"pricedesk/backend/internal/cache"
	"pricedesk/backend/internal/domain"
	"pricedesk/backend/internal/store"
	"pricedesk/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// ErrNegativeMargin is returned by draft submission when entries are priced
// below cost and the caller has not confirmed the save.
var ErrNegativeMargin = errors.New("negative margin requires confirmation")

type Service struct {
	repo          store.Repository
	dict          cache.DictionaryCache
	defaultFirmID string
	dictTTL       time.Duration

	// Price drafts are an editing-session concept and live in memory only.
	// They hit the repository once, at submit.
	draftMu sync.Mutex
	drafts  map[string]*domain.PriceDocument
}

func New(repo store.Repository, dict cache.DictionaryCache, defaultFirmID string, dictTTL time.Duration) *Service {
	if defaultFirmID == "" {
		defaultFirmID = "firm-1"
	}
	if dict == nil {
		dict = cache.NoopDictionaryCache{}
	}
	if dictTTL <= 0 {
		dictTTL = time.Minute
	}

	return &Service{
		repo:          repo,
		dict:          dict,
		defaultFirmID: defaultFirmID,
		dictTTL:       dictTTL,
		drafts:        make(map[string]*domain.PriceDocument),
	}
}

func (s *Service) ListCompanies(ctx context.Context) ([]domain.Company, error) {
	return s.repo.ListCompanies(ctx)
}

func (s *Service) ListFirms(ctx context.Context) ([]domain.Firm, error) {
	return s.repo.ListFirms(ctx)
}

func (s *Service) ListWarehouses(ctx context.Context, firmID string) ([]domain.Warehouse, error) {
	return s.repo.ListWarehouses(ctx, firmID)
}

func (s *Service) ListTradePoints(ctx context.Context, firmID string) ([]domain.TradePoint, error) {
	return s.repo.ListTradePoints(ctx, firmID)
}

func (s *Service) CreateTradePoint(ctx context.Context, tp domain.TradePoint) (domain.TradePoint, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.TradePoint{}, fmt.Errorf("admin role required")
	}

	tp.Name = strings.TrimSpace(tp.Name)
	if tp.FirmID == "" {
		tp.FirmID = s.defaultFirmID
	}
	if tp.Name == "" {
		return domain.TradePoint{}, store.ErrInvalidDocument
	}

	created, err := s.repo.CreateTradePoint(ctx, tp)
	if err != nil {
		return domain.TradePoint{}, err
	}

	s.invalidateDictionaries(ctx, created.FirmID)
	s.logAudit(ctx, created.FirmID, "trade_point_create", "trade_point", created.ID, fmt.Sprintf("name=%s", created.Name))
	return *created, nil
}

func (s *Service) ListPriceTypes(ctx context.Context) ([]domain.PriceType, error) {
	return s.repo.ListPriceTypes(ctx)
}

func (s *Service) CreatePriceType(ctx context.Context, pt domain.PriceType) (domain.PriceType, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.PriceType{}, fmt.Errorf("admin role required")
	}

	pt.Name = strings.TrimSpace(pt.Name)
	if pt.Name == "" || pt.DefaultMarkup < 0 {
		return domain.PriceType{}, store.ErrInvalidDocument
	}

	created, err := s.repo.CreatePriceType(ctx, pt)
	if err != nil {
		return domain.PriceType{}, err
	}

	s.invalidateDictionaries(ctx, s.defaultFirmID)
	s.logAudit(ctx, s.defaultFirmID, "price_type_create", "price_type", created.ID, fmt.Sprintf("name=%s,markup=%.2f", created.Name, created.DefaultMarkup))
	return *created, nil
}

func (s *Service) ListContracts(ctx context.Context, firmID string) ([]domain.Contract, error) {
	return s.repo.ListContracts(ctx, firmID)
}

// LoadFormDictionaries bundles the lookups the price-settings form needs in
// one call, cached per firm.
func (s *Service) LoadFormDictionaries(ctx context.Context, firmID string) (domain.FormDictionaries, error) {
	if firmID == "" {
		firmID = s.defaultFirmID
	}

	key := dictionaryCacheKey(firmID)
	if cached, found, err := s.dict.Get(ctx, key); err == nil && found {
		return *cached, nil
	} else if err != nil {
		log.Printf("[service] WARN: dictionary cache get failed firm=%s: %v", firmID, err)
	}

	firms, err := s.repo.ListFirms(ctx)
	if err != nil {
		return domain.FormDictionaries{}, err
	}
	tradePoints, err := s.repo.ListTradePoints(ctx, firmID)
	if err != nil {
		return domain.FormDictionaries{}, err
	}
	priceTypes, err := s.repo.ListPriceTypes(ctx)
	if err != nil {
		return domain.FormDictionaries{}, err
	}

	dict := domain.FormDictionaries{
		Firms:       firms,
		TradePoints: tradePoints,
		PriceTypes:  priceTypes,
	}
	if err := s.dict.Set(ctx, key, &dict, s.dictTTL); err != nil {
		log.Printf("[service] WARN: dictionary cache set failed firm=%s: %v", firmID, err)
	}
	return dict, nil
}

func (s *Service) invalidateDictionaries(ctx context.Context, firmID string) {
	if err := s.dict.Invalidate(ctx, dictionaryCacheKey(firmID)); err != nil {
		log.Printf("[service] WARN: dictionary cache invalidate failed firm=%s: %v", firmID, err)
	}
}

func dictionaryCacheKey(firmID string) string {
	return "dict:" + firmID
}

func (s *Service) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx, filter)
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Product{}, store.ErrInvalidDocument
	}
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

// ProductGroupTree resolves the flat group list into a parent/child tree.
// Orphaned groups (unknown parent) surface as roots rather than disappearing.
func (s *Service) ProductGroupTree(ctx context.Context) ([]domain.ProductGroupNode, error) {
	groups, err := s.repo.ListProductGroups(ctx)
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(groups))
	for _, g := range groups {
		known[g.ID] = true
	}

	roots := make([]domain.ProductGroupNode, 0, len(groups))
	for _, g := range groups {
		if g.ParentID != "" && known[g.ParentID] {
			continue
		}
		roots = append(roots, buildGroupNode(g, groups))
	}
	return roots, nil
}

func buildGroupNode(group domain.ProductGroup, groups []domain.ProductGroup) domain.ProductGroupNode {
	node := domain.ProductGroupNode{ProductGroup: group}
	for _, g := range groups {
		if g.ParentID != group.ID {
			continue
		}
		node.Children = append(node.Children, buildGroupNode(g, groups))
	}
	return node
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	req.Name = strings.TrimSpace(req.Name)
	if req.SKU == "" || req.Name == "" {
		return domain.Product{}, store.ErrInvalidDocument
	}
	if req.Price < 0 || req.CostPrice < 0 || req.MinPrice < 0 || req.VATRate < 0 {
		return domain.Product{}, store.ErrInvalidDocument
	}

	product := domain.Product{
		SKU:       req.SKU,
		Name:      req.Name,
		Unit:      req.Unit,
		UnitName:  req.UnitName,
		GroupID:   req.GroupID,
		Price:     req.Price,
		CostPrice: req.CostPrice,
		MinPrice:  req.MinPrice,
		VATRate:   req.VATRate,
		Active:    true,
	}
	if product.Unit == "" {
		product.Unit = "pc"
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, s.defaultFirmID, "product_create", "product", created.ID, fmt.Sprintf("sku=%s,price=%.2f", created.SKU, created.Price))
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Product{}, store.ErrInvalidDocument
	}

	existing, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrInvalidDocument
		}
		updated.Name = name
	}
	if req.Unit != nil {
		updated.Unit = *req.Unit
	}
	if req.UnitName != nil {
		updated.UnitName = *req.UnitName
	}
	if req.GroupID != nil {
		updated.GroupID = *req.GroupID
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return domain.Product{}, store.ErrInvalidDocument
		}
		updated.Price = *req.Price
	}
	if req.CostPrice != nil {
		if *req.CostPrice < 0 {
			return domain.Product{}, store.ErrInvalidDocument
		}
		updated.CostPrice = *req.CostPrice
	}
	if req.MinPrice != nil {
		if *req.MinPrice < 0 {
			return domain.Product{}, store.ErrInvalidDocument
		}
		updated.MinPrice = *req.MinPrice
	}
	if req.VATRate != nil {
		if *req.VATRate < 0 {
			return domain.Product{}, store.ErrInvalidDocument
		}
		updated.VATRate = *req.VATRate
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, s.defaultFirmID, "product_update", "product", saved.ID, fmt.Sprintf("sku=%s,active=%t,price=%.2f", saved.SKU, saved.Active, saved.Price))
	return *saved, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, firmID string, date string, limit int) ([]domain.AuditLog, error) {
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
	return s.repo.ListAuditLogs(ctx, firmID, from, to, limit)
}

func (s *Service) logAudit(ctx context.Context, firmID string, action string, entityType string, entityID string, detail string) {
	if firmID == "" {
		firmID = s.defaultFirmID
	}

	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		FirmID:        firmID,
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		log.Printf("[service] WARN: failed to write audit log action=%s: %v", action, err)
	}
}
