package store

import (
	"context"
	"errors"
	"time"

	"pricedesk/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidDocument   = errors.New("invalid document")
)

type Repository interface {
	ListCompanies(ctx context.Context) ([]domain.Company, error)
	ListFirms(ctx context.Context) ([]domain.Firm, error)
	ListWarehouses(ctx context.Context, firmID string) ([]domain.Warehouse, error)
	ListTradePoints(ctx context.Context, firmID string) ([]domain.TradePoint, error)
	CreateTradePoint(ctx context.Context, tp domain.TradePoint) (*domain.TradePoint, error)
	ListPriceTypes(ctx context.Context) ([]domain.PriceType, error)
	CreatePriceType(ctx context.Context, pt domain.PriceType) (*domain.PriceType, error)
	ListContracts(ctx context.Context, firmID string) ([]domain.Contract, error)
	ListProductGroups(ctx context.Context) ([]domain.ProductGroup, error)
	ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	CreateGoodsReceipt(ctx context.Context, receipt domain.GoodsReceipt) (*domain.GoodsReceipt, error)
	GetGoodsReceiptByID(ctx context.Context, id string) (*domain.GoodsReceipt, error)
	ListGoodsReceipts(ctx context.Context, firmID string, limit int) ([]domain.GoodsReceipt, error)
	GetStockMap(ctx context.Context, warehouseID string, productIDs []string) (map[string]float64, error)
	IncreaseStock(ctx context.Context, warehouseID string, productID string, qty float64) error
	CreateSalesDocument(ctx context.Context, doc domain.SalesDocument) (*domain.SalesDocument, error)
	GetSalesDocumentByID(ctx context.Context, id string) (*domain.SalesDocument, error)
	ListSalesDocuments(ctx context.Context, firmID string, from time.Time, to time.Time, limit int) ([]domain.SalesDocument, error)
	GetReturnedQtyBySale(ctx context.Context, saleID string) (map[string]float64, error)
	CreateSalesReturn(ctx context.Context, ret domain.SalesReturn) (*domain.SalesReturn, error)
	ListSalesReturns(ctx context.Context, saleID string) ([]domain.SalesReturn, error)
	CreatePriceDocument(ctx context.Context, doc domain.PriceDocument) (*domain.PriceDocument, error)
	GetPriceDocumentByID(ctx context.Context, id string) (*domain.PriceDocument, error)
	ListPriceDocuments(ctx context.Context, firmID string, limit int) ([]domain.PriceDocument, error)
	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, firmID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
