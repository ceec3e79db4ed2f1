package domain

import "time"

// Rounding rule names accepted in price document settings.
const (
	RoundingKopeck  = "kopeck"
	RoundingHryvnia = "hryvnia"
	RoundingNone    = "none"
)

const (
	PriceDocumentStatusDraft  = "draft"
	PriceDocumentStatusPosted = "posted"
)

const (
	ReceiptStatusDraft  = "draft"
	ReceiptStatusPosted = "posted"
)

type Company struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

type Firm struct {
	ID        string `json:"id"`
	CompanyID string `json:"company_id"`
	Name      string `json:"name"`
	TaxNumber string `json:"tax_number,omitempty"`
}

type Warehouse struct {
	ID     string `json:"id"`
	FirmID string `json:"firm_id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

type TradePoint struct {
	ID     string `json:"id"`
	FirmID string `json:"firm_id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

type PriceType struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	IsRetail      bool    `json:"is_retail"`
	IsWholesale   bool    `json:"is_wholesale"`
	DefaultMarkup float64 `json:"default_markup"`
}

type Contract struct {
	ID           string    `json:"id"`
	FirmID       string    `json:"firm_id"`
	Name         string    `json:"name"`
	Counterparty string    `json:"counterparty"`
	ValidFrom    time.Time `json:"valid_from"`
}

type ProductGroup struct {
	ID       string `json:"id"`
	ParentID string `json:"parent_id,omitempty"`
	Name     string `json:"name"`
}

// ProductGroupNode is a product group with its children resolved, used for
// the catalog tree display.
type ProductGroupNode struct {
	ProductGroup
	Children []ProductGroupNode `json:"children,omitempty"`
}

type Product struct {
	ID        string  `json:"id"`
	SKU       string  `json:"sku"`
	Name      string  `json:"name"`
	Unit      string  `json:"unit"`
	UnitName  string  `json:"unit_name"`
	GroupID   string  `json:"group_id"`
	GroupName string  `json:"group_name,omitempty"`
	Price     float64 `json:"price"`
	CostPrice float64 `json:"cost_price"`
	MinPrice  float64 `json:"min_price"`
	VATRate   float64 `json:"vat_rate"`
	Active    bool    `json:"active"`
}

type ProductCreateRequest struct {
	SKU       string  `json:"sku"`
	Name      string  `json:"name"`
	Unit      string  `json:"unit"`
	UnitName  string  `json:"unit_name"`
	GroupID   string  `json:"group_id"`
	Price     float64 `json:"price"`
	CostPrice float64 `json:"cost_price"`
	MinPrice  float64 `json:"min_price"`
	VATRate   float64 `json:"vat_rate"`
}

type ProductUpdateRequest struct {
	Name      *string  `json:"name,omitempty"`
	Unit      *string  `json:"unit,omitempty"`
	UnitName  *string  `json:"unit_name,omitempty"`
	GroupID   *string  `json:"group_id,omitempty"`
	Price     *float64 `json:"price,omitempty"`
	CostPrice *float64 `json:"cost_price,omitempty"`
	MinPrice  *float64 `json:"min_price,omitempty"`
	VATRate   *float64 `json:"vat_rate,omitempty"`
	Active    *bool    `json:"active,omitempty"`
}

type ProductFilter struct {
	GroupID string
	Search  string
	Limit   int
}

// PriceEntry is one price for one (trade point, price type) pair inside a
// price item. Price is always stored post-rounding.
type PriceEntry struct {
	TradePointID  string     `json:"trade_point_id"`
	PriceTypeID   string     `json:"price_type_id"`
	Price         float64    `json:"price"`
	MarkupPercent float64    `json:"markup_percent"`
	MarginPercent float64    `json:"margin_percent"`
	IsActive      bool       `json:"is_active"`
	EffectiveFrom time.Time  `json:"effective_from"`
	EffectiveTo   *time.Time `json:"effective_to,omitempty"`
}

// PriceItem is one product line under pricing. Entries holds the full
// trade-point x price-type matrix for the line.
type PriceItem struct {
	ID                 string       `json:"id"`
	ProductID          string       `json:"product_id"`
	ProductName        string       `json:"product_name"`
	Unit               string       `json:"unit"`
	UnitName           string       `json:"unit_name"`
	BasePrice          float64      `json:"base_price"`
	CostPrice          float64      `json:"cost_price"`
	VATRate            float64      `json:"vat_rate"`
	VATIncluded        bool         `json:"vat_included"`
	MinPrice           float64      `json:"min_price"`
	MaxDiscountPercent float64      `json:"max_discount_percent"`
	Entries            []PriceEntry `json:"entries"`
}

// PriceSettings are the form-level knobs of a price document.
type PriceSettings struct {
	FirmID               string    `json:"firm_id"`
	Currency             string    `json:"currency"`
	RoundingRule         string    `json:"rounding_rule"`
	AutoApplyMarkup      bool      `json:"auto_apply_markup"`
	DefaultMarkupPercent float64   `json:"default_markup_percent"`
	ValidFrom            time.Time `json:"valid_from"`
}

type PriceDocument struct {
	ID            string        `json:"id"`
	Number        string        `json:"number"`
	Status        string        `json:"status"`
	Settings      PriceSettings `json:"settings"`
	TradePointIDs []string      `json:"trade_point_ids"`
	Items         []PriceItem   `json:"items"`
	CreatedBy     string        `json:"created_by"`
	CreatedAt     time.Time     `json:"created_at"`
	PostedAt      *time.Time    `json:"posted_at,omitempty"`
}

type PriceDraftCreateRequest struct {
	FirmID               string   `json:"firm_id"`
	Currency             string   `json:"currency"`
	RoundingRule         string   `json:"rounding_rule"`
	AutoApplyMarkup      bool     `json:"auto_apply_markup"`
	DefaultMarkupPercent float64  `json:"default_markup_percent"`
	ValidFrom            string   `json:"valid_from"`
	TradePointIDs        []string `json:"trade_point_ids"`
}

type DraftItemsAddRequest struct {
	ProductIDs []string `json:"product_ids"`
	ReceiptID  string   `json:"receipt_id,omitempty"`
}

type DraftTradePointsRequest struct {
	TradePointIDs []string `json:"trade_point_ids"`
}

type DraftEntryUpdateRequest struct {
	ItemID       string  `json:"item_id"`
	TradePointID string  `json:"trade_point_id"`
	PriceTypeID  string  `json:"price_type_id"`
	Field        string  `json:"field"`
	Value        float64 `json:"value"`
}

type DraftBulkMarkupRequest struct {
	MarkupPercent float64 `json:"markup_percent"`
}

type DraftSubmitRequest struct {
	ConfirmNegativeMargin bool `json:"confirm_negative_margin"`
}

// DraftResponse wraps a draft along with any advisory warnings produced by
// the last operation. Warnings never block the operation.
type DraftResponse struct {
	Draft    PriceDocument `json:"draft"`
	Warnings []string      `json:"warnings,omitempty"`
}

type GoodsReceiptLine struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name,omitempty"`
	Qty         float64 `json:"qty"`
	UnitPrice   float64 `json:"unit_price"`
	Amount      float64 `json:"amount"`
}

type GoodsReceipt struct {
	ID          string             `json:"id"`
	Number      string             `json:"number"`
	FirmID      string             `json:"firm_id"`
	WarehouseID string             `json:"warehouse_id"`
	SupplierID  string             `json:"supplier_id,omitempty"`
	Status      string             `json:"status"`
	Lines       []GoodsReceiptLine `json:"lines"`
	TotalAmount float64            `json:"total_amount"`
	CreatedBy   string             `json:"created_by"`
	CreatedAt   time.Time          `json:"created_at"`
}

type GoodsReceiptCreateRequest struct {
	FirmID      string             `json:"firm_id"`
	WarehouseID string             `json:"warehouse_id"`
	SupplierID  string             `json:"supplier_id,omitempty"`
	Lines       []GoodsReceiptLine `json:"lines"`
}

type SalesLine struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name,omitempty"`
	Qty         float64 `json:"qty"`
	UnitPrice   float64 `json:"unit_price"`
	VATRate     float64 `json:"vat_rate"`
	VATAmount   float64 `json:"vat_amount"`
	Amount      float64 `json:"amount"`
}

type SalesDocument struct {
	ID           string      `json:"id"`
	Number       string      `json:"number"`
	FirmID       string      `json:"firm_id"`
	TradePointID string      `json:"trade_point_id"`
	WarehouseID  string      `json:"warehouse_id"`
	ContractID   string      `json:"contract_id,omitempty"`
	Lines        []SalesLine `json:"lines"`
	Subtotal     float64     `json:"subtotal"`
	VATTotal     float64     `json:"vat_total"`
	Total        float64     `json:"total"`
	Status       string      `json:"status"`
	CreatedBy    string      `json:"created_by"`
	CreatedAt    time.Time   `json:"created_at"`
}

type SalesCreateRequest struct {
	FirmID       string      `json:"firm_id"`
	TradePointID string      `json:"trade_point_id"`
	WarehouseID  string      `json:"warehouse_id"`
	ContractID   string      `json:"contract_id,omitempty"`
	Lines        []SalesLine `json:"lines"`
}

type SalesReturnLine struct {
	ProductID string  `json:"product_id"`
	Qty       float64 `json:"qty"`
	UnitPrice float64 `json:"unit_price"`
	Amount    float64 `json:"amount"`
}

type SalesReturn struct {
	ID          string            `json:"id"`
	Number      string            `json:"number"`
	SaleID      string            `json:"sale_id"`
	Reason      string            `json:"reason"`
	Lines       []SalesReturnLine `json:"lines"`
	RefundTotal float64           `json:"refund_total"`
	CreatedBy   string            `json:"created_by"`
	CreatedAt   time.Time         `json:"created_at"`
}

type SalesReturnCreateRequest struct {
	SaleID string            `json:"sale_id"`
	Reason string            `json:"reason"`
	Lines  []SalesReturnLine `json:"lines"`
}

// FormDictionaries bundles the lookup lists the price-settings form loads in
// one round trip.
type FormDictionaries struct {
	Firms       []Firm       `json:"firms"`
	TradePoints []TradePoint `json:"trade_points"`
	PriceTypes  []PriceType  `json:"price_types"`
}

type AuditLog struct {
	ID            string    `json:"id"`
	FirmID        string    `json:"firm_id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type OperatorCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type OperatorUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}
