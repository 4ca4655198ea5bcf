package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const EntitySale = "sale"

// Sale is an append-only record of prepared stock leaving the kitchen.
// UnitPrice and UnitCost are captured when the sale is recorded.
type Sale struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product"`
	ProductName string          `json:"product_name"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Timestamp   time.Time       `json:"timestamp"`
}

func (s Sale) EntityID() string { return s.ID }
func (s Sale) Clone() Sale      { return s }

func (s Sale) qty() decimal.Decimal { return decimal.NewFromInt(s.Quantity) }

// TotalPrice is the revenue of the sale.
func (s Sale) TotalPrice() decimal.Decimal { return s.qty().Mul(s.UnitPrice) }

// TotalCost is the production cost of the units sold, at the captured unit cost.
func (s Sale) TotalCost() decimal.Decimal { return s.qty().Mul(s.UnitCost) }

// Profit is revenue minus cost for the sale.
func (s Sale) Profit() decimal.Decimal { return s.TotalPrice().Sub(s.TotalCost()) }

func (s Sale) View() SaleView {
	return SaleView{Sale: s, TotalPrice: s.TotalPrice(), Profit: s.Profit()}
}

// SaleView adds the derived totals.
type SaleView struct {
	Sale
	TotalPrice decimal.Decimal `json:"total_price"`
	Profit     decimal.Decimal `json:"profit"`
}

// SaleInput is a request to sell prepared stock. A nil UnitPrice captures the product's
// current price.
type SaleInput struct {
	ProductID string           `json:"product"`
	Quantity  decimal.Decimal  `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

// SaleOutcome reports the result of one checkout line.
type SaleOutcome struct {
	Input SaleInput `json:"input"`
	Sale  *SaleView `json:"sale,omitempty"`
	Err   error     `json:"-"`
	Error string    `json:"error,omitempty"`
	Kind  ErrorKind `json:"kind,omitempty"`
}
