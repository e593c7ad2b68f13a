package sales

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/billshop/shopai-go/internal/catalog"
)

// Request parameterizes an analysis run.
type Request struct {
	WindowDays         int `json:"window_days" validate:"gte=1,lte=365"`
	HighStockThreshold int `json:"high_stock_threshold" validate:"gt=0"`
	LowStockThreshold  int `json:"low_stock_threshold" validate:"gte=0,ltfield=HighStockThreshold"`
}

// DefaultRequest returns the thresholds used when the caller sends none.
func DefaultRequest() Request {
	return Request{WindowDays: 30, HighStockThreshold: 30, LowStockThreshold: 5}
}

// ProductLine is one product in the report.
type ProductLine struct {
	ID                  int64  `json:"id"`
	Name                string `json:"name"`
	InventoryQty        int    `json:"inventory_qty"`
	RecommendedDiscount int    `json:"recommended_discount"`
	Reason              string `json:"reason"`
}

// Report is the analysis result. DiscountAlerts is always empty until the
// catalog exposes active discounts.
type Report struct {
	SlowMoving     []ProductLine `json:"slow_moving_products"`
	NearOutOfStock []ProductLine `json:"near_out_of_stock_products"`
	DiscountAlerts []string      `json:"discount_control_alerts"`
}

// Inventory is the slice of the catalog the analyzer reads.
type Inventory interface {
	SlowMoving(ctx context.Context, high, low int) ([]catalog.InventoryRow, error)
	NearOutOfStock(ctx context.Context, low int) ([]catalog.InventoryRow, error)
}

// Analyzer builds reports from live inventory.
type Analyzer struct {
	inv      Inventory
	validate *validator.Validate
}

// NewAnalyzer returns an Analyzer reading from inv.
func NewAnalyzer(inv Inventory) *Analyzer {
	return &Analyzer{inv: inv, validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate checks request bounds.
func (a *Analyzer) Validate(req Request) error {
	if err := a.validate.Struct(req); err != nil {
		return fmt.Errorf("sales: invalid request: %w", err)
	}
	return nil
}

// Analyze queries inventory and applies DecideDiscount to every row.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*Report, error) {
	if err := a.Validate(req); err != nil {
		return nil, err
	}

	slow, err := a.inv.SlowMoving(ctx, req.HighStockThreshold, req.LowStockThreshold)
	if err != nil {
		return nil, fmt.Errorf("sales: %w", err)
	}
	near, err := a.inv.NearOutOfStock(ctx, req.LowStockThreshold)
	if err != nil {
		return nil, fmt.Errorf("sales: %w", err)
	}

	return &Report{
		SlowMoving:     lines(slow, req),
		NearOutOfStock: lines(near, req),
		DiscountAlerts: []string{},
	}, nil
}

func lines(rows []catalog.InventoryRow, req Request) []ProductLine {
	out := make([]ProductLine, 0, len(rows))
	for _, r := range rows {
		d := DecideDiscount(r.InventoryQty, req.HighStockThreshold, req.LowStockThreshold)
		out = append(out, ProductLine{
			ID:                  r.ID,
			Name:                r.Name,
			InventoryQty:        r.InventoryQty,
			RecommendedDiscount: d.Percent,
			Reason:              d.Reason,
		})
	}
	return out
}
