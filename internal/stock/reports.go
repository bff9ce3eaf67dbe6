package stock

import (
	"context"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"opticare/m/domain"
)

// Reports answers read-only dashboard queries over the stock tables.
type Reports struct {
	db   *sqlx.DB
	repo *Repository
}

func NewReports(db *sqlx.DB, repo *Repository) *Reports {
	return &Reports{db: db, repo: repo}
}

// LowStock lists items strictly below 20% of their original quantity.
// Items with a zero original quantity have no meaningful baseline and are
// never low stock. The comparison is done in integers: current/original <
// 1/5 exactly when current*5 < original.
func (r *Reports) LowStock(ctx context.Context) ([]domain.StockItem, error) {
	items := []domain.StockItem{}
	err := r.db.SelectContext(ctx, &items, `SELECT `+stockColumns+` FROM stock_items
		WHERE original_quantity > 0 AND current_quantity * 5 < original_quantity
		ORDER BY created_at ASC, current_quantity DESC, id ASC`)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// GlassAreaByType sums the remaining glass area per product, in square
// meters. Dimensions are stored in centimeters.
func (r *Reports) GlassAreaByType(ctx context.Context) (map[string]float64, error) {
	items, err := r.repo.List(ctx, ListFilter{ItemType: domain.ItemGlass})
	if err != nil {
		return nil, err
	}
	areas := make(map[string]float64)
	for _, item := range items {
		if item.WidthCM == nil || item.HeightCM == nil {
			continue
		}
		// cm -> m before multiplying.
		areaM2 := (*item.WidthCM / 100) * (*item.HeightCM / 100)
		areas[item.ProductName] += areaM2 * float64(item.CurrentQuantity)
	}
	return areas, nil
}

// Valuation is the total sale value of the remaining stock.
func (r *Reports) Valuation(ctx context.Context) (decimal.Decimal, error) {
	items, err := r.repo.List(ctx, ListFilter{})
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(item.CurrentQuantity)))
	}
	return total, nil
}

// ExpiringWithin lists medicine batches with stock left that expire within
// the given number of days, soonest first.
func (r *Reports) ExpiringWithin(ctx context.Context, days int) ([]domain.StockItem, error) {
	items, err := r.repo.List(ctx, ListFilter{ItemType: domain.ItemMedicine})
	if err != nil {
		return nil, err
	}
	cutoff := time.Now().UTC().AddDate(0, 0, days)
	expiring := []domain.StockItem{}
	for _, item := range items {
		if item.CurrentQuantity == 0 || item.ExpiryDate == nil {
			continue
		}
		if item.ExpiryDate.After(cutoff) {
			continue
		}
		expiring = append(expiring, item)
	}
	sort.Slice(expiring, func(i, j int) bool {
		return expiring[i].ExpiryDate.Before(*expiring[j].ExpiryDate)
	})
	return expiring, nil
}
