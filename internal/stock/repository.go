package stock

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"opticare/m/domain"
)

// Sort modes for listing stock. FIFO is the default: oldest-created stock
// first so it is preferred for display and picking.
const (
	SortFIFO     = "fifo"
	SortName     = "name"
	SortBatch    = "batch"
	SortQuantity = "quantity"
)

// ListFilter narrows and orders a stock listing.
type ListFilter struct {
	Query    string
	ItemType string
	Sort     string
	Limit    int
}

const stockColumns = `id, product_name, item_type, batch_number, current_quantity,
	original_quantity, unit_price, width_cm, height_cm, expiry_date, created_at, updated_at`

// Repository provides access to stock_items rows.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Get loads a single stock item.
func (r *Repository) Get(ctx context.Context, id int64) (*domain.StockItem, error) {
	var item domain.StockItem
	err := r.db.GetContext(ctx, &item, `SELECT `+stockColumns+` FROM stock_items WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// Insert persists a new stock item and fills in its id. CurrentQuantity
// starts at OriginalQuantity unless set explicitly lower.
func (r *Repository) Insert(ctx context.Context, item *domain.StockItem) error {
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	if item.OriginalQuantity == 0 {
		item.OriginalQuantity = item.CurrentQuantity
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO stock_items
		(product_name, item_type, batch_number, current_quantity, original_quantity,
		 unit_price, width_cm, height_cm, expiry_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ProductName, item.ItemType, item.BatchNumber, item.CurrentQuantity,
		item.OriginalQuantity, item.UnitPrice, item.WidthCM, item.HeightCM,
		item.ExpiryDate, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return err
	}
	item.ID, err = res.LastInsertId()
	return err
}

// Delete removes a stock item. Items with ledger history or issuances are
// protected: the audit trail must not be orphaned.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	var refs int
	err := r.db.GetContext(ctx, &refs, `SELECT
		(SELECT COUNT(*) FROM stock_ledger WHERE stock_item_id = ?) +
		(SELECT COUNT(*) FROM issuances WHERE stock_item_id = ?)`, id, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return ErrHasHistory
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM stock_items WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns stock items matching the filter. FIFO ordering is
// created_at ascending with current_quantity descending as tiebreak.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]domain.StockItem, error) {
	query := `SELECT ` + stockColumns + ` FROM stock_items`
	var (
		clauses []string
		args    []any
	)
	if f.Query != "" {
		clauses = append(clauses, `(product_name LIKE ? OR batch_number LIKE ?)`)
		like := "%" + f.Query + "%"
		args = append(args, like, like)
	}
	if f.ItemType != "" {
		clauses = append(clauses, `item_type = ?`)
		args = append(args, f.ItemType)
	}
	for i, c := range clauses {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}

	switch f.Sort {
	case SortName:
		query += ` ORDER BY product_name ASC, id ASC`
	case SortBatch:
		query += ` ORDER BY batch_number ASC, id ASC`
	case SortQuantity:
		query += ` ORDER BY current_quantity DESC, id ASC`
	default: // SortFIFO
		query += ` ORDER BY created_at ASC, current_quantity DESC, id ASC`
	}

	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	items := []domain.StockItem{}
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, err
	}
	return items, nil
}

// quantityTx reads the current and original quantity of an item inside tx.
func quantityTx(ctx context.Context, tx *sqlx.Tx, id int64) (current, original int64, err error) {
	row := tx.QueryRowxContext(ctx, `SELECT current_quantity, original_quantity FROM stock_items WHERE id = ?`, id)
	if err := row.Scan(&current, &original); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, ErrNotFound
		}
		return 0, 0, err
	}
	return current, original, nil
}

// decrementTx applies a guarded decrement. The WHERE clause re-checks the
// available quantity so two concurrent issues cannot jointly overdraw a
// stale read.
func decrementTx(ctx context.Context, tx *sqlx.Tx, id, qty int64) error {
	res, err := tx.ExecContext(ctx, `UPDATE stock_items
		SET current_quantity = current_quantity - ?, updated_at = ?
		WHERE id = ? AND current_quantity >= ?`,
		qty, time.Now().UTC(), id, qty)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		current, _, err := quantityTx(ctx, tx, id)
		if err != nil {
			return err
		}
		return &InsufficientStockError{Available: current, Requested: qty}
	}
	return nil
}

// incrementTx adds qty back to an item, raising original_quantity when the
// new level exceeds the old baseline so current <= original keeps holding.
func incrementTx(ctx context.Context, tx *sqlx.Tx, id, qty int64) error {
	res, err := tx.ExecContext(ctx, `UPDATE stock_items
		SET current_quantity = current_quantity + ?,
		    original_quantity = MAX(original_quantity, current_quantity + ?),
		    updated_at = ?
		WHERE id = ?`,
		qty, qty, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// setQuantityTx sets the quantity outright, for reconciliation adjusts.
func setQuantityTx(ctx context.Context, tx *sqlx.Tx, id, qty int64) error {
	res, err := tx.ExecContext(ctx, `UPDATE stock_items
		SET current_quantity = ?,
		    original_quantity = MAX(original_quantity, ?),
		    updated_at = ?
		WHERE id = ?`,
		qty, qty, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
