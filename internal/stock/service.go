package stock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"opticare/m/domain"
)

const issuanceColumns = `id, stock_item_id, order_id, quantity, issued_by, status,
	issued_at, returned_at, remarks`

// Service applies validated quantity changes to stock items. Every mutation
// runs as one transaction covering the quantity update, the ledger append
// and the issuance write, so a partial failure leaves no trace.
type Service struct {
	db   *sqlx.DB
	repo *Repository
}

func NewService(db *sqlx.DB, repo *Repository) *Service {
	return &Service{db: db, repo: repo}
}

// Issue deducts qty from a stock item and records an issuance linking the
// deduction to an order and the acting user. orderID may be nil for direct
// issues (e.g. dispensing medicine against a prescription handled
// elsewhere).
func (s *Service) Issue(ctx context.Context, orderID *int64, itemID, qty, issuedBy int64, remarks string) (*domain.Issuance, error) {
	if qty <= 0 {
		return nil, &ValidationError{Message: "quantity must be greater than zero"}
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if orderID != nil {
		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = ?)`, *orderID); err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrNotFound
		}
	}

	prev, _, err := quantityTx(ctx, tx, itemID)
	if err != nil {
		return nil, err
	}
	if prev < qty {
		return nil, &InsufficientStockError{Available: prev, Requested: qty}
	}
	if err := decrementTx(ctx, tx, itemID, qty); err != nil {
		return nil, err
	}

	issuance := &domain.Issuance{
		ID:          uuid.New(),
		StockItemID: itemID,
		OrderID:     orderID,
		Quantity:    qty,
		IssuedBy:    issuedBy,
		Status:      domain.IssuanceIssued,
		IssuedAt:    time.Now().UTC(),
		Remarks:     remarks,
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO issuances
		(id, stock_item_id, order_id, quantity, issued_by, status, issued_at, remarks)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		issuance.ID, issuance.StockItemID, issuance.OrderID, issuance.Quantity,
		issuance.IssuedBy, issuance.Status, issuance.IssuedAt, issuance.Remarks)
	if err != nil {
		return nil, err
	}

	reason := remarks
	if reason == "" && orderID != nil {
		reason = fmt.Sprintf("issued to order %d", *orderID)
	}
	entry := &domain.LedgerEntry{
		StockItemID:      itemID,
		Type:             domain.EntryIssued,
		Quantity:         qty,
		PreviousQuantity: prev,
		ChangedBy:        issuedBy,
		Reason:           reason,
		IssuanceID:       &issuance.ID,
		OrderID:          orderID,
	}
	if err := appendTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return issuance, nil
}

// ReturnIssuance reverses an issuance: the issued quantity goes back on the
// item and the issuance flips to returned. A second return fails with
// AlreadyReturnedError and credits nothing.
func (s *Service) ReturnIssuance(ctx context.Context, issuanceID uuid.UUID, returnedBy int64, remarks string) (*domain.Issuance, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var issuance domain.Issuance
	err = tx.GetContext(ctx, &issuance, `SELECT `+issuanceColumns+` FROM issuances WHERE id = ?`, issuanceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if issuance.Status != domain.IssuanceIssued {
		return nil, &AlreadyReturnedError{IssuanceID: issuanceID.String()}
	}

	returnedAt := time.Now().UTC()
	newRemarks := issuance.Remarks
	if remarks != "" {
		newRemarks = remarks
	}
	// Guarded flip: if a concurrent return got here first, zero rows match
	// and no stock is credited twice.
	res, err := tx.ExecContext(ctx, `UPDATE issuances
		SET status = ?, returned_at = ?, remarks = ?
		WHERE id = ? AND status = ?`,
		domain.IssuanceReturned, returnedAt, newRemarks, issuanceID, domain.IssuanceIssued)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, &AlreadyReturnedError{IssuanceID: issuanceID.String()}
	}

	prev, _, err := quantityTx(ctx, tx, issuance.StockItemID)
	if err != nil {
		return nil, err
	}
	if err := incrementTx(ctx, tx, issuance.StockItemID, issuance.Quantity); err != nil {
		return nil, err
	}

	entry := &domain.LedgerEntry{
		StockItemID:      issuance.StockItemID,
		Type:             domain.EntryReturned,
		Quantity:         issuance.Quantity,
		PreviousQuantity: prev,
		ChangedBy:        returnedBy,
		Reason:           newRemarks,
		IssuanceID:       &issuance.ID,
		OrderID:          issuance.OrderID,
	}
	if err := appendTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	issuance.Status = domain.IssuanceReturned
	issuance.ReturnedAt = &returnedAt
	issuance.Remarks = newRemarks
	return &issuance, nil
}

// Restock adds quantity to an item. There is no upper bound: a restock past
// the original quantity raises the baseline instead of failing.
func (s *Service) Restock(ctx context.Context, itemID, qty, changedBy int64, reason string) (*domain.StockItem, error) {
	if qty <= 0 {
		return nil, &ValidationError{Message: "quantity must be greater than zero"}
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	prev, _, err := quantityTx(ctx, tx, itemID)
	if err != nil {
		return nil, err
	}
	if err := incrementTx(ctx, tx, itemID, qty); err != nil {
		return nil, err
	}

	entry := &domain.LedgerEntry{
		StockItemID:      itemID,
		Type:             domain.EntryRestocked,
		Quantity:         qty,
		PreviousQuantity: prev,
		ChangedBy:        changedBy,
		Reason:           reason,
	}
	if err := appendTx(ctx, tx, entry); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return s.repo.Get(ctx, itemID)
}

// Adjust reconciles an item against a manual count: the quantity is set to
// newQty outright and a single ledger entry records the absolute
// difference, typed issued for shrinkage and restocked for surplus.
func (s *Service) Adjust(ctx context.Context, itemID, newQty, changedBy int64, reason string) (*domain.StockItem, error) {
	if newQty < 0 {
		return nil, &ValidationError{Message: "quantity must not be negative"}
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	prev, _, err := quantityTx(ctx, tx, itemID)
	if err != nil {
		return nil, err
	}
	diff := newQty - prev
	if diff == 0 {
		// Nothing changed, nothing to audit.
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return s.repo.Get(ctx, itemID)
	}

	if err := setQuantityTx(ctx, tx, itemID, newQty); err != nil {
		return nil, err
	}

	entryType := domain.EntryRestocked
	if diff < 0 {
		entryType = domain.EntryIssued
		diff = -diff
	}
	entry := &domain.LedgerEntry{
		StockItemID:      itemID,
		Type:             entryType,
		Quantity:         diff,
		PreviousQuantity: prev,
		ChangedBy:        changedBy,
		Reason:           reason,
	}
	if err := appendTx(ctx, tx, entry); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return s.repo.Get(ctx, itemID)
}

// GetIssuance loads a single issuance.
func (s *Service) GetIssuance(ctx context.Context, issuanceID uuid.UUID) (*domain.Issuance, error) {
	var issuance domain.Issuance
	err := s.db.GetContext(ctx, &issuance, `SELECT `+issuanceColumns+` FROM issuances WHERE id = ?`, issuanceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &issuance, nil
}

// IssuancesForOrder lists the issuances referencing an order, oldest first.
func (s *Service) IssuancesForOrder(ctx context.Context, orderID int64) ([]domain.Issuance, error) {
	issuances := []domain.Issuance{}
	err := s.db.SelectContext(ctx, &issuances, `SELECT `+issuanceColumns+`
		FROM issuances WHERE order_id = ? ORDER BY issued_at ASC, id ASC`, orderID)
	if err != nil {
		return nil, err
	}
	return issuances, nil
}
