package stock

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"opticare/m/domain"
)

// Ledger is the append-only log of quantity changes. Entries are written in
// the same transaction as the quantity change they record.
type Ledger struct {
	db *sqlx.DB
}

func NewLedger(db *sqlx.DB) *Ledger {
	return &Ledger{db: db}
}

// appendTx writes one ledger entry inside tx.
func appendTx(ctx context.Context, tx *sqlx.Tx, e *domain.LedgerEntry) error {
	if e.Date.IsZero() {
		e.Date = time.Now().UTC()
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO stock_ledger
		(stock_item_id, entry_date, entry_type, quantity, previous_quantity,
		 changed_by, reason, issuance_id, order_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.StockItemID, e.Date, e.Type, e.Quantity, e.PreviousQuantity,
		e.ChangedBy, e.Reason, e.IssuanceID, e.OrderID)
	if err != nil {
		return err
	}
	e.ID, err = res.LastInsertId()
	return err
}

// HistoryFor returns all ledger entries for an item, oldest first.
func (l *Ledger) HistoryFor(ctx context.Context, itemID int64) ([]domain.LedgerEntry, error) {
	entries := []domain.LedgerEntry{}
	err := l.db.SelectContext(ctx, &entries, `SELECT
			id, stock_item_id, entry_date, entry_type, quantity, previous_quantity,
			changed_by, reason, issuance_id, order_id
		FROM stock_ledger
		WHERE stock_item_id = ?
		ORDER BY entry_date ASC, id ASC`, itemID)
	if err != nil {
		return nil, err
	}
	return entries, nil
}
