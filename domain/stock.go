package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryType classifies a ledger entry by why the quantity changed.
type EntryType string

const (
	EntryIssued    EntryType = "issued"
	EntryRestocked EntryType = "restocked"
	EntryReturned  EntryType = "returned"
	EntryAdjusted  EntryType = "adjusted"
)

// Stock item categories.
const (
	ItemGlass    = "glass"
	ItemMedicine = "medicine"
)

// Issuance statuses. An issuance never transitions out of "returned".
const (
	IssuanceIssued   = "issued"
	IssuanceReturned = "returned"
)

// StockItem is a quantity-tracked inventory unit: a glass sheet batch or a
// medicine batch. OriginalQuantity is the baseline for percentage-remaining
// calculations and is only ever raised, never lowered.
type StockItem struct {
	ID               int64           `db:"id" json:"id"`
	ProductName      string          `db:"product_name" json:"product_name"`
	ItemType         string          `db:"item_type" json:"item_type"`
	BatchNumber      string          `db:"batch_number" json:"batch_number"`
	CurrentQuantity  int64           `db:"current_quantity" json:"current_quantity"`
	OriginalQuantity int64           `db:"original_quantity" json:"original_quantity"`
	UnitPrice        decimal.Decimal `db:"unit_price" json:"unit_price"`
	WidthCM          *float64        `db:"width_cm" json:"width_cm,omitempty"`
	HeightCM         *float64        `db:"height_cm" json:"height_cm,omitempty"`
	ExpiryDate       *time.Time      `db:"expiry_date" json:"expiry_date,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// LedgerEntry is an immutable audit record of one quantity change. Entries
// are owned by their stock item and never outlive it.
type LedgerEntry struct {
	ID               int64      `db:"id" json:"id"`
	StockItemID      int64      `db:"stock_item_id" json:"stock_item_id"`
	Date             time.Time  `db:"entry_date" json:"date"`
	Type             EntryType  `db:"entry_type" json:"type"`
	Quantity         int64      `db:"quantity" json:"quantity"`
	PreviousQuantity int64      `db:"previous_quantity" json:"previous_quantity"`
	ChangedBy        int64      `db:"changed_by" json:"changed_by"`
	Reason           string     `db:"reason" json:"reason"`
	IssuanceID       *uuid.UUID `db:"issuance_id" json:"issuance_id,omitempty"`
	OrderID          *int64     `db:"order_id" json:"order_id,omitempty"`
}

// Issuance links a quantity deduction to an order/recipient and is
// reversible exactly once via return.
type Issuance struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	StockItemID int64      `db:"stock_item_id" json:"stock_item_id"`
	OrderID     *int64     `db:"order_id" json:"order_id,omitempty"`
	Quantity    int64      `db:"quantity" json:"quantity"`
	IssuedBy    int64      `db:"issued_by" json:"issued_by"`
	Status      string     `db:"status" json:"status"`
	IssuedAt    time.Time  `db:"issued_at" json:"issued_at"`
	ReturnedAt  *time.Time `db:"returned_at" json:"returned_at,omitempty"`
	Remarks     string     `db:"remarks" json:"remarks"`
}
