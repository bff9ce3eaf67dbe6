package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Expense struct {
	ID          int64           `db:"id" json:"id"`
	Description string          `db:"description" json:"description"`
	Category    string          `db:"category" json:"category"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	SpentBy     int64           `db:"spent_by" json:"spent_by"`
	SpentAt     time.Time       `db:"spent_at" json:"spent_at"`
}
