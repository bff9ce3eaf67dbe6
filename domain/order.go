package domain

import "time"

type Order struct {
	ID           int64     `db:"id" json:"id"`
	CustomerName string    `db:"customer_name" json:"customer_name"`
	Status       string    `db:"status" json:"status"`
	CreatedBy    int64     `db:"created_by" json:"created_by"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
