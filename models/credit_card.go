package models

import "time"

// CreditCard belongs to exactly one User (user_id is required).
type CreditCard struct {
	ID         int64     `db:"id" json:"id"`
	UserID     int64     `db:"user_id" json:"user_id"`
	CardNumber string    `db:"card_number" json:"card_number"`
	CardType   string    `db:"card_type" json:"card_type"`
	ExpiryDate string    `db:"expiry_date" json:"expiry_date"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
