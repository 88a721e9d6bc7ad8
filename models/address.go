package models

import "time"

// Address belongs to exactly one User (user_id is required).
type Address struct {
	ID           int64     `db:"id" json:"id"`
	UserID       int64     `db:"user_id" json:"user_id"`
	StreetNumber string    `db:"street_number" json:"street_number"`
	StreetName   string    `db:"street_name" json:"street_name"`
	City         string    `db:"city" json:"city"`
	State        string    `db:"state" json:"state"`
	Country      string    `db:"country" json:"country"`
	PostalCode   string    `db:"postal_code" json:"postal_code"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
