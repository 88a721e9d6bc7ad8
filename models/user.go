package models

import "time"

// User is a person pulled from the users source.
// It maps to the `users` table; ExternalID is the upstream identifier.
type User struct {
	ID                 int64     `db:"id" json:"id"`
	ExternalID         int64     `db:"external_id" json:"external_id"`
	Name               string    `db:"name" json:"name"`
	Username           string    `db:"username" json:"username"`
	Email              string    `db:"email" json:"email"`
	Phone              string    `db:"phone" json:"phone"`
	Website            string    `db:"website" json:"website"`
	CompanyName        string    `db:"company_name" json:"company_name"`
	CompanyCatchphrase string    `db:"company_catchphrase" json:"company_catchphrase"`
	CompanyBS          string    `db:"company_bs" json:"company_bs"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// UserSummary is a User row with the number of related rows attached.
type UserSummary struct {
	ID               int64  `db:"id"`
	ExternalID       int64  `db:"external_id"`
	Name             string `db:"name"`
	Username         string `db:"username"`
	Email            string `db:"email"`
	AddressesCount   int64  `db:"addresses_count"`
	CreditCardsCount int64  `db:"credit_cards_count"`
}
