package upstream

import (
	"encoding/json"
	"errors"
	"fmt"
)

// UserRecord is one element of the users endpoint. The four identifying
// fields are pointers so that a missing key can be told apart from an empty value.
type UserRecord struct {
	ID       *int64   `json:"id"`
	Name     *string  `json:"name"`
	Username *string  `json:"username"`
	Email    *string  `json:"email"`
	Phone    string   `json:"phone"`
	Website  string   `json:"website"`
	Company  *Company `json:"company"`
}

type Company struct {
	Name        string `json:"name"`
	CatchPhrase string `json:"catchPhrase"`
	BS          string `json:"bs"`
}

// Address is the payload of the address endpoint.
type Address struct {
	StreetNumber string `json:"street_number"`
	StreetName   string `json:"street_name"`
	City         string `json:"city"`
	State        string `json:"state"`
	Country      string `json:"country"`
	PostalCode   string `json:"postal_code"`
}

// CreditCard is the payload of the credit card endpoint.
type CreditCard struct {
	Number     string `json:"credit_card_number"`
	Type       string `json:"credit_card_type"`
	ExpiryDate string `json:"credit_card_expiry_date"`
}

// DecodeUser parses a single users record and checks its required keys.
func DecodeUser(raw json.RawMessage) (*UserRecord, error) {
	var u UserRecord
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	switch {
	case u.ID == nil:
		return nil, errors.New("user record has no id")
	case u.Name == nil:
		return nil, fmt.Errorf("user %d has no name", *u.ID)
	case u.Username == nil:
		return nil, fmt.Errorf("user %d has no username", *u.ID)
	case u.Email == nil:
		return nil, fmt.Errorf("user %d has no email", *u.ID)
	}
	return &u, nil
}

// RecordID extracts the "id" key of a raw record for logging, or -1.
func RecordID(raw json.RawMessage) int64 {
	var probe struct {
		ID *int64 `json:"id"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil || probe.ID == nil {
		return -1
	}
	return *probe.ID
}
