// Package dto holds the read projections returned by the service layer.
// Timestamps are RFC 3339 strings in UTC.
package dto

import (
	"time"

	"userSupplement/models"
)

type AddressResponse struct {
	ID           int64  `json:"id"`
	StreetNumber string `json:"street_number"`
	StreetName   string `json:"street_name"`
	City         string `json:"city"`
	State        string `json:"state"`
	Country      string `json:"country"`
	PostalCode   string `json:"postal_code"`
	CreatedAt    string `json:"created_at"`
}

type CreditCardResponse struct {
	ID         int64  `json:"id"`
	CardNumber string `json:"card_number"`
	CardType   string `json:"card_type"`
	ExpiryDate string `json:"expiry_date"`
	CreatedAt  string `json:"created_at"`
}

// UserDetail is a user with every address and credit card attached.
type UserDetail struct {
	ID                 int64                `json:"id"`
	ExternalID         int64                `json:"external_id"`
	Name               string               `json:"name"`
	Username           string               `json:"username"`
	Email              string               `json:"email"`
	Phone              string               `json:"phone"`
	Website            string               `json:"website"`
	CompanyName        string               `json:"company_name"`
	CompanyCatchphrase string               `json:"company_catchphrase"`
	CompanyBS          string               `json:"company_bs"`
	CreatedAt          string               `json:"created_at"`
	UpdatedAt          string               `json:"updated_at"`
	Addresses          []AddressResponse    `json:"addresses"`
	CreditCards        []CreditCardResponse `json:"credit_cards"`
}

type UserListItem struct {
	ID               int64  `json:"id"`
	ExternalID       int64  `json:"external_id"`
	Name             string `json:"name"`
	Username         string `json:"username"`
	Email            string `json:"email"`
	AddressesCount   int64  `json:"addresses_count"`
	CreditCardsCount int64  `json:"credit_cards_count"`
}

type CoverageStats struct {
	AddressCoveragePercent    float64 `json:"address_coverage_percent"`
	CreditCardCoveragePercent float64 `json:"credit_card_coverage_percent"`
	FullCoveragePercent       float64 `json:"full_coverage_percent"`
}

type Stats struct {
	TotalUsers           int64         `json:"total_users"`
	TotalAddresses       int64         `json:"total_addresses"`
	TotalCreditCards     int64         `json:"total_credit_cards"`
	UsersWithAddresses   int64         `json:"users_with_addresses"`
	UsersWithCreditCards int64         `json:"users_with_credit_cards"`
	UsersWithBoth        int64         `json:"users_with_both"`
	CoverageStats        CoverageStats `json:"coverage_stats"`
}

type UserStats struct {
	TotalUsers       int64 `json:"total_users"`
	TotalAddresses   int64 `json:"total_addresses"`
	TotalCreditCards int64 `json:"total_credit_cards"`
}

// Timestamp formats t as RFC 3339 in UTC. The zero time yields "".
func Timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func FromAddress(a models.Address) AddressResponse {
	return AddressResponse{
		ID:           a.ID,
		StreetNumber: a.StreetNumber,
		StreetName:   a.StreetName,
		City:         a.City,
		State:        a.State,
		Country:      a.Country,
		PostalCode:   a.PostalCode,
		CreatedAt:    Timestamp(a.CreatedAt),
	}
}

func FromCreditCard(c models.CreditCard) CreditCardResponse {
	return CreditCardResponse{
		ID:         c.ID,
		CardNumber: c.CardNumber,
		CardType:   c.CardType,
		ExpiryDate: c.ExpiryDate,
		CreatedAt:  Timestamp(c.CreatedAt),
	}
}

func FromUserSummary(s models.UserSummary) UserListItem {
	return UserListItem{
		ID:               s.ID,
		ExternalID:       s.ExternalID,
		Name:             s.Name,
		Username:         s.Username,
		Email:            s.Email,
		AddressesCount:   s.AddressesCount,
		CreditCardsCount: s.CreditCardsCount,
	}
}

// NewUserDetail builds the full projection. Nil slices become empty ones.
func NewUserDetail(u *models.User, addrs []models.Address, cards []models.CreditCard) *UserDetail {
	d := &UserDetail{
		ID:                 u.ID,
		ExternalID:         u.ExternalID,
		Name:               u.Name,
		Username:           u.Username,
		Email:              u.Email,
		Phone:              u.Phone,
		Website:            u.Website,
		CompanyName:        u.CompanyName,
		CompanyCatchphrase: u.CompanyCatchphrase,
		CompanyBS:          u.CompanyBS,
		CreatedAt:          Timestamp(u.CreatedAt),
		UpdatedAt:          Timestamp(u.UpdatedAt),
		Addresses:          make([]AddressResponse, 0, len(addrs)),
		CreditCards:        make([]CreditCardResponse, 0, len(cards)),
	}
	for _, a := range addrs {
		d.Addresses = append(d.Addresses, FromAddress(a))
	}
	for _, c := range cards {
		d.CreditCards = append(d.CreditCards, FromCreditCard(c))
	}
	return d
}
