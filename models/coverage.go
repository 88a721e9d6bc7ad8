package models

// Coverage holds the raw counts behind the coverage statistics.
type Coverage struct {
	TotalUsers           int64 `db:"total_users"`
	TotalAddresses       int64 `db:"total_addresses"`
	TotalCreditCards     int64 `db:"total_credit_cards"`
	UsersWithAddresses   int64 `db:"users_with_addresses"`
	UsersWithCreditCards int64 `db:"users_with_credit_cards"`
	UsersWithBoth        int64 `db:"users_with_both"`
}
