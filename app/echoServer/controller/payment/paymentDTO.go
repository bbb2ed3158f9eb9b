package payment

// CreateIntentReq represents an intent creation payload
// swagger:model CreateIntentReq
type CreateIntentReq struct {
	Amount        string `json:"amount" validate:"required"`
	Currency      string `json:"currency"`
	RentalID      *int64 `json:"rental_id,omitempty"`
	WalletPortion string `json:"wallet_portion,omitempty"`
	PointsPortion string `json:"points_portion,omitempty"`
}

// CalculateOptionsReq represents an allocation query
// swagger:model CalculateOptionsReq
type CalculateOptionsReq struct {
	Scenario  string `json:"scenario" validate:"required,oneof=AMOUNT PACKAGE RENTAL"`
	Amount    string `json:"amount,omitempty"`
	PackageID int64  `json:"package_id,omitempty"`
	RentalID  int64  `json:"rental_id,omitempty"`
}
