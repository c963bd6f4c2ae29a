package account

// CreateAccountRequest represents the request to create a payment method
type CreateAccountRequest struct {
	Name                 string `json:"name" validate:"required"`
	InitialBalance       int64  `json:"initial_balance"`
	AllowNegativeBalance bool   `json:"allow_negative_balance"`
}
