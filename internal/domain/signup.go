package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Public funnel: checkout and signup
// ============================================================

// PersonalData is the first signup step.
type PersonalData struct {
	Name     string `json:"name" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
	CPF      string `json:"cpf" validate:"required,cpf"`
	Phone    string `json:"phone" validate:"required,min=10"`
	Password string `json:"password" validate:"required,min=6"`
}

// CompanyData is the second signup step.
type CompanyData struct {
	CompanyName  string `json:"companyName" validate:"required,min=3"`
	CNPJ         string `json:"cnpj" validate:"required,cnpj"`
	CompanyEmail string `json:"companyEmail" validate:"required,email"`
	CompanyPhone string `json:"companyPhone" validate:"required,min=10"`
	Address      string `json:"address" validate:"required,min=5"`
}

// SignupRequest carries both signup steps and the chosen plan.
type SignupRequest struct {
	Plan     string       `json:"plan"`
	Personal PersonalData `json:"personal"`
	Company  CompanyData  `json:"company"`
}

// SignupResult is returned once the identity is registered.
type SignupResult struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Plan   PlanID `json:"plan"`
}

// CheckoutRequest holds the card form of the simulated checkout.
type CheckoutRequest struct {
	CardNumber string `json:"cardNumber" validate:"required,digits,min=13,max=19"`
	CardName   string `json:"cardName" validate:"required,min=3"`
	Expiry     string `json:"expiry" validate:"required,expiry"`
	CVV        string `json:"cvv" validate:"required,digits,min=3,max=4"`
}

// CheckoutResult is the outcome of a simulated payment.
type CheckoutResult struct {
	TransactionID string          `json:"transactionId"`
	Status        string          `json:"status"`
	Plan          PlanID          `json:"plan"`
	Amount        decimal.Decimal `json:"amount"`
	CardLast4     string          `json:"cardLast4"`
	ProcessedAt   time.Time       `json:"processedAt"`
	NextStep      string          `json:"nextStep"`
}
