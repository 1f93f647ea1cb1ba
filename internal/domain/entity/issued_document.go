package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// IssuedDocument registro de un DTE firmado (bitácora de emisión).
type IssuedDocument struct {
	GenerationCode string
	TenantID       string
	ControlNumber  string
	DocumentType   string
	TotalPayable   decimal.Decimal
	SignedToken    string
	EmittedAt      time.Time
}
