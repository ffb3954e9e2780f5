package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Default values applied when the operator leaves these blank
const (
	DefaultRevenue        = "Presumptive Tax"
	DefaultPlatform       = "REMITA"
	DefaultPaymentDetails = "Presumptive Tax"
)

// MinLedgerYear is the earliest assessment year accepted in an income ledger.
const MinLedgerYear = 2000

// Taxpayer is the authoritative taxpayer/tax-payment record.
// certificate_no, reference and id_batch are globally unique; the database
// unique indexes are the final authority under concurrent creates.
// Derived fields (expiry status, totals, latest year) are never stored here,
// they are recomputed by the view builder on every read.
type Taxpayer struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name           string          `gorm:"type:varchar(200);not null;index" json:"name"`
	TIN            string          `gorm:"type:varchar(50);index" json:"tin"`
	CertificateNo  string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"certificate_no"`
	IssueDate      time.Time       `json:"issue_date"`
	ExpiryDate     time.Time       `gorm:"index" json:"expiry_date"` // always December 31 of the governing year
	PhoneNo        string          `gorm:"type:varchar(20);index" json:"phone_no"`
	Email          string          `gorm:"type:varchar(255);index" json:"email"`
	Reference      string          `gorm:"type:varchar(12);uniqueIndex;not null" json:"reference"` // 12 digits, no leading zero
	Revenue        string          `gorm:"type:varchar(100);not null;default:'Presumptive Tax';index" json:"revenue"`
	Amount         decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Platform       string          `gorm:"type:varchar(100);not null;default:'REMITA';index" json:"platform"`
	PaymentDetails string          `gorm:"type:varchar(255)" json:"payment_details"`
	IDBatch        string          `gorm:"type:varchar(18);uniqueIndex;not null" json:"id_batch"` // 18 digits, no leading zero
	IncomeLedger   []IncomeEntry   `gorm:"foreignKey:TaxpayerID;constraint:OnDelete:CASCADE" json:"income_ledger"`
	SourceOfIncome string          `gorm:"type:varchar(500)" json:"source_of_income"`
	Address        string          `gorm:"type:text" json:"address"`
	CreatedAt      time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// IncomeEntry is one year of a taxpayer's income ledger. A taxpayer can hold
// at most one entry per year (enforced by the composite unique index).
type IncomeEntry struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"-"`
	TaxpayerID uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_taxpayer_year" json:"-"`
	Year       int             `gorm:"not null;uniqueIndex:idx_taxpayer_year;index" json:"year"`
	Income     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"income"`
	TaxPaid    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"tax_paid"`
}

// YearEnd returns December 31 of the year the given date falls in.
func YearEnd(t time.Time) time.Time {
	return time.Date(t.Year(), time.December, 31, 0, 0, 0, 0, t.Location())
}
