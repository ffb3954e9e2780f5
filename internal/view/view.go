// Package view computes the presentation fields of a taxpayer record.
// Everything here is derived from the stored record and wall-clock time;
// nothing is persisted, every read recomputes.
package view

import (
	"math"
	"sort"
	"time"

	"taxadmin/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerLine is one presented year of a taxpayer's income ledger.
type LedgerLine struct {
	Year             int             `json:"year"`
	Income           decimal.Decimal `json:"income"`
	TaxPaid          decimal.Decimal `json:"tax_paid"`
	IncomeFormatted  string          `json:"income_formatted"`
	TaxPaidFormatted string          `json:"tax_paid_formatted"`
}

// Taxpayer is the caller-facing shape of a record: stored fields plus the
// derived expiry status, ledger totals and formatted currency strings. The
// formatted strings are convenience only; the decimal fields stay
// authoritative.
type Taxpayer struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	TIN            string          `json:"tin"`
	CertificateNo  string          `json:"certificate_no"`
	IssueDate      time.Time       `json:"issue_date"`
	ExpiryDate     time.Time       `json:"expiry_date"`
	PhoneNo        string          `json:"phone_no"`
	Email          string          `json:"email"`
	Reference      string          `json:"reference"`
	Revenue        string          `json:"revenue"`
	Amount         decimal.Decimal `json:"amount"`
	Platform       string          `json:"platform"`
	PaymentDetails string          `json:"payment_details"`
	IDBatch        string          `json:"id_batch"`
	SourceOfIncome string          `json:"source_of_income"`
	Address        string          `json:"address"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	IsExpired       bool `json:"is_expired"`
	IsActive        bool `json:"is_active"`
	DaysUntilExpiry int  `json:"days_until_expiry"`

	TotalIncomeAmount decimal.Decimal `json:"total_income_amount"`
	TotalTaxPaid      decimal.Decimal `json:"total_tax_paid"`
	LatestYear        *int            `json:"latest_year"`
	LatestIncome      decimal.Decimal `json:"latest_income"`
	LatestTaxPaid     decimal.Decimal `json:"latest_tax_paid"`

	AmountFormatted       string `json:"amount_formatted"`
	TotalIncomeFormatted  string `json:"total_income_formatted"`
	TotalTaxPaidFormatted string `json:"total_tax_paid_formatted"`

	// Ledger lines descending by year, the ordering listing views consume.
	// Certificate tabulation uses CertificateRows instead.
	IncomeLedger []LedgerLine `json:"income_ledger"`
}

// Build derives the presentation view of a record at the given instant.
func Build(record *model.Taxpayer, now time.Time) Taxpayer {
	v := Taxpayer{
		ID:             record.ID,
		Name:           record.Name,
		TIN:            record.TIN,
		CertificateNo:  record.CertificateNo,
		IssueDate:      record.IssueDate,
		ExpiryDate:     record.ExpiryDate,
		PhoneNo:        record.PhoneNo,
		Email:          record.Email,
		Reference:      record.Reference,
		Revenue:        record.Revenue,
		Amount:         record.Amount,
		Platform:       record.Platform,
		PaymentDetails: record.PaymentDetails,
		IDBatch:        record.IDBatch,
		SourceOfIncome: record.SourceOfIncome,
		Address:        record.Address,
		CreatedAt:      record.CreatedAt,
		UpdatedAt:      record.UpdatedAt,
	}

	v.IsExpired = now.After(record.ExpiryDate)
	v.IsActive = !v.IsExpired
	v.DaysUntilExpiry = daysUntilExpiry(record.ExpiryDate, now)

	for _, entry := range record.IncomeLedger {
		v.TotalIncomeAmount = v.TotalIncomeAmount.Add(entry.Income)
		v.TotalTaxPaid = v.TotalTaxPaid.Add(entry.TaxPaid)
		if v.LatestYear == nil || entry.Year > *v.LatestYear {
			year := entry.Year
			v.LatestYear = &year
			v.LatestIncome = entry.Income
			v.LatestTaxPaid = entry.TaxPaid
		}
	}

	v.AmountFormatted = FormatNGN(record.Amount)
	v.TotalIncomeFormatted = FormatNGN(v.TotalIncomeAmount)
	v.TotalTaxPaidFormatted = FormatNGN(v.TotalTaxPaid)
	v.IncomeLedger = ledgerLines(record.IncomeLedger, true)

	return v
}

// CertificateRows returns the ledger ascending by year, the ordering the
// certificate template tabulates.
func CertificateRows(record *model.Taxpayer) []LedgerLine {
	return ledgerLines(record.IncomeLedger, false)
}

func ledgerLines(entries []model.IncomeEntry, descending bool) []LedgerLine {
	lines := make([]LedgerLine, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, LedgerLine{
			Year:             entry.Year,
			Income:           entry.Income,
			TaxPaid:          entry.TaxPaid,
			IncomeFormatted:  FormatNGN(entry.Income),
			TaxPaidFormatted: FormatNGN(entry.TaxPaid),
		})
	}
	sort.Slice(lines, func(i, j int) bool {
		if descending {
			return lines[i].Year > lines[j].Year
		}
		return lines[i].Year < lines[j].Year
	})
	return lines
}

// daysUntilExpiry is 0 for expired records, otherwise the number of started
// 24h periods between now and the expiry date.
func daysUntilExpiry(expiry, now time.Time) int {
	if now.After(expiry) {
		return 0
	}
	days := int(math.Ceil(expiry.Sub(now).Hours() / 24))
	if days < 0 {
		return 0
	}
	return days
}
