package service

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"taxadmin/internal/model"

	"github.com/shopspring/decimal"
)

// FieldErrors collects every violation found during validation, keyed by
// field path. Ledger entries use indexed paths, e.g. income_ledger[2].year.
type FieldErrors map[string][]string

func (e FieldErrors) Add(field, message string) {
	e[field] = append(e[field], message)
}

func (e FieldErrors) Any() bool {
	return len(e) > 0
}

// ValidationError carries the full error map across the operation boundary.
// It is returned as a structured result, never thrown past the handler.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e.Fields))
}

var (
	// Nigerian mobile numbers after normalization: 07x/08x/09x with x in 0-1.
	// The prefix set is carried over verbatim from the previous system;
	// widening it needs product sign-off.
	phoneRegex   = regexp.MustCompile(`^0[7-9][01]\d{8}$`)
	emailRegex   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	refRegex     = regexp.MustCompile(`^[1-9]\d{11}$`)
	idBatchRegex = regexp.MustCompile(`^[1-9]\d{17}$`)
)

// NormalizePhone strips whitespace and rewrites +234/234 international
// prefixes to the local 0 form before validation.
func NormalizePhone(phone string) string {
	formatted := strings.Join(strings.Fields(phone), "")
	if formatted == "" {
		return ""
	}
	if strings.HasPrefix(formatted, "+234") && len(formatted) > 4 {
		return "0" + formatted[4:]
	}
	if strings.HasPrefix(formatted, "234") && len(formatted) > 3 {
		return "0" + formatted[3:]
	}
	return formatted
}

// normalize trims and canonicalizes an input in place. On the create path
// ledger entries without a year, or with neither income nor tax, are dropped
// before validation; the update path keeps whatever the caller sent.
func normalize(in *TaxpayerInput, create bool) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.PhoneNo = NormalizePhone(in.PhoneNo)
	in.SourceOfIncome = strings.TrimSpace(in.SourceOfIncome)
	in.Address = strings.TrimSpace(in.Address)
	in.Amount = in.Amount.Round(2)

	if create {
		kept := in.IncomeLedger[:0]
		for _, entry := range in.IncomeLedger {
			if entry.Year <= 0 {
				continue
			}
			if !entry.Income.IsPositive() && !entry.TaxPaid.IsPositive() {
				continue
			}
			kept = append(kept, entry)
		}
		in.IncomeLedger = kept
	}
	for i := range in.IncomeLedger {
		in.IncomeLedger[i].Income = in.IncomeLedger[i].Income.Round(2)
		in.IncomeLedger[i].TaxPaid = in.IncomeLedger[i].TaxPaid.Round(2)
	}
}

type requiredField struct {
	value *string
	path  string
	label string
}

// validate collects every violation rather than stopping at the first.
// requireTIN is true on the update path only: the create path has always
// accepted records without a TIN while updates reject them. The asymmetry is
// deliberate and awaiting product clarification; do not unify it here.
func validate(in *TaxpayerInput, requireTIN bool, now time.Time) FieldErrors {
	errs := FieldErrors{}

	required := []requiredField{
		{&in.Name, "name", "Full Name"},
		{&in.CertificateNo, "certificate_no", "Certificate Number"},
		{&in.PhoneNo, "phone_no", "Phone Number"},
		{&in.Email, "email", "Email"},
		{&in.SourceOfIncome, "source_of_income", "Source of Income"},
		{&in.Address, "address", "Address"},
	}
	if requireTIN {
		required = append(required, requiredField{&in.TIN, "tin", "TIN"})
	}
	for _, f := range required {
		if strings.TrimSpace(*f.value) == "" {
			errs.Add(f.path, f.label+" is required")
		}
	}

	if in.PhoneNo != "" && !phoneRegex.MatchString(in.PhoneNo) {
		errs.Add("phone_no", "Please enter a valid Nigerian phone number starting with 07, 08, or 09")
	}
	if in.Email != "" && !emailRegex.MatchString(in.Email) {
		errs.Add("email", "Please enter a valid email address")
	}
	if !in.Amount.IsPositive() {
		errs.Add("amount", "Amount must be greater than 0")
	}
	if in.Reference != "" && !refRegex.MatchString(in.Reference) {
		errs.Add("reference", "Reference must be 12 digits and not start with 0")
	}
	if in.IDBatch != "" && !idBatchRegex.MatchString(in.IDBatch) {
		errs.Add("id_batch", "ID/Batch must be 18 digits and not start with 0")
	}

	currentYear := now.Year()
	seenYears := make(map[int]bool, len(in.IncomeLedger))
	for i, entry := range in.IncomeLedger {
		if entry.Year < model.MinLedgerYear || entry.Year > currentYear {
			errs.Add(fmt.Sprintf("income_ledger[%d].year", i),
				fmt.Sprintf("Year must be between %d and %d", model.MinLedgerYear, currentYear))
		}
		if seenYears[entry.Year] {
			errs.Add(fmt.Sprintf("income_ledger[%d].year", i),
				fmt.Sprintf("Duplicate ledger year %d", entry.Year))
		}
		seenYears[entry.Year] = true
		if entry.Income.LessThan(decimal.Zero) {
			errs.Add(fmt.Sprintf("income_ledger[%d].income", i), "Income cannot be negative")
		}
		if entry.TaxPaid.LessThan(decimal.Zero) {
			errs.Add(fmt.Sprintf("income_ledger[%d].tax_paid", i), "Tax paid cannot be negative")
		}
	}

	return errs
}
