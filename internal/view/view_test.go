package view

import (
	"testing"
	"time"

	"taxadmin/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() *model.Taxpayer {
	return &model.Taxpayer{
		ID:            uuid.New(),
		Name:          "Adaeze Okonkwo",
		CertificateNo: "TCC-2024-00042",
		IssueDate:     time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		ExpiryDate:    time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		PhoneNo:       "08012345678",
		Email:         "adaeze@example.com",
		Reference:     "123456789012",
		Revenue:       model.DefaultRevenue,
		Amount:        decimal.NewFromInt(5000),
		Platform:      model.DefaultPlatform,
		IDBatch:       "123456789012345678",
		IncomeLedger: []model.IncomeEntry{
			{Year: 2022, Income: decimal.NewFromInt(100000), TaxPaid: decimal.NewFromInt(5000)},
			{Year: 2024, Income: decimal.NewFromInt(180000), TaxPaid: decimal.NewFromInt(9000)},
			{Year: 2023, Income: decimal.NewFromInt(150000), TaxPaid: decimal.NewFromInt(7500)},
		},
	}
}

func TestBuildLedgerTotals(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	v := Build(sampleRecord(), now)

	assert.True(t, v.TotalIncomeAmount.Equal(decimal.NewFromInt(430000)), "total income %s", v.TotalIncomeAmount)
	assert.True(t, v.TotalTaxPaid.Equal(decimal.NewFromInt(21500)), "total tax %s", v.TotalTaxPaid)

	require.NotNil(t, v.LatestYear)
	assert.Equal(t, 2024, *v.LatestYear)
	assert.True(t, v.LatestIncome.Equal(decimal.NewFromInt(180000)))
	assert.True(t, v.LatestTaxPaid.Equal(decimal.NewFromInt(9000)))
}

func TestBuildEmptyLedger(t *testing.T) {
	record := sampleRecord()
	record.IncomeLedger = nil

	v := Build(record, time.Now())

	assert.Nil(t, v.LatestYear)
	assert.True(t, v.TotalIncomeAmount.IsZero())
	assert.True(t, v.TotalTaxPaid.IsZero())
	assert.Empty(t, v.IncomeLedger)
}

func TestBuildExpiryStatus(t *testing.T) {
	record := sampleRecord()

	before := time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC)
	v := Build(record, before)
	assert.False(t, v.IsExpired)
	assert.True(t, v.IsActive)
	assert.Equal(t, 1, v.DaysUntilExpiry)

	after := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	v = Build(record, after)
	assert.True(t, v.IsExpired)
	assert.False(t, v.IsActive)
	assert.Equal(t, 0, v.DaysUntilExpiry)
}

func TestBuildDaysUntilExpiryRoundsUp(t *testing.T) {
	record := sampleRecord()
	record.ExpiryDate = time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	// 12 hours out still counts as one remaining day
	now := time.Date(2024, 12, 30, 12, 0, 0, 0, time.UTC)
	v := Build(record, now)
	assert.Equal(t, 1, v.DaysUntilExpiry)

	now = time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	v = Build(record, now)
	assert.Equal(t, 121, v.DaysUntilExpiry)
}

func TestBuildLedgerDescending(t *testing.T) {
	v := Build(sampleRecord(), time.Now())

	require.Len(t, v.IncomeLedger, 3)
	assert.Equal(t, 2024, v.IncomeLedger[0].Year)
	assert.Equal(t, 2023, v.IncomeLedger[1].Year)
	assert.Equal(t, 2022, v.IncomeLedger[2].Year)
}

func TestCertificateRowsAscending(t *testing.T) {
	rows := CertificateRows(sampleRecord())

	require.Len(t, rows, 3)
	assert.Equal(t, 2022, rows[0].Year)
	assert.Equal(t, 2023, rows[1].Year)
	assert.Equal(t, 2024, rows[2].Year)
}

func TestBuildDoesNotMutateRecord(t *testing.T) {
	record := sampleRecord()
	originalFirst := record.IncomeLedger[0].Year

	Build(record, time.Now())

	assert.Equal(t, originalFirst, record.IncomeLedger[0].Year)
}

func TestFormatNGN(t *testing.T) {
	assert.Equal(t, "₦1,234,567.89", FormatNGN(decimal.NewFromFloat(1234567.89)))
	assert.Equal(t, "₦5,000.00", FormatNGN(decimal.NewFromInt(5000)))
	assert.Equal(t, "₦0.00", FormatNGN(decimal.Zero))
}
