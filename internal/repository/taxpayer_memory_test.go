package repository

import (
	"context"
	"testing"
	"time"

	"taxadmin/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type TaxpayerMemorySuite struct {
	suite.Suite
	store *InMemoryTaxpayers
	ctx   context.Context
}

func (s *TaxpayerMemorySuite) SetupTest() {
	s.store = NewInMemoryTaxpayers()
	s.ctx = context.Background()
}

func TestTaxpayerMemorySuite(t *testing.T) {
	suite.Run(t, new(TaxpayerMemorySuite))
}

var seq int

func (s *TaxpayerMemorySuite) newRecord(name string) *model.Taxpayer {
	seq++
	suffix := byte('0' + seq%10)
	return &model.Taxpayer{
		ID:            uuid.New(),
		Name:          name,
		CertificateNo: "TCC-" + uuid.NewString()[:8],
		IssueDate:     time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		ExpiryDate:    time.Date(2030, 12, 31, 0, 0, 0, 0, time.UTC),
		PhoneNo:       "08012345678",
		Email:         "taxpayer@example.com",
		Reference:     "12345678901" + string(suffix),
		Revenue:       model.DefaultRevenue,
		Amount:        decimal.NewFromInt(5000),
		Platform:      model.DefaultPlatform,
		IDBatch:       "12345678901234567" + string(suffix),
		IncomeLedger: []model.IncomeEntry{
			{Year: 2023, Income: decimal.NewFromInt(150000), TaxPaid: decimal.NewFromInt(7500)},
		},
	}
}

func (s *TaxpayerMemorySuite) TestCreateAndFind() {
	s.Run("creates and finds by ID", func() {
		record := s.newRecord("Adaeze Okonkwo")
		s.Require().NoError(s.store.Create(s.ctx, record))

		found, err := s.store.FindByID(s.ctx, record.ID)
		s.Require().NoError(err)
		s.Equal(record.Name, found.Name)
		s.Len(found.IncomeLedger, 1)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.FindByID(s.ctx, uuid.New())
		s.Require().ErrorIs(err, ErrNotFound)
	})

	s.Run("returned record is a copy", func() {
		record := s.newRecord("Copy Check")
		s.Require().NoError(s.store.Create(s.ctx, record))

		found, err := s.store.FindByID(s.ctx, record.ID)
		s.Require().NoError(err)
		found.Name = "Mutated"

		again, err := s.store.FindByID(s.ctx, record.ID)
		s.Require().NoError(err)
		s.Equal("Copy Check", again.Name)
	})
}

func (s *TaxpayerMemorySuite) TestUniqueKeys() {
	fields := map[string]func(*model.Taxpayer, string){
		"certificate_no": func(t *model.Taxpayer, v string) { t.CertificateNo = v },
		"reference":      func(t *model.Taxpayer, v string) { t.Reference = v },
		"id_batch":       func(t *model.Taxpayer, v string) { t.IDBatch = v },
	}

	for field, set := range fields {
		s.Run("rejects duplicate "+field, func() {
			first := s.newRecord("First")
			set(first, "SHARED-"+field)
			s.Require().NoError(s.store.Create(s.ctx, first))

			second := s.newRecord("Second")
			set(second, "SHARED-"+field)

			err := s.store.Create(s.ctx, second)
			var dup *DuplicateKeyError
			s.Require().ErrorAs(err, &dup)
			s.Equal(field, dup.Field)
		})
	}
}

func (s *TaxpayerMemorySuite) TestUniqueFieldTaken() {
	record := s.newRecord("Probe")
	s.Require().NoError(s.store.Create(s.ctx, record))

	taken, err := s.store.UniqueFieldTaken(s.ctx, "certificate_no", record.CertificateNo, uuid.Nil)
	s.Require().NoError(err)
	s.True(taken)

	// The record itself is excluded when re-checking its own value
	taken, err = s.store.UniqueFieldTaken(s.ctx, "certificate_no", record.CertificateNo, record.ID)
	s.Require().NoError(err)
	s.False(taken)

	_, err = s.store.UniqueFieldTaken(s.ctx, "email", record.Email, uuid.Nil)
	s.Require().Error(err, "email is not a unique column")
}

func (s *TaxpayerMemorySuite) TestDelete() {
	record := s.newRecord("To Delete")
	s.Require().NoError(s.store.Create(s.ctx, record))

	s.Require().NoError(s.store.Delete(s.ctx, record.ID))
	_, err := s.store.FindByID(s.ctx, record.ID)
	s.Require().ErrorIs(err, ErrNotFound)

	s.Require().ErrorIs(s.store.Delete(s.ctx, record.ID), ErrNotFound)
}

func (s *TaxpayerMemorySuite) TestReplaceLedger() {
	record := s.newRecord("Ledger Owner")
	s.Require().NoError(s.store.Create(s.ctx, record))

	entries := []model.IncomeEntry{
		{Year: 2022, Income: decimal.NewFromInt(90000), TaxPaid: decimal.NewFromInt(4500)},
		{Year: 2024, Income: decimal.NewFromInt(200000), TaxPaid: decimal.NewFromInt(10000)},
	}
	s.Require().NoError(s.store.ReplaceLedger(s.ctx, record.ID, entries))

	found, err := s.store.FindByID(s.ctx, record.ID)
	s.Require().NoError(err)
	s.Len(found.IncomeLedger, 2)
	for _, entry := range found.IncomeLedger {
		s.Equal(record.ID, entry.TaxpayerID)
	}

	s.Run("rejects duplicate years", func() {
		dupes := []model.IncomeEntry{{Year: 2022}, {Year: 2022}}
		err := s.store.ReplaceLedger(s.ctx, record.ID, dupes)
		var dup *DuplicateKeyError
		s.Require().ErrorAs(err, &dup)
	})

	s.Run("empty replacement clears the ledger", func() {
		s.Require().NoError(s.store.ReplaceLedger(s.ctx, record.ID, nil))
		found, err := s.store.FindByID(s.ctx, record.ID)
		s.Require().NoError(err)
		s.Empty(found.IncomeLedger)
	})
}

func (s *TaxpayerMemorySuite) TestListFilters() {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	active := s.newRecord("Active Trader")
	active.Revenue = "Presumptive Tax"
	active.Amount = decimal.NewFromInt(2000)
	s.Require().NoError(s.store.Create(s.ctx, active))

	expired := s.newRecord("Expired Vendor")
	expired.ExpiryDate = time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC)
	expired.Revenue = "Withholding Tax"
	expired.Amount = decimal.NewFromInt(9000)
	expired.IncomeLedger = []model.IncomeEntry{
		{Year: 2019, Income: decimal.NewFromInt(50000), TaxPaid: decimal.NewFromInt(2500)},
	}
	s.Require().NoError(s.store.Create(s.ctx, expired))

	s.Run("status filter", func() {
		records, total, err := s.store.List(s.ctx, TaxpayerFilter{Status: "expired", Now: now}, 1, 10)
		s.Require().NoError(err)
		s.Equal(int64(1), total)
		s.Equal("Expired Vendor", records[0].Name)
	})

	s.Run("search matches name case-insensitively", func() {
		_, total, err := s.store.List(s.ctx, TaxpayerFilter{Search: "expired vendor", Now: now}, 1, 10)
		s.Require().NoError(err)
		s.Equal(int64(1), total)
	})

	s.Run("amount range", func() {
		min := decimal.NewFromInt(5000)
		_, total, err := s.store.List(s.ctx, TaxpayerFilter{MinAmount: &min, Now: now}, 1, 10)
		s.Require().NoError(err)
		s.Equal(int64(1), total)
	})

	s.Run("ledger year membership", func() {
		year := 2019
		records, total, err := s.store.List(s.ctx, TaxpayerFilter{Year: &year, Now: now}, 1, 10)
		s.Require().NoError(err)
		s.Equal(int64(1), total)
		s.Equal("Expired Vendor", records[0].Name)
	})

	s.Run("revenue filter", func() {
		_, total, err := s.store.List(s.ctx, TaxpayerFilter{Revenue: "Withholding Tax", Now: now}, 1, 10)
		s.Require().NoError(err)
		s.Equal(int64(1), total)
	})
}

func (s *TaxpayerMemorySuite) TestListCreatedAtRange() {
	endDate := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	lastMoment := s.newRecord("Last Moment")
	lastMoment.CreatedAt = time.Date(2026, 3, 15, 23, 59, 59, 999_000_000, time.UTC)
	s.Require().NoError(s.store.Create(s.ctx, lastMoment))

	nextDay := s.newRecord("Next Day")
	nextDay.CreatedAt = time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
	s.Require().NoError(s.store.Create(s.ctx, nextDay))

	s.Run("end date includes the whole day", func() {
		records, total, err := s.store.List(s.ctx, TaxpayerFilter{EndDate: &endDate}, 1, 10)
		s.Require().NoError(err)
		s.Equal(int64(1), total)
		s.Equal("Last Moment", records[0].Name)
	})

	s.Run("start date is inclusive", func() {
		start := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
		records, total, err := s.store.List(s.ctx, TaxpayerFilter{StartDate: &start}, 1, 10)
		s.Require().NoError(err)
		s.Equal(int64(1), total)
		s.Equal("Next Day", records[0].Name)
	})

	s.Run("range brackets both boundaries", func() {
		start := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
		end := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
		_, total, err := s.store.List(s.ctx, TaxpayerFilter{StartDate: &start, EndDate: &end}, 1, 10)
		s.Require().NoError(err)
		s.Equal(int64(2), total)
	})
}

func (s *TaxpayerMemorySuite) TestListAmountBoundsInclusive() {
	for _, amount := range []int64{100, 200, 300} {
		record := s.newRecord("Amount Holder")
		record.Amount = decimal.NewFromInt(amount)
		s.Require().NoError(s.store.Create(s.ctx, record))
	}

	s.Run("min includes its boundary", func() {
		min := decimal.NewFromInt(100)
		_, total, err := s.store.List(s.ctx, TaxpayerFilter{MinAmount: &min}, 1, 10)
		s.Require().NoError(err)
		s.Equal(int64(3), total)
	})

	s.Run("max includes its boundary", func() {
		max := decimal.NewFromInt(300)
		_, total, err := s.store.List(s.ctx, TaxpayerFilter{MaxAmount: &max}, 1, 10)
		s.Require().NoError(err)
		s.Equal(int64(3), total)
	})

	s.Run("equal min and max pins one amount", func() {
		bound := decimal.NewFromInt(200)
		records, total, err := s.store.List(s.ctx, TaxpayerFilter{MinAmount: &bound, MaxAmount: &bound}, 1, 10)
		s.Require().NoError(err)
		s.Equal(int64(1), total)
		s.True(records[0].Amount.Equal(bound))
	})
}

func (s *TaxpayerMemorySuite) TestListSearchTreatsWildcardsLiterally() {
	flagged := s.newRecord("Flagged Vendor")
	flagged.Address = "Suite 100% Broad Street"
	s.Require().NoError(s.store.Create(s.ctx, flagged))

	plain := s.newRecord("Plain Vendor")
	plain.Address = "12 Marina Road"
	s.Require().NoError(s.store.Create(s.ctx, plain))

	records, total, err := s.store.List(s.ctx, TaxpayerFilter{Search: "100%"}, 1, 10)
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Equal("Flagged Vendor", records[0].Name)

	_, total, err = s.store.List(s.ctx, TaxpayerFilter{Search: "100_"}, 1, 10)
	s.Require().NoError(err)
	s.Zero(total)
}

func (s *TaxpayerMemorySuite) TestSummarize() {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	first := s.newRecord("First")
	first.Amount = decimal.NewFromInt(1000)
	first.IncomeLedger = []model.IncomeEntry{
		{Year: 2022, Income: decimal.NewFromInt(100000), TaxPaid: decimal.NewFromInt(5000)},
		{Year: 2023, Income: decimal.NewFromInt(100000), TaxPaid: decimal.NewFromInt(5000)},
	}
	s.Require().NoError(s.store.Create(s.ctx, first))

	second := s.newRecord("Second")
	second.Amount = decimal.NewFromInt(3000)
	second.IncomeLedger = []model.IncomeEntry{
		{Year: 2023, Income: decimal.NewFromInt(200000), TaxPaid: decimal.NewFromInt(10000)},
	}
	s.Require().NoError(s.store.Create(s.ctx, second))

	summary, err := s.store.Summarize(s.ctx, TaxpayerFilter{Now: now})
	s.Require().NoError(err)

	s.Equal(int64(2), summary.TotalTaxpayers)
	s.True(summary.TotalAmount.Equal(decimal.NewFromInt(4000)), "total %s", summary.TotalAmount)
	s.True(summary.AvgAmount.Equal(decimal.NewFromInt(2000)), "avg %s", summary.AvgAmount)
	s.True(summary.MinAmount.Equal(decimal.NewFromInt(1000)))
	s.True(summary.MaxAmount.Equal(decimal.NewFromInt(3000)))

	s.True(summary.TotalAllIncome.Equal(decimal.NewFromInt(400000)), "income %s", summary.TotalAllIncome)
	s.True(summary.TotalAllTax.Equal(decimal.NewFromInt(20000)), "tax %s", summary.TotalAllTax)
	// Averages divide per-record ledger sums by the record count
	s.True(summary.AvgIncome.Equal(decimal.NewFromInt(200000)), "avg income %s", summary.AvgIncome)
	s.True(summary.AvgTax.Equal(decimal.NewFromInt(10000)), "avg tax %s", summary.AvgTax)

	s.NotEmpty(summary.RevenueDistribution)
	s.NotEmpty(summary.PlatformDistribution)
	s.Require().NotEmpty(summary.StatusDistribution)
	s.Equal("active", summary.StatusDistribution[0].Key)
	s.Equal(int64(2), summary.StatusDistribution[0].Count)
}

func (s *TaxpayerMemorySuite) TestSummarizeEmptySet() {
	summary, err := s.store.Summarize(s.ctx, TaxpayerFilter{Search: "no such taxpayer"})
	s.Require().NoError(err)
	s.Zero(summary.TotalTaxpayers)
	s.True(summary.TotalAmount.IsZero())
	s.True(summary.AvgAmount.IsZero())
	s.Empty(summary.RevenueDistribution)
}

func (s *TaxpayerMemorySuite) TestListAndSummaryAgree() {
	for i := 0; i < 5; i++ {
		s.Require().NoError(s.store.Create(s.ctx, s.newRecord("Batch")))
	}

	filter := TaxpayerFilter{Search: "Batch"}
	_, total, err := s.store.List(s.ctx, filter, 1, 2)
	s.Require().NoError(err)
	summary, err := s.store.Summarize(s.ctx, filter)
	s.Require().NoError(err)

	s.Equal(total, summary.TotalTaxpayers)
}

func (s *TaxpayerMemorySuite) TestFilterOptions() {
	record := s.newRecord("Options")
	record.Revenue = "Withholding Tax"
	record.Platform = "QUICKTELLER"
	s.Require().NoError(s.store.Create(s.ctx, record))

	opts, err := s.store.FilterOptions(s.ctx)
	s.Require().NoError(err)
	s.Contains(opts.RevenueTypes, "Withholding Tax")
	s.Contains(opts.Platforms, "QUICKTELLER")

	s.Require().NotEmpty(opts.Years)
	s.Equal(time.Now().Year(), opts.Years[0])
	s.Equal(model.MinLedgerYear, opts.Years[len(opts.Years)-1])
}
