package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"taxadmin/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InMemoryTaxpayers is a map-backed TaxpayerRepository. It enforces the same
// three unique keys as the Postgres store and mirrors its filter and summary
// semantics, so services and tests can run without a database. Search is a
// literal case-insensitive substring match on both stores; the SQL side
// escapes ILIKE metacharacters to keep that true.
type InMemoryTaxpayers struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*model.Taxpayer
}

func NewInMemoryTaxpayers() *InMemoryTaxpayers {
	return &InMemoryTaxpayers{records: make(map[uuid.UUID]*model.Taxpayer)}
}

func cloneTaxpayer(t *model.Taxpayer) *model.Taxpayer {
	c := *t
	c.IncomeLedger = make([]model.IncomeEntry, len(t.IncomeLedger))
	copy(c.IncomeLedger, t.IncomeLedger)
	return &c
}

func uniqueValue(t *model.Taxpayer, field string) string {
	switch field {
	case "certificate_no":
		return t.CertificateNo
	case "reference":
		return t.Reference
	case "id_batch":
		return t.IDBatch
	}
	return ""
}

// checkUnique must be called with the lock held.
func (s *InMemoryTaxpayers) checkUnique(candidate *model.Taxpayer) error {
	for _, existing := range s.records {
		if existing.ID == candidate.ID {
			continue
		}
		for field := range uniqueColumns {
			if uniqueValue(existing, field) == uniqueValue(candidate, field) {
				return &DuplicateKeyError{Field: field}
			}
		}
	}
	seen := make(map[int]bool, len(candidate.IncomeLedger))
	for _, entry := range candidate.IncomeLedger {
		if seen[entry.Year] {
			return &DuplicateKeyError{Field: "income_ledger.year"}
		}
		seen[entry.Year] = true
	}
	return nil
}

func (s *InMemoryTaxpayers) Create(ctx context.Context, taxpayer *model.Taxpayer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if taxpayer.ID == uuid.Nil {
		taxpayer.ID = uuid.New()
	}
	if err := s.checkUnique(taxpayer); err != nil {
		return err
	}
	now := time.Now()
	if taxpayer.CreatedAt.IsZero() {
		taxpayer.CreatedAt = now
	}
	taxpayer.UpdatedAt = now
	s.records[taxpayer.ID] = cloneTaxpayer(taxpayer)
	return nil
}

func (s *InMemoryTaxpayers) FindByID(ctx context.Context, id uuid.UUID) (*model.Taxpayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	taxpayer, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneTaxpayer(taxpayer), nil
}

func (s *InMemoryTaxpayers) Update(ctx context.Context, taxpayer *model.Taxpayer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[taxpayer.ID]
	if !ok {
		return ErrNotFound
	}
	if err := s.checkUnique(taxpayer); err != nil {
		return err
	}
	updated := cloneTaxpayer(taxpayer)
	updated.IncomeLedger = existing.IncomeLedger // ledger changes go through ReplaceLedger
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now()
	s.records[taxpayer.ID] = updated
	return nil
}

func (s *InMemoryTaxpayers) ReplaceLedger(ctx context.Context, taxpayerID uuid.UUID, entries []model.IncomeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[taxpayerID]
	if !ok {
		return ErrNotFound
	}
	seen := make(map[int]bool, len(entries))
	for _, entry := range entries {
		if seen[entry.Year] {
			return &DuplicateKeyError{Field: "income_ledger.year"}
		}
		seen[entry.Year] = true
	}
	replaced := make([]model.IncomeEntry, len(entries))
	copy(replaced, entries)
	for i := range replaced {
		replaced[i].TaxpayerID = taxpayerID
	}
	existing.IncomeLedger = replaced
	return nil
}

func (s *InMemoryTaxpayers) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return ErrNotFound
	}
	delete(s.records, id)
	return nil
}

func (s *InMemoryTaxpayers) UniqueFieldTaken(ctx context.Context, field, value string, excludeID uuid.UUID) (bool, error) {
	if !uniqueColumns[field] {
		return false, ErrMalformedID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, taxpayer := range s.records {
		if taxpayer.ID == excludeID {
			continue
		}
		if uniqueValue(taxpayer, field) == value {
			return true, nil
		}
	}
	return false, nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func matchesFilter(t *model.Taxpayer, f TaxpayerFilter) bool {
	if f.Search != "" {
		fields := []string{t.Name, t.TIN, t.CertificateNo, t.Email, t.PhoneNo, t.Reference, t.IDBatch, t.SourceOfIncome, t.Address}
		found := false
		for _, field := range fields {
			if containsFold(field, f.Search) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Revenue != "" && t.Revenue != f.Revenue {
		return false
	}
	if f.Platform != "" && t.Platform != f.Platform {
		return false
	}
	switch f.Status {
	case "active":
		if t.ExpiryDate.Before(f.now()) {
			return false
		}
	case "expired":
		if !t.ExpiryDate.Before(f.now()) {
			return false
		}
	}
	if f.MinAmount != nil && t.Amount.LessThan(*f.MinAmount) {
		return false
	}
	if f.MaxAmount != nil && t.Amount.GreaterThan(*f.MaxAmount) {
		return false
	}
	if f.StartDate != nil && t.CreatedAt.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && t.CreatedAt.After(endOfDay(*f.EndDate)) {
		return false
	}
	if f.Year != nil {
		found := false
		for _, entry := range t.IncomeLedger {
			if entry.Year == *f.Year {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// filtered must be called with at least a read lock held.
func (s *InMemoryTaxpayers) filtered(f TaxpayerFilter) []*model.Taxpayer {
	var matched []*model.Taxpayer
	for _, taxpayer := range s.records {
		if matchesFilter(taxpayer, f) {
			matched = append(matched, taxpayer)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return matched
}

func (s *InMemoryTaxpayers) List(ctx context.Context, filter TaxpayerFilter, page, limit int) ([]model.Taxpayer, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.filtered(filter)
	total := int64(len(matched))

	start := (page - 1) * limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}

	pageRecords := make([]model.Taxpayer, 0, end-start)
	for _, taxpayer := range matched[start:end] {
		pageRecords = append(pageRecords, *cloneTaxpayer(taxpayer))
	}
	return pageRecords, total, nil
}

func (s *InMemoryTaxpayers) Summarize(ctx context.Context, filter TaxpayerFilter) (*TaxpayerSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.filtered(filter)
	summary := &TaxpayerSummary{
		TotalTaxpayers:       int64(len(matched)),
		RevenueDistribution:  []GroupStat{},
		PlatformDistribution: []GroupStat{},
		StatusDistribution:   []GroupStat{},
	}

	revenueBuckets := make(map[string]*GroupStat)
	platformBuckets := make(map[string]*GroupStat)
	statusBuckets := make(map[string]*GroupStat)
	bump := (func(buckets map[string]*GroupStat, key string, amount decimal.Decimal) {
		stat, ok := buckets[key]
		if !ok {
			stat = &GroupStat{Key: key}
			buckets[key] = stat
		}
		stat.Count++
		stat.TotalAmount = stat.TotalAmount.Add(amount)
	})

	for i, taxpayer := range matched {
		summary.TotalAmount = summary.TotalAmount.Add(taxpayer.Amount)
		if i == 0 || taxpayer.Amount.LessThan(summary.MinAmount) {
			summary.MinAmount = taxpayer.Amount
		}
		if i == 0 || taxpayer.Amount.GreaterThan(summary.MaxAmount) {
			summary.MaxAmount = taxpayer.Amount
		}

		for _, entry := range taxpayer.IncomeLedger {
			summary.TotalAllIncome = summary.TotalAllIncome.Add(entry.Income)
			summary.TotalAllTax = summary.TotalAllTax.Add(entry.TaxPaid)
		}

		status := "active"
		if taxpayer.ExpiryDate.Before(filter.now()) {
			status = "expired"
		}
		bump(revenueBuckets, taxpayer.Revenue, taxpayer.Amount)
		bump(platformBuckets, taxpayer.Platform, taxpayer.Amount)
		bump(statusBuckets, status, taxpayer.Amount)
	}

	if n := decimal.NewFromInt(summary.TotalTaxpayers); n.IsPositive() {
		summary.AvgAmount = summary.TotalAmount.Div(n)
		summary.AvgIncome = summary.TotalAllIncome.Div(n)
		summary.AvgTax = summary.TotalAllTax.Div(n)
	}

	collect := func(buckets map[string]*GroupStat) []GroupStat {
		stats := make([]GroupStat, 0, len(buckets))
		for _, stat := range buckets {
			stats = append(stats, *stat)
		}
		sort.Slice(stats, func(i, j int) bool {
			if stats[i].Count != stats[j].Count {
				return stats[i].Count > stats[j].Count
			}
			return stats[i].Key < stats[j].Key
		})
		return stats
	}
	summary.RevenueDistribution = collect(revenueBuckets)
	summary.PlatformDistribution = collect(platformBuckets)
	summary.StatusDistribution = collect(statusBuckets)

	return summary, nil
}

func (s *InMemoryTaxpayers) FilterOptions(ctx context.Context) (*FilterOptions, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	revenues := make(map[string]bool)
	platforms := make(map[string]bool)
	for _, taxpayer := range s.records {
		revenues[taxpayer.Revenue] = true
		platforms[taxpayer.Platform] = true
	}

	opts := &FilterOptions{}
	for revenue := range revenues {
		opts.RevenueTypes = append(opts.RevenueTypes, revenue)
	}
	for platform := range platforms {
		opts.Platforms = append(opts.Platforms, platform)
	}
	sort.Strings(opts.RevenueTypes)
	sort.Strings(opts.Platforms)
	for y := time.Now().Year(); y >= model.MinLedgerYear; y-- {
		opts.Years = append(opts.Years, y)
	}
	return opts, nil
}
