package repository

import (
	"context"
	"strings"
	"time"

	"taxadmin/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TaxpayerFilter is the structured query accepted by List and Summarize.
// Both always run against the same filter so the page and its summary can
// never drift apart.
type TaxpayerFilter struct {
	Search    string
	Revenue   string
	Platform  string
	Status    string // "active" or "expired"; empty means both
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
	StartDate *time.Time
	EndDate   *time.Time // inclusive through 23:59:59.999 of that day
	Year      *int       // ledger year membership
	Now       time.Time  // reference instant for status; zero means time.Now()
}

func (f TaxpayerFilter) now() time.Time {
	if f.Now.IsZero() {
		return time.Now()
	}
	return f.Now
}

// endOfDay pushes the inclusive end date to the last millisecond of its day.
func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999_000_000, t.Location())
}

// GroupStat is one bucket of a grouped distribution.
type GroupStat struct {
	Key         string          `gorm:"column:key" json:"key"`
	Count       int64           `gorm:"column:count" json:"count"`
	TotalAmount decimal.Decimal `gorm:"column:total_amount" json:"total_amount"`
}

// TaxpayerSummary aggregates the filtered set that List paginates over.
type TaxpayerSummary struct {
	TotalTaxpayers       int64           `json:"totalTaxpayers"`
	TotalAmount          decimal.Decimal `json:"totalAmount"`
	AvgAmount            decimal.Decimal `json:"avgAmount"`
	MinAmount            decimal.Decimal `json:"minAmount"`
	MaxAmount            decimal.Decimal `json:"maxAmount"`
	TotalAllIncome       decimal.Decimal `json:"totalAllIncome"`
	TotalAllTax          decimal.Decimal `json:"totalAllTax"`
	AvgIncome            decimal.Decimal `json:"avgIncome"`
	AvgTax               decimal.Decimal `json:"avgTax"`
	RevenueDistribution  []GroupStat     `json:"revenueDistribution"`
	PlatformDistribution []GroupStat     `json:"platformDistribution"`
	StatusDistribution   []GroupStat     `json:"statusDistribution"`
}

// FilterOptions lists the values a caller can filter on.
type FilterOptions struct {
	RevenueTypes []string `json:"revenueTypes"`
	Platforms    []string `json:"platforms"`
	Years        []int    `json:"years"`
}

type TaxpayerRepository interface {
	Create(ctx context.Context, taxpayer *model.Taxpayer) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Taxpayer, error)
	Update(ctx context.Context, taxpayer *model.Taxpayer) error
	ReplaceLedger(ctx context.Context, taxpayerID uuid.UUID, entries []model.IncomeEntry) error
	Delete(ctx context.Context, id uuid.UUID) error
	UniqueFieldTaken(ctx context.Context, field, value string, excludeID uuid.UUID) (bool, error)
	List(ctx context.Context, filter TaxpayerFilter, page, limit int) ([]model.Taxpayer, int64, error)
	Summarize(ctx context.Context, filter TaxpayerFilter) (*TaxpayerSummary, error)
	FilterOptions(ctx context.Context) (*FilterOptions, error)
}

type taxpayerRepository struct {
	db *gorm.DB
}

func NewTaxpayerRepository(db *gorm.DB) TaxpayerRepository {
	return &taxpayerRepository{db: db}
}

// Columns the generator and update path may probe for uniqueness.
var uniqueColumns = map[string]bool{
	"certificate_no": true,
	"reference":      true,
	"id_batch":       true,
}

func (r *taxpayerRepository) Create(ctx context.Context, taxpayer *model.Taxpayer) error {
	return translateError(GetDB(ctx, r.db).Create(taxpayer).Error)
}

func (r *taxpayerRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Taxpayer, error) {
	var taxpayer model.Taxpayer
	err := GetDB(ctx, r.db).Preload("IncomeLedger").First(&taxpayer, "id = ?", id).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &taxpayer, nil
}

func (r *taxpayerRepository) Update(ctx context.Context, taxpayer *model.Taxpayer) error {
	return translateError(GetDB(ctx, r.db).Omit("IncomeLedger").Save(taxpayer).Error)
}

// ReplaceLedger implements full-ledger replacement: delete everything, then
// re-create. There is no partial patch of individual years.
func (r *taxpayerRepository) ReplaceLedger(ctx context.Context, taxpayerID uuid.UUID, entries []model.IncomeEntry) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("taxpayer_id = ?", taxpayerID).Delete(&model.IncomeEntry{}).Error; err != nil {
		return translateError(err)
	}
	if len(entries) == 0 {
		return nil
	}
	for i := range entries {
		entries[i].TaxpayerID = taxpayerID
	}
	return translateError(db.Create(&entries).Error)
}

func (r *taxpayerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Taxpayer{})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *taxpayerRepository) UniqueFieldTaken(ctx context.Context, field, value string, excludeID uuid.UUID) (bool, error) {
	if !uniqueColumns[field] {
		return false, ErrMalformedID
	}
	var count int64
	query := GetDB(ctx, r.db).Model(&model.Taxpayer{}).Where(field+" = ?", value)
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, translateError(err)
	}
	return count > 0, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike neutralizes ILIKE metacharacters so search terms match
// literally; a search for "100%" must not match every record.
func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}

// applyFilter builds the WHERE clause shared by List and Summarize.
func applyFilter(db *gorm.DB, f TaxpayerFilter) *gorm.DB {
	if f.Search != "" {
		pattern := "%" + escapeLike(f.Search) + "%"
		db = db.Where(
			"name ILIKE ? OR tin ILIKE ? OR certificate_no ILIKE ? OR email ILIKE ? OR phone_no ILIKE ? OR reference ILIKE ? OR id_batch ILIKE ? OR source_of_income ILIKE ? OR address ILIKE ?",
			pattern, pattern, pattern, pattern, pattern, pattern, pattern, pattern, pattern)
	}
	if f.Revenue != "" {
		db = db.Where("revenue = ?", f.Revenue)
	}
	if f.Platform != "" {
		db = db.Where("platform = ?", f.Platform)
	}
	switch f.Status {
	case "active":
		db = db.Where("expiry_date >= ?", f.now())
	case "expired":
		db = db.Where("expiry_date < ?", f.now())
	}
	if f.MinAmount != nil {
		db = db.Where("amount >= ?", *f.MinAmount)
	}
	if f.MaxAmount != nil {
		db = db.Where("amount <= ?", *f.MaxAmount)
	}
	if f.StartDate != nil {
		db = db.Where("created_at >= ?", *f.StartDate)
	}
	if f.EndDate != nil {
		db = db.Where("created_at <= ?", endOfDay(*f.EndDate))
	}
	if f.Year != nil {
		db = db.Where("EXISTS (SELECT 1 FROM income_entries WHERE income_entries.taxpayer_id = taxpayers.id AND income_entries.year = ?)", *f.Year)
	}
	return db
}

func (r *taxpayerRepository) List(ctx context.Context, filter TaxpayerFilter, page, limit int) ([]model.Taxpayer, int64, error) {
	db := GetDB(ctx, r.db)

	var total int64
	if err := applyFilter(db.Model(&model.Taxpayer{}), filter).Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	var taxpayers []model.Taxpayer
	offset := (page - 1) * limit
	err := applyFilter(db.Model(&model.Taxpayer{}), filter).
		Preload("IncomeLedger").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&taxpayers).Error
	if err != nil {
		return nil, 0, translateError(err)
	}

	return taxpayers, total, nil
}

func (r *taxpayerRepository) Summarize(ctx context.Context, filter TaxpayerFilter) (*TaxpayerSummary, error) {
	db := GetDB(ctx, r.db)
	summary := &TaxpayerSummary{}

	var amounts struct {
		TotalTaxpayers int64
		TotalAmount    decimal.Decimal
		AvgAmount      decimal.Decimal
		MinAmount      decimal.Decimal
		MaxAmount      decimal.Decimal
	}
	err := applyFilter(db.Model(&model.Taxpayer{}), filter).
		Select("COUNT(*) AS total_taxpayers, COALESCE(SUM(amount), 0) AS total_amount, COALESCE(AVG(amount), 0) AS avg_amount, COALESCE(MIN(amount), 0) AS min_amount, COALESCE(MAX(amount), 0) AS max_amount").
		Scan(&amounts).Error
	if err != nil {
		return nil, translateError(err)
	}
	summary.TotalTaxpayers = amounts.TotalTaxpayers
	summary.TotalAmount = amounts.TotalAmount
	summary.AvgAmount = amounts.AvgAmount
	summary.MinAmount = amounts.MinAmount
	summary.MaxAmount = amounts.MaxAmount

	// Ledger sums are averaged per record: first collapse each filtered
	// record's ledger to its totals, then aggregate across records.
	perRecord := applyFilter(db.Model(&model.Taxpayer{}), filter).
		Select("taxpayers.id, COALESCE(SUM(income_entries.income), 0) AS sum_income, COALESCE(SUM(income_entries.tax_paid), 0) AS sum_tax").
		Joins("LEFT JOIN income_entries ON income_entries.taxpayer_id = taxpayers.id").
		Group("taxpayers.id")

	var ledger struct {
		TotalAllIncome decimal.Decimal
		TotalAllTax    decimal.Decimal
		AvgIncome      decimal.Decimal
		AvgTax         decimal.Decimal
	}
	err = db.Table("(?) AS per_record", perRecord).
		Select("COALESCE(SUM(sum_income), 0) AS total_all_income, COALESCE(SUM(sum_tax), 0) AS total_all_tax, COALESCE(AVG(sum_income), 0) AS avg_income, COALESCE(AVG(sum_tax), 0) AS avg_tax").
		Scan(&ledger).Error
	if err != nil {
		return nil, translateError(err)
	}
	summary.TotalAllIncome = ledger.TotalAllIncome
	summary.TotalAllTax = ledger.TotalAllTax
	summary.AvgIncome = ledger.AvgIncome
	summary.AvgTax = ledger.AvgTax

	groupBy := func(keyExpr string, args ...interface{}) ([]GroupStat, error) {
		var stats []GroupStat
		err := applyFilter(db.Model(&model.Taxpayer{}), filter).
			Select(keyExpr+" AS key, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total_amount", args...).
			Group("1").
			Order("count DESC").
			Scan(&stats).Error
		return stats, translateError(err)
	}

	if summary.RevenueDistribution, err = groupBy("revenue"); err != nil {
		return nil, err
	}
	if summary.PlatformDistribution, err = groupBy("platform"); err != nil {
		return nil, err
	}
	statusCase := "CASE WHEN expiry_date < ? THEN 'expired' ELSE 'active' END"
	if summary.StatusDistribution, err = groupBy(statusCase, filter.now()); err != nil {
		return nil, err
	}

	return summary, nil
}

func (r *taxpayerRepository) FilterOptions(ctx context.Context) (*FilterOptions, error) {
	db := GetDB(ctx, r.db)
	opts := &FilterOptions{}

	if err := db.Model(&model.Taxpayer{}).Distinct("revenue").Order("revenue").Pluck("revenue", &opts.RevenueTypes).Error; err != nil {
		return nil, translateError(err)
	}
	if err := db.Model(&model.Taxpayer{}).Distinct("platform").Order("platform").Pluck("platform", &opts.Platforms).Error; err != nil {
		return nil, translateError(err)
	}

	currentYear := time.Now().Year()
	for y := currentYear; y >= model.MinLedgerYear; y-- {
		opts.Years = append(opts.Years, y)
	}
	return opts, nil
}
