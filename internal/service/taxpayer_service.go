package service

import (
	"context"
	"encoding/json"
	"time"

	"taxadmin/internal/cache"
	"taxadmin/internal/metrics"
	"taxadmin/internal/model"
	"taxadmin/internal/repository"
	"taxadmin/internal/view"
	"taxadmin/pkg/numgen"
	"taxadmin/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	referenceLength = 12
	idBatchLength   = 18
)

// --- DTOs ---

type LedgerEntryInput struct {
	Year    int             `json:"year"`
	Income  decimal.Decimal `json:"income"`
	TaxPaid decimal.Decimal `json:"tax_paid"`
}

// TaxpayerInput is the payload accepted by both create and update. Updates
// carry the full desired state: the ledger is replaced wholesale, there is no
// partial patch of individual years.
type TaxpayerInput struct {
	Name           string             `json:"name"`
	TIN            string             `json:"tin"`
	CertificateNo  string             `json:"certificate_no"`
	IssueDate      *time.Time         `json:"issue_date"`
	ExpiryDate     *time.Time         `json:"expiry_date"`
	PhoneNo        string             `json:"phone_no"`
	Email          string             `json:"email"`
	Reference      string             `json:"reference"` // generated when empty
	Revenue        string             `json:"revenue"`
	Amount         decimal.Decimal    `json:"amount"`
	Platform       string             `json:"platform"`
	PaymentDetails string             `json:"payment_details"`
	IDBatch        string             `json:"id_batch"` // generated when empty
	IncomeLedger   []LedgerEntryInput `json:"income_ledger"`
	SourceOfIncome string             `json:"source_of_income"`
	Address        string             `json:"address"`
}

// ListFilters are the structured filters accepted by ListTaxpayers.
type ListFilters struct {
	Revenue   string           `json:"revenue,omitempty"`
	Platform  string           `json:"platform,omitempty"`
	Status    string           `json:"status,omitempty"`
	MinAmount *decimal.Decimal `json:"min_amount,omitempty"`
	MaxAmount *decimal.Decimal `json:"max_amount,omitempty"`
	StartDate *time.Time       `json:"start_date,omitempty"`
	EndDate   *time.Time       `json:"end_date,omitempty"`
	Year      *int             `json:"year,omitempty"`
}

// ListResult bundles one page with the summary of the same filtered set.
type ListResult struct {
	Records    []view.Taxpayer             `json:"records"`
	Pagination pagination.Meta             `json:"pagination"`
	Summary    *repository.TaxpayerSummary `json:"summary"`
	Filters    AppliedFilters              `json:"filters"`
}

type AppliedFilters struct {
	Applied   ListFilters               `json:"applied"`
	Available *repository.FilterOptions `json:"available"`
}

// DeletedSnapshot is the pre-delete state returned to the caller and stored
// in the audit log. It is not re-insertable.
type DeletedSnapshot struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	TIN            string          `json:"tin"`
	CertificateNo  string          `json:"certificate_no"`
	Email          string          `json:"email"`
	PhoneNo        string          `json:"phone_no"`
	Reference      string          `json:"reference"`
	IDBatch        string          `json:"id_batch"`
	TotalTaxPaid   decimal.Decimal `json:"total_tax_paid"`
	YearsOfHistory int             `json:"years_of_history"`
	DeletedAt      time.Time       `json:"deleted_at"`
}

// ChangeNotifier pushes record-change events to connected dashboard clients.
type ChangeNotifier interface {
	NotifyRecordChange(event, id string)
}

// --- Interface ---

type TaxpayerService interface {
	CreateTaxpayer(ctx context.Context, actor *uuid.UUID, input TaxpayerInput) (*view.Taxpayer, error)
	UpdateTaxpayer(ctx context.Context, actor *uuid.UUID, id string, input TaxpayerInput) (*view.Taxpayer, error)
	DeleteTaxpayer(ctx context.Context, actor *uuid.UUID, id string) (*DeletedSnapshot, error)
	GetTaxpayer(ctx context.Context, id string) (*view.Taxpayer, error)
	GetRecord(ctx context.Context, id string) (*model.Taxpayer, error)
	ListTaxpayers(ctx context.Context, search string, filters ListFilters, page, limit int) (*ListResult, error)
}

// --- Implementation ---

type taxpayerService struct {
	repo      repository.TaxpayerRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	viewCache *cache.ViewCache
	metrics   *metrics.Metrics
	notifier  ChangeNotifier
}

func NewTaxpayerService(
	repo repository.TaxpayerRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	viewCache *cache.ViewCache,
	m *metrics.Metrics,
	notifier ChangeNotifier,
) TaxpayerService {
	return &taxpayerService{
		repo:      repo,
		auditRepo: auditRepo,
		txManager: txManager,
		viewCache: viewCache,
		metrics:   m,
		notifier:  notifier,
	}
}

func toIncomeEntries(inputs []LedgerEntryInput) []model.IncomeEntry {
	entries := make([]model.IncomeEntry, 0, len(inputs))
	for _, in := range inputs {
		entries = append(entries, model.IncomeEntry{
			Year:    in.Year,
			Income:  in.Income,
			TaxPaid: in.TaxPaid,
		})
	}
	return entries
}

func (s *taxpayerService) uniqueProbe(field string, excludeID uuid.UUID) func(context.Context, string) (bool, error) {
	return func(ctx context.Context, value string) (bool, error) {
		return s.repo.UniqueFieldTaken(ctx, field, value, excludeID)
	}
}

func (s *taxpayerService) countRetries(attempts int) {
	if s.metrics != nil && attempts > 1 {
		s.metrics.GenerationRetries.Add(float64(attempts - 1))
	}
}

func (s *taxpayerService) notify(event, id string) {
	if s.notifier != nil {
		s.notifier.NotifyRecordChange(event, id)
	}
}

func (s *taxpayerService) audit(ctx context.Context, actor *uuid.UUID, action string, record *model.Taxpayer, details interface{}) error {
	payload, err := json.Marshal(details)
	if err != nil {
		return err
	}
	return s.auditRepo.Log(ctx, &model.AuditLog{
		UserID:     actor,
		Action:     action,
		EntityID:   record.ID.String(),
		EntityName: record.Name,
		Details:    string(payload),
	})
}

func (s *taxpayerService) CreateTaxpayer(ctx context.Context, actor *uuid.UUID, input TaxpayerInput) (*view.Taxpayer, error) {
	now := time.Now()

	normalize(&input, true)
	if errs := validate(&input, false, now); errs.Any() {
		return nil, &ValidationError{Fields: errs}
	}

	// Pre-checks lower the odds of a persist-time collision; the unique
	// indexes remain the final authority under concurrent creates.
	if taken, err := s.repo.UniqueFieldTaken(ctx, "certificate_no", input.CertificateNo, uuid.Nil); err != nil {
		return nil, err
	} else if taken {
		return nil, &repository.DuplicateKeyError{Field: "certificate_no"}
	}

	reference, attempts, err := numgen.Unique(ctx, referenceLength, input.Reference, s.uniqueProbe("reference", uuid.Nil))
	s.countRetries(attempts)
	if err != nil {
		return nil, err
	}
	idBatch, attempts, err := numgen.Unique(ctx, idBatchLength, input.IDBatch, s.uniqueProbe("id_batch", uuid.Nil))
	s.countRetries(attempts)
	if err != nil {
		return nil, err
	}

	issueDate := now
	if input.IssueDate != nil {
		issueDate = *input.IssueDate
	}
	expiryBase := now
	if input.ExpiryDate != nil {
		expiryBase = *input.ExpiryDate
	}

	revenue := input.Revenue
	if revenue == "" {
		revenue = model.DefaultRevenue
	}
	platform := input.Platform
	if platform == "" {
		platform = model.DefaultPlatform
	}
	paymentDetails := input.PaymentDetails
	if paymentDetails == "" {
		paymentDetails = model.DefaultPaymentDetails
	}

	record := &model.Taxpayer{
		Name:           input.Name,
		TIN:            input.TIN,
		CertificateNo:  input.CertificateNo,
		IssueDate:      issueDate,
		ExpiryDate:     model.YearEnd(expiryBase),
		PhoneNo:        input.PhoneNo,
		Email:          input.Email,
		Reference:      reference,
		Revenue:        revenue,
		Amount:         input.Amount,
		Platform:       platform,
		PaymentDetails: paymentDetails,
		IDBatch:        idBatch,
		IncomeLedger:   toIncomeEntries(input.IncomeLedger),
		SourceOfIncome: input.SourceOfIncome,
		Address:        input.Address,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, record); err != nil {
			return err
		}
		return s.audit(txCtx, actor, model.ActionCreateTaxpayer, record, map[string]string{
			"certificate_no": record.CertificateNo,
			"reference":      record.Reference,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordsCreated.Inc()
	}
	s.viewCache.Invalidate(ctx, record.ID.String())
	s.notify("taxpayer.created", record.ID.String())

	result := view.Build(record, now)
	return &result, nil
}

func (s *taxpayerService) UpdateTaxpayer(ctx context.Context, actor *uuid.UUID, id string, input TaxpayerInput) (*view.Taxpayer, error) {
	recordID, err := uuid.Parse(id)
	if err != nil {
		return nil, repository.ErrMalformedID
	}

	now := time.Now()
	normalize(&input, false)
	if errs := validate(&input, true, now); errs.Any() {
		return nil, &ValidationError{Fields: errs}
	}

	record, err := s.repo.FindByID(ctx, recordID)
	if err != nil {
		return nil, err
	}

	// Uniqueness is re-verified only for unique fields that actually change.
	changedUnique := map[string]string{}
	if input.CertificateNo != "" && input.CertificateNo != record.CertificateNo {
		changedUnique["certificate_no"] = input.CertificateNo
	}
	if input.Reference != "" && input.Reference != record.Reference {
		changedUnique["reference"] = input.Reference
	}
	if input.IDBatch != "" && input.IDBatch != record.IDBatch {
		changedUnique["id_batch"] = input.IDBatch
	}
	for field, value := range changedUnique {
		taken, err := s.repo.UniqueFieldTaken(ctx, field, value, recordID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, &repository.DuplicateKeyError{Field: field}
		}
	}

	record.Name = input.Name
	record.TIN = input.TIN
	record.CertificateNo = input.CertificateNo
	record.PhoneNo = input.PhoneNo
	record.Email = input.Email
	record.Amount = input.Amount
	record.SourceOfIncome = input.SourceOfIncome
	record.Address = input.Address
	if input.Revenue != "" {
		record.Revenue = input.Revenue
	}
	if input.Platform != "" {
		record.Platform = input.Platform
	}
	if input.PaymentDetails != "" {
		record.PaymentDetails = input.PaymentDetails
	}
	if input.Reference != "" {
		record.Reference = input.Reference
	}
	if input.IDBatch != "" {
		record.IDBatch = input.IDBatch
	}
	if input.IssueDate != nil {
		record.IssueDate = *input.IssueDate
	}
	if input.ExpiryDate != nil {
		record.ExpiryDate = model.YearEnd(*input.ExpiryDate)
	}

	var replacement []model.IncomeEntry
	if input.IncomeLedger != nil {
		replacement = toIncomeEntries(input.IncomeLedger)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, record); err != nil {
			return err
		}
		if replacement != nil {
			if err := s.repo.ReplaceLedger(txCtx, recordID, replacement); err != nil {
				return err
			}
			record.IncomeLedger = replacement
		}
		return s.audit(txCtx, actor, model.ActionUpdateTaxpayer, record, map[string]interface{}{
			"changed_unique_fields": changedUnique,
			"ledger_replaced":       replacement != nil,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordsUpdated.Inc()
	}
	s.viewCache.Invalidate(ctx, record.ID.String())
	s.notify("taxpayer.updated", record.ID.String())

	result := view.Build(record, now)
	return &result, nil
}

func (s *taxpayerService) DeleteTaxpayer(ctx context.Context, actor *uuid.UUID, id string) (*DeletedSnapshot, error) {
	recordID, err := uuid.Parse(id)
	if err != nil {
		return nil, repository.ErrMalformedID
	}

	record, err := s.repo.FindByID(ctx, recordID)
	if err != nil {
		return nil, err
	}

	totalTaxPaid := decimal.Zero
	for _, entry := range record.IncomeLedger {
		totalTaxPaid = totalTaxPaid.Add(entry.TaxPaid)
	}
	snapshot := &DeletedSnapshot{
		ID:             record.ID.String(),
		Name:           record.Name,
		TIN:            record.TIN,
		CertificateNo:  record.CertificateNo,
		Email:          record.Email,
		PhoneNo:        record.PhoneNo,
		Reference:      record.Reference,
		IDBatch:        record.IDBatch,
		TotalTaxPaid:   totalTaxPaid,
		YearsOfHistory: len(record.IncomeLedger),
		DeletedAt:      time.Now(),
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Delete(txCtx, recordID); err != nil {
			return err
		}
		return s.audit(txCtx, actor, model.ActionDeleteTaxpayer, record, snapshot)
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordsDeleted.Inc()
	}
	s.viewCache.Invalidate(ctx, id)
	s.notify("taxpayer.deleted", id)

	return snapshot, nil
}

func (s *taxpayerService) GetTaxpayer(ctx context.Context, id string) (*view.Taxpayer, error) {
	recordID, err := uuid.Parse(id)
	if err != nil {
		return nil, repository.ErrMalformedID
	}

	if payload, ok := s.viewCache.GetView(ctx, id); ok {
		var cached view.Taxpayer
		if err := json.Unmarshal(payload, &cached); err == nil {
			return &cached, nil
		}
		// Corrupt entry: fall through to the store and overwrite it.
	}

	record, err := s.repo.FindByID(ctx, recordID)
	if err != nil {
		return nil, err
	}

	result := view.Build(record, time.Now())
	if payload, err := json.Marshal(result); err == nil {
		s.viewCache.SetView(ctx, id, payload)
	}
	return &result, nil
}

// GetRecord returns the stored record without derived fields; the
// certificate handler builds its own payload from it.
func (s *taxpayerService) GetRecord(ctx context.Context, id string) (*model.Taxpayer, error) {
	recordID, err := uuid.Parse(id)
	if err != nil {
		return nil, repository.ErrMalformedID
	}
	return s.repo.FindByID(ctx, recordID)
}

func (s *taxpayerService) ListTaxpayers(ctx context.Context, search string, filters ListFilters, page, limit int) (*ListResult, error) {
	start := time.Now()
	filter := repository.TaxpayerFilter{
		Search:    search,
		Revenue:   filters.Revenue,
		Platform:  filters.Platform,
		Status:    filters.Status,
		MinAmount: filters.MinAmount,
		MaxAmount: filters.MaxAmount,
		StartDate: filters.StartDate,
		EndDate:   filters.EndDate,
		Year:      filters.Year,
		Now:       start,
	}

	records, total, err := s.repo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, err
	}
	// Same filter instance for page and summary: a filter change always
	// moves both identically.
	summary, err := s.repo.Summarize(ctx, filter)
	if err != nil {
		return nil, err
	}
	available, err := s.repo.FilterOptions(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]view.Taxpayer, 0, len(records))
	for i := range records {
		views = append(views, view.Build(&records[i], start))
	}

	if s.metrics != nil {
		s.metrics.ListDuration.Observe(time.Since(start).Seconds())
	}

	return &ListResult{
		Records:    views,
		Pagination: pagination.NewMeta(total, page, limit),
		Summary:    summary,
		Filters: AppliedFilters{
			Applied:   filters,
			Available: available,
		},
	}, nil
}
