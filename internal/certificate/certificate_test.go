package certificate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taxadmin/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord() *model.Taxpayer {
	return &model.Taxpayer{
		ID:            uuid.New(),
		Name:          "Adaeze Okonkwo",
		CertificateNo: "TCC-2024-00042",
		IssueDate:     time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		ExpiryDate:    time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		Reference:     "123456789012",
		Amount:        decimal.NewFromInt(5000),
		IncomeLedger: []model.IncomeEntry{
			{Year: 2023, Income: decimal.NewFromInt(150000), TaxPaid: decimal.NewFromInt(7500)},
			{Year: 2022, Income: decimal.NewFromInt(100000), TaxPaid: decimal.NewFromInt(5000)},
		},
	}
}

func TestVerifyURL(t *testing.T) {
	assert.Equal(t, "https://tax.example.gov/verify-TCC/abc-123",
		VerifyURL("https://tax.example.gov", "abc-123"))

	// Trailing slashes never double up
	assert.Equal(t, "https://tax.example.gov/verify-TCC/abc-123",
		VerifyURL("https://tax.example.gov/", "abc-123"))
}

func TestBuildPayload(t *testing.T) {
	record := testRecord()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	payload := BuildPayload(record, TemplateCertificate, "https://tax.example.gov", now)

	assert.Equal(t, TemplateCertificate, payload.TemplateID)
	assert.Equal(t, now, payload.GeneratedAt)
	assert.Equal(t, "https://tax.example.gov/verify-TCC/"+record.ID.String(), payload.VerifyURL)

	// Certificate rows ascend by year while the embedded view descends
	require.Len(t, payload.LedgerRows, 2)
	assert.Equal(t, 2022, payload.LedgerRows[0].Year)
	assert.Equal(t, 2023, payload.LedgerRows[1].Year)
	require.Len(t, payload.Taxpayer.IncomeLedger, 2)
	assert.Equal(t, 2023, payload.Taxpayer.IncomeLedger[0].Year)
}

func TestHTTPRendererPostsPayload(t *testing.T) {
	var got Payload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/render", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte("%PDF-1.7 fake"))
	}))
	defer server.Close()

	renderer := NewHTTPRenderer(server.URL, 5*time.Second)
	payload := BuildPayload(testRecord(), TemplateReceipt, "https://tax.example.gov", time.Now())

	document, err := renderer.Render(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7 fake"), document)
	assert.Equal(t, TemplateReceipt, got.TemplateID)
}

func TestHTTPRendererSurfacesFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "template missing", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	renderer := NewHTTPRenderer(server.URL, 5*time.Second)
	_, err := renderer.Render(context.Background(), Payload{TemplateID: TemplateSlip})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
}

func TestHTTPRendererHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	renderer := NewHTTPRenderer(server.URL, time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := renderer.Render(ctx, Payload{TemplateID: TemplateCertificate})
	require.Error(t, err)
}
