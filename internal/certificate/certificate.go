// Package certificate supplies the data side of certificate and receipt
// rendering. The byte-level renderer is an external service; this package
// only assembles its payload and the verification link.
package certificate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"taxadmin/internal/model"
	"taxadmin/internal/view"
)

// Template ids understood by the renderer.
const (
	TemplateCertificate = "tcc"     // tax clearance certificate
	TemplateReceipt     = "receipt" // payment receipt
	TemplateSlip        = "slip"    // acknowledgement slip
)

// Payload is everything the renderer needs for one document. The core
// supplies data only; layout and styling live entirely in the renderer.
type Payload struct {
	TemplateID  string            `json:"template_id"`
	Taxpayer    view.Taxpayer     `json:"taxpayer"`
	LedgerRows  []view.LedgerLine `json:"ledger_rows"` // ascending by year for tabulation
	VerifyURL   string            `json:"verify_url"`  // QR-encoded by the renderer
	GeneratedAt time.Time         `json:"generated_at"`
}

// VerifyURL builds the stable verification link for a record. The link
// embeds the opaque record id only; it carries no signature or expiry.
func VerifyURL(baseURL, id string) string {
	return strings.TrimRight(baseURL, "/") + "/verify-TCC/" + id
}

// BuildPayload assembles the render payload for a record at the given
// instant. Ledger rows are ascending by year; the listing view inside
// Taxpayer keeps its own descending order.
func BuildPayload(record *model.Taxpayer, templateID, baseURL string, now time.Time) Payload {
	return Payload{
		TemplateID:  templateID,
		Taxpayer:    view.Build(record, now),
		LedgerRows:  view.CertificateRows(record),
		VerifyURL:   VerifyURL(baseURL, record.ID.String()),
		GeneratedAt: now,
	}
}

// Renderer turns a payload into a document byte stream. Errors and timeouts
// surface to the caller unchanged; rendering is never retried internally.
type Renderer interface {
	Render(ctx context.Context, payload Payload) ([]byte, error)
}

// HTTPRenderer posts payloads to an external render service.
type HTTPRenderer struct {
	endpoint string
	client   *http.Client
}

func NewHTTPRenderer(endpoint string, timeout time.Duration) *HTTPRenderer {
	return &HTTPRenderer{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
	}
}

func (r *HTTPRenderer) Render(ctx context.Context, payload Payload) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode render payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint+"/render", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("renderer request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("renderer returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
