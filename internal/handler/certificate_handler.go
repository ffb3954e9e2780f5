package handler

import (
	"net/http"
	"time"

	"taxadmin/internal/certificate"
	"taxadmin/internal/middleware"
	"taxadmin/internal/service"
	"taxadmin/pkg/response"

	"github.com/gin-gonic/gin"
)

type CertificateHandler struct {
	taxpayerService service.TaxpayerService
	renderer        certificate.Renderer
	baseURL         string
}

// NewCertificateHandler sets up document rendering endpoints
func NewCertificateHandler(taxpayerService service.TaxpayerService, renderer certificate.Renderer, baseURL string) *CertificateHandler {
	return &CertificateHandler{
		taxpayerService: taxpayerService,
		renderer:        renderer,
		baseURL:         baseURL,
	}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup.
// The verify route is public: it is the target of the QR code printed on
// issued certificates.
func (h *CertificateHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/taxpayers/:id/certificate", middleware.RequireAuth(), h.RenderCertificate)
	router.GET("/verify-TCC/:id", h.VerifyCertificate)
}

// RenderCertificate handles GET /api/taxpayers/:id/certificate
// @Summary      Render certificate document
// @Description  Renders a certificate, receipt or slip document for a taxpayer record via the external render service
// @Tags         certificates
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        id        path      string  true   "Taxpayer ID"
// @Param        template  query     string  false  "Template (tcc, receipt or slip; default tcc)"
// @Success      200       {file}    binary
// @Failure      404       {object}  response.Response
// @Failure      502       {object}  response.Response
// @Router       /api/taxpayers/{id}/certificate [get]
func (h *CertificateHandler) RenderCertificate(c *gin.Context) {
	record, err := h.taxpayerService.GetRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	templateID := c.DefaultQuery("template", certificate.TemplateCertificate)
	switch templateID {
	case certificate.TemplateCertificate, certificate.TemplateReceipt, certificate.TemplateSlip:
	default:
		c.JSON(http.StatusBadRequest, response.Error("Unknown template: "+templateID))
		return
	}

	payload := certificate.BuildPayload(record, templateID, h.baseURL, time.Now())
	document, err := h.renderer.Render(c.Request.Context(), payload)
	if err != nil {
		c.JSON(http.StatusBadGateway, response.Error("Document rendering failed: "+err.Error()))
		return
	}

	c.Data(http.StatusOK, "application/pdf", document)
}

// VerifyCertificate handles GET /verify-TCC/:id
// @Summary      Verify certificate
// @Description  Public lookup of a taxpayer record by the id embedded in a certificate's QR code
// @Tags         certificates
// @Produce      json
// @Param        id   path      string  true  "Taxpayer ID"
// @Success      200  {object}  response.Response{data=view.Taxpayer}
// @Failure      404  {object}  response.Response
// @Router       /verify-TCC/{id} [get]
func (h *CertificateHandler) VerifyCertificate(c *gin.Context) {
	record, err := h.taxpayerService.GetTaxpayer(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(record))
}
