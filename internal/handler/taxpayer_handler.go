package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"taxadmin/internal/middleware"
	"taxadmin/internal/model"
	"taxadmin/internal/repository"
	"taxadmin/internal/service"
	"taxadmin/pkg/numgen"
	"taxadmin/pkg/pagination"
	"taxadmin/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TaxpayerHandler struct {
	taxpayerService service.TaxpayerService
}

// NewTaxpayerHandler sets up the routing dependencies for taxpayer endpoints
func NewTaxpayerHandler(taxpayerService service.TaxpayerService) *TaxpayerHandler {
	return &TaxpayerHandler{taxpayerService: taxpayerService}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *TaxpayerHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/taxpayers")
	group.Use(middleware.RequireAuth())
	{
		group.GET("", h.ListTaxpayers)
		group.POST("", h.CreateTaxpayer)
		group.GET("/:id", h.GetTaxpayer)
		group.PUT("/:id", h.UpdateTaxpayer)
		group.DELETE("/:id", middleware.RequireRole(model.RoleAdmin), h.DeleteTaxpayer)
	}
}

// actorUUID resolves the authenticated user's id for audit attribution.
// A missing or malformed id degrades to a system-attributed entry.
func actorUUID(c *gin.Context) *uuid.UUID {
	idStr := middleware.ActorID(c)
	if idStr == nil {
		return nil
	}
	id, err := uuid.Parse(*idStr)
	if err != nil {
		return nil
	}
	return &id
}

// writeServiceError maps service and repository errors onto the HTTP surface.
// Validation failures and duplicate keys answer with a field-keyed error map
// so the client can mark the offending inputs.
func writeServiceError(c *gin.Context, err error) {
	var vErr *service.ValidationError
	if errors.As(err, &vErr) {
		c.JSON(http.StatusBadRequest, response.FieldErrors("Validation failed", vErr.Fields))
		return
	}

	var dupErr *repository.DuplicateKeyError
	if errors.As(err, &dupErr) {
		c.JSON(http.StatusConflict, response.FieldErrors("Duplicate value", map[string][]string{
			dupErr.Field: {dupErr.Error()},
		}))
		return
	}

	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, response.Error("Taxpayer record not found"))
	case errors.Is(err, repository.ErrMalformedID):
		c.JSON(http.StatusBadRequest, response.Error("Invalid taxpayer ID"))
	case errors.Is(err, numgen.ErrExhausted):
		c.JSON(http.StatusInternalServerError, response.FieldErrors("Failed to create record", map[string][]string{
			"_form": {"could not generate a unique identifier, please try again"},
		}))
	case errors.Is(err, repository.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, response.Error("Database unavailable"))
	default:
		c.JSON(http.StatusInternalServerError, response.Error("Internal server error"))
	}
}

// parseListFilters extracts the structured filter set from the query string.
// Unparseable values are ignored rather than rejected, matching how the
// dashboard issues requests.
func parseListFilters(c *gin.Context) service.ListFilters {
	filters := service.ListFilters{
		Revenue:  c.Query("revenue"),
		Platform: c.Query("platform"),
		Status:   c.Query("status"),
	}

	if raw := c.Query("min_amount"); raw != "" {
		if d, err := decimal.NewFromString(raw); err == nil {
			filters.MinAmount = &d
		}
	}
	if raw := c.Query("max_amount"); raw != "" {
		if d, err := decimal.NewFromString(raw); err == nil {
			filters.MaxAmount = &d
		}
	}
	if raw := c.Query("start_date"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			filters.StartDate = &t
		}
	}
	if raw := c.Query("end_date"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			filters.EndDate = &t
		}
	}
	if raw := c.Query("year"); raw != "" {
		if y, err := strconv.Atoi(raw); err == nil {
			filters.Year = &y
		}
	}

	return filters
}

// CreateTaxpayer handles POST /api/taxpayers
// @Summary      Create taxpayer record
// @Description  Creates a taxpayer record, generating certificate reference and batch identifiers when absent
// @Tags         taxpayers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.TaxpayerInput  true  "Taxpayer Payload"
// @Success      201      {object}  response.Response{data=view.Taxpayer}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/taxpayers [post]
func (h *TaxpayerHandler) CreateTaxpayer(c *gin.Context) {
	var input service.TaxpayerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid request payload: "+err.Error()))
		return
	}

	record, err := h.taxpayerService.CreateTaxpayer(c.Request.Context(), actorUUID(c), input)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.SuccessMessage("Taxpayer record created", record))
}

// GetTaxpayer handles GET /api/taxpayers/:id
// @Summary      Get taxpayer record
// @Description  Fetch a single taxpayer record with derived certificate fields
// @Tags         taxpayers
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Taxpayer ID"
// @Success      200  {object}  response.Response{data=view.Taxpayer}
// @Failure      404  {object}  response.Response
// @Router       /api/taxpayers/{id} [get]
func (h *TaxpayerHandler) GetTaxpayer(c *gin.Context) {
	record, err := h.taxpayerService.GetTaxpayer(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(record))
}

// UpdateTaxpayer handles PUT /api/taxpayers/:id
// @Summary      Update taxpayer record
// @Description  Replaces a taxpayer record's fields and income ledger with the supplied state
// @Tags         taxpayers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                 true  "Taxpayer ID"
// @Param        payload  body      service.TaxpayerInput  true  "Taxpayer Payload"
// @Success      200      {object}  response.Response{data=view.Taxpayer}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/taxpayers/{id} [put]
func (h *TaxpayerHandler) UpdateTaxpayer(c *gin.Context) {
	var input service.TaxpayerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid request payload: "+err.Error()))
		return
	}

	record, err := h.taxpayerService.UpdateTaxpayer(c.Request.Context(), actorUUID(c), c.Param("id"), input)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessMessage("Taxpayer record updated", record))
}

// DeleteTaxpayer handles DELETE /api/taxpayers/:id
// @Summary      Delete taxpayer record
// @Description  Permanently removes a taxpayer record, keeping a snapshot in the audit log
// @Tags         taxpayers
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Taxpayer ID"
// @Success      200  {object}  response.Response{data=service.DeletedSnapshot}
// @Failure      404  {object}  response.Response
// @Router       /api/taxpayers/{id} [delete]
func (h *TaxpayerHandler) DeleteTaxpayer(c *gin.Context) {
	snapshot, err := h.taxpayerService.DeleteTaxpayer(c.Request.Context(), actorUUID(c), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessMessage("Taxpayer record deleted", snapshot))
}

// ListTaxpayers handles GET /api/taxpayers
// @Summary      List taxpayer records
// @Description  Retrieves a filtered, paginated page of records with a summary over the same filtered set
// @Tags         taxpayers
// @Produce      json
// @Security     BearerAuth
// @Param        search      query     string  false  "Free-text search across identity and payment fields"
// @Param        revenue     query     string  false  "Revenue type"
// @Param        platform    query     string  false  "Payment platform"
// @Param        status      query     string  false  "Certificate status (active or expired)"
// @Param        min_amount  query     number  false  "Minimum amount"
// @Param        max_amount  query     number  false  "Maximum amount"
// @Param        start_date  query     string  false  "Created from (YYYY-MM-DD)"
// @Param        end_date    query     string  false  "Created to (YYYY-MM-DD)"
// @Param        year        query     int     false  "Ledger year"
// @Param        page        query     int     false  "Page number (default 1)"
// @Param        limit       query     int     false  "Number of items per page (default 10)"
// @Success      200         {object}  response.Response{data=service.ListResult}
// @Failure      500         {object}  response.Response
// @Router       /api/taxpayers [get]
func (h *TaxpayerHandler) ListTaxpayers(c *gin.Context) {
	params := pagination.Parse(c)

	result, err := h.taxpayerService.ListTaxpayers(c.Request.Context(), c.Query("search"), parseListFilters(c), params.Page, params.Limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(result))
}
