package terminology

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/joansmith/allergylist/internal/platform/auth"
	"github.com/joansmith/allergylist/internal/platform/fhir"
)

// Handler provides REST endpoints for the vocabulary.
type Handler struct {
	svc *Service
}

// NewHandler creates a new terminology handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers terminology routes on the API and FHIR groups.
func (h *Handler) RegisterRoutes(api *echo.Group, fhirGroup *echo.Group) {
	// All authenticated clinical users can read the vocabulary
	readGroup := api.Group("/concepts", auth.RequireRole("admin", "physician", "nurse", "pharmacist"))
	readGroup.GET("", h.SearchConcepts)
	readGroup.GET("/:id", h.GetConcept)

	writeGroup := api.Group("/concepts", auth.RequireRole("admin"))
	writeGroup.POST("", h.CreateConcept)

	// FHIR terminology operations
	fhirTerm := fhirGroup.Group("", auth.RequireRole("admin", "physician", "nurse", "pharmacist"))
	fhirTerm.POST("/CodeSystem/$lookup", h.FHIRLookup)
	fhirTerm.POST("/CodeSystem/$validate-code", h.FHIRValidateCode)
	fhirTerm.GET("/ValueSet/$expand", h.ExpandValueSet)
	fhirTerm.POST("/ValueSet/$expand", h.ExpandValueSet)
}

func getLimit(c echo.Context) int {
	limit, _ := strconv.Atoi(c.QueryParam("_count"))
	if limit <= 0 {
		limit, _ = strconv.Atoi(c.QueryParam("limit"))
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return limit
}

// SearchConcepts handles GET /api/v1/concepts?q=...&class=...
func (h *Handler) SearchConcepts(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter 'q' is required")
	}
	results, err := h.svc.SearchConcepts(c.Request().Context(), query, c.QueryParam("class"), getLimit(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, results)
}

// GetConcept handles GET /api/v1/concepts/:id
func (h *Handler) GetConcept(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	concept, err := h.svc.GetConcept(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "concept not found")
	}
	return c.JSON(http.StatusOK, concept)
}

// CreateConcept handles POST /api/v1/concepts
func (h *Handler) CreateConcept(c echo.Context) error {
	var concept Concept
	if err := c.Bind(&concept); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateConcept(c.Request().Context(), &concept); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, concept)
}

// FHIRLookup handles POST /fhir/CodeSystem/$lookup
func (h *Handler) FHIRLookup(c echo.Context) error {
	var req LookupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	resp, err := h.svc.Lookup(c.Request().Context(), &req)
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, resp)
}

// FHIRValidateCode handles POST /fhir/CodeSystem/$validate-code
func (h *Handler) FHIRValidateCode(c echo.Context) error {
	var req ValidateCodeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	resp, err := h.svc.ValidateCode(c.Request().Context(), &req)
	if err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, resp)
}

// ExpandValueSet handles GET/POST /fhir/ValueSet/$expand over the local
// vocabulary. The filter text is matched against code and display; a class
// query parameter narrows the expansion to one concept class.
func (h *Handler) ExpandValueSet(c echo.Context) error {
	filter := c.QueryParam("filter")
	class := c.QueryParam("class")

	var contains []map[string]interface{}
	if filter != "" {
		results, err := h.svc.SearchConcepts(c.Request().Context(), filter, class, getLimit(c))
		if err != nil {
			return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
		}
		for _, r := range results {
			contains = append(contains, map[string]interface{}{
				"system":  r.SystemURI,
				"code":    r.Code,
				"display": r.Display,
			})
		}
	}
	if contains == nil {
		contains = []map[string]interface{}{}
	}

	result := map[string]interface{}{
		"resourceType": "ValueSet",
		"expansion": map[string]interface{}{
			"identifier": uuid.New().String(),
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"total":      len(contains),
			"contains":   contains,
		},
	}
	return c.JSON(http.StatusOK, result)
}
