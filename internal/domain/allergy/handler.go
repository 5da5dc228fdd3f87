package allergy

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/joansmith/allergylist/internal/platform/auth"
	"github.com/joansmith/allergylist/internal/platform/fhir"
	"github.com/joansmith/allergylist/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group, fhirGroup *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "physician", "nurse", "pharmacist"))
	readGroup.GET("/patients/:id/allergies", h.GetAllergies)

	writeGroup := api.Group("", auth.RequireRole("admin", "physician", "nurse"))
	writeGroup.PUT("/patients/:id/allergies", h.SetAllergies)

	fhirRead := fhirGroup.Group("", auth.RequireRole("admin", "physician", "nurse", "pharmacist"),
		auth.RequireScope("user/AllergyIntolerance", "read"))
	fhirRead.GET("/AllergyIntolerance", h.SearchAllergiesFHIR)
	fhirRead.GET("/AllergyIntolerance/:id", h.GetAllergyFHIR)
}

func (h *Handler) GetAllergies(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	list, err := h.svc.GetAllergies(c.Request().Context(), patientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) SetAllergies(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	var candidate List
	if err := c.Bind(&candidate); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SetAllergies(c.Request().Context(), patientID, &candidate); err != nil {
		switch {
		case errors.Is(err, ErrPatientMismatch):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		case errors.Is(err, ErrCandidateRequired), errors.Is(err, ErrInvalidStatus):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, pgx.ErrNoRows):
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		default:
			// Anything else is a persistence failure inside the transaction.
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	list, err := h.svc.GetAllergies(c.Request().Context(), patientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) GetAllergyFHIR(c echo.Context) error {
	a, err := h.svc.GetAllergyByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("AllergyIntolerance", c.Param("id")))
	}
	return c.JSON(http.StatusOK, a.ToFHIR())
}

func (h *Handler) SearchAllergiesFHIR(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := map[string]string{}
	for _, k := range []string{"patient", "category", "_id"} {
		if v := c.QueryParam(k); v != "" {
			params[k] = v
		}
	}
	items, total, err := h.svc.SearchAllergies(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}
	resources := make([]interface{}, len(items))
	for i, item := range items {
		resources[i] = item.ToFHIR()
	}
	return c.JSON(http.StatusOK, fhir.NewSearchBundleWithLinks(resources, fhir.SearchBundleParams{
		BaseURL:  "/fhir/AllergyIntolerance",
		QueryStr: searchQueryString(params),
		Count:    pg.Limit,
		Offset:   pg.Offset,
		Total:    total,
	}))
}

func searchQueryString(params map[string]string) string {
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	return q.Encode()
}
