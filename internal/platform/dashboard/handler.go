// Package dashboard exposes the triage, planning and simulation views over a
// JSON API.
package dashboard

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/emcare/emcare/internal/domain/cohort"
	"github.com/emcare/emcare/internal/domain/policy"
	"github.com/emcare/emcare/internal/domain/predictor"
	"github.com/emcare/emcare/internal/domain/protocol"
	"github.com/emcare/emcare/internal/domain/scoring"
	"github.com/emcare/emcare/internal/platform/session"
	"github.com/emcare/emcare/pkg/pagination"
)

const (
	maxPatients      = 50000
	defaultDiagnoses = 5
)

type Handler struct {
	store   *session.Store
	clock   func() time.Time
	compute []echo.MiddlewareFunc
}

// Option customises a Handler.
type Option func(*Handler)

// WithClock sets the clock used to evaluate the current season.
func WithClock(clock func() time.Time) Option {
	return func(h *Handler) { h.clock = clock }
}

// WithComputeMiddleware guards the regeneration and training routes.
func WithComputeMiddleware(mw ...echo.MiddlewareFunc) Option {
	return func(h *Handler) { h.compute = append(h.compute, mw...) }
}

func NewHandler(store *session.Store, opts ...Option) *Handler {
	h := &Handler{store: store, clock: time.Now}
	for _, o := range opts {
		o(h)
	}
	return h
}

// RegisterRoutes mounts the read routes on api and the mutating ones on
// write, which carries the authorization middleware.
func (h *Handler) RegisterRoutes(api *echo.Group, write *echo.Group) {
	api.GET("/overview", h.Overview)
	api.GET("/patients", h.ListPatients)
	api.GET("/facilities", h.ListFacilities)
	api.GET("/model", h.GetModel)
	api.POST("/model/predict", h.Predict)
	api.GET("/policy/resource-gaps", h.ResourceGaps)
	api.GET("/policy/seasonal-demand", h.SeasonalDemand)
	api.GET("/policy/corridors", h.Corridors)
	api.GET("/policy/recommendations", h.Recommendations)
	api.GET("/forecast/:district", h.Forecast)
	api.GET("/protocols/:caseType", h.GetProtocol)
	api.GET("/diagnoses/:complaint", h.ListDiagnoses)
	api.GET("/simulation", h.GetSimulation)

	write.POST("/dataset/regenerate", h.Regenerate, h.compute...)
	write.POST("/model/train", h.Train, h.compute...)
	write.POST("/simulation/tick", h.Tick)
	write.DELETE("/simulation", h.ResetSimulation)
}

// httpError maps domain errors onto HTTP status codes.
func httpError(err error) error {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he
	case errors.Is(err, cohort.ErrInvalidInput), errors.Is(err, predictor.ErrUnknownCategory):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, predictor.ErrModelNotTrained):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, cohort.ErrEmptyDataset), errors.Is(err, protocol.ErrProtocolNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// -- Cohort --

func (h *Handler) Overview(c echo.Context) error {
	o, err := policy.BuildOverview(h.store.Dataset().Patients)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	district := c.QueryParam("district")
	triage := scoring.Color(c.QueryParam("triage"))
	if triage != "" && !triage.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "triage must be one of RED, YELLOW, GREEN")
	}

	patients := h.store.Dataset().Patients
	filtered := make([]cohort.PatientRecord, 0, len(patients))
	for _, p := range patients {
		if district != "" && p.District != district {
			continue
		}
		if triage != "" && p.TriageColor != triage {
			continue
		}
		filtered = append(filtered, p)
	}

	q := url.Values{}
	if district != "" {
		q.Set("district", district)
	}
	if triage != "" {
		q.Set("triage", string(triage))
	}
	resp := pagination.NewResponse(pagination.Page(filtered, pg), len(filtered), pg.Limit, pg.Offset)
	resp.Links = pg.Links(c.Request().URL.Path, q.Encode(), len(filtered))
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) ListFacilities(c echo.Context) error {
	return c.JSON(http.StatusOK, h.store.Dataset().Facilities)
}

type regenerateRequest struct {
	Patients int   `json:"patients"`
	Seed     int64 `json:"seed"`
}

func (h *Handler) Regenerate(c echo.Context) error {
	var req regenerateRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	if req.Patients < 0 || req.Patients > maxPatients {
		return echo.NewHTTPError(http.StatusBadRequest, "patients must be between 0 and "+strconv.Itoa(maxPatients))
	}
	ds, err := h.store.Regenerate(c.Request().Context(), req.Patients, req.Seed)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, session.Summarize(ds))
}

// -- Model --

func (h *Handler) Train(c echo.Context) error {
	m, err := h.store.Train(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) GetModel(c echo.Context) error {
	m := h.store.Model()
	if m == nil {
		return httpError(predictor.ErrModelNotTrained)
	}
	return c.JSON(http.StatusOK, m)
}

type predictRequest struct {
	predictor.Features
	// Diagnosis narrows the returned protocol for case types with
	// condition-specific guidance.
	Diagnosis string `json:"diagnosis,omitempty"`
}

type predictResponse struct {
	*predictor.Prediction
	NEWS2Score  int                `json:"news2_score"`
	NEWS2Triage scoring.Color      `json:"news2_triage"`
	Protocol    *protocol.Protocol `json:"protocol,omitempty"`
}

func (h *Handler) Predict(c echo.Context) error {
	var req predictRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	pred, err := h.store.Predict(req.Features)
	if err != nil {
		return httpError(err)
	}

	resp := predictResponse{Prediction: pred}
	resp.NEWS2Score, resp.NEWS2Triage = scoring.Assess(scoring.Vitals{
		HR: req.HR, SBP: req.SBP, RR: req.RR, SpO2: req.SpO2, Temp: req.Temp,
	})
	if pred.Class == scoring.Red || pred.Class == scoring.Yellow {
		if p, err := protocol.ResuscitationSteps(req.Complaint, req.Diagnosis); err == nil {
			resp.Protocol = &p
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// -- Policy --

func (h *Handler) ResourceGaps(c echo.Context) error {
	ds := h.store.Dataset()
	return c.JSON(http.StatusOK, policy.ResourceGaps(ds.Patients, ds.Facilities))
}

func (h *Handler) SeasonalDemand(c echo.Context) error {
	return c.JSON(http.StatusOK, policy.SeasonalDemand(h.store.Dataset().Patients, h.clock()))
}

func (h *Handler) Corridors(c echo.Context) error {
	ds := h.store.Dataset()
	return c.JSON(http.StatusOK, policy.HighRiskCorridors(ds.Patients, ds.Facilities))
}

func (h *Handler) Recommendations(c echo.Context) error {
	ds := h.store.Dataset()
	return c.JSON(http.StatusOK, policy.Recommendations(ds.Patients, ds.Facilities, h.clock()))
}

func (h *Handler) Forecast(c echo.Context) error {
	weeks := policy.DefaultForecastWeeks
	if w := c.QueryParam("weeks"); w != "" {
		n, err := strconv.Atoi(w)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid weeks")
		}
		weeks = n
	}
	f, err := policy.DistrictForecast(h.store.Dataset().Patients, c.Param("district"), weeks)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, f)
}

// -- Reference --

func (h *Handler) GetProtocol(c echo.Context) error {
	p, err := protocol.ResuscitationSteps(c.Param("caseType"), c.QueryParam("diagnosis"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListDiagnoses(c echo.Context) error {
	limit := defaultDiagnoses
	if l := c.QueryParam("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}
	out := protocol.DiagnosesFor(c.Param("complaint"), limit)
	if out == nil {
		out = []protocol.Diagnosis{}
	}
	return c.JSON(http.StatusOK, out)
}

// -- Simulation --

func (h *Handler) Tick(c echo.Context) error {
	snap, err := h.store.Tick()
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, snap)
}

func (h *Handler) GetSimulation(c echo.Context) error {
	return c.JSON(http.StatusOK, h.store.Simulation())
}

func (h *Handler) ResetSimulation(c echo.Context) error {
	h.store.ResetSimulation()
	return c.NoContent(http.StatusNoContent)
}
