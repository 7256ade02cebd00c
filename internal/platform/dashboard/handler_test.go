package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/emcare/emcare/internal/domain/policy"
	"github.com/emcare/emcare/internal/domain/predictor"
	"github.com/emcare/emcare/internal/domain/protocol"
	"github.com/emcare/emcare/internal/domain/scoring"
	"github.com/emcare/emcare/internal/domain/simulation"
	"github.com/emcare/emcare/internal/platform/session"
)

var testNow = time.Date(2024, time.August, 1, 12, 0, 0, 0, time.UTC)

func newTestHandler(t *testing.T) (*Handler, *session.Store) {
	t.Helper()
	store, err := session.New(session.Options{
		Patients:  300,
		Seed:      42,
		Trees:     10,
		SimWindow: 30,
		SimBatch:  10,
		Clock:     func() time.Time { return testNow },
		Logger:    zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	return NewHandler(store, WithClock(func() time.Time { return testNow })), store
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T: %v", err, err)
	}
	return he.Code
}

func TestOverview(t *testing.T) {
	h, store := newTestHandler(t)
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/overview", nil), rec)

	if err := h.Overview(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var o policy.Overview
	if err := json.Unmarshal(rec.Body.Bytes(), &o); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if o.TotalPatients != len(store.Dataset().Patients) {
		t.Errorf("expected %d patients, got %d", len(store.Dataset().Patients), o.TotalPatients)
	}
}

func TestListPatients_Paginated(t *testing.T) {
	h, _ := newTestHandler(t)
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/patients?limit=25&offset=50", nil), rec)

	if err := h.ListPatients(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Data    []json.RawMessage `json:"data"`
		Total   int               `json:"total"`
		HasMore bool              `json:"has_more"`
		Links   []struct {
			Relation string `json:"relation"`
		} `json:"links"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(body.Data) != 25 {
		t.Errorf("expected 25 rows, got %d", len(body.Data))
	}
	if body.Total != 300 || !body.HasMore {
		t.Errorf("expected total 300 with more pages, got %d (has_more=%v)", body.Total, body.HasMore)
	}
	if len(body.Links) != 3 {
		t.Errorf("expected self, next and previous links, got %d", len(body.Links))
	}
}

func TestListPatients_Filters(t *testing.T) {
	h, store := newTestHandler(t)
	district := store.Dataset().Patients[0].District
	e := echo.New()
	rec := httptest.NewRecorder()
	target := "/api/v1/patients?limit=500&triage=RED&district=" + strings.ReplaceAll(district, " ", "+")
	c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), rec)

	if err := h.ListPatients(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Data []struct {
			District    string        `json:"district"`
			TriageColor scoring.Color `json:"triage_color"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	for _, p := range body.Data {
		if p.District != district || p.TriageColor != scoring.Red {
			t.Errorf("filter leaked %s/%s", p.District, p.TriageColor)
		}
	}
}

func TestListPatients_InvalidTriage(t *testing.T) {
	h, _ := newTestHandler(t)
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/patients?triage=BLUE", nil), httptest.NewRecorder())

	if code := statusOf(t, h.ListPatients(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestRegenerate(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantRows int
	}{
		{"explicit size and seed", `{"patients":120,"seed":9}`, http.StatusCreated, 120},
		{"empty body uses configured size", ``, http.StatusCreated, 300},
		{"negative size", `{"patients":-5}`, http.StatusBadRequest, 0},
		{"too many patients", `{"patients":1000000}`, http.StatusBadRequest, 0},
		{"malformed json", `{"patients":`, http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, store := newTestHandler(t)
			e := echo.New()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/dataset/regenerate", strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := h.Regenerate(c)
			if tt.wantCode != http.StatusCreated {
				if code := statusOf(t, err); code != tt.wantCode {
					t.Errorf("expected %d, got %d", tt.wantCode, code)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != http.StatusCreated {
				t.Errorf("expected 201, got %d", rec.Code)
			}
			if got := len(store.Dataset().Patients); got != tt.wantRows {
				t.Errorf("expected %d patients, got %d", tt.wantRows, got)
			}
		})
	}
}

func TestPredict_BeforeTraining(t *testing.T) {
	h, store := newTestHandler(t)
	e := echo.New()
	body, _ := json.Marshal(predictor.FeaturesOf(store.Dataset().Patients[0]))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/model/predict", strings.NewReader(string(body)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	if code := statusOf(t, h.Predict(c)); code != http.StatusConflict {
		t.Errorf("expected 409, got %d", code)
	}
}

func TestTrainAndPredict(t *testing.T) {
	h, store := newTestHandler(t)
	e := echo.New()

	rec := httptest.NewRecorder()
	if err := h.Train(e.NewContext(httptest.NewRequest(http.MethodPost, "/api/v1/model/train", nil), rec)); err != nil {
		t.Fatalf("train: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	p := store.Dataset().Patients[0]
	body, _ := json.Marshal(predictRequest{Features: predictor.FeaturesOf(p)})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/model/predict", strings.NewReader(string(body)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	if err := h.Predict(e.NewContext(req, rec)); err != nil {
		t.Fatalf("predict: %v", err)
	}

	var resp struct {
		Class         scoring.Color             `json:"predicted_class"`
		Probabilities map[scoring.Color]float64 `json:"class_probabilities"`
		NEWS2Score    int                       `json:"news2_score"`
		NEWS2Triage   scoring.Color             `json:"news2_triage"`
		Protocol      *protocol.Protocol        `json:"protocol"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if !resp.Class.Valid() {
		t.Errorf("invalid predicted class %q", resp.Class)
	}
	if len(resp.Probabilities) != 3 {
		t.Errorf("expected 3 probabilities, got %d", len(resp.Probabilities))
	}
	if resp.NEWS2Score != p.NEWS2Score || resp.NEWS2Triage != p.TriageColor {
		t.Errorf("expected NEWS2 %d/%s, got %d/%s", p.NEWS2Score, p.TriageColor, resp.NEWS2Score, resp.NEWS2Triage)
	}
	if resp.Class == scoring.Green && resp.Protocol != nil {
		t.Error("GREEN predictions should not carry a protocol")
	}
}

func TestPredict_UnknownCategory(t *testing.T) {
	h, store := newTestHandler(t)
	if _, err := store.Train(context.Background()); err != nil {
		t.Fatalf("train: %v", err)
	}
	f := predictor.FeaturesOf(store.Dataset().Patients[0])
	f.District = "Atlantis"
	body, _ := json.Marshal(f)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/model/predict", strings.NewReader(string(body)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if code := statusOf(t, h.Predict(e.NewContext(req, httptest.NewRecorder()))); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestGetModel_NotTrained(t *testing.T) {
	h, _ := newTestHandler(t)
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/model", nil), httptest.NewRecorder())
	if code := statusOf(t, h.GetModel(c)); code != http.StatusConflict {
		t.Errorf("expected 409, got %d", code)
	}
}

func TestPolicyViews(t *testing.T) {
	h, _ := newTestHandler(t)
	e := echo.New()
	views := map[string]echo.HandlerFunc{
		"resource-gaps":   h.ResourceGaps,
		"seasonal-demand": h.SeasonalDemand,
		"corridors":       h.Corridors,
		"recommendations": h.Recommendations,
	}
	for name, fn := range views {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/policy/"+name, nil), rec)
			if err := fn(c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != http.StatusOK {
				t.Errorf("expected 200, got %d", rec.Code)
			}
			if !json.Valid(rec.Body.Bytes()) || rec.Body.String() == "null\n" {
				t.Errorf("expected a JSON document, got %s", rec.Body.String())
			}
		})
	}
}

func TestForecast(t *testing.T) {
	h, store := newTestHandler(t)
	district := store.Dataset().Patients[0].District
	tests := []struct {
		name     string
		district string
		query    string
		wantCode int
	}{
		{"default horizon", district, "", http.StatusOK},
		{"custom horizon", district, "?weeks=6", http.StatusOK},
		{"zero horizon", district, "?weeks=0", http.StatusBadRequest},
		{"non-numeric horizon", district, "?weeks=many", http.StatusBadRequest},
		{"unknown district", "Atlantis", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/forecast/x"+tt.query, nil), rec)
			c.SetParamNames("district")
			c.SetParamValues(tt.district)

			err := h.Forecast(c)
			if tt.wantCode != http.StatusOK {
				if code := statusOf(t, err); code != tt.wantCode {
					t.Errorf("expected %d, got %d", tt.wantCode, code)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var f policy.Forecast
			if err := json.Unmarshal(rec.Body.Bytes(), &f); err != nil {
				t.Fatalf("failed to parse response: %v", err)
			}
			want := policy.DefaultForecastWeeks
			if tt.query == "?weeks=6" {
				want = 6
			}
			if len(f.WeeklyCases) != want {
				t.Errorf("expected %d weeks, got %d", want, len(f.WeeklyCases))
			}
		})
	}
}

func TestGetProtocol(t *testing.T) {
	tests := []struct {
		caseType  string
		diagnosis string
		wantCode  int
	}{
		{protocol.Cardiac, "", http.StatusOK},
		{protocol.Maternal, "postpartum hemorrhage", http.StatusOK},
		{protocol.Respiratory, "", http.StatusNotFound},
		{"Unknown", "", http.StatusNotFound},
	}
	h, _ := newTestHandler(t)
	for _, tt := range tests {
		t.Run(tt.caseType, func(t *testing.T) {
			e := echo.New()
			target := "/api/v1/protocols/x"
			if tt.diagnosis != "" {
				target += "?diagnosis=" + strings.ReplaceAll(tt.diagnosis, " ", "+")
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), rec)
			c.SetParamNames("caseType")
			c.SetParamValues(tt.caseType)

			err := h.GetProtocol(c)
			if tt.wantCode != http.StatusOK {
				if code := statusOf(t, err); code != tt.wantCode {
					t.Errorf("expected %d, got %d", tt.wantCode, code)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var p protocol.Protocol
			if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
				t.Fatalf("failed to parse response: %v", err)
			}
			if p.CaseType != tt.caseType {
				t.Errorf("expected case type %s, got %s", tt.caseType, p.CaseType)
			}
		})
	}
}

func TestListDiagnoses(t *testing.T) {
	tests := []struct {
		complaint string
		query     string
		wantCode  int
		wantLen   int
	}{
		{protocol.Cardiac, "", http.StatusOK, 4},
		{protocol.Cardiac, "?limit=2", http.StatusOK, 2},
		{"Unknown", "", http.StatusOK, 0},
		{protocol.Cardiac, "?limit=0", http.StatusBadRequest, 0},
	}
	h, _ := newTestHandler(t)
	for _, tt := range tests {
		t.Run(tt.complaint+tt.query, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/diagnoses/x"+tt.query, nil), rec)
			c.SetParamNames("complaint")
			c.SetParamValues(tt.complaint)

			err := h.ListDiagnoses(c)
			if tt.wantCode != http.StatusOK {
				if code := statusOf(t, err); code != tt.wantCode {
					t.Errorf("expected %d, got %d", tt.wantCode, code)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var out []protocol.Diagnosis
			if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
				t.Fatalf("failed to parse response: %v", err)
			}
			if out == nil || len(out) != tt.wantLen {
				t.Errorf("expected %d diagnoses, got %v", tt.wantLen, out)
			}
		})
	}
}

func TestSimulationRoutes(t *testing.T) {
	h, _ := newTestHandler(t)
	e := echo.New()

	var snap simulation.Snapshot
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		if err := h.Tick(e.NewContext(httptest.NewRequest(http.MethodPost, "/api/v1/simulation/tick", nil), rec)); err != nil {
			t.Fatalf("tick: %v", err)
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
	}
	if snap.Cycle != 2 || snap.Active != 20 {
		t.Errorf("expected cycle 2 with 20 active, got %d/%d", snap.Cycle, snap.Active)
	}

	rec := httptest.NewRecorder()
	if err := h.ResetSimulation(e.NewContext(httptest.NewRequest(http.MethodDelete, "/api/v1/simulation", nil), rec)); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	if err := h.GetSimulation(e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/simulation", nil), rec)); err != nil {
		t.Fatalf("get: %v", err)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if snap.Active != 0 {
		t.Errorf("expected an empty window after reset, got %d", snap.Active)
	}
}

func TestRegisterRoutes_WriteGroupGuarded(t *testing.T) {
	h, _ := newTestHandler(t)
	e := echo.New()
	api := e.Group("/api/v1")
	deny := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return echo.NewHTTPError(http.StatusForbidden, "insufficient permissions")
		}
	}
	h.RegisterRoutes(api, api.Group("", deny))

	tests := []struct {
		method   string
		path     string
		wantCode int
	}{
		{http.MethodGet, "/api/v1/overview", http.StatusOK},
		{http.MethodGet, "/api/v1/simulation", http.StatusOK},
		{http.MethodPost, "/api/v1/model/train", http.StatusForbidden},
		{http.MethodPost, "/api/v1/dataset/regenerate", http.StatusForbidden},
		{http.MethodPost, "/api/v1/simulation/tick", http.StatusForbidden},
		{http.MethodDelete, "/api/v1/simulation", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, rec.Code)
			}
		})
	}
}
