package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/medflow/medflow-supply/internal/supply/coverage"
	"github.com/medflow/medflow-supply/internal/supply/domain"
	"github.com/medflow/medflow-supply/internal/supply/expiry"
	"github.com/medflow/medflow-supply/internal/supply/handler"
	"github.com/medflow/medflow-supply/internal/supply/repository"
	"github.com/medflow/medflow-supply/internal/supply/service"
	"github.com/medflow/medflow-supply/pkg/config"
	"github.com/medflow/medflow-supply/pkg/errors"
	"github.com/medflow/medflow-supply/pkg/httputil"
	"github.com/medflow/medflow-supply/pkg/logger"
	"github.com/medflow/medflow-supply/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordStore struct {
	records map[string]*domain.SupplyRecord
}

func (s *recordStore) GetByID(_ context.Context, id string) (*domain.SupplyRecord, error) {
	rec, ok := s.records[id]
	if !ok {
		return nil, errors.NotFound("supply record")
	}
	return rec, nil
}

type scopeStore struct{}

func (scopeStore) Get(_ context.Context, _ string) ([]int, bool, error) {
	return nil, false, nil
}

type lotStore struct {
	rows []repository.LotRow
}

func (s *lotStore) List(_ context.Context) ([]repository.LotRow, error) {
	return s.rows, nil
}

type fixture struct {
	router chi.Router
	record *domain.SupplyRecord
}

func setup(t *testing.T) fixture {
	t.Helper()
	f := testutil.NewFixtureFactory()
	rec := f.Record("2024-03",
		f.Item(testutil.WithCategory(1), testutil.WithStock(10, 5)),
		f.Item(testutil.WithCategory(2), testutil.WithStock(0, 5)),
		f.Item(testutil.WithCategory(2), testutil.WithStock(40, 5)),
	)

	log := logger.Nop()
	cfg := &config.SupplyConfig{DefaultWindowMonths: 6, CoverageStrategy: config.StrategyPercentageSum, ScanInterval: time.Hour}
	covSvc, err := service.NewCoverageService(&recordStore{records: map[string]*domain.SupplyRecord{rec.ID: rec}}, scopeStore{}, cfg, nil, log)
	require.NoError(t, err)

	raw := func(s string) *string { return &s }
	lotSvc := service.NewLotService(&lotStore{rows: []repository.LotRow{
		{ID: "soon", ItemCode: 1001, ExpirationRaw: raw("31/08/2024")},
		{ID: "gone", ItemCode: 1002, ExpirationRaw: raw("2024-02-15")},
		{ID: "far", ItemCode: 1003, ExpirationRaw: raw("2026-01-31")},
	}}, cfg.DefaultWindowMonths, time.UTC, log)

	cov := handler.NewCoverageHandler(covSvc, log)
	lots := handler.NewLotHandler(lotSvc, log)

	r := chi.NewRouter()
	r.Get("/records/{id}", cov.GetRecord)
	r.Get("/records/{id}/coverage", cov.Coverage)
	r.Post("/records/{id}/coverage", cov.RecomputeEdited)
	r.Post("/coverage/classify", cov.Classify)
	r.Get("/lots/alerts", lots.Alerts)
	r.Get("/lots/traffic-light", lots.TrafficLights)

	return fixture{router: r, record: rec}
}

func principal(categories []int) *httputil.Principal {
	return &httputil.Principal{
		UserID:         testutil.TestUserID,
		TenantID:       testutil.TestTenantID,
		Permissions:    []string{"supply.*"},
		LineCategories: categories,
	}
}

type errorEnvelope struct {
	Error struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, body []byte) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(body, &env))
	return env
}

func TestGetRecord(t *testing.T) {
	fx := setup(t)

	t.Run("found", func(t *testing.T) {
		req := testutil.WithPrincipal(testutil.NewHTTPRequest(http.MethodGet, "/records/"+fx.record.ID, nil), principal(nil))
		rr := testutil.ExecuteRequest(fx.router, req)
		require.Equal(t, http.StatusOK, rr.Code)

		var rec domain.SupplyRecord
		testutil.ParseJSONBody(t, rr, &rec)
		assert.Equal(t, fx.record.ID, rec.ID)
		assert.Len(t, rec.Items, 3)
	})

	t.Run("not found", func(t *testing.T) {
		req := testutil.NewHTTPRequest(http.MethodGet, "/records/44444444-4444-4444-4444-444444444444", nil)
		rr := testutil.ExecuteRequest(fx.router, req)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		rr := testutil.ExecuteRequest(fx.router, testutil.NewHTTPRequest(http.MethodGet, "/records/abc", nil))
		require.Equal(t, http.StatusBadRequest, rr.Code)
		env := decodeError(t, rr.Body.Bytes())
		assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
		assert.Contains(t, env.Error.Details, "recordParams.ID")
	})
}

func TestCoverage(t *testing.T) {
	fx := setup(t)

	t.Run("scoped by token claim", func(t *testing.T) {
		req := testutil.WithPrincipal(
			testutil.NewHTTPRequest(http.MethodGet, "/records/"+fx.record.ID+"/coverage?strategy=direct-ratio", nil),
			principal([]int{2}))
		rr := testutil.ExecuteRequest(fx.router, req)
		require.Equal(t, http.StatusOK, rr.Code)

		var res service.RecomputeResult
		testutil.ParseJSONBody(t, rr, &res)
		assert.Equal(t, coverage.DirectRatio, res.Strategy)
		assert.Equal(t, []int{2}, res.Scope)
		assert.True(t, res.HasPermittedItems)
		assert.Equal(t, 2, res.Summary.TotalItems)
		assert.Equal(t, 40, res.Summary.WarehouseStockTotal)
		// 0/5 -> bucket 0, 40/5 = 8 -> bucket 5
		assert.Equal(t, 1, res.Coverage.Buckets[0].Count)
		assert.Equal(t, 1, res.Coverage.Buckets[5].Count)
		assert.Equal(t, 50.0, res.Coverage.Availability)
		assert.Equal(t, 50.0, res.Coverage.Sufficiency)
	})

	t.Run("no permitted items", func(t *testing.T) {
		req := testutil.WithPrincipal(
			testutil.NewHTTPRequest(http.MethodGet, "/records/"+fx.record.ID+"/coverage", nil),
			principal([]int{9}))
		rr := testutil.ExecuteRequest(fx.router, req)
		require.Equal(t, http.StatusOK, rr.Code)

		var res service.RecomputeResult
		testutil.ParseJSONBody(t, rr, &res)
		assert.False(t, res.HasPermittedItems)
		assert.Empty(t, res.Items)
		assert.Equal(t, coverage.LabelZero, res.Coverage.Buckets[0].Label)
	})

	t.Run("unknown strategy", func(t *testing.T) {
		req := testutil.NewHTTPRequest(http.MethodGet, "/records/"+fx.record.ID+"/coverage?strategy=median", nil)
		rr := testutil.ExecuteRequest(fx.router, req)
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, decodeError(t, rr.Body.Bytes()).Error.Details, "recordParams.Strategy")
	})
}

func TestRecomputeEdited(t *testing.T) {
	fx := setup(t)
	path := "/records/" + fx.record.ID + "/coverage"

	t.Run("applies edits to a copy", func(t *testing.T) {
		body := map[string]any{
			"edits": []map[string]any{
				{"item_code": fx.record.Items[1].ItemCode, "warehouse_stock": "20"},
				{"item_code": fx.record.Items[2].ItemCode, "monthly_consumption_rate": "n/a"},
			},
		}
		req := testutil.WithPrincipal(testutil.NewHTTPRequest(http.MethodPost, path, body), principal(nil))
		rr := testutil.ExecuteRequest(fx.router, req)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var res service.RecomputeResult
		testutil.ParseJSONBody(t, rr, &res)
		assert.Equal(t, 70, res.Summary.WarehouseStockTotal)
		require.Len(t, res.Diagnostics, 1)
		assert.Equal(t, "monthly_consumption_rate", res.Diagnostics[0].Field)
		assert.Equal(t, 0.0, fx.record.Items[1].WarehouseStock)
	})

	t.Run("item code required", func(t *testing.T) {
		body := map[string]any{"edits": []map[string]any{{"warehouse_stock": 3}}}
		rr := testutil.ExecuteRequest(fx.router, testutil.NewHTTPRequest(http.MethodPost, path, body))
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, decodeError(t, rr.Body.Bytes()).Error.Details, "RecomputeRequest.Edits[0].ItemCode")
	})

	t.Run("unknown field", func(t *testing.T) {
		body := map[string]any{"edits": []map[string]any{}, "period": "2024-04"}
		rr := testutil.ExecuteRequest(fx.router, testutil.NewHTTPRequest(http.MethodPost, path, body))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("item outside the record", func(t *testing.T) {
		body := map[string]any{"edits": []map[string]any{{"item_code": 1, "active": false}}}
		rr := testutil.ExecuteRequest(fx.router, testutil.NewHTTPRequest(http.MethodPost, path, body))
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, decodeError(t, rr.Body.Bytes()).Error.Details, "edits[0].item_code")
	})
}

func TestClassify(t *testing.T) {
	fx := setup(t)

	body := map[string]any{"total_stock": "10", "monthly_consumption_rate": 5}
	rr := testutil.ExecuteRequest(fx.router, testutil.NewHTTPRequest(http.MethodPost, "/coverage/classify", body))
	require.Equal(t, http.StatusOK, rr.Code)

	var res handler.ClassifyResponse
	testutil.ParseJSONBody(t, rr, &res)
	assert.Equal(t, 2.0, res.Ratio)
	assert.Equal(t, 3, res.Bucket)
	assert.Equal(t, coverage.LabelUpToThree, res.Label)
	assert.Empty(t, res.Diagnostics)

	body = map[string]any{"total_stock": "diez", "monthly_consumption_rate": 5}
	rr = testutil.ExecuteRequest(fx.router, testutil.NewHTTPRequest(http.MethodPost, "/coverage/classify", body))
	require.Equal(t, http.StatusOK, rr.Code)
	testutil.ParseJSONBody(t, rr, &res)
	assert.Equal(t, 0, res.Bucket)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, "total_stock", res.Diagnostics[0].Field)
}

func TestLotAlerts(t *testing.T) {
	fx := setup(t)

	rr := testutil.ExecuteRequest(fx.router, testutil.NewHTTPRequest(http.MethodGet, "/lots/alerts?at=2024-03-01", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var feed service.AlertFeed
	testutil.ParseJSONBody(t, rr, &feed)
	require.Len(t, feed.Alerts, 2)
	assert.Equal(t, "gone", feed.Alerts[0].Lot.ID)
	assert.Equal(t, expiry.StateExpired, feed.Alerts[0].State)
	assert.Equal(t, "soon", feed.Alerts[1].Lot.ID)
	assert.Equal(t, expiry.StateUpcoming, feed.Alerts[1].State)

	t.Run("day-first date", func(t *testing.T) {
		rr := testutil.ExecuteRequest(fx.router, testutil.NewHTTPRequest(http.MethodGet, "/lots/alerts?at=01/03/2024", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		var again service.AlertFeed
		testutil.ParseJSONBody(t, rr, &again)
		assert.Len(t, again.Alerts, 2)
	})

	t.Run("bad date", func(t *testing.T) {
		rr := testutil.ExecuteRequest(fx.router, testutil.NewHTTPRequest(http.MethodGet, "/lots/alerts?at=tomorrow", nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("defaults to now", func(t *testing.T) {
		rr := testutil.ExecuteRequest(fx.router, testutil.NewHTTPRequest(http.MethodGet, "/lots/alerts", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestLotTrafficLights(t *testing.T) {
	fx := setup(t)

	rr := testutil.ExecuteRequest(fx.router, testutil.NewHTTPRequest(http.MethodGet, "/lots/traffic-light?at=2024-03-01", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var lights []service.LotLight
	testutil.ParseJSONBody(t, rr, &lights)
	got := map[string]expiry.Light{}
	for _, l := range lights {
		got[l.Lot.ID] = l.Light
	}
	assert.Equal(t, map[string]expiry.Light{
		"soon": expiry.LightRed,
		"gone": expiry.LightRed,
		"far":  expiry.LightGreen,
	}, got)
}
