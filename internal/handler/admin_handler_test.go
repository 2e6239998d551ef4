package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/slot-booking/internal/models"
	"github.com/noah-isme/slot-booking/internal/service"
	"github.com/noah-isme/slot-booking/pkg/storage"
)

type fakeEvents struct {
	events    []models.SlotEvent
	err       error
	lastLimit int
}

func (f *fakeEvents) Recent(_ context.Context, limit int) ([]models.SlotEvent, error) {
	f.lastLimit = limit
	return f.events, f.err
}

var adminTokens = service.NewAdminTokenService("admin-secret", "")

func newAdmin(t *testing.T, events *fakeEvents, checks map[string]ReadinessCheck) (*gin.Engine, *service.InventoryService) {
	t.Helper()
	return newAdminWithOptions(t, events, checks, AdminOptions{
		AllowedOrigins: []string{"https://ops.example.com"},
		Tokens:         adminTokens,
	})
}

func newAdminWithOptions(t *testing.T, events *fakeEvents, checks map[string]ReadinessCheck, opts AdminOptions) (*gin.Engine, *service.InventoryService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	inv := service.NewInventoryService([]models.ProviderSlots{
		{Provider: models.ServiceProvider{Name: haakon}, Slots: []models.TimeSlot{haakon15.Slot, haakon17.Slot}},
	}, nil, nil)
	metrics := service.NewMetricsService(inv)
	reports := service.NewReportService(inv)
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	snapshots := service.NewSnapshotService(reports, store, service.SnapshotConfig{}, nil)
	h := NewAdminHandler(metrics, reports, events, snapshots, checks)
	return NewAdminEngine(h, metrics, zap.NewNop(), opts), inv
}

func get(r *gin.Engine, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestAdminHealthAndReady(t *testing.T) {
	r, _ := newAdmin(t, &fakeEvents{}, map[string]ReadinessCheck{
		"postgres": func(context.Context) error { return nil },
	})

	assert.Equal(t, http.StatusOK, get(r, "/health").Code)
	rec := get(r, "/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	r, _ = newAdmin(t, &fakeEvents{}, map[string]ReadinessCheck{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})
	rec = get(r, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestAdminReservationsReport(t *testing.T) {
	r, inv := newAdmin(t, &fakeEvents{}, nil)
	require.NoError(t, inv.AddToBasket(context.Background(), 1, haakon15))

	rec := get(r, "/reservations?format=csv&state=basketed")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Disposition"), "attachment;"))
	assert.Equal(t, "provider,slot,state,owner\nHaakon Doctorsen,2019-02-20-15,BASKETED,1\n", rec.Body.String())

	rec = get(r, "/reservations?format=pdf")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF-"))

	rec = get(r, "/reservations?format=doc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminMetricsAndStats(t *testing.T) {
	r, _ := newAdmin(t, &fakeEvents{}, nil)
	get(r, "/health")

	rec := get(r, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",path="/health",status="200"} 1`)

	rec = get(r, "/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data models.ServerStats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Data.Slots["AVAILABLE"])
}

func TestAdminEvents(t *testing.T) {
	events := &fakeEvents{events: []models.SlotEvent{{ID: "e1", ClientID: 1, ToState: "RESERVED"}}}
	r, _ := newAdmin(t, events, nil)

	rec := get(r, "/events?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, events.lastLimit)
	assert.Contains(t, rec.Body.String(), `"count":1`)

	assert.Equal(t, http.StatusBadRequest, get(r, "/events?limit=abc").Code)

	events.err = errors.New("db down")
	assert.Equal(t, http.StatusInternalServerError, get(r, "/events").Code)
}

func TestAdminCORS(t *testing.T) {
	r, _ := newAdmin(t, &fakeEvents{}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/stats", nil)
	req.Header.Set("Origin", "https://ops.example.com")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://ops.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestAdminSnapshots(t *testing.T) {
	r, inv := newAdmin(t, &fakeEvents{}, nil)
	require.NoError(t, inv.AddToBasket(context.Background(), 1, haakon17))

	token, err := adminTokens.Issue("ops", time.Minute)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/snapshots?format=csv", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Data struct {
			Name string `json:"name"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.True(t, strings.HasSuffix(created.Data.Name, ".csv"))

	rec = get(r, "/snapshots")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), created.Data.Name)

	rec = get(r, "/snapshots/"+created.Data.Name)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Haakon Doctorsen,2019-02-20-17,BASKETED,1")

	assert.Equal(t, http.StatusNotFound, get(r, "/snapshots/reservations-20000101-000000.csv").Code)
}

func TestAdminSnapshotWriteRequiresToken(t *testing.T) {
	r, _ := newAdmin(t, &fakeEvents{}, nil)

	post := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/snapshots", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := post("")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
	assert.Equal(t, http.StatusUnauthorized, post("Basic b3BzOm9wcw==").Code)
	assert.Equal(t, http.StatusUnauthorized, post("Bearer not-a-token").Code)

	foreign, err := service.NewAdminTokenService("other-secret", "").Issue("ops", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, post("Bearer "+foreign).Code)

	assert.Equal(t, http.StatusOK, get(r, "/snapshots").Code)
}

func TestAdminReadOnlyWithoutTokens(t *testing.T) {
	r, _ := newAdminWithOptions(t, &fakeEvents{}, nil, AdminOptions{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/snapshots", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set("Origin", "https://ops.example.com")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
