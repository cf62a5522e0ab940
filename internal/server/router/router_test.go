package router

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siea/ricequote/internal/config"
	"github.com/siea/ricequote/internal/domain/apperr"
	"github.com/siea/ricequote/internal/domain/models"
	"github.com/siea/ricequote/internal/repository/memory"
	"github.com/siea/ricequote/internal/server/handlers"
	"github.com/siea/ricequote/internal/service/admin"
	"github.com/siea/ricequote/internal/service/allocator"
	"github.com/siea/ricequote/internal/service/audit"
	"github.com/siea/ricequote/internal/service/cart"
	"github.com/siea/ricequote/internal/service/quoting"
	"github.com/siea/ricequote/internal/service/submission"
)

type testServer struct {
	store  *memory.Store
	engine http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	tariff, err := config.LoadTariff("")
	require.NoError(t, err)

	store := memory.NewStore()
	require.NoError(t, store.SaveProduct(context.Background(), models.Product{
		ID:   "basmati-1121",
		Name: map[string]string{"en": "1121 Basmati"},
		Grades: map[string]models.Grade{
			"g1": {Label: "Steam", PricePerKg: decimal.NewFromInt(95)},
		},
	}))

	defaults := config.DefaultRateTable(tariff)
	pricer := quoting.NewService(store, store, tariff, defaults, nil)
	carts := cart.NewService(store, pricer.Resolver(), nil)
	auditLog := audit.NewLogger(store, nil)

	coordinator := submission.NewCoordinator(submission.Dependencies{
		Pricer:    pricer,
		Allocator: allocator.New(store, nil),
		Quotes:    store,
		Audit:     auditLog,
		Carts:     carts,
		Validator: submission.NewCustomerValidator(tariff.PhoneDigits),
	}, nil)

	adminSvc := admin.NewService(admin.Dependencies{
		Quotes:       store,
		Catalog:      store,
		Rates:        store,
		RateReader:   pricer,
		DefaultRates: defaults,
		Audit:        auditLog,
	}, nil)

	engine := New(Handlers{
		Quotes: handlers.NewQuoteHandler(pricer, coordinator, nil),
		Carts:  handlers.NewCartHandler(carts, nil),
		Admin:  handlers.NewAdminHandler(adminSvc, store, nil),
	}, nil)

	return &testServer{store: store, engine: engine}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

var adminHeaders = map[string]string{handlers.HeaderAdminEmail: "ops@siea.in"}

func orderBody() map[string]any {
	return map[string]any{
		"kind": "bulk",
		"customer": map[string]any{
			"fullName":    "Asha Rao",
			"email":       "asha@example.com",
			"countryCode": "+91",
			"phone":       "9876543210",
			"street":      "12 GT Road",
			"city":        "Karnal",
			"state":       "Haryana",
			"country":     "India",
			"pincode":     "132001",
		},
		"shipping": map[string]any{"packing": "Jute Bags", "currency": "USD"},
		"product":  map[string]any{"productId": "basmati-1121", "grade": "Steam", "quantity": "10kg"},
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestPriceQuote(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/quotes/price", map[string]any{
		"productId": "basmati-1121",
		"grade":     "Steam",
		"quantity":  "10kg",
		"shipping":  map[string]any{"packing": "Jute Bags"},
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var view quoting.QuoteView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.NotNil(t, view.Breakdown)
	assert.Equal(t, "1037.98", view.Breakdown.GrandTotal.String())
	assert.False(t, view.PriceOnRequest)
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name    string
		method  string
		path    string
		body    any
		headers map[string]string
		want    int
	}{
		{name: "malformed body", method: http.MethodPost, path: "/api/quotes/price", body: "nope", want: http.StatusBadRequest},
		{name: "bad quantity", method: http.MethodPost, path: "/api/quotes/price",
			body: map[string]any{"productId": "basmati-1121", "grade": "Steam", "quantity": "7kg"}, want: http.StatusBadRequest},
		{name: "unknown currency", method: http.MethodPost, path: "/api/quotes/price",
			body: map[string]any{"productId": "basmati-1121", "grade": "Steam", "quantity": "10kg", "shipping": map[string]any{"currency": "JPY"}},
			want: http.StatusUnprocessableEntity},
		{name: "admin without identity", method: http.MethodDelete, path: "/api/admin/quotes/BulkQuote-1", want: http.StatusUnauthorized},
		{name: "missing quote", method: http.MethodDelete, path: "/api/admin/quotes/BulkQuote-1", headers: adminHeaders, want: http.StatusNotFound},
		{name: "base rate", method: http.MethodPut, path: "/api/admin/exchange-rates/INR", body: map[string]any{"rate": "2"}, headers: adminHeaders, want: http.StatusBadRequest},
		{name: "history without path", method: http.MethodGet, path: "/api/admin/history", headers: adminHeaders, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.body, tt.headers)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestStatusFor(t *testing.T) {
	allocErr := fmt.Errorf("%w: counter bulkQuote: timeout", apperr.ErrAllocation)
	assert.Equal(t, http.StatusServiceUnavailable, handlers.StatusFor(allocErr))
	assert.Equal(t, http.StatusInternalServerError, handlers.StatusFor(assert.AnError))
}

func TestSubmitThenTransition(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/quotes", orderBody(), map[string]string{handlers.HeaderUserEmail: "asha@example.com"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res struct {
		QuoteID string       `json:"quoteId"`
		Quote   models.Quote `json:"quote"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "BulkQuote-1", res.QuoteID)
	assert.Equal(t, models.QuoteStatusPending, res.Quote.Status)

	rec = s.do(t, http.MethodPatch, "/api/admin/quotes/BulkQuote-1/status", map[string]any{"status": "Completed"}, adminHeaders)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPatch, "/api/admin/quotes/BulkQuote-1/status", map[string]any{"status": "Quoted"}, adminHeaders)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/admin/history?path=quotes/bulk/BulkQuote-1", nil, adminHeaders)
	require.Equal(t, http.StatusOK, rec.Code)
	var hist struct {
		Entries []models.AuditEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hist))
	require.Len(t, hist.Entries, 2)
	assert.Equal(t, models.ActionUpdate, hist.Entries[0].Action)
	assert.Equal(t, "ops@siea.in", hist.Entries[0].Actor)
	assert.Equal(t, models.ActionCreate, hist.Entries[1].Action)
	assert.Equal(t, "asha@example.com", hist.Entries[1].Actor)
}

func TestSubmitValidationReportsFields(t *testing.T) {
	s := newTestServer(t)
	body := orderBody()
	body["customer"].(map[string]any)["email"] = "not-an-email"

	rec := s.do(t, http.MethodPost, "/api/quotes", body, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var payload struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Contains(t, payload.Fields, "customer.email")
	assert.Empty(t, s.store.Quotes())
}

func TestCartRoutes(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/carts/asha@example.com/items", map[string]any{
		"productId":    "basmati-1121",
		"grade":        "Steam",
		"quantityUnit": "25kg",
		"numberOfBags": 2,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var c models.Cart
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	require.Len(t, c.Items, 1)
	line := c.Items[0].LineID

	rec = s.do(t, http.MethodGet, "/api/carts/asha@example.com", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"subtotal":"4750"`)

	rec = s.do(t, http.MethodPatch, "/api/carts/asha@example.com/items/"+line, map[string]any{"numberOfBags": 0}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	assert.Empty(t, c.Items)

	rec = s.do(t, http.MethodDelete, "/api/carts/asha@example.com/items/"+line, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/carts/asha@example.com", nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAdminCatalogAndRates(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPut, "/api/admin/products/basmati-1121/grades/g2", map[string]any{"grade": "Sella", "price_inr": "88"}, adminHeaders)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPut, "/api/admin/products/basmati-1121/grades/g3", map[string]any{"grade": "sella", "price_inr": "80"}, adminHeaders)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/admin/exchange-rates/aed", map[string]any{"rate": "0.0418"}, adminHeaders)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/exchange-rates", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var table models.RateTable
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &table))
	assert.Equal(t, "0.0418", table.Rates["AED"].String())

	rec = s.do(t, http.MethodPost, "/api/admin/exchange-rates/reset", nil, adminHeaders)
	require.Equal(t, http.StatusOK, rec.Code)
	var reset models.RateTable
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reset))
	assert.NotContains(t, reset.Rates, "AED")
	assert.Contains(t, reset.Rates, "USD")
}

func TestPortsForState(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/ports?state=haryana", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Ports []string `json:"ports"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"Kandla", "Mundra", "Nhava Sheva"}, body.Ports)

	rec = s.do(t, http.MethodGet, "/api/ports?state=Goa", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"state":"Goa","ports":[]}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/ports", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWatchRejectsUnknownQuantity(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/quotes/watch?productId=basmati-1121&grade=Steam&quantity=7kg", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWatchStreamsQuotes(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.engine)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		srv.URL+"/api/quotes/watch?productId=basmati-1121&grade=Steam&quantity=10%20KG&packing=Jute%20Bags", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	reader := bufio.NewReader(resp.Body)
	first := readEvent(t, reader)
	assert.Contains(t, first, `"grandTotal":"1037.98"`)

	require.NoError(t, s.store.SaveProduct(context.Background(), models.Product{
		ID:     "basmati-1121",
		Name:   map[string]string{"en": "1121 Basmati"},
		Grades: map[string]models.Grade{"g1": {Label: "Steam", PricePerKg: decimal.NewFromInt(100)}},
	}))
	second := readEvent(t, reader)
	assert.Contains(t, second, `"grandTotal":"1087.98"`)
}

// readEvent returns the data line of the next server-sent event.
func readEvent(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data:") {
			return line
		}
	}
}
