package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v6/latest/INR", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":"success","base_code":"inr","rates":{"INR":1,"USD":0.011366,"EUR":0.009772}}`))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL + "/v6/latest/INR").Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "INR", got.BaseCode)
	assert.Equal(t, "0.011366", got.Rates["USD"].String())
	assert.Len(t, got.Rates, 3)
}

func TestLatestErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "client error", status: http.StatusNotFound, body: `{"result":"error","error-type":"unsupported-code"}`},
		{name: "feed error", status: http.StatusOK, body: `{"result":"error","error-type":"invalid-key"}`},
		{name: "empty table", status: http.StatusOK, body: `{"result":"success","base_code":"INR","rates":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL).Latest(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestLatestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":"success","base_code":"INR","rates":{"INR":1}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Latest(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
}
