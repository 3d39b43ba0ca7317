package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUSDRateForDate_MemoizesPerDate(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "USD", r.URL.Query().Get("valcode"))
		w.Write([]byte(`[{"cc":"USD","rate":41.25}]`))
	}))
	defer srv.Close()

	s := NewWithClient(srv.Client(), srv.URL)
	ctx := context.Background()

	assert.InDelta(t, 41.25, s.USDRateForDate(ctx, "20250116"), 1e-9)
	assert.InDelta(t, 41.25, s.USDRateForDate(ctx, "20250116"), 1e-9)
	assert.Equal(t, int32(1), calls.Load())

	s.USDRateForDate(ctx, "20250117")
	assert.Equal(t, int32(2), calls.Load())
}

func TestUSDRateForDate_FailureDegradesToZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewWithClient(srv.Client(), srv.URL)
	assert.Equal(t, 0.0, s.USDRateForDate(context.Background(), "20250116"))
	// Failures are memoized too: no retry storm inside a single export run.
	assert.Equal(t, 0.0, s.USDRateForDate(context.Background(), "20250116"))
}

func TestUSDRateForDate_EmptyDate(t *testing.T) {
	s := NewWithClient(http.DefaultClient, "http://127.0.0.1:0")
	assert.Equal(t, 0.0, s.USDRateForDate(context.Background(), ""))
}

func TestReset(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`[{"cc":"USD","rate":40.0}]`))
	}))
	defer srv.Close()

	s := NewWithClient(srv.Client(), srv.URL)
	s.USDRateForDate(context.Background(), "20250101")
	s.Reset()
	s.USDRateForDate(context.Background(), "20250101")
	assert.Equal(t, int32(2), calls.Load())
}
