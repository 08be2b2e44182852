package taxclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/tax"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRequest() tax.Request {
	return tax.Request{
		Taxable:  decimal.RequireFromString("1187.50"),
		Employee: tax.EmployeeInfo{ID: "E-1", Name: "Ada Lovelace"},
		Work:     tax.WorkInfo{WeekEnding: time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC)},
	}
}

func TestClient_Calculate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/withholding", r.URL.Path)

		var req tax.Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "1187.5", req.Taxable.String())
		assert.Equal(t, "E-1", req.Employee.ID)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"federal":"101.12","state":"40","local":"0","fica":"73.63","medicare":"17.22","futa":"1","suta":"2"}`))
	}))
	defer srv.Close()

	w, err := NewClient(srv.URL+"/", srv.Client()).Calculate(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "101.12", w.Federal.String())
	assert.Equal(t, "73.63", w.FICA.String())
	assert.Equal(t, "234.97", w.Total().StringFixed(2))
}

func TestClient_Calculate_MissingComponent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"federal":"101.12","fica":"73.63"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, srv.Client()).Calculate(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, tax.ErrMalformedResult)
	assert.Contains(t, err.Error(), "medicare")
}

func TestClient_Calculate_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, srv.Client()).Calculate(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, tax.ErrMalformedResult)
}

func TestClient_Calculate_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"message":"maintenance"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, srv.Client()).Calculate(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, tax.ErrProviderUnavailable)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Contains(t, err.Error(), "maintenance")
}

func TestClient_Calculate_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, nil).Calculate(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, tax.ErrProviderUnavailable)
}

func TestClient_Calculate_ContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewClient(srv.URL, srv.Client()).Calculate(ctx, sampleRequest())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_Ping(t *testing.T) {
	healthy := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		if !healthy {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	assert.NoError(t, c.Ping(context.Background()))

	healthy = false
	assert.ErrorIs(t, c.Ping(context.Background()), tax.ErrProviderUnavailable)
}
