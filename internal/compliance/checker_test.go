package compliance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"platewatch-service/internal/domain/scan"
)

func TestCheckLiveSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/vehicle/WXY9999", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"plate_number": "WXY9999",
			"owner_name": "Tan Wei Ming",
			"owner_id": "880101105533",
			"road_tax_valid": false,
			"insurance_valid": true
		}`))
	}))
	defer srv.Close()

	checker := NewChecker(srv.URL, 2*time.Second, true, zerolog.Nop())
	status, err := checker.Check(context.Background(), "WXY9999")
	require.NoError(t, err)

	assert.Equal(t, "WXY9999", status.PlateNumber)
	assert.Equal(t, "Tan Wei Ming", status.OwnerName)
	assert.False(t, status.RoadTaxValid)
	assert.True(t, status.InsuranceValid)
	assert.Equal(t, scan.SourceLive, status.Source)
}

func TestCheckUnknownVehicleIsCompliant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	checker := NewChecker(srv.URL, 2*time.Second, true, zerolog.Nop())
	status, err := checker.Check(context.Background(), "NEW1234")
	require.NoError(t, err)

	assert.True(t, status.RoadTaxValid)
	assert.True(t, status.InsuranceValid)
	assert.Equal(t, scan.SourceLive, status.Source)
}

func TestCheckFallsBackWhenAPIDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	checker := NewChecker(srv.URL, time.Second, true, zerolog.Nop())
	status, err := checker.Check(context.Background(), "WXY9999")
	require.NoError(t, err)
	assert.Equal(t, scan.SourceSynthetic, status.Source)
	assert.Equal(t, "WXY9999", status.PlateNumber)
	assert.NotEmpty(t, status.OwnerName)
	assert.Len(t, status.OwnerID, 12)
}

func TestSyntheticFallbackIsDeterministic(t *testing.T) {
	checker := NewChecker("http://127.0.0.1:1", time.Second, true, zerolog.Nop())

	first, err := checker.Check(context.Background(), "WXY9999")
	require.NoError(t, err)
	second, err := checker.Check(context.Background(), "WXY9999")
	require.NoError(t, err)

	assert.Equal(t, first.RoadTaxValid, second.RoadTaxValid)
	assert.Equal(t, first.InsuranceValid, second.InsuranceValid)
	assert.Equal(t, first.OwnerName, second.OwnerName)
	assert.Equal(t, first.OwnerID, second.OwnerID)

	other, err := checker.Check(context.Background(), "ZZZ0001")
	require.NoError(t, err)
	assert.NotEqual(t, first.OwnerID, other.OwnerID)
}

func TestCheckErrorsWhenFallbackDisabled(t *testing.T) {
	checker := NewChecker("http://127.0.0.1:1", time.Second, false, zerolog.Nop())

	_, err := checker.Check(context.Background(), "WXY9999")
	assert.ErrorIs(t, err, ErrCheckFailed)
}

func TestCheckFallsBackOnMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	checker := NewChecker(srv.URL, time.Second, true, zerolog.Nop())
	status, err := checker.Check(context.Background(), "WXY9999")
	require.NoError(t, err)
	assert.Equal(t, scan.SourceSynthetic, status.Source)
}

func TestCheckFallsBackOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	checker := NewChecker(srv.URL, time.Second, true, zerolog.Nop())
	status, err := checker.Check(context.Background(), "WXY9999")
	require.NoError(t, err)
	assert.Equal(t, scan.SourceSynthetic, status.Source)
}
