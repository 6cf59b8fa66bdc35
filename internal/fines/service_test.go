package fines

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"platewatch-service/internal/domain/scan"
)

type fakeStore struct {
	fines     []scan.Fine
	appendErr error
}

func (f *fakeStore) AppendFine(_ context.Context, fine *scan.Fine, _ scan.VehicleStatus) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	fine.ID = int64(len(f.fines) + 1)
	f.fines = append(f.fines, *fine)
	return nil
}

func (f *fakeStore) ListFines(context.Context, int, bool) ([]scan.Fine, error) {
	return f.fines, nil
}

func (f *fakeStore) FinesForPlate(_ context.Context, plateNumber string) ([]scan.Fine, error) {
	var out []scan.Fine
	for _, fine := range f.fines {
		if fine.PlateNumber == plateNumber {
			out = append(out, fine)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkFinePaid(_ context.Context, fineID int64) (bool, error) {
	for i := range f.fines {
		if f.fines[i].ID == fineID && !f.fines[i].Paid {
			f.fines[i].Paid = true
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) Summary(context.Context) (*scan.FineSummary, error) {
	return &scan.FineSummary{}, nil
}

func newTestService(store Store) *Service {
	return NewService(store, 150.00, 300.00, zerolog.Nop())
}

func status(taxValid, insuranceValid bool) scan.VehicleStatus {
	return scan.VehicleStatus{
		PlateNumber:    "WXY9999",
		OwnerName:      "Tan Wei Ming",
		RoadTaxValid:   taxValid,
		InsuranceValid: insuranceValid,
	}
}

func TestCalculateFine(t *testing.T) {
	s := newTestService(&fakeStore{})

	amount, fineType := s.CalculateFine(status(false, true))
	assert.Equal(t, 150.00, amount)
	assert.Equal(t, scan.FineRoadTax, fineType)

	amount, fineType = s.CalculateFine(status(true, false))
	assert.Equal(t, 300.00, amount)
	assert.Equal(t, scan.FineInsurance, fineType)

	amount, fineType = s.CalculateFine(status(false, false))
	assert.Equal(t, 450.00, amount)
	assert.Equal(t, scan.FineBoth, fineType)

	amount, _ = s.CalculateFine(status(true, true))
	assert.Zero(t, amount)
}

func TestIssueFineRecordsOne(t *testing.T) {
	store := &fakeStore{}
	s := newTestService(store)

	fine, err := s.IssueFine(context.Background(), status(false, false))
	require.NoError(t, err)
	require.NotNil(t, fine)

	assert.Equal(t, "WXY9999", fine.PlateNumber)
	assert.Equal(t, scan.FineBoth, fine.FineType)
	assert.Equal(t, 450.00, fine.Amount)
	assert.NotEmpty(t, fine.Reference)
	assert.False(t, fine.IssuedAt.IsZero())
	assert.Len(t, store.fines, 1)
}

func TestIssueFineSkipsCompliantVehicle(t *testing.T) {
	store := &fakeStore{}
	s := newTestService(store)

	fine, err := s.IssueFine(context.Background(), status(true, true))
	require.NoError(t, err)
	assert.Nil(t, fine)
	assert.Empty(t, store.fines)
}

func TestIssueFineSurfacesPersistenceFailure(t *testing.T) {
	store := &fakeStore{appendErr: errors.New("connection refused")}
	s := newTestService(store)

	_, err := s.IssueFine(context.Background(), status(false, true))
	assert.ErrorIs(t, err, ErrPersistenceWrite)
}

func TestMarkFinePaid(t *testing.T) {
	store := &fakeStore{}
	s := newTestService(store)

	fine, err := s.IssueFine(context.Background(), status(false, true))
	require.NoError(t, err)

	require.NoError(t, s.MarkFinePaid(context.Background(), fine.ID))
	assert.True(t, store.fines[0].Paid)

	err = s.MarkFinePaid(context.Background(), 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}
