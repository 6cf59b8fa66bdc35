package fines

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"platewatch-service/internal/domain/scan"
)

var (
	// ErrPersistenceWrite marks a fine that was decided but could not be
	// durably recorded. Callers must surface it distinctly: an un-persisted
	// fine is a silent compliance gap.
	ErrPersistenceWrite = errors.New("fine persistence write failed")

	ErrNotFound = errors.New("fine not found")
)

// Store is the persistence boundary for fines.
type Store interface {
	AppendFine(ctx context.Context, fine *scan.Fine, status scan.VehicleStatus) error
	ListFines(ctx context.Context, limit int, unpaidOnly bool) ([]scan.Fine, error)
	FinesForPlate(ctx context.Context, plateNumber string) ([]scan.Fine, error)
	MarkFinePaid(ctx context.Context, fineID int64) (bool, error)
	Summary(ctx context.Context) (*scan.FineSummary, error)
}

type Service struct {
	store         Store
	roadTaxFine   float64
	insuranceFine float64
	log           zerolog.Logger
}

func NewService(store Store, roadTaxFine, insuranceFine float64, log zerolog.Logger) *Service {
	return &Service{
		store:         store,
		roadTaxFine:   roadTaxFine,
		insuranceFine: insuranceFine,
		log:           log,
	}
}

// CalculateFine maps a compliance status to a fine amount and type. A zero
// amount means the vehicle is compliant and no fine applies.
func (s *Service) CalculateFine(status scan.VehicleStatus) (float64, scan.FineType) {
	switch {
	case !status.RoadTaxValid && !status.InsuranceValid:
		return s.roadTaxFine + s.insuranceFine, scan.FineBoth
	case !status.RoadTaxValid:
		return s.roadTaxFine, scan.FineRoadTax
	case !status.InsuranceValid:
		return s.insuranceFine, scan.FineInsurance
	default:
		return 0, ""
	}
}

// IssueFine records exactly one fine for a freshly computed non-compliant
// status. Returns nil for compliant vehicles. Must only be called on the
// cache-miss path; a cached status already had its fine issued.
func (s *Service) IssueFine(ctx context.Context, status scan.VehicleStatus) (*scan.Fine, error) {
	amount, fineType := s.CalculateFine(status)
	if amount == 0 {
		return nil, nil
	}

	fine := &scan.Fine{
		Reference:   uuid.NewString(),
		PlateNumber: status.PlateNumber,
		OwnerName:   status.OwnerName,
		OwnerID:     status.OwnerID,
		FineType:    fineType,
		Amount:      amount,
		IssuedAt:    time.Now(),
	}

	if err := s.store.AppendFine(ctx, fine, status); err != nil {
		s.log.Error().
			Err(err).
			Str("plate", status.PlateNumber).
			Str("fine_type", string(fineType)).
			Float64("amount", amount).
			Msg("failed to persist fine")
		return nil, fmt.Errorf("%w: %v", ErrPersistenceWrite, err)
	}

	s.log.Info().
		Int64("fine_id", fine.ID).
		Str("reference", fine.Reference).
		Str("plate", fine.PlateNumber).
		Str("fine_type", string(fineType)).
		Float64("amount", amount).
		Str("source", string(status.Source)).
		Msg("issued fine")

	return fine, nil
}

func (s *Service) ListFines(ctx context.Context, limit int, unpaidOnly bool) ([]scan.Fine, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}
	return s.store.ListFines(ctx, limit, unpaidOnly)
}

func (s *Service) FinesForPlate(ctx context.Context, plateNumber string) ([]scan.Fine, error) {
	return s.store.FinesForPlate(ctx, plateNumber)
}

func (s *Service) MarkFinePaid(ctx context.Context, fineID int64) error {
	found, err := s.store.MarkFinePaid(ctx, fineID)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	s.log.Info().Int64("fine_id", fineID).Msg("fine marked as paid")
	return nil
}

func (s *Service) Summary(ctx context.Context) (*scan.FineSummary, error) {
	return s.store.Summary(ctx)
}
