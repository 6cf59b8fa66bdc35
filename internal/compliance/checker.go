package compliance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"platewatch-service/internal/domain/scan"
)

// ErrCheckFailed is returned when the live validation API is unreachable and
// the synthetic fallback is disabled. Nothing is cached for the plate, so a
// later scan retries the check.
var ErrCheckFailed = errors.New("compliance check failed")

type vehicleResponse struct {
	PlateNumber     string    `json:"plate_number"`
	OwnerName       string    `json:"owner_name"`
	OwnerID         string    `json:"owner_id"`
	RoadTaxValid    *bool     `json:"road_tax_valid"`
	RoadTaxExpiry   time.Time `json:"road_tax_expiry"`
	InsuranceValid  *bool     `json:"insurance_valid"`
	InsuranceExpiry time.Time `json:"insurance_expiry"`
}

// Checker queries the external validation API for a vehicle's road-tax and
// insurance status. A single bounded attempt is made against the live API;
// on failure it falls back to deterministic synthetic data derived from the
// plate number, marked with SourceSynthetic.
type Checker struct {
	client            *http.Client
	baseURL           string
	syntheticFallback bool
	log               zerolog.Logger
}

func NewChecker(baseURL string, timeout time.Duration, syntheticFallback bool, log zerolog.Logger) *Checker {
	return &Checker{
		client:            &http.Client{Timeout: timeout},
		baseURL:           baseURL,
		syntheticFallback: syntheticFallback,
		log:               log,
	}
}

func (c *Checker) Check(ctx context.Context, plateNumber string) (scan.VehicleStatus, error) {
	status, err := c.checkLive(ctx, plateNumber)
	if err == nil {
		return status, nil
	}

	if !c.syntheticFallback {
		c.log.Error().Err(err).Str("plate", plateNumber).Msg("validation API unreachable, fallback disabled")
		return scan.VehicleStatus{}, fmt.Errorf("%w: %v", ErrCheckFailed, err)
	}

	c.log.Warn().Err(err).Str("plate", plateNumber).Msg("validation API unreachable, using synthetic status")
	return c.syntheticStatus(plateNumber), nil
}

func (c *Checker) checkLive(ctx context.Context, plateNumber string) (scan.VehicleStatus, error) {
	url := fmt.Sprintf("%s/vehicle/%s", c.baseURL, plateNumber)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return scan.VehicleStatus{}, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return scan.VehicleStatus{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var body vehicleResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return scan.VehicleStatus{}, fmt.Errorf("malformed response: %w", err)
		}
		return scan.VehicleStatus{
			PlateNumber:     plateNumber,
			OwnerName:       body.OwnerName,
			OwnerID:         body.OwnerID,
			RoadTaxValid:    body.RoadTaxValid == nil || *body.RoadTaxValid,
			RoadTaxExpiry:   body.RoadTaxExpiry,
			InsuranceValid:  body.InsuranceValid == nil || *body.InsuranceValid,
			InsuranceExpiry: body.InsuranceExpiry,
			FetchedAt:       time.Now(),
			Source:          scan.SourceLive,
		}, nil
	case http.StatusNotFound:
		// Vehicle unknown to the registry: treated as compliant.
		return scan.VehicleStatus{
			PlateNumber:    plateNumber,
			RoadTaxValid:   true,
			InsuranceValid: true,
			FetchedAt:      time.Now(),
			Source:         scan.SourceLive,
		}, nil
	default:
		return scan.VehicleStatus{}, fmt.Errorf("validation API returned status %d", resp.StatusCode)
	}
}

// NotifyFine reports an issued fine to the external API. Best effort: a
// failure is logged and swallowed, the fine is already durable locally.
func (c *Checker) NotifyFine(ctx context.Context, fine *scan.Fine) {
	payload, err := json.Marshal(map[string]interface{}{
		"plate_number": fine.PlateNumber,
		"fine_amount":  fine.Amount,
		"fine_type":    fine.FineType,
		"issued_at":    fine.IssuedAt.Format(time.RFC3339),
	})
	if err != nil {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/fines", bytes.NewReader(payload))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("plate", fine.PlateNumber).Msg("failed to notify external API about fine")
		return
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		c.log.Warn().Int("status", resp.StatusCode).Str("plate", fine.PlateNumber).Msg("external API rejected fine notification")
	}
}

var syntheticOwners = []string{
	"Ahmad bin Abdullah", "Tan Wei Ming", "Siti Nurhaliza",
	"Raj Kumar", "Lee Chong Wei", "Maria Gonzales",
	"Wong Kar Wai", "Fatimah binti Hassan", "Chen Xiaoming",
}

// syntheticStatus generates demo compliance data. The generator is seeded
// from a hash of the plate number, so the same plate always yields the same
// outcome across calls and restarts.
func (c *Checker) syntheticStatus(plateNumber string) scan.VehicleStatus {
	h := fnv.New64a()
	h.Write([]byte(plateNumber))
	seed := int64(h.Sum64())
	rng := rand.New(rand.NewSource(seed))

	taxValid := rng.Float64() < 0.6
	insuranceValid := rng.Float64() < 0.7

	ownerName := syntheticOwners[int(h.Sum64()%uint64(len(syntheticOwners)))]
	ownerID := make([]byte, 0, 12)
	for i := 0; i < 12; i++ {
		ownerID = append(ownerID, byte('0'+rng.Intn(10)))
	}

	now := time.Now()
	taxExpiry := expiryFor(now, rng, taxValid)
	insuranceExpiry := expiryFor(now, rng, insuranceValid)

	return scan.VehicleStatus{
		PlateNumber:     plateNumber,
		OwnerName:       ownerName,
		OwnerID:         string(ownerID),
		RoadTaxValid:    taxValid,
		RoadTaxExpiry:   taxExpiry,
		InsuranceValid:  insuranceValid,
		InsuranceExpiry: insuranceExpiry,
		FetchedAt:       now,
		Source:          scan.SourceSynthetic,
	}
}

func expiryFor(now time.Time, rng *rand.Rand, valid bool) time.Time {
	if valid {
		return now.AddDate(0, 0, 30+rng.Intn(336))
	}
	return now.AddDate(0, 0, -(1 + rng.Intn(180)))
}
