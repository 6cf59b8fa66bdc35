package scan

import (
	"time"
)

// StatusSource records where a compliance result came from.
type StatusSource string

const (
	SourceLive      StatusSource = "live"
	SourceSynthetic StatusSource = "synthetic"
)

type FineType string

const (
	FineRoadTax   FineType = "road_tax"
	FineInsurance FineType = "insurance"
	FineBoth      FineType = "both"
)

// DetectedPlate is a single OCR detection within one frame.
type DetectedPlate struct {
	RawText     string   `json:"text"`
	BoundingBox [][2]int `json:"box,omitempty"`
	Confidence  float64  `json:"confidence"`
}

// VehicleStatus is the road-tax and insurance snapshot for a vehicle.
type VehicleStatus struct {
	PlateNumber     string       `json:"plate_number"`
	OwnerName       string       `json:"owner_name,omitempty"`
	OwnerID         string       `json:"owner_id,omitempty"`
	RoadTaxValid    bool         `json:"road_tax_valid"`
	RoadTaxExpiry   time.Time    `json:"road_tax_expiry,omitempty"`
	InsuranceValid  bool         `json:"insurance_valid"`
	InsuranceExpiry time.Time    `json:"insurance_expiry,omitempty"`
	FetchedAt       time.Time    `json:"fetched_at"`
	Source          StatusSource `json:"source"`
}

func (s VehicleStatus) IsCompliant() bool {
	return s.RoadTaxValid && s.InsuranceValid
}

type Fine struct {
	ID          int64      `json:"id"`
	Reference   string     `json:"reference"`
	PlateNumber string     `json:"plate_number"`
	OwnerName   string     `json:"owner_name,omitempty"`
	OwnerID     string     `json:"owner_id,omitempty"`
	FineType    FineType   `json:"fine_type"`
	Amount      float64    `json:"amount"`
	IssuedAt    time.Time  `json:"issued_at"`
	Paid        bool       `json:"paid"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
}

// ScanResult is the per-detection outcome returned to the caller. Transient,
// never stored.
type ScanResult struct {
	PlateNumber string         `json:"plate_number"`
	Confidence  float64        `json:"confidence"`
	Cached      bool           `json:"cached"`
	Status      *VehicleStatus `json:"vehicle_status,omitempty"`
	FineIssued  bool           `json:"fine_issued"`
	FineAmount  *float64       `json:"fine_amount,omitempty"`
	Error       string         `json:"error,omitempty"`
}

type FrameResponse struct {
	Success          bool         `json:"success"`
	PlatesDetected   int          `json:"plates_detected"`
	Results          []ScanResult `json:"results"`
	ProcessingTimeMS float64      `json:"processing_time_ms"`
	Error            string       `json:"error,omitempty"`
}

type CacheStats struct {
	TotalEntries   int     `json:"total_entries"`
	ActiveEntries  int     `json:"active_entries"`
	ExpiredEntries int     `json:"expired_entries"`
	HitCount       int64   `json:"hit_count"`
	MissCount      int64   `json:"miss_count"`
	HitRate        float64 `json:"hit_rate"`
}

type FineSummary struct {
	TotalFines      int              `json:"total_fines"`
	UnpaidFines     int              `json:"unpaid_fines"`
	PaidFines       int              `json:"paid_fines"`
	TotalAmount     float64          `json:"total_amount"`
	UnpaidAmount    float64          `json:"unpaid_amount"`
	CollectedAmount float64          `json:"collected_amount"`
	FinesByType     map[string]int64 `json:"fines_by_type"`
}
