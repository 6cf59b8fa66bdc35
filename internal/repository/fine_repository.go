package repository

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"platewatch-service/internal/domain/scan"
)

type FineRepository struct {
	db *gorm.DB
}

func NewFineRepository(db *gorm.DB) *FineRepository {
	return &FineRepository{db: db}
}

type Fine struct {
	ID             int64     `gorm:"primaryKey"`
	Reference      string    `gorm:"not null;uniqueIndex"`
	PlateNumber    string    `gorm:"not null;index"`
	OwnerName      *string
	OwnerID        *string
	FineType       string    `gorm:"not null"`
	Amount         float64   `gorm:"not null"`
	StatusSnapshot datatypes.JSON
	IssuedAt       time.Time `gorm:"not null"`
	Paid           bool      `gorm:"not null;default:false"`
	PaidAt         *time.Time
	CreatedAt      time.Time
}

type ScanLog struct {
	ID             int64     `gorm:"primaryKey"`
	PlateNumber    string    `gorm:"not null;index"`
	ScannedAt      time.Time `gorm:"not null"`
	Confidence     float64   `gorm:"not null"`
	RoadTaxValid   *bool
	InsuranceValid *bool
	FineIssued     bool `gorm:"not null;default:false"`
	CachedResult   bool `gorm:"not null;default:false"`
	CreatedAt      time.Time
}

// AppendFine durably stores a new fine and fills in its generated ID.
func (r *FineRepository) AppendFine(ctx context.Context, fine *scan.Fine, status scan.VehicleStatus) error {
	snapshot, err := json.Marshal(status)
	if err != nil {
		return err
	}

	dbFine := Fine{
		Reference:      fine.Reference,
		PlateNumber:    fine.PlateNumber,
		FineType:       string(fine.FineType),
		Amount:         fine.Amount,
		StatusSnapshot: snapshot,
		IssuedAt:       fine.IssuedAt,
		CreatedAt:      time.Now(),
	}
	if fine.OwnerName != "" {
		dbFine.OwnerName = &fine.OwnerName
	}
	if fine.OwnerID != "" {
		dbFine.OwnerID = &fine.OwnerID
	}

	if err := r.db.WithContext(ctx).Create(&dbFine).Error; err != nil {
		return err
	}

	fine.ID = dbFine.ID
	return nil
}

func (r *FineRepository) ListFines(ctx context.Context, limit int, unpaidOnly bool) ([]scan.Fine, error) {
	query := r.db.WithContext(ctx).Model(&Fine{}).Order("issued_at DESC")
	if unpaidOnly {
		query = query.Where("paid = ?", false)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []Fine
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	fines := make([]scan.Fine, 0, len(rows))
	for _, row := range rows {
		fines = append(fines, toDomainFine(row))
	}
	return fines, nil
}

func (r *FineRepository) FinesForPlate(ctx context.Context, plateNumber string) ([]scan.Fine, error) {
	var rows []Fine
	err := r.db.WithContext(ctx).
		Where("plate_number = ?", plateNumber).
		Order("issued_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	fines := make([]scan.Fine, 0, len(rows))
	for _, row := range rows {
		fines = append(fines, toDomainFine(row))
	}
	return fines, nil
}

// MarkFinePaid flips the paid flag. The bool reports whether an unpaid fine
// with that ID existed.
func (r *FineRepository) MarkFinePaid(ctx context.Context, fineID int64) (bool, error) {
	result := r.db.WithContext(ctx).Model(&Fine{}).
		Where("id = ? AND paid = ?", fineID, false).
		Updates(map[string]interface{}{"paid": true, "paid_at": time.Now()})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *FineRepository) Summary(ctx context.Context) (*scan.FineSummary, error) {
	summary := &scan.FineSummary{FinesByType: make(map[string]int64)}

	type totals struct {
		Count  int64
		Amount float64
	}

	var all totals
	err := r.db.WithContext(ctx).Model(&Fine{}).
		Select("COUNT(*) as count, COALESCE(SUM(amount), 0) as amount").
		Scan(&all).Error
	if err != nil {
		return nil, err
	}

	var unpaid totals
	err = r.db.WithContext(ctx).Model(&Fine{}).
		Where("paid = ?", false).
		Select("COUNT(*) as count, COALESCE(SUM(amount), 0) as amount").
		Scan(&unpaid).Error
	if err != nil {
		return nil, err
	}

	type typeCount struct {
		FineType string
		Count    int64
	}
	var byType []typeCount
	err = r.db.WithContext(ctx).Model(&Fine{}).
		Select("fine_type, COUNT(*) as count").
		Group("fine_type").
		Scan(&byType).Error
	if err != nil {
		return nil, err
	}

	summary.TotalFines = int(all.Count)
	summary.UnpaidFines = int(unpaid.Count)
	summary.PaidFines = int(all.Count - unpaid.Count)
	summary.TotalAmount = all.Amount
	summary.UnpaidAmount = unpaid.Amount
	summary.CollectedAmount = all.Amount - unpaid.Amount
	for _, tc := range byType {
		summary.FinesByType[tc.FineType] = tc.Count
	}
	return summary, nil
}

func (r *FineRepository) AppendScanLog(ctx context.Context, log *ScanLog) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(log).Error
}

// DeleteOldScanLogs removes scan logs older than the given number of days.
func (r *FineRepository) DeleteOldScanLogs(ctx context.Context, days int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	result := r.db.WithContext(ctx).
		Where("scanned_at < ?", cutoff).
		Delete(&ScanLog{})
	return result.RowsAffected, result.Error
}

func toDomainFine(row Fine) scan.Fine {
	fine := scan.Fine{
		ID:          row.ID,
		Reference:   row.Reference,
		PlateNumber: row.PlateNumber,
		FineType:    scan.FineType(row.FineType),
		Amount:      row.Amount,
		IssuedAt:    row.IssuedAt,
		Paid:        row.Paid,
		PaidAt:      row.PaidAt,
	}
	if row.OwnerName != nil {
		fine.OwnerName = *row.OwnerName
	}
	if row.OwnerID != nil {
		fine.OwnerID = *row.OwnerID
	}
	return fine
}
