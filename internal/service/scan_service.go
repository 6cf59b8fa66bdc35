package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"platewatch-service/internal/cache"
	"platewatch-service/internal/domain/scan"
	"platewatch-service/internal/plate"
	"platewatch-service/internal/repository"
)

type OCREngine interface {
	DetectPlates(ctx context.Context, image []byte) ([]scan.DetectedPlate, error)
}

type ComplianceChecker interface {
	Check(ctx context.Context, plateNumber string) (scan.VehicleStatus, error)
}

type FineIssuer interface {
	IssueFine(ctx context.Context, status scan.VehicleStatus) (*scan.Fine, error)
}

// FineNotifier reports issued fines to the external system, best effort.
type FineNotifier interface {
	NotifyFine(ctx context.Context, fine *scan.Fine)
}

type ScanLogStore interface {
	AppendScanLog(ctx context.Context, log *repository.ScanLog) error
}

// ScanService orchestrates one frame: OCR, per-detection normalization,
// cache-deduplicated compliance checks, and fine issuance on the miss path.
type ScanService struct {
	ocr      OCREngine
	cache    *cache.PlateCache
	checker  ComplianceChecker
	fines    FineIssuer
	notifier FineNotifier
	scanLogs ScanLogStore

	minConfidence     float64
	fineConfidenceMin float64
	log               zerolog.Logger
}

func NewScanService(
	ocr OCREngine,
	plateCache *cache.PlateCache,
	checker ComplianceChecker,
	fines FineIssuer,
	notifier FineNotifier,
	scanLogs ScanLogStore,
	minConfidence, fineConfidenceMin float64,
	log zerolog.Logger,
) *ScanService {
	return &ScanService{
		ocr:               ocr,
		cache:             plateCache,
		checker:           checker,
		fines:             fines,
		notifier:          notifier,
		scanLogs:          scanLogs,
		minConfidence:     minConfidence,
		fineConfidenceMin: fineConfidenceMin,
		log:               log,
	}
}

// ProcessFrame runs the full pipeline for one decoded frame. An OCR failure
// fails the frame; a failure while processing a single detection only marks
// that detection's entry and the rest of the frame proceeds.
func (s *ScanService) ProcessFrame(ctx context.Context, image []byte) *scan.FrameResponse {
	start := time.Now()

	detections, err := s.ocr.DetectPlates(ctx, image)
	if err != nil {
		s.log.Error().Err(err).Msg("ocr engine failed")
		return &scan.FrameResponse{
			Success:          false,
			Results:          []scan.ScanResult{},
			Error:            err.Error(),
			ProcessingTimeMS: msSince(start),
		}
	}

	results := make([]*scan.ScanResult, len(detections))
	g, gctx := errgroup.WithContext(ctx)
	for i, detection := range detections {
		i, detection := i, detection
		g.Go(func() error {
			results[i] = s.processDetection(gctx, detection)
			return nil
		})
	}
	_ = g.Wait()

	kept := make([]scan.ScanResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			kept = append(kept, *r)
		}
	}

	return &scan.FrameResponse{
		Success:          true,
		PlatesDetected:   len(kept),
		Results:          kept,
		ProcessingTimeMS: msSince(start),
	}
}

// processDetection handles one OCR detection. Returns nil when the detection
// is dropped (low confidence or unusable text).
func (s *ScanService) processDetection(ctx context.Context, detection scan.DetectedPlate) *scan.ScanResult {
	plateNumber, err := plate.Normalize(detection.RawText, detection.Confidence, s.minConfidence)
	if err != nil {
		s.log.Debug().
			Err(err).
			Str("raw_text", detection.RawText).
			Float64("confidence", detection.Confidence).
			Msg("dropped detection")
		return nil
	}

	// Cache population outlives the frame request: an in-flight compliance
	// check completes even if the client disconnects.
	checkCtx := context.WithoutCancel(ctx)
	status, cached, err := s.cache.GetOrCompute(checkCtx, plateNumber, func(cctx context.Context) (scan.VehicleStatus, error) {
		return s.checker.Check(cctx, plateNumber)
	})
	if err != nil {
		s.log.Error().Err(err).Str("plate", plateNumber).Msg("compliance check failed")
		return &scan.ScanResult{
			PlateNumber: plateNumber,
			Confidence:  detection.Confidence,
			Error:       err.Error(),
		}
	}

	result := &scan.ScanResult{
		PlateNumber: plateNumber,
		Confidence:  detection.Confidence,
		Cached:      cached,
		Status:      &status,
	}

	if cached {
		s.log.Debug().Str("plate", plateNumber).Msg("returning cached compliance status")
		s.appendScanLog(checkCtx, result, status)
		return result
	}

	// Fines fire only on the miss path: a cached status already had its
	// violation handled on first sighting.
	if !status.IsCompliant() && detection.Confidence >= s.fineConfidenceMin {
		fine, err := s.fines.IssueFine(checkCtx, status)
		if err != nil {
			result.Error = err.Error()
		} else if fine != nil {
			result.FineIssued = true
			result.FineAmount = &fine.Amount
			if s.notifier != nil {
				s.notifier.NotifyFine(checkCtx, fine)
			}
		}
	} else if !status.IsCompliant() {
		s.log.Info().
			Str("plate", plateNumber).
			Float64("confidence", detection.Confidence).
			Msg("non-compliant vehicle below fine confidence, not fining")
	}

	s.appendScanLog(checkCtx, result, status)
	return result
}

func (s *ScanService) appendScanLog(ctx context.Context, result *scan.ScanResult, status scan.VehicleStatus) {
	if s.scanLogs == nil {
		return
	}
	entry := &repository.ScanLog{
		PlateNumber:    result.PlateNumber,
		ScannedAt:      time.Now(),
		Confidence:     result.Confidence,
		RoadTaxValid:   &status.RoadTaxValid,
		InsuranceValid: &status.InsuranceValid,
		FineIssued:     result.FineIssued,
		CachedResult:   result.Cached,
	}
	if err := s.scanLogs.AppendScanLog(ctx, entry); err != nil {
		s.log.Warn().Err(err).Str("plate", result.PlateNumber).Msg("failed to append scan log")
	}
}

func (s *ScanService) CacheStats() scan.CacheStats {
	return s.cache.Stats()
}

func (s *ScanService) ClearCache() {
	s.cache.Clear()
	s.log.Info().Msg("plate cache cleared")
}

func (s *ScanService) SweepCache() int {
	removed := s.cache.Sweep()
	if removed > 0 {
		s.log.Info().Int("removed", removed).Msg("swept expired cache entries")
	}
	return removed
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
