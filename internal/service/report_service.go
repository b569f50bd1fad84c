package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/sellerledger/backend-go/internal/cache"
	"github.com/sellerledger/backend-go/internal/engine"
	"github.com/sellerledger/backend-go/internal/repository"
)

type ReportService struct {
	uploads     repository.UploadRepository
	results     repository.ResultRepository
	reportCache cache.ReportCache
}

func NewReportService(uploads repository.UploadRepository, results repository.ResultRepository, reportCache cache.ReportCache) *ReportService {
	if reportCache == nil {
		reportCache = cache.NoopReportCache{}
	}
	return &ReportService{uploads: uploads, results: results, reportCache: reportCache}
}

// Monthly aggregates the analyzed order summary of one upload into monthly
// P&L buckets. uploadID zero selects the newest upload of the marketplace by
// creation time; the result must already exist, analysis is never triggered
// implicitly.
func (s *ReportService) Monthly(ctx context.Context, uploadID int64, marketplace string) (*engine.Report, int64, error) {
	if uploadID == 0 {
		latest, err := s.uploads.Latest(ctx, marketplace)
		if err != nil {
			return nil, 0, err
		}
		uploadID = latest.ID
	}

	if report, ok := s.reportCache.GetReport(ctx, uploadID, marketplace); ok {
		return report, uploadID, nil
	}

	rec, err := s.results.Get(ctx, uploadID)
	if err != nil {
		return nil, 0, err
	}

	report := engine.MonthlyReport(rec.Sheets.OrderSummary)
	s.reportCache.SetReport(ctx, uploadID, marketplace, report)

	log.Debug().
		Int64("upload_id", uploadID).
		Int("months", len(report.Months)).
		Msg("monthly report computed")
	return report, uploadID, nil
}
