package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/sellerledger/backend-go/internal/cache"
	"github.com/sellerledger/backend-go/internal/domain"
	"github.com/sellerledger/backend-go/internal/engine"
	"github.com/sellerledger/backend-go/internal/repository"
	"github.com/sellerledger/backend-go/internal/spreadsheet"
	"github.com/sellerledger/backend-go/internal/storage"
)

// ErrNoRows is returned when an analysis run is requested for an upload that
// parsed to zero data rows.
var ErrNoRows = errors.New("upload has no data rows")

const workbookContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AnalysisService struct {
	uploads      repository.UploadRepository
	master       *MasterService
	results      repository.ResultRepository
	reportCache  cache.ReportCache
	archive      storage.Archive
	processedDir string
}

func NewAnalysisService(
	uploads repository.UploadRepository,
	master *MasterService,
	results repository.ResultRepository,
	reportCache cache.ReportCache,
	archive storage.Archive,
	processedDir string,
) *AnalysisService {
	if reportCache == nil {
		reportCache = cache.NoopReportCache{}
	}
	return &AnalysisService{
		uploads:      uploads,
		master:       master,
		results:      results,
		reportCache:  reportCache,
		archive:      archive,
		processedDir: processedDir,
	}
}

// Run analyzes one upload end to end: loads its raw rows and the marketplace's
// master snapshot, runs the engine, replaces the stored result, renders the
// workbook and invalidates cached reports for the upload.
func (s *AnalysisService) Run(ctx context.Context, uploadID int64) (*domain.AnalysisRecord, []byte, error) {
	upload, err := s.uploads.Get(ctx, uploadID)
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.uploads.Rows(ctx, uploadID)
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, ErrNoRows
	}

	masterRows, err := s.master.Rows(ctx, upload.Marketplace)
	if err != nil {
		return nil, nil, err
	}

	eng := engine.New(engine.ProfileFor(upload.Marketplace))
	result := eng.Analyze(rows, masterRows)

	rec := &domain.AnalysisRecord{
		UploadID:    uploadID,
		Filename:    upload.OriginalName,
		Marketplace: upload.Marketplace,
		Totals:      result.Totals,
		Sheets:      result.Sheets,
	}
	if err := s.results.Upsert(ctx, rec); err != nil {
		return nil, nil, err
	}

	workbook, err := spreadsheet.WorkbookBytes(spreadsheet.ResultSheets(result))
	if err != nil {
		return nil, nil, fmt.Errorf("could not render workbook for upload %d: %w", uploadID, err)
	}

	name := workbookName(uploadID)
	path := filepath.Join(s.processedDir, name)
	if err := os.WriteFile(path, workbook, 0o644); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("could not store analyzed workbook")
	}

	if s.archive != nil {
		key := "processed/" + name
		if err := s.archive.Upload(ctx, key, workbook, workbookContentType); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("workbook archive failed")
		}
	}

	s.reportCache.InvalidateUpload(ctx, uploadID)

	log.Info().
		Int64("upload_id", uploadID).
		Str("marketplace", upload.Marketplace).
		Int("orders", len(result.Sheets.OrderSummary)).
		Msg("analysis complete")
	return rec, workbook, nil
}

func workbookName(uploadID int64) string {
	return fmt.Sprintf("analyzed_%d.xlsx", uploadID)
}

func (s *AnalysisService) List(ctx context.Context, marketplace string) ([]domain.AnalysisSummary, error) {
	return s.results.List(ctx, marketplace)
}

func (s *AnalysisService) Get(ctx context.Context, uploadID int64) (*domain.AnalysisRecord, error) {
	return s.results.Get(ctx, uploadID)
}

// SheetSummary describes one result without its row payloads.
type SheetSummary struct {
	UploadID    int64          `json:"id"`
	Filename    string         `json:"filename"`
	Marketplace string         `json:"marketplace"`
	Totals      engine.Totals  `json:"totals"`
	SheetCounts map[string]int `json:"sheet_counts"`
}

func (s *AnalysisService) Summary(ctx context.Context, uploadID int64) (*SheetSummary, error) {
	rec, err := s.results.Get(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	return &SheetSummary{
		UploadID:    rec.UploadID,
		Filename:    rec.Filename,
		Marketplace: rec.Marketplace,
		Totals:      rec.Totals,
		SheetCounts: map[string]int{
			"order_summary":        len(rec.Sheets.OrderSummary),
			"order_unique_skus":    len(rec.Sheets.OrderUniqueSKUs),
			"raw_concat":           len(rec.Sheets.RawConcat),
			"sku_map":              len(rec.Sheets.SKUMap),
			"negative_orders":      len(rec.Sheets.NegativeOrders),
			"missing_cost_orders":  len(rec.Sheets.MissingCostOrders),
			"inactive_skus":        len(rec.Sheets.InactiveSKUs),
			"inactive_sku_summary": len(rec.Sheets.InactiveSKUSummary),
		},
	}, nil
}

// SheetRows returns one named result table. The boolean reports whether the
// sheet name is known.
func (s *AnalysisService) SheetRows(ctx context.Context, uploadID int64, sheet string) (any, bool, error) {
	rec, err := s.results.Get(ctx, uploadID)
	if err != nil {
		return nil, false, err
	}
	switch sheet {
	case "order_summary":
		return rec.Sheets.OrderSummary, true, nil
	case "order_unique_skus":
		return rec.Sheets.OrderUniqueSKUs, true, nil
	case "raw_concat":
		return rec.Sheets.RawConcat, true, nil
	case "sku_map":
		return rec.Sheets.SKUMap, true, nil
	case "negative_orders":
		return rec.Sheets.NegativeOrders, true, nil
	case "missing_cost_orders":
		return rec.Sheets.MissingCostOrders, true, nil
	case "inactive_skus":
		return rec.Sheets.InactiveSKUs, true, nil
	case "inactive_sku_summary":
		return rec.Sheets.InactiveSKUSummary, true, nil
	default:
		return nil, false, nil
	}
}

// OrderFilter narrows the order summary table. Zero values mean "no filter".
type OrderFilter struct {
	SKU  string // substring, case-insensitive
	Type string // exact, case-insensitive
	Date string // exact match on the order date string
}

// FilteredOrders is a filtered order summary slice plus sums recomputed over
// the filtered rows only.
type FilteredOrders struct {
	Orders []engine.OrderSummary `json:"orders"`
	Totals struct {
		TotalAmount float64 `json:"total_amount"`
		OrderCost   float64 `json:"order_cost"`
		FinalAmount float64 `json:"final_amount"`
		Count       int     `json:"count"`
	} `json:"totals"`
}

func (s *AnalysisService) FilterOrders(ctx context.Context, uploadID int64, filter OrderFilter) (*FilteredOrders, error) {
	rec, err := s.results.Get(ctx, uploadID)
	if err != nil {
		return nil, err
	}

	out := &FilteredOrders{Orders: []engine.OrderSummary{}}
	skuNeedle := strings.ToLower(strings.TrimSpace(filter.SKU))
	typeNeedle := strings.ToLower(strings.TrimSpace(filter.Type))
	dateNeedle := strings.TrimSpace(filter.Date)

	for _, o := range rec.Sheets.OrderSummary {
		if skuNeedle != "" && !strings.Contains(strings.ToLower(o.SKUs), skuNeedle) {
			continue
		}
		if typeNeedle != "" && strings.ToLower(o.Type) != typeNeedle {
			continue
		}
		if dateNeedle != "" && o.Date != dateNeedle {
			continue
		}
		out.Orders = append(out.Orders, o)
		out.Totals.TotalAmount += o.TotalAmount
		out.Totals.OrderCost += o.OrderCost
		out.Totals.FinalAmount += o.FinalAmount
	}
	out.Totals.Count = len(out.Orders)
	return out, nil
}

// TopSelling ranks the result's SKUs by total ordered quantity.
func (s *AnalysisService) TopSelling(ctx context.Context, uploadID int64, limit int) ([]engine.SKURank, error) {
	rec, err := s.results.Get(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}
	return engine.TopSellingSKUs(rec.Sheets.OrderSummary, limit), nil
}

// Workbook rebuilds the analyzed workbook from the stored result.
func (s *AnalysisService) Workbook(ctx context.Context, uploadID int64) ([]byte, string, error) {
	rec, err := s.results.Get(ctx, uploadID)
	if err != nil {
		return nil, "", err
	}
	result := &engine.Result{Sheets: rec.Sheets, Totals: rec.Totals}
	data, err := spreadsheet.WorkbookBytes(spreadsheet.ResultSheets(result))
	if err != nil {
		return nil, "", fmt.Errorf("could not render workbook for upload %d: %w", uploadID, err)
	}
	return data, workbookName(uploadID), nil
}

// Dashboard returns the totals of the chosen result, or of the latest upload
// for the marketplace when uploadID is zero. When nothing has been analyzed
// yet the zero-valued shape is returned rather than an error.
func (s *AnalysisService) Dashboard(ctx context.Context, uploadID int64, marketplace string) (*engine.Totals, error) {
	if uploadID == 0 {
		latest, err := s.uploads.Latest(ctx, marketplace)
		if err == repository.ErrNotFound {
			return &engine.Totals{}, nil
		}
		if err != nil {
			return nil, err
		}
		uploadID = latest.ID
	}

	rec, err := s.results.Get(ctx, uploadID)
	if err == repository.ErrNotFound {
		return &engine.Totals{}, nil
	}
	if err != nil {
		return nil, err
	}
	totals := rec.Totals
	return &totals, nil
}
