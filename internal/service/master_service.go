package service

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sellerledger/backend-go/internal/domain"
	"github.com/sellerledger/backend-go/internal/engine"
	"github.com/sellerledger/backend-go/internal/repository"
	"github.com/sellerledger/backend-go/internal/spreadsheet"
)

type MasterService struct {
	master    repository.MasterRepository
	masterDir string
}

func NewMasterService(master repository.MasterRepository, masterDir string) *MasterService {
	return &MasterService{master: master, masterDir: masterDir}
}

// Replace parses a master cost file and swaps the marketplace's snapshot for
// its contents. Rows without a resolvable SKU are dropped; duplicate SKUs keep
// the last row, matching the analysis engine's own index rules.
func (s *MasterService) Replace(ctx context.Context, marketplace, originalName string, data []byte) (*domain.MasterInfo, error) {
	rows, err := spreadsheet.ReadRecords(bytes.NewReader(data), originalName)
	if err != nil {
		return nil, fmt.Errorf("could not parse %s: %w", originalName, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("master file %s has no rows", originalName)
	}

	filename := fmt.Sprintf("%d_%s", time.Now().UnixMilli(), filepath.Base(originalName))
	path := filepath.Join(s.masterDir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("could not store %s: %w", originalName, err)
	}

	meta := &domain.Upload{
		Filename:     filename,
		OriginalName: filepath.Base(originalName),
		Marketplace:  marketplace,
		FilePath:     path,
	}
	if err := s.replaceFromRows(ctx, marketplace, meta, rows); err != nil {
		return nil, err
	}

	info, err := s.master.Info(ctx, marketplace)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("marketplace", marketplace).
		Int("entries", info.Total).
		Msg("master snapshot replaced")
	return info, nil
}

// SaveEdited replaces the snapshot from rows edited in the UI, keeping the
// previous file metadata.
func (s *MasterService) SaveEdited(ctx context.Context, marketplace string, rows []engine.RawRecord) (*domain.MasterInfo, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no master rows to save")
	}

	info, err := s.master.Info(ctx, marketplace)
	if err != nil {
		return nil, err
	}
	meta := &domain.Upload{
		Filename:     info.Filename,
		OriginalName: info.OriginalName,
		Marketplace:  marketplace,
	}
	if err := s.replaceFromRows(ctx, marketplace, meta, rows); err != nil {
		return nil, err
	}
	return s.master.Info(ctx, marketplace)
}

func (s *MasterService) replaceFromRows(ctx context.Context, marketplace string, meta *domain.Upload, rows []engine.RawRecord) error {
	eng := engine.New(engine.ProfileFor(marketplace))
	index, order := eng.BuildMasterIndex(rows)

	records := make([]domain.MasterRecord, 0, len(order))
	for _, sku := range order {
		entry := index[sku]
		records = append(records, domain.MasterRecord{
			Marketplace: marketplace,
			SKU:         entry.SKU,
			ProductName: entry.ProductName,
			UnitCost:    entry.UnitCost,
			Raw:         entry.Raw,
		})
	}
	if len(records) == 0 {
		return fmt.Errorf("master file has no usable rows (no SKU column found)")
	}
	return s.master.Replace(ctx, marketplace, meta, records)
}

// UpdateEntries applies per-SKU cost or name edits to the current snapshot
// without replacing it. Returns how many entries matched.
func (s *MasterService) UpdateEntries(ctx context.Context, marketplace string, entries []domain.MasterRecord) (int, error) {
	if len(entries) == 0 {
		return 0, fmt.Errorf("no entries to update")
	}
	for i := range entries {
		entries[i].Marketplace = marketplace
	}
	updated, err := s.master.UpdateEntries(ctx, marketplace, entries)
	if err != nil {
		return 0, err
	}
	log.Info().
		Str("marketplace", marketplace).
		Int("updated", updated).
		Msg("master entries updated")
	return updated, nil
}

func (s *MasterService) Info(ctx context.Context, marketplace string) (*domain.MasterInfo, error) {
	return s.master.Info(ctx, marketplace)
}

// View returns the raw rows of the current snapshot, as uploaded.
func (s *MasterService) View(ctx context.Context, marketplace string) ([]engine.RawRecord, error) {
	records, err := s.master.Records(ctx, marketplace)
	if err != nil {
		return nil, err
	}
	rows := make([]engine.RawRecord, 0, len(records))
	for _, rec := range records {
		rows = append(rows, rec.Raw)
	}
	return rows, nil
}

// Rows returns the snapshot as records for the analysis engine. They are
// built from the structured columns rather than the uploaded raw rows, so
// per-SKU edits made after the upload are visible to analysis. A missing
// snapshot is not an error; analysis then runs with every cost missing.
func (s *MasterService) Rows(ctx context.Context, marketplace string) ([]engine.RawRecord, error) {
	records, err := s.master.Records(ctx, marketplace)
	if err == repository.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rows := make([]engine.RawRecord, 0, len(records))
	for _, rec := range records {
		rows = append(rows, engine.RawRecord{
			"seller sku":   rec.SKU,
			"product name": rec.ProductName,
			"cogs":         rec.UnitCost,
		})
	}
	return rows, nil
}
