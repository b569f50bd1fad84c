// Package repository defines the persistence boundaries of the backend.
// Implementations live in the postgres and memory subpackages.
package repository

import (
	"context"
	"errors"

	"github.com/sellerledger/backend-go/internal/domain"
	"github.com/sellerledger/backend-go/internal/engine"
)

var (
	// ErrNotFound is returned when the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateFile is returned when an upload with the same original
	// filename already exists for the marketplace.
	ErrDuplicateFile = errors.New("file already uploaded")
)

// UploadRepository stores settlement uploads together with their raw rows.
type UploadRepository interface {
	// Create persists the upload and its rows. It fails with
	// ErrDuplicateFile when the original filename was already ingested for
	// the same marketplace.
	Create(ctx context.Context, upload *domain.Upload, rows []engine.RawRecord) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Upload, error)
	// Latest returns the newest upload for the marketplace, by creation time.
	Latest(ctx context.Context, marketplace string) (*domain.Upload, error)
	List(ctx context.Context, marketplace string) ([]domain.Upload, error)
	Rows(ctx context.Context, uploadID int64) ([]engine.RawRecord, error)
	// Delete removes the upload and its rows.
	Delete(ctx context.Context, id int64) (*domain.Upload, error)
}

// MasterRepository stores the cost master snapshot per marketplace.
type MasterRepository interface {
	// Replace swaps the whole snapshot for the marketplace in one transaction.
	Replace(ctx context.Context, marketplace string, meta *domain.Upload, records []domain.MasterRecord) error
	Records(ctx context.Context, marketplace string) ([]domain.MasterRecord, error)
	Info(ctx context.Context, marketplace string) (*domain.MasterInfo, error)
	// UpdateEntries applies per-SKU edits to the current snapshot.
	UpdateEntries(ctx context.Context, marketplace string, entries []domain.MasterRecord) (int, error)
}

// ResultRepository stores analysis results keyed by upload id.
type ResultRepository interface {
	// Upsert replaces the stored result for the upload, keeping the
	// original creation time on re-runs.
	Upsert(ctx context.Context, rec *domain.AnalysisRecord) error
	Get(ctx context.Context, uploadID int64) (*domain.AnalysisRecord, error)
	List(ctx context.Context, marketplace string) ([]domain.AnalysisSummary, error)
	Delete(ctx context.Context, uploadID int64) error
}
