package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sellerledger/backend-go/internal/domain"
	"github.com/sellerledger/backend-go/internal/repository"
)

type ResultRepository struct {
	db *DB
}

func NewResultRepository(db *DB) *ResultRepository {
	return &ResultRepository{db: db}
}

var _ repository.ResultRepository = (*ResultRepository)(nil)

func (r *ResultRepository) Upsert(ctx context.Context, rec *domain.AnalysisRecord) error {
	totals, err := json.Marshal(rec.Totals)
	if err != nil {
		return fmt.Errorf("could not encode totals: %w", err)
	}
	sheets, err := json.Marshal(rec.Sheets)
	if err != nil {
		return fmt.Errorf("could not encode sheets: %w", err)
	}

	const query = `
		INSERT INTO analysis_results (upload_id, filename, marketplace, totals, sheets, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (upload_id) DO UPDATE SET
			filename = EXCLUDED.filename,
			marketplace = EXCLUDED.marketplace,
			totals = EXCLUDED.totals,
			sheets = EXCLUDED.sheets,
			updated_at = NOW()
		RETURNING created_at, updated_at`
	row := r.db.QueryRowxContext(ctx, query,
		rec.UploadID, rec.Filename, rec.Marketplace, totals, sheets)
	if err := row.Scan(&rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return fmt.Errorf("could not upsert result for upload %d: %w", rec.UploadID, err)
	}
	return nil
}

func (r *ResultRepository) Get(ctx context.Context, uploadID int64) (*domain.AnalysisRecord, error) {
	var row struct {
		UploadID    int64  `db:"upload_id"`
		Filename    string `db:"filename"`
		Marketplace string `db:"marketplace"`
		Totals      []byte `db:"totals"`
		Sheets      []byte `db:"sheets"`
	}
	rec := &domain.AnalysisRecord{}

	const query = `
		SELECT upload_id, filename, marketplace, totals, sheets, created_at, updated_at
		FROM analysis_results WHERE upload_id = $1`
	err := r.db.QueryRowxContext(ctx, query, uploadID).Scan(
		&row.UploadID, &row.Filename, &row.Marketplace, &row.Totals, &row.Sheets,
		&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("could not load result for upload %d: %w", uploadID, err)
	}

	rec.UploadID = row.UploadID
	rec.Filename = row.Filename
	rec.Marketplace = row.Marketplace
	if err := json.Unmarshal(row.Totals, &rec.Totals); err != nil {
		return nil, fmt.Errorf("could not decode totals for upload %d: %w", uploadID, err)
	}
	if err := json.Unmarshal(row.Sheets, &rec.Sheets); err != nil {
		return nil, fmt.Errorf("could not decode sheets for upload %d: %w", uploadID, err)
	}
	return rec, nil
}

func (r *ResultRepository) List(ctx context.Context, marketplace string) ([]domain.AnalysisSummary, error) {
	summaries := make([]domain.AnalysisSummary, 0)
	const query = `
		SELECT r.upload_id, r.filename, r.marketplace,
		       COALESCE(jsonb_array_length(r.sheets->'raw_concat'), 0) AS rows_count,
		       r.created_at
		FROM analysis_results r
		WHERE ($1 = '' OR r.marketplace = $1)
		ORDER BY r.created_at DESC, r.upload_id DESC`
	if err := r.db.SelectContext(ctx, &summaries, query, marketplace); err != nil {
		return nil, fmt.Errorf("could not list results: %w", err)
	}
	return summaries, nil
}

func (r *ResultRepository) Delete(ctx context.Context, uploadID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM analysis_results WHERE upload_id = $1`, uploadID)
	if err != nil {
		return fmt.Errorf("could not delete result for upload %d: %w", uploadID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not read delete result: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
