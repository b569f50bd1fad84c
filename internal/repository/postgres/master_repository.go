package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sellerledger/backend-go/internal/domain"
	"github.com/sellerledger/backend-go/internal/engine"
	"github.com/sellerledger/backend-go/internal/repository"
)

type MasterRepository struct {
	db *DB
}

func NewMasterRepository(db *DB) *MasterRepository {
	return &MasterRepository{db: db}
}

var _ repository.MasterRepository = (*MasterRepository)(nil)

type masterRow struct {
	Marketplace string  `db:"marketplace"`
	SKU         string  `db:"sku"`
	ProductName string  `db:"product_name"`
	UnitCost    float64 `db:"unit_cost"`
	Raw         []byte  `db:"raw"`
}

func (r *MasterRepository) Replace(ctx context.Context, marketplace string, meta *domain.Upload, records []domain.MasterRecord) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM master_entries WHERE marketplace = $1`, marketplace); err != nil {
			return fmt.Errorf("could not clear master snapshot: %w", err)
		}

		stmt, err := tx.PreparexContext(ctx, `
			INSERT INTO master_entries (marketplace, sku, product_name, unit_cost, raw, position)
			VALUES ($1, $2, $3, $4, $5, $6)`)
		if err != nil {
			return fmt.Errorf("could not prepare master insert: %w", err)
		}
		defer stmt.Close()

		for i, rec := range records {
			raw, err := json.Marshal(rec.Raw)
			if err != nil {
				return fmt.Errorf("could not encode master row %d: %w", i, err)
			}
			if _, err := stmt.ExecContext(ctx,
				marketplace, rec.SKU, rec.ProductName, rec.UnitCost, raw, i); err != nil {
				return fmt.Errorf("could not insert master row %d (%s): %w", i, rec.SKU, err)
			}
		}

		const upsertMeta = `
			INSERT INTO master_meta (marketplace, filename, original_name, uploaded_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (marketplace) DO UPDATE SET
				filename = EXCLUDED.filename,
				original_name = EXCLUDED.original_name,
				uploaded_at = EXCLUDED.uploaded_at`
		if _, err := tx.ExecContext(ctx, upsertMeta,
			marketplace, meta.Filename, meta.OriginalName); err != nil {
			return fmt.Errorf("could not store master metadata: %w", err)
		}
		return nil
	})
}

func (r *MasterRepository) Records(ctx context.Context, marketplace string) ([]domain.MasterRecord, error) {
	var rows []masterRow
	const query = `
		SELECT marketplace, sku, product_name, unit_cost, raw
		FROM master_entries
		WHERE marketplace = $1
		ORDER BY position`
	if err := r.db.SelectContext(ctx, &rows, query, marketplace); err != nil {
		return nil, fmt.Errorf("could not load master snapshot: %w", err)
	}
	if len(rows) == 0 {
		return nil, repository.ErrNotFound
	}

	records := make([]domain.MasterRecord, 0, len(rows))
	for _, row := range rows {
		var raw engine.RawRecord
		if len(row.Raw) > 0 {
			if err := json.Unmarshal(row.Raw, &raw); err != nil {
				return nil, fmt.Errorf("could not decode master row %s: %w", row.SKU, err)
			}
		}
		records = append(records, domain.MasterRecord{
			Marketplace: row.Marketplace,
			SKU:         row.SKU,
			ProductName: row.ProductName,
			UnitCost:    row.UnitCost,
			Raw:         raw,
		})
	}
	return records, nil
}

func (r *MasterRepository) Info(ctx context.Context, marketplace string) (*domain.MasterInfo, error) {
	info := &domain.MasterInfo{}

	const metaQuery = `
		SELECT filename, original_name, uploaded_at
		FROM master_meta WHERE marketplace = $1`
	row := r.db.QueryRowxContext(ctx, metaQuery, marketplace)
	if err := row.Scan(&info.Filename, &info.OriginalName, &info.UploadedAt); err != nil {
		if isNoRows(err) {
			return &domain.MasterInfo{Exists: false}, nil
		}
		return nil, fmt.Errorf("could not load master metadata: %w", err)
	}

	const countQuery = `SELECT COUNT(*) FROM master_entries WHERE marketplace = $1`
	if err := r.db.GetContext(ctx, &info.Total, countQuery, marketplace); err != nil {
		return nil, fmt.Errorf("could not count master entries: %w", err)
	}

	info.Exists = true
	return info, nil
}

func (r *MasterRepository) UpdateEntries(ctx context.Context, marketplace string, entries []domain.MasterRecord) (int, error) {
	updated := 0
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var exists bool
		if err := tx.GetContext(ctx, &exists,
			`SELECT EXISTS (SELECT 1 FROM master_meta WHERE marketplace = $1)`, marketplace); err != nil {
			return fmt.Errorf("could not check master snapshot: %w", err)
		}
		if !exists {
			return repository.ErrNotFound
		}

		stmt, err := tx.PreparexContext(ctx, `
			UPDATE master_entries
			SET product_name = $3, unit_cost = $4
			WHERE marketplace = $1 AND sku = $2`)
		if err != nil {
			return fmt.Errorf("could not prepare master update: %w", err)
		}
		defer stmt.Close()

		for _, e := range entries {
			res, err := stmt.ExecContext(ctx, marketplace, e.SKU, e.ProductName, e.UnitCost)
			if err != nil {
				return fmt.Errorf("could not update master row %s: %w", e.SKU, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("could not read update result for %s: %w", e.SKU, err)
			}
			updated += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}
