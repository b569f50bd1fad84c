package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sellerledger/backend-go/internal/domain"
	"github.com/sellerledger/backend-go/internal/engine"
	"github.com/sellerledger/backend-go/internal/repository"
)

const uniqueViolation = "23505"

type UploadRepository struct {
	db *DB
}

func NewUploadRepository(db *DB) *UploadRepository {
	return &UploadRepository{db: db}
}

var _ repository.UploadRepository = (*UploadRepository)(nil)

func (r *UploadRepository) Create(ctx context.Context, upload *domain.Upload, rows []engine.RawRecord) (int64, error) {
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		const insert = `
			INSERT INTO uploads (filename, original_name, marketplace, file_path, row_count)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at`
		if err := tx.QueryRowxContext(ctx, insert,
			upload.Filename, upload.OriginalName, upload.Marketplace, upload.FilePath, len(rows),
		).Scan(&upload.ID, &upload.CreatedAt); err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
				return repository.ErrDuplicateFile
			}
			return fmt.Errorf("could not insert upload: %w", err)
		}
		upload.RowCount = len(rows)

		stmt, err := tx.PreparexContext(ctx,
			`INSERT INTO upload_rows (upload_id, position, record) VALUES ($1, $2, $3)`)
		if err != nil {
			return fmt.Errorf("could not prepare row insert: %w", err)
		}
		defer stmt.Close()

		for i, rec := range rows {
			payload, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("could not encode row %d: %w", i, err)
			}
			if _, err := stmt.ExecContext(ctx, upload.ID, i, payload); err != nil {
				return fmt.Errorf("could not insert row %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return upload.ID, nil
}

func (r *UploadRepository) Get(ctx context.Context, id int64) (*domain.Upload, error) {
	var u domain.Upload
	const query = `
		SELECT id, filename, original_name, marketplace, file_path, row_count, created_at
		FROM uploads WHERE id = $1`
	if err := r.db.GetContext(ctx, &u, query, id); err != nil {
		if isNoRows(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("could not load upload %d: %w", id, err)
	}
	return &u, nil
}

func (r *UploadRepository) Latest(ctx context.Context, marketplace string) (*domain.Upload, error) {
	var u domain.Upload
	const query = `
		SELECT id, filename, original_name, marketplace, file_path, row_count, created_at
		FROM uploads
		WHERE marketplace = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`
	if err := r.db.GetContext(ctx, &u, query, marketplace); err != nil {
		if isNoRows(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("could not load latest upload: %w", err)
	}
	return &u, nil
}

func (r *UploadRepository) List(ctx context.Context, marketplace string) ([]domain.Upload, error) {
	uploads := make([]domain.Upload, 0)
	const query = `
		SELECT id, filename, original_name, marketplace, file_path, row_count, created_at
		FROM uploads
		WHERE ($1 = '' OR marketplace = $1)
		ORDER BY created_at DESC, id DESC`
	if err := r.db.SelectContext(ctx, &uploads, query, marketplace); err != nil {
		return nil, fmt.Errorf("could not list uploads: %w", err)
	}
	return uploads, nil
}

func (r *UploadRepository) Rows(ctx context.Context, uploadID int64) ([]engine.RawRecord, error) {
	if _, err := r.Get(ctx, uploadID); err != nil {
		return nil, err
	}

	var payloads [][]byte
	const query = `SELECT record FROM upload_rows WHERE upload_id = $1 ORDER BY position`
	if err := r.db.SelectContext(ctx, &payloads, query, uploadID); err != nil {
		return nil, fmt.Errorf("could not load rows of upload %d: %w", uploadID, err)
	}

	rows := make([]engine.RawRecord, 0, len(payloads))
	for i, payload := range payloads {
		var rec engine.RawRecord
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("could not decode row %d of upload %d: %w", i, uploadID, err)
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func (r *UploadRepository) Delete(ctx context.Context, id int64) (*domain.Upload, error) {
	u, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	err = r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM upload_rows WHERE upload_id = $1`, id); err != nil {
			return fmt.Errorf("could not delete rows of upload %d: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM uploads WHERE id = $1`, id); err != nil {
			return fmt.Errorf("could not delete upload %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}
