// Package memory provides in-memory repository implementations, used by the
// local CLI runs and by the service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sellerledger/backend-go/internal/domain"
	"github.com/sellerledger/backend-go/internal/engine"
	"github.com/sellerledger/backend-go/internal/repository"
)

// UploadRepository keeps uploads and their raw rows in process memory.
type UploadRepository struct {
	mu      sync.RWMutex
	nextID  int64
	uploads map[int64]domain.Upload
	rows    map[int64][]engine.RawRecord
}

func NewUploadRepository() *UploadRepository {
	return &UploadRepository{
		nextID:  1,
		uploads: make(map[int64]domain.Upload),
		rows:    make(map[int64][]engine.RawRecord),
	}
}

func (r *UploadRepository) Create(ctx context.Context, upload *domain.Upload, rows []engine.RawRecord) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.uploads {
		if u.Marketplace == upload.Marketplace && u.OriginalName == upload.OriginalName {
			return 0, repository.ErrDuplicateFile
		}
	}

	id := r.nextID
	r.nextID++

	stored := *upload
	stored.ID = id
	stored.RowCount = len(rows)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	r.uploads[id] = stored
	r.rows[id] = append([]engine.RawRecord(nil), rows...)

	upload.ID = id
	upload.RowCount = stored.RowCount
	upload.CreatedAt = stored.CreatedAt
	return id, nil
}

func (r *UploadRepository) Get(ctx context.Context, id int64) (*domain.Upload, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.uploads[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *UploadRepository) Latest(ctx context.Context, marketplace string) (*domain.Upload, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *domain.Upload
	for id := range r.uploads {
		u := r.uploads[id]
		if u.Marketplace != marketplace {
			continue
		}
		if latest == nil || u.CreatedAt.After(latest.CreatedAt) ||
			(u.CreatedAt.Equal(latest.CreatedAt) && u.ID > latest.ID) {
			copied := u
			latest = &copied
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	return latest, nil
}

func (r *UploadRepository) List(ctx context.Context, marketplace string) ([]domain.Upload, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Upload, 0, len(r.uploads))
	for _, u := range r.uploads {
		if marketplace == "" || u.Marketplace == marketplace {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *UploadRepository) Rows(ctx context.Context, uploadID int64) ([]engine.RawRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, ok := r.rows[uploadID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return append([]engine.RawRecord(nil), rows...), nil
}

func (r *UploadRepository) Delete(ctx context.Context, id int64) (*domain.Upload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.uploads[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(r.uploads, id)
	delete(r.rows, id)
	return &u, nil
}

// MasterRepository keeps one master snapshot per marketplace.
type MasterRepository struct {
	mu      sync.RWMutex
	records map[string][]domain.MasterRecord
	meta    map[string]domain.Upload
}

func NewMasterRepository() *MasterRepository {
	return &MasterRepository{
		records: make(map[string][]domain.MasterRecord),
		meta:    make(map[string]domain.Upload),
	}
}

func (r *MasterRepository) Replace(ctx context.Context, marketplace string, meta *domain.Upload, records []domain.MasterRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *meta
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	r.records[marketplace] = append([]domain.MasterRecord(nil), records...)
	r.meta[marketplace] = stored
	return nil
}

func (r *MasterRepository) Records(ctx context.Context, marketplace string) ([]domain.MasterRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records, ok := r.records[marketplace]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return append([]domain.MasterRecord(nil), records...), nil
}

func (r *MasterRepository) Info(ctx context.Context, marketplace string) (*domain.MasterInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	meta, ok := r.meta[marketplace]
	if !ok {
		return &domain.MasterInfo{Exists: false}, nil
	}
	return &domain.MasterInfo{
		Exists:       true,
		Total:        len(r.records[marketplace]),
		Filename:     meta.Filename,
		OriginalName: meta.OriginalName,
		UploadedAt:   meta.CreatedAt,
	}, nil
}

func (r *MasterRepository) UpdateEntries(ctx context.Context, marketplace string, entries []domain.MasterRecord) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.records[marketplace]
	if !ok {
		return 0, repository.ErrNotFound
	}

	updated := 0
	for _, e := range entries {
		for i := range current {
			if current[i].SKU == e.SKU {
				current[i].ProductName = e.ProductName
				current[i].UnitCost = e.UnitCost
				updated++
				break
			}
		}
	}
	r.records[marketplace] = current
	return updated, nil
}

// ResultRepository keeps analysis results keyed by upload id.
type ResultRepository struct {
	mu      sync.RWMutex
	results map[int64]domain.AnalysisRecord
}

func NewResultRepository() *ResultRepository {
	return &ResultRepository{results: make(map[int64]domain.AnalysisRecord)}
}

func (r *ResultRepository) Upsert(ctx context.Context, rec *domain.AnalysisRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	stored := *rec
	if prev, ok := r.results[rec.UploadID]; ok {
		stored.CreatedAt = prev.CreatedAt
	} else if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	r.results[rec.UploadID] = stored

	rec.CreatedAt = stored.CreatedAt
	rec.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *ResultRepository) Get(ctx context.Context, uploadID int64) (*domain.AnalysisRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.results[uploadID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &rec, nil
}

func (r *ResultRepository) List(ctx context.Context, marketplace string) ([]domain.AnalysisSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.AnalysisSummary, 0, len(r.results))
	for _, rec := range r.results {
		if marketplace != "" && rec.Marketplace != marketplace {
			continue
		}
		out = append(out, domain.AnalysisSummary{
			UploadID:    rec.UploadID,
			Filename:    rec.Filename,
			Marketplace: rec.Marketplace,
			RowsCount:   len(rec.Sheets.RawConcat),
			CreatedAt:   rec.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].UploadID > out[j].UploadID
	})
	return out, nil
}

func (r *ResultRepository) Delete(ctx context.Context, uploadID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.results[uploadID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.results, uploadID)
	return nil
}
