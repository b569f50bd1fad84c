// Package service orchestrates uploads, master snapshots, analysis runs and
// monthly reports on top of the repositories and the engine.
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
	"github.com/sellerledger/backend-go/internal/repository"
	"github.com/sellerledger/backend-go/internal/spreadsheet"
)

type UploadService struct {
	uploads   repository.UploadRepository
	results   repository.ResultRepository
	uploadDir string
}

func NewUploadService(uploads repository.UploadRepository, results repository.ResultRepository, uploadDir string) *UploadService {
	return &UploadService{uploads: uploads, results: results, uploadDir: uploadDir}
}

// Ingest parses the settlement file, stores it on disk and persists the
// upload with its raw rows. A file whose original name was already ingested
// for the marketplace is rejected and its stored copy removed.
func (s *UploadService) Ingest(ctx context.Context, originalName, marketplace string, data []byte) (*domain.Upload, error) {
	rows, err := spreadsheet.ReadRecords(bytes.NewReader(data), originalName)
	if err != nil {
		return nil, fmt.Errorf("could not parse %s: %w", originalName, err)
	}

	filename := fmt.Sprintf("%d_%s", time.Now().UnixMilli(), filepath.Base(originalName))
	path := filepath.Join(s.uploadDir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("could not store %s: %w", originalName, err)
	}

	upload := &domain.Upload{
		Filename:     filename,
		OriginalName: filepath.Base(originalName),
		Marketplace:  marketplace,
		FilePath:     path,
	}
	if _, err := s.uploads.Create(ctx, upload, rows); err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			log.Warn().Err(rmErr).Str("path", path).Msg("could not remove rejected upload file")
		}
		return nil, err
	}

	log.Info().
		Int64("upload_id", upload.ID).
		Str("marketplace", marketplace).
		Int("rows", upload.RowCount).
		Msg("settlement file ingested")
	return upload, nil
}

func (s *UploadService) Get(ctx context.Context, id int64) (*domain.Upload, error) {
	return s.uploads.Get(ctx, id)
}

func (s *UploadService) List(ctx context.Context, marketplace string) ([]domain.Upload, error) {
	return s.uploads.List(ctx, marketplace)
}

// Delete removes the upload, its rows, its analysis result and the stored
// file.
func (s *UploadService) Delete(ctx context.Context, id int64) error {
	upload, err := s.uploads.Delete(ctx, id)
	if err != nil {
		return err
	}
	if err := s.results.Delete(ctx, id); err != nil && err != repository.ErrNotFound {
		log.Warn().Err(err).Int64("upload_id", id).Msg("could not delete analysis result")
	}
	if upload.FilePath != "" {
		if err := os.Remove(upload.FilePath); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", upload.FilePath).Msg("could not remove upload file")
		}
	}
	return nil
}
