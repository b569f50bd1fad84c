// Package domain holds the persisted entities of the settlement P&L backend.
// The analysis value types themselves live in the engine package; these
// structs wrap them with storage identity.
package domain

import (
	"time"

	"github.com/sellerledger/backend-go/internal/engine"
)

// Upload is one ingested settlement spreadsheet. Its raw rows are stored
// separately and deleted together with the upload.
type Upload struct {
	ID           int64     `json:"id" db:"id"`
	Filename     string    `json:"filename" db:"filename"`
	OriginalName string    `json:"original_name" db:"original_name"`
	Marketplace  string    `json:"marketplace" db:"marketplace"`
	FilePath     string    `json:"file_path" db:"file_path"`
	RowCount     int       `json:"row_count" db:"row_count"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// MasterRecord is one row of the persisted cost master snapshot. The snapshot
// is wholesale-replaced on every master upload.
type MasterRecord struct {
	Marketplace string           `json:"marketplace" db:"marketplace"`
	SKU         string           `json:"sku" db:"sku"`
	ProductName string           `json:"product_name" db:"product_name"`
	UnitCost    float64          `json:"unit_cost" db:"unit_cost"`
	Raw         engine.RawRecord `json:"raw" db:"-"`
}

// MasterInfo describes the current master snapshot for one marketplace.
type MasterInfo struct {
	Exists       bool      `json:"exists"`
	Total        int       `json:"total,omitempty"`
	Filename     string    `json:"filename,omitempty"`
	OriginalName string    `json:"original_name,omitempty"`
	UploadedAt   time.Time `json:"uploaded_at,omitempty"`
}

// AnalysisRecord is the persisted result of one analysis run, replaced
// wholesale per upload id.
type AnalysisRecord struct {
	UploadID    int64         `json:"upload_id" db:"upload_id"`
	Filename    string        `json:"filename" db:"filename"`
	Marketplace string        `json:"marketplace" db:"marketplace"`
	Totals      engine.Totals `json:"totals"`
	Sheets      engine.Sheets `json:"sheets"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
}

// AnalysisSummary is the lightweight listing row for processed results.
type AnalysisSummary struct {
	UploadID    int64     `json:"id" db:"upload_id"`
	Filename    string    `json:"filename" db:"filename"`
	Marketplace string    `json:"marketplace" db:"marketplace"`
	RowsCount   int       `json:"rows_count" db:"rows_count"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
