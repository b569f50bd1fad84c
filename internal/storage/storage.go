// Package storage archives analyzed workbooks in an S3-compatible bucket.
package storage

import "context"

// ObjectInfo represents metadata for a stored object.
type ObjectInfo struct {
	Key  string
	Size int64
}

// Archive captures the operations the analysis flow needs: keep a copy of
// every generated workbook and let operators fetch them back.
type Archive interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}
