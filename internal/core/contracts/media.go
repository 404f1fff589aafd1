package contracts

import "context"

// UploadResult is what the media host returns for a stored image.
type UploadResult struct {
	URL      string
	PublicID string
	Bytes    int64
	Format   string
}

// MediaHost stores a local temporary file with an external image host
// and returns a durable URL. Callers own the temp file and must remove
// it on every exit path.
type MediaHost interface {
	UploadImage(ctx context.Context, tempFilePath string) (*UploadResult, error)
}
