package service

import (
	"context"
	"time"

	"github.com/deppfellow/storefront/internal/errs"
	"github.com/deppfellow/storefront/internal/lib/upload"
	"github.com/deppfellow/storefront/internal/model"
)

type FileStore interface {
	SaveAll(ctx context.Context, files []upload.Incoming) ([]upload.StoredFile, error)
	Remove(storedName string) error
}

type UploadRecorder interface {
	InsertMany(ctx context.Context, files []model.UploadedFile) error
}

type UploadService struct {
	files   FileStore
	records UploadRecorder
	now     func() time.Time
}

func NewUploadService(files FileStore, records UploadRecorder) *UploadService {
	return &UploadService{files: files, records: records, now: time.Now}
}

// Save writes every file to disk and records their metadata.
//
// Both steps fail as a whole: if the metadata cannot be recorded the files
// just written are removed again.
func (s *UploadService) Save(ctx context.Context, incoming []upload.Incoming) ([]model.UploadedFile, error) {
	stored, err := s.files.SaveAll(ctx, incoming)
	if err != nil {
		return nil, errs.NewServerIOError("Failed to store file", err)
	}

	uploadedAt := s.now()
	records := make([]model.UploadedFile, len(stored))
	for i, f := range stored {
		records[i] = model.UploadedFile{
			OriginalName: f.OriginalName,
			StoredName:   f.StoredName,
			RelativePath: f.RelativePath,
			SizeBytes:    f.SizeBytes,
			ContentType:  f.ContentType,
			UploadedAt:   uploadedAt,
		}
	}

	if err := s.records.InsertMany(ctx, records); err != nil {
		for _, f := range stored {
			_ = s.files.Remove(f.StoredName)
		}
		return nil, errs.NewServerIOError("Failed to record upload metadata", err)
	}

	return records, nil
}
