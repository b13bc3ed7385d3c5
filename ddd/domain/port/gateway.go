package port

import (
	"context"

	"signage-service/ddd/domain/vo"
)

// Prober extracts media metadata from a source file.
type Prober interface {
	Probe(ctx context.Context, path string) (vo.MediaMetadata, error)
}

// Scheduler bounds concurrent external-encoder invocations. Enqueue blocks
// until the job settles; a job failure propagates only to its own caller.
type Scheduler interface {
	Enqueue(ctx context.Context, name string, fn func(ctx context.Context) error) error
}

// UploadObject describes one local file to mirror.
type UploadObject struct {
	LocalPath   string
	ObjectKey   string
	ContentType string
}

// StorageGateway mirrors derivative files to off-box storage after a publish.
type StorageGateway interface {
	UploadObjects(ctx context.Context, objects []UploadObject) error
}
