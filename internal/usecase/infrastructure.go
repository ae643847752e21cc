package usecase

import (
	"context"
	"time"

	"github.com/DRSN-tech/shop-backend/internal/domain"
)

type FingerprintExtractor interface {
	Extract(data []byte) (domain.Fingerprint, error)
	Bins() int
}

// ImageFetcher загружает байты изображения по ссылке из каталога (http(s):// или s3://).
type ImageFetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

type ImagesInfra interface {
	UploadImage(ctx context.Context, req *UploadImageReq) (*UploadImageRes, error)
	CleanupImages(keys []string)
}

type EventPublisher interface {
	PublishFingerprintStored(ctx context.Context, event *FingerprintStoredEvent) error
}

type Metrics interface {
	ObserveSearch(outcome string, candidates int, elapsed time.Duration)
	ObserveBackfillItem(outcome string)
}

// Исходы поиска и обработки одного товара при backfill — значения метки outcome.
const (
	SearchOK               = "ok"
	SearchNoImage          = "no_image"
	SearchExtractionFailed = "extraction_failed"
	SearchInternalError    = "internal_error"

	BackfillStored           = "stored"
	BackfillAlreadyPresent   = "already_present"
	BackfillFetchFailed      = "fetch_failed"
	BackfillExtractionFailed = "extraction_failed"
	BackfillStoreFailed      = "store_failed"
)
