package usecase

import (
	"context"

	"github.com/DRSN-tech/shop-backend/internal/domain"
)

type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) (*domain.Product, error)
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	List(ctx context.Context, limit, offset int) ([]domain.Product, error)
	GetProductsInfo(ctx context.Context, ids []int64) ([]ProductInfo, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) (*domain.Category, error)
}

// FingerprintRepository — доступ к гистограммам товаров в каталоге.
type FingerprintRepository interface {
	ListWithFingerprint(ctx context.Context) ([]domain.Candidate, error)
	ListMissingFingerprint(ctx context.Context) ([]domain.Product, error)
	SetFingerprint(ctx context.Context, id int64, fp domain.Fingerprint) (bool, error)
	ReplaceFingerprint(ctx context.Context, id int64, fp domain.Fingerprint) error
}

// CandidateSource отдаёт пул кандидатов для ранжирования.
type CandidateSource interface {
	ListWithFingerprint(ctx context.Context) ([]domain.Candidate, error)
}

type ProductGetter interface {
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
}

type ImageRepository interface {
	Upload(ctx context.Context, image *domain.Image) (string, error)
	Delete(ctx context.Context, key string) error
	Get(ctx context.Context, bucket, key string, maxBytes int64) ([]byte, error)
}

type CacheRepository interface {
	GetProducts(ctx context.Context, ids []int64) (map[int64]ProductInfo, error)
	SetProducts(ctx context.Context, products []ProductInfo) error
	DeleteProducts(ctx context.Context, ids []int64) error
}
