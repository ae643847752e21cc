package usecase

import (
	"context"

	"github.com/DRSN-tech/shop-backend/internal/domain"
)

type ProductUC interface {
	RegisterNewProduct(ctx context.Context, req *AddNewProductReq) (*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	ListProducts(ctx context.Context, req *ListProductsReq) ([]domain.Product, error)
	GetProductsInfo(ctx context.Context, req *GetProductsReq) (*GetProductsRes, error)
}

type SearchUC interface {
	SearchByImage(ctx context.Context, req *SearchByImageReq) (*SearchByImageRes, error)
}

type FingerprintUC interface {
	BackfillMissing(ctx context.Context) error
	StartBackfill() bool
	RecomputeFingerprint(ctx context.Context, productID int64) error
}

// ProductInfoProvider подставляет витринные поля в результаты поиска.
type ProductInfoProvider interface {
	GetProductsInfo(ctx context.Context, req *GetProductsReq) (*GetProductsRes, error)
}

// Fingerprinter сохраняет гистограмму по уже загруженным байтам изображения.
type Fingerprinter interface {
	StoreFromImage(ctx context.Context, productID int64, data []byte) error
}
