package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/DRSN-tech/shop-backend/internal/domain"
	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/DRSN-tech/shop-backend/pkg/logger"
	"github.com/DRSN-tech/shop-backend/pkg/tr"
	transaction "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/jackc/pgx/v5"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// ProductUseCase реализует бизнес-логику каталога товаров.
type ProductUseCase struct {
	productRepo  ProductRepository
	categoryRepo CategoryRepository
	dbPool       transaction.Transactional
	imagesInfra  ImagesInfra
	fingerprints Fingerprinter
	logger       logger.Logger
	cacheRepo    CacheRepository
}

func NewProductUC(
	productRepo ProductRepository,
	categoryRepo CategoryRepository,
	dbPool transaction.Transactional,
	imagesInfra ImagesInfra,
	fingerprints Fingerprinter,
	logger logger.Logger,
	cacheRepo CacheRepository,
) *ProductUseCase {
	return &ProductUseCase{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		dbPool:       dbPool,
		imagesInfra:  imagesInfra,
		fingerprints: fingerprints,
		logger:       logger,
		cacheRepo:    cacheRepo,
	}
}

// RegisterNewProduct загружает изображение в MinIO, в одной транзакции создаёт категорию и товар,
// после коммита сразу считает гистограмму. Ошибка расчёта гистограммы не отменяет регистрацию:
// товар подхватит следующий backfill.
func (p *ProductUseCase) RegisterNewProduct(ctx context.Context, req *AddNewProductReq) (*domain.Product, error) {
	const op = "ProductUseCase.RegisterNewProduct"

	// Валидация данных
	var err error
	err = p.validateProduct(req)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	// Сохранение изображения в MinIO
	imageRes, err := p.uploadImage(ctx, req.Name, *req.Image)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	txCtx, tx, err := transaction.NewTransaction(ctx, pgx.TxOptions{}, p.dbPool)
	if err != nil {
		p.imagesInfra.CleanupImages([]string{imageRes.Key})
		return nil, e.Wrap(op, err)
	}
	// Если произошла ошибка, происходит Rollback транзакции и очистка загруженного изображения
	defer func() {
		if err != nil {
			if tx.IsActive() {
				_ = tx.Rollback(txCtx)
			}

			p.logger.Warnf(
				"Cleaning up orphaned image after transaction failure. product_name: %s, error: %v",
				req.Name,
				e.Wrap(op, err),
			)
			p.imagesInfra.CleanupImages([]string{imageRes.Key})
		}
	}()

	pgxTx, ok := tx.Transaction().(pgx.Tx)
	if !ok {
		err = e.ErrTransactionNotFound
		return nil, e.Wrap(op, err)
	}
	txCtx = tr.WithTx(txCtx, pgxTx)

	// идемпотентное создание категории
	category, err := p.createCategory(txCtx, req.CategoryName)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	product, err := p.productRepo.Create(txCtx, domain.NewProduct(req.Name, req.Price, category.ID, req.Stock, imageRes.Ref))
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	product.CategoryName = category.Name

	// Коммит изменений в бд
	err = tx.Commit(txCtx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if fpErr := p.fingerprints.StoreFromImage(ctx, product.ID, req.Image.Data); fpErr != nil {
		p.logger.Warnf("Fingerprint for product %d deferred to backfill: %v", product.ID, e.Wrap(op, fpErr))
	}

	// Удаление из кэша старых данных товара
	if cacheErr := p.cacheRepo.DeleteProducts(ctx, []int64{product.ID}); cacheErr != nil {
		p.logger.Warnf("Failed to delete products: %v", e.Wrap(op, cacheErr))
	}

	return product, nil
}

func (p *ProductUseCase) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	const op = "ProductUseCase.GetProduct"

	if id <= 0 {
		return nil, e.Wrap(op, e.ErrInvalidProductID)
	}

	product, err := p.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return product, nil
}

// ListProducts возвращает страницу каталога. Лимит приводится к диапазону [1, 100].
func (p *ProductUseCase) ListProducts(ctx context.Context, req *ListProductsReq) ([]domain.Product, error) {
	const op = "ProductUseCase.ListProducts"

	limit, offset := defaultListLimit, 0
	if req != nil {
		if req.Limit > 0 {
			limit = min(req.Limit, maxListLimit)
		}
		offset = max(req.Offset, 0)
	}

	products, err := p.productRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return products, nil
}

// GetProductsInfo возвращает информацию о продуктах по их идентификаторам.
func (p *ProductUseCase) GetProductsInfo(ctx context.Context, req *GetProductsReq) (*GetProductsRes, error) {
	const op = "ProductUseCase.GetProductsInfo"

	if req == nil || len(req.IDs) == 0 {
		return NewGetProductsRes([]ProductInfo{}, []int64{}), nil
	}

	// Поиск продуктов в кэше
	cacheProductsMap, err := p.cacheRepo.GetProducts(ctx, req.IDs)
	var nonCacheable []int64
	if err != nil {
		p.logger.Warnf("Product cache unavailable: %v", e.Wrap(op, err))
		cacheProductsMap = nil
		nonCacheable = append(nonCacheable, req.IDs...)
	} else {
		for _, productID := range req.IDs {
			if _, ok := cacheProductsMap[productID]; !ok {
				nonCacheable = append(nonCacheable, productID)
			}
		}
	}

	// Получение продуктов из БД
	var productsInfoFromDB []ProductInfo
	if len(nonCacheable) > 0 {
		productsInfoFromDB, err = p.productRepo.GetProductsInfo(ctx, nonCacheable)
		if err != nil {
			return nil, e.Wrap(op, err)
		}

		// Фоновое добавление продуктов в кэш
		if len(productsInfoFromDB) > 0 {
			toCache := productsInfoFromDB
			go func() {
				bgCtx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
				defer cancel()

				if err := p.cacheRepo.SetProducts(bgCtx, toCache); err != nil {
					p.logger.Warnf("Failed to cache products in background: %v", e.Wrap(op, err))
				}
			}()
		}
	}

	dbProductsMap := make(map[int64]ProductInfo, len(productsInfoFromDB))
	for _, productInfo := range productsInfoFromDB {
		dbProductsMap[productInfo.ID] = productInfo
	}

	// Формирование результата
	result := make([]ProductInfo, 0, len(req.IDs))
	notFoundProducts := make([]int64, 0)
	for _, id := range req.IDs {
		if pr, ok := cacheProductsMap[id]; ok {
			result = append(result, pr)
		} else if pr, ok := dbProductsMap[id]; ok {
			result = append(result, pr)
		} else {
			notFoundProducts = append(notFoundProducts, id)
		}
	}

	return NewGetProductsRes(result, notFoundProducts), nil
}

// createCategory идемпотентно создаёт категорию по имени.
func (p *ProductUseCase) createCategory(ctx context.Context, categoryName string) (*domain.Category, error) {
	return p.categoryRepo.Create(ctx, domain.NewCategory(categoryName))
}

// uploadImage сохраняет изображение товара в MinIO.
func (p *ProductUseCase) uploadImage(ctx context.Context, name string, image ProductImage) (*UploadImageRes, error) {
	return p.imagesInfra.UploadImage(ctx, NewUploadImageReq(name, image))
}

// validateProduct проверяет корректность входных данных запроса на добавление продукта.
func (p *ProductUseCase) validateProduct(req *AddNewProductReq) error {
	if req == nil || strings.TrimSpace(req.Name) == "" {
		return e.ErrProductNameRequired
	}

	if strings.TrimSpace(req.CategoryName) == "" {
		return e.ErrMissingFields
	}

	if req.Price < 0 {
		return e.ErrNegativePrice
	}

	if req.Stock < 0 {
		return e.ErrInvalidStock
	}

	if req.Image == nil || len(req.Image.Data) == 0 {
		return e.ErrNoImageSupplied
	}

	return nil
}
