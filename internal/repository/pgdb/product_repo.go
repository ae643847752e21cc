package pgdb

import (
	"context"
	"errors"

	"github.com/DRSN-tech/shop-backend/internal/domain"
	"github.com/DRSN-tech/shop-backend/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/shop-backend/internal/usecase"
	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/DRSN-tech/shop-backend/pkg/logger"
	"github.com/DRSN-tech/shop-backend/pkg/tr"
	"github.com/jackc/pgx/v5"
	"github.com/jimlawless/whereami"
)

const productColumns = `
	pr.id, pr.name, pr.price, pr.image_ref, pr.category_id, cat.name,
	pr.stock, pr.color_hist, pr.created_at, pr.updated_at, pr.is_archived`

// ProductRepo реализует репозиторий товаров и их гистограмм поверх PostgreSQL.
type ProductRepo struct {
	db     DB
	conv   *converter.ProductConverter
	bins   int
	logger logger.Logger
}

func NewProductRepo(db DB, conv *converter.ProductConverter, bins int, logger logger.Logger) *ProductRepo {
	return &ProductRepo{
		db:     db,
		conv:   conv,
		bins:   bins,
		logger: logger,
	}
}

// Create добавляет товар. Работает только внутри транзакции из контекста.
func (p *ProductRepo) Create(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	query := `
		INSERT INTO products (name, price, image_ref, category_id, stock)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at, is_archived;
	`

	model := p.conv.ToModel(product)
	err = tx.QueryRow(ctx, query, model.Name, model.Price, model.ImageRef, model.CategoryID, model.Stock).
		Scan(&model.ID, &model.CreatedAt, &model.UpdatedAt, &model.IsArchived)
	if err != nil {
		if postgresDuplicate(err) {
			return nil, e.Wrap(whereami.WhereAmI(), e.ErrProductAlreadyExists)
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return p.conv.ToEntity(model), nil
}

// GetByID возвращает товар вместе с названием категории.
func (p *ProductRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT` + productColumns + `
		FROM products pr
		JOIN categories cat ON pr.category_id = cat.id
		WHERE pr.id = $1 AND NOT pr.is_archived
	`

	model, err := scanProduct(p.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, e.Wrap(whereami.WhereAmI(), e.ErrProductNotFound)
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return p.conv.ToEntity(model), nil
}

// List возвращает страницу каталога, упорядоченную по id.
func (p *ProductRepo) List(ctx context.Context, limit, offset int) ([]domain.Product, error) {
	query := `SELECT` + productColumns + `
		FROM products pr
		JOIN categories cat ON pr.category_id = cat.id
		WHERE NOT pr.is_archived
		ORDER BY pr.id
		LIMIT $1 OFFSET $2
	`

	rows, err := p.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	models := make([]converter.ProductModel, 0, limit)
	for rows.Next() {
		model, err := scanProduct(rows)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		models = append(models, *model)
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return p.conv.ToArrEntity(models), nil
}

// GetProductsInfo возвращает витринные поля товаров по их идентификаторам, включая название категории.
func (p *ProductRepo) GetProductsInfo(ctx context.Context, ids []int64) ([]usecase.ProductInfo, error) {
	query := `
		SELECT pr.id, pr.name, pr.price, pr.image_ref, cat.name
		FROM products pr
		JOIN categories cat ON pr.category_id = cat.id
		WHERE pr.id = ANY($1) AND NOT pr.is_archived
	`

	rows, err := p.db.Query(ctx, query, ids)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	result := make([]usecase.ProductInfo, 0, len(ids))
	for rows.Next() {
		var info usecase.ProductInfo
		if err := rows.Scan(&info.ID, &info.Name, &info.Price, &info.ImageRef, &info.CategoryName); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		result = append(result, info)
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return result, nil
}

// ListWithFingerprint возвращает все товары с сохранённой гистограммой.
// Гистограммы с неверной размерностью пропускаются: они не сравнимы с запросом.
func (p *ProductRepo) ListWithFingerprint(ctx context.Context) ([]domain.Candidate, error) {
	query := `
		SELECT id, color_hist
		FROM products
		WHERE color_hist IS NOT NULL AND NOT is_archived
		ORDER BY id
	`

	rows, err := p.db.Query(ctx, query)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	candidates := make([]domain.Candidate, 0)
	for rows.Next() {
		var (
			id   int64
			hist []float64
		)
		if err := rows.Scan(&id, &hist); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		fp := domain.Fingerprint(hist)
		if err := fp.Validate(p.bins); err != nil {
			p.logger.Warnf("skipping stored fingerprint of product %d: %v", id, err)
			continue
		}

		candidates = append(candidates, domain.Candidate{ProductID: id, Fingerprint: fp})
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return candidates, nil
}

// ListMissingFingerprint возвращает товары без гистограммы, у которых есть ссылка на изображение.
func (p *ProductRepo) ListMissingFingerprint(ctx context.Context) ([]domain.Product, error) {
	query := `
		SELECT id, name, image_ref
		FROM products
		WHERE color_hist IS NULL AND image_ref <> '' AND NOT is_archived
		ORDER BY id
	`

	rows, err := p.db.Query(ctx, query)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		var pr domain.Product
		if err := rows.Scan(&pr.ID, &pr.Name, &pr.ImageRef); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		products = append(products, pr)
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return products, nil
}

// SetFingerprint сохраняет гистограмму, только если у товара её ещё нет.
// Возвращает false, если запись не изменилась (гистограмма уже есть или товара нет).
func (p *ProductRepo) SetFingerprint(ctx context.Context, id int64, fp domain.Fingerprint) (bool, error) {
	if err := fp.Validate(p.bins); err != nil {
		return false, e.Wrap(whereami.WhereAmI(), errors.Join(e.ErrFingerprintDimension, err))
	}

	query := `
		UPDATE products
		SET color_hist = $2, updated_at = NOW()
		WHERE id = $1 AND color_hist IS NULL
	`

	tag, err := p.db.Exec(ctx, query, id, []float64(fp))
	if err != nil {
		return false, e.Wrap(whereami.WhereAmI(), err)
	}

	return tag.RowsAffected() > 0, nil
}

// ReplaceFingerprint перезаписывает гистограмму. Используется только при явном пересчёте.
func (p *ProductRepo) ReplaceFingerprint(ctx context.Context, id int64, fp domain.Fingerprint) error {
	if err := fp.Validate(p.bins); err != nil {
		return e.Wrap(whereami.WhereAmI(), errors.Join(e.ErrFingerprintDimension, err))
	}

	query := `
		UPDATE products
		SET color_hist = $2, updated_at = NOW()
		WHERE id = $1 AND NOT is_archived
	`

	tag, err := p.db.Exec(ctx, query, id, []float64(fp))
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if tag.RowsAffected() == 0 {
		return e.Wrap(whereami.WhereAmI(), e.ErrProductNotFound)
	}

	return nil
}

func scanProduct(row pgx.Row) (*converter.ProductModel, error) {
	var model converter.ProductModel
	err := row.Scan(
		&model.ID, &model.Name, &model.Price, &model.ImageRef, &model.CategoryID, &model.CategoryName,
		&model.Stock, &model.ColorHist, &model.CreatedAt, &model.UpdatedAt, &model.IsArchived,
	)
	if err != nil {
		return nil, err
	}

	return &model, nil
}
