package converter

import "github.com/DRSN-tech/shop-backend/internal/domain"

// ProductConverter преобразует сущности Product между domain и моделью PostgreSQL.
type ProductConverter struct{}

func NewProductConverter() *ProductConverter {
	return &ProductConverter{}
}

func (ProductConverter) ToModel(entity *domain.Product) *ProductModel {
	if entity == nil {
		return nil
	}

	return &ProductModel{
		ID:           entity.ID,
		Name:         entity.Name,
		Price:        entity.Price,
		ImageRef:     entity.ImageRef,
		CategoryID:   entity.CategoryID,
		CategoryName: entity.CategoryName,
		Stock:        entity.Stock,
		ColorHist:    []float64(entity.Fingerprint),
		CreatedAt:    entity.CreatedAt,
		UpdatedAt:    entity.UpdatedAt,
		IsArchived:   entity.IsArchived,
	}
}

func (ProductConverter) ToEntity(model *ProductModel) *domain.Product {
	if model == nil {
		return nil
	}

	return &domain.Product{
		ID:           model.ID,
		Name:         model.Name,
		Price:        model.Price,
		ImageRef:     model.ImageRef,
		CategoryID:   model.CategoryID,
		CategoryName: model.CategoryName,
		Stock:        model.Stock,
		Fingerprint:  domain.Fingerprint(model.ColorHist),
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
		IsArchived:   model.IsArchived,
	}
}

func (c ProductConverter) ToArrEntity(models []ProductModel) []domain.Product {
	res := make([]domain.Product, 0, len(models))
	for i := range models {
		res = append(res, *c.ToEntity(&models[i]))
	}

	return res
}

// CategoryConverter преобразует сущности Category между domain и моделью PostgreSQL.
type CategoryConverter struct{}

func NewCategoryConverter() *CategoryConverter {
	return &CategoryConverter{}
}

func (CategoryConverter) ToModel(entity *domain.Category) *CategoryModel {
	if entity == nil {
		return nil
	}

	return &CategoryModel{
		ID:         entity.ID,
		Name:       entity.Name,
		CreatedAt:  entity.CreatedAt,
		UpdatedAt:  entity.UpdatedAt,
		IsArchived: entity.IsArchived,
	}
}

func (CategoryConverter) ToEntity(model *CategoryModel) *domain.Category {
	if model == nil {
		return nil
	}

	return &domain.Category{
		ID:         model.ID,
		Name:       model.Name,
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
		IsArchived: model.IsArchived,
	}
}
