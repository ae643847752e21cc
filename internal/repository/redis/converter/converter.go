package converter

import "github.com/DRSN-tech/shop-backend/internal/usecase"

// ProductInfoConverter преобразует usecase.ProductInfo в модель кэша и обратно.
type ProductInfoConverter struct{}

func NewProductInfoConverter() *ProductInfoConverter {
	return &ProductInfoConverter{}
}

func (ProductInfoConverter) ToRedisModel(entity *usecase.ProductInfo) *ProductInfoRedisModel {
	return &ProductInfoRedisModel{
		ID:           entity.ID,
		Name:         entity.Name,
		CategoryName: entity.CategoryName,
		Price:        entity.Price,
		ImageRef:     entity.ImageRef,
	}
}

func (ProductInfoConverter) ToUseCase(model *ProductInfoRedisModel) *usecase.ProductInfo {
	return &usecase.ProductInfo{
		ID:           model.ID,
		Name:         model.Name,
		CategoryName: model.CategoryName,
		Price:        model.Price,
		ImageRef:     model.ImageRef,
	}
}

func (c ProductInfoConverter) ToArrRedisModel(entities []usecase.ProductInfo) []ProductInfoRedisModel {
	res := make([]ProductInfoRedisModel, 0, len(entities))
	for i := range entities {
		res = append(res, *c.ToRedisModel(&entities[i]))
	}

	return res
}
