package usecase

import (
	"time"

	"github.com/DRSN-tech/shop-backend/internal/domain"
	"github.com/google/uuid"
)

// PRODUCT USECASE

// AddNewProductReq — запрос на добавление нового товара.
type AddNewProductReq struct {
	Name         string
	CategoryName string
	Price        int64
	Stock        int64
	Image        *ProductImage
}

// ProductImage представляет изображение, загруженное через multipart/form-data.
type ProductImage struct {
	Data     []byte // байты изображения
	MimeType string // Content-Type, определённый по содержимому
	Size     int64
	Name     string // оригинальное имя файла (для логов)
}

// ListProductsReq — страница каталога.
type ListProductsReq struct {
	Limit  int
	Offset int
}

// GetProductsReq запрос информации о товарах по их идентификаторам.
type GetProductsReq struct {
	IDs []int64
}

// GetProductsRes — ответ с данными запрошенных товаров.
type GetProductsRes struct {
	Products         []ProductInfo
	NotFoundProducts []int64
}

// ProductInfo — витринные поля товара.
type ProductInfo struct {
	ID           int64
	Name         string
	CategoryName string
	Price        int64
	ImageRef     string
}

// SEARCH USECASE

// SearchByImageReq — загруженное пользователем изображение.
type SearchByImageReq struct {
	Image []byte
}

// SearchByImageRes — ранжированный список, не длиннее TopK.
type SearchByImageRes struct {
	Items      []SearchResultItem
	Candidates int
}

type SearchResultItem struct {
	ID       int64
	Name     string
	ImageRef string
	Price    int64
	Score    float64
}

// INFRASTRUCTURE

// UploadImageReq — запрос на загрузку изображения товара.
type UploadImageReq struct {
	ProductName string
	Image       ProductImage
}

// UploadImageRes — ключ объекта в MinIO и ссылка, которая пишется в products.image_ref.
type UploadImageRes struct {
	Key string
	Ref string
}

// FingerprintStoredEvent публикуется после записи гистограммы товара.
type FingerprintStoredEvent struct {
	EventID    string
	ProductID  int64
	Bins       int
	Dimension  int
	Recomputed bool
	OccurredAt time.Time
}

// MAPPERS

func NewProductInfo(id int64, name string, category string, price int64, imageRef string) ProductInfo {
	return ProductInfo{
		ID:           id,
		Name:         name,
		CategoryName: category,
		Price:        price,
		ImageRef:     imageRef,
	}
}

func NewAddNewProductReq(name string, category string, price int64, stock int64, image *ProductImage) *AddNewProductReq {
	return &AddNewProductReq{
		Name:         name,
		CategoryName: category,
		Price:        price,
		Stock:        stock,
		Image:        image,
	}
}

func NewProductImage(data []byte, mimeType string, name string) *ProductImage {
	return &ProductImage{
		Data:     data,
		MimeType: mimeType,
		Size:     int64(len(data)),
		Name:     name,
	}
}

func NewGetProductsRes(pr []ProductInfo, notFoundProducts []int64) *GetProductsRes {
	return &GetProductsRes{
		Products:         pr,
		NotFoundProducts: notFoundProducts,
	}
}

func NewGetProductsReq(ids []int64) *GetProductsReq {
	return &GetProductsReq{IDs: ids}
}

func NewSearchByImageReq(image []byte) *SearchByImageReq {
	return &SearchByImageReq{Image: image}
}

func NewUploadImageReq(productName string, image ProductImage) *UploadImageReq {
	return &UploadImageReq{
		ProductName: productName,
		Image:       image,
	}
}

func NewUploadImageRes(key string, ref string) *UploadImageRes {
	return &UploadImageRes{Key: key, Ref: ref}
}

func NewFingerprintStoredEvent(productID int64, bins int, recomputed bool) *FingerprintStoredEvent {
	return &FingerprintStoredEvent{
		EventID:    uuid.NewString(),
		ProductID:  productID,
		Bins:       bins,
		Dimension:  domain.Dimension(bins),
		Recomputed: recomputed,
		OccurredAt: time.Now().UTC(),
	}
}
