package http

import (
	"encoding/json"
	"time"

	"github.com/DRSN-tech/shop-backend/internal/domain"
	"github.com/DRSN-tech/shop-backend/internal/usecase"
)

// SearchResultResponse — элемент ответа поиска по изображению.
type SearchResultResponse struct {
	ID         int64       `json:"id"`
	Name       string      `json:"name"`
	Image      string      `json:"image"`
	Price      json.Number `json:"price" swaggertype:"number"`
	Similarity float64     `json:"similarity"`
}

type ProductResponse struct {
	ID             int64       `json:"id"`
	Name           string      `json:"name"`
	Category       string      `json:"category"`
	Price          json.Number `json:"price" swaggertype:"number"`
	Image          string      `json:"image"`
	Stock          int64       `json:"stock"`
	HasFingerprint bool        `json:"has_fingerprint"`
	CreatedAt      time.Time   `json:"created_at"`
}

func toSearchResultResponses(items []usecase.SearchResultItem) []SearchResultResponse {
	res := make([]SearchResultResponse, 0, len(items))
	for _, it := range items {
		res = append(res, SearchResultResponse{
			ID:         it.ID,
			Name:       it.Name,
			Image:      it.ImageRef,
			Price:      formatPrice(it.Price),
			Similarity: it.Score,
		})
	}
	return res
}

func toProductResponse(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:             p.ID,
		Name:           p.Name,
		Category:       p.CategoryName,
		Price:          formatPrice(p.Price),
		Image:          p.ImageRef,
		Stock:          p.Stock,
		HasFingerprint: p.HasFingerprint(),
		CreatedAt:      p.CreatedAt,
	}
}

func toProductResponses(products []domain.Product) []ProductResponse {
	res := make([]ProductResponse, 0, len(products))
	for i := range products {
		res = append(res, toProductResponse(&products[i]))
	}
	return res
}
