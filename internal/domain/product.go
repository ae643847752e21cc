package domain

import "time"

// Product описывает товар каталога
type Product struct {
	ID           int64
	Name         string
	Price        int64 // Цена хранится в копейках
	ImageRef     string
	CategoryID   int64
	CategoryName string
	Stock        int64
	Fingerprint  Fingerprint // nil, пока гистограмма не посчитана
	CreatedAt    time.Time
	UpdatedAt    *time.Time
	IsArchived   bool
}

func NewProduct(name string, price int64, categoryID int64, stock int64, imageRef string) *Product {
	return &Product{
		Name:       name,
		Price:      price,
		CategoryID: categoryID,
		Stock:      stock,
		ImageRef:   imageRef,
	}
}

// HasFingerprint сообщает, сохранена ли у товара гистограмма.
func (p *Product) HasFingerprint() bool {
	return len(p.Fingerprint) > 0
}
