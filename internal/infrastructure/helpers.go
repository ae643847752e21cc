package infrastructure

import "github.com/DRSN-tech/shop-backend/pkg/e"

// GetExtensionFromMIME возвращает расширение файла по MIME-типу изображения.
// Набор типов совпадает с форматами, которые умеет разбирать экстрактор гистограмм.
func GetExtensionFromMIME(mime string) (string, error) {
	switch mime {
	case "image/jpeg", "image/jpg":
		return "jpg", nil
	case "image/png":
		return "png", nil
	case "image/webp":
		return "webp", nil
	case "image/gif":
		return "gif", nil
	case "image/bmp", "image/x-ms-bmp":
		return "bmp", nil
	default:
		return "bin", e.ErrUnsupportedMediaType
	}
}

// IsSupportedImageMIME сообщает, принимается ли изображение такого типа при загрузке.
func IsSupportedImageMIME(mime string) bool {
	_, err := GetExtensionFromMIME(mime)
	return err == nil
}
