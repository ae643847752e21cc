package e

import "fmt"

var (
	// Внутренние ошибки с транзакциями
	ErrTransactionNotFound = fmt.Errorf("transaction not found")

	// Внутренние ошибки с фингерпринтами
	ErrFetchFailed          = fmt.Errorf("image fetch failed")
	ErrFingerprintDimension = fmt.Errorf("fingerprint dimension mismatch")
	ErrUnsupportedImageRef  = fmt.Errorf("unsupported image reference")

	// 400 Bad Request
	ErrStatusBadRequest     = fmt.Errorf("bad request")
	ErrExpectedMultipart    = fmt.Errorf("expected multipart/form-data")
	ErrMissingFields        = fmt.Errorf("missing required fields")
	ErrInvalidPrice         = fmt.Errorf("invalid price")
	ErrPricePrecision       = fmt.Errorf("price must have at most 2 decimal places")
	ErrInvalidStock         = fmt.Errorf("invalid stock")
	ErrInvalidProductID     = fmt.Errorf("invalid product id")
	ErrProductNameRequired  = fmt.Errorf("product name is required")
	ErrNegativePrice        = fmt.Errorf("price must not be negative")
	ErrNoImageSupplied      = fmt.Errorf("no image supplied")
	ErrFileTooLarge         = fmt.Errorf("file too large")
	ErrUnsupportedMediaType = fmt.Errorf("unsupported media type")

	// 401 / 403
	ErrUnauthorized = fmt.Errorf("unauthorized")
	ErrForbidden    = fmt.Errorf("admin access required")

	// 404 Not Found
	ErrProductNotFound = fmt.Errorf("product not found")

	// 409 Conflict
	ErrProductAlreadyExists = fmt.Errorf("product already exists")

	// 422 Unprocessable Entity
	ErrExtractionFailed = fmt.Errorf("image could not be processed")

	// 500 Internal Server Error
	ErrInternalServerError = fmt.Errorf("internal server error")

	ErrIncorrectEnvVariable = fmt.Errorf("incorrect environment variable")
)

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}
