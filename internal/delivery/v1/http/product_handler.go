package http

import (
	"net/http"

	"github.com/DRSN-tech/shop-backend/internal/infrastructure"
	"github.com/DRSN-tech/shop-backend/internal/usecase"
	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/DRSN-tech/shop-backend/pkg/logger"
)

type ProductHandler struct {
	productUsecase usecase.ProductUC
	maxUploadBytes int64
	logger         logger.Logger
}

func NewProductHandler(productUsecase usecase.ProductUC, maxUploadBytes int64, logger logger.Logger) *ProductHandler {
	return &ProductHandler{productUsecase: productUsecase, maxUploadBytes: maxUploadBytes, logger: logger}
}

// listProducts
//
//	@Summary	Список товаров
//	@Tags		products
//	@Produce	json
//	@Param		limit	query		int	false	"Размер страницы (1..100, по умолчанию 50)"
//	@Param		offset	query		int	false	"Смещение"
//	@Success	200		{array}		ProductResponse
//	@Failure	400		{object}	ErrorResponse
//	@Router		/products [get]
func (p *ProductHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		WriteError(w, err)
		return
	}

	offset, err := queryInt(r, "offset")
	if err != nil {
		WriteError(w, err)
		return
	}

	products, err := p.productUsecase.ListProducts(r.Context(), &usecase.ListProductsReq{Limit: limit, Offset: offset})
	if err != nil {
		p.logger.Errorf(err, "list products failed")
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toProductResponses(products))
}

// getProduct
//
//	@Summary	Товар по идентификатору
//	@Tags		products
//	@Produce	json
//	@Param		id	path		int	true	"ID товара"
//	@Success	200	{object}	ProductResponse
//	@Failure	400	{object}	ErrorResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/products/{id} [get]
func (p *ProductHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := productIDParam(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	product, err := p.productUsecase.GetProduct(r.Context(), id)
	if err != nil {
		if code, _ := ToHTTPResponse(err); code >= http.StatusInternalServerError {
			p.logger.Errorf(err, "get product %d failed", id)
		}
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toProductResponse(product))
}

// registerNewProduct
//
//	@Summary		Регистрация нового товара
//	@Description	Загружает изображение в хранилище, создаёт товар и сразу считает его цветовую гистограмму
//	@Tags			admin
//	@Security		AdminToken
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			name		formData	string			true	"Название товара"
//	@Param			category	formData	string			true	"Категория"
//	@Param			price		formData	number			true	"Цена"
//	@Param			stock		formData	int				false	"Остаток"
//	@Param			image		formData	file			true	"Изображение товара"
//	@Success		201			{object}	ProductResponse	"Успешное создание"
//	@Failure		400			{object}	ErrorResponse	"Ошибка валидации"
//	@Failure		409			{object}	ErrorResponse	"Товар уже существует"
//	@Failure		415			{object}	ErrorResponse	"Неподдерживаемый формат изображения"
//	@Router			/admin/products [post]
func (p *ProductHandler) registerNewProduct(w http.ResponseWriter, r *http.Request) {
	const maxMemory = 32 << 20

	r.Body = http.MaxBytesReader(w, r.Body, p.maxUploadBytes+(1<<20))

	if err := ensureMultipartForm(r, maxMemory); err != nil {
		p.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), r.Header.Get("Content-Type"))
		WriteError(w, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	prMeta, err := parseProductForm(r)
	if err != nil {
		p.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), err.Error())
		WriteError(w, err)
		return
	}

	fh, data, mimeType, err := formImage(r, "image", p.maxUploadBytes)
	if err != nil {
		p.logger.Warnf("register product: %v", err)
		WriteError(w, err)
		return
	}

	if !infrastructure.IsSupportedImageMIME(mimeType) {
		p.logger.Warnf("register product: %s has unsupported type %s", fh.Filename, mimeType)
		WriteError(w, e.ErrUnsupportedMediaType)
		return
	}

	product, err := p.productUsecase.RegisterNewProduct(r.Context(), usecase.NewAddNewProductReq(
		prMeta.Name, prMeta.CategoryName, prMeta.Price, prMeta.Stock,
		usecase.NewProductImage(data, mimeType, fh.Filename),
	))
	if err != nil {
		p.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	p.logger.Infof("product %d registered: %s", product.ID, product.Name)
	WriteSuccess(w, http.StatusCreated, toProductResponse(product))
}
