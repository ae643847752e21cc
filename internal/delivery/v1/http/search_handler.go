package http

import (
	"errors"
	"net/http"

	"github.com/DRSN-tech/shop-backend/internal/usecase"
	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/DRSN-tech/shop-backend/pkg/logger"
)

type SearchHandler struct {
	searchUsecase  usecase.SearchUC
	maxUploadBytes int64
	logger         logger.Logger
}

func NewSearchHandler(searchUsecase usecase.SearchUC, maxUploadBytes int64, logger logger.Logger) *SearchHandler {
	return &SearchHandler{searchUsecase: searchUsecase, maxUploadBytes: maxUploadBytes, logger: logger}
}

// searchByImage
//
//	@Summary		Поиск товаров по изображению
//	@Description	Строит цветовую гистограмму загруженного изображения и возвращает до 10 самых похожих товаров
//	@Tags			search
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			image	formData	file					true	"Изображение-запрос"
//	@Success		200		{array}		SearchResultResponse	"Товары по убыванию похожести"
//	@Failure		400		{object}	ErrorResponse			"Изображение не передано"
//	@Failure		413		{object}	ErrorResponse			"Файл слишком большой"
//	@Failure		422		{object}	ErrorResponse			"Изображение не удалось обработать"
//	@Failure		500		{object}	ErrorResponse			"Внутренняя ошибка"
//	@Router			/search-by-image [post]
func (s *SearchHandler) searchByImage(w http.ResponseWriter, r *http.Request) {
	const maxMemory = 32 << 20

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+(1<<20))

	if err := ensureMultipartForm(r, maxMemory); err != nil {
		s.logger.Warnf("search-by-image: %v", err)
		// без multipart-тела изображения нет
		if errors.Is(err, e.ErrExpectedMultipart) {
			err = e.ErrNoImageSupplied
		}
		WriteError(w, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	_, data, _, err := formImage(r, "image", s.maxUploadBytes)
	if err != nil {
		s.logger.Warnf("search-by-image: %v", err)
		WriteError(w, err)
		return
	}

	res, err := s.searchUsecase.SearchByImage(r.Context(), usecase.NewSearchByImageReq(data))
	if err != nil {
		if code, _ := ToHTTPResponse(err); code >= http.StatusInternalServerError {
			s.logger.Errorf(err, "search-by-image failed")
		} else {
			s.logger.Warnf("search-by-image: %v", err)
		}
		WriteError(w, err)
		return
	}

	s.logger.Debugf("search-by-image: %d result(s) out of %d candidate(s)", len(res.Items), res.Candidates)
	WriteSuccess(w, http.StatusOK, toSearchResultResponses(res.Items))
}
